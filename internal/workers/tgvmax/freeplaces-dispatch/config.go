package freeplacesdispatch

import (
	"fmt"
	"time"

	"freeplaces-workers/internal/dispatch"
)

type Config struct {
	Timeout          time.Duration
	DefaultOperation dispatch.Operation
	ContinueOnFail   bool
	FanOutArrays     bool
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		DefaultOperation: dispatch.OperationSearchFreeplaces,
		ContinueOnFail:   false,
		FanOutArrays:     false,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DefaultOperation == "" {
		return fmt.Errorf("default operation is required")
	}
	return nil
}
