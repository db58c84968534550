// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// Client wraps the Zeebe gRPC client.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig governs the connection attempts made at startup.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Connect creates the Zeebe client and waits until the gateway answers a
// topology request, backing off between attempts.
func Connect(ctx context.Context, config *ClientConfig, log *zap.Logger) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout == 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	var lastErr error
	delay := config.RetryConfig.BaseDelay

	for attempt := 1; attempt <= config.RetryConfig.MaxRetries; attempt++ {
		c, err := newClient(ctx, config)
		if err == nil {
			return c, nil
		}
		lastErr = err

		if attempt == config.RetryConfig.MaxRetries {
			break
		}
		log.Warn("zeebe connection failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", config.RetryConfig.MaxRetries),
			zap.Duration("nextRetryIn", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("zeebe connection cancelled after %d attempts: %w", attempt, ctx.Err())
		}

		delay *= 2
		if delay > config.RetryConfig.MaxDelay {
			delay = config.RetryConfig.MaxDelay
		}
	}

	return nil, fmt.Errorf("zeebe connection failed after %d attempts: %w", config.RetryConfig.MaxRetries, lastErr)
}

func newClient(ctx context.Context, config *ClientConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	if err := c.HealthCheck(ctx); err != nil {
		zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck performs a topology request against the gateway.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed at %s: %w", c.config.GatewayAddress, err)
	}
	return nil
}
