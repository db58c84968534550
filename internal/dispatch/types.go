// Package dispatch turns declared operations into outbound calls against the
// TGVMax planner API and runs them item by item over a batch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Operation identifies one supported request shape.
type Operation string

const (
	OperationSearchFreeplaces Operation = "searchFreeplaces"
	OperationSearchStation    Operation = "searchStation"
)

var (
	ErrUnsupportedOperation = errors.New("UNSUPPORTED_OPERATION")
	ErrMissingParameter     = errors.New("MISSING_PARAMETER")
)

// ParameterSet maps parameter names to the values resolved for one item.
type ParameterSet map[string]any

// RequestDescriptor is a fully specified outbound request.
type RequestDescriptor struct {
	Method  string
	BaseURL string
	Path    string
	Headers map[string]string
	Query   map[string]any
	Body    any
}

// StatusError is returned by a Transport when the remote answered with a
// non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("request failed with status code %d (%s)", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// IsNotFound reports whether err carries an HTTP 404 status.
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound
	}
	return false
}

// Transport performs a RequestDescriptor and returns the decoded payload.
type Transport interface {
	Do(ctx context.Context, req RequestDescriptor) (any, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req RequestDescriptor) (any, error)

func (f TransportFunc) Do(ctx context.Context, req RequestDescriptor) (any, error) {
	return f(ctx, req)
}

// ItemSource supplies the ordered batch and per-item parameter values.
type ItemSource interface {
	Len() int
	Parameter(name string, index int) (any, error)
}

// ErrorRecord replaces a payload when an item failed under continue-on-fail.
type ErrorRecord struct {
	Error string `json:"error"`
}

// OutputItem is one emitted record, tagged with the input index it came from.
type OutputItem struct {
	Index int `json:"index"`
	JSON  any `json:"json"`
}

// IsError reports whether the item carries an ErrorRecord.
func (o OutputItem) IsError() bool {
	_, ok := o.JSON.(ErrorRecord)
	return ok
}

// EmptyPayload returns the stand-in result used when the planner answers 404.
func EmptyPayload() map[string]any {
	return map[string]any{
		"freePlacesRatio": 0,
		"proposals":       []any{},
	}
}
