package dispatch

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeplaces-workers/internal/common/logger"
	"freeplaces-workers/internal/common/metrics"
)

func failingTransport(err error) Transport {
	return TransportFunc(func(ctx context.Context, req RequestDescriptor) (any, error) {
		return nil, err
	})
}

func TestExecutor_ReturnsPayload(t *testing.T) {
	payload := map[string]any{"freePlacesRatio": 0.4, "proposals": []any{"a"}}
	exec := NewExecutor(TransportFunc(func(ctx context.Context, req RequestDescriptor) (any, error) {
		assert.Equal(t, PathSearchFreeplaces, req.Path)
		return payload, nil
	}), logger.NewTestLogger(t))

	got, err := exec.Execute(context.Background(), RequestDescriptor{Path: PathSearchFreeplaces})
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestExecutor_NotFoundBecomesEmptyPayload(t *testing.T) {
	b := NewBuilder(DefaultTemplate())
	cases := map[Operation]ParameterSet{
		OperationSearchFreeplaces: {"departureDateTime": "2024-02-29T00:00:00", "origin": "FRPLY", "destination": "FRLPD"},
		OperationSearchStation:    {"stationName": "Nowhere"},
	}

	for op, params := range cases {
		t.Run(string(op), func(t *testing.T) {
			exec := NewExecutor(failingTransport(&StatusError{StatusCode: http.StatusNotFound}), logger.NewTestLogger(t))
			req, err := b.Build(op, params)
			require.NoError(t, err)

			got, normalized, err := exec.execute(context.Background(), req)
			require.NoError(t, err)
			assert.True(t, normalized)
			assert.Equal(t, map[string]any{"freePlacesRatio": 0, "proposals": []any{}}, got)
		})
	}
}

func TestExecutor_NotFoundIsCounted(t *testing.T) {
	counter := metrics.PayloadsNormalized.WithLabelValues("/counted")
	before := testutil.ToFloat64(counter)

	exec := NewExecutor(failingTransport(&StatusError{StatusCode: http.StatusNotFound}), logger.NewNoOpLogger())
	_, err := exec.Execute(context.Background(), RequestDescriptor{Path: "/counted"})
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestExecutor_WrappedNotFoundIsNormalized(t *testing.T) {
	wrapped := errors.Join(errors.New("upstream"), &StatusError{StatusCode: 404, Status: "404 Not Found"})
	exec := NewExecutor(failingTransport(wrapped), logger.NewNoOpLogger())

	got, err := exec.Execute(context.Background(), RequestDescriptor{})
	require.NoError(t, err)
	assert.Equal(t, EmptyPayload(), got)
}

func TestExecutor_OtherFailuresPropagate(t *testing.T) {
	connErr := errors.New("dial tcp: connection refused")
	tests := []struct {
		name string
		err  error
	}{
		{"internal server error", &StatusError{StatusCode: http.StatusInternalServerError}},
		{"bad request", &StatusError{StatusCode: http.StatusBadRequest}},
		{"gone", &StatusError{StatusCode: http.StatusGone}},
		{"connection refused", connErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(failingTransport(tt.err), logger.NewTestLogger(t))

			got, err := exec.Execute(context.Background(), RequestDescriptor{})
			assert.Nil(t, got)
			assert.Same(t, tt.err, err)
		})
	}
}

func TestEmptyPayload_IsFresh(t *testing.T) {
	first := EmptyPayload()
	first["proposals"] = []any{"x"}
	assert.Equal(t, []any{}, EmptyPayload()["proposals"])
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&StatusError{StatusCode: 404}))
	assert.False(t, IsNotFound(&StatusError{StatusCode: 500}))
	assert.False(t, IsNotFound(errors.New("not found")))
	assert.False(t, IsNotFound(nil))
}
