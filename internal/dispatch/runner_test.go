package dispatch

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeplaces-workers/internal/common/logger"
)

// ==========================
// Test Helpers
// ==========================

// scriptedTransport answers each call with the next entry, recording requests.
type scriptedTransport struct {
	responses []scriptedResponse
	requests  []RequestDescriptor
}

type scriptedResponse struct {
	payload any
	err     error
}

func (s *scriptedTransport) Do(ctx context.Context, req RequestDescriptor) (any, error) {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.responses) {
		return nil, errors.New("unexpected call")
	}
	r := s.responses[len(s.requests)-1]
	return r.payload, r.err
}

func stationItems(names ...string) MapItems {
	items := make([]map[string]any, 0, len(names))
	for _, n := range names {
		items = append(items, map[string]any{"stationName": n})
	}
	return MapItems{Items: items}
}

func newTestRunner(t *testing.T, transport Transport) *Runner {
	log := logger.NewTestLogger(t)
	return NewRunner(NewBuilder(DefaultTemplate()), NewExecutor(transport, log), log)
}

// ==========================
// Run Tests
// ==========================

func TestRunner_OneOutputPerItemInOrder(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{payload: map[string]any{"n": "A"}},
		{payload: map[string]any{"n": "B"}},
		{payload: map[string]any{"n": "C"}},
	}}
	runner := newTestRunner(t, transport)

	result, err := runner.Run(context.Background(), stationItems("A", "B", "C"), OperationSearchStation, RunOptions{})
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	for i, name := range []string{"A", "B", "C"} {
		assert.Equal(t, i, result.Items[i].Index)
		assert.Equal(t, map[string]any{"n": name}, result.Items[i].JSON)
		assert.Equal(t, name, transport.requests[i].Query["label"])
	}
	assert.Equal(t, 3, result.Emitted)
	assert.Equal(t, 0, result.Captured)
	assert.Equal(t, OperationSearchStation, result.Operation)
}

func TestRunner_AbortsOnFirstFailure(t *testing.T) {
	serverErr := &StatusError{StatusCode: http.StatusInternalServerError}
	transport := &scriptedTransport{responses: []scriptedResponse{
		{payload: map[string]any{"ok": true}},
		{err: serverErr},
		{payload: map[string]any{"ok": true}},
	}}
	runner := newTestRunner(t, transport)

	result, err := runner.Run(context.Background(), stationItems("A", "B", "C"), OperationSearchStation, RunOptions{})
	require.Error(t, err)
	assert.Nil(t, result)

	var itemErr *ItemError
	require.True(t, errors.As(err, &itemErr))
	assert.Equal(t, 1, itemErr.Index)
	assert.ErrorIs(t, err, serverErr)

	// item 2 is never attempted
	assert.Len(t, transport.requests, 2)
}

func TestRunner_ContinueOnFailCapturesError(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{payload: map[string]any{"ok": "A"}},
		{err: &StatusError{StatusCode: http.StatusInternalServerError}},
		{payload: map[string]any{"ok": "C"}},
	}}
	runner := newTestRunner(t, transport)

	result, err := runner.Run(context.Background(), stationItems("A", "B", "C"), OperationSearchStation, RunOptions{ContinueOnFail: true})
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.Equal(t, OutputItem{Index: 0, JSON: map[string]any{"ok": "A"}}, result.Items[0])
	assert.Equal(t, 1, result.Items[1].Index)
	assert.True(t, result.Items[1].IsError())
	assert.Equal(t, ErrorRecord{Error: "request failed with status code 500"}, result.Items[1].JSON)
	assert.Equal(t, OutputItem{Index: 2, JSON: map[string]any{"ok": "C"}}, result.Items[2])
	assert.Equal(t, 2, result.Emitted)
	assert.Equal(t, 1, result.Captured)
}

func TestRunner_NotFoundIsNotAFailure(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{err: &StatusError{StatusCode: http.StatusNotFound}},
	}}
	runner := newTestRunner(t, transport)

	items := MapItems{Items: []map[string]any{{
		"origin": "FRPLY", "destination": "FRLPD", "departureDateTime": "2024-02-29T00:00:00",
	}}}
	result, err := runner.Run(context.Background(), items, OperationSearchFreeplaces, RunOptions{})
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, EmptyPayload(), result.Items[0].JSON)
	assert.Equal(t, 1, result.Normalized)
	assert.Equal(t, map[string]any{
		"departureDateTime": "2024-02-29T00:00:00",
		"destination":       "FRLPD",
		"origin":            "FRPLY",
	}, transport.requests[0].Body)
}

func TestRunner_UnsupportedOperation(t *testing.T) {
	t.Run("aborts without continue-on-fail", func(t *testing.T) {
		transport := &scriptedTransport{}
		runner := newTestRunner(t, transport)

		result, err := runner.Run(context.Background(), stationItems("A"), "bookTrain", RunOptions{})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrUnsupportedOperation)
		assert.Empty(t, transport.requests)
	})

	t.Run("captured, never suppressed, with continue-on-fail", func(t *testing.T) {
		transport := &scriptedTransport{}
		runner := newTestRunner(t, transport)

		result, err := runner.Run(context.Background(), stationItems("A", "B"), "bookTrain", RunOptions{ContinueOnFail: true})
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		for i, item := range result.Items {
			assert.Equal(t, i, item.Index)
			require.True(t, item.IsError())
			assert.Contains(t, item.JSON.(ErrorRecord).Error, "UNSUPPORTED_OPERATION")
		}
		assert.Equal(t, 0, result.Emitted)
		assert.Empty(t, transport.requests)
	})
}

func TestRunner_MissingParameter(t *testing.T) {
	transport := &scriptedTransport{}
	runner := newTestRunner(t, transport)

	items := MapItems{Items: []map[string]any{{"origin": "FRPLY"}}}
	_, err := runner.Run(context.Background(), items, OperationSearchFreeplaces, RunOptions{})
	assert.ErrorIs(t, err, ErrMissingParameter)
	assert.Empty(t, transport.requests)
}

func TestRunner_FanOutArrays(t *testing.T) {
	newTransport := func() *scriptedTransport {
		return &scriptedTransport{responses: []scriptedResponse{
			{payload: []any{"Paris Est", "Paris Nord"}},
			{payload: []any{}},
			{payload: map[string]any{"single": true}},
		}}
	}

	t.Run("one output per element keeps the index", func(t *testing.T) {
		runner := newTestRunner(t, newTransport())

		result, err := runner.Run(context.Background(), stationItems("Paris", "Nowhere", "Lyon"), OperationSearchStation, RunOptions{FanOutArrays: true})
		require.NoError(t, err)

		assert.Equal(t, []OutputItem{
			{Index: 0, JSON: "Paris Est"},
			{Index: 0, JSON: "Paris Nord"},
			{Index: 2, JSON: map[string]any{"single": true}},
		}, result.Items)
		assert.Equal(t, 3, result.Emitted)
	})

	t.Run("disabled keeps arrays whole", func(t *testing.T) {
		runner := newTestRunner(t, newTransport())

		result, err := runner.Run(context.Background(), stationItems("Paris", "Nowhere", "Lyon"), OperationSearchStation, RunOptions{})
		require.NoError(t, err)

		require.Len(t, result.Items, 3)
		assert.Equal(t, []any{"Paris Est", "Paris Nord"}, result.Items[0].JSON)
		assert.Equal(t, []any{}, result.Items[1].JSON)
	})
}

func TestRunner_EmptyBatch(t *testing.T) {
	runner := newTestRunner(t, &scriptedTransport{})

	result, err := runner.Run(context.Background(), MapItems{}, OperationSearchStation, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.NotNil(t, result.Items)
}
