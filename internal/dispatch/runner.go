package dispatch

import (
	"context"
	"fmt"

	"freeplaces-workers/internal/common/logger"
	"freeplaces-workers/internal/common/metrics"
)

// RunOptions are resolved once per batch.
type RunOptions struct {
	// ContinueOnFail captures a failing item as an ErrorRecord instead of
	// aborting the batch.
	ContinueOnFail bool
	// FanOutArrays emits one OutputItem per element of an array payload.
	// Every element keeps the index of the item it came from.
	FanOutArrays bool
}

// Result is the output of one batch.
type Result struct {
	Operation  Operation    `json:"operation"`
	Items      []OutputItem `json:"items"`
	Emitted    int          `json:"emitted"`
	Captured   int          `json:"captured"`
	Normalized int          `json:"normalized"`
}

// ItemError reports the item that aborted a batch.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Runner processes a batch strictly in order, one item at a time.
type Runner struct {
	builder  *Builder
	executor *Executor
	logger   logger.Logger
}

func NewRunner(builder *Builder, executor *Executor, log logger.Logger) *Runner {
	return &Runner{
		builder:  builder,
		executor: executor,
		logger:   log,
	}
}

// Builder exposes the request builder the runner was configured with.
func (r *Runner) Builder() *Builder {
	return r.builder
}

// Run executes op for every item. Without ContinueOnFail the first failure
// aborts the batch: no partial Result is returned and the error is an
// *ItemError wrapping the cause.
func (r *Runner) Run(ctx context.Context, items ItemSource, op Operation, opts RunOptions) (*Result, error) {
	total := items.Len()
	result := &Result{
		Operation: op,
		Items:     make([]OutputItem, 0, total),
	}

	for i := 0; i < total; i++ {
		payload, normalized, err := r.processItem(ctx, items, op, i)
		if err != nil {
			if !opts.ContinueOnFail {
				metrics.ItemsProcessed.WithLabelValues(string(op), metrics.OutcomeAborted).Inc()
				r.logger.Error("item failed, aborting batch", map[string]interface{}{
					"operation": string(op),
					"index":     i,
					"total":     total,
					"error":     err.Error(),
				})
				return nil, &ItemError{Index: i, Err: err}
			}

			metrics.ItemsProcessed.WithLabelValues(string(op), metrics.OutcomeCaptured).Inc()
			r.logger.Warn("item failed, captured as error record", map[string]interface{}{
				"operation": string(op),
				"index":     i,
				"error":     err.Error(),
			})
			result.Items = append(result.Items, OutputItem{
				Index: i,
				JSON:  ErrorRecord{Error: err.Error()},
			})
			result.Captured++
			continue
		}

		if normalized {
			result.Normalized++
		}
		emitted := r.emit(result, i, payload, opts)
		result.Emitted += emitted
		metrics.ItemsProcessed.WithLabelValues(string(op), metrics.OutcomeEmitted).Inc()
	}

	return result, nil
}

func (r *Runner) processItem(ctx context.Context, items ItemSource, op Operation, index int) (any, bool, error) {
	spec, err := r.builder.Spec(op)
	if err != nil {
		return nil, false, err
	}

	params := make(ParameterSet, len(spec.Parameters))
	for _, name := range spec.Parameters {
		value, err := items.Parameter(name, index)
		if err != nil {
			return nil, false, err
		}
		params[name] = value
	}

	req, err := r.builder.Build(op, params)
	if err != nil {
		return nil, false, err
	}

	return r.executor.execute(ctx, req)
}

func (r *Runner) emit(result *Result, index int, payload any, opts RunOptions) int {
	if elems, ok := payload.([]any); ok && opts.FanOutArrays {
		for _, elem := range elems {
			result.Items = append(result.Items, OutputItem{Index: index, JSON: elem})
		}
		return len(elems)
	}
	result.Items = append(result.Items, OutputItem{Index: index, JSON: payload})
	return 1
}
