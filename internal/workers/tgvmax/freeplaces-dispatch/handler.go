package freeplacesdispatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"freeplaces-workers/internal/common/database"
	"freeplaces-workers/internal/common/errors"
	"freeplaces-workers/internal/common/logger"
	"freeplaces-workers/internal/common/metrics"
	"freeplaces-workers/internal/common/observability"
	"freeplaces-workers/internal/common/validation"
	"freeplaces-workers/internal/dispatch"
)

const (
	TaskType = "tgvmax-freeplaces-dispatch"

	// commandTimeout bounds the complete/throw-error round trip to the gateway.
	commandTimeout = 10 * time.Second
)

// Journal stores one record per processed batch.
type Journal interface {
	Record(ctx context.Context, rec database.RunRecord) error
}

type Handler struct {
	config     *Config
	runner     *dispatch.Runner
	journal    Journal
	obs        *observability.Observability
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

// NewHandler wires a handler. journal and obs may be nil.
func NewHandler(config *Config, runner *dispatch.Runner, journal Journal, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		runner:     runner,
		journal:    journal,
		obs:        obs,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, job.Key, input)
	if err != nil {
		h.fail(ctx, client, job, err, startTime)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "completed")
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, errors.NewInputParsingError(err)
	}

	result, err := validation.ValidateInput(doc, GetInputSchema())
	if err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	if !result.Valid {
		return nil, errors.NewInputValidationError(result.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	return &input, nil
}

// Execute runs one batch. A batch abort is returned as a *errors.StandardError.
func (h *Handler) Execute(ctx context.Context, jobKey int64, input *Input) (output *Output, err error) {
	op := dispatch.Operation(input.Operation)
	if op == "" {
		op = h.config.DefaultOperation
	}

	ctx, span := h.obs.StartSpan(ctx, "freeplaces.batch",
		attribute.String("operation", string(op)),
		attribute.Int64("job_key", jobKey),
		attribute.Int("items", len(input.Items)),
	)
	defer func() { observability.EndSpan(span, err) }()

	opts := dispatch.RunOptions{
		ContinueOnFail: h.config.ContinueOnFail,
		FanOutArrays:   h.config.FanOutArrays,
	}
	if input.ContinueOnFail != nil {
		opts.ContinueOnFail = *input.ContinueOnFail
	}
	if input.FanOutArrays != nil {
		opts.FanOutArrays = *input.FanOutArrays
	}

	runID := uuid.NewString()
	log := h.logger.WithFields(map[string]interface{}{
		"runId":     runID,
		"jobKey":    jobKey,
		"operation": string(op),
	})

	items := dispatch.MapItems{Items: input.Items, Defaults: input.Parameters}
	record := database.RunRecord{
		RunID:     runID,
		JobKey:    jobKey,
		Operation: string(op),
		Items:     items.Len(),
		StartedAt: time.Now().UTC(),
	}

	result, err := h.runner.Run(ctx, items, op, opts)
	record.DurationMS = time.Since(record.StartedAt).Milliseconds()
	if err != nil {
		stdErr := classify(err)
		record.Status = database.RunStatusAborted
		record.Error = err.Error()
		h.recordRun(ctx, log, record)
		h.obs.RecordItems(ctx, string(op), metrics.OutcomeAborted, 1)
		return nil, stdErr
	}

	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int("emitted", result.Emitted),
		attribute.Int("captured", result.Captured),
	)

	record.Status = database.RunStatusCompleted
	record.Emitted = result.Emitted
	record.Captured = result.Captured
	record.Normalized = result.Normalized
	h.recordRun(ctx, log, record)
	h.obs.RecordItems(ctx, string(op), metrics.OutcomeEmitted, result.Emitted)
	h.obs.RecordItems(ctx, string(op), metrics.OutcomeCaptured, result.Captured)

	log.Info("batch completed", map[string]interface{}{
		"items":      items.Len(),
		"emitted":    result.Emitted,
		"captured":   result.Captured,
		"normalized": result.Normalized,
	})

	return &Output{
		RunID:     runID,
		Operation: string(op),
		Results:   result.Items,
		Summary: Summary{
			Items:      items.Len(),
			Emitted:    result.Emitted,
			Captured:   result.Captured,
			Normalized: result.Normalized,
		},
	}, nil
}

func (h *Handler) recordRun(ctx context.Context, log logger.Logger, rec database.RunRecord) {
	if h.journal == nil {
		return
	}
	// the job context may already be done when a batch aborts on timeout
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := h.journal.Record(ctx, rec); err != nil {
		log.WithError(err).Warn("failed to record run", nil)
	}
}

// classify maps a batch abort onto the worker error taxonomy.
func classify(err error) *errors.StandardError {
	var stdErr *errors.StandardError
	switch {
	case stderrors.Is(err, dispatch.ErrUnsupportedOperation):
		stdErr = errors.NewUnsupportedOperationError(err)
	case stderrors.Is(err, dispatch.ErrMissingParameter):
		stdErr = errors.NewMissingParameterError(err)
	case isTimeout(err):
		stdErr = errors.NewRemoteTimeoutError(err)
	default:
		stdErr = errors.NewRemoteFailureError(err)
	}

	var itemErr *dispatch.ItemError
	if stderrors.As(err, &itemErr) {
		stdErr.WithMetadata("itemIndex", itemErr.Index)
	}
	var statusErr *dispatch.StatusError
	if stderrors.As(err, &statusErr) {
		stdErr.WithMetadata("statusCode", statusErr.StatusCode)
	}
	return stdErr
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// commandContext detaches the gateway call from the job context, which is
// already expired when the batch aborted on its deadline.
func commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), commandTimeout)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	sendCtx, cancel := commandContext(ctx)
	defer cancel()

	stdErr := h.errHandler.HandleJobError(sendCtx, client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	sendCtx, cancel := commandContext(ctx)
	defer cancel()

	if _, err := cmd.Send(sendCtx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}
