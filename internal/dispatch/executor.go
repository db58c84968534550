package dispatch

import (
	"context"

	"freeplaces-workers/internal/common/logger"
	"freeplaces-workers/internal/common/metrics"
)

// Executor runs descriptors through a Transport. The planner reports "no
// results" as a 404, which is turned into EmptyPayload here and nowhere else.
type Executor struct {
	transport Transport
	logger    logger.Logger
}

func NewExecutor(transport Transport, log logger.Logger) *Executor {
	return &Executor{
		transport: transport,
		logger:    log,
	}
}

// Execute returns the decoded payload, EmptyPayload on 404, or the
// transport's error unchanged.
func (e *Executor) Execute(ctx context.Context, req RequestDescriptor) (any, error) {
	payload, _, err := e.execute(ctx, req)
	return payload, err
}

func (e *Executor) execute(ctx context.Context, req RequestDescriptor) (any, bool, error) {
	payload, err := e.transport.Do(ctx, req)
	if err == nil {
		return payload, false, nil
	}

	if IsNotFound(err) {
		e.logger.Debug("remote returned 404, substituting empty payload", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})
		metrics.PayloadsNormalized.WithLabelValues(req.Path).Inc()
		return EmptyPayload(), true, nil
	}

	return nil, false, err
}
