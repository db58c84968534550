// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"freeplaces-workers/internal/common/config"
)

// JobHandler is the callback signature the Zeebe job worker expects.
type JobHandler func(client worker.JobClient, job entities.Job)

// StartWorker opens a job worker for taskType. It returns nil when the worker
// is disabled in configuration.
func (c *Client) StartWorker(taskType string, wcfg config.WorkerConfig, handler JobHandler, log *zap.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	jobWorker := c.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return jobWorker
}

// StopWorkers closes the given job workers and waits for in-flight jobs.
func StopWorkers(workers []worker.JobWorker, log *zap.Logger) {
	for _, w := range workers {
		if w == nil {
			continue
		}
		w.Close()
		w.AwaitClose()
	}
	log.Info("workers stopped", zap.Int("count", len(workers)))
}
