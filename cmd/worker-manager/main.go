// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"freeplaces-workers/internal/common/camunda"
	"freeplaces-workers/internal/common/config"
	"freeplaces-workers/internal/common/database"
	httpclient "freeplaces-workers/internal/common/http"
	"freeplaces-workers/internal/common/logger"
	"freeplaces-workers/internal/common/observability"
	"freeplaces-workers/internal/dispatch"

	fd "freeplaces-workers/internal/workers/tgvmax/freeplaces-dispatch"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.UsePlaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, zapLog)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- Run journal (optional) ---
	var journal fd.Journal
	if cfg.Journal.Enabled {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()

		journal = rc.Journal(cfg.Journal)
		zapLog.Info("Run journal enabled", zap.String("prefix", cfg.Journal.KeyPrefix))
	}

	// --- Dispatch core ---
	builder := dispatch.NewBuilder(dispatch.Template{
		BaseURL:        cfg.TGVMax.BaseURL,
		UserAgent:      cfg.TGVMax.UserAgent,
		AcceptLanguage: cfg.TGVMax.AcceptLanguage,
		Origin:         cfg.TGVMax.Origin,
	})
	transport := httpclient.NewClient(config.GetDuration(cfg.TGVMax.Timeout))
	runner := dispatch.NewRunner(builder, dispatch.NewExecutor(transport, log), log)

	// --- Workers ---
	var workers []worker.JobWorker

	wcfg := config.GetWorkerConfig(cfg, fd.TaskType)
	handlerCfg := &fd.Config{
		Timeout:          config.GetDuration(wcfg.Timeout),
		DefaultOperation: dispatch.Operation(cfg.TGVMax.DefaultOperation),
		ContinueOnFail:   cfg.TGVMax.ContinueOnFail,
		FanOutArrays:     cfg.TGVMax.FanOutArrays,
	}
	if err := handlerCfg.Validate(); err != nil {
		zapLog.Fatal("invalid freeplaces-dispatch config", zap.Error(err))
	}
	if _, err := builder.Spec(handlerCfg.DefaultOperation); err != nil {
		zapLog.Fatal("invalid tgvmax.default_operation", zap.Error(err))
	}
	handler := fd.NewHandler(handlerCfg, runner, journal, obs, log)
	if w := zeebe.StartWorker(fd.TaskType, wcfg, handler.Handle, zapLog); w != nil {
		workers = append(workers, w)
	}

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			status, code = "zeebe unavailable", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	camunda.StopWorkers(workers, zapLog)
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
