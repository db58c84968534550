// cmd/tools/batch-runner/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"freeplaces-workers/internal/common/config"
	"freeplaces-workers/internal/common/database"
	httpclient "freeplaces-workers/internal/common/http"
	"freeplaces-workers/internal/common/logger"
	"freeplaces-workers/internal/dispatch"
	fd "freeplaces-workers/internal/workers/tgvmax/freeplaces-dispatch"
)

func main() {
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	opsCmd := flag.NewFlagSet("operations", flag.ExitOnError)
	recentCmd := flag.NewFlagSet("recent", flag.ExitOnError)

	// Run command flags
	file := runCmd.String("file", "", "Batch file: the same JSON envelope the worker receives")
	baseURL := runCmd.String("base-url", dispatch.DefaultBaseURL, "Planner base URL")
	timeout := runCmd.Duration("timeout", 10*time.Second, "Per-request timeout")
	operation := runCmd.String("operation", "", "Override the envelope operation")
	continueOnFail := runCmd.Bool("continue-on-fail", false, "Capture failing items instead of aborting")
	fanOut := runCmd.Bool("fan-out", false, "Emit one output item per array element")
	logLevel := runCmd.String("log-level", "warn", "Log level")

	// Recent command flags
	configPath := recentCmd.String("config", "configs/config.yaml", "Path to config file")
	limit := recentCmd.Int("n", 20, "Number of runs to list")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd.Parse(os.Args[2:])
		if *file == "" {
			fmt.Println("Error: -file is required for run.")
			runCmd.Usage()
			os.Exit(1)
		}
		opts := runOptions{
			file:      *file,
			baseURL:   *baseURL,
			timeout:   *timeout,
			operation: *operation,
			logLevel:  *logLevel,
		}
		runCmd.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "continue-on-fail":
				opts.continueOnFail = continueOnFail
			case "fan-out":
				opts.fanOut = fanOut
			}
		})
		if err := runBatch(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error running batch: %v\n", err)
			os.Exit(1)
		}

	case "operations":
		opsCmd.Parse(os.Args[2:])
		listOperations()

	case "recent":
		recentCmd.Parse(os.Args[2:])
		if err := listRecent(*configPath, *limit); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
			os.Exit(1)
		}

	default:
		help()
		os.Exit(1)
	}
}

type runOptions struct {
	file           string
	baseURL        string
	timeout        time.Duration
	operation      string
	continueOnFail *bool
	fanOut         *bool
	logLevel       string
}

func runBatch(opts runOptions) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}

	var input fd.Input
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}
	if opts.operation != "" {
		input.Operation = opts.operation
	}
	if opts.continueOnFail != nil {
		input.ContinueOnFail = opts.continueOnFail
	}
	if opts.fanOut != nil {
		input.FanOutArrays = opts.fanOut
	}

	zapLog := logger.New(opts.logLevel, "console", "stderr")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	tmpl := dispatch.DefaultTemplate()
	tmpl.BaseURL = opts.baseURL
	tmpl.Origin = opts.baseURL

	runner := dispatch.NewRunner(
		dispatch.NewBuilder(tmpl),
		dispatch.NewExecutor(httpclient.NewClient(opts.timeout), log),
		log,
	)

	cfg := fd.DefaultConfig()
	handler := fd.NewHandler(cfg, runner, nil, nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	output, err := handler.Execute(ctx, 0, &input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func listOperations() {
	b := dispatch.NewBuilder(dispatch.DefaultTemplate())
	for _, op := range b.Operations() {
		spec, _ := b.Spec(op)
		fmt.Printf("%-18s %-5s %s %v\n", op, spec.Method, spec.Path, spec.Parameters)
	}
}

func listRecent(configPath string, n int) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}

	rc, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer rc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		return err
	}

	records, err := rc.Journal(cfg.Journal).Recent(ctx, n)
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Printf("%s  %-16s %-9s items=%d emitted=%d captured=%d normalized=%d %dms\n",
			rec.StartedAt.Format(time.RFC3339), rec.Operation, rec.Status,
			rec.Items, rec.Emitted, rec.Captured, rec.Normalized, rec.DurationMS)
		if rec.Error != "" {
			fmt.Printf("    error: %s\n", rec.Error)
		}
	}
	return nil
}

func help() {
	fmt.Println("Usage: batch-runner <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  run         Run a JSON batch file against the planner and print the results")
	fmt.Println("  operations  List the supported operations")
	fmt.Println("  recent      List recent runs from the Redis journal")
}
