package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"ecomdw/internal/config"
	"ecomdw/internal/logging"
	"ecomdw/internal/metrics"
	"ecomdw/internal/metrics/datadog"
	"ecomdw/internal/metrics/prompush"
	"ecomdw/internal/pipeline"
	"ecomdw/internal/schemaobj"
	"ecomdw/internal/warehouse"
)

// main loads the configuration, refreshes every destination table, and then
// builds the dependent schema objects. A failing table stage is logged and
// skipped; a schema-object failure is fatal since the reporting layer cannot
// work without the views.
func main() {
	var (
		cfgPath        string
		metricsBackend string
		pushgatewayURL string
		validate       bool
	)

	flag.StringVar(&cfgPath, "config", "config.yaml", "configuration file path")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend (none, prometheus, datadog); overrides config")
	flag.StringVar(&pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL; overrides config")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		fatalf("configuration is invalid: %s", cfgPath)
	}
	if validate {
		fmt.Fprintf(os.Stderr, "configuration is valid: %s\n", cfgPath)
		return
	}

	log, flush, err := logging.New(*verbose, cfg.LogFile)
	if err != nil {
		fatalf("%v", err)
	}
	defer flush()

	setupMetrics(cfg, metricsBackend, pushgatewayURL, log)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}()

	log.Info("warehouse refresh starting",
		zap.String("data_dir", cfg.DataDir),
		zap.String("dsn", logging.SanitizeDSN(cfg.DB.DSN)))

	writer, err := warehouse.NewWriter(cfg.DB.DSN, cfg.BatchSize, log)
	if err != nil {
		log.Error("writer setup failed", zap.Error(err))
		flush()
		os.Exit(1)
	}

	ctx := context.Background()
	start := time.Now()

	report := pipeline.NewRunner(cfg.Metrics.Job, log).Run(ctx, pipeline.Stages(cfg, writer))
	if failed := report.Failed(); len(failed) > 0 {
		log.Warn("some tables were not refreshed", zap.Strings("stages", failed))
	}

	if err := buildSchemaObjects(ctx, cfg, log); err != nil {
		log.Error("schema object build failed", zap.Error(err))
		flush()
		os.Exit(1)
	}

	log.Info("warehouse refresh complete",
		zap.String("run_id", report.RunID),
		zap.Duration("took", time.Since(start).Truncate(time.Millisecond)))
}

// setupMetrics installs the configured metrics backend. Flags override the
// config file; a backend that fails to initialize degrades to the no-op
// default rather than blocking the load.
func setupMetrics(cfg *config.Config, backendFlag, pushgatewayFlag string, log *zap.Logger) {
	backend := backendFlag
	if backend == "" {
		backend = cfg.Metrics.Backend
	}

	switch backend {
	case "prometheus", "pushgateway":
		gwURL := pushgatewayFlag
		if gwURL == "" {
			gwURL = cfg.Metrics.PushgatewayURL
		}
		b, err := prompush.NewBackend(cfg.Metrics.Job, gwURL)
		if err != nil {
			log.Warn("prometheus metrics unavailable", zap.Error(err))
			return
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", zap.String("backend", "prometheus"), zap.String("url", gwURL))

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      cfg.Metrics.StatsdAddr,
			Namespace: cfg.Metrics.Job + ".",
		})
		if err != nil {
			log.Warn("datadog metrics unavailable", zap.Error(err))
			return
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", zap.String("backend", "datadog"), zap.String("addr", cfg.Metrics.StatsdAddr))

	case "", "none":
		// nop backend remains

	default:
		log.Warn("unknown metrics backend, metrics disabled", zap.String("backend", backend))
	}
}

func buildSchemaObjects(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := sql.Open("sqlserver", cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	defer db.Close()

	return schemaobj.NewBuilder(db, cfg.SQLDir, cfg.Metrics.Job, log).Build(ctx)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
