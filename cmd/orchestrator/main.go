// The OCR workflow orchestrator — the hard-engineering core of the
// document-ingestion platform. This binary wires the driver registry,
// workflow engine, and task shell together and runs them to completion for
// whatever documents the task shell's queues are fed; it has no HTTP
// surface of its own (see Non-goals in SPEC_FULL.md).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kntaj/ocrflow/internal/blobstore"
	"github.com/kntaj/ocrflow/internal/breaker"
	"github.com/kntaj/ocrflow/internal/config"
	"github.com/kntaj/ocrflow/internal/drivers"
	"github.com/kntaj/ocrflow/internal/metrics"
	"github.com/kntaj/ocrflow/internal/retention"
	"github.com/kntaj/ocrflow/internal/runstore"
	"github.com/kntaj/ocrflow/internal/store"
	"github.com/kntaj/ocrflow/internal/tasks"
	"github.com/kntaj/ocrflow/internal/workflow"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("OCR workflow orchestrator starting")

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metaStore, err := store.NewPostgresStore(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to metadata store")
	}
	defer metaStore.Close()
	if err := metaStore.Migrate(ctx, cfg.Database.URL); err != nil {
		log.Fatal().Err(err).Msg("failed to apply metadata store migrations")
	}

	blobs := blobstore.NewLocalFileStore(cfg.BlobStore.BasePath)
	if err := blobs.HealthCheck(ctx); err != nil {
		log.Fatal().Err(err).Msg("blob store not writable")
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}
	collector := metrics.NewCollector(rdb)
	go collector.StartFlushLoop(ctx)
	defer collector.Stop()

	registry := drivers.NewRegistry()
	registry.Register(drivers.NewAzureDriver(os.Getenv("AZURE_DI_ENDPOINT"), os.Getenv("AZURE_DI_API_KEY"), os.Getenv("AZURE_TENANT_ID"), os.Getenv("AZURE_CLIENT_ID"), os.Getenv("AZURE_CLIENT_SECRET")))
	registry.Register(drivers.NewGoogleDriver(os.Getenv("GOOGLE_DOCAI_PROCESSOR_URL"), []byte(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))))
	registry.Register(drivers.NewMistralDriver(os.Getenv("MISTRAL_API_KEY"), os.Getenv("MISTRAL_OCR_URL")))
	registry.Register(drivers.NewTextractDriver(os.Getenv("TEXTRACT_ENDPOINT"), os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"), nil))
	registry.Register(drivers.NewTesseractDriver())
	registry.Register(drivers.NewPaddleDriver())

	breakers := breaker.New(cfg.Breaker.Enabled, cfg.Breaker.FailureThreshold, cfg.Breaker.RecoveryTimeout)
	runs := runstore.New(metaStore, blobs, collector)
	// engine and shell are the composition root for any embedding caller —
	// a queue consumer or CLI frontend submits documents by calling
	// engine.RunWorkflow directly or wrapping it in a shell.Enqueue task.
	// Neither has an ingestion surface here (see Non-goals in SPEC_FULL.md),
	// so this binary only keeps them alive and reports their health.
	engine := workflow.NewEngine(metaStore, runs, registry, breakers)
	shell := tasks.NewShell(ctx, cfg.Tasks.ConcurrencyPerQueue, cfg.Tasks.MaxRetries)

	janitor := retention.NewJanitor(time.Hour, retention.DefaultRawResponseRetention)
	janitor.RegisterArchiver(retention.NewLocalArchiver(cfg.BlobStore.BasePath))
	go janitor.Start(ctx, []string{"default"})

	go reportHealth(ctx, registry, shell)

	log.Info().Msg("orchestrator ready")
	<-ctx.Done()
	for _, dl := range shell.DeadLetters() {
		log.Warn().Str("task_id", dl.TaskID).Str("queue", string(dl.Queue)).Msg("unresolved dead-lettered task at shutdown")
	}
	_ = engine // held alive for the lifetime of the process; dispatched to by an embedding caller
	log.Info().Msg("shutting down gracefully")
}

// reportHealth periodically logs driver health and dead-letter queue depth,
// the orchestrator's only self-observation in the absence of an HTTP
// surface to expose a /healthz endpoint on.
func reportHealth(ctx context.Context, registry *drivers.Registry, shell *tasks.Shell) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for kind, err := range registry.HealthCheckAll(ctx) {
				if err != nil {
					log.Warn().Str("engine", string(kind)).Err(err).Msg("driver health check failed")
				}
			}
			if n := len(shell.DeadLetters()); n > 0 {
				log.Warn().Int("count", n).Msg("dead-lettered tasks pending review")
			}
		}
	}
}
