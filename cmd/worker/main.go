package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meeting-scribe/internal/ai"
	"meeting-scribe/internal/config"
	pg "meeting-scribe/internal/infra/db/postgres"
	"meeting-scribe/internal/infra/logging"
	"meeting-scribe/internal/infra/metrics"
	"meeting-scribe/internal/infra/mq"
	"meeting-scribe/internal/infra/notify"
	"meeting-scribe/internal/infra/sched"
	"meeting-scribe/internal/infra/storage"
	"meeting-scribe/internal/infra/worker"
	"meeting-scribe/internal/usecase"
)

const (
	reaperInterval = 5 * time.Minute
	reaperCutoff   = 30 * time.Minute
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// Extraction needs the file staging API, which only Gemini offers.
	if len(cfg.AI.GeminiKeys) == 0 {
		log.Fatalf("worker requires ai.gemini_keys for recording extraction")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Object storage ----
	store, err := storage.NewMinioStorage(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("object storage: %v", err)
	}

	// ---- AI ----
	analyzer := ai.NewGeminiAdapter(cfg.AI.GeminiModel, cfg.AI.EmbeddingModel,
		cfg.AI.StagePollAttempts, cfg.AI.StagePollInterval, logger)
	keyring, err := ai.NewKeyring(cfg.AI.GeminiKeys, logger)
	if err != nil {
		log.Fatalf("keyring: %v", err)
	}

	// ---- Processing pipeline ----
	meetingRepo := pg.NewMeetingRepo(pool)
	transcriptRepo := pg.NewTranscriptRepo(pool)
	txManager := pg.NewTxManager(pool)

	transcriptionUC := usecase.NewTranscriptionUseCase(meetingRepo, transcriptRepo, txManager,
		analyzer, keyring, cfg.AI.OverloadMaxRetries, cfg.AI.OverloadCooldown, logger)

	notifier := notify.NewWebhook(cfg.Notify.APIBaseURL, cfg.Auth.InternalAPIKey, logger)
	runner := worker.NewRunner(store, store.KeyFromURL, transcriptionUC, meetingRepo, notifier,
		cfg.Queue.MaxRetries, cfg.Queue.RetryDelay, logger)

	pool2 := worker.NewPool(cfg.Queue.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	consumer, err := mq.NewConsumer(&cfg.Queue, logger)
	if err != nil {
		log.Fatalf("queue: %v", err)
	}
	defer consumer.Close()

	go func() {
		submit := func(task func()) {
			_ = pool2.SubmitWait(ctx, func(context.Context) error {
				task()
				return nil
			})
		}
		if err := consumer.Run(ctx, submit, runner.Handle); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("consumer stopped")
			cancel()
		}
	}()

	// ---- Stuck-job reaper ----
	reaper := sched.NewReaper(reaperInterval, reaperCutoff, meetingRepo, logger)
	go func() { _ = reaper.Run(ctx) }()

	// ---- Admin (metrics) ----
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	adminServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           adminMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Admin.Port).Msg("worker admin listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	logger.Info().Int("workers", cfg.Queue.Workers).Msg("worker started")

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = adminServer.Shutdown(shutdownCtx)
	cancel()
}
