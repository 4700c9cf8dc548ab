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
	"meeting-scribe/internal/domain/ports/adapter"
	pg "meeting-scribe/internal/infra/db/postgres"
	"meeting-scribe/internal/infra/logging"
	"meeting-scribe/internal/infra/metrics"
	"meeting-scribe/internal/infra/mq"
	"meeting-scribe/internal/infra/notify"
	red "meeting-scribe/internal/infra/redis"
	"meeting-scribe/internal/infra/security"
	"meeting-scribe/internal/infra/storage"
	"meeting-scribe/internal/infra/web"
	"meeting-scribe/internal/usecase"
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

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient, 20, time.Minute)
	historyCache := red.NewHistoryCache(redisClient, cfg.Redis.TTL)

	// ---- Encryption (chat turns at rest) ----
	var encSvc *security.EncryptionService
	if cfg.Security.EncryptionKey != "" {
		encSvc, err = security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			log.Fatalf("encryption: %v", err)
		}
	} else {
		logger.Warn().Msg("security.encryption_key not set; chat turns stored in plaintext")
	}

	// ---- Object storage ----
	store, err := storage.NewMinioStorage(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("object storage: %v", err)
	}

	// ---- Job queue ----
	publisher, err := mq.NewPublisher(&cfg.Queue, logger)
	if err != nil {
		log.Fatalf("queue: %v", err)
	}
	defer publisher.Close()

	// ---- Repositories ----
	meetingRepo := pg.NewMeetingRepo(pool)
	transcriptRepo := pg.NewTranscriptRepo(pool)
	embeddingRepo := pg.NewEmbeddingRepo(pool)
	convoRepo := pg.NewConversationRepo(pool, historyCache, encSvc)
	profileRepo := pg.NewProfileRepo(pool)

	// ---- AI provider ----
	var (
		embedder  adapter.Embedder
		generator adapter.Generator
		keys      []string
	)
	switch cfg.AI.Provider {
	case "openai":
		oa := ai.NewOpenAIAdapter(cfg.AI.OpenAIModel, cfg.AI.OpenAIEmbeddingModel)
		embedder, generator = oa, oa
		keys = cfg.AI.OpenAIKeys
		logger.Info().Str("model", cfg.AI.OpenAIModel).Msg("AI provider: OpenAI")
	default:
		ga := ai.NewGeminiAdapter(cfg.AI.GeminiModel, cfg.AI.EmbeddingModel,
			cfg.AI.StagePollAttempts, cfg.AI.StagePollInterval, logger)
		embedder, generator = ga, ga
		keys = cfg.AI.GeminiKeys
		logger.Info().Str("model", cfg.AI.GeminiModel).Msg("AI provider: Gemini")
	}
	keyring, err := ai.NewKeyring(keys, logger)
	if err != nil {
		log.Fatalf("keyring: %v", err)
	}

	// ---- Use cases ----
	authUC := usecase.NewAuthUseCase(profileRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, logger)
	meetingUC := usecase.NewMeetingUseCase(meetingRepo, transcriptRepo, embeddingRepo, convoRepo,
		store, store.KeyFromURL, publisher, logger)
	chatUC := usecase.NewChatUseCase(meetingRepo, transcriptRepo, embeddingRepo, convoRepo,
		embedder, generator, keyring, usecase.ChatOptions{
			ChunkSize:         cfg.AI.ChunkSize,
			ChunkOverlap:      *cfg.AI.ChunkOverlap,
			MatchThreshold:    cfg.AI.MatchThreshold,
			TopK:              cfg.AI.TopK,
			HistoryLimit:      cfg.AI.HistoryLimit,
			PromptTokenBudget: cfg.AI.PromptTokenBudget,
		}, logger)

	// ---- HTTP ----
	hub := notify.NewHub()
	srv := web.NewServer(authUC, meetingUC, chatUC, hub, rateLimiter,
		cfg.Auth.InternalAPIKey, 500<<20, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server error")
			cancel()
		}
	}()

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
		logger.Info().Int("port", cfg.Admin.Port).Msg("admin listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

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
	_ = server.Shutdown(shutdownCtx)
	_ = adminServer.Shutdown(shutdownCtx)
	cancel()
}
