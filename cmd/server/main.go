package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filmsage-backend/internal/chat"
	"filmsage-backend/internal/config"
	"filmsage-backend/internal/database"
	"filmsage-backend/internal/format"
	"filmsage-backend/internal/handlers"
	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/middleware"
	"filmsage-backend/internal/repository"
	"filmsage-backend/internal/router"
	"filmsage-backend/internal/services"
	"filmsage-backend/internal/websocket"
	"filmsage-backend/internal/worker"
	"filmsage-backend/migrations"
)

type statusChecker interface {
	services.ChatClient
	CheckStatus(ctx context.Context) (services.ModelStatus, error)
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.Info().Str("env", cfg.Env).Msg("🚀 Starting FilmSage Backend...")
	logging.Info().Msg("✓ Environment variables loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("✗ PostgreSQL connection failed")
	}
	defer pool.Close()
	logging.Info().Msg("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("✗ Redis connection failed")
	}
	defer redisClients.Close()
	logging.Info().Msg("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, migrations.FS); err != nil {
		logging.Fatal().Err(err).Msg("✗ Database migration failed")
	}
	logging.Info().Msg("✓ Database migrations applied")

	// ──── Step 5: Initialize Language Model ────
	llm, err := newLanguageModel(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("✗ Language model initialization failed")
	}
	defer closeModel(llm)
	probeModel(ctx, llm)
	guarded := services.NewGuardedClient(cfg.LLMProvider, llm, services.DefaultBreakerSettings())

	// ──── Step 6: Initialize Catalog and Chat Pipeline ────
	tmdb := services.NewTMDBClient(services.TMDBConfig{
		BaseURL:  cfg.TMDBBaseURL,
		APIKey:   cfg.TMDBAPIKey,
		Region:   cfg.TMDBRegion,
		Timeout:  cfg.TMDBTimeout,
		CacheTTL: cfg.CatalogCacheTTL,
		Breaker:  services.DefaultBreakerSettings(),
	})
	trailers := services.NewTrailerService(tmdb, cfg.VerifyTrailers)
	logging.Info().Str("region", cfg.TMDBRegion).Bool("verify_trailers", cfg.VerifyTrailers).Msg("✓ Movie catalog client initialized")

	tables, err := formatterTables(cfg.CorrectionsFile)
	if err != nil {
		logging.Fatal().Err(err).Str("file", cfg.CorrectionsFile).Msg("✗ Correction table failed to load")
	}

	orchestrator := chat.NewOrchestrator(
		chat.NewClassifier(chat.DefaultRules()),
		tmdb,
		guarded,
		format.New(tables),
		chat.Options{
			Params:           generationParams(cfg),
			Model:            modelName(cfg),
			TrendingInPrompt: cfg.TrendingInPrompt,
		},
	)
	logging.Info().Msg("✓ Chat pipeline ready")

	// ──── Initialize Repositories, Queue and Handlers ────
	conversationRepo := repository.NewConversationRepo(pool)
	queue := worker.NewRedisQueue(redisClients)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)

	chatHandler := handlers.NewChatHandler(orchestrator, conversationRepo, queue, cfg.ChatHistoryTurns)
	conversationHandler := handlers.NewConversationHandler(conversationRepo)
	movieHandler := handlers.NewMovieHandler(tmdb, trailers)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": pool,
		"redis": handlers.PingFunc(func(ctx context.Context) error {
			return redisClients.Queue.Ping(ctx).Err()
		}),
	})

	// ──── Step 7: Start Worker Pool ────
	workerPool := worker.NewPool(queue, conversationRepo, cfg.WorkerCount)
	workerPool.Start()
	logging.Info().Int("workers", cfg.WorkerCount).Msg("✓ Worker pool started")

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	go wsHub.Run(ctx)
	logging.Info().Msg("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		chatHandler,
		conversationHandler,
		movieHandler,
		healthHandler,
		wsHub,
		router.Limits{API: cfg.APIRateLimitPerMin, Chat: cfg.ChatRateLimitPerMin},
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// model calls may take up to the configured read timeout
		WriteTimeout: cfg.LLMConnectTimeout + cfg.LLMReadTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logging.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("HTTP server shutdown failed")
		}
		workerPool.Stop()
	}()

	logging.Info().Msgf("✓ FilmSage Backend ready on http://localhost:%s", cfg.Port)
	logging.Info().Msgf("  API: http://localhost:%s/api/v1", cfg.Port)
	logging.Info().Msgf("  WS:  ws://localhost:%s/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal().Err(err).Msg("Server error")
	}
}

func newLanguageModel(ctx context.Context, cfg *config.Config) (statusChecker, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "gemini":
		client, err := services.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrency, cfg.LLMConnectTimeout+cfg.LLMReadTimeout)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("model", cfg.GeminiModel).Msg("✓ Gemini client initialized")
		return client, nil
	case "ollama", "":
		logging.Info().Str("url", cfg.OllamaAPIURL).Str("model", cfg.OllamaModel).Msg("✓ Ollama client initialized")
		return services.NewOllamaClient(cfg.OllamaAPIURL, cfg.OllamaModel, cfg.LLMConnectTimeout, cfg.LLMReadTimeout), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// closeModel releases clients that hold a connection, such as Gemini's.
func closeModel(llm any) {
	if c, ok := llm.(interface{ Close() }); ok {
		c.Close()
		logging.Info().Msg("Language model client closed")
	}
}

// probeModel logs whether the configured model is reachable. Startup
// continues either way; chat requests answer with an apology until it is.
func probeModel(ctx context.Context, llm statusChecker) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	status, err := llm.CheckStatus(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("✗ Language model backend not reachable")
		return
	}
	if !status.Available {
		logging.Warn().Str("model", status.Model).Strs("available", status.Models).Msg("✗ Configured model not found")
		return
	}
	logging.Info().Str("provider", status.Provider).Str("model", status.Model).Msg("✓ Language model available")
}

func formatterTables(correctionsFile string) (*format.Tables, error) {
	tables := format.DefaultTables()
	if correctionsFile == "" {
		return tables, nil
	}
	corr, err := format.LoadCorrections(correctionsFile)
	if err != nil {
		return nil, err
	}
	return format.NewTables(tables.Emoji, tables.Directors, tables.QuickReplySignatures, corr), nil
}

func generationParams(cfg *config.Config) services.GenerationParams {
	p := services.GenerationParams{
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}
	if cfg.LLMStopToken != "" {
		p.Stop = []string{cfg.LLMStopToken}
	}
	return p
}

func modelName(cfg *config.Config) string {
	if strings.EqualFold(cfg.LLMProvider, "gemini") {
		return cfg.GeminiModel
	}
	return cfg.OllamaModel
}
