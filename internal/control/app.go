// Package control wires the application together and manages its
// lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/recap/internal/bot"
	"github.com/vietddude/recap/internal/content"
	"github.com/vietddude/recap/internal/core/config"
	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/core/worker"
	"github.com/vietddude/recap/internal/health"
	"github.com/vietddude/recap/internal/infra/backend/gemini"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/infra/fetch/document"
	"github.com/vietddude/recap/internal/infra/fetch/plain"
	"github.com/vietddude/recap/internal/infra/fetch/render"
	"github.com/vietddude/recap/internal/infra/fetch/scrape"
	"github.com/vietddude/recap/internal/infra/fetch/video"
	redisclient "github.com/vietddude/recap/internal/infra/redis"
	"github.com/vietddude/recap/internal/infra/storage"
	"github.com/vietddude/recap/internal/infra/storage/memory"
	"github.com/vietddude/recap/internal/infra/storage/postgres"
	"github.com/vietddude/recap/internal/retrieval"
	"github.com/vietddude/recap/internal/retrieval/routing"
	"github.com/vietddude/recap/internal/session"
)

// App is the main application struct that manages the service
// lifecycle.
type App struct {
	cfg *config.AppConfig

	store       *memory.MemoryStorage
	db          *postgres.DB
	redisClient *redisclient.Client

	retriever *retrieval.Service
	renderer  *render.Strategy
	gemini    *gemini.Client
	sessions  *session.Manager
	pruner    *worker.Pruner

	webhook      *bot.Server
	healthServer *health.Server

	log *slog.Logger
}

// NewApp creates the application with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {

	// 1. Initialize Storage
	var bookmarkRepo storage.BookmarkRepository
	var historyRepo storage.SearchHistoryRepository
	var store *memory.MemoryStorage
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		bookmarkRepo = postgres.NewBookmarkRepo(db)
		historyRepo = postgres.NewSearchHistoryRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store = memory.NewMemoryStorage()
		bookmarkRepo = memory.NewBookmarkRepo(store)
		historyRepo = memory.NewSearchHistoryRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Initialize Redis (empty URL runs in degraded in-process mode)
	redisClient, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	// 3. Initialize Retrieval Pipeline
	converter := content.NewConverter(0)
	renderer := render.New(render.Config{
		RemoteURL: cfg.Retrieval.Render.RemoteURL,
		Timeout:   cfg.Retrieval.Render.Timeout,
	}, converter)
	registry := fetch.NewRegistry(
		plain.New(plain.Config{
			UserAgent: cfg.Retrieval.Plain.UserAgent,
			Timeout:   cfg.Retrieval.Plain.Timeout,
		}, converter),
		scrape.New(scrape.Config{
			BaseURL: cfg.Retrieval.Scrape.BaseURL,
			APIKey:  cfg.Retrieval.Scrape.APIKey,
			Timeout: cfg.Retrieval.Scrape.Timeout,
		}, converter),
		renderer,
		document.New(document.Config{
			UserAgent: cfg.Retrieval.Plain.UserAgent,
		}, converter),
		video.New(video.Config{
			Languages: cfg.Retrieval.Video.Languages,
			Timeout:   cfg.Retrieval.Video.Timeout,
		}, converter),
	)

	breakers := routing.NewBreakerRegistry(
		breakerConfig(cfg.Retrieval.FetchBreaker, routing.DefaultFetchBreakerConfig),
		breakerConfig(cfg.Retrieval.AIBreaker, routing.DefaultAIBreakerConfig),
	)
	retryCfg := retryConfig(cfg.Retrieval.Retry)
	chains := chainConfig(cfg.Retrieval.Chains)

	retriever, err := retrieval.NewService(
		retrieval.NewClassifier(retrieval.DefaultRules()),
		chains,
		registry,
		breakers,
		retryCfg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build retrieval service: %w", err)
	}

	// 4. Initialize AI Backend
	geminiClient, err := gemini.New(ctx, gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		ChatModel:       cfg.Gemini.ChatModel,
		SummaryModel:    cfg.Gemini.SummaryModel,
		VisionModel:     cfg.Gemini.VisionModel,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
	}, breakers, retryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini: %w", err)
	}

	// 5. Initialize Session Manager
	sessions := session.NewManager(session.Config{
		TTL:             cfg.Session.TTL,
		MaxHistory:      cfg.Session.MaxHistory,
		CleanupInterval: cfg.Session.CleanupInterval,
	}, geminiClient)

	// 6. Initialize Webhook Server
	var replier bot.Replier
	var contentFetcher bot.ContentFetcher
	if cfg.Line.ChannelToken != "" {
		replier = bot.NewLineReplier(cfg.Line.ChannelToken)
		contentFetcher = bot.NewLineContentClient(cfg.Line.ChannelToken)
	} else {
		replier = bot.ConsoleReplier{}
		slog.Warn("No channel token configured, replies go to the log")
	}

	handler := bot.NewHandler(bot.HandlerConfig{}, bot.Deps{
		Retriever:  retriever,
		Summarizer: geminiClient,
		Vision:     geminiClient,
		Drafter:    geminiClient,
		Sessions:   sessions,
		Bookmarks:  bookmarkRepo,
		History:    historyRepo,
		Cache:      redisClient,
		Replier:    replier,
		Content:    contentFetcher,
	})
	webhook := bot.NewServer(cfg.Line.ChannelSecret, cfg.Line.Port, handler)

	// 7. Initialize Health Monitor
	var dbPinger, redisPinger health.Pinger
	if db != nil {
		dbPinger = db
	}
	if redisClient.Enabled() {
		redisPinger = redisClient
	}
	healthMon := health.NewMonitor(dbPinger, redisPinger, breakers, sessions, chains)
	healthServer := health.NewServer(healthMon, cfg.Health.Port)

	// 8. Initialize Retention Pruner
	var pruner *worker.Pruner
	if cfg.Database.Retention > 0 {
		pruner = worker.NewPruner(cfg.Database.Retention, bookmarkRepo, historyRepo)
	}

	return &App{
		cfg:          cfg,
		store:        store,
		db:           db,
		redisClient:  redisClient,
		retriever:    retriever,
		renderer:     renderer,
		gemini:       geminiClient,
		sessions:     sessions,
		pruner:       pruner,
		webhook:      webhook,
		healthServer: healthServer,
		log:          slog.Default(),
	}, nil
}

// Start starts the application and all its background workers.
func (a *App) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	// Start Webhook Server
	go func() {
		if err := a.webhook.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Webhook server failed", "error", err)
		}
	}()

	// Start Session Sweeper
	go a.sessions.Start(ctx)

	// Start DB Metrics Collector
	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	// Start Retention Pruner
	if a.pruner != nil {
		go a.pruner.Start(ctx)
	}

	a.log.Info("recap started",
		"webhook_port", a.cfg.Line.Port,
		"health_port", a.cfg.Health.Port,
	)
	return nil
}

// Stop stops the application, draining in-flight webhook events first.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping recap...")

	if err := a.webhook.Stop(ctx); err != nil {
		a.log.Warn("Webhook shutdown incomplete", "error", err)
	}

	if err := a.gemini.Close(); err != nil {
		a.log.Warn("Failed to close Gemini client", "error", err)
	}
	if err := a.renderer.Close(); err != nil {
		a.log.Warn("Failed to close browser", "error", err)
	}
	if err := a.redisClient.Close(); err != nil {
		a.log.Warn("Failed to close Redis", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}

func retryConfig(rc config.RetryConfig) routing.RetryConfig {
	out := routing.DefaultRetryConfig
	if rc.MaxAttempts > 0 {
		out.MaxAttempts = rc.MaxAttempts
	}
	if rc.InitialDelay > 0 {
		out.InitialDelay = rc.InitialDelay
	}
	if rc.MaxDelay > 0 {
		out.MaxDelay = rc.MaxDelay
	}
	if rc.BackoffMultiple > 0 {
		out.BackoffMultiple = rc.BackoffMultiple
	}
	if rc.JitterFraction > 0 {
		out.JitterFraction = rc.JitterFraction
	}
	return out
}

func breakerConfig(bc config.BreakerConfig, def routing.BreakerConfig) routing.BreakerConfig {
	if bc.FailureThreshold > 0 {
		def.FailureThreshold = bc.FailureThreshold
	}
	if bc.Cooldown > 0 {
		def.Cooldown = bc.Cooldown
	}
	return def
}

// chainConfig overlays configured chains on the built-in defaults, so
// partial configuration never leaves a category without a chain.
func chainConfig(raw map[string][]string) map[domain.SourceCategory][]string {
	chains := retrieval.DefaultChains()
	for category, names := range raw {
		chains[domain.SourceCategory(category)] = names
	}
	return chains
}
