// Package app builds the dependency graph shared by cmd/api and
// cmd/cron-worker.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/analytics"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/chat"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/cron"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/ingest"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/nightlysync"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/reports"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/tokens"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/users"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/email"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/llm"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/metrics"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/migrate"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/redis"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/security"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/square"
)

// App holds the long-lived clients and services of one process.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Gatherer prometheus.Gatherer

	Users     *users.Repository
	Connector *tokens.Connector
	Analytics *analytics.Service
	Reports   *reports.Service
	Chat      *chat.Service
	Cron      *cron.Service
}

// New connects to Postgres and Redis, builds the external clients and wires
// every service. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*App, error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	a := &App{Config: cfg, Logger: logg, DB: dbClient, Gatherer: prometheus.DefaultGatherer}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("run dev migrations: %w", err)
	}

	a.Redis, err = redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}

	if err := a.wire(ctx, prometheus.DefaultRegisterer); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, reg prometheus.Registerer) error {
	cfg, logg, conn := a.Config, a.Logger, a.DB.DB()

	box, err := security.NewBox(cfg.Square.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("square token box: %w", err)
	}
	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	if err != nil {
		return fmt.Errorf("square client: %w", err)
	}
	gemini, err := llm.NewGemini(ctx, cfg.Gemini, logg)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	mailer, err := email.NewSendGrid(cfg.Sendgrid, logg)
	if err != nil {
		return fmt.Errorf("sendgrid client: %w", err)
	}

	pipeline := metrics.NewPipelineMetrics(reg)
	cronMetrics := metrics.NewCronJobMetrics(reg)

	a.Users = users.NewRepository(conn)
	connections := tokens.NewRepository(conn, box)

	a.Connector, err = tokens.NewConnector(tokens.ConnectorParams{
		Square:      squareClient,
		Connections: connections,
		Users:       a.Users,
		Tx:          a.DB,
		JWT:         cfg.JWT,
		AppURL:      cfg.App.URL,
		Logger:      logg,
	})
	if err != nil {
		return fmt.Errorf("square connector: %w", err)
	}
	tokenManager, err := tokens.NewManager(tokens.ManagerParams{
		Connections: connections,
		Refresher:   squareClient,
		Logger:      logg,
	})
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	ingester, err := ingest.NewService(ingest.ServiceParams{
		Store:   ingest.NewStore(conn),
		Logger:  logg,
		Metrics: pipeline,
	})
	if err != nil {
		return fmt.Errorf("ingest service: %w", err)
	}
	syncer, err := nightlysync.NewService(nightlysync.ServiceParams{
		Connections: connections,
		Users:       a.Users,
		Tokens:      tokenManager,
		Fetcher:     squareClient,
		Ingester:    ingester,
		Logger:      logg,
		Metrics:     pipeline,
		Concurrency: cfg.Cron.SyncConcurrency,
	})
	if err != nil {
		return fmt.Errorf("nightly sync service: %w", err)
	}

	a.Analytics, err = analytics.NewService(analytics.ServiceParams{
		Repo:   analytics.NewRepository(conn),
		Logger: logg,
	})
	if err != nil {
		return fmt.Errorf("analytics service: %w", err)
	}
	a.Reports, err = reports.NewService(reports.ServiceParams{
		Metrics:     a.Analytics,
		Reports:     reports.NewRepository(conn),
		Users:       a.Users,
		Generator:   gemini,
		Mailer:      mailer,
		AppURL:      cfg.App.URL,
		Logger:      logg,
		Pipeline:    pipeline,
		Concurrency: cfg.Cron.SyncConcurrency,
	})
	if err != nil {
		return fmt.Errorf("reports service: %w", err)
	}
	a.Chat, err = chat.NewService(chat.ServiceParams{
		Users:     a.Users,
		Messages:  chat.NewRepository(conn),
		Context:   a.Analytics,
		Generator: gemini,
		Logger:    logg,
		Limiter:   a.Redis,
	})
	if err != nil {
		return fmt.Errorf("chat service: %w", err)
	}

	locker, err := cron.NewRedisLocker(a.Redis, cfg.App.Env, cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron locker: %w", err)
	}
	a.Cron, err = cron.NewService(cron.ServiceParams{
		Logger: logg,
		Registry: cron.NewRegistry(
			cron.NewNightlySyncJob(syncer),
			cron.NewWeeklyReportsJob(a.Reports),
		),
		Locker:  locker,
		Metrics: cronMetrics,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}
	return nil
}

// Close releases the Redis and database connections.
func (a *App) Close(ctx context.Context) {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error(ctx, "error closing redis", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error(ctx, "error closing database", err)
		}
	}
}
