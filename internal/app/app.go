package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	redisPack "github.com/redis/go-redis/v9"
	"github.com/valutatrade/hub/deploy/config"
	"github.com/valutatrade/hub/internal/metrics"
	"github.com/valutatrade/hub/internal/parser/adapter/apiclient/coingecko"
	"github.com/valutatrade/hub/internal/parser/adapter/apiclient/exchangerate"
	redisAdapter "github.com/valutatrade/hub/internal/parser/adapter/redis"
	"github.com/valutatrade/hub/internal/parser/updater"
	"github.com/valutatrade/hub/internal/portfolio"
	"github.com/valutatrade/hub/internal/ports/http/public"
	"github.com/valutatrade/hub/internal/rates"
	"github.com/valutatrade/hub/internal/storage/postgres"
	"github.com/valutatrade/hub/internal/storage/ratestore"
)

type App struct {
	cfg *config.Config
}

func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Start wires every component and blocks until the context ends and the HTTP
// server has shut down. One process runs the API, the refresh ticker and the
// redis refresh listener so that all snapshot writers share one store lock.
func (a *App) Start(ctx context.Context) {
	a.initLogger()
	slog.Info("Logger initialized")

	store := a.initRateStore()
	slog.Info("Rate store initialized")

	pgStorage := a.initDatabase(ctx)
	slog.Info("Postgres storage initialized")

	rdStorage := a.initRedis(ctx)
	slog.Info("Redis client initialized")

	appMetrics := metrics.NewMetrics()

	providers := []updater.Provider{
		coingecko.New(a.cfg),
		exchangerate.New(a.cfg),
	}

	upd := updater.New(store, providers, rdStorage, appMetrics, a.cfg.Providers.RefreshInterval)

	ratesService := rates.NewService(store, a.cfg.Rates.Fallback(), a.cfg.Rates.FreshnessTTL, appMetrics)
	portfolioService := portfolio.NewService(pgStorage, ratesService, a.cfg.Rates.BaseCurrency)

	server := public.NewServer(a.cfg, ratesService, upd, portfolioService, appMetrics)

	slog.Info("Starting HTTP server", "port", a.cfg.HTTPServer.Port)
	done := server.Start(ctx)

	go func() {
		if err := upd.Start(ctx); err != nil {
			slog.Info("Rates refresh loop stopped", "reason", err)
		}
	}()

	go a.listenRefresh(ctx, rdStorage, upd)

	<-done
	_ = rdStorage.Close()
	slog.Info("Server exited")
}

func (a *App) initLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(a.cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func (a *App) initRateStore() *ratestore.Store {
	store, err := ratestore.New(a.cfg.Storage.DataDir, a.cfg.Storage.RatesFile, a.cfg.Storage.HistoryFile)
	if err != nil {
		log.Fatalln("Failed to initialize rate store", "error", err)
	}

	return store
}

func (a *App) initDatabase(ctx context.Context) *postgres.Storage {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		a.cfg.Postgres.Host,
		a.cfg.Postgres.Port,
		a.cfg.Postgres.User,
		a.cfg.Postgres.Password,
		a.cfg.Postgres.DBName,
		a.cfg.Postgres.SSLMode,
	)

	pgStorage, err := postgres.InitStorage(ctx, dsn)
	if err != nil {
		log.Fatalln("Failed to initialize PostgresSQL storage", "error", err)
	}

	return pgStorage
}

func (a *App) initRedis(ctx context.Context) *redisAdapter.Storage {
	options := &redisPack.Options{
		Addr:     a.cfg.Redis.Host,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}

	rdStorage, err := redisAdapter.InitStorage(ctx, options)
	if err != nil {
		log.Fatalln("Failed to initialize Redis storage", "error", err)
	}

	return rdStorage
}

// listenRefresh runs aggregation cycles requested by collaborators over
// redis; the message payload is the source filter.
func (a *App) listenRefresh(ctx context.Context, rd *redisAdapter.Storage, upd *updater.Updater) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Refresh listener stopped", "reason", ctx.Err())
			return
		default:
			filter, err := rd.ListenRefresh(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("Failed to receive refresh request", "error", err)
				continue
			}

			if _, err := upd.RunUpdate(ctx, filter); err != nil {
				slog.Error("Requested rates update failed", "error", err)
			}
		}
	}
}
