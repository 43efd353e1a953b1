package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"feedloader/internal/adapter/fetcher"
	"feedloader/internal/adapter/parser"
	"feedloader/internal/config"
	"feedloader/internal/logger"
	"feedloader/internal/metrics"
	"feedloader/internal/migrations"
	server "feedloader/internal/transport/http"
	"feedloader/internal/usecase"
	"feedloader/internal/worker"
	"feedloader/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	metricsNamespace = "feedloader"
	shutdownTimeout  = 10 * time.Second
)

// App координирует HTTP-сервер, воркер синхронизации лент и хранилище.
type App struct {
	config   *config.Config
	logger   *slog.Logger
	server   *http.Server
	worker   *worker.Worker
	loaders  []*usecase.RemoteFeedLoader
	storage  storage.Storage
	stopChan chan os.Signal
	wg       sync.WaitGroup
}

// New создает приложение: логгер, подключение к БД, миграции,
// по одному RemoteFeedLoader на каждую ленту из конфигурации и HTTP API.
func New(cfg *config.Config) (*App, error) {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(appLogger)

	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := migrations.Apply(ctx, appLogger, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	dbStorage := storage.NewPostgresFeedDB(dbPool, cfg.App, appLogger)

	client := fetcher.NewHTTPClient(&http.Client{}, fetcher.Options{
		Timeout:      cfg.App.RequestTimeoutDuration(),
		MaxBodyBytes: cfg.App.MaxBodyBytes,
	}, appLogger)
	feeds, loaders, err := buildFeeds(cfg.App.Feeds, client, appLogger)
	if err != nil {
		dbStorage.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.New(metricsNamespace, registry)

	feedSync := usecase.NewFeedSyncUseCase(dbStorage, syncMetrics, appLogger)
	syncWorker := worker.New(feedSync, feeds, cfg.App.SyncIntervalDuration(), cfg.App.SyncTimeoutDuration(), appLogger)

	itemsGetter := usecase.NewItemsGetterUseCase(dbStorage)
	handler := server.NewHandler(appLogger, itemsGetter, feeds[0].Name)
	router := server.NewServer(appLogger, handler, server.ServerOptions{
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       registry,
	})

	return &App{
		config:   cfg,
		logger:   appLogger,
		server:   &http.Server{Addr: cfg.Server.Address, Handler: router},
		worker:   syncWorker,
		loaders:  loaders,
		storage:  dbStorage,
		stopChan: make(chan os.Signal, 1),
	}, nil
}

func buildFeeds(cfgFeeds []config.FeedURL, client usecase.HTTPClient, log *slog.Logger) ([]usecase.Feed, []*usecase.RemoteFeedLoader, error) {
	if len(cfgFeeds) == 0 {
		return nil, nil, errors.New("no feeds configured")
	}
	feeds := make([]usecase.Feed, 0, len(cfgFeeds))
	loaders := make([]*usecase.RemoteFeedLoader, 0, len(cfgFeeds))
	for _, f := range cfgFeeds {
		u, err := url.Parse(f.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid feed url %q: %w", f.URL, err)
		}
		loader := usecase.NewRemoteFeedLoader(u, client, parser.MapItems, log.With(slog.String("feed", f.Name)))
		loaders = append(loaders, loader)
		feeds = append(feeds, usecase.Feed{Name: f.Name, Loader: loader})
	}
	return feeds, loaders, nil
}

// Run запускает воркер и HTTP-сервер и блокируется до сигнала SIGINT или SIGTERM.
func (a *App) Run() error {
	a.logger.Info("Starting feed loader",
		slog.String("component", "app"),
		slog.Int("feed_count", len(a.worker.Feeds())),
		slog.String("sync_interval", a.worker.Interval().String()),
	)
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	a.worker.Start()
	a.logger.Info("HTTP server ready",
		slog.String("component", "server"),
		slog.String("address", listener.Addr().String()),
	)
	serverErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed", slog.String("component", "server"), slog.Any("error", err))
			serverErr <- err
		}
	}()
	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)
	var runErr error
	select {
	case sig := <-a.stopChan:
		a.logger.Info("Shutdown signal received",
			slog.String("component", "app"),
			slog.String("signal", sig.String()),
		)
	case runErr = <-serverErr:
	}
	if err := a.Shutdown(); err != nil {
		return err
	}
	return runErr
}

// Shutdown закрывает загрузчики, останавливает воркер, HTTP-сервер и хранилище.
// После закрытия загрузчиков незавершенные запросы к лентам не доставляют результат.
func (a *App) Shutdown() error {
	a.logger.Info("Starting graceful shutdown", slog.String("component", "app"))
	for _, loader := range a.loaders {
		loader.Close()
	}
	if a.worker != nil {
		a.worker.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var shutdownErr error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", slog.String("component", "server"), slog.Any("error", err))
		shutdownErr = fmt.Errorf("http server shutdown: %w", err)
	}
	a.wg.Wait()
	if a.storage != nil {
		a.storage.Close()
	}
	a.logger.Info("Application stopped gracefully", slog.String("component", "app"))
	return shutdownErr
}
