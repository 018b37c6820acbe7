package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/cache"
	"github.com/MrSnakeDoc/linkshelf/internal/config"
	"github.com/MrSnakeDoc/linkshelf/internal/controller"
	"github.com/MrSnakeDoc/linkshelf/internal/credential"
	"github.com/MrSnakeDoc/linkshelf/internal/engine"
	"github.com/MrSnakeDoc/linkshelf/internal/gateway"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/metrics"
	"github.com/MrSnakeDoc/linkshelf/internal/redis"
	"github.com/MrSnakeDoc/linkshelf/internal/scheduler"
	"github.com/MrSnakeDoc/linkshelf/internal/scraper"
	"github.com/MrSnakeDoc/linkshelf/internal/sources/homepage"
	"github.com/MrSnakeDoc/linkshelf/internal/storage"
	"github.com/MrSnakeDoc/linkshelf/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/linkshelf/internal/store/redis"
	"github.com/MrSnakeDoc/linkshelf/internal/store/sqlite"
	"github.com/MrSnakeDoc/linkshelf/internal/version"
)

// App holds every long-lived component. Build it once per process.
type App struct {
	cfg    *config.Config
	logger logger.Logger

	Store       storage.Store
	Gateway     *gateway.Client
	Credentials *credential.Store
	Engine      *engine.Engine
	Controller  *controller.Controller
	Metrics     *metrics.Metrics

	reloadTrigger chan struct{}
}

// Build opens storage and wires the engine stack. The caller owns Close.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	kv, err := OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.New(gateway.Options{BaseURL: cfg.APIBaseURL, Timeout: cfg.HTTPTimeout}, log)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	m := metrics.New()
	creds := credential.NewStore(kv)
	eng := engine.New(engine.Deps{
		Gateway:     gw,
		Credentials: creds,
		Cache:       cache.New(kv, log),
		Recorder:    m,
		Logger:      log,
	})
	m.WatchEngine(eng.Snapshot)

	ctrl := controller.New(controller.Deps{
		Engine:      eng,
		Credentials: creds,
		Validator:   gw,
		Metadata:    scraper.New(&http.Client{}, cfg.ScrapeTimeout, log),
		Feed:        feedRefresher{gateway: gw, creds: creds},
		Logger:      log,
		PageSize:    cfg.PageSize,
	})

	return &App{
		cfg:           cfg,
		logger:        log,
		Store:         kv,
		Gateway:       gw,
		Credentials:   creds,
		Engine:        eng,
		Controller:    ctrl,
		Metrics:       m,
		reloadTrigger: make(chan struct{}, 1),
	}, nil
}

// feedRefresher asks the remote service to rebuild the RSS feed with the
// stored key. Without a key there is no feed to rebuild.
type feedRefresher struct {
	gateway *gateway.Client
	creds   *credential.Store
}

func (f feedRefresher) RefreshFeed(ctx context.Context) error {
	key, err := f.creds.Get(ctx)
	if err != nil || key == "" {
		return err
	}
	return f.gateway.RefreshFeed(ctx, key)
}

// OpenStorage returns the substrate selected by cfg.Storage.
func OpenStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage, the API key and cache are lost on exit")
		return memory.NewStore(), nil
	case config.StorageSQLite:
		log.Info("opening sqlite storage", logger.String("path", cfg.SQLitePath))
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, nil
	case config.StorageRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis initialized successfully")
		return redisstore.NewStore(client), nil
	}
	return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}

// Serve runs the reloader, the optional Homepage import and the HTTP server
// until ctx is done, then shuts everything down.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Infof("🚀 Starting linkshelf %s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Infof("linkshelf %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	reloader := scheduler.NewReloader(a.Controller, a.logger, a.cfg.ReloadInterval, a.reloadTrigger)
	if err := reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reloader: %w", err)
	}
	defer reloader.Stop()
	a.logger.Info("reloader started", logger.Duration("interval", a.cfg.ReloadInterval))

	if a.cfg.HomepageFile != "" {
		kind, err := homepage.ParseKind(a.cfg.HomepageKind)
		if err != nil {
			return err
		}
		job := scheduler.NewImportJob(a.cfg.HomepageFile, kind, scheduler.EngineShelf{Engine: a.Engine}, a.logger, a.cfg.ImportInterval)
		job.Start(ctx)
		defer job.Stop()
		a.logger.Info("homepage import started",
			logger.String("file", a.cfg.HomepageFile),
			logger.Duration("interval", a.cfg.ImportInterval))
	}

	server := httpserver.New(a.cfg.ListenAddr, deps.Deps{
		Logger:           a.logger,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		AllowedHosts:     a.cfg.AllowedHosts,
		AllowedCIDRS:     a.cfg.AllowedCIDRS,
		TrustProxy:       a.cfg.TrustProxy,
		Controller:       a.Controller,
		Account:          a.Gateway,
		Credentials:      a.Credentials,
		Storage:          a.Store,
		Metrics:          a.Metrics,
		ReloadTrigger:    a.reloadTrigger,
		FeedTitle:        a.cfg.FeedTitle,
		CommandBurst:     30,
		CommandPerMinute: 60,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("✅ linkshelf stopped cleanly")
	return nil
}

// Import reloads the collection, then creates every entry of a Homepage
// file whose URL is not saved yet.
func (a *App) Import(ctx context.Context, file string, kind homepage.Kind) (homepage.ImportResult, error) {
	if err := a.Controller.Reload(ctx); err != nil {
		return homepage.ImportResult{}, fmt.Errorf("failed to load saved links: %w", err)
	}
	job := scheduler.NewImportJob(file, kind, scheduler.EngineShelf{Engine: a.Engine}, a.logger, 0)
	return job.Run(ctx)
}

// Close releases the storage substrate.
func (a *App) Close() error {
	if err := a.Store.Close(); err != nil {
		a.logger.Warnf("failed to close storage: %v", err)
		return err
	}
	a.logger.Info("✅ storage closed cleanly")
	return nil
}
