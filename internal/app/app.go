package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursechat-backend/internal/data/repos"
	apphttp "github.com/yungbote/coursechat-backend/internal/http"
	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Repos    repos.Set
	Services Services
	Server   *apphttp.Server
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithLogger(ctx, log, cfg)
}

// NewWithLogger wires every component. On error nothing is left open.
func NewWithLogger(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     cfg.Otel.Headers,
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})
	a.Metrics = observability.Init(log, observability.MetricsConfig{
		Enabled:        cfg.Metrics.Enabled,
		ScrapeInterval: cfg.Metrics.ScrapeInterval,
	})

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients
	a.Repos = repos.New(clients.DB.DB(), log)

	a.Services, err = wireServices(log, cfg, clients, a.Repos)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Server = wireServer(log, cfg, clients, a.Services, a.Metrics)
	return a, nil
}

// Run serves until ctx is done. The cleanup worker outlives the HTTP drain so deletes
// scheduled by in-flight requests still run.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Metrics != nil {
		a.Metrics.StartServer(gctx, a.Log, a.Cfg.Metrics.Addr)
		a.Metrics.StartDBCollector(gctx, a.Log, a.Clients.DB.DB())
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)
		}
	}

	cleanCtx, stopCleaner := context.WithCancel(context.WithoutCancel(ctx))
	g.Go(func() error {
		a.Services.Cleaner.Run(cleanCtx)
		return nil
	})
	if a.Cfg.Prompts.Watch {
		g.Go(func() error {
			if err := a.Services.Prompts.Watch(gctx); err != nil {
				a.Log.Warn("Prompt pack watcher stopped", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stopCleaner()
		return a.Server.Run(gctx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if err := a.Clients.Close(); err != nil {
		a.Log.Warn("Closing clients failed", "error", err)
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("Tracer shutdown failed", "error", err)
		}
		cancel()
		a.otelShutdown = nil
	}
	a.Log.Sync()
}
