package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/trunov/converthub/cmd/migrate"
	"github.com/trunov/converthub/internal/blob"
	"github.com/trunov/converthub/internal/cache"
	"github.com/trunov/converthub/internal/config"
	"github.com/trunov/converthub/internal/contentstore"
	"github.com/trunov/converthub/internal/dispatch"
	"github.com/trunov/converthub/internal/jobstore"
	"github.com/trunov/converthub/internal/lifecycle"
	"github.com/trunov/converthub/internal/routing"
	"github.com/trunov/converthub/internal/strategy"
	"github.com/trunov/converthub/internal/transport/handler"
	"github.com/trunov/converthub/internal/transport/router"
	"github.com/trunov/converthub/internal/transport/ws"
	use_case "github.com/trunov/converthub/internal/use-case"
)

type App struct {
	HttpServer *http.Server

	dispatcher *dispatch.Dispatcher
	mirror     *blob.Mirror
	redisCache *cache.Cache
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	content, err := contentstore.New(cfg.Storage.UploadDir)
	if err != nil {
		return nil, err
	}

	var jobs jobstore.JobStore
	if cfg.Database.DSN != "" {
		if err := migrate.Migrate(cfg.Database.DSN, migrate.Migrations); err != nil {
			return nil, err
		}
		pg, err := jobstore.NewPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		jobs = pg
	} else {
		log.Printf("[app] no database configured, keeping jobs in memory")
		jobs = jobstore.NewMemory()
	}

	var mirror *blob.Mirror
	if cfg.S3.BucketName != "" {
		mirror, err = blob.NewMirror(&cfg.S3)
		if err != nil {
			return nil, err
		}
	}

	table := routing.NewTable()
	exec := strategy.NewExecutor(strategy.DefaultRegistry())

	dispatcher, err := dispatch.New(dispatch.Config{
		Workers:         cfg.Dispatcher.Workers,
		QueueSize:       cfg.Dispatcher.QueueSize,
		StrategyTimeout: time.Duration(cfg.Dispatcher.StrategyTimeoutSec) * time.Second,
		OutputDir:       cfg.Storage.OutputDir,
	}, jobs, table, exec, mirrorOrNil(mirror))
	if err != nil {
		return nil, err
	}

	lc := lifecycle.NewManager(content, jobs)

	redisCache, err := cache.NewCache(ctx, "converthub", &cfg.Redis)
	if err != nil {
		return nil, err
	}

	wsManager := ws.NewManager()
	wsManager.Start(jobs.Updates())

	uc := use_case.New(jobs, content, table, lc, dispatcher)

	h := handler.New(uc, cfg, redisCache, wsManager)
	r := router.NewRouter(h)

	s := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout * time.Second,
	}

	return &App{
		HttpServer: s,
		dispatcher: dispatcher,
		mirror:     mirror,
		redisCache: redisCache,
	}, nil
}

// mirrorOrNil keeps the dispatcher's Mirror interface nil when no bucket is
// configured; a typed nil *blob.Mirror would defeat its nil check.
func mirrorOrNil(m *blob.Mirror) dispatch.Mirror {
	if m == nil {
		return nil
	}
	return m
}

func (a *App) Run() error {
	log.Printf("starting server on %s", a.HttpServer.Addr)
	return a.HttpServer.ListenAndServe()
}

// Shutdown stops the HTTP listener, then drains in-flight conversions and
// pending uploads.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.HttpServer.Shutdown(ctx)
	a.dispatcher.Close()
	if a.mirror != nil {
		a.mirror.Close()
	}
	if cerr := a.redisCache.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
