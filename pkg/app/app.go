// Package app wires configuration, storage, caches and services into an
// HTTP handler shared by every entrypoint.
package app

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/adapters/cache/memory"
	"github.com/wadjakorntonsri/go-biosite/pkg/adapters/cache/rediscache"
	"github.com/wadjakorntonsri/go-biosite/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-biosite/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-biosite/pkg/config"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/sections"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/services"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

type App struct {
	Config   *config.Config
	Log      logrus.FieldLogger
	Repo     *sqlite.SQLiteRepository
	Biosites *services.BiositeService
	Links    *services.LinkService
	Sections *services.SectionService
	Reorders *services.ReorderService
	Handler  http.Handler

	closers []io.Closer
}

// NewLogger builds the JSON logger used by the server.
func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func New(cfg *config.Config, logger logrus.FieldLogger) (*App, error) {
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	a := &App{Config: cfg, Log: logger, Repo: repo, closers: []io.Closer{repo}}

	cache, err := a.pageCache()
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := sections.Options{AlwaysVisible: cfg.AlwaysVisible}
	a.Biosites = services.NewBiositeService(repo, cache, logger, services.PageOptions{
		TTL:           cfg.CacheTTL,
		AlwaysVisible: cfg.AlwaysVisible,
	})
	a.Reorders = services.NewReorderService(repo, logger, opts, a.Biosites)
	inv := services.Invalidators{a.Biosites, a.Reorders}
	a.Links = services.NewLinkService(repo, logger, inv)
	a.Sections = services.NewSectionService(repo, logger, inv)

	a.Handler = handler.NewRouter(cfg, handler.Services{
		Biosites: a.Biosites,
		Links:    a.Links,
		Sections: a.Sections,
		Reorders: a.Reorders,
	}, logger)
	return a, nil
}

// pageCache picks Redis when REDIS_URL is set and an in-process cache otherwise.
func (a *App) pageCache() (ports.PageCache, error) {
	if a.Config.RedisURL != "" {
		c, err := rediscache.NewPageCache(a.Config.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c)
		a.Log.Info("using redis page cache")
		return c, nil
	}

	ttl := a.Config.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return memory.NewPageCache(ttl, 2*ttl), nil
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
