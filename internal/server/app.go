// Package server wires the gallery together: storage, the upload pipeline,
// album and artifact services, the optional S3 mirror and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/httpapi"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/mirror"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophgallery/internal/server/services"
	"github.com/dmitrijs2005/gophgallery/internal/server/upload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "gophgallery"

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// openDatabase is a seam for tests.
var openDatabase = repomanager.Open

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	db, rm, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs, err := metrics.NewObserver(metricsNamespace, reg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	pipeline, err := upload.NewPipeline(cfg, logger, upload.WithMetrics(obs))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("upload pipeline init error: %w", err)
	}

	artifactOpts := []services.ArtifactOption{services.WithArtifactMetrics(obs)}
	if cfg.Mirror.Enabled {
		m, err := mirror.NewS3Mirror(ctx, cfg.Mirror)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mirror init error: %w", err)
		}
		artifactOpts = append(artifactOpts, services.WithMirror(m))
	}

	albums := services.NewAlbumService(db, rm, logger, services.WithAlbumMetrics(obs))
	artifacts := services.NewArtifactService(db, rm, pipeline, logger, artifactOpts...)

	srv := httpapi.NewServer(cfg, logger, albums, artifacts, reg)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.HTTPAddr, "db", app.config.Database.Driver)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "close database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
