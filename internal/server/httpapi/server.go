// Package httpapi exposes the album and artifact services over HTTP. The
// handlers are thin adapters: one REST verb per service operation.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// uploadOverhead is the multipart framing allowed on top of MaxSize.
const uploadOverhead = 1 << 20

type Server struct {
	address         string
	shutdownTimeout time.Duration
	storageRoot     string
	maxUpload       int64

	albums    *services.AlbumService
	artifacts *services.ArtifactService
	gatherer  prometheus.Gatherer
	logger    logging.Logger

	engine *gin.Engine
}

// NewServer builds the router. gatherer may be nil, in which case /metrics
// is not served.
func NewServer(cfg *config.Config, l logging.Logger, albums *services.AlbumService, artifacts *services.ArtifactService, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		address:         cfg.HTTPAddr,
		shutdownTimeout: cfg.ShutdownTimeout.Duration,
		storageRoot:     cfg.Storage.Path,
		maxUpload:       cfg.Upload.MaxSize + uploadOverhead,
		albums:          albums,
		artifacts:       artifacts,
		gatherer:        gatherer,
		logger:          l.With("module", "http_server"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog(), s.identity())

	r.Static("/files", s.storageRoot)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		api.POST("/upload", s.uploadFile)

		files := api.Group("/files")
		{
			files.GET("", s.listFiles)
			files.GET("/:name", s.getFile)
			files.DELETE("/:name", s.deleteFile)
			files.GET("/:name/albums", s.getFileAlbums)
		}

		albums := api.Group("/albums")
		{
			albums.GET("", s.listAlbums)
			albums.POST("", s.createAlbum)
			albums.GET("/search", s.searchAlbums)
			albums.GET("/stats", s.albumStats)
			albums.POST("/batch/add", s.batchAddFiles)
			albums.POST("/batch/remove", s.batchRemoveFiles)

			albums.GET("/:id", s.getAlbum)
			albums.PUT("/:id", s.updateAlbum)
			albums.DELETE("/:id", s.deleteAlbum)
			albums.GET("/:id/files", s.getAlbumFiles)
			albums.POST("/:id/files", s.addAlbumFiles)
			albums.DELETE("/:id/files", s.removeAlbumFiles)
		}
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
