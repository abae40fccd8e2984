// Package server exposes a session over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pdfqa/internal/domain"
	"pdfqa/internal/service"
)

// SessionPort is the server-facing subset of the session.
type SessionPort interface {
	LoadDocument(ctx context.Context, name string, data []byte) (domain.DocumentStats, error)
	Ask(ctx context.Context, query string) (domain.Answer, error)
	Snapshot() service.Snapshot
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	CORSOrigins    []string
}

// Server serves the JSON API.
type Server struct {
	cfg     Config
	session SessionPort
	log     *zap.Logger
	engine  *gin.Engine
}

func New(session SessionPort, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	s := &Server{cfg: cfg, session: session, log: log}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log), cors(cfg.CORSOrigins), gzip.Gzip(gzip.DefaultCompression))
	engine.GET("/healthz", s.health)
	api := engine.Group("/api/v1")
	api.GET("/session", s.getSession)
	api.POST("/document", s.uploadDocument)
	api.POST("/query", s.query)
	s.engine = engine
	return s
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
