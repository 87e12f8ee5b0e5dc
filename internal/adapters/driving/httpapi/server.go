package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
	"github.com/custodia-labs/repochat/internal/logger"
)

// DefaultMaxUploadBytes bounds a whole /upload-file request body.
const DefaultMaxUploadBytes = 32 << 20

// Config configures the HTTP API.
type Config struct {
	// Assistant serves every route. Required.
	Assistant driving.AssistantService

	// Namespace is used by requests without a session header.
	// Empty generates a session-<ulid> namespace at start.
	Namespace string

	// Addr is the listen address for Run.
	Addr string

	// MaxUploadBytes bounds an upload request. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64

	// MaxFileBytes skips uploaded files larger than this. Zero means 1 MiB.
	MaxFileBytes int64

	// AllowLocalPaths lets /upload-github ingest directories on the server host.
	AllowLocalPaths bool
}

// Server is the gin HTTP front end.
type Server struct {
	cfg       Config
	assistant driving.AssistantService
	namespace string
	engine    *gin.Engine
}

// NewServer validates cfg and builds the router.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Assistant == nil {
		return nil, ErrMissingAssistant
	}
	if cfg.Namespace == "" {
		cfg.Namespace = NewSessionNamespace()
	}
	if err := domain.ValidateNamespace(cfg.Namespace); err != nil {
		return nil, fmt.Errorf("server namespace: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 1 << 20
	}

	s := &Server{
		cfg:       cfg,
		assistant: cfg.Assistant,
		namespace: cfg.Namespace,
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	r.GET("/healthz", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.POST("/upload-file", s.handleUploadFile)
	r.POST("/upload-github", s.handleUploadGitHub)
	r.POST("/chat", s.handleChat)
	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Namespace returns the server session namespace.
func (s *Server) Namespace() string {
	return s.namespace
}

// Run listens on cfg.Addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Infow("http api listening", "addr", s.cfg.Addr, "namespace", s.namespace)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// requestLogger logs one line per request when verbose logging is on.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"session", c.GetHeader(SessionHeader),
		)
	}
}
