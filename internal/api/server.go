package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/michaelgiba/covered/internal/config"
	"github.com/michaelgiba/covered/internal/logging"
	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/services"
	"github.com/michaelgiba/covered/internal/store"
)

// Server exposes the topics feed, the worker-facing ingest endpoints, and
// static artifact serving under /data.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	queue  *queue.Queue
	logger *slog.Logger
	engine *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// NewServer constructs the API server. The queue may be nil; submissions are
// then visible to reconciliation only.
func NewServer(cfg *config.Config, st *store.Store, q *queue.Queue, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		queue:  q,
		logger: logging.NewComponentLogger(logger, "api"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), cors.Default())

	engine.POST("/processed-inputs", s.createProcessedInput)
	engine.GET("/processed-inputs/:id", s.getProcessedInput)
	engine.POST("/playback-contents", s.createPlaybackContent)
	engine.GET("/topics", s.listTopics)
	engine.GET("/topics/pending", s.listPendingTopics)
	engine.GET("/topics/:id", s.getTopic)
	engine.GET("/health", s.health)
	engine.Static("/data", cfg.Paths.DataDir)

	s.engine = engine
	return s
}

// Handler returns the underlying HTTP handler, used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving on the configured bind address.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", logging.Error(err))
		}
	}()
	s.logger.Info("api server listening", logging.String("addr", s.addr))
	return nil
}

// Addr returns the bound address, useful when the bind port is 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// requestLogger stamps every request with a correlation id, echoed in the
// X-Request-ID response header and attached to all request-scoped logs.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		logging.WithContext(c.Request.Context(), s.logger).Debug("request handled",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)),
		)
	}
}
