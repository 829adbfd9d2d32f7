package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// ChatUseCase runs one chat turn
type ChatUseCase interface {
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
}

// Server is the HTTP API of the assistant
type Server struct {
	engine         *gin.Engine
	chat           ChatUseCase
	requestTimeout time.Duration
}

type Option func(*Server)

// WithRequestTimeout bounds the whole handling of a chat request
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// New creates the agent API server with POST /chat and GET /health
func New(chat ChatUseCase, opts ...Option) *Server {
	s := &Server{chat: chat}
	for _, opt := range opts {
		opt(s)
	}

	engine := newEngine()
	engine.POST("/chat", s.handleChat)
	engine.GET("/health", handleHealth)
	s.engine = engine

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(requestLogger())
	engine.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.From(c.Request.Context()).Error("panic in handler", "recovered", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": apologyInternal})
	}))
	return engine
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.From(ctx)

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Info("invalid chat request body", logging.ErrAttr(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": apologyInvalid})
		return
	}

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	resp, err := s.chat.Chat(ctx, req)
	if err != nil {
		status, msg := errorResponse(err)
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "chat request failed", "status", status, logging.ErrAttr(err))
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// requestLogger attaches a request scoped logger to the context and logs every request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		logger := logging.Default().With("request_id", requestID)
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), logger))

		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"remote", c.ClientIP(),
		)
	}
}

// Run serves handler on addr until ctx is canceled, then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "failed to listen", goerr.V("addr", addr))
		}
		return nil
	case <-ctx.Done():
	}

	logging.From(ctx).Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shutdown server")
	}
	return nil
}
