// Package pgstub serves the subset of the PostgREST protocol the client
// uses, backed by a local sqlite database. It exists for development and for
// end-to-end tests of the remote adapter.
package pgstub

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/storage"
)

const (
	mediaJSON       = "application/json"
	mediaObjectJSON = "application/vnd.pgrst.object+json"
)

type Config struct {
	Schema string
	Logger *zap.Logger
}

type Server struct {
	engine *gin.Engine
	repo   storage.TodoRepository
	schema string
	logger *zap.Logger
}

func New(repo storage.TodoRepository, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginZapMiddleware(logger))
	router.Use(corsMiddleware())

	srv := &Server{
		engine: router,
		repo:   repo,
		schema: schema,
		logger: logger,
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	todos := s.engine.Group("/todos", s.profileMiddleware())
	todos.GET("", s.handleSelect)
	todos.POST("", s.handleInsert)
	todos.PATCH("", s.handleUpdate)
	todos.DELETE("", s.handleDelete)

	s.engine.NoRoute(func(c *gin.Context) {
		s.respondError(c, newError(http.StatusNotFound, CodeUnknownTable, "Could not find the table '"+s.schema+c.Request.URL.Path+"' in the schema cache"))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", addr), zap.String("schema", s.schema))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shutdown server", zap.Error(err))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
