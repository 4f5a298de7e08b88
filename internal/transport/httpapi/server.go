package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"PaperFeed/internal/ports"
	"PaperFeed/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Services are the use cases exposed over HTTP.
type Services struct {
	Papers        ports.PaperStore
	Selector      *usecase.Selector
	Feedback      *usecase.Feedback
	Aggregator    *usecase.Aggregator
	Evaluation    *usecase.EvaluationScheduler
	Ingestor      *usecase.Ingestor
	Maintenance   *usecase.Maintenance
	Configuration *usecase.Configuration
	RetentionDays int
}

// Server serves the JSON API.
type Server struct {
	svc    Services
	logger *slog.Logger
	engine *gin.Engine
	addr   string

	// background bounds work started by a request but outliving it.
	background context.Context
}

// New builds the router.
func New(addr string, svc Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		svc:        svc,
		logger:     logger,
		engine:     gin.New(),
		addr:       addr,
		background: context.Background(),
	}
	s.engine.Use(gin.Recovery(), requestID(), requestLogger(logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.health)

	api := r.Group("/api")

	cfg := api.Group("/config")
	cfg.GET("/status", s.configStatus)
	cfg.GET("/llm", s.getLLM)
	cfg.POST("/llm", s.updateLLM)
	cfg.POST("/llm/test", s.testLLM)
	cfg.GET("/interests", s.getInterests)
	cfg.POST("/interests", s.updateInterests)
	cfg.GET("/categories", s.getCategories)
	cfg.POST("/categories", s.updateCategories)
	cfg.GET("/favorite-summary", s.getFavoriteSummary)
	cfg.POST("/favorite-summary", s.updateFavoriteSummary)
	cfg.POST("/favorite-summary/refresh", s.refreshFavoriteSummary)

	rec := api.Group("/recommendation")
	rec.GET("/next", s.nextRecommendation)
	rec.POST("/feedback", s.feedback)
	rec.GET("/status", s.recommendationStatus)

	lists := api.Group("/list")
	lists.GET("/:disposition", s.listPapers)
	lists.POST("/:disposition/:id/:action", s.moveListedPaper)

	sys := api.Group("/system")
	sys.POST("/ingest", s.ingest)
	sys.POST("/evaluate", s.evaluate)
	sys.POST("/purge", s.purge)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.background = ctx
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "ok"}, "")
}
