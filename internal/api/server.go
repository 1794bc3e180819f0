package api

import (
	"changeimpact/internal/core/app"
	apperrors "changeimpact/internal/core/errors"
	"changeimpact/internal/core/ports"
	"changeimpact/internal/engine/graph"
	"changeimpact/internal/engine/parser"
	"changeimpact/internal/shared/observability"
	"changeimpact/internal/shared/util"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Service is what the HTTP surface needs from the application.
type Service interface {
	Dependencies(ctx context.Context) map[string]*parser.FileRecord
	Dependency(ctx context.Context, file string) (*parser.FileRecord, error)
	Affected(ctx context.Context, file string) (graph.AffectedSet, error)
	Query(ctx context.Context, raw string, limit int) ([]graph.FileImportance, error)
	Analyze(ctx context.Context, file string) (ports.AnalysisResult, error)
	BuildGraph(ctx context.Context) (app.RebuildStats, error)
	History(limit int) []ports.AnalysisResult
	RiskSummary() app.RiskSummary
	Health() app.HealthStatus
}

var _ Service = (*app.AnalysisService)(nil)

type Options struct {
	AnalyzeRate  float64
	AnalyzeBurst int
	LimiterTTL   time.Duration
	Metrics      bool
	// ServiceName enables request tracing when set.
	ServiceName string
}

type Server struct {
	svc      Service
	hub      *Hub
	router   *gin.Engine
	limiters *util.LimiterRegistry
}

type analyzeRequest struct {
	File string `json:"file"`
}

// NewServer builds the router. ctx bounds background limiter cleanup.
func NewServer(ctx context.Context, svc Service, hub *Hub, opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.ServiceName != "" {
		router.Use(otelgin.Middleware(opts.ServiceName))
	}

	s := &Server{
		svc:      svc,
		hub:      hub,
		router:   router,
		limiters: util.NewLimiterRegistry(ctx, opts.AnalyzeRate, opts.AnalyzeBurst, opts.LimiterTTL),
	}

	router.GET("/health", s.handleHealth)
	if opts.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	router.GET("/ws", hub.Serve)

	api := router.Group("/api")
	api.GET("/dependencies", s.handleDependencies)
	api.GET("/dependencies/*file", s.handleDependency)
	api.GET("/affected/*file", s.handleAffected)
	api.GET("/query", s.handleQuery)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/build-graph", s.handleBuildGraph)
	api.GET("/history", s.handleHistory)
	api.GET("/risk-summary", s.handleRiskSummary)
	api.GET("/openapi.json", s.handleOpenAPI)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx ends, then shuts down within
// grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("http server stopped")
	return nil
}

// fileParam strips the leading slash gin keeps on catch-all parameters.
func fileParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("file"), "/")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Health())
}

func (s *Server) handleDependencies(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Dependencies(c.Request.Context()))
}

func (s *Server) handleDependency(c *gin.Context) {
	rec, err := s.svc.Dependency(c.Request.Context(), fileParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleAffected(c *gin.Context) {
	affected, err := s.svc.Affected(c.Request.Context(), fileParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, affected)
}

func (s *Server) handleQuery(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	rows, err := s.svc.Query(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	if !s.limiters.Allow(c.ClientIP()) {
		observability.HTTPRateLimitedTotal.Inc()
		c.JSON(http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Wrap(err, apperrors.CodeValidationError, "invalid request body"))
		return
	}
	if req.File == "" {
		writeError(c, apperrors.New(apperrors.CodeValidationError, "file is required"))
		return
	}

	result, err := s.svc.Analyze(c.Request.Context(), req.File)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBuildGraph(c *gin.Context) {
	stats, err := s.svc.BuildGraph(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.svc.History(limit))
}

// limitParam reads the optional limit query parameter, writing a 400 when it
// is not a non-negative integer.
func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(c, apperrors.New(apperrors.CodeValidationError, "limit must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

func (s *Server) handleRiskSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.RiskSummary())
}

func (s *Server) handleOpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, Document())
}
