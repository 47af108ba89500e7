// Package server exposes a playground over HTTP (gin) and gRPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/SimonWaldherr/sensorsql/internal/dataset"
	"github.com/SimonWaldherr/sensorsql/internal/engine"
	"github.com/SimonWaldherr/sensorsql/internal/metrics"
	"github.com/SimonWaldherr/sensorsql/internal/render"
	"github.com/SimonWaldherr/sensorsql/internal/stream"
)

// Backend is what the server needs from a playground.
type Backend interface {
	Query(ctx context.Context, sql string) (*engine.Result, error)
	Regenerate(size int) *dataset.Dataset
	Dataset() *dataset.Dataset
	Engine() engine.Engine
	Counters() *metrics.Counters
}

// QueryRequest is the body of POST /api/query and the gRPC Query request.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// QueryResponse mirrors what the playground shows for one query.
type QueryResponse struct {
	SQL             string        `json:"sql"`
	Engine          string        `json:"engine"`
	Columns         []string      `json:"columns"`
	Rows            []dataset.Row `json:"rows"`
	Count           int           `json:"count"`
	ExecutionTimeMs float64       `json:"execution_time_ms"`
	Stats           string        `json:"stats,omitempty"`
	Error           string        `json:"error,omitempty"`
	Kind            string        `json:"kind,omitempty"`
}

// DatasetRequest is the body of POST /api/dataset.
type DatasetRequest struct {
	Size int `json:"size"`
}

// DatasetInfo describes the current dataset.
type DatasetInfo struct {
	ID          string    `json:"id"`
	Table       string    `json:"table"`
	Rows        int       `json:"rows"`
	Columns     []string  `json:"columns"`
	GeneratedAt time.Time `json:"generated_at"`
	Engine      string    `json:"engine"`
	Message     string    `json:"message,omitempty"`
}

// Server serves one backend. The simulator is optional.
type Server struct {
	b   Backend
	sim *stream.Simulator
	reg *prometheus.Registry
	log *slog.Logger
}

// New returns a server for b.
func New(b Backend, sim *stream.Simulator, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{b: b, sim: sim, reg: metrics.NewRegistry(b.Counters()), log: log}
}

// query runs sql and converts the outcome into a response; the error is
// returned as well so transports can pick a status.
func (s *Server) query(ctx context.Context, sql string) (*QueryResponse, error) {
	res, err := s.b.Query(ctx, sql)
	if err != nil {
		return &QueryResponse{
			SQL:     sql,
			Engine:  s.b.Engine().Name(),
			Columns: []string{},
			Rows:    []dataset.Row{},
			Error:   render.ErrorLine(err),
			Kind:    engine.Kind(err),
		}, err
	}
	return &QueryResponse{
		SQL:             sql,
		Engine:          res.Engine,
		Columns:         res.Cols,
		Rows:            res.Rows,
		Count:           len(res.Rows),
		ExecutionTimeMs: res.ExecutionTimeMs(),
		Stats:           render.Stats(res),
	}, nil
}

// StatusFor maps a query error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, engine.ErrEmptyQuery),
		errors.Is(err, engine.ErrUnsupportedStatement),
		errors.Is(err, engine.ErrInvalidCondition):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

// Router builds the HTTP API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "engine": s.b.Engine().Name()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.POST("/query", s.handleQuery)
	api.GET("/dataset/info", s.handleDatasetInfo)
	api.POST("/dataset", s.handleRegenerate)
	api.GET("/metrics", s.handleMetrics)
	api.POST("/metrics/reset", s.handleMetricsReset)

	if s.sim != nil {
		api.GET("/simulations", s.handleSimulations)
		api.POST("/simulations/:kind/toggle", s.handleToggle)
		api.POST("/batch", s.handleBatch)
	}
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	resp, err := s.query(c.Request.Context(), req.SQL)
	c.JSON(StatusFor(err), resp)
}

func (s *Server) info(msg string) DatasetInfo {
	ds := s.b.Dataset()
	return DatasetInfo{
		ID:          ds.ID.String(),
		Table:       dataset.TableName,
		Rows:        ds.Len(),
		Columns:     ds.Cols,
		GeneratedAt: ds.GeneratedAt,
		Engine:      s.b.Engine().Name(),
		Message:     msg,
	}
}

func (s *Server) handleDatasetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.info(""))
}

func (s *Server) handleRegenerate(c *gin.Context) {
	var req DatasetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.Size < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must not be negative"})
		return
	}
	ds := s.b.Regenerate(req.Size)
	c.JSON(http.StatusOK, s.info(render.Generated(ds.Len())))
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.b.Counters().Snapshot())
}

func (s *Server) handleMetricsReset(c *gin.Context) {
	s.b.Counters().Reset()
	c.JSON(http.StatusOK, s.b.Counters().Snapshot())
}

func (s *Server) handleSimulations(c *gin.Context) {
	active := make(map[stream.Kind]bool, len(stream.Kinds))
	for _, k := range stream.Kinds {
		active[k] = s.sim.Active(k)
	}
	c.JSON(http.StatusOK, gin.H{
		"active":     active,
		"structured": s.sim.Structured.Items(),
		"logs":       logLines(s.sim.Logs.Items()),
		"documents":  s.sim.Documents.Items(),
		"batch":      s.sim.Batch.Pending(),
		"counters":   s.b.Counters().Snapshot(),
	})
}

func logLines(lines []stream.LogLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return out
}

func (s *Server) handleToggle(c *gin.Context) {
	kind, err := stream.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	on, err := s.sim.Toggle(kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "active": on})
}

func (s *Server) handleBatch(c *gin.Context) {
	n, err := s.sim.ProcessBatch(c.Request.Context(), 0, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": n, "pending": s.sim.Batch.Pending()})
}

// Run serves HTTP on httpAddr and gRPC on grpcAddr (either may be empty to
// disable it) until ctx is cancelled or a listener fails.
func (s *Server) Run(ctx context.Context, httpAddr, grpcAddr string) error {
	if httpAddr == "" && grpcAddr == "" {
		return errors.New("server: no listen address configured")
	}
	errc := make(chan error, 2)

	var gs *grpc.Server
	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", grpcAddr, err)
		}
		gs = grpc.NewServer()
		RegisterSensorSQLServer(gs, s)
		s.log.Info("gRPC listening", "addr", lis.Addr().String())
		go func() {
			if err := gs.Serve(lis); err != nil {
				errc <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	var hs *http.Server
	if httpAddr != "" {
		hs = &http.Server{Addr: httpAddr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
		s.log.Info("HTTP listening", "addr", httpAddr)
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http serve: %w", err)
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if hs != nil {
		if serr := hs.Shutdown(shutdownCtx); serr != nil && err == nil {
			err = serr
		}
	}
	if gs != nil {
		gs.GracefulStop()
	}
	s.log.Info("server stopped")
	return err
}
