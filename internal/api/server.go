package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/eligibility"
	"loan-eligibility-workers/internal/prediction"
	"loan-eligibility-workers/internal/verification"
)

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server exposes the decision engine over HTTP next to the job workers.
type Server struct {
	engine     *gin.Engine
	aggregator *verification.Aggregator
	gate       *eligibility.Gate
	adapter    *prediction.Adapter
	readiness  []ReadinessCheck
	logger     logger.Logger
}

type Options struct {
	Mode      string
	Readiness []ReadinessCheck
}

func NewServer(aggregator *verification.Aggregator, gate *eligibility.Gate, adapter *prediction.Adapter, opts Options, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if opts.Mode == gin.DebugMode || opts.Mode == gin.TestMode {
		gin.SetMode(opts.Mode)
	}

	s := &Server{
		engine:     gin.New(),
		aggregator: aggregator,
		gate:       gate,
		adapter:    adapter,
		readiness:  opts.Readiness,
		logger:     log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.engine.Use(gin.Recovery(), s.requestMetrics())
	s.RegisterRoutes(s.engine)
	return s
}

func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", s.Health)
	router.GET("/ready", s.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/verification", s.VerifyProfile)
		api.POST("/verification/pan", s.VerifyPAN)
		api.POST("/verification/bank", s.VerifyBankAccount)
		api.POST("/eligibility", s.CheckEligibility)
		api.POST("/predictions", s.Predict)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestMetrics counts requests by route template so ids in paths do not
// explode label cardinality.
func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		s.logger.Debug("http request", map[string]interface{}{
			"method":   c.Request.Method,
			"route":    route,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// Ready runs every readiness check with a short deadline and reports each
// failure by name.
func (s *Server) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, rc := range s.readiness {
		if err := rc.Check(ctx); err != nil {
			failed[rc.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "READY",
		"modelAvailable": s.adapter.Available(),
	})
}
