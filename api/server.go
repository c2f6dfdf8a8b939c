// Package api serves the analyzer state over HTTP for dashboards and
// scripted pulls. All endpoints are read-only.
package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BorjaTR/sentinel-hft/collector/model"
	"github.com/BorjaTR/sentinel-hft/collector/stream"
	"github.com/BorjaTR/sentinel-hft/collector/udp"
)

// Server exposes snapshots over HTTP. SnapshotFn and AnomaliesFn must be
// safe for concurrent use; StatsFn may be nil when no UDP collector runs.
type Server struct {
	SnapshotFn  func() model.Snapshot
	AnomaliesFn func() []stream.Anomaly
	StatsFn     func() udp.Stats

	router *gin.Engine
}

func NewServer(snapshot func() model.Snapshot, anomalies func() []stream.Anomaly, stats func() udp.Stats) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		SnapshotFn:  snapshot,
		AnomaliesFn: anomalies,
		StatsFn:     stats,
		router:      gin.New(),
	}
	s.router.Use(gin.Recovery())

	s.router.GET("/healthz", s.healthz)
	v1 := s.router.Group("/v1")
	{
		v1.GET("/snapshot", s.getSnapshot)
		v1.GET("/anomalies", s.getAnomalies)
		v1.GET("/collector/stats", s.getCollectorStats)
	}
	return s
}

// Handler returns the underlying HTTP handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr in a background goroutine.
func (s *Server) Run(addr string) {
	go func() {
		if err := s.router.Run(addr); err != nil {
			log.Printf("api: server: %v", err)
		}
	}()
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.SnapshotFn())
}

func (s *Server) getAnomalies(c *gin.Context) {
	anomalies := s.AnomaliesFn()
	if anomalies == nil {
		anomalies = []stream.Anomaly{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     len(anomalies),
		"anomalies": anomalies,
	})
}

func (s *Server) getCollectorStats(c *gin.Context) {
	if s.StatsFn == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no collector running"})
		return
	}
	c.JSON(http.StatusOK, s.StatsFn())
}
