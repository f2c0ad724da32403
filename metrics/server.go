package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Server is the ops HTTP surface: /metrics and /healthz.
type Server struct {
	srv       *http.Server
	collector *Collector
}

func NewServer(port int, collector *Collector) *Server {
	s := &Server{collector: collector}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Ops server error: %v", err)
		}
	}()
	log.Infof("Ops server listening on %s", s.srv.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type healthResponse struct {
	Status             string `json:"status"`
	LastCycleAt        string `json:"last_cycle_at,omitempty"`
	LastCycleSkipped   bool   `json:"last_cycle_skipped,omitempty"`
	LastCycleFeeds     int    `json:"last_cycle_feeds"`
	LastCycleSuccesses int    `json:"last_cycle_successes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{Status: "ok"}
	if report, ok := s.collector.LastCycle(); ok {
		resp.LastCycleAt = report.FinishedAt.Format(time.RFC3339)
		resp.LastCycleSkipped = report.Skipped
		resp.LastCycleFeeds = len(report.Outcomes)
		resp.LastCycleSuccesses = report.Outcomes.Successes()
	}
	_ = json.NewEncoder(w).Encode(resp)
}
