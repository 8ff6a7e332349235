package http

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Metrics   map[string]int64  `json:"metrics,omitempty"`
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(w, healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Metrics:   s.metrics(),
	})
}

func (s *Server) metrics() map[string]int64 {
	t := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	return map[string]int64{
		"requests_total":            t.TotalRequests,
		"server_errors_total":       t.ServerErrors,
		"last_duration_ms":          t.LastDurationMs,
		"rate_limited_total":        rl.TotalHits,
		"rate_limit_clients":        rl.ClientCount,
		"suspicious_requests_total": s.detector.GetMetrics().SuspiciousRequests,
	}
}

// handleReady reports whether the ledger store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ready",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"store": "ok"},
	}
	status := http.StatusOK
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
			resp.Status = "not_ready"
			resp.Checks["store"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	NewJSONResponse().Status(status).JSON(resp).Write(w)
}
