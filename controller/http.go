package controller

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health is the response body of GET /healthz.
type Health struct {
	Status       string `json:"status"`
	Game         string `json:"game"`
	SessionID    string `json:"session_id,omitempty"`
	ElapsedSec   int    `json:"elapsed_sec"`
	RemainingSec int    `json:"remaining_sec"`
}

// Health returns a point-in-time snapshot of the session for the health
// endpoint.
func (c *Controller) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Health{
		Status:       "ok",
		Game:         c.game.String(),
		SessionID:    c.sessionID,
		ElapsedSec:   int(c.timer.Elapsed().Seconds()),
		RemainingSec: int(c.timer.Remaining().Seconds()),
	}
}

// RegisterHTTPHandlers registers the health and metrics endpoints:
//
//	GET /healthz
//	GET /metrics
func (c *Controller) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", c.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
}

func (c *Controller) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(c.Health()); err != nil {
		c.logger.Error("Write health response failed", "error", err)
	}
}
