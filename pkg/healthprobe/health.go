// Package healthprobe implements the liveness and readiness endpoints.
// Liveness only proves the process is up; readiness additionally gates on
// the engine having finished startup and on every registered component
// (feed, storage) reporting up.
package healthprobe

import (
	"net/http"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker tracks process uptime, the startup gate and per-component
// availability.
type HealthChecker struct {
	startedAt time.Time

	mu         sync.RWMutex
	ready      bool
	components map[string]bool
}

// New creates a HealthChecker that is alive but not yet ready.
func New() *HealthChecker {
	return &HealthChecker{
		startedAt:  time.Now(),
		components: make(map[string]bool),
	}
}

// SetReady opens or closes the startup gate.
func (h *HealthChecker) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// MarkComponent records a named dependency as up or down. A component
// marked down takes the engine out of the ready pool without killing it.
func (h *HealthChecker) MarkComponent(name string, up bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = up
}

type probeResponse struct {
	Status        string   `json:"status"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	Down          []string `json:"down,omitempty"`
}

// Health is the liveness handler. It answers 200 for as long as the
// process can serve HTTP at all.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, probeResponse{
			Status:        "healthy",
			UptimeSeconds: time.Since(h.startedAt).Seconds(),
		})
	}
}

// Ready is the readiness handler: 200 once startup completed and every
// registered component is up, 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready, down := h.snapshot()

		if !ready || len(down) > 0 {
			writeProbe(w, http.StatusServiceUnavailable, probeResponse{
				Status:        "not_ready",
				UptimeSeconds: time.Since(h.startedAt).Seconds(),
				Down:          down,
			})
			return
		}

		writeProbe(w, http.StatusOK, probeResponse{
			Status:        "ready",
			UptimeSeconds: time.Since(h.startedAt).Seconds(),
		})
	}
}

func (h *HealthChecker) snapshot() (bool, []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var down []string
	for name, up := range h.components {
		if !up {
			down = append(down, name)
		}
	}
	sort.Strings(down)

	return h.ready, down
}

func writeProbe(w http.ResponseWriter, code int, resp probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
