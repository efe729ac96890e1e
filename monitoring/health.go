package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"market_dashboard/metrics"
)

type HealthStatus struct {
	Status          string            `json:"status"`
	Uptime          string            `json:"uptime"`
	StartTime       time.Time         `json:"start_time"`
	MemoryUsage     uint64            `json:"memory_usage"`
	GoroutineCount  int               `json:"goroutine_count"`
	ComponentStatus map[string]string `json:"component_status"`
	Processed       uint64            `json:"processed"`
	Errors          uint64            `json:"errors"`
	LastProcessed   *time.Time        `json:"last_processed,omitempty"`
}

// Health serves the readiness payload. Status is the field load balancers act
// on and is always "ok" while the process serves; a degraded component does
// not change it. ComponentStatus and the counters are informational only.
type Health struct {
	mu        sync.RWMutex
	checks    map[string]func() bool
	metrics   *metrics.Metrics
	startTime time.Time
}

func NewHealth(m *metrics.Metrics) *Health {
	return &Health{
		checks:    make(map[string]func() bool),
		metrics:   m,
		startTime: time.Now(),
	}
}

func (h *Health) RegisterCheck(name string, check func() bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *Health) Status() HealthStatus {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	processed, errors, last, _ := h.metrics.GetStats()

	status := HealthStatus{
		Status:          "ok",
		Uptime:          time.Since(h.startTime).Round(time.Second).String(),
		StartTime:       h.startTime,
		MemoryUsage:     m.Alloc,
		GoroutineCount:  runtime.NumGoroutine(),
		ComponentStatus: make(map[string]string),
		Processed:       processed,
		Errors:          errors,
	}
	if !last.IsZero() {
		status.LastProcessed = &last
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if h.checks[name]() {
			status.ComponentStatus[name] = "healthy"
		} else {
			status.ComponentStatus[name] = "degraded"
		}
	}
	h.mu.RUnlock()

	return status
}

func (h *Health) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Status())
}
