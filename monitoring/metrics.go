package monitoring

import (
	"context"
	"runtime"
	"time"

	"market_dashboard/metrics"
)

const DefaultCollectInterval = 5 * time.Second

// StartMetricsCollection samples runtime gauges every interval until ctx is done.
func StartMetricsCollection(ctx context.Context, m *metrics.Metrics, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		collectSystemMetrics(m)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collectSystemMetrics(m)
			}
		}
	}()
}

func collectSystemMetrics(m *metrics.Metrics) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.SetSystem(mem.Alloc, runtime.NumGoroutine())
}
