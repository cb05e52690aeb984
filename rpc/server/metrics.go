package server

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// unmatchedPath is the path label of requests without binding, so that arbitrary
// request targets cannot create new time series
const unmatchedPath = "unmatched"

// serverMetrics collects the request metrics of one server. A nil *serverMetrics
// ignores all observations.
type serverMetrics struct {
	set        *metrics.Set
	histograms *xsync.MapOf[string, *metrics.Histogram]
}

func newServerMetrics() *serverMetrics {
	return &serverMetrics{
		set:        metrics.NewSet(),
		histograms: xsync.NewMapOf[string, *metrics.Histogram](),
	}
}

// observe records one request for path with the resulting status code
func (m *serverMetrics) observe(path string, status int, start time.Time) {
	if m == nil {
		return
	}
	if path == "" {
		path = unmatchedPath
	}

	m.set.GetOrCreateCounter(fmt.Sprintf(`ckv_requests_total{path=%q,status="%d"}`, path, status)).Inc()

	h, _ := m.histograms.LoadOrCompute(path, func() *metrics.Histogram {
		return m.set.GetOrCreateHistogram(fmt.Sprintf(`ckv_request_duration_seconds{path=%q}`, path))
	})
	h.UpdateDuration(start)
}

// gauge registers a gauge whose value is read from fn on every scrape
func (m *serverMetrics) gauge(name string, fn func() float64) {
	m.set.NewGauge(name, fn)
}

// write writes the server metrics plus the process metrics in Prometheus text format
func (m *serverMetrics) write(w io.Writer) {
	m.set.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}
