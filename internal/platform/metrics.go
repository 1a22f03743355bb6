package platform

import (
	"errors"
	"sync"

	"autopilot/internal/layout"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autopilot",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed, labeled by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "autopilot",
		Name:      "http_request_duration_seconds",
		Help:      "Histogram of request durations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	LayoutOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autopilot",
		Subsystem: "layout_repo",
		Name:      "ops_total",
		Help:      "Layout repository operations, labeled by operation and result.",
	}, []string{"op", "result"})
)

var metricsOnce sync.Once

// InitMetrics registers the collectors with the default registry. It is safe
// to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal, HTTPDuration, LayoutOpsTotal)
		var already prometheus.AlreadyRegisteredError
		if err := layout.RegisterMetrics(prometheus.DefaultRegisterer); err != nil && !errors.As(err, &already) {
			panic(err)
		}
	})
}

func observeOp(op string, err error) {
	result := "ok"
	switch {
	case errors.Is(err, layout.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	LayoutOpsTotal.WithLabelValues(op, result).Inc()
}
