package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// DirectoryRefreshes counts directory refreshes by result ("ok" or "error").
	DirectoryRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_refreshes_total",
			Help: "Directory cache refreshes by result",
		},
		[]string{"result"},
	)
	DirectoryRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "directory_refresh_duration_seconds",
		Help:    "Time spent fetching the directory",
		Buckets: prometheus.DefBuckets,
	})
	// DirectoryEntries reports the size of the current snapshot by kind.
	DirectoryEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "directory_entries",
			Help: "Number of entries in the directory snapshot",
		},
		[]string{"kind"},
	)
	// RuleParses counts parsed stored rules by resulting state.
	RuleParses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_parses_total",
			Help: "Stored rules parsed, by resulting state",
		},
		[]string{"state"},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Later calls are no-ops.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, DirectoryRefreshes, DirectoryRefreshDuration, DirectoryEntries, RuleParses)
	})
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// route pattern is only known after chi has routed the request
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
