package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ledgerPostings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_postings_total",
			Help: "Ledger posting attempts by kind and result.",
		},
		[]string{"kind", "result"},
	)

	ledgerEntries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_entries_appended_total",
		Help: "Ledger entries appended.",
	})

	streamDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_stream_events_dropped_total",
		Help: "Posting events dropped for slow stream subscribers.",
	})

	initOnce sync.Once
)

// Init registers the metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, ledgerPostings, ledgerEntries, streamDropped)
	})
}

// Handler serves the Prometheus exposition format, registering the metrics
// on first use.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// RecordPosting counts a posting attempt. entries is the number of entries
// appended, zero on failure.
func RecordPosting(kind, result string, entries int) {
	ledgerPostings.WithLabelValues(kind, result).Inc()
	if entries > 0 {
		ledgerEntries.Add(float64(entries))
	}
}

// RecordStreamDrop counts one event lost by a slow stream subscriber.
func RecordStreamDrop() { streamDropped.Inc() }

// Instrument measures request rate, latency and concurrency.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath collapses identifiers in known routes so metric label
// cardinality stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "accounts":
		return "/v1/accounts/:id"
	case len(parts) == 5 && parts[0] == "v1" && parts[1] == "ledger" && parts[2] == "transactions" && parts[4] == "reversal":
		return "/v1/ledger/transactions/:id/reversal"
	}
	return p
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers work through the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
