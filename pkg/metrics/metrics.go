// Package metrics provides Prometheus collectors for the HTTP API, the learner's
// jobs and the chatbot's reply routing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "rota"

// Job counter kinds.
const (
	JobMetricTotal = iota
	JobMetricTotalSuccess
	JobMetricTotalFailed
	JobMetricTotalKilled
)

// Options selects which built-in collector groups are registered.
type Options struct {
	HTTP bool
	Jobs bool
}

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry
	log logger.Logger

	httpTotal     prometheus.Counter
	httpResponses *prometheus.CounterVec
	httpDuration  prometheus.Histogram

	jobs map[int]prometheus.Counter

	replies *prometheus.CounterVec
	lookups *prometheus.CounterVec

	mu     sync.Mutex
	server *http.Server
}

// NewMetrics registers the reply and lookup counters plus the groups enabled in opts.
func NewMetrics(opts Options, l logger.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "replies_total",
			Help:      "Replies produced, by routing decision",
		}, []string{"route"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "knowledge_lookups_total",
			Help:      "Knowledge cache lookups, by the pass that matched",
		}, []string{"pass"}),
	}
	m.reg.MustRegister(m.replies, m.lookups)

	if opts.HTTP {
		m.httpTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		})
		m.httpResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "http_responses_total",
			Help:      "HTTP responses by status code",
		}, []string{"code"})
		m.httpDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0},
		})
		m.reg.MustRegister(m.httpTotal, m.httpResponses, m.httpDuration)
	}

	if opts.Jobs {
		m.jobs = map[int]prometheus.Counter{
			JobMetricTotal:        jobCounter("learn_jobs_total", "Questions the learner attempted"),
			JobMetricTotalSuccess: jobCounter("learn_jobs_successful_total", "Questions learned without error"),
			JobMetricTotalFailed:  jobCounter("learn_jobs_failed_total", "Questions whose learning failed"),
			JobMetricTotalKilled:  jobCounter("learn_jobs_killed_total", "Learning runs stopped by cancellation"),
		}
		for _, c := range m.jobs {
			m.reg.MustRegister(c)
		}
	}
	return m
}

func jobCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

// IncJob increments one of the JobMetric* counters.
func (m *Metrics) IncJob(kind int) {
	if m == nil || m.jobs == nil {
		return
	}
	if c, ok := m.jobs[kind]; ok {
		c.Inc()
	}
}

// ObserveReply counts a reply produced through route (exit, learn, cache, live, composer...).
func (m *Metrics) ObserveReply(route string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(route).Inc()
}

// ObserveLookup counts a knowledge lookup resolved by pass (exact, substring, fuzzy, miss).
func (m *Metrics) ObserveLookup(pass string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(pass).Inc()
}

// IncrementHTTPResponseCounter counts a response with the given status code.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	if m == nil || m.httpResponses == nil {
		return
	}
	m.httpResponses.WithLabelValues(strconv.Itoa(code)).Inc()
}

// AddCustomMetric registers an extra collector on the metrics registry.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) error {
	if err := m.reg.Register(c); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen serves /metrics on port until Shutdown. The returned channel receives the
// listener's terminal error; http.ErrServerClosed is filtered out.
func (m *Metrics) Listen(port int) <-chan error {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.mu.Lock()
	m.server = srv
	m.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown stops the listener started by Listen.
func (m *Metrics) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	srv := m.server
	m.mu.Unlock()
	if srv == nil {
		return nil
	}
	m.log.Info("Stopping metrics listener")
	return srv.Shutdown(ctx)
}

// HTTPMiddleware records request counts, status codes and durations.
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.httpTotal == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.httpTotal.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.httpDuration.Observe(time.Since(start).Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
