package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the collectors for HTTP
// traffic and seat allocation. It satisfies the allocator's observer
// interface.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	claimAttempts *prometheus.CounterVec
	seatsOccupied prometheus.Gauge
}

// NewMetricsService constructs the service and registers all collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		claimAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_claim_attempts_total",
			Help: "Seat claim attempts by outcome (allocated, conflict, capacity, duplicate).",
		}, []string{"outcome"}),
		seatsOccupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "allocation_seats_occupied",
			Help: "Net seats occupied since process start.",
		}),
	}
	registry.MustRegister(s.httpRequests, s.httpDuration, s.claimAttempts, s.seatsOccupied)
	return s
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed HTTP request.
func (s *MetricsService) ObserveRequest(method, path string, status int, duration time.Duration) {
	s.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveClaimAttempt records one seat claim attempt outcome.
func (s *MetricsService) ObserveClaimAttempt(outcome string) {
	s.claimAttempts.WithLabelValues(outcome).Inc()
}

// ObserveSeatChange moves the occupied-seats gauge.
func (s *MetricsService) ObserveSeatChange(delta int) {
	s.seatsOccupied.Add(float64(delta))
}
