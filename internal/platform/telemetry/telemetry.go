// Package telemetry exposes Prometheus metrics for the HTTP server and the
// appointment booking flow.
package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

// Booking outcomes recorded by ObserveBooking.
const (
	OutcomeBooked          = "booked"
	OutcomeSlotUnavailable = "slot_unavailable"
	OutcomePaymentFailed   = "payment_failed"
	OutcomeError           = "error"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	bookingsTotal   *prometheus.CounterVec
	emailsTotal     *prometheus.CounterVec
}

func NewMetrics(service string) *Metrics {
	constLabels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests being served",
			ConstLabels: constLabels,
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "appointment_bookings_total",
			Help:        "Appointment booking attempts by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notification_emails_total",
			Help:        "Outbound notification emails by template and result",
			ConstLabels: constLabels,
		}, []string{"template", "result"}),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.inFlight,
		m.bookingsTotal,
		m.emailsTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware records request count, latency and in-flight requests per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}
			m.inFlight.Inc()
			start := time.Now()

			err := next(c)

			m.inFlight.Dec()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(statusOf(c, err))).Inc()
			return err
		}
	}
}

// statusOf resolves the status the error handler will write for err.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return ae.Status()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 500
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// ObserveBooking counts one booking attempt.
func (m *Metrics) ObserveBooking(outcome string) {
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveEmail counts one notification email.
func (m *Metrics) ObserveEmail(template string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.emailsTotal.WithLabelValues(template, result).Inc()
}
