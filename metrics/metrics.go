package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "civicreporter"

// Metrics holds every collector the service exports.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
	ReportsCreated  *prometheus.CounterVec
	StatusChanges   *prometheus.CounterVec
	ImagesRejected  *prometheus.CounterVec
	OTPVerification *prometheus.CounterVec
	OTPIssued       prometheus.Counter
}

// New constructs the collectors and registers them with reg. A nil reg uses
// a fresh registry, which keeps tests independent of each other.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		ReportsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "created_total",
			Help:      "Reports persisted, partitioned by owner kind (user or anonymous).",
		}, []string{"owner"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "status_changes_total",
			Help:      "Report status updates partitioned by target status.",
		}, []string{"status"}),
		ImagesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "images_rejected_total",
			Help:      "Image payloads dropped by validation, partitioned by reason.",
		}, []string{"reason"}),
		OTPVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "OTP verification attempts partitioned by result.",
		}, []string{"result"}),
		OTPIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "issued_total",
			Help:      "OTP codes issued.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Requests, m.Duration, m.ReportsCreated, m.StatusChanges,
		m.ImagesRejected, m.OTPVerification, m.OTPIssued,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Handler returns a Gin middleware that records request count and latency.
func (m *Metrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		m.Requests.With(labels).Inc()
		m.Duration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// The recorders below are nil-safe so services can run without metrics.

func (m *Metrics) ReportCreated(anonymous bool) {
	if m == nil {
		return
	}
	owner := "user"
	if anonymous {
		owner = "anonymous"
	}
	m.ReportsCreated.WithLabelValues(owner).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) ImageRejected(reason string) {
	if m == nil {
		return
	}
	m.ImagesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) OTPIssuedInc() {
	if m == nil {
		return
	}
	m.OTPIssued.Inc()
}

func (m *Metrics) OTPVerified(result string) {
	if m == nil {
		return
	}
	m.OTPVerification.WithLabelValues(result).Inc()
}
