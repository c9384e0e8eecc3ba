// Package metrics exposes Prometheus counters for the request lifecycle and
// an HTTP middleware. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	plansCreated      prometheus.Counter
	plansDeleted      prometheus.Counter
	statusChanges     *prometheus.CounterVec
	categoriesDeleted prometheus.Counter
	cascadedPlans     prometheus.Counter
	httpDuration      *prometheus.HistogramVec
}

// New registers collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		plansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "designpro",
			Name:      "room_plans_created_total",
			Help:      "Room plans submitted by clients.",
		}),
		plansDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "designpro",
			Name:      "room_plans_deleted_total",
			Help:      "Room plans deleted by their owners.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "designpro",
			Name:      "room_plan_status_updates_total",
			Help:      "Staff status updates by resulting status.",
		}, []string{"status"}),
		categoriesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "designpro",
			Name:      "categories_deleted_total",
			Help:      "Categories deleted by admins.",
		}),
		cascadedPlans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "designpro",
			Name:      "room_plans_cascade_deleted_total",
			Help:      "Room plans removed together with their category.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "designpro",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(
		m.plansCreated,
		m.plansDeleted,
		m.statusChanges,
		m.categoriesDeleted,
		m.cascadedPlans,
		m.httpDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) PlanCreated() {
	if m != nil {
		m.plansCreated.Inc()
	}
}

func (m *Metrics) PlanDeleted() {
	if m != nil {
		m.plansDeleted.Inc()
	}
}

func (m *Metrics) StatusUpdated(status string) {
	if m != nil {
		m.statusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) CategoryDeleted(plans int64) {
	if m != nil {
		m.categoriesDeleted.Inc()
		m.cascadedPlans.Add(float64(plans))
	}
}

// Middleware records latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
