// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsManager struct {
	Registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
	WSConnections      prometheus.Gauge
	WSRooms            prometheus.Gauge
	WSEvents           *prometheus.CounterVec
	MessagesDelivered  prometheus.Counter
	SlowClientsDropped prometheus.Counter
}

func NewMetricsManager(namespace string) *MetricsManager {
	registry := prometheus.NewRegistry()

	m := &MetricsManager{
		Registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open websocket connections.",
		}),
		WSRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_rooms",
			Help:      "Rooms with at least one joined connection.",
		}),
		WSEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_events_total",
			Help:      "Inbound websocket events by type and outcome.",
		}, []string{"type", "outcome"}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages persisted and broadcast to a room.",
		}),
		SlowClientsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_slow_clients_dropped_total",
			Help:      "Connections dropped because their send buffer was full.",
		}),
	}

	registry.MustRegister(
		m.HTTPRequests,
		m.HTTPLatency,
		m.WSConnections,
		m.WSRooms,
		m.WSEvents,
		m.MessagesDelivered,
		m.SlowClientsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency per matched route.
func (m *MetricsManager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			m.HTTPRequests.WithLabelValues(route, method, status).Inc()
			m.HTTPLatency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
