// Package metrics exposes checkout and HTTP counters for Prometheus. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grocermate"

type Metrics struct {
	registry         *prometheus.Registry
	sales            *prometheus.CounterVec
	saleDuration     prometheus.Histogram
	invoiceConflicts prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_total",
			Help:      "Sale commit attempts by outcome.",
		}, []string{"outcome"}),
		saleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_duration_seconds",
			Help:      "Time spent committing a sale, retries included.",
			Buckets:   prometheus.DefBuckets,
		}),
		invoiceConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_conflicts_total",
			Help:      "Sale attempts retried after losing a race to a concurrent writer, usually for the invoice number.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
	}
	m.registry.MustRegister(
		m.sales,
		m.saleDuration,
		m.invoiceConflicts,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SaleFinished records a committed or rejected sale. outcome is "committed"
// or the name of the stage that failed.
func (m *Metrics) SaleFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues(outcome).Inc()
	m.saleDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) InvoiceConflict() {
	if m == nil {
		return
	}
	m.invoiceConflicts.Inc()
}

func (m *Metrics) HTTPRequest(route string, method string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
