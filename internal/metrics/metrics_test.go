package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SaleFinished("committed", time.Second)
	m.InvoiceConflict()
	m.HTTPRequest("/api/sales", http.MethodPost, http.StatusOK)
	if m.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.SaleFinished("committed", 20*time.Millisecond)
	m.SaleFinished("reserving", 5*time.Millisecond)
	m.InvoiceConflict()
	m.HTTPRequest("/api/sales", http.MethodPost, http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`grocermate_sales_total{outcome="committed"} 1`,
		`grocermate_sales_total{outcome="reserving"} 1`,
		`grocermate_invoice_conflicts_total 1`,
		`grocermate_http_requests_total{method="POST",route="/api/sales",status="200"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}
