package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("BOOTSTRAP_MANAGER_PASSWORD", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.BootstrapManagerPassword != "" {
		t.Fatalf("expected empty BOOTSTRAP_MANAGER_PASSWORD when unset, got %q", cfg.BootstrapManagerPassword)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DEFAULT_VAT_PERCENT", "INVOICE_RETRY_LIMIT", "INVOICE_CACHE_TTL_SECONDS", "BATCH_POLICY", "ACCESS_TOKEN_TTL_MINUTES"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.DefaultVATPercent.String() != "15" {
		t.Fatalf("expected default VAT 15, got %s", cfg.DefaultVATPercent)
	}
	if cfg.InvoiceRetryLimit != 5 {
		t.Fatalf("expected retry limit 5, got %d", cfg.InvoiceRetryLimit)
	}
	if cfg.InvoiceCacheTTL() != 10*time.Minute {
		t.Fatalf("expected 10m cache TTL, got %s", cfg.InvoiceCacheTTL())
	}
	if cfg.AccessTokenTTL() != 8*time.Hour {
		t.Fatalf("expected 8h token TTL, got %s", cfg.AccessTokenTTL())
	}
	if cfg.BatchPolicy != "fefo" {
		t.Fatalf("expected fefo, got %q", cfg.BatchPolicy)
	}
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	t.Setenv("DEFAULT_VAT_PERCENT", "140")
	t.Setenv("INVOICE_RETRY_LIMIT", "0")

	cfg := Load()
	if cfg.DefaultVATPercent.String() != "15" {
		t.Fatalf("expected VAT to fall back to 15, got %s", cfg.DefaultVATPercent)
	}
	if cfg.InvoiceRetryLimit != 5 {
		t.Fatalf("expected retry limit to fall back to 5, got %d", cfg.InvoiceRetryLimit)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("DEFAULT_VAT_PERCENT", "7.5")
	t.Setenv("BATCH_POLICY", "LIFO")
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.DefaultVATPercent.String() != "7.5" {
		t.Fatalf("expected VAT 7.5, got %s", cfg.DefaultVATPercent)
	}
	if cfg.BatchPolicy != "lifo" {
		t.Fatalf("expected lifo, got %q", cfg.BatchPolicy)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}
