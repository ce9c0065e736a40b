package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"grocermate/backend/internal/cache"
	"grocermate/backend/internal/config"
	"grocermate/backend/internal/httpapi"
	"grocermate/backend/internal/ledger"
	"grocermate/backend/internal/metrics"
	"grocermate/backend/internal/service"
	"grocermate/backend/internal/store/sqlstore"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not read .env: %v", err)
	}
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	policy, err := ledger.PolicyByName(cfg.BatchPolicy)
	if err != nil {
		log.Fatalf("invalid BATCH_POLICY: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	driver, dsn := sqlstore.DriverSQLite, cfg.SQLitePath
	if cfg.DatabaseURL != "" {
		driver, dsn = sqlstore.DriverPostgres, cfg.DatabaseURL
	}
	repo, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		log.Fatalf("database unavailable (%s): %v", driver, err)
	}
	closers = append(closers, repo.Close)
	log.Printf("repository: %s", driver)

	invoiceCache := cache.InvoiceCache(cache.NoopInvoiceCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisInvoiceCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
			_ = redisCache.Close()
		} else {
			invoiceCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	m := metrics.New()
	clock := time.Now
	vat := cfg.DefaultVATPercent
	svc := service.New(repo, service.Options{
		Ledger:          ledger.New(policy, clock),
		InvoiceCache:    invoiceCache,
		Metrics:         m,
		Clock:           clock,
		DefaultVAT:      &vat,
		RetryLimit:      cfg.InvoiceRetryLimit,
		InvoiceCacheTTL: cfg.InvoiceCacheTTL(),
	})

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	if err := auth.BootstrapManager(ctx, cfg.BootstrapManagerUsername, cfg.BootstrapManagerPassword); err != nil {
		log.Fatalf("bootstrap manager: %v", err)
	}
	api := httpapi.New(svc, auth, m, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("GrocerMate backend listening on %s (batch policy %s)", cfg.Address(), policy.Name())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.BootstrapManagerPassword != "" {
		if err := validatePasswordStrength(cfg.BootstrapManagerPassword); err != nil {
			return fmt.Errorf("BOOTSTRAP_MANAGER_PASSWORD is too weak: %w", err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, single repeated
// characters and a handful of well-known defaults.
func validatePasswordStrength(password string) error {
	if len(password) < 10 {
		return fmt.Errorf("must be at least 10 characters")
	}
	known := map[string]bool{
		"password123": true, "admin12345": true, "manager123": true,
		"1234567890": true, "qwertyuiop": true, "changeme123": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}
	return nil
}
