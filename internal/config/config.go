package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	SQLitePath               string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	InvoiceCacheTTLSeconds   int
	AuthSecret               string
	AccessTokenTTLMinutes    int
	DefaultVATPercent        decimal.Decimal
	InvoiceRetryLimit        int
	BatchPolicy              string
	BootstrapManagerUsername string
	BootstrapManagerPassword string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	vat, err := decimal.NewFromString(getEnv("DEFAULT_VAT_PERCENT", "15"))
	if err != nil || vat.IsNegative() || vat.GreaterThan(decimal.NewFromInt(100)) {
		vat = decimal.NewFromInt(15)
	}

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigin:            getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		SQLitePath:               getEnv("SQLITE_PATH", "file:grocermate.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  redisDB,
		InvoiceCacheTTLSeconds:   positiveInt("INVOICE_CACHE_TTL_SECONDS", 600),
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:    positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		DefaultVATPercent:        vat,
		InvoiceRetryLimit:        positiveInt("INVOICE_RETRY_LIMIT", 5),
		BatchPolicy:              strings.ToLower(getEnv("BATCH_POLICY", "fefo")),
		BootstrapManagerUsername: strings.TrimSpace(getEnv("BOOTSTRAP_MANAGER_USERNAME", "manager")),
		BootstrapManagerPassword: os.Getenv("BOOTSTRAP_MANAGER_PASSWORD"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) InvoiceCacheTTL() time.Duration {
	return time.Duration(c.InvoiceCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
