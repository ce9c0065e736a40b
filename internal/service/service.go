package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"grocermate/backend/internal/cache"
	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/invoice"
	"grocermate/backend/internal/ledger"
	"grocermate/backend/internal/metrics"
	"grocermate/backend/internal/pricing"
	"grocermate/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	defaultRetryLimit      = 5
	defaultRetryBackoff    = 15 * time.Millisecond
	defaultInvoiceCacheTTL = 10 * time.Minute
)

type Options struct {
	Ledger          *ledger.Ledger
	InvoiceCache    cache.InvoiceCache
	Metrics         *metrics.Metrics
	Clock           func() time.Time
	DefaultVAT      *decimal.Decimal
	RetryLimit      int
	RetryBackoff    time.Duration
	InvoiceCacheTTL time.Duration
}

type Service struct {
	repo         store.Repository
	ledger       *ledger.Ledger
	allocator    *invoice.Allocator
	invoiceCache cache.InvoiceCache
	metrics      *metrics.Metrics
	now          func() time.Time
	defaultVAT   decimal.Decimal
	retryLimit   int
	retryBackoff time.Duration
	cacheTTL     time.Duration
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.New(ledger.FEFO, opts.Clock)
	}
	if opts.InvoiceCache == nil {
		opts.InvoiceCache = cache.NoopInvoiceCache{}
	}
	vat := pricing.DefaultVATPercentage
	if opts.DefaultVAT != nil {
		vat = *opts.DefaultVAT
	}
	if opts.RetryLimit < 1 {
		opts.RetryLimit = defaultRetryLimit
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = 0
	} else if opts.RetryBackoff == 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.InvoiceCacheTTL <= 0 {
		opts.InvoiceCacheTTL = defaultInvoiceCacheTTL
	}

	return &Service{
		repo:         repo,
		ledger:       opts.Ledger,
		allocator:    invoice.NewAllocator(),
		invoiceCache: opts.InvoiceCache,
		metrics:      opts.Metrics,
		now:          opts.Clock,
		defaultVAT:   vat,
		retryLimit:   opts.RetryLimit,
		retryBackoff: opts.RetryBackoff,
		cacheTTL:     opts.InvoiceCacheTTL,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	_, err := s.repo.CountUsers(ctx)
	return err
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID <= 0 {
		return domain.Actor{}, &store.AuthenticationError{Reason: "authenticated user required"}
	}
	return actor, nil
}

func clampLimit(limit int, fallback int, max int) int {
	if limit <= 0 {
		limit = fallback
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
