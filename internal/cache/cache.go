package cache

import (
	"context"
	"time"

	"grocermate/backend/internal/domain"
)

// InvoiceCache maps invoice numbers to their sale. Invoices are never
// rewritten, so entries only expire by TTL.
type InvoiceCache interface {
	Get(ctx context.Context, number string) (*domain.InvoiceLookup, bool, error)
	Set(ctx context.Context, number string, value *domain.InvoiceLookup, ttl time.Duration) error
}

type NoopInvoiceCache struct{}

func (NoopInvoiceCache) Get(_ context.Context, _ string) (*domain.InvoiceLookup, bool, error) {
	return nil, false, nil
}

func (NoopInvoiceCache) Set(_ context.Context, _ string, _ *domain.InvoiceLookup, _ time.Duration) error {
	return nil
}
