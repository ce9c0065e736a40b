// Package ledger draws stock out of product batches. It never lets a batch
// go negative: every decrement is guarded by the database, and a product
// that cannot cover the request fails with store.InsufficientStockError.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
)

// StockTx is the slice of store.Tx the ledger needs.
type StockTx interface {
	ListBatches(ctx context.Context, productID int64) ([]domain.ProductBatch, error)
	DecrementBatch(ctx context.Context, batchID int64, qty int) (bool, error)
}

type Allocation struct {
	BatchID  int64
	Quantity int
}

// BatchPolicy orders sellable batches; the ledger consumes them front to back.
type BatchPolicy interface {
	Name() string
	Order(batches []domain.ProductBatch)
}

type fefoPolicy struct{}

func (fefoPolicy) Name() string { return "fefo" }

// Order puts the soonest-expiring batch first; batches without an expiry go last.
func (fefoPolicy) Order(batches []domain.ProductBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpirationDate != nil && b.ExpirationDate == nil:
			return true
		case a.ExpirationDate == nil && b.ExpirationDate != nil:
			return false
		case a.ExpirationDate != nil && !a.ExpirationDate.Equal(*b.ExpirationDate):
			return a.ExpirationDate.Before(*b.ExpirationDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

type lifoPolicy struct{}

func (lifoPolicy) Name() string { return "lifo" }

// Order puts the most recently received batch first.
func (lifoPolicy) Order(batches []domain.ProductBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

var (
	FEFO BatchPolicy = fefoPolicy{}
	LIFO BatchPolicy = lifoPolicy{}
)

func PolicyByName(name string) (BatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fefo":
		return FEFO, nil
	case "lifo":
		return LIFO, nil
	default:
		return nil, fmt.Errorf("unknown batch policy %q", name)
	}
}

type Ledger struct {
	policy BatchPolicy
	now    func() time.Time
}

func New(policy BatchPolicy, now func() time.Time) *Ledger {
	if policy == nil {
		policy = FEFO
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{policy: policy, now: now}
}

func (l *Ledger) Policy() BatchPolicy {
	return l.policy
}

var errGuardLost = errors.New("stock changed concurrently")

// maxPasses bounds how often Reserve re-reads batches after a guarded
// decrement lost to a concurrent writer.
const maxPasses = 2

// Reserve removes qty units of the product from its sellable batches inside
// tx. Partial decrements made before a failure are undone by rolling tx back.
func (l *Ledger) Reserve(ctx context.Context, tx StockTx, productID int64, qty int) ([]Allocation, error) {
	return l.withdraw(ctx, tx, productID, qty, l.Sellable)
}

// WriteOff removes qty units for spoilage. Expired batches are consumed
// first since they sort ahead under expiry order.
func (l *Ledger) WriteOff(ctx context.Context, tx StockTx, productID int64, qty int) ([]Allocation, error) {
	return l.withdraw(ctx, tx, productID, qty, func(batches []domain.ProductBatch) []domain.ProductBatch {
		out := make([]domain.ProductBatch, 0, len(batches))
		for _, b := range batches {
			if b.Quantity > 0 {
				out = append(out, b)
			}
		}
		FEFO.Order(out)
		return out
	})
}

func (l *Ledger) withdraw(ctx context.Context, tx StockTx, productID int64, qty int, eligible func([]domain.ProductBatch) []domain.ProductBatch) ([]Allocation, error) {
	if qty <= 0 {
		return nil, store.Invalid("quantity", "must be greater than zero")
	}

	remaining := qty
	allocations := make([]Allocation, 0, 2)
	lostGuard := false
	for pass := 0; pass < maxPasses && remaining > 0; pass++ {
		lostGuard = false
		batches, err := tx.ListBatches(ctx, productID)
		if err != nil {
			return nil, err
		}
		candidates := eligible(batches)

		available := 0
		for _, b := range candidates {
			available += b.Quantity
		}
		if available < remaining {
			return nil, &store.InsufficientStockError{ProductID: productID, Requested: qty, Available: available + qty - remaining}
		}

		for _, b := range candidates {
			take := min(remaining, b.Quantity)
			applied, err := tx.DecrementBatch(ctx, b.ID, take)
			if err != nil {
				return nil, err
			}
			if !applied {
				lostGuard = true
				break
			}
			allocations = append(allocations, Allocation{BatchID: b.ID, Quantity: take})
			remaining -= take
			if remaining == 0 {
				break
			}
		}
	}

	if remaining > 0 {
		// The batches covered the request when read; a concurrent writer kept
		// winning the guard, so the caller should retry the transaction.
		if lostGuard {
			return nil, &store.ConflictError{Op: fmt.Sprintf("reserve product %d", productID), Err: errGuardLost}
		}
		return nil, &store.InsufficientStockError{ProductID: productID, Requested: qty, Available: qty - remaining}
	}
	return allocations, nil
}

// Sellable returns the non-empty, unexpired batches in policy order. A batch
// is still sellable on its expiration date.
func (l *Ledger) Sellable(batches []domain.ProductBatch) []domain.ProductBatch {
	today := startOfDayUTC(l.now())
	out := make([]domain.ProductBatch, 0, len(batches))
	for _, b := range batches {
		if b.Quantity <= 0 {
			continue
		}
		if b.ExpirationDate != nil && startOfDayUTC(*b.ExpirationDate).Before(today) {
			continue
		}
		out = append(out, b)
	}
	l.policy.Order(out)
	return out
}

// Available sums the sellable quantity across batches.
func (l *Ledger) Available(batches []domain.ProductBatch) int {
	total := 0
	for _, b := range l.Sellable(batches) {
		total += b.Quantity
	}
	return total
}

func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
