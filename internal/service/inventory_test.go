package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
)

func TestReceiveBatchRecordsMovement(t *testing.T) {
	repo := newTestRepo(t)
	svc := newTestService(t, repo)
	milk := seedStock(t, repo, "milk", "5.00", 0)

	expiry := testNow.AddDate(0, 0, 10)
	batch, err := svc.ReceiveBatch(cashier(), domain.BatchReceiveRequest{ProductID: milk.ID, Quantity: 12, ExpirationDate: &expiry, Notes: " delivery "})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if batch.ID == 0 || batch.Quantity != 12 {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if got := stockOf(t, repo, milk.ID); got != 12 {
		t.Fatalf("expected 12 in stock, got %d", got)
	}
	movements, err := svc.ListInventoryTransactions(context.Background(), milk.ID, 0)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 || movements[0].Type != domain.MovementReceive || movements[0].Quantity != 12 || movements[0].Notes != "delivery" {
		t.Fatalf("unexpected movements %+v", movements)
	}
}

func TestReceiveBatchValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := newTestService(t, repo)
	milk := seedStock(t, repo, "milk", "5.00", 0)

	if _, err := svc.ReceiveBatch(cashier(), domain.BatchReceiveRequest{ProductID: milk.ID}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.ReceiveBatch(cashier(), domain.BatchReceiveRequest{ProductID: 999, Quantity: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ReceiveBatch(context.Background(), domain.BatchReceiveRequest{ProductID: milk.ID, Quantity: 1}); !errors.Is(err, store.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestRestockTopsUpLatestExpiringBatch(t *testing.T) {
	repo := newTestRepo(t)
	svc := newTestService(t, repo)
	milk := seedStock(t, repo, "milk", "5.00", 0)

	soon := testNow.AddDate(0, 0, 2)
	later := testNow.AddDate(0, 1, 0)
	if _, err := svc.ReceiveBatch(cashier(), domain.BatchReceiveRequest{ProductID: milk.ID, Quantity: 3, ExpirationDate: &soon}); err != nil {
		t.Fatalf("receive: %v", err)
	}
	fresh, err := svc.ReceiveBatch(cashier(), domain.BatchReceiveRequest{ProductID: milk.ID, Quantity: 3, ExpirationDate: &later})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	movement, err := svc.Restock(cashier(), domain.StockAdjustRequest{ProductID: milk.ID, Quantity: 4, Reference: "PO-7"})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if movement.BatchID != fresh.ID || movement.Type != domain.MovementRestock || movement.ReferenceNumber != "PO-7" {
		t.Fatalf("unexpected movement %+v", movement)
	}
	batches, err := repo.ListBatches(context.Background(), milk.ID)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	for _, b := range batches {
		if b.ID == fresh.ID && b.Quantity != 7 {
			t.Fatalf("expected latest batch to hold 7, got %d", b.Quantity)
		}
	}
}

func TestRestockPrefersDatedBatchEvenWhenEmpty(t *testing.T) {
	repo := newTestRepo(t)
	svc := newTestService(t, repo)
	milk := seedStock(t, repo, "milk", "5.00", 3)

	expiry := testNow.AddDate(0, 0, 20)
	dated, err := svc.ReceiveBatch(cashier(), domain.BatchReceiveRequest{ProductID: milk.ID, Quantity: 2, ExpirationDate: &expiry})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	// Dated stock sorts ahead of undated stock, so this empties the dated batch.
	if _, err := svc.RecordSpoilage(cashier(), domain.StockAdjustRequest{ProductID: milk.ID, Quantity: 2}); err != nil {
		t.Fatalf("spoilage: %v", err)
	}

	movement, err := svc.Restock(cashier(), domain.StockAdjustRequest{ProductID: milk.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if movement.BatchID != dated.ID {
		t.Fatalf("expected the dated batch %d to be topped up, got batch %d", dated.ID, movement.BatchID)
	}
	batches, err := repo.ListBatches(context.Background(), milk.ID)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	for _, b := range batches {
		if b.ID == dated.ID && b.Quantity != 4 {
			t.Fatalf("expected dated batch to hold 4, got %d", b.Quantity)
		}
	}
	if got := stockOf(t, repo, milk.ID); got != 7 {
		t.Fatalf("expected 7 in stock, got %d", got)
	}
}

func TestRestockCreatesBatchForEmptyProduct(t *testing.T) {
	repo := newTestRepo(t)
	svc := newTestService(t, repo)
	milk := seedStock(t, repo, "milk", "5.00", 0)

	if _, err := svc.Restock(cashier(), domain.StockAdjustRequest{ProductID: milk.ID, Quantity: 5}); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if got := stockOf(t, repo, milk.ID); got != 5 {
		t.Fatalf("expected 5 in stock, got %d", got)
	}
}

func TestRecordSpoilageIsGuarded(t *testing.T) {
	repo := newTestRepo(t)
	svc := newTestService(t, repo)
	milk := seedStock(t, repo, "milk", "5.00", 3)

	_, err := svc.RecordSpoilage(cashier(), domain.StockAdjustRequest{ProductID: milk.ID, Quantity: 4})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := stockOf(t, repo, milk.ID); got != 3 {
		t.Fatalf("stock must not change, got %d", got)
	}

	movements, err := svc.RecordSpoilage(cashier(), domain.StockAdjustRequest{ProductID: milk.ID, Quantity: 2, Notes: "dropped"})
	if err != nil {
		t.Fatalf("spoilage: %v", err)
	}
	if len(movements) != 1 || movements[0].Quantity != -2 || movements[0].Type != domain.MovementSpoilage {
		t.Fatalf("unexpected movements %+v", movements)
	}
	if got := stockOf(t, repo, milk.ID); got != 1 {
		t.Fatalf("expected 1 left, got %d", got)
	}
}

func TestInventoryExcludesExpiredStock(t *testing.T) {
	repo := newTestRepo(t)
	svc := newTestService(t, repo)
	milk := seedStock(t, repo, "milk", "5.00", 0)
	seedStock(t, repo, "rice", "12.00", 20)

	expired := testNow.Add(-48 * time.Hour)
	if _, err := svc.ReceiveBatch(cashier(), domain.BatchReceiveRequest{ProductID: milk.ID, Quantity: 6, ExpirationDate: &expired}); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if _, err := svc.ReceiveBatch(cashier(), domain.BatchReceiveRequest{ProductID: milk.ID, Quantity: 1}); err != nil {
		t.Fatalf("receive: %v", err)
	}

	items, err := svc.ListInventory(context.Background())
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	low, err := svc.LowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 1 || low[0].ProductID != milk.ID || low[0].Quantity != 1 || len(low[0].Batches) != 2 {
		t.Fatalf("expected milk to be low with 1 sellable unit, got %+v", low)
	}
}
