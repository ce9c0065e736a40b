package service

import (
	"context"
	"log"
	"strings"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
)

// ReceiveBatch books a delivery as a new batch.
func (s *Service) ReceiveBatch(ctx context.Context, req domain.BatchReceiveRequest) (domain.ProductBatch, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.ProductBatch{}, err
	}
	if req.ProductID <= 0 {
		return domain.ProductBatch{}, store.Invalid("productId", "must be a positive id")
	}
	if req.Quantity <= 0 {
		return domain.ProductBatch{}, store.Invalid("quantity", "must be greater than zero")
	}

	at := s.now().UTC()
	var created domain.ProductBatch
	err = s.repo.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProduct(ctx, req.ProductID); err != nil {
			return err
		}
		batch, err := tx.CreateBatch(ctx, domain.ProductBatch{
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			ExpirationDate: req.ExpirationDate,
			CreatedAt:      at,
		})
		if err != nil {
			return err
		}
		created = batch
		return tx.RecordInventoryTransaction(ctx, domain.InventoryTransaction{
			BatchID:   batch.ID,
			ProductID: req.ProductID,
			Type:      domain.MovementReceive,
			Quantity:  req.Quantity,
			Notes:     strings.TrimSpace(req.Notes),
			UserID:    actor.UserID,
			CreatedAt: at,
		})
	})
	if err != nil {
		return domain.ProductBatch{}, err
	}
	log.Printf("[inventory] received batch=%d product=%d qty=%d user=%d", created.ID, created.ProductID, created.Quantity, actor.UserID)
	return created, nil
}

// Restock tops up the product's latest-expiring batch, emptied batches
// included. A product without any batch gets a fresh one without expiry.
func (s *Service) Restock(ctx context.Context, req domain.StockAdjustRequest) (domain.InventoryTransaction, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.InventoryTransaction{}, err
	}
	if err := validateAdjustment(req); err != nil {
		return domain.InventoryTransaction{}, err
	}

	at := s.now().UTC()
	var movement domain.InventoryTransaction
	err = s.repo.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProduct(ctx, req.ProductID); err != nil {
			return err
		}
		batches, err := tx.ListAllBatches(ctx, req.ProductID)
		if err != nil {
			return err
		}

		var batchID int64
		if target, ok := restockTarget(batches); ok {
			batchID = target.ID
			if err := tx.IncrementBatch(ctx, batchID, req.Quantity); err != nil {
				return err
			}
		} else {
			batch, err := tx.CreateBatch(ctx, domain.ProductBatch{ProductID: req.ProductID, Quantity: req.Quantity, CreatedAt: at})
			if err != nil {
				return err
			}
			batchID = batch.ID
		}

		movement = domain.InventoryTransaction{
			BatchID:         batchID,
			ProductID:       req.ProductID,
			Type:            domain.MovementRestock,
			Quantity:        req.Quantity,
			ReferenceNumber: strings.TrimSpace(req.Reference),
			Notes:           strings.TrimSpace(req.Notes),
			UserID:          actor.UserID,
			CreatedAt:       at,
		}
		return tx.RecordInventoryTransaction(ctx, movement)
	})
	if err != nil {
		return domain.InventoryTransaction{}, err
	}
	return movement, nil
}

// RecordSpoilage writes off damaged or expired units, soonest expiry first.
func (s *Service) RecordSpoilage(ctx context.Context, req domain.StockAdjustRequest) ([]domain.InventoryTransaction, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAdjustment(req); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	var movements []domain.InventoryTransaction
	err = s.repo.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProduct(ctx, req.ProductID); err != nil {
			return err
		}
		allocs, err := s.ledger.WriteOff(ctx, tx, req.ProductID, req.Quantity)
		if err != nil {
			return err
		}
		movements = make([]domain.InventoryTransaction, 0, len(allocs))
		for _, alloc := range allocs {
			m := domain.InventoryTransaction{
				BatchID:         alloc.BatchID,
				ProductID:       req.ProductID,
				Type:            domain.MovementSpoilage,
				Quantity:        -alloc.Quantity,
				ReferenceNumber: strings.TrimSpace(req.Reference),
				Notes:           strings.TrimSpace(req.Notes),
				UserID:          actor.UserID,
				CreatedAt:       at,
			}
			if err := tx.RecordInventoryTransaction(ctx, m); err != nil {
				return err
			}
			movements = append(movements, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[inventory] spoilage product=%d qty=%d user=%d", req.ProductID, req.Quantity, actor.UserID)
	return movements, nil
}

// restockTarget picks the batch with the latest expiration date. Batches
// without a date only win when no batch has one; ties go to the newest batch.
func restockTarget(batches []domain.ProductBatch) (domain.ProductBatch, bool) {
	if len(batches) == 0 {
		return domain.ProductBatch{}, false
	}
	best := batches[0]
	for _, b := range batches[1:] {
		switch {
		case b.ExpirationDate != nil && best.ExpirationDate == nil:
			best = b
		case b.ExpirationDate == nil && best.ExpirationDate != nil:
		case b.ExpirationDate != nil && !b.ExpirationDate.Equal(*best.ExpirationDate):
			if b.ExpirationDate.After(*best.ExpirationDate) {
				best = b
			}
		case b.ID > best.ID:
			best = b
		}
	}
	return best, true
}

func validateAdjustment(req domain.StockAdjustRequest) error {
	if req.ProductID <= 0 {
		return store.Invalid("productId", "must be a positive id")
	}
	if req.Quantity <= 0 {
		return store.Invalid("quantity", "must be greater than zero")
	}
	return nil
}

// ListInventory reports sellable stock per product. Expired units are listed
// in Batches but not counted in Quantity.
func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	products, err := s.repo.ListProducts(ctx, domain.ProductFilter{Limit: 1000})
	if err != nil {
		return nil, err
	}
	items := make([]domain.InventoryItem, 0, len(products))
	for _, p := range products {
		batches, err := s.repo.ListBatches(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		available := s.ledger.Available(batches)
		items = append(items, domain.InventoryItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Barcode:      p.Barcode,
			UnitPrice:    p.UnitPrice,
			Quantity:     available,
			ReorderLevel: p.ReorderLevel,
			LowStock:     available <= p.ReorderLevel,
			Batches:      batches,
		})
	}
	return items, nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := s.ListInventory(ctx)
	if err != nil {
		return nil, err
	}
	low := items[:0]
	for _, item := range items {
		if item.LowStock {
			low = append(low, item)
		}
	}
	return low, nil
}

func (s *Service) ListInventoryTransactions(ctx context.Context, productID int64, limit int) ([]domain.InventoryTransaction, error) {
	if productID < 0 {
		return nil, store.Invalid("productId", "must not be negative")
	}
	return s.repo.ListInventoryTransactions(ctx, productID, clampLimit(limit, 100, 500))
}
