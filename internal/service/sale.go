package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/invoice"
	"grocermate/backend/internal/ledger"
	"grocermate/backend/internal/pricing"
	"grocermate/backend/internal/store"
	"grocermate/backend/internal/xid"
)

// Sale commit stages, in order. A failed sale is reported with the stage it
// failed in.
const (
	StageValidating = "validating"
	StageReserving  = "reserving"
	StagePricing    = "pricing"
	StageAllocating = "allocating"
	StagePersisting = "persisting"
	StageCommitted  = "committed"
)

type saleItem struct {
	productID int64
	quantity  int
	unitPrice decimal.Decimal
	discount  decimal.Decimal
}

type saleInput struct {
	items         []saleItem
	vat           decimal.Decimal
	paymentMethod string
	cashReceived  *decimal.Decimal
	customerName  string
	customerPhone string
}

// CreateSale validates the request, then reserves stock, prices every line,
// allocates the invoice number and persists the sale inside one transaction.
// A lost invoice number race restarts the whole attempt with a fresh
// transaction, up to the configured retry limit.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResult, error) {
	startedAt := time.Now()
	trace := xid.New("sale")

	actor, err := requireActor(ctx)
	if err != nil {
		s.metrics.SaleFinished(StageValidating, time.Since(startedAt))
		return domain.SaleResult{}, err
	}
	in, err := s.validateSaleRequest(req)
	if err != nil {
		s.metrics.SaleFinished(StageValidating, time.Since(startedAt))
		return domain.SaleResult{}, err
	}

	var (
		result domain.SaleResult
		stage  string
	)
	for attempt := 1; ; attempt++ {
		result, stage, err = s.commitSale(ctx, actor, in)
		if err == nil {
			break
		}
		var conflict *store.ConflictError
		retryable := errors.As(err, &conflict) && !errors.Is(err, invoice.ErrSequenceExhausted)
		if !retryable {
			break
		}
		s.metrics.InvoiceConflict()
		if attempt >= s.retryLimit {
			err = &store.ConflictError{Op: fmt.Sprintf("create sale after %d attempts", attempt), Err: err}
			break
		}
		log.Printf("[sale] %s conflict at %s (attempt %d/%d), retrying: %v", trace, stage, attempt, s.retryLimit, err)
		if waitErr := sleepContext(ctx, time.Duration(attempt)*s.retryBackoff); waitErr != nil {
			err = &store.PersistenceError{Op: "create sale", Err: waitErr}
			break
		}
	}

	if err != nil {
		s.metrics.SaleFinished(stage, time.Since(startedAt))
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrPersistence) {
			log.Printf("[sale] %s rolled back at %s: %v", trace, stage, err)
		}
		return domain.SaleResult{}, err
	}

	s.metrics.SaleFinished(StageCommitted, time.Since(startedAt))
	log.Printf("[sale] %s committed sale=%d invoice=%s user=%d", trace, result.SaleID, result.InvoiceNumber, actor.UserID)
	return result, nil
}

func (s *Service) commitSale(ctx context.Context, actor domain.Actor, in saleInput) (domain.SaleResult, string, error) {
	stage := StageValidating
	var result domain.SaleResult

	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		products := make([]domain.Product, len(in.items))
		for i, item := range in.items {
			product, err := tx.GetProduct(ctx, item.productID)
			if err != nil {
				return err
			}
			products[i] = product
		}

		stage = StageReserving
		allocations := make([][]ledger.Allocation, len(in.items))
		for i, item := range in.items {
			allocs, err := s.ledger.Reserve(ctx, tx, item.productID, item.quantity)
			if err != nil {
				return err
			}
			allocations[i] = allocs
		}

		stage = StagePricing
		amounts := make([]pricing.LineAmounts, len(in.items))
		lines := make([]domain.SaleLine, len(in.items))
		for i, item := range in.items {
			product := products[i]
			// A zero request price means the till charges the catalog price.
			charged := product.UnitPrice
			if !item.unitPrice.IsZero() {
				charged = pricing.Round(item.unitPrice)
			}
			amounts[i] = pricing.Line(pricing.LineInput{
				Quantity:           item.quantity,
				UnitPrice:          charged,
				DiscountPercentage: item.discount,
				VATPercentage:      in.vat,
			})
			lines[i] = domain.SaleLine{
				ProductID:                  product.ID,
				ProductName:                product.Name,
				Quantity:                   item.quantity,
				OriginalUnitPrice:          product.UnitPrice,
				UnitPrice:                  charged,
				UnitPriceAfterDiscount:     amounts[i].UnitPriceAfterDiscount,
				DiscountPercentage:         item.discount,
				VATPercentage:              in.vat,
				LineSubtotalBeforeDiscount: amounts[i].SubtotalBeforeDiscount,
				LineDiscountAmount:         amounts[i].DiscountAmount,
				LineSubtotalAfterDiscount:  amounts[i].SubtotalAfterDiscount,
				LineVATAmount:              amounts[i].VATAmount,
				LineFinalTotal:             amounts[i].FinalTotal,
			}
		}
		totals := pricing.Sum(amounts)

		var cashReceived, change decimal.NullDecimal
		if in.paymentMethod == domain.PaymentCash {
			if in.cashReceived == nil {
				return store.Invalid("cashReceived", "required for cash payments")
			}
			if in.cashReceived.LessThan(totals.FinalTotal) {
				return store.Invalid("cashReceived", fmt.Sprintf("%s is less than the total due %s", in.cashReceived.StringFixed(2), totals.FinalTotal.StringFixed(2)))
			}
			cashReceived = decimal.NewNullDecimal(*in.cashReceived)
			change = decimal.NewNullDecimal(in.cashReceived.Sub(totals.FinalTotal))
		}

		stage = StageAllocating
		at := s.now().UTC()
		number, err := s.allocator.Allocate(ctx, tx, at)
		if err != nil {
			return err
		}

		stage = StagePersisting
		sale := domain.Sale{
			InvoiceNumber:           number,
			UserID:                  actor.UserID,
			SaleDate:                at,
			PaymentMethod:           in.paymentMethod,
			CashReceived:            cashReceived,
			Change:                  change,
			CustomerName:            in.customerName,
			CustomerPhone:           in.customerPhone,
			SubtotalBeforeDiscount:  totals.SubtotalBeforeDiscount,
			TotalDiscountAmount:     totals.DiscountAmount,
			TotalDiscountPercentage: totals.DiscountPercentage,
			SubtotalAfterDiscount:   totals.SubtotalAfterDiscount,
			TotalVATAmount:          totals.VATAmount,
			VATPercentage:           in.vat,
			FinalTotal:              totals.FinalTotal,
			CreatedAt:               at,
			Lines:                   lines,
		}
		if err := tx.InsertSale(ctx, &sale); err != nil {
			return err
		}
		for i, allocs := range allocations {
			for _, alloc := range allocs {
				err := tx.RecordInventoryTransaction(ctx, domain.InventoryTransaction{
					BatchID:         alloc.BatchID,
					ProductID:       in.items[i].productID,
					Type:            domain.MovementSale,
					Quantity:        -alloc.Quantity,
					ReferenceNumber: number,
					UserID:          actor.UserID,
					CreatedAt:       at,
				})
				if err != nil {
					return err
				}
			}
		}

		result = domain.SaleResult{
			SaleID:        sale.ID,
			InvoiceNumber: number,
			FinalTotal:    totals.FinalTotal,
			Change:        change,
		}
		return nil
	})
	if err != nil {
		return domain.SaleResult{}, stage, err
	}
	return result, StageCommitted, nil
}

func (s *Service) validateSaleRequest(req domain.SaleRequest) (saleInput, error) {
	if len(req.Items) == 0 {
		return saleInput{}, store.Invalid("items", "at least one item is required")
	}

	items := make([]saleItem, 0, len(req.Items))
	index := make(map[int64]int, len(req.Items))
	for i, raw := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if raw.ProductID <= 0 {
			return saleInput{}, store.Invalid(field+".productId", "must be a positive id")
		}
		if raw.Quantity <= 0 {
			return saleInput{}, store.Invalid(field+".quantity", "must be greater than zero")
		}
		if raw.UnitPrice.IsNegative() {
			return saleInput{}, store.Invalid(field+".unitPrice", "must not be negative")
		}
		if !pricing.ValidPercentage(raw.DiscountPercentage) {
			return saleInput{}, store.Invalid(field+".discountPercentage", "must be between 0 and 100")
		}

		item := saleItem{
			productID: raw.ProductID,
			quantity:  raw.Quantity,
			unitPrice: raw.UnitPrice,
			discount:  raw.DiscountPercentage,
		}
		if at, seen := index[item.productID]; seen {
			prev := &items[at]
			if !prev.unitPrice.Equal(item.unitPrice) || !prev.discount.Equal(item.discount) {
				return saleInput{}, store.Invalid(field, fmt.Sprintf("product %d appears twice with different price or discount", item.productID))
			}
			prev.quantity += item.quantity
			continue
		}
		index[item.productID] = len(items)
		items = append(items, item)
	}

	vat := s.defaultVAT
	if req.VATPercentage != nil {
		vat = *req.VATPercentage
	}
	if !pricing.ValidPercentage(vat) {
		return saleInput{}, store.Invalid("vatPercentage", "must be between 0 and 100")
	}

	method, err := normalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return saleInput{}, err
	}
	if req.CashReceived != nil && req.CashReceived.IsNegative() {
		return saleInput{}, store.Invalid("cashReceived", "must not be negative")
	}
	var cash *decimal.Decimal
	if method == domain.PaymentCash {
		cash = req.CashReceived
	}

	return saleInput{
		items:         items,
		vat:           vat,
		paymentMethod: method,
		cashReceived:  cash,
		customerName:  strings.TrimSpace(req.CustomerName),
		customerPhone: strings.TrimSpace(req.CustomerPhone),
	}, nil
}

func normalizePaymentMethod(method string) (string, error) {
	switch m := strings.ToLower(strings.TrimSpace(method)); m {
	case "":
		return domain.PaymentCash, nil
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentTransfer:
		return m, nil
	default:
		return "", store.Invalid("paymentMethod", fmt.Sprintf("unsupported payment method %q", method))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, clampLimit(limit, 100, 500))
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	if id <= 0 {
		return domain.Sale{}, store.Invalid("id", "must be a positive id")
	}
	return s.repo.GetSale(ctx, id)
}

// ScanBarcode resolves a barcode at the till. Products without sellable stock
// are reported as insufficient stock.
func (s *Service) ScanBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, store.Invalid("barcode", "is required")
	}
	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	batches, err := s.repo.ListBatches(ctx, product.ID)
	if err != nil {
		return domain.Product{}, err
	}
	available := s.ledger.Available(batches)
	if available < 1 {
		return domain.Product{}, &store.InsufficientStockError{ProductID: product.ID, Requested: 1, Available: 0}
	}
	product.Quantity = available
	return product, nil
}
