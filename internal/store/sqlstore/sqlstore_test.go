package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProduct(t *testing.T, s *Store, name string, price string, batchQty ...int) domain.Product {
	t.Helper()
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, domain.Product{
		Name:               name,
		Barcode:            name + "-code",
		UnitPrice:          decimal.RequireFromString(price),
		DiscountPercentage: decimal.Zero,
		ReorderLevel:       2,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	for _, qty := range batchQty {
		err := s.InTx(ctx, func(tx store.Tx) error {
			_, err := tx.CreateBatch(ctx, domain.ProductBatch{ProductID: p.ID, Quantity: qty})
			return err
		})
		if err != nil {
			t.Fatalf("create batch: %v", err)
		}
	}
	return p
}

func testSale(number string, productID int64) *domain.Sale {
	amount := decimal.RequireFromString("10.35")
	return &domain.Sale{
		InvoiceNumber:           number,
		UserID:                  1,
		SaleDate:                time.Now().UTC(),
		PaymentMethod:           domain.PaymentCash,
		CashReceived:            decimal.NewNullDecimal(decimal.RequireFromString("20")),
		Change:                  decimal.NewNullDecimal(decimal.RequireFromString("9.65")),
		SubtotalBeforeDiscount:  decimal.RequireFromString("10.00"),
		TotalDiscountAmount:     decimal.RequireFromString("1.00"),
		TotalDiscountPercentage: decimal.RequireFromString("10"),
		SubtotalAfterDiscount:   decimal.RequireFromString("9.00"),
		TotalVATAmount:          decimal.RequireFromString("1.35"),
		VATPercentage:           decimal.RequireFromString("15"),
		FinalTotal:              amount,
		Lines: []domain.SaleLine{{
			ProductID:                  productID,
			ProductName:                "milk",
			Quantity:                   2,
			OriginalUnitPrice:          decimal.RequireFromString("5.00"),
			UnitPrice:                  decimal.RequireFromString("5.00"),
			UnitPriceAfterDiscount:     decimal.RequireFromString("4.50"),
			DiscountPercentage:         decimal.RequireFromString("10"),
			VATPercentage:              decimal.RequireFromString("15"),
			LineSubtotalBeforeDiscount: decimal.RequireFromString("10.00"),
			LineDiscountAmount:         decimal.RequireFromString("1.00"),
			LineSubtotalAfterDiscount:  decimal.RequireFromString("9.00"),
			LineVATAmount:              decimal.RequireFromString("1.35"),
			LineFinalTotal:             amount,
		}},
	}
}

func TestProductQuantitySumsBatches(t *testing.T) {
	s := newTestStore(t)
	p := seedProduct(t, s, "milk", "5.00", 3, 4)

	got, err := s.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", got.Quantity)
	}
	if !got.UnitPrice.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected unit price 5, got %s", got.UnitPrice)
	}

	byCode, err := s.GetProductByBarcode(context.Background(), "milk-code")
	if err != nil || byCode.ID != p.ID {
		t.Fatalf("lookup by barcode failed: %v", err)
	}
}

func TestGetMissingProductIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProduct(context.Background(), 404)
	var nf *store.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "product" {
		t.Fatalf("expected product not found, got %v", err)
	}
}

func TestDecrementBatchGuardsNegativeStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "bread", "2.00", 2)

	err := s.InTx(ctx, func(tx store.Tx) error {
		batches, err := tx.ListBatches(ctx, p.ID)
		if err != nil {
			return err
		}
		if len(batches) != 1 {
			t.Fatalf("expected 1 batch, got %d", len(batches))
		}
		ok, err := tx.DecrementBatch(ctx, batches[0].ID, 3)
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("guard should reject decrement beyond stock")
		}
		ok, err = tx.DecrementBatch(ctx, batches[0].ID, 2)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("expected decrement of available stock to apply")
		}
		remaining, err := tx.ListBatches(ctx, p.ID)
		if err != nil {
			return err
		}
		if len(remaining) != 0 {
			t.Fatalf("empty batches must not be listed as sellable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "eggs", "3.00", 5)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Tx) error {
		batches, _ := tx.ListBatches(ctx, p.ID)
		if _, err := tx.DecrementBatch(ctx, batches[0].ID, 5); err != nil {
			return err
		}
		if err := tx.InsertSale(ctx, testSale("INV20240101000001", p.ID)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.GetProduct(ctx, p.ID)
	if got.Quantity != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got.Quantity)
	}
	sales, _ := s.ListSales(ctx, 0)
	if len(sales) != 0 {
		t.Fatalf("expected no sales after rollback, got %d", len(sales))
	}
}

func TestInsertSalePersistsLinesAndInvoice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "milk", "5.00", 5)
	sale := testSale("INV20240101000001", p.ID)

	if err := s.InTx(ctx, func(tx store.Tx) error { return tx.InsertSale(ctx, sale) }); err != nil {
		t.Fatalf("insert sale: %v", err)
	}
	if sale.ID == 0 || sale.Invoice == nil || sale.Invoice.ID == 0 || sale.Lines[0].ID == 0 {
		t.Fatalf("expected generated ids, got %+v", sale)
	}

	got, err := s.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.InvoiceNumber != "INV20240101000001" || len(got.Lines) != 1 || got.Invoice.Status != domain.InvoiceStatusGenerated {
		t.Fatalf("unexpected sale: %+v", got)
	}
	if !got.FinalTotal.Equal(decimal.RequireFromString("10.35")) || !got.Change.Valid {
		t.Fatalf("unexpected totals: final=%s change=%v", got.FinalTotal, got.Change)
	}

	inv, err := s.GetInvoiceByNumber(ctx, "INV20240101000001")
	if err != nil || inv.SaleID != sale.ID {
		t.Fatalf("lookup invoice: %+v %v", inv, err)
	}
}

func TestDuplicateInvoiceNumberIsConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "milk", "5.00", 5)

	insert := func() error {
		return s.InTx(ctx, func(tx store.Tx) error { return tx.InsertSale(ctx, testSale("INV20240101000001", p.ID)) })
	}
	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := insert()
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	sales, _ := s.ListSales(ctx, 0)
	if len(sales) != 1 {
		t.Fatalf("expected exactly one sale, got %d", len(sales))
	}
}

func TestLastInvoiceNumberUsesPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "milk", "5.00", 5)

	for _, n := range []string{"INV20240101000001", "INV20240101000002", "INV20240102000001"} {
		number := n
		if err := s.InTx(ctx, func(tx store.Tx) error { return tx.InsertSale(ctx, testSale(number, p.ID)) }); err != nil {
			t.Fatalf("insert %s: %v", number, err)
		}
	}

	err := s.InTx(ctx, func(tx store.Tx) error {
		last, err := tx.LastInvoiceNumber(ctx, "INV20240101")
		if err != nil {
			return err
		}
		if last != "INV20240101000002" {
			t.Fatalf("expected INV20240101000002, got %q", last)
		}
		none, err := tx.LastInvoiceNumber(ctx, "INV20240103")
		if err != nil {
			return err
		}
		if none != "" {
			t.Fatalf("expected empty for unused day, got %q", none)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestDeleteReferencedProductIsRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "milk", "5.00", 5)
	if err := s.InTx(ctx, func(tx store.Tx) error { return tx.InsertSale(ctx, testSale("INV20240101000001", p.ID)) }); err != nil {
		t.Fatalf("insert sale: %v", err)
	}

	err := s.DeleteProduct(ctx, p.ID)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for referenced product, got %v", err)
	}

	unused := seedProduct(t, s, "flour", "1.00", 1)
	if err := s.DeleteProduct(ctx, unused.ID); err != nil {
		t.Fatalf("delete unused product: %v", err)
	}
	if err := s.DeleteProduct(ctx, unused.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListInvoicesSearchAndSort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "milk", "5.00", 5)

	amounts := map[string]string{
		"INV20240101000001": "30.00",
		"INV20240101000002": "5.00",
		"INV20240101000003": "12.50",
	}
	for number, amount := range amounts {
		sale := testSale(number, p.ID)
		sale.FinalTotal = decimal.RequireFromString(amount)
		if number == "INV20240101000002" {
			sale.CustomerName = "Alice"
		}
		if err := s.InTx(ctx, func(tx store.Tx) error { return tx.InsertSale(ctx, sale) }); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	byAmount, err := s.ListInvoices(ctx, domain.InvoiceFilter{SortBy: "amount", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byAmount) != 3 || byAmount[0].InvoiceNumber != "INV20240101000002" || byAmount[2].InvoiceNumber != "INV20240101000001" {
		t.Fatalf("unexpected amount order: %+v", byAmount)
	}

	byNumber, _ := s.ListInvoices(ctx, domain.InvoiceFilter{SortBy: "number"})
	if byNumber[0].InvoiceNumber != "INV20240101000003" {
		t.Fatalf("expected number desc order, got %s first", byNumber[0].InvoiceNumber)
	}

	found, _ := s.ListInvoices(ctx, domain.InvoiceFilter{Search: "alice"})
	if len(found) != 1 || found[0].CustomerName != "Alice" {
		t.Fatalf("expected search by customer to match one invoice, got %+v", found)
	}
}

func TestDuplicateUsernameIsConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := domain.User{Username: "maria", PasswordHash: "$2a$hash", Role: domain.RoleEmployee, Active: true}
	if _, err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, u); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	n, _ := s.CountUsers(ctx)
	if n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "dsn"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
