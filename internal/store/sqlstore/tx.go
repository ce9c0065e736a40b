package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
)

type txStore struct {
	tx      *sqlx.Tx
	dialect dialect
}

var _ store.Tx = (*txStore)(nil)

const batchColumns = `id, product_id, quantity, expiration_date, created_at`

func (t *txStore) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return getProduct(ctx, t.tx, t.dialect, id)
}

func (t *txStore) ListBatches(ctx context.Context, productID int64) ([]domain.ProductBatch, error) {
	return t.listBatches(ctx, productID, true)
}

func (t *txStore) ListAllBatches(ctx context.Context, productID int64) ([]domain.ProductBatch, error) {
	return t.listBatches(ctx, productID, false)
}

func (t *txStore) listBatches(ctx context.Context, productID int64, stockedOnly bool) ([]domain.ProductBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM product_batches WHERE product_id = ?`
	if stockedOnly {
		query += ` AND quantity > 0`
	}
	query += ` ORDER BY id`
	if t.dialect.driver == DriverPostgres {
		query += ` FOR UPDATE`
	}
	batches := make([]domain.ProductBatch, 0, 4)
	if err := t.tx.SelectContext(ctx, &batches, t.dialect.rebind(query), productID); err != nil {
		return nil, classify("list batches", err)
	}
	return batches, nil
}

func (t *txStore) CreateBatch(ctx context.Context, batch domain.ProductBatch) (domain.ProductBatch, error) {
	createdAt := nowUTC()
	id, err := insertReturningID(ctx, t.tx, "create batch", t.dialect.rebind(`
		INSERT INTO product_batches (product_id, quantity, expiration_date, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), batch.ProductID, batch.Quantity, nullTime(batch.ExpirationDate), createdAt)
	if err != nil {
		return domain.ProductBatch{}, err
	}
	batch.ID = id
	batch.CreatedAt = createdAt
	return batch, nil
}

func (t *txStore) DecrementBatch(ctx context.Context, batchID int64, qty int) (bool, error) {
	n, err := execAffected(ctx, t.tx, "decrement batch", t.dialect.rebind(`
		UPDATE product_batches SET quantity = quantity - ? WHERE id = ? AND quantity >= ?
	`), qty, batchID, qty)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *txStore) IncrementBatch(ctx context.Context, batchID int64, qty int) error {
	n, err := execAffected(ctx, t.tx, "increment batch", t.dialect.rebind(`
		UPDATE product_batches SET quantity = quantity + ? WHERE id = ?
	`), qty, batchID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.NotFound("batch", batchID)
	}
	return nil
}

func (t *txStore) RecordInventoryTransaction(ctx context.Context, m domain.InventoryTransaction) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = nowUTC()
	}
	_, err := t.tx.ExecContext(ctx, t.dialect.rebind(`
		INSERT INTO inventory_transactions (batch_id, product_id, type, quantity, reference_number, notes, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), m.BatchID, m.ProductID, m.Type, m.Quantity, m.ReferenceNumber, m.Notes, m.UserID, createdAt.UTC())
	return classify("record inventory transaction", err)
}

func (t *txStore) LastInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := t.tx.GetContext(ctx, &number, t.dialect.rebind(`
		SELECT invoice_number FROM sales
		WHERE invoice_number LIKE ?
		ORDER BY invoice_number DESC
		LIMIT 1
	`), prefix+"%")
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", classify("read last invoice number", err)
	}
	return number, nil
}

func (t *txStore) InsertSale(ctx context.Context, sale *domain.Sale) error {
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = nowUTC()
	}
	saleID, err := insertReturningID(ctx, t.tx, "insert sale", t.dialect.rebind(`
		INSERT INTO sales (
			invoice_number, user_id, sale_date, payment_method, cash_received, change_amount,
			customer_name, customer_phone, subtotal_before_discount, total_discount_amount,
			total_discount_percentage, subtotal_after_discount, total_vat_amount, vat_percentage,
			final_total, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		sale.InvoiceNumber,
		sale.UserID,
		sale.SaleDate.UTC(),
		sale.PaymentMethod,
		sale.CashReceived,
		sale.Change,
		sale.CustomerName,
		sale.CustomerPhone,
		sale.SubtotalBeforeDiscount,
		sale.TotalDiscountAmount,
		sale.TotalDiscountPercentage,
		sale.SubtotalAfterDiscount,
		sale.TotalVATAmount,
		sale.VATPercentage,
		sale.FinalTotal,
		sale.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	sale.ID = saleID

	lineQuery := t.dialect.rebind(`
		INSERT INTO sale_lines (
			sale_id, product_id, product_name, quantity, original_unit_price, unit_price,
			unit_price_after_discount, discount_percentage, vat_percentage,
			line_subtotal_before_discount, line_discount_amount, line_subtotal_after_discount,
			line_vat_amount, line_final_total
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	for i := range sale.Lines {
		line := &sale.Lines[i]
		line.SaleID = saleID
		lineID, err := insertReturningID(ctx, t.tx, "insert sale line", lineQuery,
			line.SaleID,
			line.ProductID,
			line.ProductName,
			line.Quantity,
			line.OriginalUnitPrice,
			line.UnitPrice,
			line.UnitPriceAfterDiscount,
			line.DiscountPercentage,
			line.VATPercentage,
			line.LineSubtotalBeforeDiscount,
			line.LineDiscountAmount,
			line.LineSubtotalAfterDiscount,
			line.LineVATAmount,
			line.LineFinalTotal,
		)
		if err != nil {
			return err
		}
		line.ID = lineID
	}

	inv := domain.Invoice{
		InvoiceNumber: sale.InvoiceNumber,
		SaleID:        saleID,
		Status:        domain.InvoiceStatusGenerated,
		CreatedAt:     sale.CreatedAt,
	}
	invoiceID, err := insertReturningID(ctx, t.tx, "insert invoice", t.dialect.rebind(`
		INSERT INTO invoices (invoice_number, sale_id, status, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), inv.InvoiceNumber, inv.SaleID, inv.Status, inv.CreatedAt.UTC())
	if err != nil {
		return err
	}
	inv.ID = invoiceID
	sale.Invoice = &inv
	return nil
}
