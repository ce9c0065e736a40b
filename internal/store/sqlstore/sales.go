package sqlstore

import (
	"context"
	"sort"
	"strings"

	"grocermate/backend/internal/domain"
)

const saleColumns = `
	id, invoice_number, user_id, sale_date, payment_method, cash_received, change_amount,
	customer_name, customer_phone, subtotal_before_discount, total_discount_amount,
	total_discount_percentage, subtotal_after_discount, total_vat_amount, vat_percentage,
	final_total, created_at`

func (s *Store) ListBatches(ctx context.Context, productID int64) ([]domain.ProductBatch, error) {
	batches := make([]domain.ProductBatch, 0, 8)
	err := s.db.SelectContext(ctx, &batches, s.dialect.rebind(`
		SELECT `+batchColumns+` FROM product_batches WHERE product_id = ? ORDER BY created_at, id
	`), productID)
	if err != nil {
		return nil, classify("list batches", err)
	}
	return batches, nil
}

func (s *Store) ListInventoryTransactions(ctx context.Context, productID int64, limit int) ([]domain.InventoryTransaction, error) {
	query := `SELECT id, batch_id, product_id, type, quantity, reference_number, notes, user_id, created_at FROM inventory_transactions`
	args := make([]any, 0, 2)
	if productID > 0 {
		query += ` WHERE product_id = ?`
		args = append(args, productID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	movements := make([]domain.InventoryTransaction, 0, 32)
	if err := s.db.SelectContext(ctx, &movements, s.dialect.rebind(query), args...); err != nil {
		return nil, classify("list inventory transactions", err)
	}
	return movements, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales ORDER BY sale_date DESC, id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	sales := make([]domain.Sale, 0, 32)
	if err := s.db.SelectContext(ctx, &sales, s.dialect.rebind(query), args...); err != nil {
		return nil, classify("list sales", err)
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	var sale domain.Sale
	if err := getOne(ctx, s.db, &sale, "sale", id, s.dialect.rebind(`SELECT `+saleColumns+` FROM sales WHERE id = ?`), id); err != nil {
		return domain.Sale{}, err
	}

	lines := make([]domain.SaleLine, 0, 8)
	err := s.db.SelectContext(ctx, &lines, s.dialect.rebind(`
		SELECT id, sale_id, product_id, product_name, quantity, original_unit_price, unit_price,
			unit_price_after_discount, discount_percentage, vat_percentage,
			line_subtotal_before_discount, line_discount_amount, line_subtotal_after_discount,
			line_vat_amount, line_final_total
		FROM sale_lines
		WHERE sale_id = ?
		ORDER BY id
	`), id)
	if err != nil {
		return domain.Sale{}, classify("list sale lines", err)
	}
	sale.Lines = lines

	var inv domain.Invoice
	if err := getOne(ctx, s.db, &inv, "invoice", id, s.dialect.rebind(`
		SELECT id, invoice_number, sale_id, status, created_at FROM invoices WHERE sale_id = ?
	`), id); err != nil {
		return domain.Sale{}, err
	}
	sale.Invoice = &inv
	return sale, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.InvoiceSummary, error) {
	query := `
		SELECT i.invoice_number AS invoice_number, i.sale_id AS sale_id, i.status AS status,
			i.created_at AS created_at, s.customer_name AS customer_name,
			s.payment_method AS payment_method, s.final_total AS final_total
		FROM invoices i
		JOIN sales s ON s.id = i.sale_id`
	args := make([]any, 0, 3)
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		query += ` WHERE LOWER(i.invoice_number) LIKE ? OR LOWER(s.customer_name) LIKE ?`
		args = append(args, "%"+search+"%", "%"+search+"%")
	}

	desc := !strings.EqualFold(filter.SortOrder, "asc")
	direction := " DESC"
	if !desc {
		direction = " ASC"
	}
	switch strings.ToLower(filter.SortBy) {
	case "number":
		query += ` ORDER BY i.invoice_number` + direction
	default:
		query += ` ORDER BY i.created_at` + direction + `, i.id` + direction
	}

	byAmount := strings.EqualFold(filter.SortBy, "amount")
	if filter.Limit > 0 && !byAmount {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	invoices := make([]domain.InvoiceSummary, 0, 32)
	if err := s.db.SelectContext(ctx, &invoices, s.dialect.rebind(query), args...); err != nil {
		return nil, classify("list invoices", err)
	}

	// Money is stored as text on SQLite, so amount ordering happens here.
	if byAmount {
		sort.SliceStable(invoices, func(i, j int) bool {
			if desc {
				return invoices[i].FinalTotal.GreaterThan(invoices[j].FinalTotal)
			}
			return invoices[i].FinalTotal.LessThan(invoices[j].FinalTotal)
		})
		if filter.Limit > 0 && len(invoices) > filter.Limit {
			invoices = invoices[:filter.Limit]
		}
	}
	return invoices, nil
}

func (s *Store) GetInvoiceByNumber(ctx context.Context, number string) (domain.Invoice, error) {
	var inv domain.Invoice
	err := getOne(ctx, s.db, &inv, "invoice", number, s.dialect.rebind(`
		SELECT id, invoice_number, sale_id, status, created_at FROM invoices WHERE invoice_number = ?
	`), number)
	return inv, err
}
