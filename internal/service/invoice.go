package service

import (
	"context"
	"log"
	"strings"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/invoice"
	"grocermate/backend/internal/store"
)

func (s *Service) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.InvoiceSummary, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	switch filter.SortBy = strings.ToLower(strings.TrimSpace(filter.SortBy)); filter.SortBy {
	case "":
		filter.SortBy = "date"
	case "date", "number", "amount":
	default:
		return nil, store.Invalid("sortBy", "must be one of date, number, amount")
	}
	switch filter.SortOrder = strings.ToLower(strings.TrimSpace(filter.SortOrder)); filter.SortOrder {
	case "":
		filter.SortOrder = "desc"
	case "asc", "desc":
	default:
		return nil, store.Invalid("sortOrder", "must be asc or desc")
	}
	filter.Limit = clampLimit(filter.Limit, 100, 500)
	return s.repo.ListInvoices(ctx, filter)
}

// GetInvoiceDetails returns the sale an invoice was printed for.
func (s *Service) GetInvoiceDetails(ctx context.Context, saleID int64) (domain.Sale, error) {
	return s.GetSale(ctx, saleID)
}

// ScanInvoice resolves a printed invoice number to its sale. Hits are served
// from the invoice cache; a cache outage only costs a database read.
func (s *Service) ScanInvoice(ctx context.Context, number string) (domain.InvoiceLookup, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if !invoice.Valid(number) {
		return domain.InvoiceLookup{}, store.Invalid("invoiceNumber", "must look like INVyyyyMMddNNNNNN")
	}

	lookup, hit, err := s.invoiceCache.Get(ctx, number)
	if err != nil {
		log.Printf("[invoice] WARN: cache get %s: %v", number, err)
	}
	if !hit || lookup == nil {
		inv, err := s.repo.GetInvoiceByNumber(ctx, number)
		if err != nil {
			return domain.InvoiceLookup{}, err
		}
		lookup = &domain.InvoiceLookup{InvoiceNumber: inv.InvoiceNumber, SaleID: inv.SaleID}
		if err := s.invoiceCache.Set(ctx, number, lookup, s.cacheTTL); err != nil {
			log.Printf("[invoice] WARN: cache set %s: %v", number, err)
		}
	}
	return *lookup, nil
}
