package store

import (
	"context"

	"grocermate/backend/internal/domain"
)

// Repository is the persistence boundary used by the service layer. Stock and
// invoice sequence mutations only happen through InTx.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListBrands(ctx context.Context) ([]domain.Brand, error)
	GetBrand(ctx context.Context, id int64) (domain.Brand, error)
	CreateBrand(ctx context.Context, brand domain.Brand) (domain.Brand, error)
	UpdateBrand(ctx context.Context, brand domain.Brand) (domain.Brand, error)
	DeleteBrand(ctx context.Context, id int64) error

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (domain.Supplier, error)

	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListBatches(ctx context.Context, productID int64) ([]domain.ProductBatch, error)
	ListInventoryTransactions(ctx context.Context, productID int64, limit int) ([]domain.InventoryTransaction, error)

	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	GetSale(ctx context.Context, id int64) (domain.Sale, error)
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.InvoiceSummary, error)
	GetInvoiceByNumber(ctx context.Context, number string) (domain.Invoice, error)

	CountUsers(ctx context.Context) (int, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Tx is the unit of work handed to InTx callbacks. Every write made through a
// Tx is committed together or not at all.
type Tx interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	// ListBatches returns the product's batches that still hold stock.
	ListBatches(ctx context.Context, productID int64) ([]domain.ProductBatch, error)
	// ListAllBatches also returns emptied batches.
	ListAllBatches(ctx context.Context, productID int64) ([]domain.ProductBatch, error)
	CreateBatch(ctx context.Context, batch domain.ProductBatch) (domain.ProductBatch, error)
	// DecrementBatch removes qty from the batch only if it still holds at
	// least qty. It reports false when the guard rejected the update.
	DecrementBatch(ctx context.Context, batchID int64, qty int) (bool, error)
	IncrementBatch(ctx context.Context, batchID int64, qty int) error
	RecordInventoryTransaction(ctx context.Context, movement domain.InventoryTransaction) error

	// LastInvoiceNumber returns the greatest committed invoice number that
	// starts with prefix, or "" when none exists.
	LastInvoiceNumber(ctx context.Context, prefix string) (string, error)
	// InsertSale writes the sale, its lines and its invoice, filling in the
	// generated ids.
	InsertSale(ctx context.Context, sale *domain.Sale) error
}
