package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

const (
	MovementSale     = "Sale"
	MovementReceive  = "Receive"
	MovementRestock  = "Restock"
	MovementSpoilage = "Spoilage"
)

const InvoiceStatusGenerated = "Generated"

type Actor struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Brand struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type BrandRequest struct {
	Name string `json:"name"`
}

type Supplier struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	ContactName string    `db:"contact_name" json:"contactName"`
	Phone       string    `db:"phone" json:"phone"`
	Email       string    `db:"email" json:"email"`
	Address     string    `db:"address" json:"address"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type SupplierCreateRequest struct {
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

// Product carries the catalog row plus the available quantity summed over
// its batches.
type Product struct {
	ID                 int64           `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	Barcode            string          `db:"barcode" json:"barcode"`
	ImageURL           string          `db:"image_url" json:"imageUrl"`
	CategoryID         *int64          `db:"category_id" json:"categoryId"`
	BrandID            *int64          `db:"brand_id" json:"brandId"`
	SupplierID         *int64          `db:"supplier_id" json:"supplierId"`
	UnitPrice          decimal.Decimal `db:"unit_price" json:"unitPrice"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discountPercentage"`
	ReorderLevel       int             `db:"reorder_level" json:"reorderLevel"`
	Quantity           int             `db:"quantity" json:"quantity"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
}

type ProductRequest struct {
	Name               string          `json:"name"`
	Barcode            string          `json:"barcode"`
	ImageURL           string          `json:"imageUrl"`
	CategoryID         *int64          `json:"categoryId"`
	BrandID            *int64          `json:"brandId"`
	SupplierID         *int64          `json:"supplierId"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	ReorderLevel       int             `json:"reorderLevel"`
}

type ProductFilter struct {
	Search     string
	CategoryID int64
	BrandID    int64
	Limit      int
}

type ProductBatch struct {
	ID             int64      `db:"id" json:"id"`
	ProductID      int64      `db:"product_id" json:"productId"`
	Quantity       int        `db:"quantity" json:"quantity"`
	ExpirationDate *time.Time `db:"expiration_date" json:"expirationDate"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

type InventoryTransaction struct {
	ID              int64     `db:"id" json:"id"`
	BatchID         int64     `db:"batch_id" json:"batchId"`
	ProductID       int64     `db:"product_id" json:"productId"`
	Type            string    `db:"type" json:"type"`
	Quantity        int       `db:"quantity" json:"quantity"`
	ReferenceNumber string    `db:"reference_number" json:"referenceNumber"`
	Notes           string    `db:"notes" json:"notes"`
	UserID          int64     `db:"user_id" json:"userId"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

type InventoryItem struct {
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	Barcode      string          `json:"barcode"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	ReorderLevel int             `json:"reorderLevel"`
	LowStock     bool            `json:"lowStock"`
	Batches      []ProductBatch  `json:"batches"`
}

type BatchReceiveRequest struct {
	ProductID      int64      `json:"productId"`
	Quantity       int        `json:"quantity"`
	ExpirationDate *time.Time `json:"expirationDate"`
	Notes          string     `json:"notes"`
}

type StockAdjustRequest struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"referenceNumber"`
	Notes     string `json:"notes"`
}

type SaleItemRequest struct {
	ProductID          int64           `json:"productId"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

type SaleRequest struct {
	Items         []SaleItemRequest `json:"items"`
	PaymentMethod string            `json:"paymentMethod"`
	CashReceived  *decimal.Decimal  `json:"cashReceived,omitempty"`
	VATPercentage *decimal.Decimal  `json:"vatPercentage,omitempty"`
	CustomerName  string            `json:"customerName"`
	CustomerPhone string            `json:"customerPhone"`
}

type SaleResult struct {
	SaleID        int64               `json:"saleId"`
	InvoiceNumber string              `json:"invoiceNumber"`
	FinalTotal    decimal.Decimal     `json:"finalTotal"`
	Change        decimal.NullDecimal `json:"change"`
}

type Sale struct {
	ID                      int64               `db:"id" json:"id"`
	InvoiceNumber           string              `db:"invoice_number" json:"invoiceNumber"`
	UserID                  int64               `db:"user_id" json:"userId"`
	SaleDate                time.Time           `db:"sale_date" json:"saleDate"`
	PaymentMethod           string              `db:"payment_method" json:"paymentMethod"`
	CashReceived            decimal.NullDecimal `db:"cash_received" json:"cashReceived"`
	Change                  decimal.NullDecimal `db:"change_amount" json:"change"`
	CustomerName            string              `db:"customer_name" json:"customerName"`
	CustomerPhone           string              `db:"customer_phone" json:"customerPhone"`
	SubtotalBeforeDiscount  decimal.Decimal     `db:"subtotal_before_discount" json:"subtotalBeforeDiscount"`
	TotalDiscountAmount     decimal.Decimal     `db:"total_discount_amount" json:"totalDiscountAmount"`
	TotalDiscountPercentage decimal.Decimal     `db:"total_discount_percentage" json:"totalDiscountPercentage"`
	SubtotalAfterDiscount   decimal.Decimal     `db:"subtotal_after_discount" json:"subtotalAfterDiscount"`
	TotalVATAmount          decimal.Decimal     `db:"total_vat_amount" json:"totalVatAmount"`
	VATPercentage           decimal.Decimal     `db:"vat_percentage" json:"vatPercentage"`
	FinalTotal              decimal.Decimal     `db:"final_total" json:"finalTotal"`
	CreatedAt               time.Time           `db:"created_at" json:"createdAt"`
	Lines                   []SaleLine          `db:"-" json:"lines,omitempty"`
	Invoice                 *Invoice            `db:"-" json:"invoice,omitempty"`
}

type SaleLine struct {
	ID                         int64           `db:"id" json:"id"`
	SaleID                     int64           `db:"sale_id" json:"saleId"`
	ProductID                  int64           `db:"product_id" json:"productId"`
	ProductName                string          `db:"product_name" json:"productName"`
	Quantity                   int             `db:"quantity" json:"quantity"`
	OriginalUnitPrice          decimal.Decimal `db:"original_unit_price" json:"originalUnitPrice"`
	UnitPrice                  decimal.Decimal `db:"unit_price" json:"unitPrice"`
	UnitPriceAfterDiscount     decimal.Decimal `db:"unit_price_after_discount" json:"unitPriceAfterDiscount"`
	DiscountPercentage         decimal.Decimal `db:"discount_percentage" json:"discountPercentage"`
	VATPercentage              decimal.Decimal `db:"vat_percentage" json:"vatPercentage"`
	LineSubtotalBeforeDiscount decimal.Decimal `db:"line_subtotal_before_discount" json:"lineSubtotalBeforeDiscount"`
	LineDiscountAmount         decimal.Decimal `db:"line_discount_amount" json:"lineDiscountAmount"`
	LineSubtotalAfterDiscount  decimal.Decimal `db:"line_subtotal_after_discount" json:"lineSubtotalAfterDiscount"`
	LineVATAmount              decimal.Decimal `db:"line_vat_amount" json:"lineVatAmount"`
	LineFinalTotal             decimal.Decimal `db:"line_final_total" json:"lineFinalTotal"`
}

type Invoice struct {
	ID            int64     `db:"id" json:"id"`
	InvoiceNumber string    `db:"invoice_number" json:"invoiceNumber"`
	SaleID        int64     `db:"sale_id" json:"saleId"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"createdDate"`
}

// InvoiceSummary is the list row for the invoice browser.
type InvoiceSummary struct {
	InvoiceNumber string          `db:"invoice_number" json:"invoiceNumber"`
	SaleID        int64           `db:"sale_id" json:"saleId"`
	Status        string          `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"createdDate"`
	CustomerName  string          `db:"customer_name" json:"customerName"`
	PaymentMethod string          `db:"payment_method" json:"paymentMethod"`
	FinalTotal    decimal.Decimal `db:"final_total" json:"finalTotal"`
}

type InvoiceFilter struct {
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
}

type InvoiceLookup struct {
	InvoiceNumber string `json:"invoiceNumber"`
	SaleID        int64  `json:"saleId"`
}

type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	FullName     string    `db:"full_name" json:"fullName"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserUpdateRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}
