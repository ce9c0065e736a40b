package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/service"
)

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.service.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, categories)
}

func (a *API) handleCategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	products, err := a.service.CategoryProducts(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, products)
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	category, err := a.service.CreateCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, category)
}

func (a *API) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req domain.CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	category, err := a.service.UpdateCategory(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, category)
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := a.service.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (a *API) handleListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := a.service.ListBrands(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, brands)
}

func (a *API) handleCreateBrand(w http.ResponseWriter, r *http.Request) {
	var req domain.BrandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	brand, err := a.service.CreateBrand(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, brand)
}

func (a *API) handleUpdateBrand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req domain.BrandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	brand, err := a.service.UpdateBrand(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, brand)
}

func (a *API) handleDeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := a.service.DeleteBrand(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (a *API) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := a.service.ListSuppliers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, suppliers)
}

func (a *API) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	supplier, err := a.service.CreateSupplier(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, supplier)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryID(r, "categoryId")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	brandID, err := queryID(r, "brandId")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	products, err := a.service.ListProducts(r.Context(), domain.ProductFilter{
		Search:     r.URL.Query().Get("search"),
		CategoryID: categoryID,
		BrandID:    brandID,
		Limit:      parsePositiveLimit(r.URL.Query().Get("limit"), 200, 1000),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, products)
}

func (a *API) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, products)
}

func (a *API) handleProductByBarcode(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProductByBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	product, err := a.service.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req domain.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := a.service.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListInventory(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.LowStock(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (a *API) handleInventoryTransactions(w http.ResponseWriter, r *http.Request) {
	productID, err := queryID(r, "productId")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	movements, err := a.service.ListInventoryTransactions(r.Context(), productID, parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, movements)
}

func (a *API) handleReceiveBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchReceiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	batch, err := a.service.ReceiveBatch(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, batch)
}

func (a *API) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	movement, err := a.service.Restock(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, movement)
}

func (a *API) handleSpoilage(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	movements, err := a.service.RecordSpoilage(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, movements)
}

// handleCreateSale answers with the sale identity at the top level, next to
// success, so tills can print without unwrapping.
func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := map[string]any{
		"success":       true,
		"saleId":        result.SaleID,
		"invoiceNumber": result.InvoiceNumber,
		"finalTotal":    result.FinalTotal.StringFixed(2),
	}
	if result.Change.Valid {
		payload["change"] = result.Change.Decimal.StringFixed(2)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := a.service.ListSales(r.Context(), parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, sales)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sale, err := a.service.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, sale)
}

func (a *API) handleScanBarcode(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.ScanBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

func (a *API) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	invoices, err := a.service.ListInvoices(r.Context(), domain.InvoiceFilter{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Limit:     parsePositiveLimit(q.Get("limit"), 100, 500),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, invoices)
}

func (a *API) handleScanInvoice(w http.ResponseWriter, r *http.Request) {
	lookup, err := a.service.ScanInvoice(r.Context(), chi.URLParam(r, "invoiceNumber"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, lookup)
}

func (a *API) handleInvoiceDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "saleId")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sale, err := a.service.GetInvoiceDetails(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, sale)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, a.auth.Roles())
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	user, err := a.auth.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.auth.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req domain.UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.auth.UpdateUser(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	actor, _ := service.ActorFromContext(r.Context())
	if err := a.auth.DeleteUser(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}
