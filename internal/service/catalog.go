package service

import (
	"context"
	"errors"
	"strings"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/pricing"
	"grocermate/backend/internal/store"
)

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CategoryProducts(ctx context.Context, id int64) ([]domain.Product, error) {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, domain.ProductFilter{CategoryID: id})
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, store.Invalid("name", "is required")
	}
	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: name, Description: strings.TrimSpace(req.Description)})
	return created, duplicateAsInvalid(err, "name", "category already exists")
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, req domain.CategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, store.Invalid("name", "is required")
	}
	updated, err := s.repo.UpdateCategory(ctx, domain.Category{ID: id, Name: name, Description: strings.TrimSpace(req.Description)})
	return updated, duplicateAsInvalid(err, "name", "category already exists")
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	products, err := s.repo.ListProducts(ctx, domain.ProductFilter{CategoryID: id, Limit: 1})
	if err != nil {
		return err
	}
	if len(products) > 0 {
		return store.Invalid("id", "category still has products")
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.repo.ListBrands(ctx)
}

func (s *Service) CreateBrand(ctx context.Context, req domain.BrandRequest) (domain.Brand, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Brand{}, store.Invalid("name", "is required")
	}
	created, err := s.repo.CreateBrand(ctx, domain.Brand{Name: name})
	return created, duplicateAsInvalid(err, "name", "brand already exists")
}

func (s *Service) UpdateBrand(ctx context.Context, id int64, req domain.BrandRequest) (domain.Brand, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Brand{}, store.Invalid("name", "is required")
	}
	updated, err := s.repo.UpdateBrand(ctx, domain.Brand{ID: id, Name: name})
	return updated, duplicateAsInvalid(err, "name", "brand already exists")
}

func (s *Service) DeleteBrand(ctx context.Context, id int64) error {
	products, err := s.repo.ListProducts(ctx, domain.ProductFilter{BrandID: id, Limit: 1})
	if err != nil {
		return err
	}
	if len(products) > 0 {
		return store.Invalid("id", "brand still has products")
	}
	return s.repo.DeleteBrand(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Supplier{}, store.Invalid("name", "is required")
	}
	return s.repo.CreateSupplier(ctx, domain.Supplier{
		Name:        name,
		ContactName: strings.TrimSpace(req.ContactName),
		Phone:       strings.TrimSpace(req.Phone),
		Email:       strings.TrimSpace(req.Email),
		Address:     strings.TrimSpace(req.Address),
	})
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	filter.Limit = clampLimit(filter.Limit, 200, 1000)
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, store.Invalid("q", "is required")
	}
	return s.repo.ListProducts(ctx, domain.ProductFilter{Search: query, Limit: 50})
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, store.Invalid("barcode", "is required")
	}
	return s.repo.GetProductByBarcode(ctx, barcode)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	product, err := s.productFromRequest(ctx, req)
	if err != nil {
		return domain.Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	return created, duplicateAsInvalid(err, "barcode", "barcode already in use")
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductRequest) (domain.Product, error) {
	product, err := s.productFromRequest(ctx, req)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = id
	updated, err := s.repo.UpdateProduct(ctx, product)
	return updated, duplicateAsInvalid(err, "barcode", "barcode already in use")
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) productFromRequest(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, store.Invalid("name", "is required")
	}
	if req.UnitPrice.IsNegative() {
		return domain.Product{}, store.Invalid("unitPrice", "must not be negative")
	}
	if !pricing.ValidPercentage(req.DiscountPercentage) {
		return domain.Product{}, store.Invalid("discountPercentage", "must be between 0 and 100")
	}
	if req.ReorderLevel < 0 {
		return domain.Product{}, store.Invalid("reorderLevel", "must not be negative")
	}
	if id := req.CategoryID; id != nil && *id > 0 {
		if _, err := s.repo.GetCategory(ctx, *id); err != nil {
			return domain.Product{}, referenceError(err, "categoryId")
		}
	}
	if id := req.BrandID; id != nil && *id > 0 {
		if _, err := s.repo.GetBrand(ctx, *id); err != nil {
			return domain.Product{}, referenceError(err, "brandId")
		}
	}
	if id := req.SupplierID; id != nil && *id > 0 {
		if _, err := s.repo.GetSupplier(ctx, *id); err != nil {
			return domain.Product{}, referenceError(err, "supplierId")
		}
	}

	return domain.Product{
		Name:               name,
		Barcode:            strings.TrimSpace(req.Barcode),
		ImageURL:           strings.TrimSpace(req.ImageURL),
		CategoryID:         req.CategoryID,
		BrandID:            req.BrandID,
		SupplierID:         req.SupplierID,
		UnitPrice:          pricing.Round(req.UnitPrice),
		DiscountPercentage: req.DiscountPercentage,
		ReorderLevel:       req.ReorderLevel,
	}, nil
}

// referenceError turns a missing referenced row into a validation failure on
// the referencing field.
func referenceError(err error, field string) error {
	var nf *store.NotFoundError
	if errors.As(err, &nf) {
		return store.Invalid(field, nf.Error())
	}
	return err
}

func duplicateAsInvalid(err error, field string, reason string) error {
	if err != nil && errors.Is(err, store.ErrConflict) {
		return store.Invalid(field, reason)
	}
	return err
}
