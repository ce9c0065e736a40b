package sqlstore

import (
	"context"
	"strings"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
)

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := make([]domain.Category, 0, 32)
	err := s.db.SelectContext(ctx, &categories, `SELECT id, name, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, classify("list categories", err)
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	var c domain.Category
	err := getOne(ctx, s.db, &c, "category", id, s.dialect.rebind(`SELECT id, name, description, created_at FROM categories WHERE id = ?`), id)
	return c, err
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	id, err := insertReturningID(ctx, s.db, "create category", s.dialect.rebind(`
		INSERT INTO categories (name, description, created_at) VALUES (?, ?, ?) RETURNING id
	`), category.Name, category.Description, nowUTC())
	if err != nil {
		return domain.Category{}, err
	}
	return s.GetCategory(ctx, id)
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	n, err := execAffected(ctx, s.db, "update category", s.dialect.rebind(`
		UPDATE categories SET name = ?, description = ? WHERE id = ?
	`), category.Name, category.Description, category.ID)
	if err != nil {
		return domain.Category{}, err
	}
	if n == 0 {
		return domain.Category{}, store.NotFound("category", category.ID)
	}
	return s.GetCategory(ctx, category.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "categories", "category", id)
}

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	brands := make([]domain.Brand, 0, 32)
	if err := s.db.SelectContext(ctx, &brands, `SELECT id, name, created_at FROM brands ORDER BY name`); err != nil {
		return nil, classify("list brands", err)
	}
	return brands, nil
}

func (s *Store) GetBrand(ctx context.Context, id int64) (domain.Brand, error) {
	var b domain.Brand
	err := getOne(ctx, s.db, &b, "brand", id, s.dialect.rebind(`SELECT id, name, created_at FROM brands WHERE id = ?`), id)
	return b, err
}

func (s *Store) CreateBrand(ctx context.Context, brand domain.Brand) (domain.Brand, error) {
	id, err := insertReturningID(ctx, s.db, "create brand", s.dialect.rebind(`
		INSERT INTO brands (name, created_at) VALUES (?, ?) RETURNING id
	`), brand.Name, nowUTC())
	if err != nil {
		return domain.Brand{}, err
	}
	return s.GetBrand(ctx, id)
}

func (s *Store) UpdateBrand(ctx context.Context, brand domain.Brand) (domain.Brand, error) {
	n, err := execAffected(ctx, s.db, "update brand", s.dialect.rebind(`UPDATE brands SET name = ? WHERE id = ?`), brand.Name, brand.ID)
	if err != nil {
		return domain.Brand{}, err
	}
	if n == 0 {
		return domain.Brand{}, store.NotFound("brand", brand.ID)
	}
	return s.GetBrand(ctx, brand.ID)
}

func (s *Store) DeleteBrand(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "brands", "brand", id)
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers := make([]domain.Supplier, 0, 16)
	err := s.db.SelectContext(ctx, &suppliers, `
		SELECT id, name, contact_name, phone, email, address, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, classify("list suppliers", err)
	}
	return suppliers, nil
}

func (s *Store) GetSupplier(ctx context.Context, id int64) (domain.Supplier, error) {
	var sup domain.Supplier
	err := getOne(ctx, s.db, &sup, "supplier", id, s.dialect.rebind(`
		SELECT id, name, contact_name, phone, email, address, created_at FROM suppliers WHERE id = ?
	`), id)
	return sup, err
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (domain.Supplier, error) {
	id, err := insertReturningID(ctx, s.db, "create supplier", s.dialect.rebind(`
		INSERT INTO suppliers (name, contact_name, phone, email, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`), supplier.Name, supplier.ContactName, supplier.Phone, supplier.Email, supplier.Address, nowUTC())
	if err != nil {
		return domain.Supplier{}, err
	}
	return s.GetSupplier(ctx, id)
}

const productColumns = `
	p.id, p.name,
	COALESCE(p.barcode, '') AS barcode,
	COALESCE(p.image_url, '') AS image_url,
	p.category_id, p.brand_id, p.supplier_id,
	p.unit_price, p.discount_percentage, p.reorder_level, p.created_at,
	COALESCE((SELECT SUM(b.quantity) FROM product_batches b WHERE b.product_id = p.id), 0) AS quantity`

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, "(LOWER(p.name) LIKE ? OR p.barcode = ?)")
		args = append(args, "%"+strings.ToLower(search)+"%", search)
	}
	if filter.CategoryID > 0 {
		where = append(where, "p.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.BrandID > 0 {
		where = append(where, "p.brand_id = ?")
		args = append(args, filter.BrandID)
	}

	query := "SELECT " + productColumns + " FROM products p"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.name, p.id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	products := make([]domain.Product, 0, 64)
	if err := s.db.SelectContext(ctx, &products, s.dialect.rebind(query), args...); err != nil {
		return nil, classify("list products", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return getProduct(ctx, s.db, s.dialect, id)
}

func getProduct(ctx context.Context, q queryer, d dialect, id int64) (domain.Product, error) {
	var p domain.Product
	err := getOne(ctx, q, &p, "product", id, d.rebind("SELECT "+productColumns+" FROM products p WHERE p.id = ?"), id)
	return p, err
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	var p domain.Product
	err := getOne(ctx, s.db, &p, "product", barcode, s.dialect.rebind("SELECT "+productColumns+" FROM products p WHERE p.barcode = ?"), barcode)
	return p, err
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	id, err := insertReturningID(ctx, s.db, "create product", s.dialect.rebind(`
		INSERT INTO products (name, barcode, image_url, category_id, brand_id, supplier_id, unit_price, discount_percentage, reorder_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		product.Name,
		nullIfEmpty(product.Barcode),
		nullIfEmpty(product.ImageURL),
		nullInt(product.CategoryID),
		nullInt(product.BrandID),
		nullInt(product.SupplierID),
		product.UnitPrice,
		product.DiscountPercentage,
		product.ReorderLevel,
		nowUTC(),
	)
	if err != nil {
		return domain.Product{}, err
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	n, err := execAffected(ctx, s.db, "update product", s.dialect.rebind(`
		UPDATE products
		SET name = ?, barcode = ?, image_url = ?, category_id = ?, brand_id = ?, supplier_id = ?,
			unit_price = ?, discount_percentage = ?, reorder_level = ?
		WHERE id = ?
	`),
		product.Name,
		nullIfEmpty(product.Barcode),
		nullIfEmpty(product.ImageURL),
		nullInt(product.CategoryID),
		nullInt(product.BrandID),
		nullInt(product.SupplierID),
		product.UnitPrice,
		product.DiscountPercentage,
		product.ReorderLevel,
		product.ID,
	)
	if err != nil {
		return domain.Product{}, err
	}
	if n == 0 {
		return domain.Product{}, store.NotFound("product", product.ID)
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "products", "product", id)
}

func (s *Store) deleteByID(ctx context.Context, table string, entity string, id int64) error {
	n, err := execAffected(ctx, s.db, "delete "+entity, s.dialect.rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.NotFound(entity, id)
	}
	return nil
}
