package store

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CreateCategory inserts a category
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	return mapWriteError(s.get(ctx, &category.CreatedAt, query,
		category.ID, category.Name, category.Description))
}

func (s *Store) GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := s.get(ctx, &category, "SELECT * FROM categories WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.selectAll(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	return s.execOne(ctx,
		"UPDATE categories SET name = $1, description = $2 WHERE id = $3",
		category.Name, category.Description, category.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "DELETE FROM categories WHERE id = $1", id)
}

// CreateProduct inserts a product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, stock, seller_id, category_id, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return mapWriteError(s.get(ctx, product, query,
		product.ID, product.Name, product.Description, product.Price, product.Stock,
		product.SellerID, product.CategoryID, product.ImageURL))
}

// GetProductByID retrieves a live (not deleted) product
func (s *Store) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.get(ctx, &product, "SELECT * FROM products WHERE id = $1 AND NOT is_deleted", id)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductForUpdate reads a product with a row lock (FOR UPDATE)
func (s *Store) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.get(ctx, &product,
		"SELECT * FROM products WHERE id = $1 AND NOT is_deleted FOR UPDATE", id)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns one page of products and the total match count
func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	where := []string{"NOT is_deleted"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CategoryID != nil {
		where = append(where, "category_id = "+arg(*filter.CategoryID))
	}
	if filter.SellerID != nil {
		where = append(where, "seller_id = "+arg(*filter.SellerID))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= "+arg(*filter.MaxPrice))
	}
	if filter.InStock {
		where = append(where, "stock > 0")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.get(ctx, &total, "SELECT COUNT(*) FROM products WHERE "+clause, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM products WHERE " + clause + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)
	}

	var products []models.Product
	if err := s.selectAll(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.execOne(ctx, `
		UPDATE products SET name = $1, description = $2, price = $3, stock = $4,
			category_id = $5, image_url = $6, updated_at = NOW()
		WHERE id = $7 AND NOT is_deleted`,
		product.Name, product.Description, product.Price, product.Stock,
		product.CategoryID, product.ImageURL, product.ID)
}

// UpdateProductStocks writes the stock of every product in one statement
func (s *Store) UpdateProductStocks(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	stocks := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID.String()
		stocks[i] = int64(p.Stock)
	}

	return s.exec(ctx, `
		UPDATE products AS p
		SET stock = v.stock, updated_at = NOW()
		FROM (SELECT UNNEST($1::uuid[]) AS id, UNNEST($2::int[]) AS stock) AS v
		WHERE p.id = v.id`,
		pq.Array(ids), pq.Array(stocks))
}

func (s *Store) SoftDeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx,
		"UPDATE products SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted", id)
}
