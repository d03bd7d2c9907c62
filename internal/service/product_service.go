package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

// ProductService manages the catalog
type ProductService struct {
	repo   models.Repository
	logger *zap.Logger
}

func NewProductService(repo models.Repository) *ProductService {
	return &ProductService{repo: repo, logger: util.GetLogger()}
}

type ProductInput struct {
	Name        string          `json:"name" binding:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	ImageURL    string          `json:"image_url" binding:"omitempty,url"`
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Items  []models.Product `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func (s *ProductService) apply(ctx context.Context, p *models.Product, in ProductInput) error {
	if in.Price.IsNegative() || in.Stock < 0 || strings.TrimSpace(in.Name) == "" {
		return ErrProductInvalid
	}
	if in.CategoryID != nil {
		if _, err := s.repo.GetCategoryByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("failed to load category: %w", err)
		}
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
	p.ImageURL = in.ImageURL
	return nil
}

// Create adds a product owned by the acting seller.
func (s *ProductService) Create(ctx context.Context, actor Actor, in ProductInput) (*models.Product, error) {
	product := &models.Product{ID: uuid.New(), SellerID: actor.UserID}
	if err := s.apply(ctx, product, in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", actor.UserID.String()))
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ProductNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, filter models.ProductFilter) (*ProductPage, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	items, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if items == nil {
		items = []models.Product{}
	}
	return &ProductPage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *ProductService) owned(ctx context.Context, actor Actor, id uuid.UUID) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && product.SellerID != actor.UserID {
		return nil, ErrProductForbidden
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, actor Actor, id uuid.UUID, in ProductInput) (*models.Product, error) {
	product, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, product, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ProductNotFound(id)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Delete hides the product from the catalog; order history keeps its snapshot.
func (s *ProductService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	err := s.repo.SoftDeleteProduct(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return ProductNotFound(id)
	}
	return err
}

var exportHeaders = []string{
	"ID", "Name", "Description", "Price", "Stock", "CategoryID", "ImageURL", "SellerID", "CreatedAt", "UpdatedAt",
}

// ExportXLSX writes every product matching filter as a spreadsheet.
func (s *ProductService) ExportXLSX(ctx context.Context, w io.Writer, filter models.ProductFilter) error {
	ctx, span := util.StartSpan(ctx, "ProductService.ExportXLSX")
	defer span.End()

	filter.Limit, filter.Offset = 0, 0
	products, _, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return util.RecordError(span, fmt.Errorf("failed to list products: %w", err))
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return util.RecordError(span, fmt.Errorf("failed to create sheet: %w", err))
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID.String())
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		category := ""
		if p.CategoryID != nil {
			category = p.CategoryID.String()
		}
		row.AddCell().SetString(category)
		row.AddCell().SetString(p.ImageURL)
		row.AddCell().SetString(p.SellerID.String())
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return util.RecordError(span, fmt.Errorf("failed to write spreadsheet: %w", err))
	}
	return nil
}

// ImportResult counts what an import did
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ImportXLSX creates or updates products from a sheet laid out like the
// export. Rows with an ID the actor does not own are skipped.
func (s *ProductService) ImportXLSX(ctx context.Context, actor Actor, r io.ReaderAt, size int64) (*ImportResult, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ImportXLSX")
	defer span.End()

	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, ErrProductImportInvalid
	}
	if len(file.Sheets) == 0 || len(file.Sheets[0].Rows) < 2 {
		return nil, ErrProductImportInvalid
	}

	result := &ImportResult{}
	for _, row := range file.Sheets[0].Rows[1:] {
		get := func(i int) string {
			if i < len(row.Cells) {
				return strings.TrimSpace(row.Cells[i].String())
			}
			return ""
		}

		in, err := importRow(get)
		if err != nil {
			result.Skipped++
			continue
		}

		id, idErr := uuid.Parse(get(0))
		if idErr != nil {
			if _, err := s.Create(ctx, actor, in); err != nil {
				if _, ok := apperr.From(err); !ok {
					return nil, util.RecordError(span, err)
				}
				result.Skipped++
				continue
			}
			result.Created++
			continue
		}

		if _, err := s.Update(ctx, actor, id, in); err != nil {
			if _, ok := apperr.From(err); !ok {
				return nil, util.RecordError(span, err)
			}
			result.Skipped++
			continue
		}
		result.Updated++
	}

	s.logger.Info("Products imported",
		zap.String("user_id", actor.UserID.String()),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func importRow(get func(int) string) (ProductInput, error) {
	price, err := decimal.NewFromString(get(3))
	if err != nil {
		return ProductInput{}, err
	}
	stock, err := strconv.Atoi(get(4))
	if err != nil {
		return ProductInput{}, err
	}
	in := ProductInput{
		Name:        get(1),
		Description: get(2),
		Price:       price,
		Stock:       stock,
		ImageURL:    get(6),
	}
	if c := get(5); c != "" {
		categoryID, err := uuid.Parse(c)
		if err != nil {
			return ProductInput{}, err
		}
		in.CategoryID = &categoryID
	}
	return in, nil
}

// Categories

type CategoryInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

func (s *ProductService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	category := &models.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrCategoryDuplicate
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *ProductService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.repo.GetCategoryByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	return category, err
}

func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *ProductService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = strings.TrimSpace(in.Name)
	category.Description = in.Description
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrCategoryDuplicate
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

func (s *ProductService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteCategory(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return ErrCategoryNotFound
	}
	return err
}
