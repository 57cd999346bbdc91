package store

import (
	"context"
	"database/sql"
	"fmt"

	"catalog-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// Catalog is the set of catalog writes one import row needs. Both the pool
// and a transaction satisfy it.
type Catalog interface {
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	ListVariants(ctx context.Context, productID int64) ([]models.ProductVariant, error)
	DeleteVariantsByProduct(ctx context.Context, productID int64) (int64, error)
	DeleteVariants(ctx context.Context, ids []int64) error
	CreateVariants(ctx context.Context, variants []models.ProductVariant) error
	UpdateVariant(ctx context.Context, variant *models.ProductVariant) error
	CreateStockMovements(ctx context.Context, movements []models.StockMovement) error
	CreateMedia(ctx context.Context, media []models.ProductMedia) error
	DeleteMediaByProduct(ctx context.Context, productID int64) error
}

// Queries runs catalog statements against a pool or a transaction
type Queries struct {
	q sqlx.ExtContext
}

// GetProductBySKU retrieves a product by SKU
func (s *Queries) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, s.q, &product, "SELECT * FROM products WHERE sku = $1", sku)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s: %w", sku, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a product and fills in its id and timestamps
func (s *Queries) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (sku, design_no, name, category, subcategory, fabric, color,
			sizes, stock_qty, cost_price, selling_price, mrp, description, care_instructions,
			seo_title, tags, image_url, ai_generated, ai_confidence, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`

	err := s.q.QueryRowxContext(ctx, query,
		p.SKU, p.DesignNo, p.Name, p.Category, p.Subcategory, p.Fabric, p.Color,
		p.Sizes, p.StockQty, p.CostPrice, p.SellingPrice, p.MRP, p.Description, p.CareInstructions,
		p.SEOTitle, p.Tags, p.ImageURL, p.AIGenerated, p.AIConfidence, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", p.SKU, mapError(err))
	}
	return nil
}

// UpdateProduct overwrites the mutable fields of an existing product
func (s *Queries) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products SET design_no = $1, name = $2, category = $3, subcategory = $4,
			fabric = $5, color = $6, sizes = $7, stock_qty = $8, cost_price = $9,
			selling_price = $10, mrp = $11, description = $12, care_instructions = $13,
			seo_title = $14, tags = $15, image_url = $16, ai_generated = $17,
			ai_confidence = $18, updated_at = NOW()
		WHERE id = $19
		RETURNING updated_at`

	err := s.q.QueryRowxContext(ctx, query,
		p.DesignNo, p.Name, p.Category, p.Subcategory, p.Fabric, p.Color, p.Sizes,
		p.StockQty, p.CostPrice, p.SellingPrice, p.MRP, p.Description, p.CareInstructions,
		p.SEOTitle, p.Tags, p.ImageURL, p.AIGenerated, p.AIConfidence, p.ID,
	).Scan(&p.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("product %d: %w", p.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update product %s: %w", p.SKU, err)
	}
	return nil
}

// ListVariants returns a product's variants in display order
func (s *Queries) ListVariants(ctx context.Context, productID int64) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := sqlx.SelectContext(ctx, s.q, &variants,
		"SELECT * FROM product_variants WHERE product_id = $1 ORDER BY display_order, id", productID)
	return variants, err
}

// DeleteVariantsByProduct removes every variant of a product
func (s *Queries) DeleteVariantsByProduct(ctx context.Context, productID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM product_variants WHERE product_id = $1", productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete variants: %w", err)
	}
	return res.RowsAffected()
}

// DeleteVariants removes variants by id
func (s *Queries) DeleteVariants(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM product_variants WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete variants: %w", err)
	}
	return nil
}

// CreateVariants inserts variants in order, filling in their ids
func (s *Queries) CreateVariants(ctx context.Context, variants []models.ProductVariant) error {
	query := `
		INSERT INTO product_variants (product_id, sku_variant, size, stock_qty, is_available, display_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	for i := range variants {
		v := &variants[i]
		err := s.q.QueryRowxContext(ctx, query,
			v.ProductID, v.SKUVariant, v.Size, v.StockQty, v.IsAvailable, v.DisplayOrder,
		).Scan(&v.ID, &v.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert variant %s: %w", v.SKUVariant, mapError(err))
		}
	}
	return nil
}

// UpdateVariant updates stock and ordering of an existing variant
func (s *Queries) UpdateVariant(ctx context.Context, v *models.ProductVariant) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE product_variants SET sku_variant = $1, stock_qty = $2, is_available = $3, display_order = $4 WHERE id = $5",
		v.SKUVariant, v.StockQty, v.IsAvailable, v.DisplayOrder, v.ID)
	if err != nil {
		return fmt.Errorf("failed to update variant %s: %w", v.SKUVariant, err)
	}
	return nil
}

// CreateStockMovements appends ledger entries
func (s *Queries) CreateStockMovements(ctx context.Context, movements []models.StockMovement) error {
	query := `
		INSERT INTO stock_movements (product_id, variant_id, change_qty, reason, reference, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	for i := range movements {
		m := &movements[i]
		err := s.q.QueryRowxContext(ctx, query,
			m.ProductID, m.VariantID, m.ChangeQty, m.Reason, m.Reference, m.Note,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert stock movement: %w", err)
		}
	}
	return nil
}

// CreateMedia inserts media rows
func (s *Queries) CreateMedia(ctx context.Context, media []models.ProductMedia) error {
	query := `
		INSERT INTO product_media (product_id, url, media_type, display_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	for i := range media {
		m := &media[i]
		err := s.q.QueryRowxContext(ctx, query,
			m.ProductID, m.URL, m.MediaType, m.DisplayOrder,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert media: %w", err)
		}
	}
	return nil
}

// DeleteMediaByProduct removes a product's media
func (s *Queries) DeleteMediaByProduct(ctx context.Context, productID int64) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM product_media WHERE product_id = $1", productID)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	return nil
}

// ListMedia returns a product's media in display order
func (s *Queries) ListMedia(ctx context.Context, productID int64) ([]models.ProductMedia, error) {
	var media []models.ProductMedia
	err := sqlx.SelectContext(ctx, s.q, &media,
		"SELECT * FROM product_media WHERE product_id = $1 ORDER BY display_order, id", productID)
	return media, err
}
