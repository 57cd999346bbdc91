package service

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/models"
	"catalog-service/internal/redisclient"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// ProductReader reads catalog rows
type ProductReader interface {
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	ListVariants(ctx context.Context, productID int64) ([]models.ProductVariant, error)
	ListMedia(ctx context.Context, productID int64) ([]models.ProductMedia, error)
}

// StockReader reads the storefront stock cache
type StockReader interface {
	GetVariantStock(ctx context.Context, sku string) (map[string]int, int, error)
}

// ProductDetail is a product with its variants and media
type ProductDetail struct {
	Product  *models.Product         `json:"product"`
	Variants []models.ProductVariant `json:"variants"`
	Media    []models.ProductMedia   `json:"media"`
	// CachedStock is the storefront's per-size stock, when cached
	CachedStock map[string]int `json:"cached_stock,omitempty"`
}

// CatalogService serves imported products
type CatalogService struct {
	store  ProductReader
	stock  StockReader
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. stock may be nil.
func NewCatalogService(store ProductReader, stock StockReader) *CatalogService {
	return &CatalogService{
		store:  store,
		stock:  stock,
		logger: util.GetLogger(),
	}
}

// GetProduct loads a product by SKU
func (s *CatalogService) GetProduct(ctx context.Context, sku string) (*ProductDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	product, err := s.store.GetProductBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	variants, err := s.store.ListVariants(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	media, err := s.store.ListMedia(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	detail := &ProductDetail{Product: product, Variants: variants, Media: media}

	if s.stock != nil {
		stock, _, err := s.stock.GetVariantStock(ctx, sku)
		switch {
		case err == nil:
			detail.CachedStock = stock
		case !errors.Is(err, redisclient.ErrCacheMiss):
			s.logger.Warn("Stock cache read failed", zap.String("sku", sku), zap.Error(err))
		}
	}

	return detail, nil
}
