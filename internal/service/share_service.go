package service

import (
	"context"
	"fmt"
	"strings"

	"catalog-service/internal/clients"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// Poster publishes to a social page
type Poster interface {
	Enabled() bool
	Post(ctx context.Context, post clients.SocialPost) (*clients.SocialPostResult, error)
}

// ShareService announces products on social media
type ShareService struct {
	products ProductReader
	logger   *zap.Logger
}

// NewShareService creates a new share service
func NewShareService(products ProductReader) *ShareService {
	return &ShareService{products: products, logger: util.GetLogger()}
}

// ShareProduct posts a product to the session's page. The session is passed
// per call so different pages can be used side by side.
func (s *ShareService) ShareProduct(ctx context.Context, session Poster, sku, link string) (*clients.SocialPostResult, error) {
	ctx, span := util.StartSpan(ctx, "ShareService.ShareProduct")
	defer span.End()

	if session == nil || !session.Enabled() {
		return nil, clients.ErrNotConfigured
	}

	product, err := s.products.GetProductBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	msg := product.Name
	if product.Description != "" {
		msg += "\n\n" + product.Description
	}
	msg += fmt.Sprintf("\n\nPrice: Rs. %s", product.SellingPrice.StringFixed(2))
	if len(product.Sizes) > 0 {
		msg += "\nSizes: " + strings.Join(product.Sizes, ", ")
	}

	result, err := session.Post(ctx, clients.SocialPost{
		Message: msg,
		Link:    link,
		Picture: product.ImageURL,
	})
	if err != nil {
		util.NotificationsSentTotal.WithLabelValues("social", "failed").Inc()
		util.RecordError(span, err)
		return nil, err
	}

	util.NotificationsSentTotal.WithLabelValues("social", "sent").Inc()
	s.logger.Info("Product shared", zap.String("sku", sku), zap.String("post_id", result.ID))
	return result, nil
}
