package service

import (
	"context"

	"catalog-service/internal/importer"
	"catalog-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
)

// VariantPreview is a variant as it would be written
type VariantPreview struct {
	SKUVariant  string `json:"sku_variant"`
	Size        string `json:"size"`
	StockQty    int    `json:"stock_qty"`
	IsAvailable bool   `json:"is_available"`
}

// RowPreview shows what importing a valid row would produce
type RowPreview struct {
	Row          int              `json:"row"`
	SKU          string           `json:"sku"`
	TotalStock   int              `json:"total_stock"`
	Variants     []VariantPreview `json:"variants"`
	Generated    []string         `json:"generated,omitempty"`
	AIConfidence float64          `json:"ai_confidence"`
}

// ValidationReport is the dry-run answer for an upload
type ValidationReport struct {
	Valid  bool                     `json:"valid"`
	Total  int                      `json:"total"`
	Errors []importer.RowValidation `json:"errors"`
	// Warnings do not make the report invalid
	Warnings []importer.RowValidation `json:"warnings"`
	Preview  []RowPreview             `json:"preview"`
}

// Validate checks rows without writing anything and previews the variants
// and generated fields of the rows that passed.
func (s *ImportService) Validate(ctx context.Context, rows []importer.ProductRow, enrich bool) *ValidationReport {
	_, span := util.StartSpan(ctx, "ImportService.Validate")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	invalid := importer.ValidateRows(rows)
	report := &ValidationReport{
		Valid:    len(invalid) == 0,
		Total:    len(rows),
		Errors:   invalid,
		Warnings: importer.DuplicateSKUs(rows),
		Preview:  []RowPreview{},
	}
	if report.Errors == nil {
		report.Errors = []importer.RowValidation{}
	}
	if report.Warnings == nil {
		report.Warnings = []importer.RowValidation{}
	}

	failed := make(map[int]bool, len(invalid))
	for _, v := range invalid {
		failed[v.Row] = true
	}

	for i, row := range rows {
		num := rowNumber(i, row)
		if failed[num] {
			continue
		}
		sizes, err := importer.ExpandSizes(row.SizesField(), row.StockField())
		if err != nil {
			continue
		}

		preview := RowPreview{
			Row:          num,
			SKU:          row.SKU,
			TotalStock:   importer.TotalStock(sizes),
			AIConfidence: 1,
		}
		if enrich {
			enriched := importer.Enrich(row)
			preview.Generated = enriched.Generated
			preview.AIConfidence = enriched.AIConfidence
		}
		for _, v := range buildVariants(0, row.SKU, sizes) {
			preview.Variants = append(preview.Variants, VariantPreview{
				SKUVariant:  v.SKUVariant,
				Size:        v.Size,
				StockQty:    v.StockQty,
				IsAvailable: v.IsAvailable,
			})
		}
		report.Preview = append(report.Preview, preview)
	}

	return report
}
