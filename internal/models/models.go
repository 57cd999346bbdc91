package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is the catalog entity keyed by SKU
type Product struct {
	ID               int64               `db:"id" json:"id"`
	SKU              string              `db:"sku" json:"sku"`
	DesignNo         string              `db:"design_no" json:"design_no,omitempty"`
	Name             string              `db:"name" json:"name"`
	Category         string              `db:"category" json:"category"`
	Subcategory      string              `db:"subcategory" json:"subcategory,omitempty"`
	Fabric           string              `db:"fabric" json:"fabric,omitempty"`
	Color            string              `db:"color" json:"color,omitempty"`
	Sizes            pq.StringArray      `db:"sizes" json:"sizes"`
	StockQty         int                 `db:"stock_qty" json:"stock_qty"`
	CostPrice        decimal.NullDecimal `db:"cost_price" json:"cost_price"`
	SellingPrice     decimal.Decimal     `db:"selling_price" json:"selling_price"`
	MRP              decimal.NullDecimal `db:"mrp" json:"mrp"`
	Description      string              `db:"description" json:"description,omitempty"`
	CareInstructions string              `db:"care_instructions" json:"care_instructions,omitempty"`
	SEOTitle         string              `db:"seo_title" json:"seo_title,omitempty"`
	Tags             pq.StringArray      `db:"tags" json:"tags"`
	ImageURL         string              `db:"image_url" json:"image_url,omitempty"`
	AIGenerated      bool                `db:"ai_generated" json:"ai_generated"`
	AIConfidence     float64             `db:"ai_confidence" json:"ai_confidence"`
	Status           string              `db:"status" json:"status"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updated_at"`
}

// ProductVariant is a per-size purchasable unit of a product
type ProductVariant struct {
	ID           int64     `db:"id" json:"id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	SKUVariant   string    `db:"sku_variant" json:"sku_variant"`
	Size         string    `db:"size" json:"size"`
	StockQty     int       `db:"stock_qty" json:"stock_qty"`
	IsAvailable  bool      `db:"is_available" json:"is_available"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StockMovement is an append-only stock ledger entry
type StockMovement struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	VariantID int64     `db:"variant_id" json:"variant_id"`
	ChangeQty int       `db:"change_qty" json:"change_qty"`
	Reason    string    `db:"reason" json:"reason"`
	Reference string    `db:"reference" json:"reference"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProductMedia holds secondary product images
type ProductMedia struct {
	ID           int64     `db:"id" json:"id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	URL          string    `db:"url" json:"url"`
	MediaType    string    `db:"media_type" json:"media_type"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ImportJob is one bulk-import run, persisted in bulk_jobs
type ImportJob struct {
	ID            string       `db:"id" json:"id"`
	Type          string       `db:"type" json:"type"`
	Status        string       `db:"status" json:"status"`
	FileName      string       `db:"file_name" json:"file_name"`
	TotalRows     int          `db:"total_rows" json:"total_rows"`
	ProcessedRows int          `db:"processed_rows" json:"processed_rows"`
	SuccessCount  int          `db:"success_count" json:"success_count"`
	ErrorCount    int          `db:"error_count" json:"error_count"`
	Errors        ImportErrors `db:"errors" json:"errors"`
	StartedAt     time.Time    `db:"started_at" json:"started_at"`
	FinishedAt    *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}

// ImportRowError describes a row that failed during import
type ImportRowError struct {
	Row   int    `json:"row"`
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

// ImportErrors is stored as JSONB
type ImportErrors []ImportRowError

// Value implements driver.Valuer
func (e ImportErrors) Value() (driver.Value, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner
func (e *ImportErrors) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*e = ImportErrors{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ImportErrors: %T", src)
	}
	return json.Unmarshal(data, e)
}

// ImportResult is what callers of an import get back
type ImportResult struct {
	Success         bool             `json:"success"`
	JobID           string           `json:"jobId,omitempty"`
	Total           int              `json:"total"`
	SuccessCount    int              `json:"successCount"`
	ErrorCount      int              `json:"errorCount"`
	CreatedCount    int              `json:"createdCount"`
	UpdatedCount    int              `json:"updatedCount"`
	VariantsCreated int              `json:"variantsCreated"`
	Errors          []ImportRowError `json:"errors"`
	Error           string           `json:"error,omitempty"`
}

// Job types and statuses
const (
	JobTypeImport = "import"

	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Product statuses
const (
	ProductStatusActive = "active"
	ProductStatusDraft  = "draft"
)

// Stock movement reasons
const (
	MovementReasonBulkImport = "bulk_import"
)

// Media types
const (
	MediaTypeImage = "image"
)
