package service

import (
	"fmt"
	"strings"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
)

// ValidationError blocks an import: at least one row failed validation
type ValidationError struct {
	Rows []importer.RowValidation
}

func (e *ValidationError) Error() string {
	if len(e.Rows) == 1 {
		r := e.Rows[0]
		return fmt.Sprintf("row %d: %s", r.Row, strings.Join(r.Errors, "; "))
	}
	return fmt.Sprintf("%d rows failed validation", len(e.Rows))
}

// ImportErrors flattens the failures into one job error per row
func (e *ValidationError) ImportErrors() models.ImportErrors {
	errs := make(models.ImportErrors, 0, len(e.Rows))
	for _, r := range e.Rows {
		errs = append(errs, models.ImportRowError{Row: r.Row, SKU: r.SKU, Error: strings.Join(r.Errors, "; ")})
	}
	return errs
}

// RowOutcome is the result of importing one row. Err is nil on success.
type RowOutcome struct {
	Row             int
	SKU             string
	ProductID       int64
	Created         bool
	StockQty        int
	Variants        []models.ProductVariant
	VariantsCreated int
	Movements       int
	Err             error
}

// OK reports whether the row was written
func (o RowOutcome) OK() bool {
	return o.Err == nil
}

// ImportOutcome holds one RowOutcome per input row, in file order
type ImportOutcome struct {
	JobID string
	Rows  []RowOutcome
}

func (o *ImportOutcome) SuccessCount() int {
	n := 0
	for _, r := range o.Rows {
		if r.OK() {
			n++
		}
	}
	return n
}

func (o *ImportOutcome) ErrorCount() int {
	return len(o.Rows) - o.SuccessCount()
}

func (o *ImportOutcome) CreatedCount() int {
	n := 0
	for _, r := range o.Rows {
		if r.OK() && r.Created {
			n++
		}
	}
	return n
}

func (o *ImportOutcome) VariantsCreated() int {
	n := 0
	for _, r := range o.Rows {
		if r.OK() {
			n += r.VariantsCreated
		}
	}
	return n
}

// Errors lists failed rows as {row, sku, error}
func (o *ImportOutcome) Errors() models.ImportErrors {
	errs := models.ImportErrors{}
	for _, r := range o.Rows {
		if !r.OK() {
			errs = append(errs, models.ImportRowError{Row: r.Row, SKU: r.SKU, Error: r.Err.Error()})
		}
	}
	return errs
}

// Result is the summary returned to callers
func (o *ImportOutcome) Result() *models.ImportResult {
	success := o.SuccessCount()
	created := o.CreatedCount()
	return &models.ImportResult{
		Success:         true,
		JobID:           o.JobID,
		Total:           len(o.Rows),
		SuccessCount:    success,
		ErrorCount:      len(o.Rows) - success,
		CreatedCount:    created,
		UpdatedCount:    success - created,
		VariantsCreated: o.VariantsCreated(),
		Errors:          o.Errors(),
	}
}
