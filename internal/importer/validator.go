package importer

import (
	"fmt"
	"strconv"
	"strings"
)

// Validation messages
const (
	MsgSKURequired      = "SKU is required"
	MsgNameRequired     = "Name is required"
	MsgCategoryRequired = "Category is required"
	MsgPriceRequired    = "Valid selling price is required"
	MsgInvalidSizeStock = "Invalid size/stock format"
	MsgStockRequired    = "Either stock_by_size or stock_qty is required"
)

// RowValidation lists the problems found on one row
type RowValidation struct {
	Row    int      `json:"row"`
	SKU    string   `json:"sku"`
	Errors []string `json:"errors"`
}

// ValidateRows checks every row and returns the invalid ones. An empty result
// means the file may be imported.
func ValidateRows(rows []ProductRow) []RowValidation {
	var invalid []RowValidation
	for i, row := range rows {
		if errs := ValidateRow(row); len(errs) > 0 {
			invalid = append(invalid, RowValidation{Row: rowNumber(i, row), SKU: row.SKU, Errors: errs})
		}
	}
	return invalid
}

// DuplicateSKUs reports rows whose SKU already appeared earlier in the file.
// They do not block an import: rows are upserted in file order, so the last
// one wins.
func DuplicateSKUs(rows []ProductRow) []RowValidation {
	var dups []RowValidation
	firstSeen := make(map[string]int, len(rows))

	for i, row := range rows {
		if row.SKU == "" {
			continue
		}
		rowNum := rowNumber(i, row)
		if first, ok := firstSeen[row.SKU]; ok {
			dups = append(dups, RowValidation{
				Row:    rowNum,
				SKU:    row.SKU,
				Errors: []string{fmt.Sprintf("Duplicate SKU in file (first seen on row %d), this row overwrites it", first)},
			})
			continue
		}
		firstSeen[row.SKU] = rowNum
	}

	return dups
}

// ValidateRow runs all per-row checks; none of them short-circuits the others.
func ValidateRow(row ProductRow) []string {
	var errs []string

	if row.SKU == "" {
		errs = append(errs, MsgSKURequired)
	}
	if row.Name == "" {
		errs = append(errs, MsgNameRequired)
	}
	if row.Category == "" {
		errs = append(errs, MsgCategoryRequired)
	}
	if row.SellingPrice == "" {
		errs = append(errs, MsgPriceRequired)
	} else if _, err := ParsePrice(row.SellingPrice); err != nil {
		errs = append(errs, MsgPriceRequired)
	}

	switch {
	case row.Sizes != "" && row.StockBySize != "":
		variants, err := ExpandSizes(row.Sizes, row.StockBySize)
		if err != nil {
			errs = append(errs, MsgInvalidSizeStock+": "+err.Error())
		} else if len(variants) == 0 {
			errs = append(errs, MsgInvalidSizeStock)
		}
	case row.StockBySize == "":
		if !isNumeric(row.StockQty) {
			errs = append(errs, MsgStockRequired)
		}
	}

	return errs
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
