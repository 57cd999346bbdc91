package importer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Columns is the exact header of a stock import file.
var Columns = []string{
	"sku",
	"design_no",
	"name",
	"category",
	"subcategory",
	"fabric",
	"color",
	"sizes",
	"stock_by_size",
	"cost_price",
	"selling_price",
	"mrp",
	"description",
	"care_instructions",
	"image_url_1",
	"image_url_2",
	"image_url_3",
}

// ProductRow is one parsed record of an import file. Values are kept as
// trimmed strings; numeric fields are interpreted by the stages that need them.
type ProductRow struct {
	// Row is the spreadsheet row number (header is row 1). Zero when unknown.
	Row int `json:"row"`

	SKU              string `json:"sku"`
	DesignNo         string `json:"design_no"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Subcategory      string `json:"subcategory"`
	Fabric           string `json:"fabric"`
	Color            string `json:"color"`
	Sizes            string `json:"sizes"`
	StockBySize      string `json:"stock_by_size"`
	StockQty         string `json:"stock_qty"`
	CostPrice        string `json:"cost_price"`
	SellingPrice     string `json:"selling_price"`
	MRP              string `json:"mrp"`
	Description      string `json:"description"`
	CareInstructions string `json:"care_instructions"`
	SEOTitle         string `json:"seo_title"`
	Tags             string `json:"tags"`
	ImageURL1        string `json:"image_url_1"`
	ImageURL2        string `json:"image_url_2"`
	ImageURL3        string `json:"image_url_3"`
}

func rowFromMap(m map[string]string, rowNum int) ProductRow {
	return ProductRow{
		Row:              rowNum,
		SKU:              m["sku"],
		DesignNo:         m["design_no"],
		Name:             m["name"],
		Category:         m["category"],
		Subcategory:      m["subcategory"],
		Fabric:           m["fabric"],
		Color:            m["color"],
		Sizes:            m["sizes"],
		StockBySize:      m["stock_by_size"],
		StockQty:         m["stock_qty"],
		CostPrice:        m["cost_price"],
		SellingPrice:     m["selling_price"],
		MRP:              m["mrp"],
		Description:      m["description"],
		CareInstructions: m["care_instructions"],
		SEOTitle:         m["seo_title"],
		Tags:             m["tags"],
		ImageURL1:        m["image_url_1"],
		ImageURL2:        m["image_url_2"],
		ImageURL3:        m["image_url_3"],
	}
}

// StockField returns the value the size expander should read stock from:
// stock_by_size when present, the flat stock_qty otherwise.
func (r ProductRow) StockField() string {
	if r.StockBySize != "" {
		return r.StockBySize
	}
	return r.StockQty
}

// SizesField returns the declared sizes, defaulting to Free Size.
func (r ProductRow) SizesField() string {
	if r.Sizes == "" {
		return FreeSize
	}
	return r.Sizes
}

// ParsePrice parses a required price column.
func ParsePrice(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// ParseOptionalPrice parses an optional price column. Blank or unparsable
// values yield an invalid NullDecimal.
func ParseOptionalPrice(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func rowNumber(index int, row ProductRow) int {
	if row.Row > 0 {
		return row.Row
	}
	return index + 2
}
