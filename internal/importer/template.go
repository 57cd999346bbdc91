package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	templateSheet     = "Products"
	instructionsSheet = "Instructions"
)

// TemplateColumn documents one column of the import file
type TemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Example     string `json:"example"`
}

// TemplateColumns returns the column definitions in header order.
func TemplateColumns() []TemplateColumn {
	return []TemplateColumn{
		{Name: "sku", Description: "Unique product code", Required: true, Example: "ANK-002"},
		{Name: "design_no", Description: "Supplier design number", Example: "D-102"},
		{Name: "name", Description: "Product name", Required: true, Example: "Anarkali Suit"},
		{Name: "category", Description: "Sarees, Suits, Kurtis, Lehengas or Sets", Required: true, Example: "Suits"},
		{Name: "subcategory", Description: "Free-text subcategory", Example: "Anarkali"},
		{Name: "fabric", Description: "Main fabric", Example: "Georgette"},
		{Name: "color", Description: "Main colour", Example: "Maroon"},
		{Name: "sizes", Description: "Free Size, or a comma-separated size list", Example: "S,M,L"},
		{Name: "stock_by_size", Description: "A number for Free Size, otherwise size:qty pairs", Example: "S:5,M:10,L:0"},
		{Name: "cost_price", Description: "Purchase cost", Example: "1800"},
		{Name: "selling_price", Description: "Selling price", Required: true, Example: "3299"},
		{Name: "mrp", Description: "Maximum retail price", Example: "4999"},
		{Name: "description", Description: "Generated when shorter than 21 characters", Example: ""},
		{Name: "care_instructions", Description: "Generated from fabric when blank", Example: ""},
		{Name: "image_url_1", Description: "Primary image URL", Example: "https://cdn.example.com/ank-002-1.jpg"},
		{Name: "image_url_2", Description: "Second image URL", Example: ""},
		{Name: "image_url_3", Description: "Third image URL", Example: ""},
	}
}

// SampleProducts are the example rows written into templates, in Columns order.
var SampleProducts = [][]string{
	{
		"ANK-002", "D-102", "Anarkali Suit, Embroidered", "Suits", "Anarkali", "Georgette", "Maroon",
		"S,M,L", "S:5,M:10,L:0", "1800", "3299", "4999", "", "",
		"https://cdn.example.com/ank-002-1.jpg", "https://cdn.example.com/ank-002-2.jpg", "",
	},
	{
		"BNS-001", "D-201", "Banarasi Silk Saree", "Sarees", "Banarasi", "Silk", "Red",
		"Free Size", "15", "5200", "8999", "11999",
		`Handwoven "Kadhua" Banarasi saree with a rich zari border and pallu`, "",
		"https://cdn.example.com/bns-001-1.jpg", "https://cdn.example.com/bns-001-2.jpg", "https://cdn.example.com/bns-001-3.jpg",
	},
	{
		"KRT-010", "D-310", "Straight Cotton Kurti", "Kurtis", "Straight", "Cotton", "Blue",
		"XS,S,M,L,XL", "XS:4,S:8,M:12,L:6,XL:2", "450", "899", "1299", "", "Machine wash cold",
		"https://cdn.example.com/krt-010-1.jpg", "", "",
	},
}

// TemplateCSV renders the header and sample products as CSV text.
func TemplateCSV() string {
	var b strings.Builder
	b.WriteString(strings.Join(Columns, ","))
	b.WriteString("\n")

	for _, product := range SampleProducts {
		escaped := make([]string, len(product))
		for i, v := range product {
			escaped[i] = EscapeCSV(v)
		}
		b.WriteString(strings.Join(escaped, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// EscapeCSV quotes a value containing a comma, quote or line break and
// doubles any embedded quotes.
func EscapeCSV(v string) string {
	if !strings.ContainsAny(v, ",\"\n\r") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// TemplateXLSX writes the template as an Excel workbook with an
// instructions sheet.
func TemplateXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	requiredStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	columns := TemplateColumns()
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		header := col.Name
		style := headerStyle
		if col.Required {
			header += " *"
			style = requiredStyle
		}
		if err := f.SetCellValue(templateSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", col.Name, err)
		}
		if err := f.SetCellStyle(templateSheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style header %s: %w", col.Name, err)
		}

		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(templateSheet, colName, colName, 20); err != nil {
			return fmt.Errorf("failed to size column %s: %w", colName, err)
		}
	}

	for r, product := range SampleProducts {
		values := make([]interface{}, len(product))
		for c, v := range product {
			values[c] = v
		}
		if err := writeRow(f, templateSheet, r+2, values...); err != nil {
			return fmt.Errorf("failed to write sample row: %w", err)
		}
	}

	if _, err := f.NewSheet(instructionsSheet); err != nil {
		return fmt.Errorf("failed to add instructions sheet: %w", err)
	}
	instructions := [][]interface{}{
		{"Stock Import Instructions"},
		{"Columns marked * are required. Use sizes=Free Size with a plain number in stock_by_size for single-size products."},
		nil,
		{"Column", "Description", "Required", "Example"},
	}
	for _, col := range columns {
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		instructions = append(instructions, []interface{}{col.Name, col.Description, required, col.Example})
	}
	for i, values := range instructions {
		if err := writeRow(f, instructionsSheet, i+1, values...); err != nil {
			return fmt.Errorf("failed to write instructions: %w", err)
		}
	}
	if err := f.SetColWidth(instructionsSheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(instructionsSheet, "B", "B", 60); err != nil {
		return err
	}

	if idx, err := f.GetSheetIndex(templateSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	_, err = f.WriteTo(w)
	return err
}

// writeRow fills a sheet row from column A
func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
