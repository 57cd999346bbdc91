package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_Template(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(TemplateCSV()))
	require.NoError(t, err)
	require.Len(t, rows, len(SampleProducts))

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "ANK-002", rows[0].SKU)
	assert.Equal(t, "Anarkali Suit, Embroidered", rows[0].Name)
	assert.Equal(t, "S:5,M:10,L:0", rows[0].StockBySize)

	assert.Equal(t, 3, rows[1].Row)
	assert.Equal(t, `Handwoven "Kadhua" Banarasi saree with a rich zari border and pallu`, rows[1].Description)

	assert.Equal(t, 4, rows[2].Row)
	assert.Equal(t, "Machine wash cold", rows[2].CareInstructions)

	assert.Empty(t, ValidateRows(rows))
}

func TestParseCSV_NormalisesHeaders(t *testing.T) {
	input := "\ufeffSKU *, Name ,Category,Selling_Price,stock_qty\n" +
		"  KRT-1 , Kurti ,Kurtis,499,3\n" +
		",,,,\n" +
		"KRT-2,Kurti Two,Kurtis,599,4\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, ProductRow{Row: 2, SKU: "KRT-1", Name: "Kurti", Category: "Kurtis", SellingPrice: "499", StockQty: "3"}, rows[0])
	assert.Equal(t, 4, rows[1].Row)
	assert.Equal(t, "KRT-2", rows[1].SKU)
}

func TestParseCSV_MultiLineCellKeepsRowNumbers(t *testing.T) {
	input := "sku,name,category,selling_price,stock_qty,description\n" +
		"A-1,Kurti,Kurtis,499,3,\"Soft cotton kurti\nwith side slits\nand pockets\"\n" +
		"A-2,Kurti Two,,599,4,\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "Soft cotton kurti\nwith side slits\nand pockets", rows[0].Description)
	assert.Equal(t, 3, rows[1].Row)

	invalid := ValidateRows(rows)
	require.Len(t, invalid, 1)
	assert.Equal(t, 3, invalid[0].Row)
	assert.Equal(t, "A-2", invalid[0].SKU)
	assert.Equal(t, []string{MsgCategoryRequired}, invalid[0].Errors)
}

func TestParseCSV_ShortAndLongRecords(t *testing.T) {
	input := "sku,name\nA-1\nA-2,Two,extra\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Empty(t, rows[0].Name)
	assert.Equal(t, "Two", rows[1].Name)
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParseFile_Dispatch(t *testing.T) {
	_, err := ParseFile("products.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	rows, err := ParseFile("PRODUCTS.CSV", strings.NewReader(TemplateCSV()))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestParseXLSX_Template(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TemplateXLSX(&buf))

	rows, err := ParseFile("template.xlsx", &buf)
	require.NoError(t, err)
	require.Len(t, rows, len(SampleProducts))

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "ANK-002", rows[0].SKU)
	assert.Equal(t, "Suits", rows[0].Category)
	assert.Equal(t, "3299", rows[0].SellingPrice)
	assert.Equal(t, "BNS-001", rows[1].SKU)
	assert.Equal(t, "Free Size", rows[1].Sizes)
	assert.Empty(t, ValidateRows(rows))
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice(" 3299.50 ")
	require.NoError(t, err)
	assert.Equal(t, "3299.5", p.String())

	_, err = ParsePrice("Rs 100")
	assert.Error(t, err)

	assert.False(t, ParseOptionalPrice("").Valid)
	assert.False(t, ParseOptionalPrice("n/a").Valid)
	assert.True(t, ParseOptionalPrice("4999").Valid)
}
