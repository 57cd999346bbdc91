package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
var ErrUnsupportedFormat = errors.New("unsupported file format: only .csv and .xlsx are accepted")

// ErrEmptyFile is returned when a file has no header row
var ErrEmptyFile = errors.New("file is empty")

// ParseFile parses an upload, choosing the reader from the file extension.
func ParseFile(name string, r io.Reader) ([]ProductRow, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", "":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseCSV reads a delimited file into rows keyed by normalised header names.
func ParseCSV(r io.Reader) ([]ProductRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	headers = normalizeHeaders(headers)

	// rowNum counts records, not physical lines, so quoted multi-line cells
	// keep the spreadsheet numbering
	var rows []ProductRow
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if isBlank(record) {
			continue
		}

		rows = append(rows, rowFromMap(recordToMap(headers, record), rowNum))
	}

	return rows, nil
}

// ParseXLSX reads the Products sheet (or the first sheet) of a workbook.
func ParseXLSX(r io.Reader) ([]ProductRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, templateSheet) {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) == 0 {
		return nil, ErrEmptyFile
	}

	headers := normalizeHeaders(excelRows[0])

	var rows []ProductRow
	for i, record := range excelRows[1:] {
		if isBlank(record) {
			continue
		}
		rows = append(rows, rowFromMap(recordToMap(headers, record), i+2))
	}

	return rows, nil
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.TrimSpace(strings.ToLower(h))
		h = strings.TrimSuffix(h, " *")
		out[i] = h
	}
	return out
}

func recordToMap(headers, record []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, value := range record {
		if i < len(headers) {
			m[headers[i]] = strings.TrimSpace(value)
		}
	}
	return m
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
