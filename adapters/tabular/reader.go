// Package tabular reads DE result tables from CSV or XLSX files into
// the canonical gene / effect-size / p-value view.
package tabular

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gothresh/domain/de"
	"gothresh/ports"
)

// Reader handles reading Excel and CSV DE tables
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	columns  de.Columns
}

var _ ports.TableReader = (*Reader)(nil)

// NewReader creates a reader for the given path; the file type is
// inferred from the extension.
func NewReader(filePath string, columns de.Columns) *Reader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" || ext == ".tsv" || ext == ".txt" {
		fileType = "csv"
	}
	return &Reader{filePath: filePath, fileType: fileType, columns: columns}
}

// Read loads the table
func (r *Reader) Read() (*de.Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file not found: %s", r.filePath)
	}

	var records [][]string
	var err error
	switch r.fileType {
	case "csv":
		records, err = r.readCSV()
	case "xlsx":
		records, err = r.readExcel()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}
	return r.toTable(records)
}

func (r *Reader) readCSV() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if strings.HasSuffix(strings.ToLower(r.filePath), ".tsv") {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return records, nil
}

func (r *Reader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func (r *Reader) toTable(records [][]string) (*de.Table, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("table needs a header row and at least one data row")
	}
	header := records[0]

	effectIdx := findColumn(header, r.columns.EffectSize)
	if effectIdx < 0 {
		return nil, fmt.Errorf("missing required column %q (available: %v)", r.columns.EffectSize, header)
	}
	pIdx := findColumn(header, r.columns.PValue)
	if pIdx < 0 {
		return nil, fmt.Errorf("missing required column %q (available: %v)", r.columns.PValue, header)
	}

	// The gene identifier is optional: fall back to an unnamed leading
	// index column (DESeq2 exports), then to the row ordinal.
	geneIdx := findColumn(header, r.columns.GeneID)
	if geneIdx < 0 && len(header) > 0 && strings.TrimSpace(header[0]) == "" {
		geneIdx = 0
	}

	rows := make([]de.Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		geneID := fmt.Sprintf("gene_%d", i+1)
		if geneIdx >= 0 && geneIdx < len(rec) && strings.TrimSpace(rec[geneIdx]) != "" {
			geneID = strings.TrimSpace(rec[geneIdx])
		}
		rows = append(rows, de.Row{
			GeneID:     geneID,
			EffectSize: parseFloat(cell(rec, effectIdx)),
			RawPValue:  parseFloat(cell(rec, pIdx)),
		})
	}
	return de.NewTable(rows)
}

func cell(rec []string, idx int) string {
	if idx < len(rec) {
		return rec[idx]
	}
	return ""
}

func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// parseFloat coerces a cell to float64; missing markers become NaN
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
