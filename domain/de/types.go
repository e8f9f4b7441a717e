package de

import (
	"fmt"
	"math"
)

// Columns names the input table columns that carry the canonical
// gene / effect-size / p-value view. Defaults match DESeq2-style output.
type Columns struct {
	GeneID     string `json:"gene_id"`
	EffectSize string `json:"effect_size"`
	PValue     string `json:"pvalue"`
}

// DefaultColumns returns the conventional DESeq2 column names
func DefaultColumns() Columns {
	return Columns{
		GeneID:     "gene_id",
		EffectSize: "log2FoldChange",
		PValue:     "pvalue",
	}
}

// Row is a single gene's differential-expression record.
// EffectSize and RawPValue may be NaN when the upstream test produced
// no estimate for the gene.
type Row struct {
	GeneID     string
	EffectSize float64
	RawPValue  float64
}

// Table is an immutable differential-expression result table.
// INVARIANTS:
// - GeneID values are unique
// - RawPValue is in [0,1] or NaN
type Table struct {
	Rows []Row
}

// NewTable validates rows and constructs a table
func NewTable(rows []Row) (*Table, error) {
	seen := make(map[string]struct{}, len(rows))
	for i, r := range rows {
		if r.GeneID == "" {
			return nil, fmt.Errorf("row %d: empty gene ID", i)
		}
		if _, dup := seen[r.GeneID]; dup {
			return nil, fmt.Errorf("duplicate gene ID: %s", r.GeneID)
		}
		seen[r.GeneID] = struct{}{}
		if !math.IsNaN(r.RawPValue) && (r.RawPValue < 0 || r.RawPValue > 1) {
			return nil, fmt.Errorf("gene %s: p-value %g outside [0,1]", r.GeneID, r.RawPValue)
		}
	}
	return &Table{Rows: rows}, nil
}

// Len returns the number of genes in the table
func (t *Table) Len() int {
	return len(t.Rows)
}

// EffectSizes returns a copy of the effect-size column, row-aligned
func (t *Table) EffectSizes() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.EffectSize
	}
	return out
}

// RawPValues returns a copy of the raw p-value column, row-aligned
func (t *Table) RawPValues() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.RawPValue
	}
	return out
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	return &Table{Rows: rows}
}
