package tabular

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gothresh/domain/de"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestReader_CSV(t *testing.T) {
	path := writeFile(t, "de.csv",
		"gene_id,log2FoldChange,pvalue\n"+
			"TP53,2.1,0.0001\n"+
			"BRCA1,-1.3,0.004\n"+
			"ACTB,0.05,0.92\n")

	table, err := NewReader(path, de.DefaultColumns()).Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("len = %d, want 3", table.Len())
	}
	if table.Rows[0].GeneID != "TP53" || table.Rows[0].EffectSize != 2.1 || table.Rows[0].RawPValue != 0.0001 {
		t.Errorf("unexpected first row: %+v", table.Rows[0])
	}
	if table.Rows[1].EffectSize != -1.3 {
		t.Errorf("unexpected second row: %+v", table.Rows[1])
	}
}

func TestReader_TSVWithCustomColumns(t *testing.T) {
	path := writeFile(t, "de.tsv",
		"symbol\tlfc\tp\n"+
			"A\t1.0\t0.01\n"+
			"B\t-0.5\t0.3\n")

	cols := de.Columns{GeneID: "symbol", EffectSize: "lfc", PValue: "p"}
	table, err := NewReader(path, cols).Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 2 || table.Rows[0].GeneID != "A" || table.Rows[1].EffectSize != -0.5 {
		t.Errorf("unexpected table: %+v", table.Rows)
	}
}

func TestReader_MissingMarkersBecomeNaN(t *testing.T) {
	path := writeFile(t, "de.csv",
		"gene_id,log2FoldChange,pvalue\n"+
			"a,NA,0.5\n"+
			"b,1.2,\n"+
			"c,null,NaN\n"+
			"d,not_a_number,0.1\n")

	table, err := NewReader(path, de.DefaultColumns()).Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(table.Rows[0].EffectSize) {
		t.Errorf("NA should parse to NaN, got %f", table.Rows[0].EffectSize)
	}
	if !math.IsNaN(table.Rows[1].RawPValue) {
		t.Errorf("empty cell should parse to NaN, got %f", table.Rows[1].RawPValue)
	}
	if !math.IsNaN(table.Rows[2].EffectSize) || !math.IsNaN(table.Rows[2].RawPValue) {
		t.Errorf("null/NaN markers should parse to NaN: %+v", table.Rows[2])
	}
	if !math.IsNaN(table.Rows[3].EffectSize) {
		t.Errorf("garbage cell should parse to NaN, got %f", table.Rows[3].EffectSize)
	}
}

func TestReader_UnnamedLeadingIndexColumn(t *testing.T) {
	// DESeq2-style export: the gene identifier lives in an unnamed first
	// column.
	path := writeFile(t, "de.csv",
		",log2FoldChange,pvalue\n"+
			"ENSG001,1.5,0.01\n"+
			"ENSG002,0.2,0.7\n")

	table, err := NewReader(path, de.DefaultColumns()).Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Rows[0].GeneID != "ENSG001" {
		t.Errorf("gene ID = %s, want ENSG001", table.Rows[0].GeneID)
	}
}

func TestReader_SynthesizesGeneIDs(t *testing.T) {
	path := writeFile(t, "de.csv",
		"log2FoldChange,pvalue\n"+
			"1.5,0.01\n"+
			"0.2,0.7\n")

	table, err := NewReader(path, de.DefaultColumns()).Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Rows[0].GeneID != "gene_1" || table.Rows[1].GeneID != "gene_2" {
		t.Errorf("expected synthesized ordinal IDs, got %s, %s", table.Rows[0].GeneID, table.Rows[1].GeneID)
	}
}

func TestReader_Errors(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.csv"), de.DefaultColumns()).Read(); err == nil {
		t.Error("expected error for missing file")
	}

	noColumn := writeFile(t, "bad.csv", "gene_id,foo,bar\na,1,2\n")
	if _, err := NewReader(noColumn, de.DefaultColumns()).Read(); err == nil {
		t.Error("expected error for missing required columns")
	}

	headerOnly := writeFile(t, "empty.csv", "gene_id,log2FoldChange,pvalue\n")
	if _, err := NewReader(headerOnly, de.DefaultColumns()).Read(); err == nil {
		t.Error("expected error for header-only file")
	}

	badP := writeFile(t, "badp.csv", "gene_id,log2FoldChange,pvalue\na,1.0,3.5\n")
	if _, err := NewReader(badP, de.DefaultColumns()).Read(); err == nil {
		t.Error("expected error for out-of-range p-value")
	}
}
