// Package report renders an optimization run as a markdown document
// and converts it to HTML for the dashboard and CLI export.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gothresh/domain/threshold"
)

// maxListedGenes caps the significant-gene table in the report
const maxListedGenes = 50

// RenderMarkdown builds the run report as a markdown document
func RenderMarkdown(run *threshold.Run) []byte {
	r := run.Result
	var b strings.Builder

	fmt.Fprintf(&b, "# Adaptive Threshold Optimization Report\n\n")
	fmt.Fprintf(&b, "- **Run ID**: %s\n", run.ID)
	if run.Source != "" {
		fmt.Fprintf(&b, "- **Source**: %s\n", run.Source)
	}
	if !run.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created**: %s\n", run.CreatedAt)
	}
	fmt.Fprintf(&b, "\n## Methods\n\n%s\n", r.MethodsText)

	fmt.Fprintf(&b, "\n## Thresholds\n\n")
	fmt.Fprintf(&b, "| Parameter | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Goal | %s |\n", r.Goal)
	fmt.Fprintf(&b, "| pi0 | %.4f (%s) |\n", r.Pi0, r.Pi0Method)
	fmt.Fprintf(&b, "| Adjustment | %s |\n", r.PadjMethod)
	fmt.Fprintf(&b, "| padj cutoff | %g |\n", r.PValueThreshold)
	fmt.Fprintf(&b, "| &#124;log2FC&#124; cutoff | %.4f (%s) |\n", r.LogFCThreshold, r.LogFCMethod)
	fmt.Fprintf(&b, "| Genes analyzed | %d |\n", len(r.Rows))
	fmt.Fprintf(&b, "| Significant genes | %d |\n", r.NSignificant)

	sig := r.SignificantGenes()
	if len(sig) > 0 {
		fmt.Fprintf(&b, "\n## Top significant genes\n\n")
		fmt.Fprintf(&b, "| Gene | log2FC | raw p | adjusted p |\n|---|---|---|---|\n")
		for i, row := range sig {
			if i >= maxListedGenes {
				fmt.Fprintf(&b, "\n_%d further genes omitted._\n", len(sig)-maxListedGenes)
				break
			}
			fmt.Fprintf(&b, "| %s | %.3f | %.3g | %.3g |\n",
				row.GeneID, row.EffectSize, row.RawPValue, row.AdjustedPValue)
		}
	}
	return []byte(b.String())
}

// RenderHTML converts the markdown report to a standalone HTML fragment
func RenderHTML(run *threshold.Run) []byte {
	md := RenderMarkdown(run)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML(md, p, renderer)
}
