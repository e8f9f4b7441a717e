// Package testkit provides deterministic synthetic DE tables for tests
// and the demo paths of the CLI and API.
package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"gothresh/domain/de"
)

// DEGeneratorConfig configures the synthetic DE-table generator
type DEGeneratorConfig struct {
	GeneCount    int     `json:"gene_count"`
	DEProportion float64 `json:"de_proportion"`
	NullSD       float64 `json:"null_sd"`
	DEMean       float64 `json:"de_mean"`
	DESD         float64 `json:"de_sd"`
	Seed         uint64  `json:"seed"`
}

// DefaultDEConfig returns sensible defaults mirroring a typical RNA-seq
// contrast: mostly nulls around zero, a minority of shifted genes.
func DefaultDEConfig() DEGeneratorConfig {
	return DEGeneratorConfig{
		GeneCount:    10000,
		DEProportion: 0.15,
		NullSD:       0.2,
		DEMean:       1.5,
		DESD:         0.5,
		Seed:         42,
	}
}

// DEGenerator produces deterministic synthetic DE tables
type DEGenerator struct {
	cfg DEGeneratorConfig
	src *rand.PCG
}

// NewDEGenerator creates a generator seeded from the config
func NewDEGenerator(cfg DEGeneratorConfig) *DEGenerator {
	return &DEGenerator{cfg: cfg, src: rand.NewPCG(cfg.Seed, 0x9e3779b97f4a7c15)}
}

// Table generates a table with cfg.GeneCount genes: null genes drawn
// N(0, NullSD) with uniform p-values above 0.05, DE genes split between
// up- and down-regulation with exponentially small p-values.
func (g *DEGenerator) Table() *de.Table {
	nDE := int(float64(g.cfg.GeneCount) * g.cfg.DEProportion)
	nNull := g.cfg.GeneCount - nDE

	nullEffect := distuv.Normal{Mu: 0, Sigma: g.cfg.NullSD, Src: g.src}
	nullP := distuv.Uniform{Min: 0.05, Max: 1, Src: g.src}
	upEffect := distuv.Normal{Mu: g.cfg.DEMean, Sigma: g.cfg.DESD, Src: g.src}
	downEffect := distuv.Normal{Mu: -g.cfg.DEMean, Sigma: g.cfg.DESD, Src: g.src}
	deP := distuv.Exponential{Rate: 1000, Src: g.src}

	rows := make([]de.Row, 0, g.cfg.GeneCount)
	for i := 0; i < nNull; i++ {
		rows = append(rows, de.Row{
			GeneID:     fmt.Sprintf("GENE_%05d", len(rows)),
			EffectSize: nullEffect.Rand(),
			RawPValue:  nullP.Rand(),
		})
	}
	for i := 0; i < nDE; i++ {
		effect := upEffect.Rand()
		if i%2 == 1 {
			effect = downEffect.Rand()
		}
		p := math.Min(deP.Rand(), 0.05)
		if p < 1e-300 {
			p = 1e-300
		}
		rows = append(rows, de.Row{
			GeneID:     fmt.Sprintf("GENE_%05d", len(rows)),
			EffectSize: effect,
			RawPValue:  p,
		})
	}

	table, err := de.NewTable(rows)
	if err != nil {
		// Generated IDs are unique and p-values in range; this cannot
		// happen for a well-formed config.
		panic(err)
	}
	return table
}

// UniformNullTable generates n genes with uniform p-values and N(0,1)
// effects: a pure-null dataset where pi0 should estimate near 1.
func UniformNullTable(n int, seed uint64) *de.Table {
	src := rand.NewPCG(seed, 0x6a09e667f3bcc909)
	pDist := distuv.Uniform{Min: 0, Max: 1, Src: src}
	eDist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	rows := make([]de.Row, n)
	for i := range rows {
		rows[i] = de.Row{
			GeneID:     fmt.Sprintf("GENE_%05d", i),
			EffectSize: eDist.Rand(),
			RawPValue:  pDist.Rand(),
		}
	}
	table, err := de.NewTable(rows)
	if err != nil {
		panic(err)
	}
	return table
}

// SpikedTable generates nGenes genes of which nDE carry a strong
// positive effect N(3, 0.5) with Beta(0.5, 10) p-values; the rest are
// null. Expected pi0 is roughly 1 - nDE/nGenes.
func SpikedTable(nGenes, nDE int, seed uint64) *de.Table {
	src := rand.NewPCG(seed, 0xbb67ae8584caa73b)
	nullP := distuv.Uniform{Min: 0, Max: 1, Src: src}
	nullEffect := distuv.Normal{Mu: 0, Sigma: 0.3, Src: src}
	deP := distuv.Beta{Alpha: 0.5, Beta: 10, Src: src}
	deEffect := distuv.Normal{Mu: 3, Sigma: 0.5, Src: src}

	rows := make([]de.Row, 0, nGenes)
	for i := 0; i < nGenes-nDE; i++ {
		rows = append(rows, de.Row{
			GeneID:     fmt.Sprintf("GENE_%05d", len(rows)),
			EffectSize: nullEffect.Rand(),
			RawPValue:  nullP.Rand(),
		})
	}
	for i := 0; i < nDE; i++ {
		rows = append(rows, de.Row{
			GeneID:     fmt.Sprintf("GENE_%05d", len(rows)),
			EffectSize: deEffect.Rand(),
			RawPValue:  deP.Rand(),
		})
	}
	table, err := de.NewTable(rows)
	if err != nil {
		panic(err)
	}
	return table
}
