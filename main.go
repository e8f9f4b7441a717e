package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gothresh/adapters/postgres"
	"gothresh/adapters/report"
	"gothresh/adapters/tabular"
	"gothresh/app"
	"gothresh/domain/de"
	"gothresh/domain/threshold"
	"gothresh/internal/config"
	"gothresh/internal/logx"
	"gothresh/internal/optimizer"
	"gothresh/internal/testkit"
	"gothresh/ports"
)

// demoReader serves a synthetic table when no input file is given
type demoReader struct {
	cfg testkit.DEGeneratorConfig
}

func (d demoReader) Read() (*de.Table, error) {
	return testkit.NewDEGenerator(d.cfg).Table(), nil
}

func main() {
	// .env is optional; environment variables win
	_ = godotenv.Load()

	var (
		inputPath  = flag.String("input", "", "DE result table (.csv, .tsv or .xlsx); empty runs the synthetic demo")
		goal       = flag.String("goal", "", "analysis goal: discovery, balanced or validation")
		padjMethod = flag.String("padj", "", "p-value adjustment override (BH, BY, qvalue, holm, hochberg, bonferroni)")
		lfcMethod  = flag.String("logfc", "", "effect-size strategy override (mad, mixture, power, percentile, consensus)")
		pi0Method  = flag.String("pi0", "", "pi0 estimator override (storey_spline, pounds_cheng, histogram)")
		alpha      = flag.Float64("alpha", 0, "adjusted p-value cutoff override")
		outPath    = flag.String("out", "", "write significant genes to this CSV file")
		reportPath = flag.String("report", "", "write an HTML report to this file")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	logger := logx.NewDefaultLogger()

	if *inputPath == "" {
		*inputPath = cfg.Input.Path
	}
	if *goal == "" {
		*goal = cfg.Input.Goal
	}

	var reader ports.TableReader
	if *inputPath != "" {
		reader = tabular.NewReader(*inputPath, cfg.Input.Columns)
	} else {
		logger.Info("no input file given, using synthetic demo data")
		reader = demoReader{cfg: testkit.DefaultDEConfig()}
	}

	var repo ports.RunRepository
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(db); err != nil {
			log.Fatalf("failed to prepare schema: %v", err)
		}
		repo = postgres.NewRunRepository(db)
	}

	service := app.NewOptimizeService(reader, repo, logger)
	run, err := service.Run(context.Background(), optimizer.Options{
		Goal:            *goal,
		Pi0Method:       *pi0Method,
		PadjMethod:      *padjMethod,
		LogFCMethod:     *lfcMethod,
		PValueThreshold: *alpha,
	}, *inputPath)
	if err != nil {
		log.Fatalf("optimization failed: %v", err)
	}

	fmt.Println(run.Result.Summary())
	fmt.Println(run.Result.MethodsText)

	if *outPath != "" {
		if err := writeSignificantCSV(*outPath, run.Result); err != nil {
			log.Fatalf("failed to write %s: %v", *outPath, err)
		}
		logger.Info("wrote %d significant genes to %s", run.Result.NSignificant, *outPath)
	}
	if *reportPath != "" {
		if err := os.WriteFile(*reportPath, report.RenderHTML(run), 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", *reportPath, err)
		}
		logger.Info("wrote report to %s", *reportPath)
	}
}

func writeSignificantCSV(path string, result *threshold.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"gene_id", "log2FoldChange", "pvalue", "adjusted_pvalue"}); err != nil {
		return err
	}
	for _, row := range result.SignificantGenes() {
		record := []string{
			row.GeneID,
			strconv.FormatFloat(row.EffectSize, 'g', -1, 64),
			strconv.FormatFloat(row.RawPValue, 'g', -1, 64),
			strconv.FormatFloat(row.AdjustedPValue, 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
