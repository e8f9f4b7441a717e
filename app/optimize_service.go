package app

import (
	"context"
	"strings"

	"gothresh/domain/core"
	"gothresh/domain/threshold"
	"gothresh/internal/logx"
	"gothresh/internal/optimizer"
	"gothresh/ports"
)

// OptimizeService wires a table source, the optimizer core, and the
// optional run repository. It is the layer that surfaces data-quality
// fallbacks as warnings, which the pure core only records in fields.
type OptimizeService struct {
	reader ports.TableReader
	repo   ports.RunRepository // nil disables persistence
	opt    *optimizer.Optimizer
	log    *logx.Logger
}

// NewOptimizeService creates the service; repo may be nil
func NewOptimizeService(reader ports.TableReader, repo ports.RunRepository, log *logx.Logger) *OptimizeService {
	if log == nil {
		log = logx.Default
	}
	return &OptimizeService{
		reader: reader,
		repo:   repo,
		opt:    optimizer.New(),
		log:    log,
	}
}

// Run reads the table, optimizes thresholds, and wraps the result in a
// persisted Run record.
func (s *OptimizeService) Run(ctx context.Context, opts optimizer.Options, source string) (*threshold.Run, error) {
	table, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	s.log.Info("optimizing thresholds: %d genes, goal=%s", table.Len(), opts.Goal)

	result, err := s.opt.Optimize(table, opts)
	if err != nil {
		return nil, err
	}
	s.warnOnFallbacks(result)

	run := &threshold.Run{
		ID:        core.RunID(core.NewID()),
		Source:    source,
		Result:    result,
		CreatedAt: core.Now(),
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, run); err != nil {
			// The optimization itself succeeded; persistence failure
			// must not discard the result.
			s.log.Error("failed to persist run %s: %v", run.ID, err)
		}
	}

	s.log.Info("run %s: %d/%d significant (|log2FC|>%.3f, padj<%g)",
		run.ID, result.NSignificant, len(result.Rows), result.LogFCThreshold, result.PValueThreshold)
	return run, nil
}

// warnOnFallbacks surfaces degraded-confidence estimates
func (s *OptimizeService) warnOnFallbacks(r *threshold.Result) {
	if strings.HasSuffix(r.Pi0Method, "_fallback") {
		s.log.Warn("pi0 estimation degraded to %s (pi0=%.3f)", r.Pi0Method, r.Pi0)
	}
	if strings.HasSuffix(r.LogFCMethod, "_fallback") {
		s.log.Warn("effect-size threshold degraded to %s (threshold=%.3f)", r.LogFCMethod, r.LogFCThreshold)
	}
}
