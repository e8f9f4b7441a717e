package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gothresh/domain/core"
	"gothresh/domain/threshold"
	"gothresh/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new optimization-run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// EnsureSchema creates the optimization_runs table if it does not exist
func EnsureSchema(db *sqlx.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS optimization_runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		goal TEXT NOT NULL,
		pi0 DOUBLE PRECISION NOT NULL,
		pi0_method TEXT NOT NULL,
		padj_method TEXT NOT NULL,
		pvalue_threshold DOUBLE PRECISION NOT NULL,
		logfc_threshold DOUBLE PRECISION NOT NULL,
		logfc_method TEXT NOT NULL,
		n_genes INTEGER NOT NULL,
		n_significant INTEGER NOT NULL,
		methods_text TEXT NOT NULL,
		rows JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create optimization_runs table: %w", err)
	}
	return nil
}

// Save inserts a completed run
func (r *runRepository) Save(ctx context.Context, run *threshold.Run) error {
	rowsJSON, err := json.Marshal(run.Result.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal result rows: %w", err)
	}

	query := `INSERT INTO optimization_runs (
		id, source, goal, pi0, pi0_method, padj_method, pvalue_threshold,
		logfc_threshold, logfc_method, n_genes, n_significant, methods_text, rows, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID.String(), run.Source, string(run.Result.Goal),
		run.Result.Pi0, run.Result.Pi0Method, run.Result.PadjMethod,
		run.Result.PValueThreshold, run.Result.LogFCThreshold, run.Result.LogFCMethod,
		len(run.Result.Rows), run.Result.NSignificant, run.Result.MethodsText,
		rowsJSON, run.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to save optimization run: %w", err)
	}
	return nil
}

// GetByID retrieves a run with its full result table
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*threshold.Run, error) {
	query := `SELECT id, source, goal, pi0, pi0_method, padj_method, pvalue_threshold,
		logfc_threshold, logfc_method, n_significant, methods_text, rows, created_at
	FROM optimization_runs WHERE id = $1`

	var (
		run      threshold.Run
		result   threshold.Result
		rowsJSON []byte
		idStr    string
		goal     string
		created  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr, &run.Source, &goal,
		&result.Pi0, &result.Pi0Method, &result.PadjMethod, &result.PValueThreshold,
		&result.LogFCThreshold, &result.LogFCMethod, &result.NSignificant,
		&result.MethodsText, &rowsJSON, &created,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("optimization run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get optimization run: %w", err)
	}

	if err := json.Unmarshal(rowsJSON, &result.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result rows: %w", err)
	}
	result.Goal = threshold.Goal(goal)
	run.ID = core.RunID(idStr)
	run.Result = &result
	if created.Valid {
		run.CreatedAt = core.NewTimestamp(created.Time)
	}
	return &run, nil
}

// List returns recent run summaries, newest first, without row tables
func (r *runRepository) List(ctx context.Context, limit int) ([]*threshold.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, source, goal, pi0, pi0_method, padj_method, pvalue_threshold,
		logfc_threshold, logfc_method, n_significant, methods_text, created_at
	FROM optimization_runs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list optimization runs: %w", err)
	}
	defer rows.Close()

	var runs []*threshold.Run
	for rows.Next() {
		var (
			run     threshold.Run
			result  threshold.Result
			idStr   string
			goal    string
			created sql.NullTime
		)
		err := rows.Scan(
			&idStr, &run.Source, &goal,
			&result.Pi0, &result.Pi0Method, &result.PadjMethod, &result.PValueThreshold,
			&result.LogFCThreshold, &result.LogFCMethod, &result.NSignificant,
			&result.MethodsText, &created,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan optimization run: %w", err)
		}
		result.Goal = threshold.Goal(goal)
		run.ID = core.RunID(idStr)
		run.Result = &result
		if created.Valid {
			run.CreatedAt = core.NewTimestamp(created.Time)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
