package ports

import (
	"context"

	"gothresh/domain/core"
	"gothresh/domain/threshold"
)

// RunRepository persists optimization runs. Persistence is an external
// caller concern; the optimizer core never touches storage.
type RunRepository interface {
	Save(ctx context.Context, run *threshold.Run) error
	GetByID(ctx context.Context, id core.RunID) (*threshold.Run, error)
	List(ctx context.Context, limit int) ([]*threshold.Run, error)
}
