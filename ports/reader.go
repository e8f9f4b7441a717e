package ports

import (
	"gothresh/domain/de"
)

// TableReader loads a differential-expression result table from some
// source (file, upload, synthetic generator).
type TableReader interface {
	Read() (*de.Table, error)
}
