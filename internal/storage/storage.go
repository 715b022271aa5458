// Package storage defines the export journal interface and its implementations.
package storage

import (
	"context"

	"telegram2org/internal/model"
)

// Journal records every task written to the outline.
type Journal interface {
	RecordExport(ctx context.Context, e *model.Export) error
	ListExports(ctx context.Context, limit int) ([]model.Export, error)

	Close() error
}
