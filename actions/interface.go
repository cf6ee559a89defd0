package actions

import (
	"context"

	"github.com/relloyd/visitload/stream"
)

// RowSource supplies input rows in order and returns io.EOF when there are no more.
type RowSource interface {
	Next() (stream.RawInputRow, error)
}

// BatchLoader writes one batch to the target and returns the number of rows persisted.
type BatchLoader interface {
	Load(ctx context.Context, batch stream.Batch) (int, error)
}
