package actions

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/relloyd/visitload/components"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/stats"
	"github.com/relloyd/visitload/stream"
)

type PipelineConfig struct {
	Log       logger.Logger
	Source    RowSource
	Loader    BatchLoader
	BatchSize int                                          // rows per batch; less than 1 uses the default.
	MapFn     func(rawUrl string) stream.AttributionRecord // nil uses components.MapUrlToAttributionRecord.
	Stats     *stats.RunStats                              // optional.
}

// RunPipeline reads every row from cfg.Source, maps each URL to a record and loads full batches as they
// fill, followed by any trailing partial batch. It returns the total number of rows the loader persisted.
// The first loader error stops the run and is returned with the total so far.
func RunPipeline(ctx context.Context, cfg *PipelineConfig) (total int, err error) {
	if cfg.Source == nil || cfg.Loader == nil {
		return 0, errors.New("pipeline requires a row source and a loader")
	}
	mapFn := cfg.MapFn
	if mapFn == nil {
		mapFn = components.MapUrlToAttributionRecord
	}
	acc := stream.NewBatchAccumulator(cfg.BatchSize)
	flush := func() error {
		b := acc.Drain()
		n, err := cfg.Loader.Load(ctx, b)
		if err != nil {
			return errors.Wrapf(err, "error loading batch of %d rows", len(b))
		}
		total += n
		if cfg.Stats != nil {
			cfg.Stats.AddBatchFlushed()
		}
		return nil
	}
	for {
		if err = ctx.Err(); err != nil {
			return total, err
		}
		row, nextErr := cfg.Source.Next()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			return total, nextErr
		}
		if cfg.Stats != nil {
			cfg.Stats.AddRowsRead(1)
		}
		cfg.Log.Trace("line ", row.LineNumber, ": ", row.Url)
		if acc.Add(mapFn(row.Url)) { // if the batch is full...
			if err = flush(); err != nil {
				return total, err
			}
		}
	}
	if acc.Len() > 0 { // if there is a trailing partial batch...
		if err = flush(); err != nil {
			return total, err
		}
	}
	cfg.Log.Info("Total rows inserted into database: ", total)
	return total, nil
}
