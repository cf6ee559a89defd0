package stream

import (
	"github.com/pkg/errors"
	c "github.com/relloyd/visitload/constants"
)

// ErrMalformedBatch is matched by errors.Is for batches that are empty or mix field sets.
var ErrMalformedBatch = errors.New("malformed batch")

// Batch is an ordered group of records submitted to the database together.
type Batch []AttributionRecord

// Validate returns an error wrapping ErrMalformedBatch if the batch is empty or if any record's fields differ
// from those of the first record.
func (b Batch) Validate() error {
	if len(b) == 0 {
		return errors.Wrap(ErrMalformedBatch, "batch is empty")
	}
	fields := b[0].FieldNames()
	if len(fields) == 0 {
		return errors.Wrap(ErrMalformedBatch, "first record in batch has no fields")
	}
	for idx, r := range b {
		if !r.HasFields(fields) {
			return errors.Wrapf(ErrMalformedBatch, "record %d has fields %v; expected %v", idx, r.FieldNames(), fields)
		}
	}
	return nil
}

// BatchAccumulator collects records in arrival order and tells the caller when a batch is full.
// The caller performs the flush by calling Drain.
type BatchAccumulator struct {
	threshold int
	records   Batch
}

// NewBatchAccumulator returns an accumulator that signals a flush at threshold records.
// A threshold less than 1 uses the default batch size.
func NewBatchAccumulator(threshold int) *BatchAccumulator {
	if threshold < 1 {
		threshold = c.DefaultBatchSize
	}
	return &BatchAccumulator{threshold: threshold, records: make(Batch, 0, threshold)}
}

// Add appends rec and returns true when the accumulator has reached its threshold and should be drained.
func (a *BatchAccumulator) Add(rec AttributionRecord) (flush bool) {
	a.records = append(a.records, rec)
	return len(a.records) >= a.threshold
}

// Drain returns the accumulated records and leaves the accumulator empty.
// The returned batch is never touched by the accumulator again.
func (a *BatchAccumulator) Drain() Batch {
	b := a.records
	a.records = make(Batch, 0, a.threshold)
	return b
}

// Len returns the number of records waiting to be drained.
func (a *BatchAccumulator) Len() int {
	return len(a.records)
}

// Threshold returns the batch size at which Add signals a flush.
func (a *BatchAccumulator) Threshold() int {
	return a.threshold
}
