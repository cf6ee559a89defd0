package components

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	c "github.com/relloyd/visitload/constants"
	h "github.com/relloyd/visitload/helper"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms/shared"
	"github.com/relloyd/visitload/stats"
	"github.com/relloyd/visitload/stream"
)

// LoadState is the position of a TableReplaceLoader in its load cycle.
type LoadState int

const (
	LoadStateIdle LoadState = iota
	LoadStateConnecting
	LoadStateLoading
	LoadStateCommitted
	LoadStateRetryWait
	LoadStateExhausted
)

func (s LoadState) String() string {
	switch s {
	case LoadStateIdle:
		return "Idle"
	case LoadStateConnecting:
		return "Connecting"
	case LoadStateLoading:
		return "Loading"
	case LoadStateCommitted:
		return "Committed"
	case LoadStateRetryWait:
		return "RetryWait"
	case LoadStateExhausted:
		return "Exhausted"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

type TableReplaceLoaderConfig struct {
	Log                                logger.Logger
	Name                               string
	ConnectionDetails                  shared.ConnectionDetails  // target database; a new session is opened per attempt.
	OpenConnectionFn                   shared.OpenConnectionFunc // opens the session described by ConnectionDetails.
	shared.SqlStatementGeneratorConfig                           // target table; column maps default to the record fields.
	MaxAttempts                        int                       // total attempts per batch including the first.
	RetryDelay                         time.Duration             // pause after every failed attempt.
	IsTransientFn                      func(err error) bool      // nil retries every error.
	SleepFn                            func(d time.Duration)     // nil uses time.Sleep.
	Stats                              *stats.RunStats           // optional.
}

// TableReplaceLoader replaces the contents of a table with one batch of records at a time.
type TableReplaceLoader struct {
	cfg    TableReplaceLoaderConfig
	fields []string // record fields bound to the INSERT columns, in column order.
	mu     sync.Mutex
	state  LoadState
}

// NewTableReplaceLoader validates cfg and applies defaults for attempts and table columns.
func NewTableReplaceLoader(cfg *TableReplaceLoaderConfig) (*TableReplaceLoader, error) {
	if cfg.Log == nil {
		return nil, errors.New("missing logger in call to NewTableReplaceLoader")
	}
	if cfg.OpenConnectionFn == nil {
		return nil, errors.Errorf("%v error - missing connection func in call to NewTableReplaceLoader", cfg.Name)
	}
	if cfg.Name == "" {
		cfg.Name = "TableReplaceLoader"
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = c.DefaultMaxLoadAttempts
	}
	if cfg.RetryDelay < 0 {
		return nil, errors.Errorf("%v error - retry delay must not be negative", cfg.Name)
	}
	if cfg.SqlStatementGeneratorConfig.Log == nil {
		cfg.SqlStatementGeneratorConfig.Log = cfg.Log
	}
	if err := shared.FixSqlStatementGeneratorConfig(&cfg.SqlStatementGeneratorConfig); err != nil {
		return nil, errors.Wrapf(err, "%v error", cfg.Name)
	}
	if h.OrderedMapLen(cfg.TargetKeyCols)+h.OrderedMapLen(cfg.TargetOtherCols) == 0 { // if no columns were supplied...
		cfg.TargetOtherCols = h.StringSliceToOrderedMap(stream.AttributionFieldNames()) // columns share the record field names.
	}
	return &TableReplaceLoader{
		cfg:    *cfg,
		fields: h.OrderedMapKeysToStringSlice(cfg.TargetKeyCols, cfg.TargetOtherCols),
		state:  LoadStateIdle,
	}, nil
}

// State returns the loader's current state.
func (l *TableReplaceLoader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *TableReplaceLoader) setState(s LoadState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	l.cfg.Log.Trace(l.cfg.Name, " state = ", s)
}

// Load replaces the contents of the target table with batch and returns the number of rows written.
// Each attempt uses a new session and one transaction for both the truncate and the insert,
// so a failed attempt leaves the table unchanged.
// Transient failures are retried after RetryDelay until MaxAttempts is used up, in which case the
// error matches helper.ErrRetriesExhausted.
// A malformed batch returns an error matching stream.ErrMalformedBatch without touching the database.
func (l *TableReplaceLoader) Load(ctx context.Context, batch stream.Batch) (int, error) {
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	for _, f := range l.fields {
		if _, ok := batch[0].Get(f); !ok {
			return 0, errors.Wrapf(stream.ErrMalformedBatch, "records have no field %q for table %v", f, l.cfg.QualifiedTableName())
		}
	}
	sleep := l.cfg.SleepFn
	if sleep == nil {
		sleep = time.Sleep
	}
	err := h.Retry(&h.RetryConfig{
		Log:         l.cfg.Log,
		Name:        l.cfg.Name,
		MaxAttempts: l.cfg.MaxAttempts,
		Delay:       l.cfg.RetryDelay,
		IsRetryable: l.cfg.IsTransientFn,
		Sleep: func(d time.Duration) {
			l.setState(LoadStateRetryWait)
			sleep(d)
		},
	}, func(attempt int) error {
		err := l.loadAttempt(ctx, attempt, batch)
		if l.cfg.Stats != nil {
			l.cfg.Stats.AddAttempt(err != nil)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, h.ErrRetriesExhausted) {
			l.setState(LoadStateExhausted)
		} else {
			l.setState(LoadStateIdle)
		}
		return 0, err
	}
	l.setState(LoadStateCommitted)
	if l.cfg.Stats != nil {
		l.cfg.Stats.AddRowsLoaded(int64(len(batch)))
	}
	l.cfg.Log.Info("Inserted a batch of ", len(batch), " rows")
	return len(batch), nil
}

// loadAttempt opens a session and replaces the table contents in one transaction.
// The session is closed, and the transaction rolled back unless committed, before it returns.
func (l *TableReplaceLoader) loadAttempt(ctx context.Context, attempt int, batch stream.Batch) (err error) {
	l.setState(LoadStateConnecting)
	l.cfg.Log.Debug(l.cfg.Name, " attempt ", attempt, " of ", l.cfg.MaxAttempts, " for batch of ", len(batch), " rows into ", l.cfg.QualifiedTableName())
	conn, err := l.cfg.OpenConnectionFn(ctx, l.cfg.Log, l.cfg.ConnectionDetails)
	if err != nil {
		return errors.Wrap(err, "error opening database connection")
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			l.cfg.Log.Warn(l.cfg.Name, " error closing database connection: ", closeErr)
		}
	}()
	l.setState(LoadStateLoading)
	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return errors.Wrap(err, "error starting transaction")
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				l.cfg.Log.Debug(l.cfg.Name, " rollback: ", rbErr)
			}
		}
	}()
	// Build SQL for this connection's dialect.
	genCfg := l.cfg.SqlStatementGeneratorConfig
	dml := conn.GetDmlGenerator()
	truncate := dml.NewTruncateGenerator(&genCfg).GetStatement()
	insert, ok := dml.NewInsertGenerator(&genCfg).(shared.SqlStmtTxtBatcher)
	if !ok {
		return errors.Errorf("%v - multi-row INSERT is not supported for connection type %v", l.cfg.Name, conn.GetType())
	}
	l.cfg.Log.Trace(l.cfg.Name, " truncate SQL: ", truncate)
	if _, err = tx.ExecContext(ctx, truncate); err != nil {
		return errors.Wrap(err, "error truncating table")
	}
	// Insert in chunks that fit the dialect's bind variable limit, all within this transaction.
	chunkSize := insert.MaxRowsPerStatement()
	if chunkSize <= 0 || chunkSize > len(batch) {
		chunkSize = len(batch)
	}
	for start := 0; start < len(batch); start += chunkSize {
		end := start + chunkSize
		if end > len(batch) {
			end = len(batch)
		}
		insert.InitBatch(end - start)
		for idx := start; idx < end; idx++ {
			if _, err = insert.AddValuesToBatch(l.recordValues(batch[idx])); err != nil {
				return errors.Wrapf(err, "error adding record %d to INSERT batch", idx)
			}
		}
		if _, err = tx.ExecContext(ctx, insert.GetStatement(), insert.GetValues()...); err != nil {
			return errors.Wrapf(err, "error inserting rows %d to %d of batch", start+1, end)
		}
	}
	if err = tx.Commit(); err != nil {
		committed = true // the driver has finished with the transaction either way.
		return errors.Wrap(err, "error committing transaction")
	}
	committed = true
	return nil
}

// recordValues returns the values of rec in column order, with nil for absent values.
func (l *TableReplaceLoader) recordValues(rec stream.AttributionRecord) []interface{} {
	values := make([]interface{}, len(l.fields))
	for idx, f := range l.fields {
		if v, _ := rec.Get(f); v.Valid {
			values[idx] = v.String
		}
	}
	return values
}
