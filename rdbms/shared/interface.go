//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go

package shared

import (
	"context"

	"github.com/relloyd/visitload/logger"
)

// Connector abstracts all access to Go SQL functionality.
type Connector interface {
	// Go SQL entry points:
	BeginTx(ctx context.Context) (Transacter, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
	Close() error
	// Loader functionality:
	GetType() string
	GetDmlGenerator() DmlGenerator
}

type Transacter interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	Commit() error
	Rollback() error
}

// Interfaces to abstract Go SQL library return values so tests can supply their own.

type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// DmlGenerator produces the statements used to replace the contents of a table.
type DmlGenerator interface {
	NewInsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtGenerator
	NewTruncateGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtGenerator
}

// SqlStmtGenerator is used as part of SqlStmtTxtBatcher.
type SqlStmtGenerator interface {
	GetStatement() string
}

// SqlStmtTxtBatcher is used to combine DML statements that affect individual records into one statement, aiming
// to improve performance and reduce network round trips.
type SqlStmtTxtBatcher interface {
	SqlStmtGenerator
	InitBatch(batchSize int)                             // reset variables and preallocate slices for the given batch size.
	AddValuesToBatch(values []interface{}) (bool, error) // add values to SQL statement.
	GetValues() []interface{}                            // get all values added to the batch so they can be supplied as args to exec the SQL returned by getStatement().
	MaxRowsPerStatement() int                            // most rows allowed in one batch; 0 for unlimited.
}

// OpenConnectionFunc opens a new database session described by d.
type OpenConnectionFunc func(ctx context.Context, log logger.Logger, d ConnectionDetails) (Connector, error)
