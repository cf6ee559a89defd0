package rdbms

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms/shared"
)

// newSqliteConnection opens the SQLite database file specified in c.
// The DSN is a file path or a go-sqlite3 "file:" URI, optionally prefixed with "sqlite3:".
func newSqliteConnection(ctx context.Context, log logger.Logger, c shared.ConnectionDetails) (shared.Connector, error) {
	return newConnectionWithDsn(ctx, log, c, shared.NewSqliteDmlGenerator())
}
