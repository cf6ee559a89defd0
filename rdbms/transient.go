package rdbms

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// transientSqlStateClasses are the Postgres SQLSTATE classes that indicate the server or session
// was unavailable rather than the statement being wrong:
// 08 connection exception, 40 transaction rollback, 53 insufficient resources,
// 57 operator intervention, 58 system error.
var transientSqlStateClasses = map[string]struct{}{
	"08": {},
	"40": {},
	"53": {},
	"57": {},
	"58": {},
}

// IsTransientError returns true if err is a connection or availability failure that may succeed
// when the load is attempted again on a new session.
// Statement errors such as a missing table or a constraint violation return false.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) { // the caller asked us to stop.
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Postgres.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) < 2 {
			return false
		}
		_, ok := transientSqlStateClasses[pgErr.Code[:2]]
		return ok
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	// SQLite.
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
			return true
		}
		return false
	}
	// Network failures that were not wrapped by a driver.
	var netErr net.Error
	return errors.As(err, &netErr)
}
