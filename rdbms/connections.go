package rdbms

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/relloyd/visitload/constants"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms/shared"
)

// OpenDbConnection opens a database connection using the supplied ConnectionDetails struct in c.
// The connection is pinged before it is returned so callers see connection failures here.
// It satisfies shared.OpenConnectionFunc.
func OpenDbConnection(ctx context.Context, log logger.Logger, c shared.ConnectionDetails) (db shared.Connector, err error) {
	log.Debug("opening connection type ", c.Type, " with logicalName ", c.LogicalName) // don't log password details in c.Dsn!
	switch c.Type {
	case constants.ConnectionTypePostgres:
		db, err = newPostgresConnection(ctx, log, c)
	case constants.ConnectionTypeSqlite:
		db, err = newSqliteConnection(ctx, log, c)
	default:
		err = errors.Errorf("unsupported database type, %q", c.Type)
	}
	return
}

// newConnectionWithDsn opens and pings a *sql.DB for c, wrapping it in a HpConnection that uses dml.
// A single open connection is used since each load attempt owns its own session.
func newConnectionWithDsn(ctx context.Context, log logger.Logger, c shared.ConnectionDetails, dml shared.DmlGenerator) (shared.Connector, error) {
	driverName, connectString, err := c.Parse()
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing DSN %q", c.RedactedDsn())
	}
	log.Info("Opening database connection: ", c)
	conn := &shared.HpConnection{
		Dml:    dml,
		DbType: c.Type,
	}
	conn.DbSql, err = sql.Open(driverName, connectString)
	if err != nil {
		log.Error("Database connection failed: ", err)
		return nil, err
	}
	conn.DbSql.SetMaxOpenConns(1)
	// Test the connection.
	if err = conn.DbSql.PingContext(ctx); err != nil {
		log.Error("Database connection failed: ", err)
		_ = conn.DbSql.Close()
		return nil, err
	}
	log.Debug("Successful connection to: ", c)
	return conn, nil
}
