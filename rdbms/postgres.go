package rdbms

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms/shared"
)

// newPostgresConnection opens the Postgres database specified in c using the pgx stdlib driver.
func newPostgresConnection(ctx context.Context, log logger.Logger, c shared.ConnectionDetails) (shared.Connector, error) {
	return newConnectionWithDsn(ctx, log, c, shared.NewPostgresDmlGenerator())
}
