package rdbms

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms/shared"
)

// CountRows returns the number of rows in table st using a read-only select count(*).
func CountRows(ctx context.Context, log logger.Logger, db shared.Connector, st SchemaTable) (int64, error) {
	sqltext := fmt.Sprintf("select count(*) from %v", st.String())
	log.Debug("counting rows using SQL: ", sqltext)
	rows, err := db.QueryContext(ctx, sqltext)
	if err != nil {
		return 0, errors.Wrapf(err, "error during database query using SQL: '%v'", sqltext)
	}
	defer func() {
		_ = rows.Close()
	}()
	var count int64
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return 0, errors.Wrap(err, "error fetching row count")
		}
		return 0, errors.Errorf("no rows returned by SQL: '%v'", sqltext)
	}
	if err = rows.Scan(&count); err != nil {
		return 0, errors.Wrap(err, "error scanning row count")
	}
	return count, rows.Err()
}
