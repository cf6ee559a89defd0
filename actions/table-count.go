package actions

import (
	"context"

	c "github.com/relloyd/visitload/constants"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms"
	"github.com/relloyd/visitload/rdbms/shared"
	"github.com/rs/xid"
)

type TableCountConfig struct {
	EnvFile          string
	Table            rdbms.SchemaTable `errorTxt:"[schema.]table" mandatory:"yes"`
	LogLevel         string
	StackDumpOnPanic bool
	Connection       *shared.ConnectionDetails // overrides the environment when set.
}

// LogTableRowCount logs the number of rows in table st.
// Failures are logged rather than returned since the count is informational only.
func LogTableRowCount(ctx context.Context, log logger.Logger, openFn shared.OpenConnectionFunc, cd shared.ConnectionDetails, st rdbms.SchemaTable) (count int64, ok bool) {
	db, err := openFn(ctx, log, cd)
	if err != nil {
		log.Error("Database operation failed: ", err)
		return 0, false
	}
	defer func() {
		_ = db.Close()
	}()
	count, err = rdbms.CountRows(ctx, log, db, st)
	if err != nil {
		log.Error("Database operation failed: ", err)
		return 0, false
	}
	log.Info("Row count in table ", st, ": ", count)
	return count, true
}

// RunTableCount logs the row count of the configured table.
// Only configuration errors are returned.
func RunTableCount(ctx context.Context, cfg *TableCountConfig) error {
	if cfg.LogLevel == "" {
		cfg.LogLevel = c.DefaultLogLevel
	}
	if cfg.Table.SchemaTable == "" {
		cfg.Table = rdbms.NewSchemaTable("", c.DefaultTableName)
	}
	log := logger.NewLogger(c.ServiceName, cfg.LogLevel, cfg.StackDumpOnPanic).WithField("runId", xid.New().String())
	conn, err := resolveConnection(log, cfg.Connection, cfg.EnvFile)
	if err != nil {
		return err
	}
	LogTableRowCount(ctx, log, rdbms.OpenDbConnection, conn, cfg.Table)
	return nil
}
