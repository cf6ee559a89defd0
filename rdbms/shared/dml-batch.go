package shared

import (
	"fmt"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/visitload/logger"
)

// Bind variable formats understood by DmlGeneratorTxtBatch.
const (
	BindVarFormatPostgres = "$%v"
	BindVarFormatSqlite   = "?%v"
	BindVarFormatOracle   = ":%v"
)

// DmlGeneratorTxtBatch implements DmlGenerator using SQL text with positional bind variables.
type DmlGeneratorTxtBatch struct {
	BindVarFormat    string // fmt verb used to render the 1-based bind variable position.
	TruncateTemplate string // template with <SCHEMA>, <SEPARATOR> and <TABLE> markers.
	MaxBindVars      int    // most bind variables allowed in one statement; 0 for unlimited.
}

// Bind variable limits per statement.
const (
	MaxBindVarsPostgres = 65535 // uint16 parameter count in the wire protocol.
	MaxBindVarsSqlite   = 32766 // SQLITE_MAX_VARIABLE_NUMBER since 3.32.
)

// NewPostgresDmlGenerator returns a generator using $n binds and a transactional TRUNCATE.
func NewPostgresDmlGenerator() *DmlGeneratorTxtBatch {
	return &DmlGeneratorTxtBatch{
		BindVarFormat:    BindVarFormatPostgres,
		TruncateTemplate: `truncate table <SCHEMA><SEPARATOR><TABLE>`,
		MaxBindVars:      MaxBindVarsPostgres,
	}
}

// NewSqliteDmlGenerator returns a generator using ?n binds.
// SQLite has no TRUNCATE so an unqualified DELETE is used instead.
func NewSqliteDmlGenerator() *DmlGeneratorTxtBatch {
	return &DmlGeneratorTxtBatch{
		BindVarFormat:    BindVarFormatSqlite,
		TruncateTemplate: `delete from <SCHEMA><SEPARATOR><TABLE>`,
		MaxBindVars:      MaxBindVarsSqlite,
	}
}

func (d *DmlGeneratorTxtBatch) bindVar(pos int) string {
	f := d.BindVarFormat
	if f == "" {
		f = BindVarFormatOracle
	}
	return fmt.Sprintf(f, pos)
}

type SqlStatementGeneratorConfig struct {
	Log             logger.Logger
	OutputSchema    string
	SchemaSeparator string
	OutputTable     string
	TargetKeyCols   *om.OrderedMap // ordered map of: key = record field name; value = target table column name
	TargetOtherCols *om.OrderedMap // ordered map of: key = record field name; value = target table column name
}

type sqlCoreCfg struct {
	sqlStmt                string
	sqlStmtTemplate        string
	sqlValues              []interface{} // slice to hold data values for all rows in batch
	batchSize              int
	rowsInBatch            int
	previousNumRowsInBatch int
}
