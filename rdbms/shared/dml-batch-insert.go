package shared

import (
	"strings"

	h "github.com/relloyd/visitload/helper"

	"github.com/pkg/errors"
)

// SqlInsertTxtBatch implements interface SqlStmtTxtBatcher.
// It is able to generate multi-row INSERT statements with batches of rows supplied.
type SqlInsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string // list of columns extracted from SqlStatementGeneratorConfig.
	dml     *DmlGeneratorTxtBatch
}

// NewInsertGenerator creates a new SqlStmtGenerator that implements interface SqlStmtTxtBatcher.
// Configure defaults in SqlStatementGeneratorConfig.
func (d *DmlGeneratorTxtBatch) NewInsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtGenerator {
	if err := FixSqlStatementGeneratorConfig(cfg); err != nil {
		panic(err)
	}
	o := &SqlInsertTxtBatch{SqlStatementGeneratorConfig: *cfg, dml: d}
	o.setupSqlStatement()
	return o
}

func (o *SqlInsertTxtBatch) setupSqlStatement() {
	// Build the list of column names: "key" columns first then "other" columns.
	o.ColList = make([]string, h.OrderedMapLen(o.TargetKeyCols)+h.OrderedMapLen(o.TargetOtherCols))
	idx := 0
	if o.TargetKeyCols != nil {
		h.OrderedMapValuesToStringSlice(o.Log, o.TargetKeyCols, &o.ColList, &idx)
	}
	if o.TargetOtherCols != nil {
		h.OrderedMapValuesToStringSlice(o.Log, o.TargetOtherCols, &o.ColList, &idx)
	}
	// Populate the SQL template.
	o.sqlStmtTemplate = `insert into <SCHEMA><SEPARATOR><TABLE> (<TGT-COLS>) values <VALUES>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SCHEMA>", o.OutputSchema, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SEPARATOR>", o.SchemaSeparator, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", o.OutputTable, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(o.ColList, ","), 1)
	if o.Log != nil {
		o.Log.Debug("setup INSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
	}
}

func (o *SqlInsertTxtBatch) InitBatch(batchSize int) {
	o.batchSize = batchSize
	o.rowsInBatch = 0
	// Allocate a new buffer to hold all values (args) to exec.
	o.sqlValues = make([]interface{}, 0, o.batchSize*len(o.ColList)) // many values per row in a batch.
}

func (o *SqlInsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		err = errors.New("no more rows allowed in INSERT batch")
		batchIsFull = true
		return
	}
	if len(values) != len(o.ColList) {
		err = errors.Errorf("the number of values supplied (%d) does not match the number of table columns (%d)", len(values), len(o.ColList))
		return
	}
	// Append values to buffer.
	o.sqlValues = append(o.sqlValues, values...)
	o.rowsInBatch++                            // keep track of how close we are to the batch limit.
	batchIsFull = o.rowsInBatch >= o.batchSize // caller should exec SQL when full.
	return
}

// MaxRowsPerStatement returns the most rows one INSERT can carry within the dialect's bind variable limit.
// Zero means there is no limit.
func (o *SqlInsertTxtBatch) MaxRowsPerStatement() int {
	if o.dml.MaxBindVars <= 0 || len(o.ColList) == 0 {
		return 0
	}
	return o.dml.MaxBindVars / len(o.ColList)
}

func (o *SqlInsertTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

// GetStatement returns the INSERT with one row of bind variables per row added to the batch.
// The statement is cached until the number of rows changes.
func (o *SqlInsertTxtBatch) GetStatement() string {
	if o.sqlStmt == "" || o.previousNumRowsInBatch != o.rowsInBatch { // if we need to generate SQL...
		allRows := strings.Builder{}
		valIdx := 1
		for rowIdx := 0; rowIdx < o.rowsInBatch; rowIdx++ { // for each row in the batch...
			// Build the current row of bind variables: ( $1,$2,$3 )
			row := make([]string, len(o.ColList))
			for idy := range o.ColList {
				row[idy] = o.dml.bindVar(valIdx)
				valIdx++
			}
			if rowIdx > 0 {
				allRows.WriteString(",")
			}
			allRows.WriteString("( ")
			allRows.WriteString(strings.Join(row, ","))
			allRows.WriteString(" )")
		}
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", allRows.String(), 1)
		o.previousNumRowsInBatch = o.rowsInBatch
	} // else we have the same number of rows and can use cached SQL...
	return o.sqlStmt
}
