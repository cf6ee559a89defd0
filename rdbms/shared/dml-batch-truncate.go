package shared

import "strings"

// SqlTruncate implements SqlStmtGenerator and returns a statement that removes all rows from the output table.
type SqlTruncate struct {
	SqlStatementGeneratorConfig
	sqlStmt string
}

// NewTruncateGenerator creates a SqlStmtGenerator for the dialect's truncate template.
func (d *DmlGeneratorTxtBatch) NewTruncateGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtGenerator {
	if err := FixSqlStatementGeneratorConfig(cfg); err != nil {
		panic(err)
	}
	t := d.TruncateTemplate
	if t == "" {
		t = `truncate table <SCHEMA><SEPARATOR><TABLE>`
	}
	t = strings.Replace(t, "<SCHEMA>", cfg.OutputSchema, 1)
	t = strings.Replace(t, "<SEPARATOR>", cfg.SchemaSeparator, 1)
	t = strings.Replace(t, "<TABLE>", cfg.OutputTable, 1)
	return &SqlTruncate{SqlStatementGeneratorConfig: *cfg, sqlStmt: t}
}

func (o *SqlTruncate) GetStatement() string {
	return o.sqlStmt
}
