package shared

import "github.com/pkg/errors"

// FixSqlStatementGeneratorConfig sets the schema separator to match OutputSchema.
// An error is returned if there is no output table.
func FixSqlStatementGeneratorConfig(cfg *SqlStatementGeneratorConfig) error {
	if cfg.OutputTable == "" {
		return errors.New("missing output table name")
	}
	if cfg.OutputSchema == "" {
		cfg.SchemaSeparator = ""
		if cfg.Log != nil {
			cfg.Log.Debug("No output schema supplied; setting a blank separator.")
		}
	} else {
		cfg.SchemaSeparator = "."
	}
	return nil
}

// QualifiedTableName returns [<schema>.]<table>.
func (cfg *SqlStatementGeneratorConfig) QualifiedTableName() string {
	if cfg.OutputSchema == "" {
		return cfg.OutputTable
	}
	return cfg.OutputSchema + "." + cfg.OutputTable
}
