package rdbms

import (
	"regexp"
	"strings"
)

// quotedDottedName matches a quoted identifier that itself contains a dot, e.g. "random.table".
var (
	quotedDottedName = regexp.MustCompile(`^".+\..+"$`)
	quotedPair       = regexp.MustCompile(`^".+"\.".+"$`)
)

// SchemaTable is a table name supplied on the command line as [<schema>.]<table>.
type SchemaTable struct {
	SchemaTable string `errorTxt:"[<schema>.]<table>" mandatory:"yes"`
}

func NewSchemaTable(schema string, table string) SchemaTable {
	if schema == "" {
		return SchemaTable{table}
	}
	return SchemaTable{schema + "." + table}
}

// isQuotedTable returns true for a quoted "random.table" that is not a regular "schema"."table".
func (st SchemaTable) isQuotedTable() bool {
	return quotedDottedName.MatchString(st.SchemaTable) && !quotedPair.MatchString(st.SchemaTable)
}

func (st SchemaTable) GetTable() string {
	if st.isQuotedTable() {
		return st.SchemaTable
	}
	if _, table, found := strings.Cut(st.SchemaTable, "."); found {
		return table
	}
	return st.SchemaTable
}

func (st SchemaTable) GetSchema() string {
	if st.isQuotedTable() {
		return ""
	}
	if schema, _, found := strings.Cut(st.SchemaTable, "."); found {
		return schema
	}
	return ""
}

func (st SchemaTable) String() string {
	return st.SchemaTable
}
