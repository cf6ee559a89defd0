package stream

import (
	"database/sql"
	"fmt"
	"strings"
)

// Attribution record field names, which double as the target table column names.
const (
	FieldAdBucket      = "ad_bucket"
	FieldAdType        = "ad_type"
	FieldAdSource      = "ad_source"
	FieldSchemaVersion = "schema_version"
	FieldAdCampaignId  = "ad_campaign_id"
	FieldAdKeyword     = "ad_keyword"
	FieldAdGroupId     = "ad_group_id"
	FieldAdCreative    = "ad_creative"
)

// attributionFieldNames is the fixed field order shared by every record built with NewAttributionRecord.
var attributionFieldNames = []string{
	FieldAdBucket,
	FieldAdType,
	FieldAdSource,
	FieldSchemaVersion,
	FieldAdCampaignId,
	FieldAdKeyword,
	FieldAdGroupId,
	FieldAdCreative,
}

// AttributionFieldNames returns a copy of the fixed field order of an AttributionRecord.
func AttributionFieldNames() []string {
	x := make([]string, len(attributionFieldNames))
	copy(x, attributionFieldNames)
	return x
}

// RawInputRow is one row of the input stream.
type RawInputRow struct {
	Url        string
	LineNumber int // 1-based line in the source including the header.
}

// AttributionRecord holds the attribution values extracted from one visit URL.
// Each value is either a string or absent, where absent is represented by sql.NullString{Valid: false}
// so it can be bound as a database NULL.
// Records are immutable once built.
type AttributionRecord struct {
	fields []string
	values []sql.NullString
}

// NewAttributionRecord builds a record with the fixed field order using the supplied values.
// Fields missing from values are absent and unknown keys are ignored.
func NewAttributionRecord(values map[string]sql.NullString) AttributionRecord {
	r := AttributionRecord{
		fields: attributionFieldNames,
		values: make([]sql.NullString, len(attributionFieldNames)),
	}
	for idx, name := range attributionFieldNames {
		r.values[idx] = values[name] // zero value is absent.
	}
	return r
}

// NewAbsentAttributionRecord returns a record whose fields are all absent.
func NewAbsentAttributionRecord() AttributionRecord {
	return NewAttributionRecord(nil)
}

// FieldNames returns a copy of the record's field names in order.
func (r AttributionRecord) FieldNames() []string {
	x := make([]string, len(r.fields))
	copy(x, r.fields)
	return x
}

// Get returns the value of the named field.
// The second return value is false if the record has no such field.
func (r AttributionRecord) Get(name string) (sql.NullString, bool) {
	for idx, f := range r.fields {
		if f == name {
			return r.values[idx], true
		}
	}
	return sql.NullString{}, false
}

// HasFields returns true if the record has exactly the supplied fields in the same order.
func (r AttributionRecord) HasFields(fields []string) bool {
	if len(r.fields) != len(fields) || len(r.values) != len(r.fields) {
		return false
	}
	for idx := range fields {
		if r.fields[idx] != fields[idx] {
			return false
		}
	}
	return true
}

// String pretty-prints the record using <absent> for missing values.
func (r AttributionRecord) String() string {
	x := make([]string, len(r.fields))
	for idx, f := range r.fields {
		v := "<absent>"
		if idx < len(r.values) && r.values[idx].Valid {
			v = fmt.Sprintf("%q", r.values[idx].String)
		}
		x[idx] = fmt.Sprintf("%v:%v", f, v)
	}
	return "{" + strings.Join(x, ", ") + "}"
}
