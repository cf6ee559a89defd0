package components

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/relloyd/visitload/stream"
)

// attributionParams maps visit URL query parameter names to AttributionRecord field names.
var attributionParams = map[string]string{
	"a_bucket":       stream.FieldAdBucket,
	"a_type":         stream.FieldAdType,
	"a_source":       stream.FieldAdSource,
	"a_v":            stream.FieldSchemaVersion,
	"a_g_campaignid": stream.FieldAdCampaignId,
	"a_g_keyword":    stream.FieldAdKeyword,
	"a_g_adgroupid":  stream.FieldAdGroupId,
	"a_g_creative":   stream.FieldAdCreative,
}

// MapUrlToAttributionRecord extracts the attribution parameters from the query string of rawUrl.
// For each parameter the first non-blank value wins and percent-encoding is decoded.
// Parameters that are missing, or only have blank values, are absent in the record.
// The rest of the URL is not validated. Pairs are split on '&' alone and escapes that cannot be
// decoded are kept as they are.
func MapUrlToAttributionRecord(rawUrl string) stream.AttributionRecord {
	values := make(map[string]sql.NullString, len(attributionParams))
	for _, pair := range strings.Split(rawQuery(rawUrl), "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || v == "" { // if there is no value...
			continue
		}
		field, wanted := attributionParams[unescapeQueryComponent(k)]
		if !wanted {
			continue
		}
		if _, seen := values[field]; seen { // first value wins.
			continue
		}
		values[field] = sql.NullString{String: unescapeQueryComponent(v), Valid: true}
	}
	return stream.NewAttributionRecord(values)
}

// rawQuery returns the text between the first '?' and any '#' fragment.
func rawQuery(rawUrl string) string {
	s, _, _ := strings.Cut(rawUrl, "#")
	_, q, _ := strings.Cut(s, "?")
	return q
}

// unescapeQueryComponent decodes '+' and %XX escapes.
// Invalid escapes are left as-is and invalid UTF-8 is replaced.
func unescapeQueryComponent(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return strings.ToValidUTF8(v, "\uFFFD")
	}
	b := make([]byte, 0, len(s))
	for idx := 0; idx < len(s); idx++ {
		switch {
		case s[idx] == '+':
			b = append(b, ' ')
		case s[idx] == '%' && idx+2 < len(s) && isHex(s[idx+1]) && isHex(s[idx+2]):
			b = append(b, unhex(s[idx+1])<<4|unhex(s[idx+2]))
			idx += 2
		default:
			b = append(b, s[idx])
		}
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
