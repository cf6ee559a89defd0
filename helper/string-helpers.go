package helper

import (
	"strings"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/visitload/logger"
)

// StringSliceToOrderedMap converts slice {col1, col2} to an ordered map of col1:col1, col2:col2.
// Spaces are trimmed from the input.
func StringSliceToOrderedMap(s []string) *om.OrderedMap {
	o := om.NewOrderedMap()
	for _, v := range s {
		v = strings.TrimSpace(v)
		o.Set(v, v)
	}
	return o
}

// Function to build a list of values found in ordered map 'om' supplied as input.
// Output - this function modifies the supplied list 'l' and 'idx' by reference.
func OrderedMapValuesToStringSlice(log logger.Logger, om *om.OrderedMap, l *[]string, idx *int) {
	iter := om.IterFunc()
	if iter == nil {
		log.Panic("Failed to get iterFunc in OrderedMapValuesToStringSlice()")
	}
	for kv, ok := iter(); ok; kv, ok = iter() {
		(*l)[*idx] = kv.Value.(string)
		*idx++
	}
}

// OrderedMapLen returns the number of entries in the map, treating nil as empty.
func OrderedMapLen(m *om.OrderedMap) int {
	if m == nil {
		return 0
	}
	return m.Len()
}

// OrderedMapKeysToStringSlice returns the keys of each map in turn, in insertion order.
// Nil maps are skipped.
func OrderedMapKeysToStringSlice(maps ...*om.OrderedMap) []string {
	keys := make([]string, 0)
	for _, m := range maps {
		if m == nil {
			continue
		}
		iter := m.IterFunc()
		for kv, ok := iter(); ok; kv, ok = iter() {
			keys = append(keys, kv.Key.(string))
		}
	}
	return keys
}
