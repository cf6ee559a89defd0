package helper

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidateStructIsPopulated will check if any mandatory fields in cfg are missing.
// Fields tagged mandatory:"yes" are checked and the errorTxt tag of each unset field is listed in the error.
func ValidateStructIsPopulated(cfg interface{}) (err error) {
	errs := make([]string, 0)
	GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// GetStructErrorTxt4UnsetFields will reflect over struct i and append the errorTxt tag of each exported field
// that is mandatory and still holds its zero value. Nested structs are descended into.
func GetStructErrorTxt4UnsetFields(i interface{}, errTags *[]string) {
	val := reflect.ValueOf(i)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()
	for idx := 0; idx < val.NumField(); idx++ { // for each field in the struct...
		field := typ.Field(idx)
		if field.PkgPath != "" { // if the field is not exported...
			continue
		}
		f := val.Field(idx)
		switch f.Kind() {
		case reflect.Struct: // descend another level.
			GetStructErrorTxt4UnsetFields(f.Interface(), errTags)
		case reflect.Map, reflect.Slice:
		default:
			if f.IsZero() && field.Tag.Get("mandatory") == "yes" { // if the field is its zero value and it is mandatory...
				*errTags = append(*errTags, field.Tag.Get("errorTxt"))
			}
		}
	}
}
