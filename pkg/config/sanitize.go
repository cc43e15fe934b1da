package config

import (
	"errors"
	"reflect"
	"strings"
)

// RedactedValue replaces the value of every non-empty sensitive field.
const RedactedValue = "***"

var errRedactNotStruct = errors.New("redact input must be a struct or pointer to struct")

// Redact renders cfg as a map keyed by JSON field names, with fields tagged
// `sensitive:"true"` masked. Use it for log output only.
func Redact(cfg interface{}) (map[string]interface{}, error) {
	out, ok := redactValue(reflect.ValueOf(cfg)).(map[string]interface{})
	if !ok {
		return nil, errRedactNotStruct
	}

	return out, nil
}

func redactValue(v reflect.Value) interface{} {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil
		}

		v = v.Elem()
	}

	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Struct:
		return redactStruct(v)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}

		items := make([]interface{}, v.Len())
		for i := range items {
			items[i] = redactValue(v.Index(i))
		}

		return items
	default:
		return v.Interface()
	}
}

func redactStruct(v reflect.Value) map[string]interface{} {
	t := v.Type()
	out := make(map[string]interface{}, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}

		fv := v.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}

		if field.Tag.Get("sensitive") == "true" {
			if !fv.IsZero() {
				out[name] = RedactedValue
			}

			continue
		}

		out[name] = redactValue(fv)
	}

	return out
}

func jsonFieldName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	parts := strings.Split(tag, ",")

	name = parts[0]
	if name == "" {
		name = field.Name
	}

	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}

	return name, omitEmpty, false
}
