package bridge

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

// BuildArgs assembles the argument vector: harness flags, entry path,
// -Operation and one flag/value pair per non-nil parameter in order.
func BuildArgs(harness []string, entry, operation string, params model.Params) ([]string, error) {
	args := make([]string, 0, len(harness)+3+2*len(params))
	args = append(args, harness...)
	args = append(args, entry, "-Operation", operation)

	for _, p := range params {
		value, ok, err := formatValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidParameter, p.Key, err)
		}
		if !ok {
			continue
		}
		args = append(args, "-"+p.Key, value)
	}
	return args, nil
}

// formatValue renders primitives textually and everything else as compact
// JSON. ok is false for nil values, which are omitted.
func formatValue(v interface{}) (string, bool, error) {
	if v == nil {
		return "", false, nil
	}
	if raw, isRaw := v.(json.RawMessage); isRaw {
		if raw == nil {
			return "", false, nil
		}
		return marshalCompact(raw)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true, nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true, nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true, nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true, nil
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return "", false, nil
		}
	}
	return marshalCompact(rv.Interface())
}

func marshalCompact(v interface{}) (string, bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}
