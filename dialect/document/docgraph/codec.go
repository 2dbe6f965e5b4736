package docgraph

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/schema/field"
)

// EncodeScalar converts a field value of the given type to its document form.
func EncodeScalar(info *field.TypeInfo, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch info.Type {
	case field.TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case field.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case field.TypeInt, field.TypeInt64:
		return toInt64(v)
	case field.TypeFloat64:
		return toFloat64(v)
	case field.TypeBytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case field.TypeTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	case field.TypeUUID:
		return toUUID(v, func(u uuid.UUID) any { return u.String() })
	case field.TypeStrings:
		if ss, ok := v.([]string); ok {
			out := make([]any, len(ss))
			for i := range ss {
				out[i] = ss[i]
			}
			return out, nil
		}
	case field.TypeInts:
		if is, ok := v.([]int); ok {
			out := make([]any, len(is))
			for i := range is {
				out[i] = int64(is[i])
			}
			return out, nil
		}
	case field.TypeJSON:
		return encodeJSON(v), nil
	}
	return nil, fmt.Errorf("cannot encode %T as %s", v, info)
}

// DecodeScalar converts a document value to a field value of the given
// type. It also accepts the plain values produced by YAML and JSON decoders.
func DecodeScalar(info *field.TypeInfo, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch info.Type {
	case field.TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case field.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case field.TypeInt:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return int(n), nil
	case field.TypeInt64:
		return toInt64(v)
	case field.TypeFloat64:
		return toFloat64(v)
	case field.TypeBytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case field.TypeTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, err
			}
			return parsed.UTC(), nil
		}
	case field.TypeUUID:
		return toUUID(v, func(u uuid.UUID) any { return u })
	case field.TypeStrings:
		switch s := v.(type) {
		case []string:
			return s, nil
		case []any:
			out := make([]string, len(s))
			for i := range s {
				str, ok := s[i].(string)
				if !ok {
					return nil, fmt.Errorf("cannot decode element %T as string", s[i])
				}
				out[i] = str
			}
			return out, nil
		}
	case field.TypeInts:
		switch s := v.(type) {
		case []int:
			return s, nil
		case []any:
			out := make([]int, len(s))
			for i := range s {
				n, err := toInt64(s[i])
				if err != nil {
					return nil, err
				}
				out[i] = int(n)
			}
			return out, nil
		}
	case field.TypeJSON:
		return decodeJSON(v), nil
	default:
		return v, nil
	}
	return nil, fmt.Errorf("cannot decode %T as %s", v, info)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("cannot use %v as integer", n)
		}
		// float64(math.MaxInt64) rounds up to 2^63.
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("integer %v overflows int64", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("cannot use %T as integer", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("cannot use %T as float", v)
		}
		return float64(i), nil
	}
}

func toUUID(v any, ret func(uuid.UUID) any) (any, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return ret(u), nil
	case string:
		parsed, err := uuid.Parse(u)
		if err != nil {
			return nil, err
		}
		return ret(parsed), nil
	case []byte:
		parsed, err := uuid.FromBytes(u)
		if err != nil {
			return nil, err
		}
		return ret(parsed), nil
	}
	return nil, fmt.Errorf("cannot use %T as uuid", v)
}

// encodeJSON converts decoded JSON values into document values. Object
// keys are sorted.
func encodeJSON(v any) any {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := document.New()
		for _, k := range keys {
			n.Set(k, encodeJSON(v[k]))
		}
		return n
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = encodeJSON(v[i])
		}
		return out
	default:
		return v
	}
}

func decodeJSON(v any) any {
	switch v := v.(type) {
	case *document.Node:
		m := make(map[string]any, v.Len())
		for _, k := range v.Keys() {
			x, _ := v.Get(k)
			m[k] = decodeJSON(x)
		}
		return m
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = decodeJSON(v[i])
		}
		return out
	default:
		return v
	}
}

// serialize returns the opaque encoding of a serialized field value.
func serialize(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// deserialize decodes a serialized field value into the Go type of info.
func deserialize(info *field.TypeInfo, v any) (any, error) {
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("serialized value of type %T is not binary", v)
	}
	rt := info.Type.GoType()
	if info.Type == field.TypeUUID {
		rt = reflect.TypeOf(uuid.UUID{})
	}
	if rt == nil {
		var out any
		if err := msgpack.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	ptr := reflect.New(rt)
	if err := msgpack.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, err
	}
	out := ptr.Elem().Interface()
	if t, ok := out.(time.Time); ok {
		return t.UTC(), nil
	}
	return out, nil
}
