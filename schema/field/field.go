package field

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// A Type represents a field type.
type Type uint8

// List of field types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeTime
	TypeBytes
	TypeUUID
	TypeString
	TypeInt
	TypeInt64
	TypeFloat64
	TypeStrings
	TypeInts
	TypeJSON
	TypeOther
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeTime:    "time",
	TypeBytes:   "bytes",
	TypeUUID:    "uuid",
	TypeString:  "string",
	TypeInt:     "int",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeStrings: "strings",
	TypeInts:    "ints",
	TypeJSON:    "json",
	TypeOther:   "other",
}

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type if known type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// ParseType returns the type with the given name.
func ParseType(name string) (Type, error) {
	for t := TypeBool; t < endTypes; t++ {
		if typeNames[t] == strings.ToLower(name) {
			return t, nil
		}
	}
	return TypeInvalid, fmt.Errorf("field: unknown type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TypeInfo holds the information regarding field type.
type TypeInfo struct {
	Type  Type
	Ident string
}

// String returns the Go type identifier of the field.
func (t TypeInfo) String() string {
	if t.Ident != "" {
		return t.Ident
	}
	switch t.Type {
	case TypeBytes:
		return "[]byte"
	case TypeTime:
		return "time.Time"
	case TypeUUID:
		return "uuid.UUID"
	case TypeStrings:
		return "[]string"
	case TypeInts:
		return "[]int"
	case TypeJSON:
		return "any"
	default:
		return t.Type.String()
	}
}

// Valid reports if the info has a known type.
func (t TypeInfo) Valid() bool {
	return t.Type.Valid()
}

// Converter translates a field value to and from its stored form.
// When a field spans several columns, ToDatastore returns a []any with
// one value per column and FromDatastore receives the same shape.
type Converter interface {
	ToDatastore(v any) (any, error)
	FromDatastore(v any) (any, error)
}

// ConverterFuncs adapts a pair of functions to the Converter interface.
type ConverterFuncs struct {
	To   func(any) (any, error)
	From func(any) (any, error)
}

// ToDatastore calls c.To.
func (c ConverterFuncs) ToDatastore(v any) (any, error) { return c.To(v) }

// FromDatastore calls c.From.
func (c ConverterFuncs) FromDatastore(v any) (any, error) { return c.From(v) }

// A Descriptor for field configuration.
type Descriptor struct {
	Name          string
	Info          *TypeInfo
	StorageKey    string
	Columns       []string
	Optional      bool
	Transient     bool
	Identity      bool
	Serialized    bool
	Converter     Converter
	Default       any
	UpdateDefault any
	Comment       string
	Err           error
}

// Builder is the builder for all field types.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	return &Builder{desc: &Descriptor{
		Name: name,
		Info: &TypeInfo{Type: t},
	}}
}

// String returns a new Field with type string.
func String(name string) *Builder { return newBuilder(name, TypeString) }

// Int returns a new Field with type int.
func Int(name string) *Builder { return newBuilder(name, TypeInt) }

// Int64 returns a new Field with type int64.
func Int64(name string) *Builder { return newBuilder(name, TypeInt64) }

// Float64 returns a new Field with type float64.
func Float64(name string) *Builder { return newBuilder(name, TypeFloat64) }

// Bool returns a new Field with type bool.
func Bool(name string) *Builder { return newBuilder(name, TypeBool) }

// Time returns a new Field with type timestamp.
func Time(name string) *Builder { return newBuilder(name, TypeTime) }

// Bytes returns a new Field with type bytes/buffer.
func Bytes(name string) *Builder { return newBuilder(name, TypeBytes) }

// UUID returns a new Field with type uuid.UUID.
func UUID(name string) *Builder { return newBuilder(name, TypeUUID) }

// Strings returns a new Field with type []string.
func Strings(name string) *Builder { return newBuilder(name, TypeStrings) }

// Ints returns a new Field with type []int.
func Ints(name string) *Builder { return newBuilder(name, TypeInts) }

// JSON returns a new Field holding arbitrary maps, slices and scalars.
func JSON(name string) *Builder { return newBuilder(name, TypeJSON) }

// Other returns a new Field of a custom type identified by ident.
// Other fields must be given a Converter or be Serialized.
func Other(name, ident string) *Builder {
	b := newBuilder(name, TypeOther)
	b.desc.Info.Ident = ident
	return b
}

// StorageKey sets the column name of the field in the stored document.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// Columns spreads the field over several columns. It requires a Converter
// that maps the value to a []any of the same length.
func (b *Builder) Columns(names ...string) *Builder {
	b.desc.Columns = names
	return b
}

// Optional indicates that this field is optional on persist.
func (b *Builder) Optional() *Builder {
	b.desc.Optional = true
	return b
}

// Transient excludes the field from the stored document.
func (b *Builder) Transient() *Builder {
	b.desc.Transient = true
	return b
}

// Identity maps the field onto the document key. Identity fields are
// filled by the lifecycle and never written as a column.
func (b *Builder) Identity() *Builder {
	b.desc.Identity = true
	return b
}

// Serialized stores the whole value as one msgpack binary.
func (b *Builder) Serialized() *Builder {
	b.desc.Serialized = true
	return b
}

// Converter sets the converter applied when storing and fetching the field.
func (b *Builder) Converter(c Converter) *Builder {
	b.desc.Converter = c
	return b
}

// Default sets the default value of the field. The value can be a literal
// of the field type or a function with no arguments returning it.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	b.checkDefault(v)
	return b
}

// UpdateDefault sets a function that is called to set the field value on update.
func (b *Builder) UpdateDefault(fn any) *Builder {
	b.desc.UpdateDefault = fn
	if rt := reflect.TypeOf(fn); rt == nil || rt.Kind() != reflect.Func {
		b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("field %q: update default must be a function", b.desc.Name))
		return b
	}
	b.checkDefault(fn)
	return b
}

// Comment sets the comment of the field.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the docmap.Field interface by returning its descriptor.
func (b *Builder) Descriptor() *Descriptor {
	d := b.desc
	if len(d.Columns) > 1 && d.Converter == nil {
		d.Err = errors.Join(d.Err, fmt.Errorf("field %q: multiple columns require a converter", d.Name))
	}
	if d.Info.Type == TypeOther && d.Converter == nil && !d.Serialized {
		d.Err = errors.Join(d.Err, fmt.Errorf("field %q: custom type %s requires a converter", d.Name, d.Info))
	}
	return d
}

var goTypes = map[Type]reflect.Type{
	TypeBool:    reflect.TypeOf(false),
	TypeTime:    reflect.TypeOf(time.Time{}),
	TypeBytes:   reflect.TypeOf([]byte(nil)),
	TypeString:  reflect.TypeOf(""),
	TypeInt:     reflect.TypeOf(0),
	TypeInt64:   reflect.TypeOf(int64(0)),
	TypeFloat64: reflect.TypeOf(float64(0)),
	TypeStrings: reflect.TypeOf([]string(nil)),
	TypeInts:    reflect.TypeOf([]int(nil)),
}

// GoType returns the Go type of values of t. It returns nil for types
// without a fixed Go representation.
func (t Type) GoType() reflect.Type {
	return goTypes[t]
}

// checkDefault reports an error if the default does not produce a value of the field type.
func (b *Builder) checkDefault(v any) {
	want, ok := goTypes[b.desc.Info.Type]
	if !ok || v == nil {
		return
	}
	rt := reflect.TypeOf(v)
	if rt.Kind() == reflect.Func {
		if rt.NumIn() != 0 || rt.NumOut() != 1 {
			b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("field %q: default function must have no arguments and one result", b.desc.Name))
			return
		}
		rt = rt.Out(0)
	}
	if !rt.AssignableTo(want) {
		b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("field %q: expect type (%s) for default value, got %s", b.desc.Name, want, rt))
	}
}

// DefaultValue evaluates a default as returned by Descriptor.Default or
// Descriptor.UpdateDefault. Functions are called, literals returned as is.
func DefaultValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func && rv.Type().NumIn() == 0 && rv.Type().NumOut() == 1 {
		return rv.Call(nil)[0].Interface()
	}
	return v
}
