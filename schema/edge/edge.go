package edge

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/syssam/docmap/schema"
	"github.com/syssam/docmap/schema/field"
)

// Container names the shape of a multi-valued relation.
type Container string

// Relation containers.
const (
	ContainerCollection Container = "collection"
	ContainerArray      Container = "array"
	ContainerMap        Container = "map"
)

// Mode is the layout of an embedded relation.
type Mode string

// Embedding modes.
const (
	Nested Mode = "nested"
	Flat   Mode = "flat"
)

// Cascade is a set of operations propagated to related objects.
type Cascade uint8

// Cascaded operations.
const (
	CascadePersist Cascade = 1 << iota
	CascadeUpdate
	CascadeAll = CascadePersist | CascadeUpdate
)

// Has reports if c includes op.
func (c Cascade) Has(op Cascade) bool { return c&op == op }

// A Descriptor for edge configuration.
type Descriptor struct {
	Name                string
	Type                string
	KeyType             string
	KeyInfo             *field.TypeInfo
	ValueInfo           *field.TypeInfo
	Unique              bool
	Container           Container
	Embedded            bool
	Mode                Mode
	Cascade             Cascade
	MappedBy            string
	OwnerField          string
	DiscriminatorColumn string
	StorageKey          string
	SerializeElements   bool
	Overrides           map[string]string
	Annotations         []schema.Annotation
	Comment             string
	Err                 error
}

// Builder for relations.
type Builder struct {
	desc *Descriptor
}

// To defines a relation to the type t. The type is given as the Type
// method value of its schema (Post.Type) or by name.
func To(name string, t any) *Builder {
	return &Builder{desc: &Descriptor{
		Name:      name,
		Type:      typ(t),
		Container: ContainerCollection,
		Cascade:   CascadeAll,
	}}
}

// Map defines a map relation whose values are of type t. A nil t declares
// scalar values, set with Value. Keys default to strings.
func Map(name string, t any) *Builder {
	b := To(name, t)
	b.desc.Container = ContainerMap
	b.desc.KeyInfo = &field.TypeInfo{Type: field.TypeString}
	return b
}

// Unique makes the relation single-valued.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	b.desc.Container = ""
	return b
}

// Array stores a multi-valued relation as a fixed array.
func (b *Builder) Array() *Builder {
	b.desc.Container = ContainerArray
	return b
}

// Key sets the scalar type of the map keys.
func (b *Builder) Key(t field.Type) *Builder {
	b.desc.KeyInfo = &field.TypeInfo{Type: t}
	b.desc.KeyType = ""
	return b
}

// KeyType declares map keys of type t.
func (b *Builder) KeyType(t any) *Builder {
	b.desc.KeyType = typ(t)
	b.desc.KeyInfo = nil
	return b
}

// Value sets the scalar type of the map values.
func (b *Builder) Value(t field.Type) *Builder {
	b.desc.ValueInfo = &field.TypeInfo{Type: t}
	b.desc.Type = ""
	return b
}

// Embedded stores the related objects inside the owner's document.
func (b *Builder) Embedded() *Builder {
	b.desc.Embedded = true
	if b.desc.Mode == "" {
		b.desc.Mode = Nested
	}
	return b
}

// Flat embeds the related object with prefixed columns in the owner's document.
func (b *Builder) Flat() *Builder {
	b.desc.Embedded = true
	b.desc.Mode = Flat
	return b
}

// Nested embeds the related object as a sub-document.
func (b *Builder) Nested() *Builder {
	b.desc.Embedded = true
	b.desc.Mode = Nested
	return b
}

// Cascade sets the operations propagated to the related objects.
func (b *Builder) Cascade(ops ...Cascade) *Builder {
	b.desc.Cascade = 0
	for _, op := range ops {
		b.desc.Cascade |= op
	}
	return b
}

// NoCascade removes the given operations from the cascade set,
// or every operation if none is given.
func (b *Builder) NoCascade(ops ...Cascade) *Builder {
	if len(ops) == 0 {
		b.desc.Cascade = 0
		return b
	}
	for _, op := range ops {
		b.desc.Cascade &^= op
	}
	return b
}

// MappedBy names the field of the related type that holds the other side
// of a bidirectional relation.
func (b *Builder) MappedBy(name string) *Builder {
	b.desc.MappedBy = name
	return b
}

// OwnerField names the field of the embedded type that points back at the owner.
func (b *Builder) OwnerField(name string) *Builder {
	b.desc.OwnerField = name
	return b
}

// DiscriminatorColumn overrides the column holding the type of the embedded value.
func (b *Builder) DiscriminatorColumn(name string) *Builder {
	b.desc.DiscriminatorColumn = name
	return b
}

// StorageKey sets the column name of the relation.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// SerializeElements marks the container elements as serialized. Documents
// cannot hold serialized elements, storing such a relation fails.
func (b *Builder) SerializeElements() *Builder {
	b.desc.SerializeElements = true
	return b
}

// Override sets the column of an embedded member, addressed by its dotted
// path below this relation (e.g. "address.city").
func (b *Builder) Override(member, column string) *Builder {
	if b.desc.Overrides == nil {
		b.desc.Overrides = make(map[string]string)
	}
	b.desc.Overrides[member] = column
	return b
}

// Annotations adds a list of annotations to the edge object to be used by extensions.
func (b *Builder) Annotations(annotations ...schema.Annotation) *Builder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Comment used to put annotations on the schema.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the docmap.Edge interface by returning its descriptor.
func (b *Builder) Descriptor() *Descriptor {
	d := b.desc
	switch {
	case d.Type == "" && d.Container != ContainerMap:
		d.Err = errors.Join(d.Err, fmt.Errorf("edge %q: missing target type", d.Name))
	case d.Type == "" && d.KeyType == "":
		d.Err = errors.Join(d.Err, fmt.Errorf("edge %q: map relation needs a type on the key or value side", d.Name))
	case d.Type == "" && d.ValueInfo == nil:
		d.Err = errors.Join(d.Err, fmt.Errorf("edge %q: map relation without value type", d.Name))
	}
	if d.Unique && d.SerializeElements {
		d.Err = errors.Join(d.Err, fmt.Errorf("edge %q: serialized elements on a single-valued relation", d.Name))
	}
	return d
}

// typ returns the type name of a schema Type method value or a string.
func typ(t any) string {
	switch t := t.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	if rt := reflect.TypeOf(t); rt.Kind() == reflect.Func && rt.NumIn() > 0 {
		return rt.In(0).Name()
	}
	return ""
}
