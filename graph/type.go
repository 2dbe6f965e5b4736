package graph

import (
	"fmt"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/schema/edge"
	"github.com/syssam/docmap/schema/field"
)

// Rel is the relation kind of a field.
type Rel int

// Relation kinds.
const (
	RelNone Rel = iota
	RelOne
	RelMany
)

// String returns the relation kind name.
func (r Rel) String() string {
	switch r {
	case RelOne:
		return "one"
	case RelMany:
		return "many"
	default:
		return "none"
	}
}

type (
	// Type is a compiled schema type.
	Type struct {
		Name       string
		Package    string
		Collection string
		Abstract   bool
		Embeddable bool
		Super      *Type
		Subtypes   []*Type
		// Fields holds every field of the type, inherited ones included,
		// indexed by field number.
		Fields        []*Field
		Discriminator docmap.Discriminator
		byName        map[string]*Field
	}

	// Field is a compiled field or relation. Fields are owned by the graph
	// and shared by pointer between a type and its subtypes.
	Field struct {
		Number        int
		Name          string
		Owner         *Type
		Info          *field.TypeInfo
		StorageKey    string
		Columns       []string
		Optional      bool
		Transient     bool
		Identity      bool
		Serialized    bool
		Converter     field.Converter
		Default       any
		UpdateDefault any

		Rel                 Rel
		Container           edge.Container
		Target              *Type
		KeyTarget           *Type
		KeyInfo             *field.TypeInfo
		ValueInfo           *field.TypeInfo
		Embedded            bool
		Mode                edge.Mode
		Cascade             edge.Cascade
		MappedBy            string
		OwnerMember         string
		DiscriminatorColumn string
		SerializedElements  bool
		Overrides           map[string]string
	}
)

// Field returns the field with the given absolute number.
func (t *Type) Field(n int) (*Field, error) {
	if n < 0 || n >= len(t.Fields) {
		return nil, docmap.NewConfigurationError(t.Name, "", "no field with number %d", n)
	}
	return t.Fields[n], nil
}

// FieldByName returns the field with the given name.
func (t *Type) FieldByName(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// FieldNumbers returns the numbers of all fields in ascending order.
func (t *Type) FieldNumbers() []int {
	ns := make([]int, len(t.Fields))
	for i := range t.Fields {
		ns[i] = i
	}
	return ns
}

// Root returns the top of the hierarchy t belongs to.
func (t *Type) Root() *Type {
	for t.Super != nil {
		t = t.Super
	}
	return t
}

// IsA reports if t is other or one of its subtypes.
func (t *Type) IsA(other *Type) bool {
	for c := t; c != nil; c = c.Super {
		if c == other {
			return true
		}
	}
	return false
}

// Descendants returns t followed by all of its subtypes, depth first.
func (t *Type) Descendants() []*Type {
	types := []*Type{t}
	for _, s := range t.Subtypes {
		types = append(types, s.Descendants()...)
	}
	return types
}

// Polymorphic reports if t takes part in a type hierarchy.
func (t *Type) Polymorphic() bool {
	return t.Super != nil || len(t.Subtypes) > 0
}

// HasDiscriminator reports if values of t are tagged with their type.
func (t *Type) HasDiscriminator() bool {
	return t.Discriminator.Strategy != docmap.DiscriminatorNone
}

// DiscriminatorValue returns the value written for instances of t.
func (t *Type) DiscriminatorValue() string {
	return t.Discriminator.Value
}

// QualifiedName returns the name of the type prefixed by its package.
func (t *Type) QualifiedName() string {
	if t.Package == "" {
		return t.Name
	}
	return t.Package + "." + t.Name
}

// String implements fmt.Stringer.
func (t *Type) String() string { return t.Name }

// String returns the qualified field name, e.g. "Order.customer".
func (f *Field) String() string {
	return f.Owner.Name + "." + f.Name
}

// Column returns the column name of the field.
func (f *Field) Column() string {
	if f.StorageKey != "" {
		return f.StorageKey
	}
	return f.Name
}

// IsRelation reports if the field refers to other objects.
func (f *Field) IsRelation() bool { return f.Rel != RelNone }

// Stored reports if the field is written to documents by the engines.
// Identity fields are mapped onto the document key by the lifecycle.
func (f *Field) Stored() bool { return !f.Transient && !f.Identity }

// Nested reports if the field embeds its value as a sub-document.
func (f *Field) Nested() bool { return f.Embedded && f.Mode != edge.Flat }

// Flat reports if the field embeds its value into the owner's document.
func (f *Field) Flat() bool { return f.Embedded && f.Mode == edge.Flat }

// Cascades reports if the relation propagates the insert (insert is true)
// or update operation to its values.
func (f *Field) Cascades(insert bool) bool {
	if insert {
		return f.Cascade.Has(edge.CascadePersist)
	}
	return f.Cascade.Has(edge.CascadeUpdate)
}

func unknownType(owner, field, name string) error {
	return docmap.NewConfigurationError(owner, field, "unknown type %q", name)
}

var _ fmt.Stringer = (*Type)(nil)
