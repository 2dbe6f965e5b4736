// Package load holds the loaded representation of docmap schemas, built
// either from Go schema types or from YAML schema files.
package load

import (
	"fmt"
	"reflect"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/schema"
	"github.com/syssam/docmap/schema/edge"
	"github.com/syssam/docmap/schema/field"
)

// Schema represents a docmap.Interface that was loaded from Go code or YAML.
type Schema struct {
	Name   string        `yaml:"name"`
	Config docmap.Config `yaml:",inline"`
	Fields []*Field      `yaml:"fields,omitempty"`
	Edges  []*Edge       `yaml:"edges,omitempty"`
}

// Position describes a position in the schema.
type Position struct {
	Index      int  // Index in the field list.
	MixedIn    bool // Indicates if the schema object was mixed-in.
	MixinIndex int  // Mixin index in the mixin list.
}

// Field represents a docmap.Field that was loaded.
type Field struct {
	Name          string          `yaml:"name"`
	Type          field.Type      `yaml:"type"`
	Ident         string          `yaml:"ident,omitempty"`
	StorageKey    string          `yaml:"storage_key,omitempty"`
	Columns       []string        `yaml:"columns,omitempty"`
	Optional      bool            `yaml:"optional,omitempty"`
	Transient     bool            `yaml:"transient,omitempty"`
	Identity      bool            `yaml:"identity,omitempty"`
	Serialized    bool            `yaml:"serialized,omitempty"`
	Comment       string          `yaml:"comment,omitempty"`
	Converter     field.Converter `yaml:"-"`
	Default       any             `yaml:"-"`
	UpdateDefault any             `yaml:"-"`
	Position      *Position       `yaml:"-"`
}

// Edge represents a docmap.Edge that was loaded.
type Edge struct {
	Name                string            `yaml:"name"`
	Type                string            `yaml:"type,omitempty"`
	KeyType             string            `yaml:"key_type,omitempty"`
	Key                 field.Type        `yaml:"key,omitempty"`
	Value               field.Type        `yaml:"value,omitempty"`
	Unique              bool              `yaml:"unique,omitempty"`
	Container           edge.Container    `yaml:"container,omitempty"`
	Embedded            edge.Mode         `yaml:"embedded,omitempty"`
	NoCascadePersist    bool              `yaml:"no_cascade_persist,omitempty"`
	NoCascadeUpdate     bool              `yaml:"no_cascade_update,omitempty"`
	MappedBy            string            `yaml:"mapped_by,omitempty"`
	OwnerField          string            `yaml:"owner_field,omitempty"`
	DiscriminatorColumn string            `yaml:"discriminator_column,omitempty"`
	StorageKey          string            `yaml:"storage_key,omitempty"`
	SerializeElements   bool              `yaml:"serialize_elements,omitempty"`
	Overrides           map[string]string `yaml:"overrides,omitempty"`
	Comment             string            `yaml:"comment,omitempty"`
}

// NewField creates a loaded field from field descriptor.
func NewField(fd *field.Descriptor) (*Field, error) {
	if fd.Err != nil {
		return nil, fmt.Errorf("field %q: %w", fd.Name, fd.Err)
	}
	if fd.Info == nil {
		return nil, fmt.Errorf("missing type info for field %q", fd.Name)
	}
	return &Field{
		Name:          fd.Name,
		Type:          fd.Info.Type,
		Ident:         fd.Info.Ident,
		StorageKey:    fd.StorageKey,
		Columns:       fd.Columns,
		Optional:      fd.Optional,
		Transient:     fd.Transient,
		Identity:      fd.Identity,
		Serialized:    fd.Serialized,
		Comment:       fd.Comment,
		Converter:     fd.Converter,
		Default:       fd.Default,
		UpdateDefault: fd.UpdateDefault,
	}, nil
}

// NewEdge creates a loaded edge from edge descriptor.
// It returns an error if the descriptor contains an error.
func NewEdge(ed *edge.Descriptor) (*Edge, error) {
	if ed.Err != nil {
		return nil, ed.Err
	}
	ne := &Edge{
		Name:                ed.Name,
		Type:                ed.Type,
		KeyType:             ed.KeyType,
		Unique:              ed.Unique,
		Container:           ed.Container,
		NoCascadePersist:    !ed.Cascade.Has(edge.CascadePersist),
		NoCascadeUpdate:     !ed.Cascade.Has(edge.CascadeUpdate),
		MappedBy:            ed.MappedBy,
		OwnerField:          ed.OwnerField,
		DiscriminatorColumn: ed.DiscriminatorColumn,
		StorageKey:          ed.StorageKey,
		SerializeElements:   ed.SerializeElements,
		Comment:             ed.Comment,
	}
	if ed.Embedded {
		ne.Embedded = ed.Mode
		if ne.Embedded == "" {
			ne.Embedded = edge.Nested
		}
	}
	if ed.KeyInfo != nil {
		ne.Key = ed.KeyInfo.Type
	}
	if ed.ValueInfo != nil {
		ne.Value = ed.ValueInfo.Type
	}
	if len(ed.Overrides) > 0 {
		ne.Overrides = make(map[string]string, len(ed.Overrides))
		for k, v := range ed.Overrides {
			ne.Overrides[k] = v
		}
	}
	annotations := make(map[string]any)
	for _, at := range ed.Annotations {
		addAnnotation(annotations, at)
	}
	if ant, ok := annotations[edge.Annotation{}.Name()].(edge.Annotation); ok {
		ne.applyAnnotation(ant)
	}
	return ne, nil
}

// applyAnnotation fills column settings the builder left unset.
func (e *Edge) applyAnnotation(ant edge.Annotation) {
	for k, v := range ant.Overrides {
		if e.Overrides == nil {
			e.Overrides = make(map[string]string)
		}
		if _, ok := e.Overrides[k]; !ok {
			e.Overrides[k] = v
		}
	}
	if e.DiscriminatorColumn == "" {
		e.DiscriminatorColumn = ant.DiscriminatorColumn
	}
}

// MarshalSchema loads the docmap.Interface into its loaded representation.
// Mixed-in fields and edges come before the fields and edges of the schema.
func MarshalSchema(schema docmap.Interface) (*Schema, error) {
	s := &Schema{
		Config: schema.Config(),
		Name:   indirect(reflect.TypeOf(schema)).Name(),
	}
	if err := s.loadMixin(schema); err != nil {
		return nil, fmt.Errorf("schema %q: %w", s.Name, err)
	}
	if err := s.loadFields(schema); err != nil {
		return nil, fmt.Errorf("schema %q: %w", s.Name, err)
	}
	edges, err := safeEdges(schema)
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", s.Name, err)
	}
	for _, e := range edges {
		ne, err := NewEdge(e.Descriptor())
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", s.Name, err)
		}
		s.Edges = append(s.Edges, ne)
	}
	return s, nil
}

// MarshalSchemas loads all given schemas, stopping at the first error.
func MarshalSchemas(schemas ...docmap.Interface) ([]*Schema, error) {
	loaded := make([]*Schema, 0, len(schemas))
	for _, schema := range schemas {
		s, err := MarshalSchema(schema)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, s)
	}
	return loaded, nil
}

// loadMixin loads mixin to schema from docmap.Interface.
func (s *Schema) loadMixin(schema docmap.Interface) error {
	mixin, err := safeMixin(schema)
	if err != nil {
		return err
	}
	for i, mx := range mixin {
		name := indirect(reflect.TypeOf(mx)).Name()
		fields, err := safeFields(mx)
		if err != nil {
			return fmt.Errorf("mixin %q: %w", name, err)
		}
		for j, f := range fields {
			sf, err := NewField(f.Descriptor())
			if err != nil {
				return fmt.Errorf("mixin %q: %w", name, err)
			}
			sf.Position = &Position{
				Index:      j,
				MixedIn:    true,
				MixinIndex: i,
			}
			s.Fields = append(s.Fields, sf)
		}
		edges, err := safeEdges(mx)
		if err != nil {
			return fmt.Errorf("mixin %q: %w", name, err)
		}
		for _, e := range edges {
			ne, err := NewEdge(e.Descriptor())
			if err != nil {
				return fmt.Errorf("mixin %q: %w", name, err)
			}
			s.Edges = append(s.Edges, ne)
		}
	}
	return nil
}

// loadFields loads field to schema from docmap.Interface.
func (s *Schema) loadFields(schema docmap.Interface) error {
	fields, err := safeFields(schema)
	if err != nil {
		return err
	}
	for i, f := range fields {
		sf, err := NewField(f.Descriptor())
		if err != nil {
			return err
		}
		sf.Position = &Position{Index: i}
		s.Fields = append(s.Fields, sf)
	}
	return nil
}

func addAnnotation(annotations map[string]any, an schema.Annotation) {
	curr, ok := annotations[an.Name()]
	if !ok {
		annotations[an.Name()] = an
		return
	}
	if m, ok := curr.(schema.Merger); ok {
		annotations[an.Name()] = m.Merge(an)
	}
}

// safeFields wraps the schema.Fields and mixin.Fields method with recover to ensure no panics in marshaling.
func safeFields(fd interface{ Fields() []docmap.Field }) (fields []docmap.Field, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%T.Fields panics: %v", fd, v)
			fields = nil
		}
	}()
	return fd.Fields(), nil
}

// safeEdges wraps the schema.Edges method with recover to ensure no panics in marshaling.
func safeEdges(schema interface{ Edges() []docmap.Edge }) (edges []docmap.Edge, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("schema.Edges panics: %v", v)
			edges = nil
		}
	}()
	return schema.Edges(), nil
}

// safeMixin wraps the schema.Mixin method with recover to ensure no panics in marshaling.
func safeMixin(schema docmap.Interface) (mixin []docmap.Mixin, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("schema.Mixin panics: %v", v)
			mixin = nil
		}
	}()
	return schema.Mixin(), nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
