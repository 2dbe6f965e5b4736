package graph

import (
	"slices"

	"github.com/go-openapi/inflect"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/schema/edge"
	"github.com/syssam/docmap/schema/field"
	"github.com/syssam/docmap/schema/load"
)

// DefaultDiscriminatorColumn is the column holding discriminator values
// when no column is configured.
const DefaultDiscriminatorColumn = "__type"

// Config holds the naming settings of a graph.
type Config struct {
	// Separator joins the column names of flat-embedded members.
	Separator string
	// DiscriminatorColumn is the default discriminator column.
	DiscriminatorColumn string
}

// Option configures a graph.
type Option func(*Config) error

// WithSeparator sets the separator joining flat-embedded column names.
func WithSeparator(sep string) Option {
	return func(c *Config) error {
		if sep == "" {
			return docmap.NewConfigurationError("Graph", "Separator", "separator cannot be empty")
		}
		c.Separator = sep
		return nil
	}
}

// WithDiscriminatorColumn sets the default discriminator column.
func WithDiscriminatorColumn(col string) Option {
	return func(c *Config) error {
		if col == "" {
			return docmap.NewConfigurationError("Graph", "DiscriminatorColumn", "column cannot be empty")
		}
		c.DiscriminatorColumn = col
		return nil
	}
}

// Graph holds the compiled types. It is read-only once built and safe
// for concurrent use.
type Graph struct {
	Config
	// Nodes are the types of the graph in declaration order.
	Nodes  []*Type
	byName map[string]*Type
}

// Load compiles Go schemas into a graph.
func Load(schemas []docmap.Interface, opts ...Option) (*Graph, error) {
	loaded, err := load.MarshalSchemas(schemas...)
	if err != nil {
		return nil, err
	}
	return NewGraph(loaded, opts...)
}

// NewGraph compiles loaded schemas into a graph.
func NewGraph(schemas []*load.Schema, opts ...Option) (*Graph, error) {
	g := &Graph{
		Config: Config{
			Separator:           "_",
			DiscriminatorColumn: DefaultDiscriminatorColumn,
		},
		byName: make(map[string]*Type, len(schemas)),
	}
	for _, opt := range opts {
		if err := opt(&g.Config); err != nil {
			return nil, err
		}
	}
	for _, s := range schemas {
		if _, ok := g.byName[s.Name]; ok {
			return nil, docmap.NewConfigurationError(s.Name, "", "type declared twice")
		}
		t := &Type{
			Name:       s.Name,
			Package:    s.Config.Package,
			Collection: s.Config.Collection,
			Abstract:   s.Config.Abstract,
			Embeddable: s.Config.Embeddable,
			byName:     make(map[string]*Field),
		}
		if t.Collection == "" {
			t.Collection = inflect.Pluralize(inflect.Underscore(t.Name))
		}
		g.Nodes = append(g.Nodes, t)
		g.byName[t.Name] = t
	}
	steps := []func([]*load.Schema) error{
		g.resolveSupers,
		g.addFields,
		g.resolveEdges,
		g.resolveDiscriminators,
		g.checkFlatCycles,
	}
	for _, step := range steps {
		if err := step(schemas); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Type returns the type with the given name.
func (g *Graph) Type(name string) (*Type, error) {
	t, ok := g.byName[name]
	if !ok {
		return nil, docmap.NewConfigurationError(name, "", "type is not part of the graph")
	}
	return t, nil
}

// Subtype returns the type of the hierarchy below declared (declared
// included) whose discriminator value is v.
func (g *Graph) Subtype(declared *Type, v string) (*Type, error) {
	for _, t := range declared.Descendants() {
		if t.DiscriminatorValue() == v {
			return t, nil
		}
	}
	return nil, docmap.NewConfigurationError(declared.Name, "", "no subtype with discriminator value %q", v)
}

// DefaultDiscriminator returns the default discriminator column.
func (g *Graph) DefaultDiscriminator() string {
	return g.DiscriminatorColumn
}

// ColumnSeparator returns the separator joining flat-embedded column names.
func (g *Graph) ColumnSeparator() string {
	return g.Separator
}

func (g *Graph) resolveSupers(schemas []*load.Schema) error {
	for i, s := range schemas {
		if s.Config.Extends == "" {
			continue
		}
		t := g.Nodes[i]
		super, ok := g.byName[s.Config.Extends]
		if !ok {
			return unknownType(t.Name, "", s.Config.Extends)
		}
		t.Super = super
		super.Subtypes = append(super.Subtypes, t)
	}
	for _, t := range g.Nodes {
		seen := map[*Type]bool{}
		for c := t; c != nil; c = c.Super {
			if seen[c] {
				return docmap.NewConfigurationError(t.Name, "", "cyclic type hierarchy")
			}
			seen[c] = true
		}
	}
	return nil
}

// addFields numbers the fields of every type, supertypes first.
func (g *Graph) addFields(schemas []*load.Schema) error {
	done := make(map[*Type]bool, len(g.Nodes))
	var add func(t *Type) error
	add = func(t *Type) error {
		if done[t] {
			return nil
		}
		done[t] = true
		if t.Super != nil {
			if err := add(t.Super); err != nil {
				return err
			}
			t.Fields = slices.Clone(t.Super.Fields)
			for _, f := range t.Fields {
				t.byName[f.Name] = f
			}
		}
		s := schemas[slices.Index(g.Nodes, t)]
		for _, lf := range s.Fields {
			f := &Field{
				Name:          lf.Name,
				Owner:         t,
				Info:          &field.TypeInfo{Type: lf.Type, Ident: lf.Ident},
				StorageKey:    lf.StorageKey,
				Columns:       lf.Columns,
				Optional:      lf.Optional,
				Transient:     lf.Transient,
				Identity:      lf.Identity,
				Serialized:    lf.Serialized,
				Converter:     lf.Converter,
				Default:       lf.Default,
				UpdateDefault: lf.UpdateDefault,
			}
			if len(f.Columns) > 1 && f.Converter == nil {
				return docmap.NewConfigurationError(t.Name, f.Name, "multiple columns require a converter")
			}
			if err := t.addField(f); err != nil {
				return err
			}
		}
		for _, le := range s.Edges {
			if err := t.addField(&Field{Name: le.Name, Owner: t}); err != nil {
				return err
			}
		}
		return nil
	}
	for _, t := range g.Nodes {
		if err := add(t); err != nil {
			return err
		}
	}
	return nil
}

func (t *Type) addField(f *Field) error {
	if _, ok := t.byName[f.Name]; ok {
		return docmap.NewConfigurationError(t.Name, f.Name, "field declared twice")
	}
	f.Number = len(t.Fields)
	t.Fields = append(t.Fields, f)
	t.byName[f.Name] = f
	return nil
}

func (g *Graph) resolveEdges(schemas []*load.Schema) error {
	for i, s := range schemas {
		t := g.Nodes[i]
		for _, le := range s.Edges {
			f := t.byName[le.Name]
			if err := g.resolveEdge(f, le); err != nil {
				return err
			}
		}
	}
	// Back-references are checked once every relation is known.
	for _, t := range g.Nodes {
		for _, f := range t.Fields {
			if f.Owner != t || !f.IsRelation() {
				continue
			}
			if err := checkBackReferences(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) resolveEdge(f *Field, le *load.Edge) error {
	t := f.Owner
	if le.Type != "" {
		target, ok := g.byName[le.Type]
		if !ok {
			return unknownType(t.Name, f.Name, le.Type)
		}
		f.Target = target
	}
	if le.KeyType != "" {
		key, ok := g.byName[le.KeyType]
		if !ok {
			return unknownType(t.Name, f.Name, le.KeyType)
		}
		f.KeyTarget = key
	}
	f.Rel = RelMany
	if le.Unique {
		f.Rel = RelOne
	}
	f.Container = le.Container
	switch {
	case f.Rel == RelOne:
		f.Container = ""
	case f.Container == "":
		f.Container = edge.ContainerCollection
	}
	if f.Container == edge.ContainerMap {
		if f.KeyTarget == nil {
			f.KeyInfo = &field.TypeInfo{Type: field.TypeString}
			if le.Key.Valid() {
				f.KeyInfo.Type = le.Key
			}
		}
		if f.Target == nil {
			if !le.Value.Valid() {
				return docmap.NewConfigurationError(t.Name, f.Name, "map relation without value type")
			}
			f.ValueInfo = &field.TypeInfo{Type: le.Value}
		}
	}
	if f.Target == nil && f.KeyTarget == nil {
		return docmap.NewConfigurationError(t.Name, f.Name, "relation without target type")
	}
	f.Embedded = le.Embedded != "" ||
		(f.Target != nil && f.Target.Embeddable) ||
		(f.KeyTarget != nil && f.KeyTarget.Embeddable)
	if f.Embedded {
		f.Mode = le.Embedded
		if f.Mode == "" {
			f.Mode = edge.Nested
		}
		if f.Mode == edge.Flat && f.Rel != RelOne {
			return docmap.NewConfigurationError(t.Name, f.Name, "only single-valued relations can be embedded flat")
		}
	}
	f.Cascade = edge.CascadeAll
	if le.NoCascadePersist {
		f.Cascade &^= edge.CascadePersist
	}
	if le.NoCascadeUpdate {
		f.Cascade &^= edge.CascadeUpdate
	}
	f.MappedBy = le.MappedBy
	f.OwnerMember = le.OwnerField
	f.DiscriminatorColumn = le.DiscriminatorColumn
	f.StorageKey = le.StorageKey
	f.SerializedElements = le.SerializeElements
	f.Overrides = le.Overrides
	return nil
}

// checkBackReferences validates owner members and mapped-by names against the target type.
func checkBackReferences(f *Field) error {
	if f.OwnerMember != "" {
		if f.Target == nil || !f.Embedded {
			return docmap.NewConfigurationError(f.Owner.Name, f.Name, "owner field on a relation that is not embedded")
		}
		of, ok := f.Target.FieldByName(f.OwnerMember)
		if !ok || of.Rel != RelOne {
			return docmap.NewConfigurationError(f.Owner.Name, f.Name, "owner field %q is not a single-valued relation of %s", f.OwnerMember, f.Target.Name)
		}
	}
	if f.MappedBy != "" && f.Target != nil {
		if _, ok := f.Target.FieldByName(f.MappedBy); !ok {
			return docmap.NewConfigurationError(f.Owner.Name, f.Name, "mapped-by field %q not found on %s", f.MappedBy, f.Target.Name)
		}
	}
	return nil
}

func (g *Graph) resolveDiscriminators(schemas []*load.Schema) error {
	conf := make(map[*Type]docmap.Discriminator, len(schemas))
	for i, s := range schemas {
		conf[g.Nodes[i]] = s.Config.Discriminator
	}
	for _, t := range g.Nodes {
		if t.Super != nil {
			continue
		}
		root := conf[t]
		strategy := root.Strategy
		if strategy == docmap.DiscriminatorNone && len(t.Subtypes) > 0 {
			strategy = docmap.DiscriminatorValueMap
		}
		if strategy == docmap.DiscriminatorNone {
			continue
		}
		column := root.Column
		if column == "" {
			column = g.DiscriminatorColumn
		}
		seen := make(map[string]*Type)
		for _, d := range t.Descendants() {
			value := conf[d].Value
			switch {
			case strategy == docmap.DiscriminatorClassName:
				value = d.QualifiedName()
			case value == "":
				value = d.Name
			}
			if other, ok := seen[value]; ok {
				return docmap.NewConfigurationError(d.Name, "", "discriminator value %q already used by %s", value, other.Name)
			}
			seen[value] = d
			d.Discriminator = docmap.Discriminator{Strategy: strategy, Column: column, Value: value}
		}
	}
	return nil
}

// checkFlatCycles rejects types that embed themselves flat, directly or not.
func (g *Graph) checkFlatCycles([]*load.Schema) error {
	var visit func(t *Type, path []*Type) error
	visit = func(t *Type, path []*Type) error {
		if slices.Contains(path, t) {
			return docmap.NewConfigurationError(t.Name, "", "cyclic flat embedding")
		}
		path = append(path, t)
		for _, d := range t.Descendants() {
			for _, f := range d.Fields {
				if f.Flat() && f.Target != nil {
					if err := visit(f.Target, path); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
	for _, t := range g.Nodes {
		if err := visit(t, nil); err != nil {
			return err
		}
	}
	return nil
}
