package docgraph

import (
	"strings"
	"sync"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/field"
)

// ColumnMapping is the storage of a field reached through a path.
type ColumnMapping struct {
	Path Path
	// Names holds the columns of the field in the document node the field
	// is written to. Only multi-column scalars have more than one name.
	Names     []string
	Converter field.Converter
}

// Name returns the first column of the mapping.
func (m *ColumnMapping) Name() string { return m.Names[0] }

// Resolver computes column mappings. Mappings only depend on the path, and
// are cached by path. A Resolver is safe for concurrent use.
type Resolver struct {
	meta    Metadata
	columns sync.Map // path key -> *ColumnMapping
	sets    sync.Map // path key -> []string
}

// NewResolver returns a resolver reading naming settings from meta.
func NewResolver(meta Metadata) *Resolver {
	return &Resolver{meta: meta}
}

// Resolve returns the column mapping of f reached through chain.
func (r *Resolver) Resolve(chain Path, f *graph.Field) (*ColumnMapping, error) {
	p := chain.Append(f)
	key := p.Key()
	if v, ok := r.columns.Load(key); ok {
		return v.(*ColumnMapping), nil
	}
	m, err := r.resolve(p)
	if err != nil {
		return nil, err
	}
	v, _ := r.columns.LoadOrStore(key, m)
	return v.(*ColumnMapping), nil
}

func (r *Resolver) resolve(p Path) (*ColumnMapping, error) {
	f := p.Last()
	for _, hop := range p[:len(p)-1] {
		if hop.Rel != graph.RelOne || !hop.Embedded {
			return nil, docmap.NewConfigurationError(hop.Owner.Name, hop.Name, "path %s does not go through embedded fields", p)
		}
	}
	m := &ColumnMapping{Path: p, Converter: f.Converter}
	start := segment(p)
	if name, ok := override(p, start); ok && len(f.Columns) <= 1 {
		m.Names = []string{name}
		return m, nil
	}
	prefix := make([]string, 0, len(p)-start)
	for _, hop := range p[start : len(p)-1] {
		prefix = append(prefix, hop.Column())
	}
	sep := r.meta.ColumnSeparator()
	switch len(f.Columns) {
	case 0:
		m.Names = []string{join(prefix, f.Column(), sep)}
	default:
		for _, c := range f.Columns {
			m.Names = append(m.Names, join(prefix, c, sep))
		}
	}
	return m, nil
}

// DiscriminatorColumn returns the column holding the discriminator of the
// value of type t stored through f.
func (r *Resolver) DiscriminatorColumn(chain Path, f *graph.Field, t *graph.Type) string {
	col := f.DiscriminatorColumn
	if col == "" {
		col = t.Discriminator.Column
	}
	if col == "" {
		col = r.meta.DefaultDiscriminator()
	}
	if !f.Flat() {
		return col
	}
	p := chain.Append(f)
	prefix := make([]string, 0, len(p))
	for _, hop := range p[segment(p):] {
		prefix = append(prefix, hop.Column())
	}
	return join(prefix, col, r.meta.ColumnSeparator())
}

// EmbeddedColumns returns every column written for the embedded value of f
// into the current document node. For flat fields, this includes the
// columns of nested flat members, of all subtypes of the declared type
// and the discriminator. Owner back-references are excluded.
func (r *Resolver) EmbeddedColumns(chain Path, f *graph.Field) ([]string, error) {
	key := chain.Append(f).Key()
	if v, ok := r.sets.Load(key); ok {
		return v.([]string), nil
	}
	var (
		cols []string
		seen = make(map[string]bool)
	)
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				cols = append(cols, n)
			}
		}
	}
	if err := r.embeddedColumns(chain, f, add); err != nil {
		return nil, err
	}
	v, _ := r.sets.LoadOrStore(key, cols)
	return v.([]string), nil
}

func (r *Resolver) embeddedColumns(chain Path, f *graph.Field, add func(...string)) error {
	if !f.Flat() {
		m, err := r.Resolve(chain, f)
		if err != nil {
			return err
		}
		add(m.Names...)
		return nil
	}
	if f.Target == nil {
		return docmap.NewConfigurationError(f.Owner.Name, f.Name, "embedded field without target type")
	}
	if f.Target.HasDiscriminator() {
		add(r.DiscriminatorColumn(chain, f, f.Target))
	}
	p := chain.Append(f)
	visited := make(map[*graph.Field]bool)
	for _, t := range f.Target.Descendants() {
		for _, g := range t.Fields {
			if visited[g] || !g.Stored() || isOwnerLink(f, g) {
				continue
			}
			visited[g] = true
			if g.Flat() {
				if err := r.embeddedColumns(p, g, add); err != nil {
					return err
				}
				continue
			}
			m, err := r.Resolve(p, g)
			if err != nil {
				return err
			}
			add(m.Names...)
		}
	}
	return nil
}

// segment returns the index of the first field of p stored in the same
// document node as the last field, that is, after the last nested hop.
func segment(p Path) int {
	start := 0
	for i := 0; i < len(p)-1; i++ {
		if p[i].Nested() {
			start = i + 1
		}
	}
	return start
}

// override returns the column declared for the tail of p by one of its
// embedding hops. Outer declarations win.
func override(p Path, start int) (string, bool) {
	for i := max(start-1, 0); i < len(p)-1; i++ {
		if len(p[i].Overrides) == 0 {
			continue
		}
		names := make([]string, 0, len(p)-i-1)
		for _, f := range p[i+1:] {
			names = append(names, f.Name)
		}
		if col, ok := p[i].Overrides[strings.Join(names, ".")]; ok {
			return col, true
		}
	}
	return "", false
}

func join(prefix []string, col, sep string) string {
	if len(prefix) == 0 {
		return col
	}
	return strings.Join(prefix, sep) + sep + col
}
