package docgraph

import (
	"fmt"

	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/graph"
)

// fetchEmbedded reads the single-valued embedded relation f. The value is
// nil when its sub-document is missing (nested) or when none of its
// columns is present (flat).
func (m *FetchFieldManager) fetchEmbedded(f *graph.Field) (any, error) {
	r := m.cfg.Resolver
	doc := m.doc
	if f.Nested() {
		cm, err := r.Resolve(m.chain, f)
		if err != nil {
			return nil, err
		}
		sub, ok := m.doc.Node(cm.Name())
		if !ok {
			return nil, nil
		}
		doc = sub
	} else {
		cols, err := r.EmbeddedColumns(m.chain, f)
		if err != nil {
			return nil, err
		}
		if !hasAny(m.doc, cols) {
			return nil, nil
		}
	}
	t, err := m.concreteType(f, doc)
	if err != nil {
		return nil, err
	}
	ep, err := m.cfg.Lifecycle.NewEmbedded(t, m.p, f)
	if err != nil {
		return nil, err
	}
	sub := &FetchFieldManager{
		ctx:   m.ctx,
		cfg:   m.cfg,
		p:     ep,
		doc:   doc,
		chain: m.chain.Append(f),
	}
	if err := ep.ReplaceFields(t.FieldNumbers(), sub); err != nil {
		return nil, err
	}
	return ep.Object(), nil
}

// concreteType returns the type selected by the discriminator stored in
// doc, or the declared type of f when there is none.
func (m *FetchFieldManager) concreteType(f *graph.Field, doc *document.Node) (*graph.Type, error) {
	if !f.Target.HasDiscriminator() {
		return f.Target, nil
	}
	v, ok := doc.Get(m.cfg.Resolver.DiscriminatorColumn(m.chain, f, f.Target))
	if !ok || v == nil {
		return f.Target, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("docgraph: field %s: discriminator of type %T is not a string", f, v)
	}
	return m.cfg.Metadata.Subtype(f.Target, s)
}

func hasAny(doc *document.Node, cols []string) bool {
	for _, c := range cols {
		if doc.Has(c) {
			return true
		}
	}
	return false
}
