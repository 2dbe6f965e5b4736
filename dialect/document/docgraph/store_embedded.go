package docgraph

import (
	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/graph"
)

// embedded returns the sub-engine writing the object behind p, reached
// through chain, into doc.
func (m *StoreFieldManager) embedded(p Provider, doc *document.Node, chain Path) *StoreFieldManager {
	return &StoreFieldManager{
		ctx:    m.ctx,
		cfg:    m.cfg,
		p:      p,
		doc:    doc,
		insert: m.insert,
		chain:  chain,
	}
}

// linkOwner keeps the back-reference f of an embedded object pointing at
// its owner. Nothing is written to the document.
func (m *StoreFieldManager) linkOwner(f *graph.Field, v any) error {
	owners := m.p.Owners()
	if len(owners) == 0 || v == owners[0] {
		return nil
	}
	return m.p.ReplaceField(f.Number, owners[0])
}

// storeEmbedded writes the single-valued embedded relation f.
func (m *StoreFieldManager) storeEmbedded(f *graph.Field, v any) error {
	if v != nil {
		if err := m.reachable(f, v); err != nil {
			return err
		}
	}
	r := m.cfg.Resolver
	if f.Flat() && (v == nil || !m.insert) {
		cols, err := r.EmbeddedColumns(m.chain, f)
		if err != nil {
			return err
		}
		for _, c := range cols {
			m.doc.Remove(c)
		}
	}
	cm, err := r.Resolve(m.chain, f)
	if err != nil {
		return err
	}
	if v == nil {
		if f.Nested() {
			m.doc.Remove(cm.Name())
		}
		return nil
	}
	t, err := m.cfg.Lifecycle.TypeOf(v)
	if err != nil {
		return err
	}
	if !t.IsA(f.Target) {
		return docmap.NewConfigurationError(f.Owner.Name, f.Name, "value of type %s is not a %s", t, f.Target)
	}
	ep, err := m.cfg.Lifecycle.Embedded(v, m.p, f, RoleField)
	if err != nil {
		return err
	}
	target := m.doc
	if f.Nested() {
		target = document.New()
	}
	if t.HasDiscriminator() {
		target.Set(r.DiscriminatorColumn(m.chain, f, t), t.DiscriminatorValue())
	}
	if err := ep.ProvideFields(t.FieldNumbers(), m.embedded(ep, target, m.chain.Append(f))); err != nil {
		return err
	}
	if f.Nested() {
		m.doc.Set(cm.Name(), target)
	}
	return nil
}
