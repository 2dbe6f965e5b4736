package docgraph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/edge"
)

// FetchFieldManager reads the fields of one object from a document node.
// It mirrors StoreFieldManager.
type FetchFieldManager struct {
	ctx   context.Context
	cfg   *Config
	p     Provider
	doc   *document.Node
	chain Path
}

var _ FieldSupplier = (*FetchFieldManager)(nil)

// NewFetchFieldManager returns the fetch engine of the root object behind p.
func NewFetchFieldManager(ctx context.Context, cfg *Config, p Provider, doc *document.Node) *FetchFieldManager {
	return &FetchFieldManager{ctx: ctx, cfg: cfg, p: p, doc: doc}
}

func (m *FetchFieldManager) field(n int) (*graph.Field, error) {
	return m.p.Type().Field(n)
}

// FetchScalar implements FieldSupplier. Fields that are not stored keep
// their in-memory value.
func (m *FetchFieldManager) FetchScalar(n int) (any, error) {
	f, err := m.field(n)
	if err != nil {
		return nil, err
	}
	if !f.Stored() {
		return m.p.Field(n)
	}
	return m.fetchScalar(f)
}

// FetchObject implements FieldSupplier.
func (m *FetchFieldManager) FetchObject(n int) (any, error) {
	f, err := m.field(n)
	if err != nil {
		return nil, err
	}
	if !f.Stored() {
		return m.p.Field(n)
	}
	if isOwnerLink(m.chain.Last(), f) {
		if owners := m.p.Owners(); len(owners) > 0 {
			return owners[0], nil
		}
		return nil, nil
	}
	switch ShapeOf(f) {
	case ShapeScalar:
		return m.fetchScalar(f)
	case ShapeReference:
		return m.fetchReference(f)
	case ShapeReferences:
		return m.fetchReferences(f)
	case ShapeEmbeddedFlat, ShapeEmbeddedNested:
		return m.fetchEmbedded(f)
	case ShapeEmbeddedElements:
		m.cfg.Logger.Debug("fetching embedded elements is not supported",
			zap.Stringer("field", f),
			zap.String("container", string(f.Container)),
		)
		return nil, nil
	default:
		return nil, fmt.Errorf("docgraph: field %s: unknown shape", f)
	}
}

func (m *FetchFieldManager) fetchScalar(f *graph.Field) (any, error) {
	cm, err := m.cfg.Resolver.Resolve(m.chain, f)
	if err != nil {
		return nil, err
	}
	if len(cm.Names) > 1 {
		parts := make([]any, len(cm.Names))
		present := false
		for i, name := range cm.Names {
			parts[i], _ = m.doc.Get(name)
			present = present || parts[i] != nil
		}
		if !present {
			return nil, nil
		}
		v, err := cm.Converter.FromDatastore(parts)
		if err != nil {
			return nil, fmt.Errorf("docgraph: converting %s: %w", f, err)
		}
		return v, nil
	}
	v, ok := m.doc.Get(cm.Name())
	if !ok || v == nil {
		return nil, nil
	}
	switch {
	case f.Serialized:
		v, err = deserialize(f.Info, v)
	case cm.Converter != nil:
		v, err = cm.Converter.FromDatastore(v)
	default:
		v, err = DecodeScalar(f.Info, v)
	}
	if err != nil {
		return nil, fmt.Errorf("docgraph: field %s: %w", f, err)
	}
	return v, nil
}

// resolve returns the object identified by the stored value v.
func (m *FetchFieldManager) resolve(f *graph.Field, t *graph.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	id, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("docgraph: field %s: identity of type %T is not a string", f, v)
	}
	if id == m.cfg.NullSentinel {
		return nil, nil
	}
	return m.cfg.Lifecycle.Resolve(m.ctx, t, id)
}

func (m *FetchFieldManager) fetchReference(f *graph.Field) (any, error) {
	cm, err := m.cfg.Resolver.Resolve(m.chain, f)
	if err != nil {
		return nil, err
	}
	v, _ := m.doc.Get(cm.Name())
	return m.resolve(f, f.Target, v)
}

func (m *FetchFieldManager) fetchReferences(f *graph.Field) (any, error) {
	cm, err := m.cfg.Resolver.Resolve(m.chain, f)
	if err != nil {
		return nil, err
	}
	raw, ok := m.doc.Get(cm.Name())
	if !ok || raw == nil {
		return nil, nil
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("docgraph: field %s: stored value of type %T is not a sequence", f, raw)
	}
	if f.Container == edge.ContainerMap {
		return m.fetchEntries(f, seq)
	}
	out := make([]any, len(seq))
	for i, v := range seq {
		if out[i], err = m.resolve(f, f.Target, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *FetchFieldManager) fetchEntries(f *graph.Field, seq []any) ([]MapEntry, error) {
	out := make([]MapEntry, len(seq))
	for i, raw := range seq {
		entry, ok := raw.(*document.Node)
		if !ok {
			return nil, fmt.Errorf("docgraph: field %s: map entry of type %T is not a document", f, raw)
		}
		k, _ := entry.Get(EntryKey)
		v, _ := entry.Get(EntryValue)
		key, err := m.fetchSide(f, k, f.KeyTarget, RoleMapKey)
		if err != nil {
			return nil, err
		}
		value, err := m.fetchSide(f, v, f.Target, RoleMapValue)
		if err != nil {
			return nil, err
		}
		out[i] = MapEntry{Key: key, Value: value}
	}
	return out, nil
}

func (m *FetchFieldManager) fetchSide(f *graph.Field, v any, t *graph.Type, role Role) (any, error) {
	if t != nil {
		return m.resolve(f, t, v)
	}
	info, err := sideInfo(f, role)
	if err != nil {
		return nil, err
	}
	out, err := DecodeScalar(info, v)
	if err != nil {
		return nil, fmt.Errorf("docgraph: field %s: %s: %w", f, role, err)
	}
	return out, nil
}
