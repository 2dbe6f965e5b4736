package docgraph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/graph"
)

// StoreFieldManager writes the fields of one object into a document node.
// At the root (empty chain) columns are named after the fields; for an
// embedded object the columns are resolved against the chain of embedding
// fields leading to it.
type StoreFieldManager struct {
	ctx    context.Context
	cfg    *Config
	p      Provider
	doc    *document.Node
	insert bool
	chain  Path
	// owner is the multi-valued field holding the object as an element.
	owner *graph.Field
}

var _ FieldConsumer = (*StoreFieldManager)(nil)

// NewStoreFieldManager returns the store engine of the root object behind p.
func NewStoreFieldManager(ctx context.Context, cfg *Config, p Provider, doc *document.Node, insert bool) *StoreFieldManager {
	return &StoreFieldManager{ctx: ctx, cfg: cfg, p: p, doc: doc, insert: insert}
}

// Document returns the node written by the manager.
func (m *StoreFieldManager) Document() *document.Node { return m.doc }

// context returns the field through which the current object is embedded.
func (m *StoreFieldManager) context() *graph.Field {
	if f := m.chain.Last(); f != nil {
		return f
	}
	return m.owner
}

func (m *StoreFieldManager) field(n int) (*graph.Field, error) {
	return m.p.Type().Field(n)
}

// StoreScalar implements FieldConsumer.
func (m *StoreFieldManager) StoreScalar(n int, v any) error {
	f, err := m.field(n)
	if err != nil {
		return err
	}
	if !f.Stored() {
		return nil
	}
	return m.storeScalar(f, v)
}

// StoreObject implements FieldConsumer.
func (m *StoreFieldManager) StoreObject(n int, v any) error {
	f, err := m.field(n)
	if err != nil {
		return err
	}
	if !f.Stored() {
		return nil
	}
	if isOwnerLink(m.context(), f) {
		return m.linkOwner(f, v)
	}
	switch ShapeOf(f) {
	case ShapeScalar:
		return m.storeScalar(f, v)
	case ShapeReference:
		return m.storeReference(f, v)
	case ShapeReferences:
		return m.storeReferences(f, v)
	case ShapeEmbeddedFlat, ShapeEmbeddedNested:
		return m.storeEmbedded(f, v)
	case ShapeEmbeddedElements:
		return m.storeElements(f, v)
	default:
		return fmt.Errorf("docgraph: field %s: unknown shape", f)
	}
}

func (m *StoreFieldManager) storeScalar(f *graph.Field, v any) error {
	cm, err := m.cfg.Resolver.Resolve(m.chain, f)
	if err != nil {
		return err
	}
	switch {
	case v == nil:
		for _, name := range cm.Names {
			m.doc.Set(name, nil)
		}
	case f.Serialized:
		b, err := serialize(v)
		if err != nil {
			return fmt.Errorf("docgraph: serializing %s: %w", f, err)
		}
		m.doc.Set(cm.Name(), b)
	case cm.Converter != nil:
		out, err := cm.Converter.ToDatastore(v)
		if err != nil {
			return fmt.Errorf("docgraph: converting %s: %w", f, err)
		}
		if len(cm.Names) == 1 {
			m.doc.Set(cm.Name(), out)
			return nil
		}
		parts, ok := out.([]any)
		if !ok || len(parts) != len(cm.Names) {
			return docmap.NewConfigurationError(f.Owner.Name, f.Name, "converter must return %d column values", len(cm.Names))
		}
		for i, name := range cm.Names {
			m.doc.Set(name, parts[i])
		}
	default:
		out, err := EncodeScalar(f.Info, v)
		if err != nil {
			return fmt.Errorf("docgraph: field %s: %w", f, err)
		}
		m.doc.Set(cm.Name(), out)
	}
	return nil
}

// reachable checks that v may be referenced through f under the cascade
// policy of the current operation.
func (m *StoreFieldManager) reachable(f *graph.Field, v any) error {
	lc := m.cfg.Lifecycle
	if f.Cascades(m.insert) || lc.IsPersistent(v) || lc.IsDetached(v) {
		return nil
	}
	op := "update"
	if m.insert {
		op = "insert"
	}
	m.cfg.Logger.Debug("related object is not reachable",
		zap.Stringer("field", f),
		zap.String("op", op),
	)
	return docmap.NewNotCascadedError(f.String(), op, v)
}

// identity persists v when f cascades the operation and returns its identity.
func (m *StoreFieldManager) identity(f *graph.Field, v any) (string, error) {
	lc := m.cfg.Lifecycle
	if !lc.IsPersistable(v) {
		return "", docmap.NewConfigurationError(f.Owner.Name, f.Name, "value of type %T is not an object", v)
	}
	if f.Cascades(m.insert) {
		if err := lc.PersistIfNeeded(m.ctx, v); err != nil {
			return "", err
		}
	}
	return lc.Identity(v)
}

func (m *StoreFieldManager) storeReference(f *graph.Field, v any) error {
	cm, err := m.cfg.Resolver.Resolve(m.chain, f)
	if err != nil {
		return err
	}
	if v == nil {
		m.doc.Set(cm.Name(), nil)
		return nil
	}
	if err := m.reachable(f, v); err != nil {
		return err
	}
	id, err := m.identity(f, v)
	if err != nil {
		return err
	}
	m.doc.Set(cm.Name(), id)
	return nil
}
