package docgraph

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/edge"
	"github.com/syssam/docmap/schema/field"
)

// storeReferences writes the multi-valued relation f as a sequence of
// identities, or of entry sub-documents for maps.
func (m *StoreFieldManager) storeReferences(f *graph.Field, v any) error {
	cm, err := m.cfg.Resolver.Resolve(m.chain, f)
	if err != nil {
		return err
	}
	if v == nil {
		m.doc.Remove(cm.Name())
		return nil
	}
	if f.SerializedElements {
		return docmap.NewUnsupportedError(f.String(), "serialized "+string(f.Container)+" elements")
	}
	if f.Container == edge.ContainerMap {
		return m.storeEntries(f, cm.Name(), v)
	}
	elems, err := elements(f, v)
	if err != nil {
		return err
	}
	// Every element is checked before anything is persisted.
	for _, e := range elems {
		if e == nil {
			continue
		}
		if err := m.reachable(f, e); err != nil {
			return err
		}
	}
	ids := make([]any, len(elems))
	for i, e := range elems {
		if e == nil {
			ids[i] = m.cfg.NullSentinel
			continue
		}
		id, err := m.identity(f, e)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	m.doc.Set(cm.Name(), ids)
	return nil
}

// storeElements writes the multi-valued relation f whose elements are
// embedded, as a sequence of sub-documents.
func (m *StoreFieldManager) storeElements(f *graph.Field, v any) error {
	cm, err := m.cfg.Resolver.Resolve(m.chain, f)
	if err != nil {
		return err
	}
	if v == nil {
		m.doc.Remove(cm.Name())
		return nil
	}
	if f.SerializedElements {
		return docmap.NewUnsupportedError(f.String(), "serialized "+string(f.Container)+" elements")
	}
	if f.Container == edge.ContainerMap {
		return m.storeEntries(f, cm.Name(), v)
	}
	elems, err := elements(f, v)
	if err != nil {
		return err
	}
	role := RoleCollectionElement
	if f.Container == edge.ContainerArray {
		role = RoleArrayElement
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		if out[i], err = m.embedElement(f, e, f.Target, role); err != nil {
			return err
		}
	}
	m.doc.Set(cm.Name(), out)
	return nil
}

// storeEntries writes the map relation f as a sequence of {key, value}
// sub-documents.
func (m *StoreFieldManager) storeEntries(f *graph.Field, col string, v any) error {
	entries, err := entries(f, v)
	if err != nil {
		return err
	}
	for _, e := range entries {
		for _, side := range [...]struct {
			v any
			t *graph.Type
		}{{e.Key, f.KeyTarget}, {e.Value, f.Target}} {
			if side.v == nil || side.t == nil || embedsSide(f, side.t) {
				continue
			}
			if err := m.reachable(f, side.v); err != nil {
				return err
			}
		}
	}
	out := make([]any, len(entries))
	for i, e := range entries {
		key, err := m.storeSide(f, e.Key, f.KeyTarget, RoleMapKey)
		if err != nil {
			return err
		}
		value, err := m.storeSide(f, e.Value, f.Target, RoleMapValue)
		if err != nil {
			return err
		}
		entry := document.New()
		entry.Set(EntryKey, key)
		entry.Set(EntryValue, value)
		out[i] = entry
	}
	m.doc.Set(col, out)
	return nil
}

// storeSide encodes one side of a map entry: embedded, referenced or scalar.
func (m *StoreFieldManager) storeSide(f *graph.Field, v any, t *graph.Type, role Role) (any, error) {
	switch {
	case t == nil:
		ti, err := sideInfo(f, role)
		if err != nil {
			return nil, err
		}
		out, err := EncodeScalar(ti, v)
		if err != nil {
			return nil, fmt.Errorf("docgraph: field %s: %s: %w", f, role, err)
		}
		return out, nil
	case embedsSide(f, t):
		return m.embedElement(f, v, t, role)
	case v == nil:
		return m.cfg.NullSentinel, nil
	default:
		return m.identity(f, v)
	}
}

// embedElement stores one element of a container as a fresh sub-document.
// The element is written by a root-level engine: the chain restarts at the
// element type, and f is the embedding context of the element.
func (m *StoreFieldManager) embedElement(f *graph.Field, v any, declared *graph.Type, role Role) (any, error) {
	if v == nil {
		return nil, nil
	}
	lc := m.cfg.Lifecycle
	t, err := lc.TypeOf(v)
	if err != nil {
		return nil, err
	}
	if !t.IsA(declared) {
		return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "%s of type %s is not a %s", role, t, declared)
	}
	ep, err := lc.Embedded(v, m.p, f, role)
	if err != nil {
		return nil, err
	}
	sub := document.New()
	if t.HasDiscriminator() && (t != declared || declared.Polymorphic()) {
		sub.Set(m.cfg.Resolver.DiscriminatorColumn(nil, f, t), t.DiscriminatorValue())
	}
	em := &StoreFieldManager{
		ctx:    m.ctx,
		cfg:    m.cfg,
		p:      ep,
		doc:    sub,
		insert: m.insert,
		owner:  f,
	}
	if err := ep.ProvideFields(t.FieldNumbers(), em); err != nil {
		return nil, err
	}
	return sub, nil
}

// sideInfo returns the scalar type of the key or value side of map f.
func sideInfo(f *graph.Field, role Role) (*field.TypeInfo, error) {
	info := f.ValueInfo
	if role == RoleMapKey {
		info = f.KeyInfo
	}
	if info == nil {
		return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "%s has neither a type nor a scalar type", role)
	}
	return info, nil
}

// embedsSide reports if the map side targeting t is stored inline.
func embedsSide(f *graph.Field, t *graph.Type) bool {
	if t == nil || !f.Embedded {
		return false
	}
	if t.Embeddable {
		return true
	}
	other := f.Target
	if t == f.Target {
		other = f.KeyTarget
	}
	return other == nil || !other.Embeddable
}

// elements returns the elements of a collection or array value.
func elements(f *graph.Field, v any) ([]any, error) {
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("docgraph: field %s: expect a sequence, got %T", f, v)
	}
}

// entries returns the entries of a map value. Go maps are ordered by the
// formatted key.
func entries(f *graph.Field, v any) ([]MapEntry, error) {
	if s, ok := v.([]MapEntry); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("docgraph: field %s: expect a map, got %T", f, v)
	}
	out := make([]MapEntry, 0, rv.Len())
	for it := rv.MapRange(); it.Next(); {
		out = append(out, MapEntry{Key: it.Key().Interface(), Value: it.Value().Interface()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return fmt.Sprint(out[i].Key) < fmt.Sprint(out[j].Key)
	})
	return out, nil
}
