package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document/docgraph"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/edge"
)

// TypeKey selects the concrete type of an object given as a map.
const TypeKey = "@type"

// FromMap builds a transient object of the named type from decoded YAML or
// JSON. Related objects are given as maps, and references to stored
// objects as identity strings. TypeKey selects a subtype.
func (s *Session) FromMap(ctx context.Context, typeName string, m map[string]any) (*Object, error) {
	t, err := s.graph.Type(typeName)
	if err != nil {
		return nil, err
	}
	return s.fromMap(ctx, t, m)
}

func (s *Session) fromMap(ctx context.Context, declared *graph.Type, m map[string]any) (*Object, error) {
	t := declared
	if name, ok := m[TypeKey].(string); ok {
		sub, err := s.graph.Type(name)
		if err != nil {
			return nil, err
		}
		if !sub.IsA(declared) {
			return nil, docmap.NewConfigurationError(declared.Name, "", "%s is not a subtype", name)
		}
		t = sub
	}
	if t.Abstract {
		return nil, docmap.NewConfigurationError(t.Name, "", "abstract type needs a %q entry", TypeKey)
	}
	o := newObject(t)
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != TypeKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		f, ok := t.FieldByName(k)
		if !ok {
			return nil, docmap.NewConfigurationError(t.Name, k, "unknown field")
		}
		v, err := s.convert(ctx, f, m[k])
		if err != nil {
			return nil, err
		}
		o.values[f.Number] = v
	}
	return o, nil
}

func (s *Session) convert(ctx context.Context, f *graph.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case !f.IsRelation():
		out, err := docgraph.DecodeScalar(f.Info, v)
		if err != nil {
			return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "%v", err)
		}
		return out, nil
	case f.Rel == graph.RelOne:
		return s.related(ctx, f, f.Target, v)
	case f.Container == edge.ContainerMap:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "expect a map, got %T", v)
		}
		if f.KeyTarget != nil {
			return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "object keys cannot be given as a map")
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]docgraph.MapEntry, len(keys))
		for i, k := range keys {
			key, err := docgraph.DecodeScalar(f.KeyInfo, k)
			if err != nil {
				return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "key %q: %v", k, err)
			}
			value, err := s.mapValue(ctx, f, m[k])
			if err != nil {
				return nil, err
			}
			entries[i] = docgraph.MapEntry{Key: key, Value: value}
		}
		return entries, nil
	default:
		seq, ok := v.([]any)
		if !ok {
			return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "expect a sequence, got %T", v)
		}
		out := make([]any, len(seq))
		for i := range seq {
			e, err := s.related(ctx, f, f.Target, seq[i])
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	}
}

func (s *Session) mapValue(ctx context.Context, f *graph.Field, v any) (any, error) {
	if f.Target != nil {
		return s.related(ctx, f, f.Target, v)
	}
	out, err := docgraph.DecodeScalar(f.ValueInfo, v)
	if err != nil {
		return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "%v", err)
	}
	return out, nil
}

// related converts a related object given as a map, or as the identity of
// a stored object.
func (s *Session) related(ctx context.Context, f *graph.Field, t *graph.Type, v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return s.fromMap(ctx, t, v)
	case string:
		if f.Embedded {
			return nil, docmap.NewConfigurationError(f.Owner.Name, f.Name, "embedded objects cannot be referenced by identity")
		}
		return s.find(ctx, t, v)
	default:
		return nil, fmt.Errorf("session: field %s: unexpected %T", f, v)
	}
}
