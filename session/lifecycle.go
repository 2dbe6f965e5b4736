package session

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document/docgraph"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/field"
)

// TypeOf implements docgraph.Lifecycle.
func (s *Session) TypeOf(v any) (*graph.Type, error) {
	o, err := asObject(v)
	if err != nil {
		return nil, err
	}
	return o.t, nil
}

// Embedded implements docgraph.Lifecycle.
func (s *Session) Embedded(v any, owner docgraph.Provider, f *graph.Field, role docgraph.Role) (docgraph.Provider, error) {
	o, err := asObject(v)
	if err != nil {
		return nil, err
	}
	p := embed(o, owner, f, role)
	if p.op != nil {
		p.op.embedded = append(p.op.embedded, o)
	}
	s.logger.Debug("object embedded",
		zap.Stringer("object", o),
		zap.Stringer("field", f),
		zap.Stringer("role", p.Role()),
	)
	return p, nil
}

// NewEmbedded implements docgraph.Lifecycle.
func (s *Session) NewEmbedded(t *graph.Type, owner docgraph.Provider, f *graph.Field) (docgraph.Provider, error) {
	if t.Abstract {
		return nil, docmap.NewConfigurationError(t.Name, "", "abstract type embedded in %s has no discriminator value", f)
	}
	o := newObject(t)
	o.state = StatePersistent
	return embed(o, owner, f, docgraph.RoleField), nil
}

// PersistIfNeeded implements docgraph.Lifecycle. Transient and detached
// objects are persisted.
func (s *Session) PersistIfNeeded(ctx context.Context, v any) error {
	o, err := asObject(v)
	if err != nil {
		return err
	}
	if s.State(o) == StatePersistent {
		return nil
	}
	s.logger.Debug("cascading persist", zap.Stringer("object", o))
	return s.Persist(ctx, o)
}

// Identity implements docgraph.Lifecycle.
func (s *Session) Identity(v any) (string, error) {
	o, err := asObject(v)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.id == "" {
		return "", docmap.NewConfigurationError(o.t.Name, "", "object %s has no identity", o)
	}
	return o.id, nil
}

// Resolve implements docgraph.Lifecycle.
func (s *Session) Resolve(ctx context.Context, t *graph.Type, id string) (any, error) {
	o, err := s.find(ctx, t, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// IsPersistable implements docgraph.Lifecycle.
func (s *Session) IsPersistable(v any) bool {
	o, ok := v.(*Object)
	return ok && o != nil
}

// IsPersistent implements docgraph.Lifecycle.
func (s *Session) IsPersistent(v any) bool {
	o, ok := v.(*Object)
	return ok && o != nil && s.State(o) == StatePersistent
}

// IsDetached implements docgraph.Lifecycle.
func (s *Session) IsDetached(v any) bool {
	o, ok := v.(*Object)
	return ok && o != nil && s.State(o) == StateDetached
}

// assignID sets the identity of o, taken from its identity fields when
// they hold one, or generated. It must be called with s.mu held.
func (s *Session) assignID(o *Object) {
	if o.id != "" {
		return
	}
	for _, f := range o.t.Fields {
		if !f.Identity {
			continue
		}
		switch v := o.values[f.Number].(type) {
		case string:
			o.id = v
		case uuid.UUID:
			if v != uuid.Nil {
				o.id = v.String()
			}
		}
		if o.id != "" {
			break
		}
	}
	if o.id == "" {
		o.id = s.newID()
	}
	setIdentity(o)
}

// setIdentity copies the identity of o into its identity fields.
func setIdentity(o *Object) {
	for _, f := range o.t.Fields {
		if !f.Identity || f.IsRelation() {
			continue
		}
		switch f.Info.Type {
		case field.TypeUUID:
			if u, err := uuid.Parse(o.id); err == nil {
				o.values[f.Number] = u
			}
		case field.TypeString:
			o.values[f.Number] = o.id
		}
	}
}

// applyDefaults sets the default values of unset fields on insert and the
// update defaults on update.
func (s *Session) applyDefaults(o *Object, insert bool) {
	for _, f := range o.t.Fields {
		if f.IsRelation() {
			continue
		}
		switch {
		case insert && f.Default != nil && o.values[f.Number] == nil:
			o.values[f.Number] = field.DefaultValue(f.Default)
		case !insert && f.UpdateDefault != nil:
			o.values[f.Number] = field.DefaultValue(f.UpdateDefault)
		}
	}
}
