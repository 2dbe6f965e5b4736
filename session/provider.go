package session

import (
	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document/docgraph"
	"github.com/syssam/docmap/graph"
)

// operation collects the embedded objects reached by one store.
type operation struct {
	embedded []*Object
}

// provider exposes the fields of an object to the engines.
type provider struct {
	obj    *Object
	owners []any
	field  *graph.Field
	role   docgraph.Role
	op     *operation
}

var _ docgraph.Provider = (*provider)(nil)

func (p *provider) Type() *graph.Type { return p.obj.t }

func (p *provider) Object() any { return p.obj }

func (p *provider) Owners() []any { return p.owners }

// Role returns the position of the object in its owner.
func (p *provider) Role() docgraph.Role { return p.role }

func (p *provider) check(n int) (*graph.Field, error) {
	return p.obj.t.Field(n)
}

func (p *provider) Field(n int) (any, error) {
	if _, err := p.check(n); err != nil {
		return nil, err
	}
	return p.obj.values[n], nil
}

func (p *provider) ReplaceField(n int, v any) error {
	if _, err := p.check(n); err != nil {
		return err
	}
	p.obj.values[n] = v
	return nil
}

func (p *provider) ProvideFields(ns []int, c docgraph.FieldConsumer) error {
	for _, n := range ns {
		f, err := p.check(n)
		if err != nil {
			return err
		}
		v := p.obj.values[n]
		if f.IsRelation() {
			err = c.StoreObject(n, v)
		} else {
			err = c.StoreScalar(n, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *provider) ReplaceFields(ns []int, s docgraph.FieldSupplier) error {
	for _, n := range ns {
		f, err := p.check(n)
		if err != nil {
			return err
		}
		var v any
		if f.IsRelation() {
			v, err = s.FetchObject(n)
		} else {
			v, err = s.FetchScalar(n)
		}
		if err != nil {
			return err
		}
		p.obj.values[n] = v
	}
	return nil
}

// embed returns the provider of o stored inside owner through f.
func embed(o *Object, owner docgraph.Provider, f *graph.Field, role docgraph.Role) *provider {
	ep := &provider{
		obj:    o,
		owners: append([]any{owner.Object()}, owner.Owners()...),
		field:  f,
		role:   role,
	}
	if op, ok := owner.(*provider); ok {
		ep.op = op.op
	}
	return ep
}

func asObject(v any) (*Object, error) {
	o, ok := v.(*Object)
	if !ok || o == nil {
		return nil, docmap.NewConfigurationError("", "", "value of type %T is not a session object", v)
	}
	return o, nil
}
