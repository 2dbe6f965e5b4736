package session

import (
	"fmt"
	"strings"

	"github.com/syssam/docmap/graph"
)

// State is the lifecycle state of an object.
type State int

// Object states.
const (
	// StateTransient objects were never stored.
	StateTransient State = iota
	// StatePersistent objects are stored and tracked by the session.
	StatePersistent
	// StateDetached objects are stored but no longer tracked.
	StateDetached
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePersistent:
		return "persistent"
	case StateDetached:
		return "detached"
	default:
		return "transient"
	}
}

// Object is an instance of a graph type. Field values are held by field
// number: scalars as their Go value, single-valued relations as *Object,
// collections and arrays as []any and maps as []docgraph.MapEntry.
type Object struct {
	t      *graph.Type
	values []any
	state  State
	id     string
}

func newObject(t *graph.Type) *Object {
	return &Object{t: t, values: make([]any, len(t.Fields))}
}

// Type returns the type of the object.
func (o *Object) Type() *graph.Type { return o.t }

// ID returns the identity of the object, empty until it is first persisted.
func (o *Object) ID() string { return o.id }

// Get returns the value of the named field, or nil if there is no such field.
func (o *Object) Get(name string) any {
	f, ok := o.t.FieldByName(name)
	if !ok {
		return nil
	}
	return o.values[f.Number]
}

// Object returns the value of the named single-valued relation.
func (o *Object) Object(name string) *Object {
	v, _ := o.Get(name).(*Object)
	return v
}

// Set sets the value of the named field and returns the object. It panics
// if the type of the object has no such field.
func (o *Object) Set(name string, v any) *Object {
	f, ok := o.t.FieldByName(name)
	if !ok {
		panic(fmt.Sprintf("session: %s has no field %q", o.t.Name, name))
	}
	o.values[f.Number] = v
	return o
}

// Field returns the value of field n.
func (o *Object) Field(n int) any {
	if n < 0 || n >= len(o.values) {
		return nil
	}
	return o.values[n]
}

// String implements fmt.Stringer.
func (o *Object) String() string {
	var b strings.Builder
	b.WriteString(o.t.Name)
	b.WriteByte('(')
	if o.id != "" {
		b.WriteString("id=")
		b.WriteString(o.id)
	} else {
		b.WriteString(o.state.String())
	}
	b.WriteByte(')')
	return b.String()
}
