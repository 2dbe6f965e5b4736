// Package document provides the document node written by the store engine
// and read by the fetch engine, and the databases holding such documents.
package document

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDKey is the column holding the identity of a stored document.
const IDKey = "_id"

// Node is an ordered, string-keyed document. Values are scalars, nested
// *Node values, or []any sequences of either.
//
// A Node is not safe for concurrent mutation.
type Node struct {
	elems bson.D
}

// New returns an empty node.
func New() *Node {
	return &Node{}
}

// Len returns the number of keys.
func (n *Node) Len() int {
	return len(n.elems)
}

func (n *Node) index(key string) int {
	for i := range n.elems {
		if n.elems[i].Key == key {
			return i
		}
	}
	return -1
}

// Set sets key to v, keeping the position of an existing key.
func (n *Node) Set(key string, v any) {
	if i := n.index(key); i >= 0 {
		n.elems[i].Value = v
		return
	}
	n.elems = append(n.elems, bson.E{Key: key, Value: v})
}

// Get returns the value of key and whether the key is present.
func (n *Node) Get(key string) (any, bool) {
	if i := n.index(key); i >= 0 {
		return n.elems[i].Value, true
	}
	return nil, false
}

// Has reports if key is present, even with a nil value.
func (n *Node) Has(key string) bool {
	return n.index(key) >= 0
}

// Remove deletes key and reports if it was present.
func (n *Node) Remove(key string) bool {
	i := n.index(key)
	if i < 0 {
		return false
	}
	n.elems = append(n.elems[:i], n.elems[i+1:]...)
	return true
}

// Keys returns the keys in insertion order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.elems))
	for i := range n.elems {
		keys[i] = n.elems[i].Key
	}
	return keys
}

// Node returns the sub-document stored under key.
func (n *Node) Node(key string) (*Node, bool) {
	v, ok := n.Get(key)
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Node)
	return sub, ok
}

// D converts the node to a bson.D, recursively.
func (n *Node) D() bson.D {
	d := make(bson.D, len(n.elems))
	for i, e := range n.elems {
		d[i] = bson.E{Key: e.Key, Value: toBSON(e.Value)}
	}
	return d
}

func toBSON(v any) any {
	switch v := v.(type) {
	case *Node:
		if v == nil {
			return nil
		}
		return v.D()
	case []any:
		a := make(bson.A, len(v))
		for i := range v {
			a[i] = toBSON(v[i])
		}
		return a
	default:
		return v
	}
}

// FromD converts a decoded bson.D into a node, recursively. BSON binaries
// become []byte and datetimes become UTC time.Time values.
func FromD(d bson.D) *Node {
	n := &Node{elems: make(bson.D, len(d))}
	for i, e := range d {
		n.elems[i] = bson.E{Key: e.Key, Value: fromBSON(e.Value)}
	}
	return n
}

func fromBSON(v any) any {
	switch v := v.(type) {
	case bson.D:
		return FromD(v)
	case bson.M:
		d := make(bson.D, 0, len(v))
		for k, x := range v {
			d = append(d, bson.E{Key: k, Value: x})
		}
		return FromD(d)
	case bson.A:
		s := make([]any, len(v))
		for i := range v {
			s[i] = fromBSON(v[i])
		}
		return s
	case primitive.Binary:
		return v.Data
	case primitive.DateTime:
		return v.Time().UTC()
	case time.Time:
		return v.UTC()
	default:
		return v
	}
}

// MarshalBSON implements bson.Marshaler.
func (n *Node) MarshalBSON() ([]byte, error) {
	return bson.Marshal(n.D())
}

// UnmarshalBSON implements bson.Unmarshaler.
func (n *Node) UnmarshalBSON(data []byte) error {
	var d bson.D
	if err := bson.Unmarshal(data, &d); err != nil {
		return err
	}
	*n = *FromD(d)
	return nil
}

// Decode decodes a BSON document.
func Decode(data []byte) (*Node, error) {
	n := New()
	if err := n.UnmarshalBSON(data); err != nil {
		return nil, fmt.Errorf("document: decoding: %w", err)
	}
	return n, nil
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	return FromD(n.D())
}

// ExtJSON returns the MongoDB extended JSON form of the node.
func (n *Node) ExtJSON(canonical bool) ([]byte, error) {
	return bson.MarshalExtJSON(n.D(), canonical, false)
}

// String implements fmt.Stringer using relaxed extended JSON.
func (n *Node) String() string {
	b, err := n.ExtJSON(false)
	if err != nil {
		return fmt.Sprintf("document: %v", err)
	}
	return string(b)
}
