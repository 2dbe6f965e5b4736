package docgraph

import (
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/edge"
)

// Column describes where the engines store one field reached from a root
// type, or the discriminator of an embedded value.
type Column struct {
	// Node is the dotted path of the sub-document holding the columns,
	// empty for the top-level document. Elements of sequences are marked
	// with a "[]" suffix.
	Node string
	// Field is the dotted field path from the root type.
	Field         string
	Shape         Shape
	Names         []string
	Discriminator bool
}

// Layout returns the columns written by the store engine for objects of
// type t, subtypes of embedded values included. Identity fields and the
// discriminator of t itself are left to the lifecycle.
func Layout(r *Resolver, t *graph.Type) ([]Column, error) {
	w := &layoutWalker{r: r, active: make(map[*graph.Field]bool)}
	if err := w.walk(nil, nil, "", "", []*graph.Type{t}); err != nil {
		return nil, err
	}
	return w.cols, nil
}

type layoutWalker struct {
	r      *Resolver
	cols   []Column
	active map[*graph.Field]bool
}

func (w *layoutWalker) walk(chain Path, hop *graph.Field, node, prefix string, types []*graph.Type) error {
	visited := make(map[*graph.Field]bool)
	for _, t := range types {
		for _, f := range t.Fields {
			if visited[f] || !f.Stored() || isOwnerLink(hop, f) {
				continue
			}
			visited[f] = true
			if err := w.field(chain, node, dotted(prefix, f.Name), f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *layoutWalker) field(chain Path, node, name string, f *graph.Field) error {
	m, err := w.r.Resolve(chain, f)
	if err != nil {
		return err
	}
	shape := ShapeOf(f)
	if shape >= ShapeEmbeddedFlat {
		if w.active[f] {
			// Recursive embedding: the nested value repeats the layout above.
			w.add(Column{Node: node, Field: name, Shape: shape, Names: m.Names})
			return nil
		}
		w.active[f] = true
		defer delete(w.active, f)
	}
	switch shape {
	case ShapeEmbeddedFlat:
		w.discriminator(chain, node, name, f)
		return w.walk(chain.Append(f), f, node, name, f.Target.Descendants())
	case ShapeEmbeddedNested:
		w.add(Column{Node: node, Field: name, Shape: shape, Names: m.Names})
		sub := dotted(node, m.Name())
		w.discriminator(chain, sub, name, f)
		return w.walk(chain.Append(f), f, sub, name, f.Target.Descendants())
	case ShapeEmbeddedElements:
		w.add(Column{Node: node, Field: name, Shape: shape, Names: m.Names})
		if f.Container == edge.ContainerMap || f.Target == nil {
			return nil
		}
		// Elements are written by root-level engines.
		sub := dotted(node, m.Name()) + "[]"
		if f.Target.Polymorphic() {
			w.discriminator(nil, sub, name, f)
		}
		return w.walk(nil, f, sub, name+"[]", f.Target.Descendants())
	default:
		w.add(Column{Node: node, Field: name, Shape: shape, Names: m.Names})
		return nil
	}
}

func (w *layoutWalker) discriminator(chain Path, node, name string, f *graph.Field) {
	if !f.Target.HasDiscriminator() {
		return
	}
	w.add(Column{
		Node:          node,
		Field:         name,
		Shape:         ShapeOf(f),
		Names:         []string{w.r.DiscriminatorColumn(chain, f, f.Target)},
		Discriminator: true,
	})
}

func (w *layoutWalker) add(c Column) { w.cols = append(w.cols, c) }

func dotted(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
