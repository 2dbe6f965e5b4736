package mixin

import (
	"time"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/schema"
	"github.com/syssam/docmap/schema/field"
)

// Schema is the default implementation for the docmap.Mixin interface.
// It should be embedded in all custom mixin definitions.
//
// Example:
//
//	type MyMixin struct {
//	    mixin.Schema
//	}
//
//	func (MyMixin) Fields() []docmap.Field {
//	    return []docmap.Field{
//	        field.String("custom_field"),
//	    }
//	}
type Schema struct{}

// Fields returns the fields of the mixin.
func (Schema) Fields() []docmap.Field { return nil }

// Edges returns the edges of the mixin.
func (Schema) Edges() []docmap.Edge { return nil }

// schema mixin must implement `Mixin` interface.
var _ docmap.Mixin = (*Schema)(nil)

// ID adds an "id" field holding the identity of the object. The field is
// mapped onto the document key and filled by the session.
type ID struct{ Schema }

// Fields of the ID mixin.
func (ID) Fields() []docmap.Field {
	return []docmap.Field{
		field.String("id").Identity(),
	}
}

// Time adds created_at and updated_at timestamp fields to a schema.
// created_at is set on insert, updated_at on every persist.
type Time struct{ Schema }

// Fields returns the time tracking fields.
func (Time) Fields() []docmap.Field {
	return []docmap.Field{
		field.Time("created_at").
			Default(time.Now).
			Comment("Timestamp when the object was first persisted"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now).
			Comment("Timestamp when the object was last persisted"),
	}
}

// AnnotateEdges wraps a mixin and adds annotations to all its edges.
//
// Example:
//
//	mixin.AnnotateEdges(
//	    AddressMixin{},
//	    edge.Annotation{DiscriminatorColumn: "kind"},
//	)
func AnnotateEdges(m docmap.Mixin, annotations ...schema.Annotation) docmap.Mixin {
	return edgeAnnotator{Mixin: m, annotations: annotations}
}

type edgeAnnotator struct {
	docmap.Mixin
	annotations []schema.Annotation
}

func (a edgeAnnotator) Edges() []docmap.Edge {
	edges := a.Mixin.Edges()
	for i := range edges {
		desc := edges[i].Descriptor()
		desc.Annotations = append(desc.Annotations, a.annotations...)
	}
	return edges
}
