// Package schema provides the building blocks for defining docmap schemas.
//
// Subpackages:
//
//   - [field]: scalar fields
//   - [edge]: relations, embedded or referenced by identity
//   - [mixin]: reusable schema components
//   - [load]: loaded schema representation and YAML schema files
//
// # Quick Start
//
//	type Order struct{ docmap.Schema }
//
//	func (Order) Mixin() []docmap.Mixin {
//	    return []docmap.Mixin{
//	        mixin.ID{},   // identity field mapped onto the document key
//	        mixin.Time{}, // created_at and updated_at timestamps
//	    }
//	}
//
//	func (Order) Fields() []docmap.Field {
//	    return []docmap.Field{
//	        field.String("number"),
//	        field.Float64("total"),
//	    }
//	}
//
//	func (Order) Edges() []docmap.Edge {
//	    return []docmap.Edge{
//	        edge.To("customer", Customer.Type).Unique().Embedded().Flat(),
//	        edge.To("shape", Shape.Type).Unique().Embedded(),
//	        edge.To("lines", Line.Type).Embedded(),
//	        edge.To("owner", User.Type).Unique(),
//	    }
//	}
//
// # Annotations
//
// Annotations attach storage hints that are merged by name when a schema
// is loaded, so mixins can contribute them too:
//
//	edge.To("customer", Customer.Type).Unique().Embedded().Flat().
//	    Annotations(edge.Annotation{
//	        Overrides: map[string]string{"address.city": "city"},
//	    })
package schema

// Annotation is used to attach arbitrary metadata to the schema objects.
// Annotations with the same name are merged when they implement Merger.
type Annotation interface {
	// Name defines the name of the annotation to be retrieved by the loader.
	Name() string
}

// Merger wraps the single Merge function allows custom annotation to provide
// an implementation for merging 2 or more annotations from the same type.
type Merger interface {
	Merge(Annotation) Annotation
}

// CommentAnnotation is a builtin schema annotation for
// configuring the schema's Godoc comment.
type CommentAnnotation struct {
	Text string // Comment text.
}

// Name implements the Annotation interface.
func (*CommentAnnotation) Name() string {
	return "Comment"
}

// Comment is a builtin schema annotation for
// configuring the schema's Godoc comment.
func Comment(text string) *CommentAnnotation {
	return &CommentAnnotation{Text: text}
}
