// Package docmap maps persistent object graphs onto schemaless documents.
//
// Entity types are declared in Go by embedding [Schema] and returning field
// and edge builders, or loaded from YAML through the schema/load package:
//
//	type Order struct{ docmap.Schema }
//
//	func (Order) Fields() []docmap.Field {
//	    return []docmap.Field{
//	        field.String("number"),
//	    }
//	}
//
//	func (Order) Edges() []docmap.Edge {
//	    return []docmap.Edge{
//	        edge.To("customer", Customer.Type).Unique().Embedded().Flat(),
//	        edge.To("lines", Line.Type).Embedded(),
//	    }
//	}
//
// The graph package compiles schemas into metadata, the dialect/document/docgraph
// package stores and fetches objects against that metadata, and the session
// package provides a ready-made lifecycle on top of a document database.
package docmap

import (
	"github.com/syssam/docmap/schema/edge"
	"github.com/syssam/docmap/schema/field"
)

// The Interface type describes the requirements for an exported type defined in the schema package.
type Interface interface {
	// Type is a dummy method, that is used in edge declaration.
	//
	// The Type method should be used as follows:
	//
	//	type S struct { docmap.Schema }
	//
	//	type T struct { docmap.Schema }
	//
	//	func (T) Edges() []docmap.Edge {
	//		return []docmap.Edge{
	//			edge.To("S", S.Type),
	//		}
	//	}
	//
	Type()
	// Fields returns the scalar fields of the type.
	Fields() []Field
	// Edges returns the relations of the type, embedded or referenced.
	Edges() []Edge
	// Mixin returns an optional list of Mixin to extends the schema.
	Mixin() []Mixin
	// Config returns an optional config for the schema.
	Config() Config
}

type (
	// Field is the interface for entity fields. Use the builders in the
	// schema/field package to create one.
	Field interface {
		Descriptor() *field.Descriptor
	}

	// Edge is the interface for relations between types. Use the builders
	// in the schema/edge package to create one.
	Edge interface {
		Descriptor() *edge.Descriptor
	}

	// Mixin describes a reusable set of fields and edges.
	Mixin interface {
		Fields() []Field
		Edges() []Edge
	}
)

// Config configures how a type is stored.
type Config struct {
	// Collection overrides the name of the collection that holds documents
	// of the type. Defaults to the snake_case plural of the type name.
	Collection string `yaml:"collection,omitempty"`
	// Extends names the supertype. Fields of the supertype come first in
	// the absolute field numbering of the subtype.
	Extends string `yaml:"extends,omitempty"`
	// Package qualifies the type name for the class-name discriminator strategy.
	Package string `yaml:"package,omitempty"`
	// Abstract types are never instantiated directly.
	Abstract bool `yaml:"abstract,omitempty"`
	// Embeddable types have no collection of their own and are only
	// stored inside the documents of their owners.
	Embeddable bool `yaml:"embeddable,omitempty"`
	// Discriminator configures the type tag written for polymorphic values.
	Discriminator Discriminator `yaml:"discriminator,omitempty"`
}

// Strategy selects how discriminator values are computed.
type Strategy string

// Discriminator strategies.
const (
	// DiscriminatorNone disables discriminators unless the type takes part
	// in a hierarchy, in which case DiscriminatorValueMap is used.
	DiscriminatorNone Strategy = ""
	// DiscriminatorClassName writes the package-qualified type name.
	DiscriminatorClassName Strategy = "class_name"
	// DiscriminatorValueMap writes the configured value, or the type name.
	DiscriminatorValueMap Strategy = "value_map"
)

// Discriminator holds the discriminator settings of a type.
// Strategy and Column are inherited from the root of the hierarchy.
type Discriminator struct {
	Strategy Strategy `yaml:"strategy,omitempty"`
	Column   string   `yaml:"column,omitempty"`
	Value    string   `yaml:"value,omitempty"`
}

// Schema is the default implementation for the schema Interface.
// It can be embedded in end-user schemas as follows:
//
//	type T struct {
//		docmap.Schema
//	}
type Schema struct {
	Interface
}

// Fields of the schema.
func (Schema) Fields() []Field { return nil }

// Edges of the schema.
func (Schema) Edges() []Edge { return nil }

// Mixin of the schema.
func (Schema) Mixin() []Mixin { return nil }

// Config of the schema.
func (Schema) Config() Config { return Config{} }

var _ Interface = (*Schema)(nil)
