// Package graph compiles loaded schemas into the metadata consumed by the
// store and fetch engines.
//
// # Field Numbers
//
// Every field of a type has an absolute number. Fields inherited from the
// supertype come first, in the supertype's order, followed by the scalar
// fields and then the relations declared by the type itself. The engines
// address fields by number, and a subtype shares the *Field values of its
// supertype:
//
//	Shape:  0 id, 1 name
//	Circle: 0 id, 1 name, 2 radius
//
// # Relations
//
// A relation is single-valued (RelOne) or multi-valued (RelMany) in a
// collection, an array or a map. Relations whose target is declared
// embeddable are embedded even when the edge does not say so.
//
// # Discriminators
//
// A type that takes part in a hierarchy carries a discriminator. Strategy
// and column come from the root of the hierarchy; the column defaults to
// "__type". The value is the configured one, the type name for the
// value-map strategy, or the package-qualified name for the class-name
// strategy.
package graph
