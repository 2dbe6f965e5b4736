// Package edge provides fluent builders for defining relations between types.
//
// A relation is either stored as the identity of the related object, or the
// related object is embedded into the owner's document.
//
// # Cardinality
//
//	edge.To("owner", User.Type).Unique()          // single-valued reference
//	edge.To("tags", Tag.Type)                     // collection of references
//	edge.To("points", Point.Type).Array()          // array of references
//	edge.Map("stock", Warehouse.Type)              // string key -> reference
//	edge.Map("rates", nil).KeyType(Currency.Type). // embedded key -> scalar value
//	    Value(field.TypeFloat64)
//
// # Embedding
//
// Embedded relations are written into the owner's document. Nested mode,
// the default, stores the embedded object as a sub-document; flat mode
// prefixes its columns into the owner's document:
//
//	edge.To("shape", Shape.Type).Unique().Embedded()            // {shape: {radius: 5}}
//	edge.To("customer", Customer.Type).Unique().Embedded().Flat() // {customer_name: ".."}
//	edge.To("lines", Line.Type).Embedded()                       // {lines: [{..}, {..}]}
//
// An embedded type may point back at its owner. The back-reference is never
// stored and is restored from the owner chain when reading:
//
//	edge.To("address", Address.Type).Unique().Embedded().OwnerField("customer")
//
// # Cascading
//
// Relations cascade persist and update by default. A relation that does not
// cascade refuses to store objects that are not already persistent:
//
//	edge.To("owner", User.Type).Unique().NoCascade(edge.CascadePersist)
//
// # Storage Key Customization
//
//	edge.To("customer", Customer.Type).Unique().Embedded().Flat().
//	    StorageKey("cust").
//	    Override("address.city", "city").
//	    DiscriminatorColumn("cust_kind")
package edge
