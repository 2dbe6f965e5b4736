// Package field provides fluent builders for defining the scalar fields of a type.
//
// Field names are the in-memory names; the stored column name defaults to the
// field name and can be overridden with StorageKey:
//
//	field.String("name")                 // column: name
//	field.String("name").StorageKey("n") // column: n
//
// # Field Types
//
//	field.String("name")
//	field.Int("count")
//	field.Int64("big_number")
//	field.Float64("price")
//	field.Bool("active")
//	field.Time("created_at")
//	field.UUID("token")
//	field.Bytes("data")
//	field.Strings("aliases")
//	field.Ints("scores")
//	field.JSON("metadata")
//	field.Other("amount", "decimal.Decimal") // requires a Converter
//
// # Storage Options
//
//	field.String("id").Identity()        // value mapped onto the document key
//	field.String("scratch").Transient()  // never stored
//	field.JSON("blob").Serialized()      // stored as a single msgpack binary
//	field.Other("money", "Money").
//	    Converter(moneyConverter).
//	    Columns("amount", "currency")    // one value spread over two columns
//
// # Defaults
//
//	field.Time("created_at").Default(time.Now)
//	field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now)
package field
