// Package mixin provides reusable schema parts.
//
// Built-in mixins:
//
//   - ID: identity field mapped onto the document key
//   - Time: created_at and updated_at timestamps
//
// Custom mixins embed Schema and override what they need:
//
//	type Audited struct{ mixin.Schema }
//
//	func (Audited) Fields() []docmap.Field {
//	    return []docmap.Field{
//	        field.String("created_by").Optional(),
//	    }
//	}
//
//	func (Order) Mixin() []docmap.Mixin {
//	    return []docmap.Mixin{mixin.ID{}, mixin.Time{}, Audited{}}
//	}
package mixin
