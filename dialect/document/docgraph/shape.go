package docgraph

import "github.com/syssam/docmap/graph"

// Shape is the storage shape of a field. Both engines dispatch on it.
type Shape int

// Field shapes.
const (
	// ShapeScalar is a non-relation field.
	ShapeScalar Shape = iota
	// ShapeReference is a single-valued relation stored as an identity.
	ShapeReference
	// ShapeReferences is a multi-valued relation stored as identities.
	ShapeReferences
	// ShapeEmbeddedFlat is a single-valued relation hoisted into the
	// enclosing document.
	ShapeEmbeddedFlat
	// ShapeEmbeddedNested is a single-valued relation stored as a sub-document.
	ShapeEmbeddedNested
	// ShapeEmbeddedElements is a multi-valued relation whose elements are
	// stored as sub-documents.
	ShapeEmbeddedElements
)

var shapeNames = [...]string{
	ShapeScalar:           "scalar",
	ShapeReference:        "reference",
	ShapeReferences:       "references",
	ShapeEmbeddedFlat:     "embedded flat",
	ShapeEmbeddedNested:   "embedded nested",
	ShapeEmbeddedElements: "embedded elements",
}

// String returns the shape name.
func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return "invalid"
	}
	return shapeNames[s]
}

// ShapeOf returns the storage shape of f.
func ShapeOf(f *graph.Field) Shape {
	switch {
	case f.Rel == graph.RelNone:
		return ShapeScalar
	case f.Rel == graph.RelOne && f.Flat():
		return ShapeEmbeddedFlat
	case f.Rel == graph.RelOne && f.Embedded:
		return ShapeEmbeddedNested
	case f.Rel == graph.RelOne:
		return ShapeReference
	case f.Embedded:
		return ShapeEmbeddedElements
	default:
		return ShapeReferences
	}
}

// isOwnerLink reports if f, a field of an object embedded through hop, is
// the back-reference to the enclosing object.
func isOwnerLink(hop, f *graph.Field) bool {
	if hop == nil || f.Rel != graph.RelOne {
		return false
	}
	if hop.OwnerMember != "" {
		return hop.OwnerMember == f.Name
	}
	return (hop.MappedBy != "" && hop.MappedBy == f.Name) ||
		(f.MappedBy != "" && f.MappedBy == hop.Name)
}
