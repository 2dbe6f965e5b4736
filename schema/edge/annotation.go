package edge

import "github.com/syssam/docmap/schema"

// Annotation is a builtin schema annotation for
// configuring the columns of embedded relations.
type Annotation struct {
	// Overrides maps dotted member paths below the relation to column
	// names. For example:
	//
	//	edge.Annotation{
	//		Overrides: map[string]string{"address.city": "city"},
	//	}
	//
	Overrides map[string]string
	// DiscriminatorColumn overrides the column holding the type of the
	// embedded value.
	DiscriminatorColumn string
}

// Name describes the annotation name.
func (Annotation) Name() string {
	return "Embedding"
}

// Merge implements the schema.Merger interface.
func (a Annotation) Merge(other schema.Annotation) schema.Annotation {
	var ant Annotation
	switch other := other.(type) {
	case Annotation:
		ant = other
	case *Annotation:
		if other != nil {
			ant = *other
		}
	default:
		return a
	}
	if len(ant.Overrides) > 0 {
		merged := make(map[string]string, len(a.Overrides)+len(ant.Overrides))
		for k, v := range a.Overrides {
			merged[k] = v
		}
		for k, v := range ant.Overrides {
			merged[k] = v
		}
		a.Overrides = merged
	}
	if col := ant.DiscriminatorColumn; col != "" {
		a.DiscriminatorColumn = col
	}
	return a
}

var (
	_ schema.Annotation = (*Annotation)(nil)
	_ schema.Merger     = (*Annotation)(nil)
)
