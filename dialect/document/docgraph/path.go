package docgraph

import (
	"strings"

	"github.com/syssam/docmap/graph"
)

// Path is a chain of fields leading from a root object through embedded
// objects to a field. Paths are values: Append never modifies its receiver.
type Path []*graph.Field

// Append returns a new path made of p followed by f.
func (p Path) Append(f *graph.Field) Path {
	np := make(Path, len(p), len(p)+1)
	copy(np, p)
	return append(np, f)
}

// Last returns the last field of the path, or nil for an empty path.
func (p Path) Last() *graph.Field {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// Equal reports if both paths hold the same fields.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Key returns a string identifying the path.
func (p Path) Key() string {
	var b strings.Builder
	for i, f := range p {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(f.String())
	}
	return b.String()
}

// String implements fmt.Stringer.
func (p Path) String() string {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.Name
	}
	return strings.Join(names, ".")
}
