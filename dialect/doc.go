// Package dialect groups the storage dialects of docmap.
//
// # Document Dialect
//
// The document dialect stores objects as BSON documents:
//
//   - dialect/document: the ordered document node, the Database and
//     Collection interfaces, an in-memory database and a statistics wrapper
//   - dialect/document/mongodb: Database backed by the MongoDB Go driver
//   - dialect/document/docgraph: the store and fetch engines mapping object
//     graphs onto document nodes
//
// # Database Interface
//
//	type Database interface {
//	    Collection(name string) Collection
//	}
//
//	type Collection interface {
//	    Name() string
//	    Put(ctx context.Context, id string, doc *Node) error
//	    Get(ctx context.Context, id string) (*Node, error)
//	    GetMany(ctx context.Context, ids []string) ([]*Node, error)
//	    Delete(ctx context.Context, id string) error
//	}
package dialect

// Dialect names.
const (
	Document = "document"
	MongoDB  = "mongodb"
)
