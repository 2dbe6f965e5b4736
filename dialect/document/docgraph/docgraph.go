// Package docgraph maps object graphs onto document nodes and back.
//
// The store engine (StoreFieldManager) walks the fields of an object and
// writes them into a document. Related objects are either referenced by
// identity or embedded, flat (their columns hoisted into the enclosing
// document under prefixed names) or nested (a sub-document under a single
// column). The fetch engine (FetchFieldManager) mirrors it.
//
// Both engines are driven by the lifecycle through the Provider interface:
// the provider enumerates the fields of an object and calls back into the
// engine once per field.
//
//	cfg, err := docgraph.NewConfig(g, sess, docgraph.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	doc := document.New()
//	if err := docgraph.Store(ctx, cfg, p, doc, true); err != nil {
//		return err
//	}
package docgraph

import (
	"context"

	"go.uber.org/zap"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/graph"
)

// DefaultNullSentinel is stored in place of nil elements of reference
// sequences, keeping the element order and count.
const DefaultNullSentinel = "NULL"

type (
	// Metadata resolves types and naming settings. It is implemented by
	// *graph.Graph.
	Metadata interface {
		Type(name string) (*graph.Type, error)
		// Subtype returns the type below declared with the given
		// discriminator value.
		Subtype(declared *graph.Type, value string) (*graph.Type, error)
		DefaultDiscriminator() string
		ColumnSeparator() string
	}

	// Lifecycle creates, identifies and persists the objects handled by
	// the engines.
	Lifecycle interface {
		// TypeOf returns the runtime type of a managed value.
		TypeOf(v any) (*graph.Type, error)
		// Embedded returns the provider of v stored inside owner through f.
		Embedded(v any, owner Provider, f *graph.Field, role Role) (Provider, error)
		// NewEmbedded creates an instance of t stored inside owner through f.
		NewEmbedded(t *graph.Type, owner Provider, f *graph.Field) (Provider, error)
		// PersistIfNeeded persists v unless it is already persistent.
		PersistIfNeeded(ctx context.Context, v any) error
		// Identity returns the external identity of a persisted value.
		Identity(v any) (string, error)
		// Resolve returns the object of type t (or a subtype) with the given identity.
		Resolve(ctx context.Context, t *graph.Type, id string) (any, error)
		IsPersistable(v any) bool
		IsPersistent(v any) bool
		IsDetached(v any) bool
	}

	// Provider gives the engines access to the fields of one object.
	Provider interface {
		Type() *graph.Type
		Object() any
		// Owners returns the chain of enclosing objects, immediate owner
		// first. It is empty for objects that are not embedded.
		Owners() []any
		// Field returns the in-memory value of field n.
		Field(n int) (any, error)
		// ReplaceField sets the in-memory value of field n.
		ReplaceField(n int, v any) error
		// ProvideFields hands the values of fields ns to c, in order.
		ProvideFields(ns []int, c FieldConsumer) error
		// ReplaceFields sets fields ns from the values returned by s, in order.
		ReplaceFields(ns []int, s FieldSupplier) error
	}

	// FieldConsumer receives field values from a Provider.
	FieldConsumer interface {
		StoreScalar(n int, v any) error
		StoreObject(n int, v any) error
	}

	// FieldSupplier supplies field values to a Provider.
	FieldSupplier interface {
		FetchScalar(n int) (any, error)
		FetchObject(n int) (any, error)
	}
)

// Role is the position an embedded object holds in its owner.
type Role int

// Embedding roles.
const (
	RoleField Role = iota
	RoleCollectionElement
	RoleArrayElement
	RoleMapKey
	RoleMapValue
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleCollectionElement:
		return "collection element"
	case RoleArrayElement:
		return "array element"
	case RoleMapKey:
		return "map key"
	case RoleMapValue:
		return "map value"
	default:
		return "field"
	}
}

// MapEntry is one entry of a map relation. Map relations are held as
// []MapEntry so that object keys keep their order.
type MapEntry struct {
	Key   any
	Value any
}

// Columns of the sub-documents holding map entries.
const (
	EntryKey   = "key"
	EntryValue = "value"
)

// Config holds the collaborators shared by the engines. A Config is
// read-only once built and safe for concurrent use.
type Config struct {
	Metadata     Metadata
	Lifecycle    Lifecycle
	Resolver     *Resolver
	Logger       *zap.Logger
	NullSentinel string
}

// Option configures the engines.
type Option func(*Config) error

// WithLogger sets the logger of the engines.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return docmap.NewConfigurationError("Config", "Logger", "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithNullSentinel sets the value stored for nil elements of reference sequences.
func WithNullSentinel(s string) Option {
	return func(c *Config) error {
		if s == "" {
			return docmap.NewConfigurationError("Config", "NullSentinel", "sentinel cannot be empty")
		}
		c.NullSentinel = s
		return nil
	}
}

// NewConfig returns the engine configuration for the given collaborators.
func NewConfig(meta Metadata, lc Lifecycle, opts ...Option) (*Config, error) {
	if meta == nil || lc == nil {
		return nil, docmap.NewConfigurationError("Config", "", "metadata and lifecycle are required")
	}
	c := &Config{
		Metadata:     meta,
		Lifecycle:    lc,
		Resolver:     NewResolver(meta),
		Logger:       zap.NewNop(),
		NullSentinel: DefaultNullSentinel,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Store writes the fields of the object behind p into doc. insert selects
// the cascade policy of the insert operation, otherwise of the update.
func Store(ctx context.Context, cfg *Config, p Provider, doc *document.Node, insert bool) error {
	return p.ProvideFields(p.Type().FieldNumbers(), NewStoreFieldManager(ctx, cfg, p, doc, insert))
}

// Fetch reads the fields of the object behind p from doc.
func Fetch(ctx context.Context, cfg *Config, p Provider, doc *document.Node) error {
	return p.ReplaceFields(p.Type().FieldNumbers(), NewFetchFieldManager(ctx, cfg, p, doc))
}
