package document

import (
	"context"
	"errors"
)

// ErrNoDocument is returned when no document is stored under an identity.
var ErrNoDocument = errors.New("document: no document")

type (
	// Database gives access to named collections.
	Database interface {
		Collection(name string) Collection
	}

	// Collection stores documents keyed by identity.
	Collection interface {
		// Name returns the collection name.
		Name() string
		// Put inserts or replaces the document stored under id.
		Put(ctx context.Context, id string, doc *Node) error
		// Get returns the document stored under id, or an error wrapping
		// ErrNoDocument.
		Get(ctx context.Context, id string) (*Node, error)
		// GetMany returns the documents stored under ids, in no particular
		// order. Missing identities are skipped.
		GetMany(ctx context.Context, ids []string) ([]*Node, error)
		// Delete removes the document stored under id. Deleting a missing
		// document is not an error.
		Delete(ctx context.Context, id string) error
	}
)

// ID returns the identity stored in the IDKey column of doc.
func ID(doc *Node) (string, bool) {
	v, ok := doc.Get(IDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// IsNoDocument reports if err wraps ErrNoDocument.
func IsNoDocument(err error) bool {
	return errors.Is(err, ErrNoDocument)
}
