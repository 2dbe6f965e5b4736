package document

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opencontainers/go-digest"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/syssam/docmap/dialect"
)

// Memory is a Database holding BSON-encoded documents in memory. It is
// safe for concurrent use.
type Memory struct {
	mu          sync.Mutex
	logger      *zap.Logger
	collections map[string]*MemoryCollection
}

// MemoryOption configures a Memory database.
type MemoryOption func(*Memory)

// WithMemoryLogger sets the logger of the database. A nil logger is ignored.
func WithMemoryLogger(l *zap.Logger) MemoryOption {
	return func(m *Memory) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMemory returns an empty in-memory database.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		logger:      zap.NewNop(),
		collections: make(map[string]*MemoryCollection),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("dialect", dialect.Document))
	return m
}

// Collection returns the named collection, creating it on first use.
func (m *Memory) Collection(name string) Collection {
	return m.MemoryCollection(name)
}

// MemoryCollection is like Collection but returns the concrete type.
func (m *Memory) MemoryCollection(name string) *MemoryCollection {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = &MemoryCollection{
			name:   name,
			logger: m.logger.With(zap.String("collection", name)),
			docs:   make(map[string]stored),
		}
		m.collections[name] = c
	}
	return c
}

// Names returns the names of the collections in sorted order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type stored struct {
	data   []byte
	digest digest.Digest
}

// MemoryCollection is a collection of the Memory database.
type MemoryCollection struct {
	name   string
	logger *zap.Logger
	mu     sync.RWMutex
	docs   map[string]stored
}

// Name implements Collection.
func (c *MemoryCollection) Name() string { return c.name }

// Put implements Collection. Writing a document identical to the stored
// one leaves the collection untouched.
func (c *MemoryCollection) Put(ctx context.Context, id string, doc *Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := bson.Marshal(doc.D())
	if err != nil {
		return fmt.Errorf("document: encoding %s/%s: %w", c.name, id, err)
	}
	dg := digest.FromBytes(data)
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.docs[id]; ok && prev.digest == dg {
		c.logger.Debug("document unchanged", zap.String("id", id), zap.Stringer("digest", dg))
		return nil
	}
	c.docs[id] = stored{data: data, digest: dg}
	c.logger.Debug("document stored", zap.String("id", id), zap.Stringer("digest", dg), zap.Int("size", len(data)))
	return nil
}

// Get implements Collection.
func (c *MemoryCollection) Get(ctx context.Context, id string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	s, ok := c.docs[id]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoDocument, c.name, id)
	}
	return Decode(s.data)
}

// GetMany implements Collection.
func (c *MemoryCollection) GetMany(ctx context.Context, ids []string) ([]*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	docs := make([]*Node, 0, len(want))
	for id, s := range c.docs {
		if _, ok := want[id]; !ok {
			continue
		}
		doc, err := Decode(s.data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete implements Collection.
func (c *MemoryCollection) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.docs, id)
	c.mu.Unlock()
	return nil
}

// Digest returns the content digest of the document stored under id.
func (c *MemoryCollection) Digest(id string) (digest.Digest, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.docs[id]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrNoDocument, c.name, id)
	}
	return s.digest, nil
}

// Len returns the number of stored documents.
func (c *MemoryCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

var _ Database = (*Memory)(nil)
