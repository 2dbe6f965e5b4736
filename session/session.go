// Package session tracks objects of a graph and stores them in a document
// database through the docgraph engines.
//
//	g, err := graph.Load(schemas)
//	if err != nil {
//		return err
//	}
//	sess, err := session.Open(g, document.NewMemory(), session.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	order := sess.MustNew("Order").Set("number", "A-1")
//	if err := sess.Persist(ctx, order); err != nil {
//		return err
//	}
package session

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/contrib/dataloader"
	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/dialect/document/docgraph"
	"github.com/syssam/docmap/graph"
)

// Session is the lifecycle of the objects of one graph. It keeps an
// identity map of the objects it stored or loaded, and is safe for
// concurrent use as long as a single object is not mutated concurrently.
type Session struct {
	graph     *graph.Graph
	db        document.Database
	cfg       *docgraph.Config
	logger    *zap.Logger
	cache     docmap.Cache
	cacheTTL  time.Duration
	workers   int
	batchSize int
	engine    []docgraph.Option
	newID     func() string

	mu         sync.Mutex
	objects    map[docmap.CacheKey]*Object
	persisting map[*Object]bool
}

var _ docgraph.Lifecycle = (*Session)(nil)

// Option configures a Session.
type Option func(*Session) error

// WithLogger sets the logger of the session and its engines.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) error {
		if l == nil {
			return docmap.NewConfigurationError("Session", "Logger", "logger cannot be nil")
		}
		s.logger = l
		return nil
	}
}

// WithCache caches the encoded documents read and written by the session.
// A zero ttl keeps entries until they are deleted.
func WithCache(c docmap.Cache, ttl time.Duration) Option {
	return func(s *Session) error {
		s.cache = c
		s.cacheTTL = ttl
		return nil
	}
}

// WithConcurrency sets the number of objects PersistAll stores at once.
func WithConcurrency(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return docmap.NewConfigurationError("Session", "Concurrency", "concurrency must be positive, got %d", n)
		}
		s.workers = n
		return nil
	}
}

// WithBatchSize sets the number of identities FindAll reads per request.
func WithBatchSize(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return docmap.NewConfigurationError("Session", "BatchSize", "batch size must be positive, got %d", n)
		}
		s.batchSize = n
		return nil
	}
}

// WithIDGenerator sets the function generating the identities of objects
// that have none. Identities are UUID strings by default.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) error {
		if fn == nil {
			return docmap.NewConfigurationError("Session", "IDGenerator", "generator cannot be nil")
		}
		s.newID = fn
		return nil
	}
}

// WithEngineOptions passes options to the store and fetch engines.
func WithEngineOptions(opts ...docgraph.Option) Option {
	return func(s *Session) error {
		s.engine = append(s.engine, opts...)
		return nil
	}
}

// Open returns a session storing the objects of g in db.
func Open(g *graph.Graph, db document.Database, opts ...Option) (*Session, error) {
	s := &Session{
		graph:      g,
		db:         db,
		logger:     zap.NewNop(),
		workers:    runtime.NumCPU(),
		batchSize:  100,
		newID:      uuid.NewString,
		objects:    make(map[docmap.CacheKey]*Object),
		persisting: make(map[*Object]bool),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	cfg, err := docgraph.NewConfig(g, s, append([]docgraph.Option{docgraph.WithLogger(s.logger)}, s.engine...)...)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	return s, nil
}

// Graph returns the graph of the session.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Config returns the engine configuration of the session.
func (s *Session) Config() *docgraph.Config { return s.cfg }

// New returns a transient object of the named type.
func (s *Session) New(typeName string) (*Object, error) {
	t, err := s.graph.Type(typeName)
	if err != nil {
		return nil, err
	}
	if t.Abstract {
		return nil, docmap.NewConfigurationError(t.Name, "", "abstract types cannot be instantiated")
	}
	return newObject(t), nil
}

// MustNew is like New but panics on error.
func (s *Session) MustNew(typeName string) *Object {
	o, err := s.New(typeName)
	if err != nil {
		panic(err)
	}
	return o
}

// State returns the lifecycle state of o.
func (s *Session) State(o *Object) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return o.state
}

func (s *Session) key(t *graph.Type, id string) docmap.CacheKey {
	return docmap.CacheKey{Collection: t.Root().Collection, ID: id}
}

func opName(insert bool) string {
	if insert {
		return "insert"
	}
	return "update"
}

// Persist stores o, inserting it when transient and updating it otherwise.
// Related objects are persisted as their relations cascade.
func (s *Session) Persist(ctx context.Context, o *Object) error {
	if o == nil {
		return docmap.NewConfigurationError("", "", "cannot persist a nil object")
	}
	s.mu.Lock()
	if s.persisting[o] {
		s.mu.Unlock()
		return nil
	}
	insert := o.state == StateTransient
	s.assignID(o)
	s.persisting[o] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.persisting, o)
		s.mu.Unlock()
	}()

	op := opName(insert)
	doc, run, err := s.encode(ctx, o, insert)
	if err != nil {
		return docmap.NewPersistError(o.t.Name, op, err)
	}
	key := s.key(o.t, o.id)
	if err := s.db.Collection(key.Collection).Put(ctx, o.id, doc); err != nil {
		return docmap.NewPersistError(o.t.Name, op, err)
	}
	s.mu.Lock()
	o.state = StatePersistent
	s.objects[key] = o
	for _, e := range run.embedded {
		e.state = StatePersistent
	}
	s.mu.Unlock()
	s.cacheDocument(ctx, key, doc)
	s.logger.Debug("object persisted",
		zap.String("type", o.t.Name),
		zap.String("id", o.id),
		zap.String("op", op),
	)
	return nil
}

// encode writes o into a new document.
func (s *Session) encode(ctx context.Context, o *Object, insert bool) (*document.Node, *operation, error) {
	s.applyDefaults(o, insert)
	doc := document.New()
	doc.Set(document.IDKey, o.id)
	if o.t.HasDiscriminator() {
		doc.Set(o.t.Discriminator.Column, o.t.DiscriminatorValue())
	}
	run := &operation{}
	if err := docgraph.Store(ctx, s.cfg, &provider{obj: o, op: run}, doc, insert); err != nil {
		return nil, nil, err
	}
	return doc, run, nil
}

// Document returns the document o is stored as, without writing it.
// Related objects are still persisted as their relations cascade.
func (s *Session) Document(ctx context.Context, o *Object) (*document.Node, error) {
	s.mu.Lock()
	insert := o.state == StateTransient
	s.assignID(o)
	s.mu.Unlock()
	doc, _, err := s.encode(ctx, o, insert)
	return doc, err
}

// PersistAll persists objs concurrently. Failures do not stop the other
// objects; they are returned together.
func (s *Session) PersistAll(ctx context.Context, objs ...*Object) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	var (
		mu   sync.Mutex
		errs []error
	)
	for _, o := range objs {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := s.Persist(ctx, o); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		errs = append(errs, err)
	}
	return docmap.NewAggregateError(errs...)
}

// Find returns the object of the named type (or a subtype) with the given
// identity.
func (s *Session) Find(ctx context.Context, typeName, id string) (*Object, error) {
	t, err := s.graph.Type(typeName)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, t, id)
}

func (s *Session) find(ctx context.Context, t *graph.Type, id string) (*Object, error) {
	key := s.key(t, id)
	s.mu.Lock()
	o, ok := s.objects[key]
	s.mu.Unlock()
	if ok {
		if !o.t.IsA(t) {
			return nil, docmap.NewNotFoundErrorWithID(t.Name, id)
		}
		return o, nil
	}
	doc, err := s.read(ctx, t, key)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, t, id, doc)
}

// FindAll returns the objects of the named type with the given identities,
// in the order of ids, reading the missing ones in one batch. Identities
// without object leave a nil entry and are reported in the returned error.
func (s *Session) FindAll(ctx context.Context, typeName string, ids []string) ([]*Object, error) {
	t, err := s.graph.Type(typeName)
	if err != nil {
		return nil, err
	}
	out := make([]*Object, len(ids))
	var (
		missing []string
		pos     = make(map[string][]int)
	)
	s.mu.Lock()
	for i, id := range ids {
		if o, ok := s.objects[s.key(t, id)]; ok && o.t.IsA(t) {
			out[i] = o
			continue
		}
		if _, ok := pos[id]; !ok {
			missing = append(missing, id)
		}
		pos[id] = append(pos[id], i)
	}
	s.mu.Unlock()
	if len(missing) == 0 {
		return out, nil
	}
	coll := s.db.Collection(t.Root().Collection)
	ordered, found, err := dataloader.LoadAll(ctx, missing, s.batchSize, coll.GetMany, func(d *document.Node) string {
		id, _ := document.ID(d)
		return id
	})
	if err != nil {
		return nil, err
	}
	var errs []error
	for i, id := range missing {
		if found[i] != nil {
			errs = append(errs, docmap.NewNotFoundErrorWithID(t.Name, id))
			continue
		}
		o, err := s.load(ctx, t, id, ordered[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, j := range pos[id] {
			out[j] = o
		}
	}
	return out, docmap.NewAggregateError(errs...)
}

func (s *Session) read(ctx context.Context, t *graph.Type, key docmap.CacheKey) (*document.Node, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, key.String())
		switch {
		case err != nil:
			s.logger.Warn("cache read failed", zap.Stringer("key", key), zap.Error(err))
		case data != nil:
			doc, err := document.Decode(data)
			if err == nil {
				return doc, nil
			}
			s.logger.Warn("cached document is invalid", zap.Stringer("key", key), zap.Error(err))
		}
	}
	doc, err := s.db.Collection(key.Collection).Get(ctx, key.ID)
	if document.IsNoDocument(err) {
		return nil, docmap.NewNotFoundErrorWithID(t.Name, key.ID)
	}
	if err != nil {
		return nil, err
	}
	s.cacheDocument(ctx, key, doc)
	return doc, nil
}

func (s *Session) cacheDocument(ctx context.Context, key docmap.CacheKey, doc *document.Node) {
	if s.cache == nil {
		return
	}
	data, err := doc.MarshalBSON()
	if err == nil {
		err = s.cache.Set(ctx, key.String(), data, s.cacheTTL)
	}
	if err != nil {
		s.logger.Warn("cache write failed", zap.Stringer("key", key), zap.Error(err))
	}
}

// load builds the object stored in doc. The concrete type is selected by
// the discriminator of the root document.
func (s *Session) load(ctx context.Context, t *graph.Type, id string, doc *document.Node) (*Object, error) {
	concrete := t
	if t.HasDiscriminator() {
		if v, ok := doc.Get(t.Discriminator.Column); ok {
			name, _ := v.(string)
			sub, err := s.graph.Subtype(t.Root(), name)
			if err != nil {
				return nil, err
			}
			if !sub.IsA(t) {
				return nil, docmap.NewNotFoundErrorWithID(t.Name, id)
			}
			concrete = sub
		}
	}
	if concrete.Abstract {
		return nil, docmap.NewConfigurationError(concrete.Name, "", "stored document has no concrete type")
	}
	o := newObject(concrete)
	o.id = id
	o.state = StatePersistent
	setIdentity(o)
	key := s.key(concrete, id)
	s.mu.Lock()
	if prev, ok := s.objects[key]; ok {
		s.mu.Unlock()
		return prev, nil
	}
	// Registered before fetching so that cyclic references resolve to o.
	s.objects[key] = o
	s.mu.Unlock()
	if err := docgraph.Fetch(ctx, s.cfg, &provider{obj: o}, doc); err != nil {
		s.mu.Lock()
		delete(s.objects, key)
		s.mu.Unlock()
		return nil, err
	}
	s.logger.Debug("object loaded", zap.String("type", concrete.Name), zap.String("id", id))
	return o, nil
}

// Delete removes o from the database and the session.
func (s *Session) Delete(ctx context.Context, o *Object) error {
	if o.id == "" {
		return docmap.NewNotFoundError(o.t.Name)
	}
	key := s.key(o.t, o.id)
	if err := s.db.Collection(key.Collection).Delete(ctx, o.id); err != nil {
		return docmap.NewPersistError(o.t.Name, "delete", err)
	}
	s.mu.Lock()
	delete(s.objects, key)
	o.state = StateTransient
	s.mu.Unlock()
	if s.cache != nil {
		if err := s.cache.Delete(ctx, key.String()); err != nil {
			s.logger.Warn("cache delete failed", zap.Stringer("key", key), zap.Error(err))
		}
	}
	return nil
}

// Detach stops tracking o. A detached object is stored again by Attach or
// when a persisted relation cascades to it.
func (s *Session) Detach(o *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.state != StatePersistent {
		return
	}
	if s.objects[s.key(o.t, o.id)] == o {
		delete(s.objects, s.key(o.t, o.id))
	}
	o.state = StateDetached
}

// Attach stores the detached object o and tracks it again.
func (s *Session) Attach(ctx context.Context, o *Object) error {
	if s.State(o) != StateDetached {
		return docmap.NewConfigurationError(o.t.Name, "", "object %s is not detached", o)
	}
	return s.Persist(ctx, o)
}
