// Package mongodb implements the document Database on top of the MongoDB
// Go driver.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/syssam/docmap/dialect"
	"github.com/syssam/docmap/dialect/document"
)

// Database is a document.Database backed by a MongoDB database.
type Database struct {
	db     *mongo.Database
	logger *zap.Logger
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger of the database.
func WithLogger(l *zap.Logger) Option {
	return func(d *Database) {
		d.logger = l
	}
}

// NewDatabase wraps a driver database.
func NewDatabase(db *mongo.Database, opts ...Option) *Database {
	d := &Database{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("dialect", dialect.MongoDB))
	return d
}

// Connect connects to the deployment at uri and returns the named database.
// The returned function disconnects the client.
func Connect(ctx context.Context, uri, name string, opts ...Option) (*Database, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongodb: ping: %w", err)
	}
	return NewDatabase(client.Database(name), opts...), client.Disconnect, nil
}

// Collection implements document.Database.
func (d *Database) Collection(name string) document.Collection {
	return &Collection{
		coll:   d.db.Collection(name),
		logger: d.logger.With(zap.String("collection", name)),
	}
}

// Collection is a document.Collection backed by a MongoDB collection.
type Collection struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// Name implements document.Collection.
func (c *Collection) Name() string { return c.coll.Name() }

func byID(id string) bson.D {
	return bson.D{{Key: document.IDKey, Value: id}}
}

// Put replaces the document stored under id, inserting it when missing.
func (c *Collection) Put(ctx context.Context, id string, doc *document.Node) error {
	res, err := c.coll.ReplaceOne(ctx, byID(id), doc.D(), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb: put %s/%s: %w", c.Name(), id, err)
	}
	c.logger.Debug("document stored",
		zap.String("id", id),
		zap.Int64("matched", res.MatchedCount),
		zap.Int64("upserted", res.UpsertedCount),
	)
	return nil
}

// Get implements document.Collection.
func (c *Collection) Get(ctx context.Context, id string) (*document.Node, error) {
	var d bson.D
	err := c.coll.FindOne(ctx, byID(id)).Decode(&d)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("%w: %s/%s", document.ErrNoDocument, c.Name(), id)
	case err != nil:
		return nil, fmt.Errorf("mongodb: get %s/%s: %w", c.Name(), id, err)
	}
	return document.FromD(d), nil
}

// GetMany implements document.Collection.
func (c *Collection) GetMany(ctx context.Context, ids []string) ([]*document.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.D{{Key: document.IDKey, Value: bson.D{{Key: "$in", Value: ids}}}}
	cur, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongodb: find %s: %w", c.Name(), err)
	}
	defer cur.Close(ctx)
	docs := make([]*document.Node, 0, len(ids))
	for cur.Next(ctx) {
		var d bson.D
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("mongodb: decode %s: %w", c.Name(), err)
		}
		docs = append(docs, document.FromD(d))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongodb: find %s: %w", c.Name(), err)
	}
	return docs, nil
}

// Delete implements document.Collection.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if _, err := c.coll.DeleteOne(ctx, byID(id)); err != nil {
		return fmt.Errorf("mongodb: delete %s/%s: %w", c.Name(), id, err)
	}
	return nil
}

var (
	_ document.Database   = (*Database)(nil)
	_ document.Collection = (*Collection)(nil)
)
