package docgraph_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/dialect/document/docgraph"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/edge"
	"github.com/syssam/docmap/schema/field"
	"github.com/syssam/docmap/schema/mixin"
	"github.com/syssam/docmap/session"
)

type (
	Order    struct{ docmap.Schema }
	Customer struct{ docmap.Schema }
	Address  struct{ docmap.Schema }
	Shape    struct{ docmap.Schema }
	Circle   struct{ docmap.Schema }
	Square   struct{ docmap.Schema }
	Tag      struct{ docmap.Schema }
	Product  struct{ docmap.Schema }
	Category struct{ docmap.Schema }
	Basket   struct{ docmap.Schema }
	Rack     struct{ docmap.Schema }
	Label    struct{ docmap.Schema }
	Note     struct{ docmap.Schema }
	Slot     struct{ docmap.Schema }
	Kennel   struct{ docmap.Schema }
	Pet      struct{ docmap.Schema }
	Dog      struct{ docmap.Schema }
)

type money struct {
	Amount   int64
	Currency string
}

var moneyConverter = field.ConverterFuncs{
	To: func(v any) (any, error) {
		m, ok := v.(money)
		if !ok {
			return nil, fmt.Errorf("unexpected money value %T", v)
		}
		return []any{m.Amount, m.Currency}, nil
	},
	From: func(v any) (any, error) {
		parts, ok := v.([]any)
		if !ok || len(parts) != 2 {
			return nil, fmt.Errorf("unexpected money columns %v", v)
		}
		amount, _ := parts[0].(int64)
		currency, _ := parts[1].(string)
		return money{Amount: amount, Currency: currency}, nil
	},
}

func (Order) Mixin() []docmap.Mixin { return []docmap.Mixin{mixin.ID{}} }

func (Order) Fields() []docmap.Field {
	return []docmap.Field{
		field.String("number"),
		field.Int("qty").Optional(),
		field.Time("placed_at").Optional(),
		field.Other("price", "Money").
			Columns("price_amount", "price_currency").
			Converter(moneyConverter).
			Optional(),
		field.Strings("notes").Serialized().Optional(),
		field.String("scratch").Transient(),
	}
}

func (Order) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("customer", Customer.Type).Unique().Flat(),
		edge.To("billing", Customer.Type).Unique().Flat().
			Override("name", "bill_to").
			Override("address.city", "bill_city"),
		edge.To("shape", Shape.Type).Unique(),
		edge.To("tags", Tag.Type),
		edge.To("product", Product.Type).Unique(),
		edge.To("related", Product.Type),
		edge.To("supplier", Product.Type).Unique().NoCascade(edge.CascadePersist),
		edge.Map("categories", Category.Type),
		edge.Map("stock", nil).KeyType(Product.Type).Value(field.TypeInt),
	}
}

func (Customer) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Customer) Fields() []docmap.Field {
	return []docmap.Field{
		field.String("name"),
		field.String("email").StorageKey("mail").Optional(),
	}
}

func (Customer) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("address", Address.Type).Unique().Flat().OwnerField("customer"),
	}
}

func (Address) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Address) Fields() []docmap.Field {
	return []docmap.Field{
		field.String("city"),
		field.String("zip").Optional(),
	}
}

func (Address) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("customer", Customer.Type).Unique().MappedBy("address"),
	}
}

func (Shape) Config() docmap.Config {
	return docmap.Config{Abstract: true, Embeddable: true}
}

func (Shape) Fields() []docmap.Field {
	return []docmap.Field{field.String("label").Optional()}
}

func (Circle) Config() docmap.Config { return docmap.Config{Extends: "Shape"} }

func (Circle) Fields() []docmap.Field {
	return []docmap.Field{field.Float64("radius")}
}

func (Square) Config() docmap.Config {
	return docmap.Config{Extends: "Shape", Discriminator: docmap.Discriminator{Value: "sq"}}
}

func (Square) Fields() []docmap.Field {
	return []docmap.Field{field.Float64("side")}
}

func (Tag) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Tag) Fields() []docmap.Field {
	return []docmap.Field{field.String("name")}
}

func (Product) Mixin() []docmap.Mixin { return []docmap.Mixin{mixin.ID{}} }

func (Product) Fields() []docmap.Field {
	return []docmap.Field{field.String("title")}
}

func (Category) Mixin() []docmap.Mixin { return []docmap.Mixin{mixin.ID{}} }

func (Category) Fields() []docmap.Field {
	return []docmap.Field{field.String("title")}
}

func (Basket) Mixin() []docmap.Mixin { return []docmap.Mixin{mixin.ID{}} }

func (Basket) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("items", Product.Type).SerializeElements(),
		edge.To("figure", Shape.Type).Unique().Flat(),
	}
}

func (Rack) Mixin() []docmap.Mixin { return []docmap.Mixin{mixin.ID{}} }

func (Rack) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("label", Label.Type).Unique().Nested().OwnerField("rack"),
		edge.To("slots", Slot.Type).OwnerField("rack"),
	}
}

func (Label) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Label) Fields() []docmap.Field {
	return []docmap.Field{field.String("text")}
}

func (Label) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("rack", Rack.Type).Unique(),
		edge.To("note", Note.Type).Unique().Nested().MappedBy("label"),
	}
}

func (Note) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Note) Fields() []docmap.Field {
	return []docmap.Field{field.String("body")}
}

func (Note) Edges() []docmap.Edge {
	return []docmap.Edge{edge.To("label", Label.Type).Unique()}
}

func (Slot) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Slot) Fields() []docmap.Field {
	return []docmap.Field{field.String("code")}
}

func (Slot) Edges() []docmap.Edge {
	return []docmap.Edge{edge.To("rack", Rack.Type).Unique()}
}

func (Kennel) Mixin() []docmap.Mixin { return []docmap.Mixin{mixin.ID{}} }

func (Kennel) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.Map("pets", Pet.Type),
		edge.Map("owners", Product.Type).KeyType(Tag.Type),
		edge.To("lineup", Pet.Type).Array(),
	}
}

func (Pet) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Pet) Fields() []docmap.Field {
	return []docmap.Field{field.String("name")}
}

func (Dog) Config() docmap.Config { return docmap.Config{Extends: "Pet"} }

func (Dog) Fields() []docmap.Field {
	return []docmap.Field{field.String("breed")}
}

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Load([]docmap.Interface{
		Order{}, Customer{}, Address{}, Shape{}, Circle{}, Square{},
		Tag{}, Product{}, Category{}, Basket{},
		Rack{}, Label{}, Note{}, Slot{},
		Kennel{}, Pet{}, Dog{},
	})
	require.NoError(t, err)
	return g
}

func setup(t *testing.T, opts ...session.Option) (*session.Session, *document.Memory, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	db := document.NewMemory()
	sess, err := session.Open(testGraph(t), db, append([]session.Option{session.WithLogger(zap.New(core))}, opts...)...)
	require.NoError(t, err)
	return sess, db, logs
}

// reopen returns a fresh session on db, with an empty identity map.
func reopen(t *testing.T, sess *session.Session, db document.Database, opts ...session.Option) *session.Session {
	t.Helper()
	s, err := session.Open(sess.Graph(), db, opts...)
	require.NoError(t, err)
	return s
}

func stored(t *testing.T, db document.Database, coll, id string) *document.Node {
	t.Helper()
	doc, err := db.Collection(coll).Get(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func get(t *testing.T, doc *document.Node, key string) any {
	t.Helper()
	v, ok := doc.Get(key)
	require.Truef(t, ok, "missing column %q in %s", key, doc)
	return v
}

func TestStoreFlat(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	address := sess.MustNew("Address").Set("city", "X")
	customer := sess.MustNew("Customer").Set("name", "A").Set("address", address)
	order := sess.MustNew("Order").Set("number", "A-1").Set("customer", customer)
	require.NoError(t, sess.Persist(ctx, order))

	doc := stored(t, db, "orders", order.ID())
	assert.Equal(t, []string{
		document.IDKey, "number", "qty", "placed_at", "price_amount", "price_currency", "notes",
		"customer_name", "customer_mail", "customer_address_city", "customer_address_zip",
		"product", "supplier",
	}, doc.Keys())
	assert.Equal(t, "A", get(t, doc, "customer_name"))
	assert.Equal(t, "X", get(t, doc, "customer_address_city"))
	assert.False(t, doc.Has("customer"), "flat values have no sub-document")
	assert.False(t, doc.Has("customer_address_customer"), "owner links are not stored")
	assert.Same(t, customer, address.Object("customer"), "owner link points at the embedding object")
	assert.Equal(t, session.StatePersistent, sess.State(customer))
	assert.Equal(t, session.StatePersistent, sess.State(address))

	got, err := reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	c := got.Object("customer")
	require.NotNil(t, c)
	assert.Equal(t, "A", c.Get("name"))
	assert.Nil(t, c.Get("email"))
	a := c.Object("address")
	require.NotNil(t, a)
	assert.Equal(t, "X", a.Get("city"))
	assert.Same(t, c, a.Object("customer"))
}

func TestStoreOwnerLinks(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	note := sess.MustNew("Note").Set("body", "fragile")
	label := sess.MustNew("Label").Set("text", "top").Set("note", note)
	other := sess.MustNew("Rack")
	s1 := sess.MustNew("Slot").Set("code", "a1").Set("rack", other)
	s2 := sess.MustNew("Slot").Set("code", "a2")
	rack := sess.MustNew("Rack").Set("label", label).Set("slots", []any{s1, s2})
	require.NoError(t, sess.Persist(ctx, rack))
	assert.Equal(t, 1, db.MemoryCollection("racks").Len(), "owner links do not cascade")

	doc := stored(t, db, "racks", rack.ID())
	sub, ok := doc.Node("label")
	require.True(t, ok)
	assert.Equal(t, []string{"text", "note"}, sub.Keys(), "nested owner field is not stored")
	deep, ok := sub.Node("note")
	require.True(t, ok)
	assert.Equal(t, []string{"body"}, deep.Keys(), "mapped-by link is not stored")
	seq, ok := get(t, doc, "slots").([]any)
	require.True(t, ok)
	require.Len(t, seq, 2)
	for i, code := range []string{"a1", "a2"} {
		elem, ok := seq[i].(*document.Node)
		require.True(t, ok)
		assert.Equal(t, []string{"code"}, elem.Keys(), "element owner field is not stored")
		assert.Equal(t, code, get(t, elem, "code"))
	}

	assert.Same(t, rack, label.Object("rack"))
	assert.Same(t, label, note.Object("label"))
	assert.Same(t, rack, s1.Object("rack"), "element links point at the embedding object")
	assert.Same(t, rack, s2.Object("rack"))

	got, err := reopen(t, sess, db).Find(ctx, "Rack", rack.ID())
	require.NoError(t, err)
	l := got.Object("label")
	require.NotNil(t, l)
	assert.Equal(t, "top", l.Get("text"))
	assert.Same(t, got, l.Object("rack"))
	n := l.Object("note")
	require.NotNil(t, n)
	assert.Equal(t, "fragile", n.Get("body"))
	assert.Same(t, l, n.Object("label"))
}

func TestStoreFlatNull(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	order := sess.MustNew("Order").Set("number", "A-1").Set("customer", sess.MustNew("Customer"))
	require.NoError(t, sess.Persist(ctx, order))
	doc := stored(t, db, "orders", order.ID())
	assert.Nil(t, get(t, doc, "customer_name"), "unset members store null columns")
	assert.False(t, doc.Has("customer_address_city"), "a nil flat member stores no column")

	got, err := reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	c := got.Object("customer")
	require.NotNil(t, c, "null columns still build the object")
	assert.Nil(t, c.Get("name"))
	assert.Nil(t, c.Get("address"))

	order.Set("customer", nil)
	require.NoError(t, sess.Persist(ctx, order))
	doc = stored(t, db, "orders", order.ID())
	for _, k := range doc.Keys() {
		assert.NotContains(t, k, "customer_", "update removes every flat column")
	}
	got, err = reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	assert.Nil(t, got.Get("customer"))
}

func TestStoreOverride(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	billing := sess.MustNew("Customer").Set("name", "B").
		Set("address", sess.MustNew("Address").Set("city", "Y").Set("zip", "1000"))
	order := sess.MustNew("Order").Set("number", "A-1").Set("billing", billing)
	require.NoError(t, sess.Persist(ctx, order))

	doc := stored(t, db, "orders", order.ID())
	assert.Equal(t, "B", get(t, doc, "bill_to"))
	assert.Equal(t, "Y", get(t, doc, "bill_city"))
	assert.Equal(t, "1000", get(t, doc, "billing_address_zip"))
	assert.True(t, doc.Has("billing_mail"))
	assert.False(t, doc.Has("billing_name"))

	got, err := reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	b := got.Object("billing")
	require.NotNil(t, b)
	assert.Equal(t, "B", b.Get("name"))
	assert.Equal(t, "Y", b.Object("address").Get("city"))
}

func TestStoreNested(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	order := sess.MustNew("Order").Set("number", "A-1").
		Set("shape", sess.MustNew("Circle").Set("radius", 5.0))
	require.NoError(t, sess.Persist(ctx, order))

	doc := stored(t, db, "orders", order.ID())
	sub, ok := doc.Node("shape")
	require.True(t, ok)
	assert.Equal(t, []string{graph.DefaultDiscriminatorColumn, "label", "radius"}, sub.Keys())
	assert.Equal(t, "Circle", get(t, sub, graph.DefaultDiscriminatorColumn))
	assert.Equal(t, 5.0, get(t, sub, "radius"))

	got, err := reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	shape := got.Object("shape")
	require.NotNil(t, shape)
	assert.Equal(t, "Circle", shape.Type().Name)
	assert.Equal(t, 5.0, shape.Get("radius"))

	order.Set("shape", nil)
	require.NoError(t, sess.Persist(ctx, order))
	assert.False(t, stored(t, db, "orders", order.ID()).Has("shape"))
	got, err = reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	assert.Nil(t, got.Get("shape"))
}

func TestStoreFlatDiscriminator(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	basket := sess.MustNew("Basket").Set("figure", sess.MustNew("Square").Set("side", 2.0))
	require.NoError(t, sess.Persist(ctx, basket))

	doc := stored(t, db, "baskets", basket.ID())
	assert.Equal(t, "sq", get(t, doc, "figure___type"))
	assert.Equal(t, 2.0, get(t, doc, "figure_side"))
	assert.False(t, doc.Has("figure_radius"))

	got, err := reopen(t, sess, db).Find(ctx, "Basket", basket.ID())
	require.NoError(t, err)
	figure := got.Object("figure")
	require.NotNil(t, figure)
	assert.Equal(t, "Square", figure.Type().Name)
	assert.Equal(t, 2.0, figure.Get("side"))
}

func TestStoreElements(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	order := sess.MustNew("Order").Set("number", "A-1").Set("tags", []any{
		sess.MustNew("Tag").Set("name", "a"),
		nil,
		sess.MustNew("Tag").Set("name", "b"),
	})
	require.NoError(t, sess.Persist(ctx, order))

	seq, ok := get(t, stored(t, db, "orders", order.ID()), "tags").([]any)
	require.True(t, ok)
	require.Len(t, seq, 3)
	for i, name := range map[int]string{0: "a", 2: "b"} {
		sub, ok := seq[i].(*document.Node)
		require.True(t, ok)
		assert.Equal(t, []string{"name"}, sub.Keys())
		assert.Equal(t, name, get(t, sub, "name"))
	}
	assert.Nil(t, seq[1])

	core, logs := observer.New(zapcore.DebugLevel)
	got, err := reopen(t, sess, db, session.WithLogger(zap.New(core))).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	assert.Nil(t, got.Get("tags"))
	assert.Equal(t, 1, logs.FilterMessage("fetching embedded elements is not supported").Len())
}

func TestStoreEmbeddedMaps(t *testing.T) {
	ctx := context.Background()
	sess, db, logs := setup(t)

	owner := sess.MustNew("Product").Set("title", "ann")
	kennel := sess.MustNew("Kennel").
		Set("pets", map[string]any{
			"b": sess.MustNew("Dog").Set("name", "rex").Set("breed", "lab"),
			"a": sess.MustNew("Pet").Set("name", "tom"),
		}).
		Set("owners", []docgraph.MapEntry{{Key: sess.MustNew("Tag").Set("name", "vip"), Value: owner}}).
		Set("lineup", []any{sess.MustNew("Dog").Set("name", "max").Set("breed", "pug"), nil})
	require.NoError(t, sess.Persist(ctx, kennel))
	assert.Equal(t, session.StatePersistent, sess.State(owner), "referenced values cascade")

	doc := stored(t, db, "kennels", kennel.ID())
	entries, ok := get(t, doc, "pets").([]any)
	require.True(t, ok)
	require.Len(t, entries, 2)
	want := []struct {
		key  string
		typ  string
		name string
	}{{"a", "Pet", "tom"}, {"b", "Dog", "rex"}}
	for i, w := range want {
		entry, ok := entries[i].(*document.Node)
		require.True(t, ok)
		assert.Equal(t, w.key, get(t, entry, docgraph.EntryKey))
		value, ok := get(t, entry, docgraph.EntryValue).(*document.Node)
		require.True(t, ok)
		assert.Equal(t, w.typ, get(t, value, graph.DefaultDiscriminatorColumn), "polymorphic values carry their type")
		assert.Equal(t, w.name, get(t, value, "name"))
	}

	keyed, ok := get(t, doc, "owners").([]any)
	require.True(t, ok)
	require.Len(t, keyed, 1)
	entry := keyed[0].(*document.Node)
	key, ok := get(t, entry, docgraph.EntryKey).(*document.Node)
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, key.Keys(), "non-polymorphic keys carry no type")
	assert.Equal(t, "vip", get(t, key, "name"))
	assert.Equal(t, owner.ID(), get(t, entry, docgraph.EntryValue))

	lineup, ok := get(t, doc, "lineup").([]any)
	require.True(t, ok)
	require.Len(t, lineup, 2)
	dog, ok := lineup[0].(*document.Node)
	require.True(t, ok)
	assert.Equal(t, "Dog", get(t, dog, graph.DefaultDiscriminatorColumn))
	assert.Equal(t, "pug", get(t, dog, "breed"))
	assert.Nil(t, lineup[1])

	embedded := logs.FilterMessage("object embedded")
	assert.Equal(t, 1, embedded.FilterField(zap.Stringer("role", docgraph.RoleMapKey)).Len())
	assert.Equal(t, 2, embedded.FilterField(zap.Stringer("role", docgraph.RoleMapValue)).Len())
	assert.Equal(t, 1, embedded.FilterField(zap.Stringer("role", docgraph.RoleArrayElement)).Len())
}

func TestStoreReferences(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	p1 := sess.MustNew("Product").Set("title", "one")
	p2 := sess.MustNew("Product").Set("title", "two")
	order := sess.MustNew("Order").Set("number", "A-1").
		Set("product", p1).
		Set("related", []any{p1, nil, p2})
	require.NoError(t, sess.Persist(ctx, order))
	assert.Equal(t, session.StatePersistent, sess.State(p1), "references cascade the insert")
	assert.Equal(t, session.StatePersistent, sess.State(p2))

	doc := stored(t, db, "orders", order.ID())
	assert.Equal(t, p1.ID(), get(t, doc, "product"))
	assert.Equal(t, []any{p1.ID(), docgraph.DefaultNullSentinel, p2.ID()}, get(t, doc, "related"))
	assert.Equal(t, "one", get(t, stored(t, db, "products", p1.ID()), "title"))

	got, err := reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	product := got.Object("product")
	require.NotNil(t, product)
	assert.Equal(t, "one", product.Get("title"))
	related, ok := got.Get("related").([]any)
	require.True(t, ok)
	require.Len(t, related, 3)
	assert.Same(t, product, related[0], "identities resolve to one object")
	assert.Nil(t, related[1])
	assert.Equal(t, "two", related[2].(*session.Object).Get("title"))
}

func TestNullSentinel(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t, session.WithEngineOptions(docgraph.WithNullSentinel("<nil>")))

	order := sess.MustNew("Order").Set("number", "A-1").Set("related", []any{nil})
	require.NoError(t, sess.Persist(ctx, order))
	assert.Equal(t, []any{"<nil>"}, get(t, stored(t, db, "orders", order.ID()), "related"))

	got, err := reopen(t, sess, db, session.WithEngineOptions(docgraph.WithNullSentinel("<nil>"))).
		Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, got.Get("related"))
}

func TestStoreNotCascaded(t *testing.T) {
	ctx := context.Background()
	sess, db, logs := setup(t)

	supplier := sess.MustNew("Product").Set("title", "acme")
	order := sess.MustNew("Order").Set("number", "A-1").Set("supplier", supplier)
	err := sess.Persist(ctx, order)
	require.Error(t, err)
	assert.True(t, docmap.IsNotCascaded(err))
	assert.True(t, docmap.IsPersistError(err))
	assert.Zero(t, db.MemoryCollection("orders").Len())
	assert.Zero(t, db.MemoryCollection("products").Len())
	assert.Equal(t, 1, logs.FilterMessage("related object is not reachable").Len())

	require.NoError(t, sess.Persist(ctx, supplier))
	require.NoError(t, sess.Persist(ctx, order))
	assert.Equal(t, supplier.ID(), get(t, stored(t, db, "orders", order.ID()), "supplier"))
}

func TestStorePartialCascade(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	order := sess.MustNew("Order").Set("number", "A-1").
		Set("supplier", sess.MustNew("Product")).
		Set("product", sess.MustNew("Product").Set("title", "p"))
	err := sess.Persist(ctx, order)
	require.Error(t, err)
	assert.True(t, docmap.IsNotCascaded(err))
	// product is written before supplier, and cascades.
	assert.Equal(t, 1, db.MemoryCollection("products").Len())
	assert.Zero(t, db.MemoryCollection("orders").Len())
}

func TestStoreMaps(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	c1 := sess.MustNew("Category").Set("title", "books")
	c2 := sess.MustNew("Category").Set("title", "music")
	p := sess.MustNew("Product").Set("title", "p")
	order := sess.MustNew("Order").Set("number", "A-1").
		Set("categories", map[string]any{"main": c1, "extra": c2, "none": nil}).
		Set("stock", []docgraph.MapEntry{{Key: p, Value: 3}})
	require.NoError(t, sess.Persist(ctx, order))

	doc := stored(t, db, "orders", order.ID())
	entries, ok := get(t, doc, "categories").([]any)
	require.True(t, ok)
	require.Len(t, entries, 3)
	want := []struct {
		key   string
		value any
	}{{"extra", c2.ID()}, {"main", c1.ID()}, {"none", docgraph.DefaultNullSentinel}}
	for i, w := range want {
		entry, ok := entries[i].(*document.Node)
		require.True(t, ok)
		assert.Equal(t, []string{docgraph.EntryKey, docgraph.EntryValue}, entry.Keys())
		assert.Equal(t, w.key, get(t, entry, docgraph.EntryKey))
		assert.Equal(t, w.value, get(t, entry, docgraph.EntryValue))
	}
	stock, ok := get(t, doc, "stock").([]any)
	require.True(t, ok)
	require.Len(t, stock, 1)
	assert.Equal(t, p.ID(), get(t, stock[0].(*document.Node), docgraph.EntryKey))
	assert.Equal(t, int64(3), get(t, stock[0].(*document.Node), docgraph.EntryValue))

	got, err := reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	cats, ok := got.Get("categories").([]docgraph.MapEntry)
	require.True(t, ok)
	require.Len(t, cats, 3)
	assert.Equal(t, "extra", cats[0].Key)
	assert.Equal(t, "music", cats[0].Value.(*session.Object).Get("title"))
	assert.Nil(t, cats[2].Value)
	levels, ok := got.Get("stock").([]docgraph.MapEntry)
	require.True(t, ok)
	require.Len(t, levels, 1)
	assert.Equal(t, "p", levels[0].Key.(*session.Object).Get("title"))
	assert.Equal(t, 3, levels[0].Value)
}

func TestStoreScalars(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	placed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	order := sess.MustNew("Order").
		Set("number", "A-1").
		Set("qty", 3).
		Set("placed_at", placed).
		Set("price", money{Amount: 1250, Currency: "EUR"}).
		Set("notes", []string{"fragile", "gift"}).
		Set("scratch", "tmp")
	require.NoError(t, sess.Persist(ctx, order))

	doc := stored(t, db, "orders", order.ID())
	assert.Equal(t, int64(3), get(t, doc, "qty"))
	assert.Equal(t, int64(1250), get(t, doc, "price_amount"))
	assert.Equal(t, "EUR", get(t, doc, "price_currency"))
	assert.False(t, doc.Has("price"))
	assert.IsType(t, []byte(nil), get(t, doc, "notes"), "serialized fields are opaque")
	assert.False(t, doc.Has("scratch"), "transient fields are not stored")

	got, err := reopen(t, sess, db).Find(ctx, "Order", order.ID())
	require.NoError(t, err)
	assert.Equal(t, 3, got.Get("qty"))
	assert.True(t, placed.Equal(got.Get("placed_at").(time.Time)))
	assert.Equal(t, money{Amount: 1250, Currency: "EUR"}, got.Get("price"))
	assert.Equal(t, []string{"fragile", "gift"}, got.Get("notes"))
	assert.Nil(t, got.Get("scratch"))
	assert.Equal(t, order.ID(), got.Get("id"))
}

func TestStoreUnsupported(t *testing.T) {
	ctx := context.Background()
	sess, db, _ := setup(t)

	basket := sess.MustNew("Basket").Set("items", []any{sess.MustNew("Product")})
	err := sess.Persist(ctx, basket)
	require.Error(t, err)
	assert.True(t, docmap.IsUnsupported(err))
	assert.Zero(t, db.MemoryCollection("baskets").Len())
	assert.Zero(t, db.MemoryCollection("products").Len())
}

func TestStoreTypeMismatch(t *testing.T) {
	sess, _, _ := setup(t)

	order := sess.MustNew("Order").Set("number", "A-1").
		Set("customer", sess.MustNew("Tag").Set("name", "a"))
	err := sess.Persist(context.Background(), order)
	require.Error(t, err)
	assert.True(t, docmap.IsConfigurationError(err))

	order.Set("customer", nil).Set("qty", "three")
	require.Error(t, sess.Persist(context.Background(), order))
}

func TestConfig(t *testing.T) {
	g := testGraph(t)
	sess, _, _ := setup(t)

	_, err := docgraph.NewConfig(nil, nil)
	assert.True(t, docmap.IsConfigurationError(err))
	_, err = docgraph.NewConfig(g, sess, docgraph.WithNullSentinel(""))
	assert.True(t, docmap.IsConfigurationError(err))
	_, err = docgraph.NewConfig(g, sess, docgraph.WithLogger(nil))
	assert.True(t, docmap.IsConfigurationError(err))

	cfg, err := docgraph.NewConfig(g, sess)
	require.NoError(t, err)
	assert.Equal(t, docgraph.DefaultNullSentinel, cfg.NullSentinel)
	assert.NotNil(t, cfg.Resolver)
	assert.NotNil(t, cfg.Logger)
}
