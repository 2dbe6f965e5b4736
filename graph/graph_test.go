package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/edge"
	"github.com/syssam/docmap/schema/field"
	"github.com/syssam/docmap/schema/load"
	"github.com/syssam/docmap/schema/mixin"
)

type (
	Order     struct{ docmap.Schema }
	Customer  struct{ docmap.Schema }
	Address   struct{ docmap.Schema }
	Shape     struct{ docmap.Schema }
	Circle    struct{ docmap.Schema }
	Square    struct{ docmap.Schema }
	OrderLine struct{ docmap.Schema }
	Category  struct{ docmap.Schema }
)

func (Order) Mixin() []docmap.Mixin { return []docmap.Mixin{mixin.ID{}} }

func (Order) Fields() []docmap.Field {
	return []docmap.Field{field.String("number")}
}

func (Order) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("customer", Customer.Type).Unique().Flat(),
		edge.To("shape", Shape.Type).Unique(),
		edge.To("lines", OrderLine.Type),
		edge.Map("categories", Category.Type),
	}
}

func (Customer) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Customer) Fields() []docmap.Field {
	return []docmap.Field{field.String("name")}
}

func (Customer) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("address", Address.Type).Unique().Flat().OwnerField("customer"),
	}
}

func (Address) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (Address) Fields() []docmap.Field {
	return []docmap.Field{field.String("city")}
}

func (Address) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("customer", Customer.Type).Unique().MappedBy("address"),
	}
}

func (Shape) Config() docmap.Config {
	return docmap.Config{Abstract: true, Embeddable: true, Package: "geo"}
}

func (Shape) Fields() []docmap.Field {
	return []docmap.Field{field.String("label")}
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

func (OrderLine) Config() docmap.Config { return docmap.Config{Embeddable: true} }

func (OrderLine) Fields() []docmap.Field {
	return []docmap.Field{field.Int("qty")}
}

func (Category) Fields() []docmap.Field {
	return []docmap.Field{field.String("title")}
}

func testGraph(t *testing.T, opts ...graph.Option) *graph.Graph {
	t.Helper()
	g, err := graph.Load([]docmap.Interface{
		Order{}, Customer{}, Address{}, Shape{}, Circle{}, Square{}, OrderLine{}, Category{},
	}, opts...)
	require.NoError(t, err)
	return g
}

func TestFieldNumbers(t *testing.T) {
	t.Parallel()
	g := testGraph(t)

	order, err := g.Type("Order")
	require.NoError(t, err)
	names := make([]string, 0, len(order.Fields))
	for i, f := range order.Fields {
		assert.Equal(t, i, f.Number)
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "number", "customer", "shape", "lines", "categories"}, names)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order.FieldNumbers())
	assert.Equal(t, "orders", order.Collection)

	circle, err := g.Type("Circle")
	require.NoError(t, err)
	shape, err := g.Type("Shape")
	require.NoError(t, err)
	require.Len(t, circle.Fields, 2)
	assert.Same(t, shape.Fields[0], circle.Fields[0])
	assert.Equal(t, "radius", circle.Fields[1].Name)
	assert.Equal(t, 1, circle.Fields[1].Number)

	_, err = circle.Field(7)
	assert.True(t, docmap.IsConfigurationError(err))
	f, err := circle.Field(1)
	require.NoError(t, err)
	assert.Equal(t, "Circle.radius", f.String())

	line, err := g.Type("OrderLine")
	require.NoError(t, err)
	assert.Equal(t, "order_lines", line.Collection)
	category, err := g.Type("Category")
	require.NoError(t, err)
	assert.Equal(t, "categories", category.Collection)
}

func TestRelations(t *testing.T) {
	t.Parallel()
	g := testGraph(t)
	order, _ := g.Type("Order")

	id, _ := order.FieldByName("id")
	assert.False(t, id.Stored())
	assert.Equal(t, graph.RelNone, id.Rel)

	customer, _ := order.FieldByName("customer")
	assert.Equal(t, graph.RelOne, customer.Rel)
	assert.True(t, customer.Flat())
	assert.False(t, customer.Nested())
	assert.True(t, customer.Cascades(true))
	assert.True(t, customer.Cascades(false))

	shape, _ := order.FieldByName("shape")
	assert.True(t, shape.Embedded, "embeddable targets are embedded")
	assert.True(t, shape.Nested())

	lines, _ := order.FieldByName("lines")
	assert.Equal(t, graph.RelMany, lines.Rel)
	assert.Equal(t, edge.ContainerCollection, lines.Container)
	assert.True(t, lines.Embedded)

	categories, _ := order.FieldByName("categories")
	assert.Equal(t, edge.ContainerMap, categories.Container)
	assert.False(t, categories.Embedded)
	assert.Equal(t, field.TypeString, categories.KeyInfo.Type)

	c, _ := g.Type("Customer")
	address, _ := c.FieldByName("address")
	assert.Equal(t, "customer", address.OwnerMember)
	assert.Equal(t, "many", graph.RelMany.String())
}

func TestDiscriminators(t *testing.T) {
	t.Parallel()
	g := testGraph(t)

	shape, _ := g.Type("Shape")
	circle, _ := g.Type("Circle")
	square, _ := g.Type("Square")
	order, _ := g.Type("Order")

	assert.True(t, shape.HasDiscriminator())
	assert.True(t, shape.Polymorphic())
	assert.Equal(t, docmap.DiscriminatorValueMap, circle.Discriminator.Strategy)
	assert.Equal(t, graph.DefaultDiscriminatorColumn, circle.Discriminator.Column)
	assert.Equal(t, "Circle", circle.DiscriminatorValue())
	assert.Equal(t, "sq", square.DiscriminatorValue())
	assert.False(t, order.HasDiscriminator())
	assert.True(t, circle.IsA(shape))
	assert.False(t, shape.IsA(circle))
	assert.Same(t, shape, square.Root())
	assert.Equal(t, []*graph.Type{shape, circle, square}, shape.Descendants())

	got, err := g.Subtype(shape, "sq")
	require.NoError(t, err)
	assert.Same(t, square, got)
	_, err = g.Subtype(circle, "sq")
	assert.True(t, docmap.IsConfigurationError(err))
}

func TestClassNameDiscriminator(t *testing.T) {
	t.Parallel()

	schemas, err := load.ParseYAML([]byte(`
types:
  - name: Shape
    package: geo
    embeddable: true
    discriminator: {strategy: class_name, column: kind}
  - name: Circle
    package: geo
    extends: Shape
`))
	require.NoError(t, err)
	g, err := graph.NewGraph(schemas, graph.WithDiscriminatorColumn("_t"))
	require.NoError(t, err)
	circle, _ := g.Type("Circle")
	assert.Equal(t, "geo.Circle", circle.DiscriminatorValue())
	assert.Equal(t, "kind", circle.Discriminator.Column)
	assert.Equal(t, "_t", g.DefaultDiscriminator())
}

func TestOptions(t *testing.T) {
	t.Parallel()

	g := testGraph(t, graph.WithSeparator("."))
	assert.Equal(t, ".", g.ColumnSeparator())
	assert.Equal(t, graph.DefaultDiscriminatorColumn, g.DefaultDiscriminator())

	_, err := graph.NewGraph(nil, graph.WithSeparator(""))
	assert.True(t, docmap.IsConfigurationError(err))
	_, err = graph.NewGraph(nil, graph.WithDiscriminatorColumn(""))
	assert.True(t, docmap.IsConfigurationError(err))
}

func TestGraphErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown target": `
types:
  - name: A
    edges: [{name: b, type: B, unique: true}]`,
		"unknown super": `
types:
  - name: A
    extends: B`,
		"cyclic hierarchy": `
types:
  - name: A
    extends: B
  - name: B
    extends: A`,
		"duplicate type": `
types:
  - name: A
  - name: A`,
		"duplicate field": `
types:
  - name: A
    fields: [{name: x, type: int}]
  - name: B
    extends: A
    fields: [{name: x, type: int}]`,
		"flat collection": `
types:
  - name: A
    edges: [{name: b, type: B, embedded: flat}]
  - name: B`,
		"flat cycle": `
types:
  - name: A
    edges: [{name: b, type: B, unique: true, embedded: flat}]
  - name: B
    edges: [{name: a, type: A, unique: true, embedded: flat}]`,
		"owner field missing": `
types:
  - name: A
    edges: [{name: b, type: B, unique: true, embedded: nested, owner_field: owner}]
  - name: B`,
		"owner field on reference": `
types:
  - name: A
    edges: [{name: b, type: B, unique: true, owner_field: a}]
  - name: B
    edges: [{name: a, type: A, unique: true}]`,
		"mapped by missing": `
types:
  - name: A
    edges: [{name: b, type: B, unique: true, mapped_by: a}]
  - name: B`,
		"duplicate discriminator": `
types:
  - name: A
  - name: B
    extends: A
    discriminator: {value: A}`,
		"map without value": `
types:
  - name: A
    edges: [{name: m, key_type: B, container: map}]
  - name: B
    embeddable: true`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			schemas, err := load.ParseYAML([]byte(doc))
			require.NoError(t, err)
			_, err = graph.NewGraph(schemas)
			require.Error(t, err)
			assert.ErrorIs(t, err, docmap.ErrConfiguration)
		})
	}
}
