package load_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/schema/edge"
	"github.com/syssam/docmap/schema/field"
	"github.com/syssam/docmap/schema/load"
	"github.com/syssam/docmap/schema/mixin"
)

type Order struct{ docmap.Schema }

func (Order) Mixin() []docmap.Mixin {
	return []docmap.Mixin{mixin.ID{}}
}

func (Order) Config() docmap.Config {
	return docmap.Config{Collection: "orders"}
}

func (Order) Fields() []docmap.Field {
	return []docmap.Field{
		field.String("number").StorageKey("no"),
		field.Float64("total").Optional(),
	}
}

func (Order) Edges() []docmap.Edge {
	return []docmap.Edge{
		edge.To("customer", Customer.Type).Unique().Flat().
			Override("address.city", "city").
			Annotations(edge.Annotation{
				Overrides:           map[string]string{"address.city": "ignored", "address.zip": "zip"},
				DiscriminatorColumn: "kind",
			}),
		edge.To("tags", "Tag").NoCascade(edge.CascadeUpdate),
	}
}

type Customer struct{ docmap.Schema }

func (Customer) Config() docmap.Config {
	return docmap.Config{Embeddable: true}
}

func (Customer) Fields() []docmap.Field {
	return []docmap.Field{
		field.String("name"),
	}
}

type Broken struct{ docmap.Schema }

func (Broken) Fields() []docmap.Field {
	return []docmap.Field{
		field.Int("count").Default("zero"),
	}
}

type Panicky struct{ docmap.Schema }

func (Panicky) Edges() []docmap.Edge {
	panic("boom")
}

func TestMarshalSchema(t *testing.T) {
	t.Parallel()

	s, err := load.MarshalSchema(Order{})
	require.NoError(t, err)
	assert.Equal(t, "Order", s.Name)
	assert.Equal(t, "orders", s.Config.Collection)

	require.Len(t, s.Fields, 3)
	assert.Equal(t, "id", s.Fields[0].Name)
	assert.True(t, s.Fields[0].Identity)
	assert.True(t, s.Fields[0].Position.MixedIn)
	assert.Equal(t, "number", s.Fields[1].Name)
	assert.Equal(t, "no", s.Fields[1].StorageKey)
	assert.Equal(t, field.TypeFloat64, s.Fields[2].Type)
	assert.True(t, s.Fields[2].Optional)

	require.Len(t, s.Edges, 2)
	customer := s.Edges[0]
	assert.Equal(t, "Customer", customer.Type)
	assert.True(t, customer.Unique)
	assert.Equal(t, edge.Flat, customer.Embedded)
	assert.Equal(t, map[string]string{"address.city": "city", "address.zip": "zip"}, customer.Overrides)
	assert.Equal(t, "kind", customer.DiscriminatorColumn)
	assert.False(t, customer.NoCascadePersist)

	tags := s.Edges[1]
	assert.Equal(t, edge.ContainerCollection, tags.Container)
	assert.Empty(t, tags.Embedded)
	assert.False(t, tags.NoCascadePersist)
	assert.True(t, tags.NoCascadeUpdate)
}

func TestMarshalSchemaErrors(t *testing.T) {
	t.Parallel()

	_, err := load.MarshalSchema(Broken{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `schema "Broken"`)

	_, err = load.MarshalSchema(Panicky{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panics: boom")

	_, err = load.MarshalSchemas(Customer{}, Broken{})
	assert.Error(t, err)

	schemas, err := load.MarshalSchemas(Order{}, Customer{})
	require.NoError(t, err)
	assert.Len(t, schemas, 2)
}
