package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/load"
)

const schemaYAML = `
types:
  - name: Order
    fields:
      - {name: number, type: string}
      - {name: qty, type: int, optional: true}
    edges:
      - {name: customer, type: Customer, unique: true, embedded: flat}
      - {name: shape, type: Shape, unique: true}
  - name: Customer
    embeddable: true
    fields:
      - {name: name, type: string}
  - name: Shape
    abstract: true
    embeddable: true
    fields:
      - {name: label, type: string, optional: true}
  - name: Circle
    extends: Shape
    fields:
      - {name: radius, type: float64}
`

const orderYAML = `
number: A-1
qty: 2
customer:
  name: ann
shape:
  "@type": Circle
  radius: 2
`

func write(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestColumnsTable(t *testing.T) {
	t.Parallel()
	schema := write(t, "schema.yaml", schemaYAML)

	out, _, err := run(t, "columns", "--schema", schema)
	require.NoError(t, err)
	for _, s := range []string{"Order", "_id", "customer_name", "shape.radius", "embedded nested", "discriminator"} {
		assert.Contains(t, out, s)
	}
	assert.NotContains(t, out, "Customer", "embeddable types have no documents")
}

func TestColumnsYAML(t *testing.T) {
	t.Parallel()
	schema := write(t, "schema.yaml", schemaYAML)

	out, _, err := run(t, "columns", "--schema", schema, "--type", "Order", "-o", "yaml", "--separator", ".")
	require.NoError(t, err)
	var rows []columnRow
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	want := []columnRow{
		{Type: "Order", Shape: "identity", Columns: []string{"_id"}},
		{Type: "Order", Field: "number", Shape: "scalar", Columns: []string{"number"}},
		{Type: "Order", Field: "qty", Shape: "scalar", Columns: []string{"qty"}},
		{Type: "Order", Field: "customer.name", Shape: "scalar", Columns: []string{"customer.name"}},
		{Type: "Order", Field: "shape", Shape: "embedded nested", Columns: []string{"shape"}},
		{Type: "Order", Node: "shape", Field: "shape", Shape: "discriminator", Columns: []string{"__type"}},
		{Type: "Order", Node: "shape", Field: "shape.label", Shape: "scalar", Columns: []string{"label"}},
		{Type: "Order", Node: "shape", Field: "shape.radius", Shape: "scalar", Columns: []string{"radius"}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()
	schema := write(t, "schema.yaml", schemaYAML)
	data := write(t, "order.yaml", orderYAML)

	out, stderr, err := run(t, "encode", "--schema", schema, "--type", "Order", "--data", data)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	id, ok := got["_id"].(string)
	require.True(t, ok)
	delete(got, "_id")
	want := map[string]any{
		"number":        "A-1",
		"qty":           2.0,
		"customer_name": "ann",
		"shape": map[string]any{
			"__type": "Circle",
			"label":  nil,
			"radius": 2.0,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, strings.HasPrefix(out, `{"_id":`), "canonical JSON sorts keys")
	assert.Contains(t, stderr, "orders/"+id+" sha256:")

	out, _, err = run(t, "encode", "--schema", schema, "--type", "Order", "--data", data, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "customer_name: ann")
	assert.Contains(t, out, "__type: Circle")
}

func TestErrors(t *testing.T) {
	t.Parallel()
	schema := write(t, "schema.yaml", schemaYAML)
	data := write(t, "order.yaml", orderYAML)

	tests := map[string][]string{
		"missing schema":    {"columns"},
		"unreadable schema": {"columns", "--schema", filepath.Join(t.TempDir(), "missing.yaml")},
		"unknown type":      {"columns", "--schema", schema, "--type", "Nope"},
		"embeddable type":   {"encode", "--schema", schema, "--type", "Customer", "--data", data},
		"unknown output":    {"columns", "--schema", schema, "-o", "xml"},
		"missing type":      {"encode", "--schema", schema, "--data", data},
		"bad data":          {"encode", "--schema", schema, "--type", "Order", "--data", write(t, "bad.yaml", "number: [")},
		"unknown field":     {"encode", "--schema", schema, "--type", "Order", "--data", write(t, "x.yaml", "nope: 1")},
	}
	for name, args := range tests {
		_, _, err := run(t, args...)
		assert.Errorf(t, err, name)
	}
}

func TestRouter(t *testing.T) {
	t.Parallel()
	schemas, err := load.ParseYAML([]byte(schemaYAML))
	require.NoError(t, err)
	g, err := graph.NewGraph(schemas)
	require.NoError(t, err)
	r, err := newRouter(g, document.NewMemory(), zap.NewNop())
	require.NoError(t, err)

	body := `{"number":"A-1","customer":{"name":"ann"},"shape":{"@type":"Circle","radius":2}}`
	req := httptest.NewRequest(http.MethodPost, "/api/Order", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "ann", doc["customer_name"])
	assert.Equal(t, map[string]any{"__type": "Circle", "label": nil, "radius": 2.0}, doc["shape"])
}

func TestWatchSchema(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schemaYAML), 0o600))
	// replace swaps the schema file the way editors save it.
	replace := func(data string) {
		tmp := filepath.Join(dir, "schema.yaml.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte(data), 0o600))
		require.NoError(t, os.Rename(tmp, path))
	}

	db := document.NewMemory()
	live, err := newLiveRouter(func() (*gin.Engine, error) {
		schemas, err := load.ReadFile(path)
		if err != nil {
			return nil, err
		}
		g, err := graph.NewGraph(schemas)
		if err != nil {
			return nil, err
		}
		return newRouter(g, db, zap.NewNop())
	})
	require.NoError(t, err)
	layout := func() int {
		w := httptest.NewRecorder()
		live.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/Invoice/_layout", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusBadRequest, layout())

	w, err := newSchemaWatcher(path, live, zap.NewNop())
	require.NoError(t, err)
	w.reloaded = make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	next := func() error {
		select {
		case err := <-w.reloaded:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("schema was not reloaded")
			return nil
		}
	}

	replace(schemaYAML + `
  - name: Invoice
    fields:
      - {name: total, type: float64}
`)
	require.NoError(t, next())
	assert.Equal(t, http.StatusOK, layout())

	replace("types: [")
	assert.Error(t, next())
	assert.Equal(t, http.StatusOK, layout(), "a broken schema keeps the previous router")
}
