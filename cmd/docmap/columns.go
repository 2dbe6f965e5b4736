package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/dialect/document/docgraph"
	"github.com/syssam/docmap/graph"
)

func newColumnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns [--type name]",
		Short: "Show the document columns of the stored types",
		Args:  cobra.NoArgs,
		RunE:  runColumns,
	}
	cmd.Flags().String(flagType, "", "only show the columns of this type")
	cmd.Flags().StringP(flagOutput, "o", "table", "output format (table, yaml)")
	return cmd
}

// columnRow is the printed form of a column.
type columnRow struct {
	Type    string   `json:"type"`
	Node    string   `json:"node,omitempty"`
	Field   string   `json:"field,omitempty"`
	Shape   string   `json:"shape"`
	Columns []string `json:"columns"`
}

func runColumns(cmd *cobra.Command, _ []string) error {
	g, err := loadGraph(cmd)
	if err != nil {
		return err
	}
	var types []*graph.Type
	if name, _ := cmd.Flags().GetString(flagType); name != "" {
		t, err := rootType(cmd, g)
		if err != nil {
			return err
		}
		types = append(types, t)
	} else {
		for _, t := range g.Nodes {
			if !t.Root().Embeddable {
				types = append(types, t)
			}
		}
	}
	r := docgraph.NewResolver(g)
	var rows []columnRow
	for _, t := range types {
		trows, err := typeColumns(r, t)
		if err != nil {
			return err
		}
		rows = append(rows, trows...)
	}
	output, _ := cmd.Flags().GetString(flagOutput)
	data, err := encodeColumns(output, rows)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// typeColumns lists the columns of t, starting with the ones written by
// the lifecycle.
func typeColumns(r *docgraph.Resolver, t *graph.Type) ([]columnRow, error) {
	cols, err := docgraph.Layout(r, t)
	if err != nil {
		return nil, err
	}
	id := columnRow{Type: t.Name, Shape: "identity", Columns: []string{document.IDKey}}
	for _, f := range t.Fields {
		if f.Identity {
			id.Field = f.Name
			break
		}
	}
	rows := []columnRow{id}
	if t.HasDiscriminator() {
		rows = append(rows, columnRow{Type: t.Name, Shape: "discriminator", Columns: []string{t.Discriminator.Column}})
	}
	for _, c := range cols {
		row := columnRow{Type: t.Name, Node: c.Node, Field: c.Field, Shape: c.Shape.String(), Columns: c.Names}
		if c.Discriminator {
			row.Shape = "discriminator"
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func encodeColumns(output string, rows []columnRow) ([]byte, error) {
	switch output {
	case "table":
		return encodeColumnsAsTable(rows), nil
	case "yaml":
		data, err := yaml.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("encoding columns as yaml failed: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", output)
	}
}

func encodeColumnsAsTable(rows []columnRow) []byte {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Type", "Node", "Field", "Shape", "Columns"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Type, r.Node, r.Field, r.Shape, strings.Join(r.Columns, ", ")})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.Bytes()
}
