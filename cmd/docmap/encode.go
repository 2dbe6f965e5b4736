package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	yamlv3 "gopkg.in/yaml.v3"
	"sigs.k8s.io/yaml"

	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/session"
)

func newEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode --type name --data file",
		Short: "Print the document an object is stored as",
		Long: `encode builds an object of the given type from a YAML data file and
  prints the document it is stored as. Related objects that are stored
  in documents of their own are written to a scratch database. The digest
  of the document is printed to stderr.`,
		Args: cobra.NoArgs,
		RunE: runEncode,
	}
	cmd.Flags().String(flagType, "", "type of the object")
	cmd.Flags().String(flagData, "-", "YAML file holding the object, - for stdin")
	cmd.Flags().StringP(flagOutput, "o", "json", "output format (json, yaml)")
	_ = cmd.MarkFlagRequired(flagType)
	return cmd
}

func runEncode(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	db := document.NewMemory(document.WithMemoryLogger(logger))
	o, err := persistData(cmd, db, logger)
	if err != nil {
		return err
	}
	coll := db.MemoryCollection(o.Type().Root().Collection)
	doc, err := coll.Get(ctx, o.ID())
	if err != nil {
		return err
	}
	dg, err := coll.Digest(o.ID())
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString(flagOutput)
	data, err := encodeDocument(output, doc)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "%s/%s %s\n", coll.Name(), o.ID(), dg)
	return err
}

// persistData builds the object described by the --data file and persists
// it into db.
func persistData(cmd *cobra.Command, db document.Database, logger *zap.Logger) (*session.Object, error) {
	g, err := loadGraph(cmd)
	if err != nil {
		return nil, err
	}
	t, err := rootType(cmd, g)
	if err != nil {
		return nil, err
	}
	m, err := readData(cmd)
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(g, db, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	o, err := sess.FromMap(ctx, t.Name, m)
	if err != nil {
		return nil, err
	}
	if err := sess.Persist(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func readData(cmd *cobra.Command) (map[string]any, error) {
	path, err := cmd.Flags().GetString(flagData)
	if err != nil {
		return nil, err
	}
	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading object data: %w", err)
	}
	var m map[string]any
	if err := yamlv3.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding object data: %w", err)
	}
	if m == nil {
		return nil, errors.New("object data is empty")
	}
	return m, nil
}

// encodeDocument renders doc as canonical JSON or as YAML, both derived
// from its relaxed extended JSON form.
func encodeDocument(output string, doc *document.Node) ([]byte, error) {
	ext, err := doc.ExtJSON(false)
	if err != nil {
		return nil, fmt.Errorf("encoding document failed: %w", err)
	}
	switch output {
	case "json":
		data, err := jsoncanonicalizer.Transform(ext)
		if err != nil {
			return nil, fmt.Errorf("canonicalizing document failed: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.JSONToYAML(ext)
		if err != nil {
			return nil, fmt.Errorf("encoding document as yaml failed: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", output)
	}
}
