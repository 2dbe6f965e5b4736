package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/schema/load"
)

const (
	flagSchema        = "schema"
	flagSeparator     = "separator"
	flagDiscriminator = "discriminator-column"
	flagVerbose       = "verbose"
	flagType          = "type"
	flagOutput        = "output"
	flagData          = "data"
	flagURI           = "uri"
	flagDatabase      = "database"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docmap [sub-command]",
		Short: "Inspect how object graphs are mapped onto documents",
		Long: `docmap loads a YAML schema file and shows the document layout of its
  types, encodes objects into the documents they are stored as, or stores
  them into MongoDB.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	flags := cmd.PersistentFlags()
	flags.String(flagSchema, "", "path of the YAML schema file")
	flags.String(flagSeparator, "_", "separator joining the columns of flat embedded values")
	flags.String(flagDiscriminator, graph.DefaultDiscriminatorColumn, "default discriminator column")
	flags.BoolP(flagVerbose, "v", false, "log engine activity to stderr")

	cmd.AddCommand(newColumnsCmd())
	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newStoreCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// loadGraph compiles the schema file named by the --schema flag.
func loadGraph(cmd *cobra.Command) (*graph.Graph, error) {
	flags := cmd.Flags()
	path, err := flags.GetString(flagSchema)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New("a schema file is required, use --schema")
	}
	schemas, err := load.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sep, err := flags.GetString(flagSeparator)
	if err != nil {
		return nil, err
	}
	col, err := flags.GetString(flagDiscriminator)
	if err != nil {
		return nil, err
	}
	g, err := graph.NewGraph(schemas, graph.WithSeparator(sep), graph.WithDiscriminatorColumn(col))
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, err)
	}
	return g, nil
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, err := cmd.Flags().GetBool(flagVerbose)
	if err != nil {
		return nil, err
	}
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// rootType returns the type named by the --type flag. Embeddable types
// have no documents of their own.
func rootType(cmd *cobra.Command, g *graph.Graph) (*graph.Type, error) {
	name, err := cmd.Flags().GetString(flagType)
	if err != nil {
		return nil, err
	}
	t, err := g.Type(name)
	if err != nil {
		return nil, err
	}
	if t.Root().Embeddable {
		return nil, fmt.Errorf("type %s is embeddable and is not stored on its own", t.Name)
	}
	return t, nil
}
