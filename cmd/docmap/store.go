package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/docmap/dialect/document/mongodb"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store --type name --data file --uri uri",
		Short: "Store an object into MongoDB",
		Long: `store builds an object of the given type from a YAML data file and
  persists it, with the objects its relations cascade to, into a MongoDB
  database. The identity of the stored object is printed.`,
		Args: cobra.NoArgs,
		RunE: runStore,
	}
	cmd.Flags().String(flagType, "", "type of the object")
	cmd.Flags().String(flagData, "-", "YAML file holding the object, - for stdin")
	cmd.Flags().String(flagURI, "mongodb://localhost:27017", "MongoDB connection string")
	cmd.Flags().String(flagDatabase, "docmap", "MongoDB database name")
	_ = cmd.MarkFlagRequired(flagType)
	return cmd
}

func runStore(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	uri, _ := cmd.Flags().GetString(flagURI)
	name, _ := cmd.Flags().GetString(flagDatabase)
	ctx := cmd.Context()
	db, disconnect, err := mongodb.Connect(ctx, uri, name, mongodb.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = disconnect(ctx) }()

	o, err := persistData(cmd, db, logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), o.ID())
	return err
}
