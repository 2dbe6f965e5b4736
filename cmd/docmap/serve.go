package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/docmap/contrib/rest"
	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/dialect/document/mongodb"
	"github.com/syssam/docmap/graph"
	"github.com/syssam/docmap/session"
)

const (
	flagAddr  = "addr"
	flagWatch = "watch"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the objects of a schema over HTTP",
		Long: `serve exposes the types of a schema under /api. Objects are kept in
  memory unless a MongoDB connection string is given. With --watch, the
  schema file is compiled again whenever it changes.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String(flagAddr, ":8080", "address to listen on")
	cmd.Flags().String(flagURI, "", "MongoDB connection string, in-memory storage when empty")
	cmd.Flags().String(flagDatabase, "docmap", "MongoDB database name")
	cmd.Flags().Bool(flagWatch, false, "reload the schema file when it changes")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	var db document.Database = document.NewMemory(document.WithMemoryLogger(logger))
	if uri, _ := cmd.Flags().GetString(flagURI); uri != "" {
		name, _ := cmd.Flags().GetString(flagDatabase)
		mdb, disconnect, err := mongodb.Connect(ctx, uri, name, mongodb.WithLogger(logger))
		if err != nil {
			return err
		}
		defer func() { _ = disconnect(ctx) }()
		db = mdb
	}
	gin.SetMode(gin.ReleaseMode)
	live, err := newLiveRouter(func() (*gin.Engine, error) {
		g, err := loadGraph(cmd)
		if err != nil {
			return nil, err
		}
		return newRouter(g, db, logger)
	})
	if err != nil {
		return err
	}
	if watch, _ := cmd.Flags().GetBool(flagWatch); watch {
		path, _ := cmd.Flags().GetString(flagSchema)
		w, err := newSchemaWatcher(path, live, logger)
		if err != nil {
			return err
		}
		go w.Run(ctx)
	}
	addr, _ := cmd.Flags().GetString(flagAddr)
	logger.Info("serving", zap.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           live,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func newRouter(g *graph.Graph, db document.Database, logger *zap.Logger) (*gin.Engine, error) {
	sess, err := session.Open(g, db, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	r := gin.New()
	r.Use(gin.Recovery())
	rest.New(sess, db, rest.WithLogger(logger)).Register(r.Group("/api"))
	return r, nil
}
