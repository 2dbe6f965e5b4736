package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// liveRouter serves the router built from the latest schema.
type liveRouter struct {
	current atomic.Pointer[gin.Engine]
	build   func() (*gin.Engine, error)
}

func newLiveRouter(build func() (*gin.Engine, error)) (*liveRouter, error) {
	l := &liveRouter{build: build}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// reload replaces the router. The previous one stays in place on error.
func (l *liveRouter) reload() error {
	r, err := l.build()
	if err != nil {
		return err
	}
	l.current.Store(r)
	return nil
}

func (l *liveRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.current.Load().ServeHTTP(w, r)
}

// schemaWatcher reloads a liveRouter when its schema file is written or
// replaced.
type schemaWatcher struct {
	path    string
	live    *liveRouter
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	// reloaded, when set, receives the outcome of every reload.
	reloaded chan error
}

func newSchemaWatcher(path string, live *liveRouter, logger *zap.Logger) (*schemaWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	// Editors save by renaming over the file, so the directory is watched.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	return &schemaWatcher{
		path:    filepath.Clean(path),
		live:    live,
		watcher: w,
		logger:  logger,
	}, nil
}

// Run handles file events until ctx is done.
func (s *schemaWatcher) Run(ctx context.Context) {
	defer func() { _ = s.watcher.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			err := s.live.reload()
			if err != nil {
				s.logger.Warn("schema reload failed, keeping the previous schema", zap.String("path", s.path), zap.Error(err))
			} else {
				s.logger.Info("schema reloaded", zap.String("path", s.path))
			}
			if s.reloaded != nil {
				select {
				case s.reloaded <- err:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("schema watcher", zap.Error(err))
		}
	}
}
