package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Reloader is a file-backed option source that can re-read its file.
type Reloader interface {
	Path() string
	Reload() error
}

// CatalogWatcher reloads the catalog when its file changes and invalidates
// the engine after every successful reload. A failed reload keeps the
// previous content and the current index.
type CatalogWatcher struct {
	catalog  Reloader
	inv      Invalidator
	debounce time.Duration
	logger   *slog.Logger
}

func NewCatalogWatcher(catalog Reloader, inv Invalidator, debounce time.Duration) *CatalogWatcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &CatalogWatcher{
		catalog:  catalog,
		inv:      inv,
		debounce: debounce,
		logger:   slog.Default().With("component", "catalog-watcher", "path", catalog.Path()),
	}
}

// Start watches the catalog's directory, so editors that replace the file by
// rename are seen too. It blocks until ctx is cancelled.
func (w *CatalogWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(w.catalog.Path())
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	w.logger.Info("catalog watcher started")

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("catalog watcher stopping", "reason", ctx.Err())
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() == nil {
					w.reload()
				}
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *CatalogWatcher) reload() {
	if err := w.catalog.Reload(); err != nil {
		w.logger.Error("catalog reload failed, keeping previous content", "error", err)
		return
	}
	w.inv.Invalidate("catalog")
}
