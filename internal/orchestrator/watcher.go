// File: internal/orchestrator/watcher.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/provenance"
)

const defaultDebounce = 300 * time.Millisecond

// SourceRegistry forgets everything registered from one provenance.
type SourceRegistry interface {
	UnregisterSource(source string) bool
}

// Watcher reloads a sandbox library whenever one of its Python files changes.
type Watcher struct {
	orch     *Orchestrator
	sandbox  *provenance.Sandbox
	registry SourceRegistry
	debounce time.Duration
	onReload func(*RunSummary)
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithReloadHook is called after every reload, including the initial load.
func WithReloadHook(fn func(*RunSummary)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a watcher for the sandbox at dir.
func NewWatcher(orch *Orchestrator, dir string, registry SourceRegistry, opts ...WatcherOption) (*Watcher, error) {
	if orch == nil || registry == nil {
		return nil, errors.New("cannot initialize watcher with nil dependencies")
	}
	if dir == "" {
		return nil, errors.New("sandbox directory is required")
	}
	w := &Watcher{
		orch:     orch,
		sandbox:  provenance.NewSandbox(dir),
		registry: registry,
		debounce: defaultDebounce,
		logger:   orch.logger.Named("watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run loads the sandbox once and then reloads it after each settled batch of
// changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.sandbox.Dir()); err != nil {
		return err
	}
	w.logger.Info("Watching sandbox for changes.", zap.String("dir", w.sandbox.Dir()))

	if err := w.reload(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Sandbox watcher stopped.")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addTree(fw, event.Name)
				}
			}
			if !isSourceFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug("Sandbox change detected.", zap.String("file", event.Name), zap.Stringer("op", event.Op))
				pending = true
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := w.reload(ctx); err != nil {
				return err
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error.", zap.Error(err))
		}
	}
}

// reload drops the previous registration and runs the sandbox lifecycle again.
func (w *Watcher) reload(ctx context.Context) error {
	if w.registry.UnregisterSource(w.sandbox.Key()) {
		w.logger.Debug("Unregistered previous sandbox library.")
	}
	summary, err := w.orch.RunEntries(ctx, []lifecycle.Entry{w.sandbox.CreateLibraryEntry()})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("sandbox reload failed: %w", err)
	}
	if w.onReload != nil {
		w.onReload(summary)
	}
	return nil
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "__pycache__") {
			return fs.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".py")
}
