// Package watch re-runs work when source files change. A recursive
// fsnotify watcher feeds a debounce timer so bursts of writes (editor
// saves, git checkouts) collapse into one trigger.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"turnstile/internal/logging"
)

// DefaultDebounce is the trigger delay when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options configures one watch loop.
type Options struct {
	Root     string
	Debounce time.Duration
	OnChange func(context.Context) // called after the debounce window closes
	Logger   *slog.Logger
}

// Run watches the tree under Root and invokes OnChange after each settled
// burst of .go file changes. It returns when ctx is cancelled. Directories
// created while watching are picked up.
func Run(ctx context.Context, opts Options) error {
	if opts.OnChange == nil {
		return fmt.Errorf("watch: OnChange is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}
	defer w.Close()

	if err := addRecursive(w, opts.Root); err != nil {
		return fmt.Errorf("watch %s: %w", opts.Root, err)
	}
	logger.Info("watching for changes", "root", opts.Root, "debounce", debounce)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ignoredUnder(opts.Root, ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					_ = addRecursive(w, ev.Name)
					continue
				}
			}
			if !strings.HasSuffix(ev.Name, ".go") {
				continue
			}
			logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if ctx.Err() != nil {
					return
				}
				opts.OnChange(ctx)
			})
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", werr)
		}
	}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "vendor" || name == "node_modules" || name == "testdata"
}

// ignoredUnder tests the path segments below root only, so a repo that
// itself lives under a dotted directory still gets events.
func ignoredUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "." && part != ".." && skipDir(part) {
			return true
		}
	}
	return false
}
