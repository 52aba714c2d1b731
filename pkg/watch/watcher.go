// Package watch re-runs the reference analysis when files under a root
// change.
package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/refgraph/pkg/analyzer"
	"github.com/panbanda/refgraph/pkg/config"
	"github.com/panbanda/refgraph/pkg/models"
	"github.com/panbanda/refgraph/pkg/rules"
)

// DefaultDebounce is how long a path must be quiet before a re-run.
const DefaultDebounce = 500 * time.Millisecond

// Handler receives every analysis run. changed is nil for the initial run
// and otherwise lists the settled paths, relative to the root.
type Handler func(result *models.AnalysisResult, changed []string, err error)

// Watcher monitors a tree and re-runs a ReferenceAnalyzer on changes. The
// reference graph is global, so any change re-analyzes the whole tree.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	analyzer    analyzer.ReferenceAnalyzer
	root        string
	debounce    time.Duration
	excludeDirs map[string]struct{}
	excluded    *rules.Set
	ignore      map[string]struct{}
	handler     Handler
	out         io.Writer
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates a watcher for root. Directories and patterns excluded
// by cfg are not watched.
func NewWatcher(root string, cfg *config.Config, a analyzer.ReferenceAnalyzer, debounce time.Duration) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	excluded, err := rules.Compile(cfg.Exclude.Patterns)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dirs := make(map[string]struct{}, len(cfg.Exclude.Dirs))
	for _, d := range cfg.Exclude.Dirs {
		dirs[d] = struct{}{}
	}

	return &Watcher{
		fsWatcher:   fsWatcher,
		analyzer:    a,
		root:        absRoot,
		debounce:    debounce,
		excludeDirs: dirs,
		excluded:    excluded,
		ignore:      make(map[string]struct{}),
		out:         os.Stdout,
		logger:      slog.Default(),
		pending:     make(map[string]time.Time),
	}, nil
}

// SetHandler sets the function called after every run.
func (w *Watcher) SetHandler(h Handler) {
	w.handler = h
}

// SetOutput sets where status lines are written.
func (w *Watcher) SetOutput(out io.Writer) {
	w.out = out
}

// SetLogger sets the logger for watch errors.
func (w *Watcher) SetLogger(l *slog.Logger) {
	w.logger = l
}

// Ignore excludes files from triggering a run, such as a report written
// inside the watched tree.
func (w *Watcher) Ignore(paths ...string) {
	for _, p := range paths {
		if rel, ok := w.relative(p); ok {
			w.ignore[rel] = struct{}{}
		}
	}
}

// Start watches until ctx is done. It runs the analysis once up front and
// again each time pending changes settle.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	color.New(color.FgCyan).Fprintf(w.out, "Watching for changes in %s...\n", w.root)
	color.New(color.FgCyan).Fprintln(w.out, "Press Ctrl+C to stop")
	fmt.Fprintln(w.out)

	w.run(ctx, nil)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addTree watches dir and every directory below it that is not excluded.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) skipDir(name string) bool {
	_, ok := w.excludeDirs[name]
	return ok
}

// relative returns the slash-separated path of p under the root.
func (w *Watcher) relative(p string) (string, bool) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// handleEvent queues a change. Chmod events and excluded paths are
// dropped; new directories are watched as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	rel, ok := w.relative(event.Name)
	if !ok {
		return
	}
	for _, segment := range strings.Split(rel, "/") {
		if w.skipDir(segment) {
			return
		}
	}
	if _, ignored := w.ignore[rel]; ignored || w.excluded.Match(rel) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watching new directory", "path", rel, "error", err)
			}
		}
	}

	w.mu.Lock()
	w.pending[rel] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending re-runs the analysis once for every path that has been
// quiet for the debounce period. Runs never overlap: only the debounce
// goroutine calls it.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}
	sort.Strings(ready)
	w.run(ctx, ready)
}

func (w *Watcher) run(ctx context.Context, changed []string) {
	if changed != nil {
		color.New(color.FgYellow).Fprintf(w.out, "\nChanged: %s\n", strings.Join(changed, ", "))
		fmt.Fprintln(w.out, strings.Repeat("-", 40))
	}

	result, err := w.analyzer.Analyze(ctx, w.root)
	if ctx.Err() != nil {
		return
	}
	if w.handler != nil {
		w.handler(result, changed, err)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
