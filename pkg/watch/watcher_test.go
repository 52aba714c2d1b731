package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/refgraph/pkg/config"
	"github.com/panbanda/refgraph/pkg/models"
)

// countingAnalyzer records each run and returns an empty result.
type countingAnalyzer struct {
	mu    sync.Mutex
	runs  int
	roots []string
	err   error
}

func (a *countingAnalyzer) Analyze(ctx context.Context, root string) (*models.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs++
	a.roots = append(a.roots, root)
	if a.err != nil {
		return nil, a.err
	}
	return models.NewAnalysisResult(), nil
}

func (a *countingAnalyzer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runs
}

func newTestWatcher(t *testing.T, root string, a *countingAnalyzer, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(root, config.DefaultConfig(), a, debounce)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.SetOutput(io.Discard)
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"default debounce", 0, DefaultDebounce},
		{"custom debounce", time.Second, time.Second},
		{"negative debounce defaults", -time.Second, DefaultDebounce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t, tmpDir, &countingAnalyzer{}, tt.debounce)
			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
			if w.pending == nil {
				t.Error("pending map should be initialized")
			}
			if _, ok := w.excludeDirs["node_modules"]; !ok {
				t.Error("default excluded dirs should be loaded")
			}
		})
	}
}

func TestNewWatcher_BadPattern(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"[bad"}
	if _, err := NewWatcher(t.TempDir(), cfg, &countingAnalyzer{}, 0); err == nil {
		t.Error("expected error for invalid exclude pattern")
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, &countingAnalyzer{}, time.Second)
	w.Ignore(filepath.Join(tmpDir, "report.json"))

	tests := []struct {
		name   string
		event  fsnotify.Event
		queued string
	}{
		{"write", fsnotify.Event{Name: filepath.Join(tmpDir, "main.js"), Op: fsnotify.Write}, "main.js"},
		{"create nested", fsnotify.Event{Name: filepath.Join(tmpDir, "src", "a.py"), Op: fsnotify.Create}, "src/a.py"},
		{"remove", fsnotify.Event{Name: filepath.Join(tmpDir, "old.css"), Op: fsnotify.Remove}, "old.css"},
		{"rename", fsnotify.Event{Name: filepath.Join(tmpDir, "moved.ts"), Op: fsnotify.Rename}, "moved.ts"},
		{"chmod ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "x.js"), Op: fsnotify.Chmod}, ""},
		{"excluded dir", fsnotify.Event{Name: filepath.Join(tmpDir, "node_modules", "p", "i.js"), Op: fsnotify.Write}, ""},
		{"ignored file", fsnotify.Event{Name: filepath.Join(tmpDir, "report.json"), Op: fsnotify.Write}, ""},
		{"outside root", fsnotify.Event{Name: filepath.Join(filepath.Dir(tmpDir), "elsewhere.js"), Op: fsnotify.Write}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.mu.Lock()
			w.pending = make(map[string]time.Time)
			w.mu.Unlock()

			w.handleEvent(tt.event)

			w.mu.Lock()
			defer w.mu.Unlock()
			if tt.queued == "" {
				if len(w.pending) != 0 {
					t.Errorf("expected nothing queued, got %v", w.pending)
				}
				return
			}
			if _, ok := w.pending[tt.queued]; !ok || len(w.pending) != 1 {
				t.Errorf("pending = %v, want %s", w.pending, tt.queued)
			}
		})
	}
}

func TestWatcher_handleEvent_ExcludedPattern(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"**/*.gen.js"}
	tmpDir := t.TempDir()
	w, err := NewWatcher(tmpDir, cfg, &countingAnalyzer{}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.handleEvent(fsnotify.Event{Name: filepath.Join(tmpDir, "src", "api.gen.js"), Op: fsnotify.Write})
	if len(w.pending) != 0 {
		t.Errorf("excluded pattern should not queue: %v", w.pending)
	}
}

func TestWatcher_handleEvent_NewDirectoryIsWatched(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, &countingAnalyzer{}, time.Second)

	newDir := filepath.Join(tmpDir, "pkg")
	if err := os.MkdirAll(filepath.Join(newDir, "inner"), 0o755); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: newDir, Op: fsnotify.Create})

	watched := map[string]bool{}
	for _, d := range w.WatchedDirs() {
		watched[d] = true
	}
	if !watched[newDir] || !watched[filepath.Join(newDir, "inner")] {
		t.Errorf("new directories not watched: %v", w.WatchedDirs())
	}
}

func TestWatcher_processPending(t *testing.T) {
	a := &countingAnalyzer{}
	w := newTestWatcher(t, t.TempDir(), a, 50*time.Millisecond)

	var gotChanged []string
	w.SetHandler(func(result *models.AnalysisResult, changed []string, err error) {
		gotChanged = changed
	})

	old := time.Now().Add(-time.Second)
	w.pending["b.js"] = old
	w.pending["a.js"] = old
	w.pending["fresh.js"] = time.Now()

	w.processPending(context.Background())

	if a.count() != 1 {
		t.Errorf("runs = %d, want 1 for a batch of settled changes", a.count())
	}
	if len(gotChanged) != 2 || gotChanged[0] != "a.js" || gotChanged[1] != "b.js" {
		t.Errorf("changed = %v, want [a.js b.js]", gotChanged)
	}
	if _, ok := w.pending["fresh.js"]; !ok || len(w.pending) != 1 {
		t.Errorf("unsettled change should stay pending: %v", w.pending)
	}
}

func TestWatcher_processPending_NothingReady(t *testing.T) {
	a := &countingAnalyzer{}
	w := newTestWatcher(t, t.TempDir(), a, time.Hour)
	w.pending["a.js"] = time.Now()

	w.processPending(context.Background())

	if a.count() != 0 {
		t.Errorf("runs = %d, want 0", a.count())
	}
}

func TestWatcher_runReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &countingAnalyzer{err: boom}
	w := newTestWatcher(t, t.TempDir(), a, time.Second)

	var got error
	w.SetHandler(func(result *models.AnalysisResult, changed []string, err error) {
		got = err
	})
	w.run(context.Background(), []string{"x.js"})

	if !errors.Is(got, boom) {
		t.Errorf("handler error = %v, want %v", got, boom)
	}
}

func TestWatcher_Start_Context(t *testing.T) {
	a := &countingAnalyzer{}
	w := newTestWatcher(t, t.TempDir(), a, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
	if a.count() < 1 {
		t.Error("initial analysis should run on start")
	}
}

func TestWatcher_Start_FileChange(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	a := &countingAnalyzer{}
	w := newTestWatcher(t, tmpDir, a, 50*time.Millisecond)

	changes := make(chan []string, 4)
	w.SetHandler(func(result *models.AnalysisResult, changed []string, err error) {
		if changed != nil {
			changes <- changed
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	for _, d := range w.WatchedDirs() {
		if filepath.Base(d) == "node_modules" {
			t.Error("node_modules should not be watched")
		}
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "main.js"), []byte("import './a'\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case changed := <-changes:
		if len(changed) != 1 || changed[0] != "main.js" {
			t.Errorf("changed = %v, want [main.js]", changed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no re-run after file change")
	}
}
