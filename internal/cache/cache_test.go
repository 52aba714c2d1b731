package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/panbanda/refgraph/pkg/models"
)

var sampleRefs = []models.RawReference{
	{Source: "src/main.js", Line: 1, Column: 8, Type: models.RefImport, Raw: "./util", Target: "./util"},
	{Source: "src/main.js", Line: 2, Column: 1, Type: models.RefRequire, Raw: "./b", Target: "./b"},
}

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	c := newCache(t)
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}

	c, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}

	var nilCache *Cache
	if nilCache.Enabled() {
		t.Error("nil cache should be disabled")
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache", "dir")
	if _, err := New(cacheDir, 24, true); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("New() should create cache directory")
	}
}

func TestSetAndGet(t *testing.T) {
	c := newCache(t)
	content := []byte("import './util'\nrequire('./b')\n")

	if err := c.Set("src/main.js", "ecmascript", content, sampleRefs); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, ok := c.Get("src/main.js", "ecmascript", content)
	if !ok {
		t.Fatal("Get() should hit after Set()")
	}
	if !reflect.DeepEqual(got, sampleRefs) {
		t.Errorf("Get() = %+v, want %+v", got, sampleRefs)
	}
}

func TestGetMisses(t *testing.T) {
	c := newCache(t)
	content := []byte("require('./b')")
	if err := c.Set("a.js", "ecmascript", content, sampleRefs); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("other.js", "ecmascript", content); ok {
		t.Error("Get() hit for a different path")
	}
	if _, ok := c.Get("a.js", "ecmascript", []byte("changed")); ok {
		t.Error("Get() hit for changed content")
	}
	if _, ok := c.Get("a.js", "markup", content); ok {
		t.Error("Get() hit for a different extractor")
	}
}

func TestEmptyReferences(t *testing.T) {
	c := newCache(t)
	if err := c.Set("empty.js", "ecmascript", nil, nil); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get("empty.js", "ecmascript", nil)
	if !ok {
		t.Fatal("Get() should hit")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Get() = %v, want empty non-nil", got)
	}
}

func TestCorruptEntry(t *testing.T) {
	c := newCache(t)
	if err := os.WriteFile(c.keyPath("a.js"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("a.js", "ecmascript", nil); ok {
		t.Error("Get() should miss on a corrupt entry")
	}
}

func TestInvalidate(t *testing.T) {
	c := newCache(t)
	content := []byte("x")
	if err := c.Set("a.js", "ecmascript", content, sampleRefs); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate("a.js"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, ok := c.Get("a.js", "ecmascript", content); ok {
		t.Error("Get() should miss after Invalidate()")
	}
	if err := c.Invalidate("a.js"); err != nil {
		t.Errorf("Invalidate() of a missing entry should not error: %v", err)
	}
}

func TestClear(t *testing.T) {
	c := newCache(t)
	if err := c.Set("a.js", "ecmascript", nil, sampleRefs); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(c.dir); !os.IsNotExist(err) {
		t.Error("Clear() should remove the cache directory")
	}
}

func TestDisabledCache(t *testing.T) {
	c, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := c.Set("a.js", "ecmascript", nil, sampleRefs); err != nil {
		t.Errorf("Set() on disabled cache should not error: %v", err)
	}
	if _, ok := c.Get("a.js", "ecmascript", nil); ok {
		t.Error("Get() on disabled cache should return false")
	}
	if err := c.Invalidate("a.js"); err != nil {
		t.Errorf("Invalidate() on disabled cache should not error: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear() on disabled cache should not error: %v", err)
	}
}

func TestHashBytes(t *testing.T) {
	hash1 := HashBytes([]byte("hello world"))
	hash2 := HashBytes([]byte("hello world"))
	hash3 := HashBytes([]byte("different"))

	if len(hash1) != 64 {
		t.Errorf("HashBytes() length = %d, want 64 hex chars", len(hash1))
	}
	if hash1 != hash2 {
		t.Error("HashBytes() should return consistent hashes for same content")
	}
	if hash1 == hash3 {
		t.Error("HashBytes() should return different hashes for different content")
	}
}

func TestGetStats(t *testing.T) {
	c := newCache(t)

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Empty cache should have 0 entries, got %d", stats.Entries)
	}

	for _, p := range []string{"a.js", "b.js", "c.js"} {
		if err := c.Set(p, "ecmascript", []byte(p), sampleRefs); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	}

	stats, err = c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("Cache should have 3 entries, got %d", stats.Entries)
	}
	if stats.TotalSize <= 0 {
		t.Error("TotalSize should be positive")
	}
}

func TestTTLExpiration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping TTL test in short mode")
	}

	c := &Cache{
		dir:     filepath.Join(t.TempDir(), "cache"),
		ttl:     1 * time.Second,
		enabled: true,
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		t.Fatal(err)
	}

	content := []byte("x")
	if err := c.Set("a.js", "ecmascript", content, sampleRefs); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, ok := c.Get("a.js", "ecmascript", content); !ok {
		t.Error("Get() should return data before TTL expires")
	}

	time.Sleep(2 * time.Second)

	if _, ok := c.Get("a.js", "ecmascript", content); ok {
		t.Error("Get() should return false after TTL expires")
	}
}

func TestKeyPath(t *testing.T) {
	c := newCache(t)

	path1 := c.keyPath("src/a.js")
	path2 := c.keyPath("src/b.js")

	if path1 == path2 {
		t.Error("Different keys should produce different paths")
	}
	if path1 != c.keyPath("src/a.js") {
		t.Error("Same keys should produce same paths")
	}
	if filepath.Ext(path1) != ".json" {
		t.Errorf("Key path should end with .json, got %s", path1)
	}
	if filepath.Dir(path1) != c.dir {
		t.Errorf("Key path should be in cache directory")
	}
}
