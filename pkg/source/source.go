// Package source provides bounded, cancellable access to file contents.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrTooLarge is returned when a file exceeds the size budget.
	ErrTooLarge = errors.New("file exceeds size budget")
	// ErrReadTimeout is returned when a read exceeds the time budget.
	ErrReadTimeout = errors.New("file read exceeded time budget")
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path. Implementations must
	// honor ctx cancellation.
	Read(ctx context.Context, path string) ([]byte, error)
}

// Budget bounds a single read.
type Budget struct {
	MaxSize int64         // <= 0 means unlimited
	Timeout time.Duration // <= 0 means no deadline beyond ctx
}

const chunkSize = 64 << 10

// FilesystemSource reads files from the local filesystem within a budget.
// It is safe for concurrent use.
type FilesystemSource struct {
	budget Budget
	root   string
}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem(budget Budget) *FilesystemSource {
	return &FilesystemSource{budget: budget}
}

// WithRoot returns a copy of f that resolves relative, slash-separated
// paths against root.
func (f *FilesystemSource) WithRoot(root string) *FilesystemSource {
	return &FilesystemSource{budget: f.budget, root: root}
}

// Read implements ContentSource. The file is read in chunks so that a slow
// device or a file growing past the size budget is abandoned between chunks.
func (f *FilesystemSource) Read(ctx context.Context, path string) ([]byte, error) {
	if f.budget.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, f.budget.Timeout, ErrReadTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, readErr(ctx, path, err)
	}

	if f.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.root, filepath.FromSlash(path))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}
	if f.budget.MaxSize > 0 && info.Size() > f.budget.MaxSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", path, info.Size(), ErrTooLarge)
	}

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	chunk := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, readErr(ctx, path, err)
		}
		n, err := file.Read(chunk)
		buf.Write(chunk[:n])
		if f.budget.MaxSize > 0 && int64(buf.Len()) > f.budget.MaxSize {
			return nil, fmt.Errorf("%s: %w", path, ErrTooLarge)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// readErr distinguishes the per-file deadline from run cancellation: the
// former is a local read failure, the latter must propagate as-is.
func readErr(ctx context.Context, path string, err error) error {
	if errors.Is(context.Cause(ctx), ErrReadTimeout) {
		return fmt.Errorf("%s: %w", path, ErrReadTimeout)
	}
	return err
}

// MemorySource serves contents from memory. It is safe for concurrent use
// and is used by watch-mode tests and by callers that already hold file data.
type MemorySource struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory creates a source from a path -> content map.
func NewMemory(files map[string]string) *MemorySource {
	m := &MemorySource{files: make(map[string][]byte, len(files))}
	for k, v := range files {
		m.files[k] = []byte(v)
	}
	return m
}

// Set stores content for path.
func (m *MemorySource) Set(path string, content []byte) {
	m.mu.Lock()
	m.files[path] = content
	m.mu.Unlock()
}

// Read implements ContentSource.
func (m *MemorySource) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return data, nil
}
