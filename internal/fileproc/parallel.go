// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error { return e.Err }

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Len returns the number of collected errors.
func (e *ProcessingErrors) Len() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// Sorted returns the collected errors ordered by path.
func (e *ProcessingErrors) Sorted() []ProcessingError {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	out := append([]ProcessingError(nil), e.Errors...)
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Count returns how many collected errors match target.
func (e *ProcessingErrors) Count(target error) int {
	n := 0
	for _, pe := range e.Sorted() {
		if errors.Is(pe.Err, target) {
			n++
		}
	}
	return n
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap returns nil (ProcessingErrors doesn't wrap a single error).
func (e *ProcessingErrors) Unwrap() error {
	return nil
}

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Options configures a parallel run.
type Options struct {
	// Workers bounds the number of goroutines. Zero or less means NumCPU.
	Workers int
	// OnProgress is called once per file, failed or not.
	OnProgress ProgressFunc
}

// Workers returns n, or NumCPU when n is not positive.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// MapFiles runs fn for every path on a bounded pool and joins before
// returning. results[i] belongs to files[i]; a file whose fn failed keeps
// the zero value and its error is collected in the returned
// ProcessingErrors (nil when there were none).
//
// When ctx is cancelled, work that has not started is skipped, results are
// discarded and the context's cause is returned.
func MapFiles[T any](ctx context.Context, files []string, opts Options, fn func(context.Context, string) (T, error)) ([]T, *ProcessingErrors, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, context.Cause(ctx)
	}
	if len(files) == 0 {
		return []T{}, nil, nil
	}

	// Each goroutine writes only its own index, so no mutex is needed.
	results := make([]T, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(Workers(opts.Workers)).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result, err := fn(ctx, path)
			if opts.OnProgress != nil {
				opts.OnProgress()
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs.Add(path, err)
				return nil // don't stop the pool on individual file errors
			}
			results[i] = result
			return nil
		})
	}
	_ = p.Wait() // cancellation is reported from ctx below

	if ctx.Err() != nil {
		return nil, nil, context.Cause(ctx)
	}
	if !errs.HasErrors() {
		return results, nil, nil
	}
	return results, errs, nil
}
