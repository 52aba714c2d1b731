package models

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// AnalysisResult is the outcome of one analysis run.
type AnalysisResult struct {
	TotalFiles       int               `json:"totalFiles"`
	AnalyzedFiles    int               `json:"analyzedFiles"`
	UnusedFiles      []UnusedFile      `json:"unusedFiles"`
	BrokenReferences []BrokenReference `json:"brokenReferences"`
	EntryPoints      []string          `json:"entryPoints,omitempty"`
	Cycles           [][]string        `json:"cycles,omitempty"`
}

// NewAnalysisResult returns a result with non-nil lists so that JSON output
// always carries arrays.
func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		UnusedFiles:      []UnusedFile{},
		BrokenReferences: []BrokenReference{},
	}
}

// Sort puts every list into its canonical order.
func (r *AnalysisResult) Sort() {
	sort.Slice(r.UnusedFiles, func(i, j int) bool {
		return r.UnusedFiles[i].FilePath < r.UnusedFiles[j].FilePath
	})
	sort.Slice(r.BrokenReferences, func(i, j int) bool {
		a, b := r.BrokenReferences[i], r.BrokenReferences[j]
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		if a.LineNumber != b.LineNumber {
			return a.LineNumber < b.LineNumber
		}
		if a.ReferencedPath != b.ReferencedPath {
			return a.ReferencedPath < b.ReferencedPath
		}
		return a.ReferenceType < b.ReferenceType
	})
	sort.Strings(r.EntryPoints)
	for _, c := range r.Cycles {
		sort.Strings(c)
	}
	sort.Slice(r.Cycles, func(i, j int) bool {
		return strings.Join(r.Cycles[i], "\x00") < strings.Join(r.Cycles[j], "\x00")
	})
}

// Fingerprint returns an xxhash of the canonical JSON encoding. Two runs over
// the same tree and configuration produce the same fingerprint.
func (r *AnalysisResult) Fingerprint() uint64 {
	data, err := json.Marshal(r)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}

// HasBroken reports whether any reference failed to resolve.
func (r *AnalysisResult) HasBroken() bool {
	return len(r.BrokenReferences) > 0
}

// HasUnused reports whether any file was classified unused.
func (r *AnalysisResult) HasUnused() bool {
	return len(r.UnusedFiles) > 0
}

// UnusedBytes sums the size of all unused files.
func (r *AnalysisResult) UnusedBytes() int64 {
	var total int64
	for _, f := range r.UnusedFiles {
		total += f.FileSize
	}
	return total
}
