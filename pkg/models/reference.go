package models

import "strings"

// ReferenceType classifies how a source file names another file.
type ReferenceType string

const (
	RefImport  ReferenceType = "import"
	RefRequire ReferenceType = "require"
	RefInclude ReferenceType = "include"
	RefPath    ReferenceType = "path"
)

func (t ReferenceType) String() string { return string(t) }

// Valid reports whether t is one of the fixed reference types.
func (t ReferenceType) Valid() bool {
	switch t {
	case RefImport, RefRequire, RefInclude, RefPath:
		return true
	}
	return false
}

// FileNode is one file of the analyzed tree.
type FileNode struct {
	Path   string `json:"path"` // canonical, forward slashes, relative to the root
	Size   int64  `json:"size"`
	Source bool   `json:"source"` // an extractor is registered for this file
}

// Dir returns the directory part of the canonical path ("" at the root).
func (n FileNode) Dir() string {
	if i := strings.LastIndexByte(n.Path, '/'); i >= 0 {
		return n.Path[:i]
	}
	return ""
}

// RawReference is a reference as written in a source file, before resolution.
type RawReference struct {
	Source string        `json:"source"`
	Line   int           `json:"line"`
	Column int           `json:"column"`
	Type   ReferenceType `json:"type"`
	Raw    string        `json:"raw"`

	// Target is the lookup token derived from Raw. Extractors rewrite
	// language-specific module syntax (Python relative dots, require_relative)
	// into path form; for most references Target equals Raw.
	Target string `json:"target"`

	// Qualified marks dotted module names (Java packages, absolute Python
	// imports) that resolve against source roots rather than the file's dir.
	Qualified bool `json:"qualified,omitempty"`

	// Fallbacks are tried in order when Target does not resolve, such as
	// the package of a "from pkg import name" or a Sass partial. The first
	// one that resolves becomes the edge.
	Fallbacks []string `json:"fallbacks,omitempty"`

	// Optional references are dropped instead of reported broken when
	// nothing resolves; another reference on the same line reports the miss.
	Optional bool `json:"optional,omitempty"`

	// Namespace marks a package reference. A token naming a directory with
	// no module or index file is a namespace package, not a broken one.
	Namespace bool `json:"namespace,omitempty"`
}

// Token returns the token the resolver should look up.
func (r RawReference) Token() string {
	if r.Target != "" {
		return r.Target
	}
	return r.Raw
}

// ResolvedEdge is a reference that resolved to a file in the tree.
type ResolvedEdge struct {
	Source string        `json:"source"`
	Target string        `json:"target"`
	Type   ReferenceType `json:"type"`
}

// Resolution names the strategy the resolver attempted.
type Resolution string

const (
	ResolutionModule         Resolution = "module"
	ResolutionQualified      Resolution = "qualified"
	ResolutionRelative       Resolution = "relative"
	ResolutionRelativeOrRoot Resolution = "relative-or-root"
)

func (r Resolution) String() string { return string(r) }

// BrokenReference is a reference whose token names no file in the tree.
type BrokenReference struct {
	SourceFile     string        `json:"sourceFile"`
	ReferencedPath string        `json:"referencedPath"`
	LineNumber     int           `json:"lineNumber"`
	ReferenceType  ReferenceType `json:"referenceType"`
	Resolution     Resolution    `json:"resolution,omitempty"`
}

// UnusedFile is a source file that no entry point reaches.
type UnusedFile struct {
	FilePath string `json:"filePath"`
	Reason   string `json:"reason"`
	FileSize int64  `json:"fileSize"`
}

const (
	ReasonNoReferences = "no references found"
	ReasonUnreachable  = "unreachable from entry points"
)

// FileStatus is how an explained file was classified.
type FileStatus string

const (
	StatusEntry     FileStatus = "entry"
	StatusReachable FileStatus = "reachable"
	StatusUnused    FileStatus = "unused"
	StatusExcluded  FileStatus = "never-unused"
	StatusSkipped   FileStatus = "not-analyzed"
	StatusOpaque    FileStatus = "not-source"
)

func (s FileStatus) String() string { return string(s) }

// Explanation describes why one file was or was not reported unused.
type Explanation struct {
	File       string            `json:"file"`
	Status     FileStatus        `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Rule       string            `json:"rule,omitempty"` // matching entry or never-unused pattern
	Chain      []string          `json:"chain,omitempty"`
	Referrers  []string          `json:"referrers"`
	References []string          `json:"references"`
	Broken     []BrokenReference `json:"brokenReferences"`
}
