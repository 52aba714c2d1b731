// Package resolve maps raw references onto files of the enumerated tree.
//
// Resolution never touches the filesystem: every candidate is checked
// against an in-memory Index built once at enumeration time. A reference
// either resolves to exactly one file, is broken, or is external (it names
// something outside the tree, such as a package or a URL, and is ignored).
package resolve

import (
	"path"
	"strings"

	"github.com/panbanda/refgraph/pkg/config"
	"github.com/panbanda/refgraph/pkg/models"
)

// Index answers existence questions about canonical tree paths.
type Index interface {
	// Has reports whether path is a file of the tree.
	Has(path string) bool
	// IsDir reports whether path is a directory containing tree files.
	IsDir(path string) bool
}

// Outcome classifies a resolution attempt.
type Outcome uint8

const (
	External Outcome = iota
	Resolved
	Broken
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Broken:
		return "broken"
	}
	return "external"
}

// Result is the outcome of resolving one reference.
type Result struct {
	Outcome    Outcome
	Target     string            // canonical path, set when Resolved
	Resolution models.Resolution // strategy attempted, unset when External
}

// Options are the inference lists used for module-style references.
type Options struct {
	// Extensions are appended, in order, to module tokens.
	Extensions []string
	// IndexFiles are tried inside a directory named by a module token.
	IndexFiles []string
	// SourceRoots are the directories qualified names resolve under.
	SourceRoots []string
}

// OptionsFromConfig takes the inference lists from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Extensions:  cfg.Resolve.Extensions,
		IndexFiles:  cfg.Resolve.IndexFiles,
		SourceRoots: cfg.Resolve.SourceRoots,
	}
}

// Resolver applies the per-type resolution rules. It is immutable and safe
// for concurrent use.
type Resolver struct {
	index Index
	opts  Options
	exts  map[string]bool
	roots []string
}

// New creates a resolver over index.
func New(index Index, opts Options) *Resolver {
	r := &Resolver{index: index, opts: opts, exts: make(map[string]bool, len(opts.Extensions))}
	for _, ext := range opts.Extensions {
		r.exts[ext] = true
	}
	for _, root := range opts.SourceRoots {
		root = strings.Trim(path.Clean("/"+root), "/")
		r.roots = append(r.roots, root)
	}
	if len(r.roots) == 0 {
		r.roots = []string{""}
	}
	return r
}

// Resolve classifies ref. When its target misses, each fallback is tried in
// order before the reference is reported broken.
func (r *Resolver) Resolve(ref models.RawReference) Result {
	dir := path.Dir(ref.Source)
	if dir == "." {
		dir = ""
	}

	tok := Clean(ref.Token())
	res := r.resolve(ref, dir, tok)
	if res.Outcome != Broken {
		return res
	}
	for _, alt := range ref.Fallbacks {
		if fb := r.resolve(ref, dir, Clean(alt)); fb.Outcome == Resolved {
			return fb
		}
	}
	if ref.Optional || (ref.Namespace && r.namesDir(ref.Qualified, dir, tok)) {
		return Result{Outcome: External}
	}
	return res
}

func (r *Resolver) resolve(ref models.RawReference, dir, tok string) Result {
	if IsExternal(tok, ref.Qualified) {
		return Result{Outcome: External}
	}
	switch ref.Type {
	case models.RefImport, models.RefRequire:
		if ref.Qualified {
			return r.qualified(tok)
		}
		return r.module(dir, tok, substitutesFor(ref.Source))
	case models.RefInclude:
		return r.first(models.ResolutionRelative, r.exact(dir, tok))
	default:
		return r.pathLiteral(dir, tok)
	}
}

// namesDir reports whether tok names a directory of the tree, under some
// source root when qualified.
func (r *Resolver) namesDir(qualified bool, dir, tok string) bool {
	if !qualified {
		p, ok := join(dir, tok)
		return ok && (p == "" || r.index.IsDir(p))
	}
	name := strings.Trim(tok, "/")
	for _, root := range r.roots {
		if p, ok := join(root, name); ok && r.index.IsDir(p) {
			return true
		}
	}
	return false
}

// emittedExtensions maps the extension a TypeScript import names (what the
// compiler emits) to the source extensions that compile to it, in try order.
var emittedExtensions = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

func substitutesFor(source string) map[string][]string {
	switch path.Ext(source) {
	case ".ts", ".tsx", ".mts", ".cts":
		return emittedExtensions
	}
	return nil
}

// Edge converts a resolved result into a graph edge.
func Edge(ref models.RawReference, res Result) models.ResolvedEdge {
	return models.ResolvedEdge{Source: ref.Source, Target: res.Target, Type: ref.Type}
}

// BrokenReference converts a broken result into its reported form.
func BrokenReference(ref models.RawReference, res Result) models.BrokenReference {
	return models.BrokenReference{
		SourceFile:     ref.Source,
		ReferencedPath: ref.Raw,
		LineNumber:     ref.Line,
		ReferenceType:  ref.Type,
		Resolution:     res.Resolution,
	}
}

func (r *Resolver) module(dir, tok string, subs map[string][]string) Result {
	if isRelative(tok) {
		base, ok := join(dir, tok)
		if !ok {
			return Result{Outcome: Broken, Resolution: models.ResolutionModule}
		}
		return r.first(models.ResolutionModule, r.moduleCandidates(base, strings.HasSuffix(tok, "/"), subs))
	}

	// Bare specifier with a separator: a package subpath unless its first
	// segment is a directory of this project.
	seg, _, _ := strings.Cut(tok, "/")
	beside, _ := join(dir, seg)
	if !r.index.IsDir(beside) && !r.index.IsDir(seg) {
		return Result{Outcome: External}
	}
	trailing := strings.HasSuffix(tok, "/")
	var candidates []string
	if base, ok := join(dir, tok); ok {
		candidates = append(candidates, r.moduleCandidates(base, trailing, subs)...)
	}
	if base, ok := join("", tok); ok {
		candidates = append(candidates, r.moduleCandidates(base, trailing, subs)...)
	}
	return r.first(models.ResolutionModule, candidates)
}

func (r *Resolver) qualified(tok string) Result {
	tok = strings.Trim(tok, "/")
	segments := strings.Split(tok, "/")

	// Trailing segments may name members (inner classes, static fields).
	minSegments := min(2, len(segments))
	for n := len(segments); n >= minSegments; n-- {
		name := strings.Join(segments[:n], "/")
		for _, root := range r.roots {
			base, ok := join(root, name)
			if !ok {
				continue
			}
			for _, c := range r.moduleCandidates(base, false, nil) {
				if r.index.Has(c) {
					return Result{Outcome: Resolved, Target: c, Resolution: models.ResolutionQualified}
				}
			}
		}
	}

	if r.owned(segments[0]) {
		return Result{Outcome: Broken, Resolution: models.ResolutionQualified}
	}
	return Result{Outcome: External}
}

// owned reports whether seg names a directory or module file under some
// source root.
func (r *Resolver) owned(seg string) bool {
	for _, root := range r.roots {
		base, ok := join(root, seg)
		if !ok {
			continue
		}
		if r.index.IsDir(base) {
			return true
		}
		for _, ext := range r.opts.Extensions {
			if r.index.Has(base + ext) {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) pathLiteral(dir, tok string) Result {
	candidates := r.exact(dir, tok)
	if !strings.HasPrefix(tok, "/") {
		candidates = append(candidates, r.exact("", tok)...)
	}
	dirLink := false
	for _, c := range candidates {
		switch {
		case c != "" && r.index.Has(c):
			return Result{Outcome: Resolved, Target: c, Resolution: models.ResolutionRelativeOrRoot}
		case c == "" || r.index.IsDir(c):
			dirLink = true
		}
	}
	if dirLink {
		// a directory link, not a file
		return Result{Outcome: External}
	}
	return Result{Outcome: Broken, Resolution: models.ResolutionRelativeOrRoot}
}

// exact is the single candidate for tok relative to dir, or the tree root
// when tok starts with "/".
func (r *Resolver) exact(dir, tok string) []string {
	if p, ok := join(dir, tok); ok {
		return []string{p}
	}
	return nil
}

// moduleCandidates lists, in try order, the token as given, its source
// substitutes, the token with each extension appended, then each index file
// inside it.
func (r *Resolver) moduleCandidates(base string, dirOnly bool, subs map[string][]string) []string {
	var out []string
	if !dirOnly && base != "" {
		out = append(out, base)
		ext := path.Ext(base)
		for _, sub := range subs[ext] {
			out = append(out, strings.TrimSuffix(base, ext)+sub)
		}
		if !r.exts[path.Ext(base)] {
			for _, ext := range r.opts.Extensions {
				out = append(out, base+ext)
			}
		}
	}
	if dirOnly || r.index.IsDir(base) {
		for _, idx := range r.opts.IndexFiles {
			out = append(out, path.Join(base, idx))
		}
	}
	return out
}

func (r *Resolver) first(res models.Resolution, candidates []string) Result {
	for _, c := range candidates {
		if c != "" && r.index.Has(c) {
			return Result{Outcome: Resolved, Target: c, Resolution: res}
		}
	}
	return Result{Outcome: Broken, Resolution: res}
}

// join resolves tok against dir. A leading "/" anchors tok at the tree
// root. It fails when the result escapes the root.
func join(dir, tok string) (string, bool) {
	if strings.HasPrefix(tok, "/") {
		dir = ""
	}
	p := path.Join(dir, tok)
	p = strings.TrimPrefix(p, "/")
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	if p == "." {
		p = ""
	}
	return p, true
}

func isRelative(tok string) bool {
	return tok == "." || tok == ".." ||
		strings.HasPrefix(tok, "./") ||
		strings.HasPrefix(tok, "../") ||
		strings.HasPrefix(tok, "/")
}
