// Package references runs the reference analysis pipeline: enumerate the
// tree, extract and resolve references in parallel, build the graph and
// classify unused files from the entry points.
package references

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/panbanda/refgraph/internal/cache"
	"github.com/panbanda/refgraph/internal/fileproc"
	"github.com/panbanda/refgraph/pkg/analyzer"
	"github.com/panbanda/refgraph/pkg/analyzer/graph"
	"github.com/panbanda/refgraph/pkg/analyzer/reachability"
	"github.com/panbanda/refgraph/pkg/config"
	"github.com/panbanda/refgraph/pkg/extract"
	"github.com/panbanda/refgraph/pkg/models"
	"github.com/panbanda/refgraph/pkg/resolve"
	"github.com/panbanda/refgraph/pkg/rules"
	"github.com/panbanda/refgraph/pkg/scanner"
	"github.com/panbanda/refgraph/pkg/source"
)

var (
	// ErrCannotAnalyze is matched by every *InputError.
	ErrCannotAnalyze = errors.New("cannot analyze")
	// ErrCancelled is returned when the run's context ends before a result
	// is assembled. The context error is wrapped alongside it.
	ErrCancelled = errors.New("analysis cancelled")
	// ErrNotInTree is returned by Explain for a path that was not enumerated.
	ErrNotInTree = errors.New("file not in analyzed tree")
)

// InputError reports a root that cannot be analyzed at all.
type InputError struct {
	Root string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("cannot analyze %s: %v", e.Root, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Is(target error) bool { return target == ErrCannotAnalyze }

// Analyzer finds unused files and broken references in a tree. It holds no
// per-run state, so one Analyzer may serve concurrent runs.
type Analyzer struct {
	config      *config.Config
	registry    *extract.Registry
	source      source.ContentSource
	cache       *cache.Cache
	logger      *slog.Logger
	entryPoints []string
	neverUnused []string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig sets the configuration. The default is config.DefaultConfig().
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		if cfg != nil {
			a.config = cfg
		}
	}
}

// WithRegistry replaces the extractor registry.
func WithRegistry(r *extract.Registry) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithSource reads file contents from src instead of the filesystem. Paths
// passed to src are canonical tree-relative paths.
func WithSource(src source.ContentSource) Option {
	return func(a *Analyzer) {
		a.source = src
	}
}

// WithCache stores extracted references in c.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithEntryPoints replaces the configured entry-point patterns.
func WithEntryPoints(patterns []string) Option {
	return func(a *Analyzer) {
		a.entryPoints = patterns
	}
}

// WithNeverUnused replaces the configured never-unused patterns.
func WithNeverUnused(patterns []string) Option {
	return func(a *Analyzer) {
		a.neverUnused = patterns
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		config:   config.DefaultConfig(),
		registry: extract.DefaultRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the configuration the analyzer runs with.
func (a *Analyzer) Config() *config.Config { return a.config }

// Report is the result of a run together with the structures it was
// computed from, for callers that explain or render the graph.
type Report struct {
	Result *models.AnalysisResult
	Tree   *scanner.Tree
	Graph  *graph.Graph
	Reach  *reachability.Result

	// Skipped lists source files that could not be read or were binary.
	Skipped []fileproc.ProcessingError

	entryRules *rules.Set
	neverRules *rules.Set
}

// Analyze implements analyzer.ReferenceAnalyzer.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*models.AnalysisResult, error) {
	report, err := a.Run(ctx, root)
	if err != nil {
		return nil, err
	}
	return report.Result, nil
}

var _ analyzer.ReferenceAnalyzer = (*Analyzer)(nil)

type extraction struct {
	refs []models.RawReference
}

type resolution struct {
	edges  []models.ResolvedEdge
	broken []models.BrokenReference
}

// Run analyzes the tree at root. It returns a *config.ValidationError for
// bad configuration, an *InputError when root cannot be enumerated and an
// error matching ErrCancelled when ctx ends first. No partial report is
// ever returned.
func (a *Analyzer) Run(ctx context.Context, root string) (*Report, error) {
	start := time.Now()
	cfg := a.config

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	entryRules, err := rules.Compile(a.entryPatterns())
	if err != nil {
		return nil, fmt.Errorf("entry points: %w", err)
	}
	neverRules, err := rules.Compile(a.neverUnusedPatterns())
	if err != nil {
		return nil, fmt.Errorf("never-unused patterns: %w", err)
	}

	tree, err := scanner.NewScanner(cfg).Enumerate(ctx, root, a.registry.Supports)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		return nil, &InputError{Root: root, Err: err}
	}

	src := a.source
	if src == nil {
		src = source.NewFilesystem(source.Budget{
			MaxSize: cfg.Limits.MaxFileSize,
			Timeout: cfg.Limits.ReadTimeoutDuration(),
		}).WithRoot(tree.Root())
	}

	tracker := analyzer.TrackerFromContext(ctx)
	opts := fileproc.Options{Workers: cfg.Limits.Workers, OnProgress: tracker.Tick}

	sources := tree.SourceFiles()
	paths := make([]string, len(sources))
	for i, n := range sources {
		paths[i] = n.Path
	}

	tracker.Start(analyzer.PhaseExtract, len(paths))
	extracted, failed, err := fileproc.MapFiles(ctx, paths, opts, func(ctx context.Context, path string) (extraction, error) {
		return a.extractFile(ctx, src, path)
	})
	if err != nil {
		return nil, cancelled(ctx)
	}

	skipped := failed.Sorted()
	for _, pe := range skipped {
		a.logger.Debug("file not analyzed", "path", pe.Path, "error", pe.Err)
	}
	isSkipped := make(map[string]struct{}, len(skipped))
	for _, pe := range skipped {
		isSkipped[pe.Path] = struct{}{}
	}

	// analyzed keeps tree order; refs is read-only once the resolve phase starts
	analyzed := make([]string, 0, len(paths))
	refs := make(map[string][]models.RawReference, len(paths))
	for i, path := range paths {
		if _, bad := isSkipped[path]; bad {
			continue
		}
		analyzed = append(analyzed, path)
		refs[path] = extracted[i].refs
	}

	resolver := resolve.New(tree, resolve.OptionsFromConfig(cfg))
	tracker.Start(analyzer.PhaseResolve, len(analyzed))
	resolved, _, err := fileproc.MapFiles(ctx, analyzed, opts, func(_ context.Context, path string) (resolution, error) {
		return resolveAll(resolver, refs[path]), nil
	})
	if err != nil {
		return nil, cancelled(ctx)
	}

	g := graph.New(allPaths(tree))
	result := models.NewAnalysisResult()
	for _, res := range resolved {
		for _, e := range res.edges {
			if err := g.AddEdge(e.Source, e.Target, e.Type); err != nil {
				return nil, fmt.Errorf("build graph: %w", err)
			}
		}
		result.BrokenReferences = append(result.BrokenReferences, res.broken...)
	}

	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx)
	}

	analyzedSet := make(map[string]struct{}, len(analyzed))
	for _, p := range analyzed {
		analyzedSet[p] = struct{}{}
	}
	reach := reachability.Analyze(g, entryRules.Filter(g.Paths()))
	result.UnusedFiles = reach.Classify(tree.Files(), reachability.Candidates{
		Analyzed: func(path string) bool {
			_, ok := analyzedSet[path]
			return ok
		},
		NeverUnused: neverRules,
	})

	result.TotalFiles = tree.Len()
	result.AnalyzedFiles = len(analyzed)
	result.EntryPoints = reach.Entries()
	result.Cycles = g.Cycles()
	result.Sort()

	a.logger.Info("analysis complete",
		"root", tree.Root(),
		"files", result.TotalFiles,
		"analyzed", result.AnalyzedFiles,
		"edges", g.EdgeCount(),
		"unused", len(result.UnusedFiles),
		"broken", len(result.BrokenReferences),
		"duration", time.Since(start),
	)

	return &Report{
		Result:     result,
		Tree:       tree,
		Graph:      g,
		Reach:      reach,
		Skipped:    skipped,
		entryRules: entryRules,
		neverRules: neverRules,
	}, nil
}

// Explain reports how path was classified and which files lead to it.
func (r *Report) Explain(path string) (*models.Explanation, error) {
	node, ok := r.Tree.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotInTree)
	}

	ex := &models.Explanation{
		File:       path,
		Referrers:  r.Graph.Referrers(path),
		References: []string{},
		Broken:     []models.BrokenReference{},
	}
	for _, target := range r.Graph.Neighbors(path) {
		if target != path {
			ex.References = append(ex.References, target)
		}
	}
	sort.Strings(ex.References)
	for _, b := range r.Result.BrokenReferences {
		if b.SourceFile == path {
			ex.Broken = append(ex.Broken, b)
		}
	}

	switch {
	case r.Reach.IsEntry(path):
		ex.Status = models.StatusEntry
		ex.Rule, _ = r.entryRules.MatchPattern(path)
	case r.Reach.Reachable(path):
		ex.Status = models.StatusReachable
		ex.Chain = r.Reach.PathTo(path)
	case !node.Source:
		ex.Status = models.StatusOpaque
	case r.skipReason(path) != "":
		ex.Status = models.StatusSkipped
		ex.Reason = r.skipReason(path)
	default:
		if rule, excluded := r.neverRules.MatchPattern(path); excluded {
			ex.Status = models.StatusExcluded
			ex.Rule = rule
			break
		}
		ex.Status = models.StatusUnused
		for _, u := range r.Result.UnusedFiles {
			if u.FilePath == path {
				ex.Reason = u.Reason
				break
			}
		}
	}
	return ex, nil
}

func (r *Report) skipReason(path string) string {
	for _, pe := range r.Skipped {
		if pe.Path == path {
			return pe.Err.Error()
		}
	}
	return ""
}

// extractFile reads one source file and extracts its references, going
// through the cache when one is configured.
func (a *Analyzer) extractFile(ctx context.Context, src source.ContentSource, path string) (extraction, error) {
	content, err := src.Read(ctx, path)
	if err != nil {
		return extraction{}, err
	}

	e, ok := a.registry.For(path)
	if !ok {
		return extraction{}, extract.ErrUnsupported
	}
	if cached, hit := a.cache.Get(path, e.Name(), content); hit {
		return extraction{refs: cached}, nil
	}

	found, err := a.registry.Extract(ctx, path, content)
	if err != nil {
		return extraction{}, err
	}
	if err := ctx.Err(); err != nil {
		return extraction{}, err
	}
	if err := a.cache.Set(path, e.Name(), content, found); err != nil {
		a.logger.Debug("cache write failed", "path", path, "error", err)
	}
	return extraction{refs: found}, nil
}

func resolveAll(r *resolve.Resolver, refs []models.RawReference) resolution {
	var out resolution
	for _, ref := range refs {
		res := r.Resolve(ref)
		switch res.Outcome {
		case resolve.Resolved:
			out.edges = append(out.edges, resolve.Edge(ref, res))
		case resolve.Broken:
			out.broken = append(out.broken, resolve.BrokenReference(ref, res))
		}
	}
	return out
}

func allPaths(tree *scanner.Tree) []string {
	files := tree.Files()
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func (a *Analyzer) entryPatterns() []string {
	if a.entryPoints != nil {
		return a.entryPoints
	}
	return a.config.Entry.Patterns
}

func (a *Analyzer) neverUnusedPatterns() []string {
	if a.neverUnused != nil {
		return a.neverUnused
	}
	return a.config.Exclude.Unused
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}
