package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for one analysis run. It is passed
// explicitly to the analyzer; nothing reads it from package state.
type Config struct {
	// Entry-point rules
	Entry EntryConfig `koanf:"entry" toml:"entry"`

	// Never-unused allow-list and enumeration exclusions
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Resolution inference lists
	Resolve ResolveConfig `koanf:"resolve" toml:"resolve"`

	// Per-file read budgets and worker pool size
	Limits LimitsConfig `koanf:"limits" toml:"limits"`

	// Extraction cache
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// EntryConfig lists the patterns whose matches are always considered used.
type EntryConfig struct {
	Patterns []string `koanf:"patterns" toml:"patterns"`
}

// ExcludeConfig controls which files are never reported unused, and which
// parts of the tree are not enumerated at all.
type ExcludeConfig struct {
	Unused    []string `koanf:"unused" toml:"unused"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// ResolveConfig holds the extension and index-file inference lists.
type ResolveConfig struct {
	Extensions  []string `koanf:"extensions" toml:"extensions"`
	IndexFiles  []string `koanf:"index_files" toml:"index_files"`
	SourceRoots []string `koanf:"source_roots" toml:"source_roots"`
}

// LimitsConfig bounds file reads and worker parallelism.
type LimitsConfig struct {
	MaxFileSize int64  `koanf:"max_file_size" toml:"max_file_size"` // bytes
	ReadTimeout string `koanf:"read_timeout" toml:"read_timeout"`   // Go duration, e.g. "5s"
	Workers     int    `koanf:"workers" toml:"workers"`             // 0 = NumCPU
}

// CacheConfig controls caching of extracted references.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultMaxFileSize is the per-file read budget.
const DefaultMaxFileSize = 2 << 20

// DefaultReadTimeout is the per-file read deadline.
const DefaultReadTimeout = 5 * time.Second

// DefaultEntryPatterns are build manifests and conventional entry scripts.
// package.json matches at any depth so each workspace package enters through
// the files its manifest names. index.* is anchored: nested index files are
// barrels that their importers reach.
func DefaultEntryPatterns() []string {
	return []string{
		"package.json",
		"/pom.xml",
		"/build.gradle",
		"/build.gradle.kts",
		"/settings.gradle",
		"/settings.gradle.kts",
		"/go.mod",
		"/Cargo.toml",
		"/pyproject.toml",
		"/setup.py",
		"/composer.json",
		"/Makefile",
		"/Dockerfile",
		"/docker-compose.yml",
		"/docker-compose.yaml",
		"/tsconfig.json",
		"/*.config.*",
		"main.*",
		"/index.*",
		"/src/index.*",
		"app.*",
		"server.*",
		"__main__.py",
		"manage.py",
		"wsgi.py",
		"asgi.py",
		"*Application.java",
		"*Application.kt",
	}
}

// DefaultNeverUnused covers tests, fixtures, documentation, legal files and
// dotfiles.
func DefaultNeverUnused() []string {
	return []string{
		"*_test.*",
		"*.test.*",
		"*.spec.*",
		"test_*.py",
		"**/test/**",
		"**/tests/**",
		"**/__tests__/**",
		"**/fixtures/**",
		"**/testdata/**",
		"**/docs/**",
		"**/doc/**",
		"*.md",
		"*.rst",
		"LICENSE*",
		"README*",
		"CHANGELOG*",
		"CONTRIBUTING*",
		"NOTICE*",
		".*",
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Entry: EntryConfig{
			Patterns: DefaultEntryPatterns(),
		},
		Exclude: ExcludeConfig{
			Unused: DefaultNeverUnused(),
			Dirs: []string{
				".git",
				".hg",
				".svn",
				".refgraph",
				"node_modules",
				"__pycache__",
			},
			Gitignore: true,
		},
		Resolve: ResolveConfig{
			Extensions: []string{
				".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts",
				".json", ".vue", ".svelte",
				".py", ".rb", ".java", ".kt", ".php",
				".css", ".scss", ".sass", ".less",
			},
			IndexFiles: []string{
				"index.js", "index.jsx", "index.ts", "index.tsx",
				"index.mjs", "index.cjs", "index.json",
				"__init__.py",
			},
			SourceRoots: []string{
				".",
				"src",
				"src/main/java",
				"src/main/kotlin",
				"lib",
			},
		},
		Limits: LimitsConfig{
			MaxFileSize: DefaultMaxFileSize,
			ReadTimeout: DefaultReadTimeout.String(),
			Workers:     0,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".refgraph/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// ReadTimeoutDuration parses the configured read timeout, falling back to
// the default for an empty or invalid value.
func (l LimitsConfig) ReadTimeoutDuration() time.Duration {
	if l.ReadTimeout == "" {
		return DefaultReadTimeout
	}
	d, err := time.ParseDuration(l.ReadTimeout)
	if err != nil || d <= 0 {
		return DefaultReadTimeout
	}
	return d
}

// WorkerCount returns the effective worker pool size.
func (l LimitsConfig) WorkerCount() int {
	if l.Workers > 0 {
		return l.Workers
	}
	return runtime.NumCPU()
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	where := "config"
	if e.Path != "" {
		where = e.Path
	}
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", where, e.Problems[0])
	}
	return fmt.Sprintf("%s: %d problems: %s", where, len(e.Problems), strings.Join(e.Problems, "; "))
}

// ErrInvalid is matched by every *ValidationError.
var ErrInvalid = errors.New("invalid configuration")

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Validate checks the semantic rules a schema cannot express.
func (c *Config) Validate() error {
	var problems []string

	checkPatterns := func(section string, patterns []string) {
		for _, p := range patterns {
			trimmed := strings.TrimPrefix(p, "/")
			if trimmed == "" || !doublestar.ValidatePattern(trimmed) {
				problems = append(problems, fmt.Sprintf("%s: invalid glob pattern %q", section, p))
			}
		}
	}
	checkPatterns("entry.patterns", c.Entry.Patterns)
	checkPatterns("exclude.unused", c.Exclude.Unused)
	checkPatterns("exclude.patterns", c.Exclude.Patterns)

	for _, ext := range c.Resolve.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			problems = append(problems, fmt.Sprintf("resolve.extensions: %q must start with a dot", ext))
		}
	}
	for _, name := range c.Resolve.IndexFiles {
		if name == "" || strings.Contains(name, "/") {
			problems = append(problems, fmt.Sprintf("resolve.index_files: %q must be a bare file name", name))
		}
	}
	for _, root := range c.Resolve.SourceRoots {
		if filepath.IsAbs(root) || strings.HasPrefix(filepath.ToSlash(filepath.Clean(root)), "../") {
			problems = append(problems, fmt.Sprintf("resolve.source_roots: %q must be inside the tree", root))
		}
	}

	if c.Limits.MaxFileSize <= 0 {
		problems = append(problems, "limits.max_file_size must be positive")
	}
	if c.Limits.ReadTimeout != "" {
		if d, err := time.ParseDuration(c.Limits.ReadTimeout); err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("limits.read_timeout: %q is not a positive duration", c.Limits.ReadTimeout))
		}
	}
	if c.Limits.Workers < 0 {
		problems = append(problems, "limits.workers must not be negative")
	}

	switch strings.ToLower(c.Output.Format) {
	case "", "text", "json", "markdown", "md", "toon":
	default:
		problems = append(problems, fmt.Sprintf("output.format: unknown format %q", c.Output.Format))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// Load loads configuration from a file on top of the defaults. The document
// is checked against the config schema before it is applied.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := ValidateDocument(k.Raw()); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return nil, err
	}

	return cfg, nil
}

// FileNames are the config file names searched by Find, in order.
var FileNames = []string{
	"refgraph.toml",
	"refgraph.yaml",
	"refgraph.yml",
	"refgraph.json",
	".refgraph.toml",
	".refgraph.yaml",
	".refgraph.yml",
	".refgraph.json",
}

// Find returns the first config file found in dir or dir/.refgraph, or "".
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".refgraph")} {
		for _, name := range FileNames {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the config found in dir, or returns defaults when there
// is none. A config file that exists but is invalid is an error.
func LoadOrDefault(dir string) (*Config, error) {
	path := Find(dir)
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}
