package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	assert.Contains(t, cfg.Entry.Patterns, "package.json")
	assert.Contains(t, cfg.Entry.Patterns, "main.*")
	assert.Contains(t, cfg.Exclude.Unused, "README*")
	assert.Contains(t, cfg.Exclude.Dirs, ".git")
	assert.True(t, cfg.Exclude.Gitignore)
	assert.Equal(t, ".js", cfg.Resolve.Extensions[0])
	assert.Contains(t, cfg.Resolve.IndexFiles, "index.js")
	assert.Contains(t, cfg.Resolve.IndexFiles, "__init__.py")
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Limits.MaxFileSize)
	assert.Equal(t, DefaultReadTimeout, cfg.Limits.ReadTimeoutDuration())
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "text", cfg.Output.Format)

	require.NoError(t, cfg.Validate())
}

func TestDefaultListsAreCopies(t *testing.T) {
	a := DefaultConfig()
	a.Entry.Patterns[0] = "mutated"
	b := DefaultConfig()
	assert.Equal(t, "package.json", b.Entry.Patterns[0])
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "refgraph.toml")

	content := `
[entry]
patterns = ["src/cli.js"]

[exclude]
unused = ["legacy/**"]

[limits]
max_file_size = 1024
read_timeout = "250ms"
workers = 3
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/cli.js"}, cfg.Entry.Patterns)
	assert.Equal(t, []string{"legacy/**"}, cfg.Exclude.Unused)
	assert.Equal(t, int64(1024), cfg.Limits.MaxFileSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Limits.ReadTimeoutDuration())
	assert.Equal(t, 3, cfg.Limits.WorkerCount())

	// untouched sections keep defaults
	assert.Contains(t, cfg.Resolve.Extensions, ".ts")
	assert.True(t, cfg.Exclude.Gitignore)
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "refgraph.yaml")

	content := `
resolve:
  extensions: [".js", ".ts"]
  index_files: ["index.js"]
output:
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, []string{".js", ".ts"}, cfg.Resolve.Extensions)
	assert.Equal(t, []string{"index.js"}, cfg.Resolve.IndexFiles)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "refgraph.json")

	content := `{"limits": {"max_file_size": 4096}, "cache": {"enabled": true, "ttl": 2}}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), cfg.Limits.MaxFileSize)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 2, cfg.Cache.TTL)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown section", "refgraph.toml", "[analysis]\ncomplexity = true\n"},
		{"wrong type", "refgraph.toml", "[limits]\nworkers = \"many\"\n"},
		{"negative size", "refgraph.json", `{"limits": {"max_file_size": -1}}`},
		{"bad extension", "refgraph.yaml", "resolve:\n  extensions: [\"js\"]\n"},
		{"bad timeout", "refgraph.toml", "[limits]\nread_timeout = \"soon\"\n"},
		{"bad format", "refgraph.toml", "[output]\nformat = \"xml\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, path, verr.Path)
			assert.NotEmpty(t, verr.Problems)
		})
	}
}

func TestLoadRejectsBadGlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte("[entry]\npatterns = [\"src/[a-\"]\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "entry.patterns")
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte("[entry\npatterns = "), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestFindAndLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, "", Find(dir))
	cfg, err := LoadOrDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	hidden := filepath.Join(dir, ".refgraph")
	require.NoError(t, os.MkdirAll(hidden, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "refgraph.toml"), []byte("[limits]\nworkers = 7\n"), 0644))
	assert.Equal(t, filepath.Join(hidden, "refgraph.toml"), Find(dir))

	// a file in the directory itself wins over .refgraph/
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refgraph.yaml"), []byte("limits:\n  workers: 2\n"), 0644))
	cfg, err = LoadOrDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Limits.Workers)
}

func TestLoadOrDefaultSurfacesInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refgraph.toml"), []byte("[limits]\nworkers = -1\n"), 0644))

	_, err := LoadOrDefault(dir)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty pattern", func(c *Config) { c.Exclude.Unused = []string{""} }, "exclude.unused"},
		{"index with slash", func(c *Config) { c.Resolve.IndexFiles = []string{"lib/index.js"} }, "resolve.index_files"},
		{"source root escapes", func(c *Config) { c.Resolve.SourceRoots = []string{"../other"} }, "resolve.source_roots"},
		{"zero size", func(c *Config) { c.Limits.MaxFileSize = 0 }, "limits.max_file_size"},
		{"negative workers", func(c *Config) { c.Limits.Workers = -2 }, "limits.workers"},
		{"bad format", func(c *Config) { c.Output.Format = "yaml" }, "output.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	one := &ValidationError{Problems: []string{"x is wrong"}}
	assert.Equal(t, "config: x is wrong", one.Error())

	many := &ValidationError{Path: "refgraph.toml", Problems: []string{"a", "b"}}
	assert.Equal(t, "refgraph.toml: 2 problems: a; b", many.Error())
}

func TestLimitsFallbacks(t *testing.T) {
	l := LimitsConfig{ReadTimeout: "garbage"}
	assert.Equal(t, DefaultReadTimeout, l.ReadTimeoutDuration())
	assert.Greater(t, l.WorkerCount(), 0)
}
