package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/refgraph/internal/locator"
	"github.com/panbanda/refgraph/internal/output"
	"github.com/panbanda/refgraph/pkg/analyzer/references"
	"github.com/panbanda/refgraph/pkg/config"
	"github.com/panbanda/refgraph/pkg/models"
)

// AnalyzeInput is the base input for the refgraph tools.
type AnalyzeInput struct {
	Path        string   `json:"path,omitempty" jsonschema:"Repository root to analyze. Defaults to the current directory."`
	EntryPoints []string `json:"entry_points,omitempty" jsonschema:"Glob patterns of entry-point files. Replace the configured defaults when set."`
	NeverUnused []string `json:"never_unused,omitempty" jsonschema:"Glob patterns of files never reported unused. Replace the configured defaults when set."`
	Format      string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// ReferencesInput adds the token budget.
type ReferencesInput struct {
	AnalyzeInput
	MaxTokens int `json:"max_tokens,omitempty" jsonschema:"Approximate token budget for the result. Lists are trimmed to fit. 0 means no limit."`
}

// ExplainInput names the file to explain.
type ExplainInput struct {
	AnalyzeInput
	File string `json:"file" jsonschema:"File to explain: a path relative to the root, a glob, a file name or a path suffix."`
}

func getPath(input AnalyzeInput) string {
	if input.Path == "" {
		return "."
	}
	return input.Path
}

func getFormat(input AnalyzeInput) output.Format {
	switch strings.ToLower(input.Format) {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

// formatOutput serializes data. Markdown wraps the TOON form in a fence.
func formatOutput(data any, format output.Format) (string, error) {
	out, err := output.Marshal(format, data)
	if err != nil {
		return "", err
	}
	if format == output.FormatMarkdown {
		return "```\n" + out + "\n```", nil
	}
	return out, nil
}

func toolResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// analyzerFor builds an analyzer for root from the server's config file, or
// the one found in root, plus the rule overrides of input.
func (s *Server) analyzerFor(root string, input AnalyzeInput) (*references.Analyzer, error) {
	var (
		cfg *config.Config
		err error
	)
	if s.configPath != "" {
		cfg, err = config.Load(s.configPath)
	} else {
		cfg, err = config.LoadOrDefault(root)
	}
	if err != nil {
		return nil, err
	}
	opts := []references.Option{
		references.WithConfig(cfg),
		references.WithLogger(s.logger),
	}
	if len(input.EntryPoints) > 0 {
		opts = append(opts, references.WithEntryPoints(input.EntryPoints))
	}
	if len(input.NeverUnused) > 0 {
		opts = append(opts, references.WithNeverUnused(input.NeverUnused))
	}
	return references.New(opts...), nil
}

func (s *Server) handleAnalyzeReferences(ctx context.Context, req *mcp.CallToolRequest, input ReferencesInput) (*mcp.CallToolResult, any, error) {
	root := getPath(input.AnalyzeInput)
	format := getFormat(input.AnalyzeInput)

	a, err := s.analyzerFor(root, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}
	result, err := a.Analyze(ctx, root)
	if err != nil {
		return toolError(err.Error())
	}

	marshalFormat := format
	if format == output.FormatMarkdown {
		marshalFormat = output.FormatTOON
	}
	text, dropped, err := output.MarshalWithinBudget(result, marshalFormat, input.MaxTokens)
	if err != nil {
		return nil, nil, err
	}
	if format == output.FormatMarkdown {
		text = "```\n" + text + "\n```"
	}
	if dropped > 0 {
		text += fmt.Sprintf("\n\ndropped: %d rows to fit max_tokens=%d", dropped, input.MaxTokens)
	}
	return toolResult(text)
}

func (s *Server) handleExplainReference(ctx context.Context, req *mcp.CallToolRequest, input ExplainInput) (*mcp.CallToolResult, any, error) {
	if input.File == "" {
		return toolError("file is required")
	}
	root := getPath(input.AnalyzeInput)
	format := getFormat(input.AnalyzeInput)

	a, err := s.analyzerFor(root, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}
	report, err := a.Run(ctx, root)
	if err != nil {
		return toolError(err.Error())
	}

	ex, err := explain(report, input.File)
	if err != nil {
		return toolError(err.Error())
	}
	text, err := formatOutput(ex, format)
	if err != nil {
		return nil, nil, err
	}
	return toolResult(text)
}

// explain locates focus in the report's tree and explains it.
func explain(report *references.Report, focus string) (*models.Explanation, error) {
	located, err := locator.Locate(focus, report.Graph.Paths(),
		locator.WithRoot(report.Tree.Root()),
		locator.WithMaxCandidates(20),
	)
	if errors.Is(err, locator.ErrAmbiguousMatch) {
		return nil, fmt.Errorf("%q matches several files: %s", focus, strings.Join(located.Candidates, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("%q: %w", focus, err)
	}
	return report.Explain(located.Path)
}
