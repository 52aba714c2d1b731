// Package analyzer holds what the analysis surfaces share: the interface a
// reference analyzer satisfies and run progress tracking.
package analyzer

import (
	"context"

	"github.com/panbanda/refgraph/pkg/models"
)

// ReferenceAnalyzer analyzes one tree per call. Implementations must be
// safe to call repeatedly, e.g. from watch mode or an MCP server.
type ReferenceAnalyzer interface {
	Analyze(ctx context.Context, root string) (*models.AnalysisResult, error)
}
