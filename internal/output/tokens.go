package output

import (
	"fmt"
	"unicode/utf8"

	"github.com/panbanda/refgraph/pkg/models"
)

// CharsPerToken is the approximate character-to-token ratio for
// path-heavy structured output.
const CharsPerToken = 4.0

// EstimateTokens returns an approximate token count for text.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := float64(utf8.RuneCountInString(text)) / CharsPerToken
	return int(tokens + 0.5)
}

// FormatTokenCount formats a token count for display.
// Counts >= 1000 are formatted as "X.Xk".
func FormatTokenCount(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	return fmt.Sprintf("%.1fk", float64(tokens)/1000)
}

// MarshalWithinBudget serializes r, dropping trailing unused files and broken
// references in equal proportion until the output fits budget tokens. It
// reports how many list items were dropped. A budget <= 0 disables trimming.
func MarshalWithinBudget(r *models.AnalysisResult, format Format, budget int) (string, int, error) {
	full, err := Marshal(format, r)
	if err != nil || budget <= 0 || EstimateTokens(full) <= budget {
		return full, 0, err
	}

	total := len(r.UnusedFiles) + len(r.BrokenReferences)
	trimmed := func(keep int) *models.AnalysisResult {
		c := *r
		c.UnusedFiles = r.UnusedFiles[:len(r.UnusedFiles)*keep/total]
		c.BrokenReferences = r.BrokenReferences[:len(r.BrokenReferences)*keep/total]
		return &c
	}

	// largest keep count that still fits
	lo, hi := 0, total
	best, err := Marshal(format, trimmed(0))
	if err != nil {
		return "", 0, err
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		out, err := Marshal(format, trimmed(mid))
		if err != nil {
			return "", 0, err
		}
		if EstimateTokens(out) <= budget {
			lo, best = mid, out
		} else {
			hi = mid - 1
		}
	}
	return best, total - lo, nil
}
