package output

import (
	"fmt"
	"strings"
	"testing"

	"github.com/panbanda/refgraph/pkg/models"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		minRange int
		maxRange int
	}{
		{"empty string", "", 0, 0},
		{"short path", "src/app/main.ts", 3, 5},
		{"json entry", `{"filePath": "lib/orphan.js", "reason": "no references found"}`, 12, 20},
		{"1000 characters", strings.Repeat("a", 1000), 240, 260},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.text)
			if got < tt.minRange || got > tt.maxRange {
				t.Errorf("EstimateTokens() = %v, want between %v and %v", got, tt.minRange, tt.maxRange)
			}
		})
	}
}

func TestFormatTokenCount(t *testing.T) {
	tests := []struct {
		tokens   int
		expected string
	}{
		{100, "100"},
		{1000, "1.0k"},
		{1500, "1.5k"},
		{100000, "100.0k"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatTokenCount(tt.tokens); got != tt.expected {
				t.Errorf("FormatTokenCount(%d) = %v, want %v", tt.tokens, got, tt.expected)
			}
		})
	}
}

func bigResult(n int) *models.AnalysisResult {
	r := models.NewAnalysisResult()
	for i := 0; i < n; i++ {
		r.UnusedFiles = append(r.UnusedFiles, models.UnusedFile{
			FilePath: fmt.Sprintf("src/components/generated/widget_%04d.tsx", i),
			Reason:   models.ReasonNoReferences,
			FileSize: int64(i),
		})
		r.BrokenReferences = append(r.BrokenReferences, models.BrokenReference{
			SourceFile:     fmt.Sprintf("src/pages/page_%04d.tsx", i),
			ReferencedPath: "./missing",
			LineNumber:     i + 1,
			ReferenceType:  models.RefImport,
			Resolution:     models.ResolutionModule,
		})
	}
	r.TotalFiles = 2 * n
	r.AnalyzedFiles = 2 * n
	return r
}

func TestMarshalWithinBudget(t *testing.T) {
	r := bigResult(200)

	full, dropped, err := MarshalWithinBudget(r, FormatJSON, 0)
	if err != nil {
		t.Fatal(err)
	}
	if dropped != 0 {
		t.Errorf("budget 0 dropped %d items", dropped)
	}

	out, dropped, err := MarshalWithinBudget(r, FormatJSON, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if dropped == 0 {
		t.Fatal("expected items to be dropped")
	}
	if EstimateTokens(out) > 2000 {
		t.Errorf("output has %d tokens, budget 2000", EstimateTokens(out))
	}
	if len(out) >= len(full) {
		t.Error("trimmed output should be shorter")
	}
	if len(r.UnusedFiles) != 200 {
		t.Error("input result must not be modified")
	}
}

func TestMarshalWithinBudget_Fits(t *testing.T) {
	r := bigResult(2)
	out, dropped, err := MarshalWithinBudget(r, FormatTOON, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if !strings.Contains(out, "widget_0001") {
		t.Errorf("output missing entries:\n%s", out)
	}
}
