package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/panbanda/refgraph/pkg/models"
)

// ResultView renders an AnalysisResult. JSON and TOON carry the result
// unchanged; text and markdown show a summary and one table per list.
type ResultView struct {
	Result *models.AnalysisResult
	// Verbose adds the entry points and reference cycles.
	Verbose bool
}

func (v *ResultView) RenderData() any { return v.Result }

func (v *ResultView) RenderText(w io.Writer, colored bool) error {
	return v.report(colored, false).RenderText(w, colored)
}

func (v *ResultView) RenderMarkdown(w io.Writer) error {
	return v.report(false, true).RenderMarkdown(w)
}

func (v *ResultView) report(colored, markdown bool) *Report {
	r := v.Result
	summary := []string{
		fmt.Sprintf("Files: %d", r.TotalFiles),
		fmt.Sprintf("Analyzed: %d", r.AnalyzedFiles),
		fmt.Sprintf("Unused: %d (%s)", len(r.UnusedFiles), FormatBytes(r.UnusedBytes())),
		fmt.Sprintf("Broken references: %d", len(r.BrokenReferences)),
	}
	if v.Verbose {
		summary = append(summary,
			fmt.Sprintf("Entry points: %d", len(r.EntryPoints)),
			fmt.Sprintf("Cycles: %d", len(r.Cycles)),
		)
	}

	unused := make([][]string, len(r.UnusedFiles))
	for i, u := range r.UnusedFiles {
		reason := u.Reason
		if colored {
			reason = StatusColor(u.Reason, u.Reason)
		}
		unused[i] = []string{u.FilePath, reason, FormatBytes(u.FileSize)}
	}

	broken := make([][]string, len(r.BrokenReferences))
	for i, b := range r.BrokenReferences {
		broken[i] = []string{
			b.SourceFile,
			strconv.Itoa(b.LineNumber),
			string(b.ReferenceType),
			b.ReferencedPath,
			string(b.Resolution),
		}
	}

	rep := &Report{
		Title: "Reference Analysis",
		Data:  r,
		Sections: []Renderable{
			&Section{Title: "Summary", Content: bulletList(summary, markdown)},
			NewTable("Unused Files", []string{"File", "Reason", "Size"}, unused, nil, r.UnusedFiles),
			NewTable("Broken References", []string{"Source", "Line", "Type", "Reference", "Strategy"}, broken, nil, r.BrokenReferences),
		},
	}

	if v.Verbose {
		entries := make([][]string, len(r.EntryPoints))
		for i, e := range r.EntryPoints {
			entries[i] = []string{e}
		}
		cycles := make([][]string, len(r.Cycles))
		for i, c := range r.Cycles {
			cycles[i] = []string{strconv.Itoa(i + 1), strconv.Itoa(len(c)), strings.Join(c, ", ")}
		}
		rep.Sections = append(rep.Sections,
			NewTable("Entry Points", []string{"File"}, entries, nil, r.EntryPoints),
			NewTable("Reference Cycles", []string{"#", "Files", "Members"}, cycles, nil, r.Cycles),
		)
	}
	return rep
}

// ExplanationView renders why one file was classified the way it was.
type ExplanationView struct {
	Explanation *models.Explanation
}

func (v *ExplanationView) RenderData() any { return v.Explanation }

func (v *ExplanationView) RenderText(w io.Writer, colored bool) error {
	return v.report(colored, false).RenderText(w, colored)
}

func (v *ExplanationView) RenderMarkdown(w io.Writer) error {
	return v.report(false, true).RenderMarkdown(w)
}

func (v *ExplanationView) report(colored, markdown bool) *Report {
	ex := v.Explanation

	status := string(ex.Status)
	if colored {
		status = StatusColor(status, status)
	}
	lines := []string{"Status: " + status}
	if ex.Reason != "" {
		lines = append(lines, "Reason: "+ex.Reason)
	}
	if ex.Rule != "" {
		lines = append(lines, "Matched rule: "+ex.Rule)
	}
	if len(ex.Chain) > 0 {
		lines = append(lines, "Reached via: "+strings.Join(ex.Chain, " -> "))
	}

	broken := make([][]string, len(ex.Broken))
	for i, b := range ex.Broken {
		broken[i] = []string{strconv.Itoa(b.LineNumber), string(b.ReferenceType), b.ReferencedPath}
	}

	return &Report{
		Title: ex.File,
		Data:  ex,
		Sections: []Renderable{
			&Section{Content: bulletList(lines, markdown) + "\n"},
			NewTable("Referenced By", []string{"File"}, singleColumn(ex.Referrers), nil, ex.Referrers),
			NewTable("References", []string{"File"}, singleColumn(ex.References), nil, ex.References),
			NewTable("Broken References", []string{"Line", "Type", "Reference"}, broken, nil, ex.Broken),
		},
	}
}

func singleColumn(values []string) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return rows
}

func bulletList(lines []string, markdown bool) string {
	if !markdown {
		return strings.Join(lines, "\n")
	}
	return "- " + strings.Join(lines, "\n- ")
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
