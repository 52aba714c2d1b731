// Package progress draws terminal progress bars for analysis phases.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/panbanda/refgraph/pkg/analyzer"
)

// Tracker wraps a progress bar for file processing.
type Tracker struct {
	bar   *progressbar.ProgressBar
	w     io.Writer
	label string
}

// NewSpinner creates a spinner for operations with unknown total count.
func NewSpinner(w io.Writer, label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, w: w, label: label}
}

// NewTracker creates a progress bar with the given label and total count.
func NewTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, w: w, label: label}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	t.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	t.bar.Finish()
	t.bar.Clear()
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	t.bar.Finish()
	t.bar.Clear()
	fmt.Fprintf(t.w, "  %s error: %v\n", t.label, err)
}

var phaseLabels = map[analyzer.Phase]string{
	analyzer.PhaseExtract: "Extracting references",
	analyzer.PhaseResolve: "Resolving references",
}

// Phases shows one bar per analysis phase. Its Update method is an
// analyzer.ProgressFunc.
type Phases struct {
	mu      sync.Mutex
	w       io.Writer
	phase   analyzer.Phase
	current *Tracker
}

// NewPhases creates a phase display writing to w.
func NewPhases(w io.Writer) *Phases {
	return &Phases{w: w}
}

// Scanning shows a spinner until the first phase starts.
func (p *Phases) Scanning() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		p.current = NewSpinner(p.w, "Scanning files")
	}
}

// Update starts a new bar when the phase changes and advances it otherwise.
func (p *Phases) Update(phase analyzer.Phase, current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if phase != p.phase || p.current == nil {
		if p.current != nil {
			p.current.FinishSuccess()
		}
		label, ok := phaseLabels[phase]
		if !ok {
			label = string(phase)
		}
		p.phase = phase
		p.current = NewTracker(p.w, label, total)
	}
	if current > 0 {
		p.current.Tick()
	}
}

// Finish clears the active bar.
func (p *Phases) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.FinishSuccess()
		p.current = nil
	}
}

// Fail clears the active bar and reports err.
func (p *Phases) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.FinishError(err)
		p.current = nil
	}
}
