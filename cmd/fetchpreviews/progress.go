package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"preview-fetcher/internal/batch"
)

const (
	barWidth     = 30
	defaultWidth = 80
)

// termReporter prints run progress. On a terminal it redraws one line;
// otherwise it prints each status change on its own line. Run-level errors
// are returned by Run and printed by the command.
type termReporter struct {
	batch.NopReporter

	mu      sync.Mutex
	out     io.Writer
	tty     bool
	width   int
	bar     progress.Model
	percent float64
	status  string
	drawn   bool
}

func newTermReporter(out io.Writer) *termReporter {
	r := &termReporter{out: out, width: defaultWidth, bar: newBar()}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

func newBar() progress.Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = barWidth
	return bar
}

func (r *termReporter) OnProgress(percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percent = percent
	if r.tty {
		r.draw()
	}
}

func (r *termReporter) OnStatusText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if text == r.status {
		return
	}
	r.status = text
	if r.tty {
		r.draw()
		return
	}
	fmt.Fprintf(r.out, "[%5.1f%%] %s\n", r.percent, text)
}

// finish ends the progress line so later output starts on a fresh line.
func (r *termReporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tty && r.drawn {
		fmt.Fprintln(r.out)
		r.drawn = false
	}
}

func (r *termReporter) draw() {
	fmt.Fprintf(r.out, "\r%s", renderBar(r.bar, r.percent, r.status, r.width))
	r.drawn = true
}

// renderBar formats "<bar>  45.0% status", padded or cut to width.
func renderBar(bar progress.Model, percent float64, status string, width int) string {
	percent = min(max(percent, 0), 100)
	prefix := fmt.Sprintf("%s %5.1f%% ", bar.ViewAs(percent/100), percent)
	if width <= 1 {
		return prefix + status
	}

	// leave the last column free so the terminal does not wrap
	room := width - 1 - lipgloss.Width(prefix)
	if room <= 0 {
		return prefix
	}
	status = lipgloss.NewStyle().MaxWidth(room).Render(status)
	return prefix + status + strings.Repeat(" ", room-lipgloss.Width(status))
}
