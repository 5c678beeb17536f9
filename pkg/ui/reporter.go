package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	progressBar   = "█"
	progressEmpty = "░"
	barWidth      = 20
)

// TerminalReporter renders run progress as a single in-place line on
// the terminal. It is safe for use from multiple goroutines.
type TerminalReporter struct {
	mu      sync.Mutex
	out     io.Writer
	lineLen int
	start   time.Time
}

// NewTerminalReporter creates a reporter writing to stdout
func NewTerminalReporter() *TerminalReporter {
	return &TerminalReporter{out: os.Stdout, start: time.Now()}
}

// OnProgress redraws the progress line for the given phase
func (r *TerminalReporter) OnProgress(current, total int, phase string) {
	if total <= 0 {
		return
	}
	filled := current * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat(progressBar, filled) + strings.Repeat(progressEmpty, barWidth-filled)
	r.drawLine(fmt.Sprintf("%s [%s] %d/%d", Cyan(phase), bar, current, total))
}

// OnStatus replaces the progress line with a status message
func (r *TerminalReporter) OnStatus(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLine()
	fmt.Fprintln(r.out, msg)
	r.lineLen = 0
}

// OnCooldown announces a rate-limit pause
func (r *TerminalReporter) OnCooldown(wait time.Duration) {
	r.OnStatus(Yellow(fmt.Sprintf("Rate limited, cooling down for %s", wait.Round(time.Second))))
}

// OnFinish ends the in-place line and prints the elapsed time
func (r *TerminalReporter) OnFinish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLine()
	fmt.Fprintln(r.out, Dim(fmt.Sprintf("Elapsed: %s", time.Since(r.start).Round(time.Second))))
	r.lineLen = 0
}

func (r *TerminalReporter) drawLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLine()
	fmt.Fprint(r.out, "\r"+line)
	r.lineLen = len(line)
}

// clearLine blanks the current line; callers hold the mutex
func (r *TerminalReporter) clearLine() {
	if r.lineLen == 0 {
		return
	}
	fmt.Fprint(r.out, "\r"+strings.Repeat(" ", r.lineLen)+"\r")
}
