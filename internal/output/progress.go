package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/adbprune/internal/session"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar displays batch progress with completion counts.
// Example: [=========>          ]  45% 9/20 · 1 failed
type ProgressBar struct {
	total  int
	last   session.Progress
	width  int
	mu     sync.Mutex
	writer io.Writer
}

// NewProgress creates a progress bar for a batch of total actions.
func NewProgress(total int) *ProgressBar {
	return &ProgressBar{
		total:  total,
		width:  40,
		writer: os.Stdout,
	}
}

// SetWriter sets the output writer (useful for testing).
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Update redraws the bar from a progress snapshot.
func (p *ProgressBar) Update(prog session.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = prog
	p.render()
}

// Finish redraws the final state and moves to a new line.
func (p *ProgressBar) Finish(prog session.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = prog

	if writerIsTTY(p.writer) {
		p.render()
		fmt.Fprintln(p.writer)
	} else {
		// Non-TTY writers only get the completed line from render.
		p.render()
	}
}

// render draws the progress bar (must be called with lock held).
func (p *ProgressBar) render() {
	done := p.last.Succeeded + p.last.Failed + p.last.Cancelled

	percentage := 100
	filled := p.width
	if p.total > 0 {
		percentage = (done * 100) / p.total
		filled = (done * p.width) / p.total
	}

	bar := strings.Builder{}
	bar.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteString("=")
		case i == filled-1:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	counts := fmt.Sprintf("%d/%d", done, p.total)
	if p.last.Failed > 0 {
		counts += fmt.Sprintf(" · %d failed", p.last.Failed)
	}

	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r%s %3d%% %s", bar.String(), percentage, counts)
	} else if done == p.total {
		// Non-TTY: emit one line on completion so logs stay clean.
		fmt.Fprintf(p.writer, "%s %3d%% %s\n", bar.String(), percentage, counts)
	}
}

// Watch redraws the bar from the session until it finishes, then returns
// the final counts. Blocks; run it on the foreground goroutine.
func (p *ProgressBar) Watch(sess *session.Session) session.Progress {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Update(sess.Progress())
		case <-sess.Done():
			prog := sess.Progress()
			p.Finish(prog)
			return prog
		}
	}
}

// Spinner displays an animated spinner with a message.
// Example: |  Waiting for device authorization...
type Spinner struct {
	message    string
	running    bool
	chars      []string
	mu         sync.Mutex
	writer     io.Writer
	ticker     *time.Ticker
	done       chan struct{}
	timeout    time.Duration
	startTime  time.Time
	showTiming bool
}

// NewSpinner creates a new spinner with a message.
// If stdout is not a TTY, the animation goroutine is skipped and the
// message is printed once so that log output is not cluttered.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		chars:   []string{"|", "/", "-", "\\"},
		writer:  os.Stdout,
		done:    make(chan struct{}),
	}
}

// WithTimeout configures the spinner to show remaining time against a
// deadline, e.g. "Waiting for authorization (42s remaining)". Must be
// called before Start. Returns the spinner for chaining.
func (s *Spinner) WithTimeout(timeout time.Duration) *Spinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = timeout
	s.showTiming = true
	return s
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the spinner animation.
// On a non-TTY writer the animation goroutine is not started; the message
// is printed once instead so that non-interactive output stays clean.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.startTime = time.Now()

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.ticker = time.NewTicker(100 * time.Millisecond)
	go func() {
		idx := 0
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				if !s.running {
					s.mu.Unlock()
					return
				}
				fmt.Fprintf(s.writer, "\r%s  %s", s.chars[idx], s.formatMessage())
				idx = (idx + 1) % len(s.chars)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// formatMessage returns the spinner message with optional timing
// information. Must be called with lock held.
func (s *Spinner) formatMessage() string {
	if !s.showTiming {
		return s.message
	}
	elapsed := time.Since(s.startTime)
	if s.timeout > 0 {
		remaining := s.timeout - elapsed
		if remaining < 0 {
			remaining = 0
		}
		return fmt.Sprintf("%s (%ds remaining)", s.message, int(remaining.Seconds()))
	}
	return fmt.Sprintf("%s (%ds elapsed)", s.message, int(elapsed.Seconds()))
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)

	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+24))
	}
}

// StopWithMessage stops the spinner and displays a final message.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
