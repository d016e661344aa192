// Package spinner draws a one-line progress indicator on a terminal.
package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner is an animated status line. The message can be replaced while it
// runs; Stop clears the line.
type Spinner struct {
	w io.Writer

	mu      sync.Mutex
	message string
	widest  int

	done     chan struct{}
	cleared  chan struct{}
	stopOnce sync.Once
}

// Enabled reports whether f is a terminal worth animating on.
func Enabled(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Start displays an animated spinner with the given message on w.
// Call Stop to stop the spinner and clear the line.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	s.Update(message)
	go s.run()
	return s
}

// Update replaces the message shown next to the spinner.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.widest = max(s.widest, runewidth.StringWidth(message))
}

// Stop halts the animation and blanks the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.cleared
}

func (s *Spinner) run() {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-s.done:
			s.mu.Lock()
			width := s.widest
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", width+2)) //nolint:errcheck
			close(s.cleared)
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			width := s.widest
			s.mu.Unlock()
			// pad so a shorter message fully covers a longer one
			pad := strings.Repeat(" ", width-runewidth.StringWidth(msg))
			fmt.Fprintf(s.w, "\r%s %s%s", frames[i%len(frames)], msg, pad) //nolint:errcheck
			i++
		}
	}
}
