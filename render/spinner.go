package render

import (
	"fmt"
	"io"
	"time"
)

// spinnerFrames match the original four-point arc.
var spinnerFrames = []string{"◜", "◝", "◞", "◟"}

// Spinner is the purely cosmetic waiting indicator shown while the
// transport request is in flight. It carries no data dependency and is
// safe to abandon at any time.
type Spinner struct {
	out      io.Writer
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSpinner creates a spinner writing to out.
func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{
		out:      out,
		interval: 80 * time.Millisecond,
	}
}

// Start begins the animation in a background goroutine. Calling Start
// on a running spinner is a no-op.
func (s *Spinner) Start() {
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-stop:
				fmt.Fprint(s.out, "\r\x1b[2K")
				return
			case <-ticker.C:
				fmt.Fprintf(s.out, "\r\x1b[2K%s ", stylesSpinner.Render(spinnerFrames[i%len(spinnerFrames)]))
				i++
			}
		}
	}(s.stop, s.done)
}

// Stop ends the animation and clears its line. Safe to call when the
// spinner never started or already stopped.
func (s *Spinner) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
}
