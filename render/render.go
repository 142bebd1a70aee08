// Package render owns the live terminal display: the incrementally
// revealed markdown region, the waiting spinner, and the per-turn stats
// line.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/m4xw311/llmsh/directive"
)

const (
	// minRefreshInterval throttles redraws so a fast stream does not
	// flood the terminal.
	minRefreshInterval = 50 * time.Millisecond
	// burstThreshold forces an immediate redraw once this much revealed
	// content is waiting, regardless of the interval.
	burstThreshold = 512
)

// Live renders a growing assistant message into an updatable terminal
// region. Disclosure is forward-only: once a byte is shown it is never
// re-hidden, and content that might be the start of a directive is
// withheld until the ambiguity resolves.
type Live struct {
	out io.Writer
	md  *glamour.TermRenderer

	buffer    string // everything received this turn
	displayed string // longest prefix safe to show
	drawn     int    // len(displayed) at the last actual redraw
	lines     int    // terminal lines occupied by the last redraw
	halted    bool   // a complete directive was found
	lastDraw  time.Time

	now func() time.Time // test seam
}

// NewLive creates a live region writing to out, wrapping markdown at
// width. theme is a glamour style name; empty selects the terminal's
// auto style.
func NewLive(out io.Writer, width int, theme string) *Live {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if theme != "" {
		opts = append(opts, glamour.WithStylePath(theme))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		md = nil // fall back to plain text
	}
	return &Live{out: out, md: md, now: time.Now}
}

// Feed appends one stream chunk and updates the display. It reports
// whether a complete directive has been detected, after which nothing
// further is revealed.
func (l *Live) Feed(chunk string) bool {
	if l.halted {
		return true
	}
	l.buffer += chunk

	if _, ok := directive.FindComplete(l.buffer); ok {
		// The directive is handled out of band; retract the partial
		// region so the tag is never shown verbatim.
		l.halted = true
		l.erase()
		return true
	}

	target := len(l.buffer)
	if i := directive.PossiblePrefixStart(l.buffer); i >= 0 {
		// Everything from the possible tag start stays hidden until a
		// later chunk resolves it.
		target = i
	}
	if target > len(l.displayed) {
		l.displayed = l.buffer[:target]
		l.maybeDraw()
	}
	return false
}

// Finish flushes any remaining safe content. Nothing is drawn when a
// directive halted the region.
func (l *Live) Finish() {
	if l.halted {
		return
	}
	if _, ok := directive.FindComplete(l.buffer); ok {
		// The directive completed on the very last chunk.
		l.halted = true
		l.erase()
		return
	}
	l.displayed = l.buffer
	l.draw()
}

// Buffer returns all content received this turn.
func (l *Live) Buffer() string {
	return l.buffer
}

// Displayed returns the prefix committed to the screen so far.
func (l *Live) Displayed() string {
	return l.displayed
}

// Halted reports whether a complete directive stopped the region.
func (l *Live) Halted() bool {
	return l.halted
}

// maybeDraw redraws if enough content or time has accumulated since the
// last draw.
func (l *Live) maybeDraw() {
	if len(l.displayed)-l.drawn >= burstThreshold || l.now().Sub(l.lastDraw) >= minRefreshInterval {
		l.draw()
	}
}

// draw rerenders the whole displayed prefix in place.
func (l *Live) draw() {
	if l.displayed == "" {
		return
	}
	rendered := l.render(l.displayed)
	l.erase()
	fmt.Fprint(l.out, rendered)
	l.lines = strings.Count(rendered, "\n")
	l.drawn = len(l.displayed)
	l.lastDraw = l.now()
}

// erase clears the previously drawn region.
func (l *Live) erase() {
	if l.lines > 0 {
		fmt.Fprintf(l.out, "\x1b[%dA\x1b[J", l.lines)
	}
	l.lines = 0
}

// render turns markdown into terminal output, falling back to plain
// text when glamour is unavailable.
func (l *Live) render(content string) string {
	if l.md != nil {
		if out, err := l.md.Render(content); err == nil {
			if !strings.HasSuffix(out, "\n") {
				out += "\n"
			}
			return out
		}
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content
}
