// Package terminal handles the interactive terminal session: the prompt
// loop, slash commands, command confirmation keystrokes, and everything
// the agent displays while a turn runs.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/m4xw311/llmsh/agent"
	"github.com/m4xw311/llmsh/errors"
	"github.com/m4xw311/llmsh/render"
	"github.com/m4xw311/llmsh/session"
)

// Terminal drives the interactive session. It is both the agent's
// display surface and its confirmation prompt.
type Terminal struct {
	agent   *agent.Agent
	in      *os.File
	out     io.Writer
	reader  *bufio.Reader
	spinner *render.Spinner
	sig     chan os.Signal
	theme   string
	logger  *zap.Logger
}

// New creates a terminal bound to stdin/stdout. theme selects the
// markdown style; empty means auto.
func New(theme string, logger *zap.Logger) *Terminal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Terminal{
		in:      os.Stdin,
		out:     os.Stdout,
		reader:  bufio.NewReader(os.Stdin),
		spinner: render.NewSpinner(os.Stdout),
		theme:   theme,
		logger:  logger,
	}
}

// Run starts the interactive loop and blocks until the user exits. An
// optional initial prompt is processed before the first read.
func (t *Terminal) Run(ctx context.Context, a *agent.Agent, initialPrompt string) error {
	t.agent = a

	// The interrupt handler stays installed for the whole session, so
	// Ctrl+C at the idle prompt never kills the process; it only cancels
	// an in-flight turn.
	if t.sig == nil {
		t.sig = make(chan os.Signal, 1)
	}
	signal.Notify(t.sig, os.Interrupt)
	defer signal.Stop(t.sig)

	t.greet()

	if p := strings.TrimSpace(initialPrompt); p != "" {
		t.runTurn(ctx, p)
	}

	for {
		fmt.Fprint(t.out, render.StylePrompt.Render("❯ ")+" ")
		line, err := t.reader.ReadString('\n')
		if err == io.EOF {
			fmt.Fprintln(t.out)
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading input")
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch {
		case input == "/exit" || input == "/quit":
			return nil
		case input == "/clear":
			t.agent.History.Reset()
			t.greet()
			continue
		case input == "/models":
			t.chooseModel(ctx)
			continue
		case strings.HasPrefix(input, "/"):
			fmt.Fprintln(t.out, render.StyleWarn.Render("Unknown command: "+input))
			continue
		}

		t.runTurn(ctx, input)
	}
}

// greet clears the screen and prints the session banner.
func (t *Terminal) greet() {
	fmt.Fprint(t.out, "\x1b[2J\x1b[H")
	fmt.Fprintln(t.out, render.StyleBanner.Render("⚡ llmsh")+" "+render.StyleDim.Render(t.agent.Model))
	fmt.Fprintln(t.out, render.StyleDim.Render("/models to switch model, /clear to reset, /exit to quit"))
	fmt.Fprintln(t.out)
}

// runTurn records the user message, runs one agent turn under a
// SIGINT-cancellable context, and repairs the history when the turn
// made no progress.
func (t *Terminal) runTurn(ctx context.Context, input string) {
	t.agent.History.Append(session.RoleUser, input)

	// An interrupt delivered while idle must not cancel this turn.
	select {
	case <-t.sig:
	default:
	}

	tctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		select {
		case <-t.sig:
			cancel()
		case <-done:
		}
	}()

	res := t.agent.RunTurn(tctx)

	close(done)
	cancel()

	switch res.Kind {
	case agent.TurnCancelled:
		fmt.Fprintln(t.out, render.StyleWarn.Render("(cancelled)"))
	case agent.TurnTransportError:
		fmt.Fprintln(t.out, render.StyleError.Render(fmt.Sprintf("Error: %v", res.Err)))
	case agent.TurnEmptyStream:
		fmt.Fprintln(t.out, render.StyleError.Render("Error: the model returned no response"))
	}

	// A turn that produced no assistant reply leaves the user message
	// unanswered; drop it so the next request starts clean.
	if t.agent.History.RetractDanglingUser() {
		t.logger.Debug("retracted unanswered user message")
	}
}

// chooseModel lists the provider's models and switches to the selected
// one.
func (t *Terminal) chooseModel(ctx context.Context) {
	models, err := t.agent.Client.Models(ctx)
	if err != nil {
		fmt.Fprintln(t.out, render.StyleError.Render(fmt.Sprintf("Error listing models: %v", err)))
		return
	}
	if len(models) == 0 {
		fmt.Fprintln(t.out, render.StyleWarn.Render("No models available"))
		return
	}

	for i, m := range models {
		name := m.ID
		if m.Name != "" && m.Name != m.ID {
			name = fmt.Sprintf("%s (%s)", m.ID, m.Name)
		}
		fmt.Fprintf(t.out, "  %s %s\n", render.StyleDim.Render(fmt.Sprintf("%2d.", i+1)), name)
	}
	fmt.Fprint(t.out, render.StylePrompt.Render("Model number: ")+" ")

	line, err := t.reader.ReadString('\n')
	if err != nil {
		fmt.Fprintln(t.out)
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(models) {
		fmt.Fprintln(t.out, render.StyleWarn.Render("Keeping current model"))
		return
	}
	t.agent.Model = models[n-1].ID
	fmt.Fprintln(t.out, render.StyleOK.Render("Switched to "+t.agent.Model))
}

// width reports the terminal width, defaulting when stdout is not a
// terminal.
func (t *Terminal) width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// StartWaiting shows the spinner while the request is in flight.
func (t *Terminal) StartWaiting() { t.spinner.Start() }

// StopWaiting clears the spinner.
func (t *Terminal) StopWaiting() { t.spinner.Stop() }

// NewLive creates the streaming display region for one turn.
func (t *Terminal) NewLive() agent.LiveView {
	return render.NewLive(t.out, t.width(), t.theme)
}

// ShowCommandOutput prints an executed command's merged output.
func (t *Terminal) ShowCommandOutput(output string) {
	out := strings.TrimRight(output, "\n")
	if out == "" {
		out = "(no output)"
	}
	fmt.Fprintln(t.out, render.StyleDim.Render(out))
}

// ShowNotice prints a dim informational line.
func (t *Terminal) ShowNotice(text string) {
	fmt.Fprintln(t.out, render.StyleDim.Render(text))
}

// ShowStats prints the right-aligned turn statistics line.
func (t *Terminal) ShowStats(elapsed time.Duration, tokens int, cost float64) {
	fmt.Fprintln(t.out, render.FormatStats(elapsed, tokens, cost, t.width()))
}

// Confirm shows the pending command and reads a single keystroke
// decision. Enter and y run the command, e edits it, anything else
// declines. Ctrl-C is reported as an error so the turn treats the
// prompt itself as abandoned.
func (t *Terminal) Confirm(ctx context.Context, command string) (agent.Decision, error) {
	fmt.Fprintln(t.out, render.StyleCommand.Render("→ "+command))
	fmt.Fprint(t.out, render.StylePrompt.Render("Run? [y/enter] run  [e] edit  [n] decline: ")+" ")

	b, err := t.readKey()
	fmt.Fprintln(t.out)
	if err != nil {
		return agent.DecisionDecline, err
	}
	switch b {
	case 'y', 'Y', '\r', '\n':
		return agent.DecisionRun, nil
	case 'e', 'E':
		return agent.DecisionEdit, nil
	case 0x03:
		return agent.DecisionDecline, errors.New("confirmation interrupted")
	default:
		return agent.DecisionDecline, nil
	}
}

// EditCommand collects a replacement command pre-seeded with the
// original text. An error means the edit was abandoned.
func (t *Terminal) EditCommand(ctx context.Context, command string) (string, error) {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return "", errors.Wrapf(err, "reading edited command")
		}
		return strings.TrimSpace(line), nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return "", errors.Wrapf(err, "entering raw mode")
	}
	defer term.Restore(fd, state)

	return t.editLine(t.in, command)
}

// editLine runs the seeded line editor over a raw byte source. Input is
// decoded as UTF-8, so multibyte characters insert and delete as whole
// runes.
func (t *Terminal) editLine(in io.Reader, seed string) (string, error) {
	prompt := render.StylePrompt.Render("Edit: ") + " "
	buf := []rune(seed)
	var pending []byte
	redraw := func() {
		fmt.Fprintf(t.out, "\r\x1b[2K%s%s", prompt, string(buf))
	}
	redraw()

	one := make([]byte, 1)
	for {
		if _, err := in.Read(one); err != nil {
			fmt.Fprint(t.out, "\r\n")
			return "", errors.Wrapf(err, "reading edited command")
		}
		switch one[0] {
		case '\r', '\n':
			fmt.Fprint(t.out, "\r\n")
			return string(buf), nil
		case 127, 8: // backspace
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				redraw()
			}
		case 21: // ctrl-u clears the line
			buf = buf[:0]
			redraw()
		case 3: // ctrl-c abandons the edit
			fmt.Fprint(t.out, "\r\n")
			return "", errors.New("edit interrupted")
		case 27: // swallow escape sequences
		default:
			if one[0] < 32 {
				continue
			}
			pending = append(pending, one[0])
			if !utf8.FullRune(pending) {
				if len(pending) >= utf8.UTFMax {
					pending = pending[:0]
				}
				continue
			}
			r, _ := utf8.DecodeRune(pending)
			pending = pending[:0]
			if r == utf8.RuneError {
				continue
			}
			buf = append(buf, r)
			fmt.Fprint(t.out, string(r))
		}
	}
}

// readKey reads one raw keystroke, falling back to line input when
// stdin is not a terminal.
func (t *Terminal) readKey() (byte, error) {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return '\n', nil
		}
		return line[0], nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return 0, errors.Wrapf(err, "entering raw mode")
	}
	defer term.Restore(fd, state)

	one := make([]byte, 1)
	if _, err := t.in.Read(one); err != nil {
		return 0, err
	}
	return one[0], nil
}
