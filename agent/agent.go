package agent

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/m4xw311/llmsh/directive"
	"github.com/m4xw311/llmsh/llm"
	"github.com/m4xw311/llmsh/render"
	"github.com/m4xw311/llmsh/session"
	"github.com/m4xw311/llmsh/tools"
	"go.uber.org/zap"
)

// TurnKind classifies the terminal outcome of one turn.
type TurnKind int

const (
	TurnCompleted TurnKind = iota
	TurnCancelled
	TurnTransportError
	TurnEmptyStream
)

// TurnResult is the outcome of one RunTurn invocation. It is consumed
// immediately by the caller and never stored.
type TurnResult struct {
	Kind    TurnKind
	Content string
	Usage   *llm.Usage
	Elapsed time.Duration
	Err     error
}

// LiveView is the display region a turn streams into.
type LiveView interface {
	Feed(chunk string) bool
	Finish()
	Buffer() string
	Halted() bool
}

// Display is the terminal surface the agent drives. Implementations
// must be safe to call from the single turn goroutine only.
type Display interface {
	StartWaiting()
	StopWaiting()
	NewLive() LiveView
	ShowCommandOutput(output string)
	ShowNotice(text string)
	ShowStats(elapsed time.Duration, tokens int, cost float64)
}

// Agent orchestrates turns: it launches the transport request, streams
// into the display, recognizes a directive in the finished text, drives
// the confirmation and execution gate, and feeds results back into the
// conversation.
type Agent struct {
	Client    llm.StreamClient
	Model     string
	History   *session.History
	Runner    *tools.Runner
	Confirmer Confirmer
	Display   Display
	Logger    *zap.Logger
}

// New creates an agent. The history is owned by the caller and mutated
// only between suspension points; turns never run concurrently.
func New(client llm.StreamClient, model string, history *session.History, runner *tools.Runner, confirmer Confirmer, display Display, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		Client:    client,
		Model:     model,
		History:   history,
		Runner:    runner,
		Confirmer: confirmer,
		Display:   display,
		Logger:    logger,
	}
}

// RunTurn runs one user-initiated turn, including any continuation
// turns issued after a command execution. At most one command is acted
// upon per call; directives in continuation responses are stripped, not
// executed.
func (a *Agent) RunTurn(ctx context.Context) TurnResult {
	continuation := false
	for {
		res, again := a.runOnce(ctx, continuation)
		if !again {
			return res
		}
		continuation = true
	}
}

// runOnce performs a single request/response exchange. It reports
// whether a continuation turn should follow.
func (a *Agent) runOnce(ctx context.Context, continuation bool) (TurnResult, bool) {
	start := time.Now()

	// The request runs in the background while the foreground shows the
	// waiting indicator and watches for cancellation. The goroutine is
	// the only writer of the outcome; the foreground reads it only
	// after the ready signal.
	type outcome struct {
		stream *llm.Stream
		err    error
	}
	ready := make(chan outcome, 1)
	a.Display.StartWaiting()
	go func() {
		s, err := a.Client.Stream(ctx, a.Model, a.History.Messages())
		ready <- outcome{stream: s, err: err}
	}()

	var stream *llm.Stream
	select {
	case o := <-ready:
		a.Display.StopWaiting()
		if o.err != nil {
			if ctx.Err() != nil {
				return TurnResult{Kind: TurnCancelled, Elapsed: time.Since(start)}, false
			}
			return TurnResult{Kind: TurnTransportError, Err: o.err, Elapsed: time.Since(start)}, false
		}
		stream = o.stream
	case <-ctx.Done():
		a.Display.StopWaiting()
		// Release the stream whenever the late request completes.
		go func() {
			if o := <-ready; o.stream != nil {
				o.stream.Close()
			}
		}()
		return TurnResult{Kind: TurnCancelled, Elapsed: time.Since(start)}, false
	}

	live := a.Display.NewLive()
	var usage *llm.Usage
	for {
		chunk, err := stream.Recv(ctx)
		if err == io.EOF {
			break
		}
		if stderrors.Is(err, context.Canceled) {
			return TurnResult{Kind: TurnCancelled, Elapsed: time.Since(start)}, false
		}
		if err != nil {
			if live.Buffer() == "" && usage == nil {
				return TurnResult{Kind: TurnTransportError, Err: err, Elapsed: time.Since(start)}, false
			}
			// Partial content already arrived; keep it and treat the
			// drop as end of stream.
			a.Logger.Debug("stream ended with error after partial content", zap.Error(err))
			break
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		live.Feed(chunk.Text)
	}
	live.Finish()

	full := live.Buffer()
	elapsed := time.Since(start)

	if full == "" {
		if continuation {
			a.Display.ShowNotice("(empty response)")
			return TurnResult{Kind: TurnCompleted, Usage: usage, Elapsed: elapsed}, false
		}
		if usage == nil {
			return TurnResult{Kind: TurnEmptyStream, Err: stderrors.New("no response received"), Elapsed: elapsed}, false
		}
		// The transport metered the request but produced no text.
		a.Display.ShowNotice("(empty response)")
		return TurnResult{Kind: TurnCompleted, Usage: usage, Elapsed: elapsed}, false
	}

	d, found := directive.FindComplete(full)
	if !found {
		a.History.Append(session.RoleAssistant, full)
		a.showStats(elapsed, usage, full)
		return TurnResult{Kind: TurnCompleted, Content: full, Usage: usage, Elapsed: elapsed}, false
	}

	if continuation {
		// The model does not get to chain command requests: directives
		// in continuation output are stripped, never executed.
		stripped := directive.Strip(full)
		if stripped != "" {
			a.History.Append(session.RoleAssistant, stripped)
		}
		a.showStats(elapsed, usage, full)
		return TurnResult{Kind: TurnCompleted, Content: stripped, Usage: usage, Elapsed: elapsed}, false
	}

	gate := a.gate(ctx, d.Command)
	switch gate.Outcome {
	case GateCancelled:
		// The model's prose survives even though the action did not
		// happen; the directive markup itself is never committed.
		stripped := directive.Strip(full)
		if stripped != "" {
			a.History.Append(session.RoleAssistant, stripped)
		}
		return TurnResult{Kind: TurnCompleted, Content: stripped, Usage: usage, Elapsed: elapsed}, false
	case GateSuccess:
		a.History.Append(session.RoleAssistant, full)
		a.Display.ShowCommandOutput(gate.Output)
		a.History.Append(session.RoleUser, "Command output:\n"+gate.Output)
		return TurnResult{}, true
	default: // GateFailure, including timeout and launch failure
		a.History.Append(session.RoleAssistant, full)
		a.History.Append(session.RoleUser, "Command failed.")
		return TurnResult{}, true
	}
}

// showStats reports elapsed time, token count, and cost. When the
// transport reported no usage, the token count is estimated locally.
func (a *Agent) showStats(elapsed time.Duration, usage *llm.Usage, content string) {
	tokens := 0
	cost := 0.0
	if usage != nil {
		tokens = usage.TotalTokens
		cost = usage.Cost
	}
	if tokens == 0 {
		tokens = render.EstimateTokens(content)
	}
	a.Display.ShowStats(elapsed, tokens, cost)
}
