package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Decision is the user's answer to a pending command confirmation.
type Decision int

const (
	DecisionRun Decision = iota
	DecisionDecline
	DecisionEdit
)

// Confirmer obtains authorization decisions from the user. Confirm
// blocks for a single run/decline/edit choice; EditCommand collects a
// replacement command line pre-seeded with the original text. Both
// return an error when the user cancels or the context ends, which the
// gate treats as a decline.
type Confirmer interface {
	Confirm(ctx context.Context, command string) (Decision, error)
	EditCommand(ctx context.Context, command string) (string, error)
}

// GateOutcome classifies one pass through the confirmation and
// execution gate.
type GateOutcome int

const (
	GateSuccess GateOutcome = iota
	GateFailure
	GateCancelled
)

// GateResult carries the outcome and, for executed commands, the
// merged output text.
type GateResult struct {
	Outcome GateOutcome
	Output  string
}

// gate suspends for the user's decision and, if authorized, executes
// the command under the runner's timeout. Commands matching an
// auto-approve pattern skip the prompt. Execution faults come back as
// GateFailure data, never as errors.
func (a *Agent) gate(ctx context.Context, command string) GateResult {
	cmd := command

	if !a.Runner.IsAutoApproved(cmd) {
		decision, err := a.Confirmer.Confirm(ctx, cmd)
		if err != nil {
			a.Logger.Debug("confirmation cancelled", zap.Error(err))
			return GateResult{Outcome: GateCancelled}
		}
		switch decision {
		case DecisionDecline:
			return GateResult{Outcome: GateCancelled}
		case DecisionEdit:
			edited, err := a.Confirmer.EditCommand(ctx, cmd)
			if err != nil {
				a.Logger.Debug("edit cancelled", zap.Error(err))
				return GateResult{Outcome: GateCancelled}
			}
			edited = strings.TrimSpace(edited)
			if edited == "" {
				// An empty replacement is a decline.
				return GateResult{Outcome: GateCancelled}
			}
			cmd = edited
		}
	} else {
		a.Logger.Debug("command auto-approved", zap.String("command", cmd))
	}

	res := a.Runner.Run(ctx, cmd)
	if res.OK() {
		return GateResult{Outcome: GateSuccess, Output: res.Output}
	}
	return GateResult{Outcome: GateFailure, Output: res.Output}
}
