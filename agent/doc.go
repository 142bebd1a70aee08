// Package agent contains the turn controller at the heart of llmsh.
//
// A turn begins with the user's message already appended to the
// conversation history. The agent streams the model's reply into a live
// display region, watching the accumulating text for a [RUN:...]
// directive. Text that might be the start of a directive is withheld
// from the display until the ambiguity resolves, so command markup is
// never shown verbatim.
//
// # Turn Flow
//
// Each RunTurn call proceeds through these stages:
//
//   - Request: the transport stream is opened in the background while
//     the display shows a waiting indicator. Cancellation is honored at
//     every suspension point.
//   - Streaming: chunks are fed to the live view until the stream ends,
//     stalls, or a complete directive is recognized.
//   - Gate: a recognized directive suspends the turn for the user's
//     run/decline/edit decision, unless an auto-approve pattern matches.
//   - Feedback: executed command output (or a failure notice) is fed
//     back into the history as a user message, and a continuation turn
//     asks the model to interpret it.
//
// At most one command is acted upon per RunTurn call. Directives that
// appear in continuation responses are stripped from the recorded text
// and never executed.
//
// # Interaction Surfaces
//
// The agent talks to its environment through two small interfaces:
// Display (the spinner, live region, command output, notices, and
// stats) and Confirmer (the run/decline/edit prompt and the command
// editor). The terminal subpackage implements both for interactive use;
// tests substitute in-memory fakes.
package agent
