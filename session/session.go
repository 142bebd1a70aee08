// Package session holds the in-memory conversation history. History lives
// only for the process lifetime; nothing is persisted.
package session

// Message is a single entry in the conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// History is the ordered, append-only conversation record. The only
// permitted mutations besides appending are popping the trailing entry
// (retracting an unanswered user message) and a full reset that reinstalls
// the system prompt.
type History struct {
	systemPrompt string
	messages     []Message
}

// NewHistory creates a history seeded with the given system prompt. An
// empty prompt means no leading system message.
func NewHistory(systemPrompt string) *History {
	h := &History{systemPrompt: systemPrompt}
	h.Reset()
	return h
}

// Reset clears the conversation and reinstalls the system prompt, if any.
func (h *History) Reset() {
	h.messages = h.messages[:0]
	if h.systemPrompt != "" {
		h.messages = append(h.messages, Message{Role: RoleSystem, Content: h.systemPrompt})
	}
}

// Append adds a message to the end of the history.
func (h *History) Append(role, content string) {
	h.messages = append(h.messages, Message{Role: role, Content: content})
}

// Messages returns the current message sequence. Callers must treat the
// returned slice as read-only; it aliases the history's backing array.
func (h *History) Messages() []Message {
	return h.messages
}

// Len returns the number of messages, including the system message.
func (h *History) Len() int {
	return len(h.messages)
}

// Last returns the final message and true, or a zero Message and false if
// the history is empty.
func (h *History) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// RetractDanglingUser pops the trailing message if it is a user message.
// It is called when a turn made no progress, so the history never ends in
// an unanswered user entry. Reports whether a message was removed.
func (h *History) RetractDanglingUser() bool {
	if len(h.messages) == 0 {
		return false
	}
	if h.messages[len(h.messages)-1].Role != RoleUser {
		return false
	}
	h.messages = h.messages[:len(h.messages)-1]
	return true
}
