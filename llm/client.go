package llm

import (
	"context"

	"github.com/m4xw311/llmsh/session"
)

// Usage is the most recent token metering reported by the transport.
// Readings replace each other; they are never accumulated. Cost is only
// set when the endpoint reports one (OpenRouter-style usage.cost).
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             float64
}

// Chunk is one logical content delta from the response stream. A chunk
// may carry empty text when the underlying record only held usage or a
// finish signal.
type Chunk struct {
	Text  string
	Usage *Usage
}

// ModelInfo describes one selectable model of a provider.
type ModelInfo struct {
	ID   string
	Name string
}

// StreamClient is the transport capability handed to the turn loop: it
// turns a full ordered message history into a live chunk stream, or an
// immediate error when the request itself fails.
type StreamClient interface {
	Stream(ctx context.Context, model string, messages []session.Message) (*Stream, error)
	Models(ctx context.Context) ([]ModelInfo, error)
}

// MockStreamClient replays a scripted sequence of chunks. It is used in
// tests and as the fallback when no provider is configured.
type MockStreamClient struct {
	Chunks []Chunk
	Err    error // returned by Stream before any chunk is produced
}

func (m *MockStreamClient) Stream(ctx context.Context, model string, messages []session.Message) (*Stream, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	s := NewStream(func() {}, nil)
	chunks := make([]Chunk, len(m.Chunks))
	copy(chunks, m.Chunks)
	go func() {
		defer s.finish(nil)
		for _, c := range chunks {
			if !s.send(ctx, c) {
				return
			}
		}
	}()
	return s, nil
}

func (m *MockStreamClient) Models(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{ID: "mock-model", Name: "Mock Model"}}, nil
}
