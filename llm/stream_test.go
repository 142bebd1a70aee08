package llm

import (
	"context"
	"io"
	"testing"
	"time"
)

// collect drains a stream until any terminal condition.
func collect(t *testing.T, s *Stream) (string, *Usage, error) {
	t.Helper()
	var text string
	var usage *Usage
	for {
		c, err := s.Recv(context.Background())
		if err != nil {
			return text, usage, err
		}
		text += c.Text
		if c.Usage != nil {
			usage = c.Usage
		}
	}
}

func TestStreamDeliversChunksInOrder(t *testing.T) {
	client := &MockStreamClient{Chunks: []Chunk{
		{Text: "hello "},
		{Text: "world"},
		{Usage: &Usage{TotalTokens: 7}},
	}}

	s, err := client.Stream(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	text, usage, err := collect(t, s)
	if err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if usage == nil || usage.TotalTokens != 7 {
		t.Errorf("usage = %+v, want TotalTokens 7", usage)
	}
}

func TestStreamRecvObservesCancellation(t *testing.T) {
	released := false
	s := NewStream(func() { released = true }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Recv(ctx)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !released {
		t.Error("cancellation did not release the transport resource")
	}
}

func TestStreamStallEndsAsEOF(t *testing.T) {
	released := false
	s := NewStream(func() { released = true }, nil)
	s.SetStallTimeout(10 * time.Millisecond)

	// No producer ever sends: the inactivity window must end the stream
	// as a normal termination.
	_, err := s.Recv(context.Background())
	if err != io.EOF {
		t.Fatalf("expected io.EOF on stall, got %v", err)
	}
	if !released {
		t.Error("stall did not release the transport resource")
	}
}

func TestStreamProducerError(t *testing.T) {
	s := NewStream(func() {}, nil)
	wantErr := io.ErrUnexpectedEOF
	go func() {
		s.send(context.Background(), Chunk{Text: "partial"})
		s.finish(wantErr)
	}()

	c, err := s.Recv(context.Background())
	if err != nil {
		t.Fatalf("first Recv failed: %v", err)
	}
	if c.Text != "partial" {
		t.Errorf("chunk text = %q, want %q", c.Text, "partial")
	}
	if _, err := s.Recv(context.Background()); err != wantErr {
		t.Errorf("expected producer error %v, got %v", wantErr, err)
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	calls := 0
	s := NewStream(func() { calls++ }, nil)
	s.Close()
	s.Close()
	if calls != 1 {
		t.Errorf("release called %d times, want 1", calls)
	}
}
