package llm

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultStallTimeout is the inactivity window after which a stream is
// treated as finished. A stall is a normal end, not an error, so a turn
// can still commit whatever content arrived before the transport went
// quiet.
const DefaultStallTimeout = 30 * time.Second

// Stream is a lazy, finite, non-restartable sequence of chunks produced
// by one provider request. The provider goroutine is the only sender;
// the turn loop is the only receiver.
type Stream struct {
	ch      chan Chunk
	err     error // set by the producer before ch is closed
	stall   time.Duration
	release func()
	once    sync.Once
	logger  *zap.Logger
}

// NewStream creates a stream whose release function tears down the
// underlying transport resource (response body, SDK stream, request
// context). Providers call send/finish; consumers call Recv/Close.
func NewStream(release func(), logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		ch:      make(chan Chunk),
		stall:   DefaultStallTimeout,
		release: release,
		logger:  logger,
	}
}

// send delivers one chunk to the consumer. It reports false when the
// request context was cancelled, in which case the producer must stop.
func (s *Stream) send(ctx context.Context, c Chunk) bool {
	select {
	case s.ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// finish records the terminal error (nil for a clean end) and closes the
// chunk channel. Must be called exactly once, by the producer.
func (s *Stream) finish(err error) {
	s.err = err
	close(s.ch)
}

// Recv returns the next chunk. It returns io.EOF on a clean end of
// stream and on a stall, ctx.Err() when the turn was cancelled, and the
// producer's error otherwise. Any non-nil error also releases the
// underlying transport resource.
func (s *Stream) Recv(ctx context.Context) (Chunk, error) {
	timer := time.NewTimer(s.stall)
	defer timer.Stop()

	select {
	case c, ok := <-s.ch:
		if !ok {
			s.Close()
			if s.err != nil {
				return Chunk{}, s.err
			}
			return Chunk{}, io.EOF
		}
		return c, nil
	case <-ctx.Done():
		s.Close()
		return Chunk{}, ctx.Err()
	case <-timer.C:
		s.logger.Debug("stream stalled, treating as end of stream",
			zap.Duration("window", s.stall))
		s.Close()
		return Chunk{}, io.EOF
	}
}

// Close releases the transport resource. Safe to call more than once
// and from either side.
func (s *Stream) Close() {
	s.once.Do(s.release)
}

// SetStallTimeout overrides the inactivity window. Zero or negative
// restores the default. Intended for tests.
func (s *Stream) SetStallTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultStallTimeout
	}
	s.stall = d
}
