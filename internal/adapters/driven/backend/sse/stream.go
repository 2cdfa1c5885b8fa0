package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Stream implements the interface.
var _ driven.FrameStream = (*Stream)(nil)

const readSize = 4096

// Stream reads frames from a response body. The body is closed exactly once:
// after the terminal marker, after an error frame, at end of input, on a read
// failure, on cancellation or on Close, whichever comes first.
type Stream struct {
	body io.ReadCloser
	dec  Decoder
	buf  []byte

	mu       sync.Mutex
	pending  []domain.Frame
	terminal bool // no more reads: marker, error frame or end of input seen
	closed   bool

	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps body. The caller must eventually call Close or consume
// the stream to its end.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		body: body,
		buf:  make([]byte, readSize),
	}
}

// Next returns the next frame. It returns io.EOF once the stream has ended.
func (s *Stream) Next(ctx context.Context) (domain.Frame, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.release() })
	defer stop()

	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			f := s.pending[0]
			s.pending = s.pending[1:]
			drained := s.terminal && len(s.pending) == 0
			s.mu.Unlock()
			if drained {
				_ = s.release()
			}
			return f, nil
		}
		if s.terminal {
			s.mu.Unlock()
			_ = s.release()
			return domain.Frame{}, io.EOF
		}
		if s.closed {
			s.mu.Unlock()
			if err := ctx.Err(); err != nil {
				return domain.Frame{}, err
			}
			return domain.Frame{}, domain.ErrStreamClosed
		}
		s.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return domain.Frame{}, err
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.enqueue(s.dec.Feed(s.buf[:n]))
		}
		if errors.Is(err, io.EOF) {
			s.enqueue(s.dec.Flush())
			s.mu.Lock()
			s.terminal = true
			s.mu.Unlock()
			continue
		}
		if err != nil {
			_ = s.release()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Frame{}, ctxErr
			}
			return domain.Frame{}, fmt.Errorf("read stream: %w", err)
		}
	}
}

// enqueue parses payloads in order. Nothing after a terminal frame is kept.
func (s *Stream) enqueue(payloads []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range payloads {
		if s.terminal {
			return
		}
		f, ok := ParseFrame(p)
		if !ok {
			continue
		}
		s.pending = append(s.pending, f)
		if f.Kind != domain.FrameToken {
			s.terminal = true
		}
	}
}

// Close releases the body. Frames not yet returned are discarded.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	return s.release()
}

func (s *Stream) release() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
