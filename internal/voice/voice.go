package voice

import (
	"context"
	"sync"
)

// Source acquires a local audio stream
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open audio input that can be muted and stopped
type Stream interface {
	SetMuted(muted bool)
	Muted() bool
	Close() error
}

// Silent is a Source whose streams carry no audio; the terminal client uses it
type Silent struct{}

func (Silent) Open(context.Context) (Stream, error) {
	return &silentStream{}, nil
}

type silentStream struct {
	mu     sync.Mutex
	muted  bool
	closed bool
}

func (s *silentStream) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

func (s *silentStream) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *silentStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
