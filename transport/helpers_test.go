package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-chamber/logger"
)

// scriptLink is an in-memory Link answering each write through respond.
type scriptLink struct {
	mu       sync.Mutex
	respond  func(req []byte) [][]byte
	pending  [][]byte
	writes   [][]byte
	opens    int
	closes   int
	open     bool
	openErr  error
	inFlight bool
	overlap  bool
}

func newScriptLink(respond func(req []byte) [][]byte) *scriptLink {
	return &scriptLink{respond: respond}
}

func (l *scriptLink) Open(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return l.openErr
	}
	l.opens++
	l.open = true

	return nil
}

func (l *scriptLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	l.open = false

	return nil
}

func (l *scriptLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return 0, ErrLinkClosed
	}
	if l.inFlight {
		l.overlap = true
	}
	l.inFlight = true
	l.writes = append(l.writes, bytes.Clone(p))
	if l.respond != nil {
		l.pending = l.respond(p)
	}

	return len(p), nil
}

func (l *scriptLink) Read(p []byte, deadline time.Time) (int, error) {
	l.mu.Lock()
	if len(l.pending) > 0 {
		n := copy(p, l.pending[0])
		l.pending = l.pending[1:]
		if len(l.pending) == 0 {
			l.inFlight = false
		}
		l.mu.Unlock()
		return n, nil
	}
	l.mu.Unlock()
	time.Sleep(time.Until(deadline))

	return 0, nil
}

func (l *scriptLink) Discard() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = nil
	l.inFlight = false

	return nil
}

func (l *scriptLink) String() string { return "script" }

func (l *scriptLink) writeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.writes)
}

// crlfFramer completes on a trailing CRLF and rejects a leading '!'.
func crlfFramer(buf []byte) (bool, error) {
	if buf[0] == '!' {
		return false, errors.New("bang")
	}

	return bytes.HasSuffix(buf, []byte("\r\n")), nil
}

func newTestSession(t *testing.T, link Link, opts ...Option) *Session {
	t.Helper()

	defaults := []Option{
		WithTimeout(50 * time.Millisecond),
		WithPollInterval(5 * time.Millisecond),
		WithLogger(logger.NewNopMockLogger()),
	}
	s, err := NewSession(link, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}
