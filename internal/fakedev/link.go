package fakedev

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotOpen is returned by I/O on a closed fake link.
var ErrNotOpen = errors.New("fakedev: link not open")

// wire is the byte plumbing shared by the fake devices.
type wire struct {
	mu       sync.Mutex
	open     bool
	opens    int
	failOpen error
	pending  []byte
	// drop is the number of upcoming requests that get no reply.
	drop int
}

func (w *wire) Open(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOpen != nil {
		return w.failOpen
	}
	w.open = true
	w.opens++

	return nil
}

func (w *wire) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = false
	w.pending = nil

	return nil
}

func (w *wire) Read(p []byte, deadline time.Time) (int, error) {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return 0, ErrNotOpen
	}
	if len(w.pending) > 0 {
		n := copy(p, w.pending)
		w.pending = w.pending[n:]
		w.mu.Unlock()
		return n, nil
	}
	w.mu.Unlock()
	if d := time.Until(deadline); d > 0 {
		time.Sleep(d)
	}

	return 0, nil
}

func (w *wire) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = nil

	return nil
}

// reply queues a reply unless the request is to be dropped. Callers hold mu.
func (w *wire) reply(b []byte) {
	if w.drop > 0 {
		w.drop--
		return
	}
	w.pending = append(w.pending, b...)
}

// Drop makes the next n requests go unanswered.
func (w *wire) Drop(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drop = n
}

// FailOpen makes Open return err. A nil err restores normal behavior.
func (w *wire) FailOpen(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failOpen = err
}

// Opens returns how many times the link was opened.
func (w *wire) Opens() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.opens
}

// IsOpen reports whether the link is open.
func (w *wire) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.open
}
