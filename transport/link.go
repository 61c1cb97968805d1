package transport

import (
	"context"
	"time"
)

// Link is a raw byte stream to a controller.
//
// Link implementations are NOT goroutine-safe; Session serializes access.
type Link interface {
	// Open connects the link.
	Open(ctx context.Context) error
	// Close disconnects the link. Closing a closed link is a no-op.
	Close() error
	// Write writes the whole request.
	Write(p []byte) (int, error)
	// Read reads available bytes into p, waiting no later than deadline.
	// It returns 0 bytes and a nil error, or an error satisfying IsTimeout
	// style checks, when nothing arrived in time.
	Read(p []byte, deadline time.Time) (int, error)
	// Discard drops any stale input, such as a late reply to a timed out request.
	Discard() error
	// String describes the link for logs.
	String() string
}

// Framer reports whether buf holds a complete reply. An error means the bytes
// can never form a valid reply.
type Framer func(buf []byte) (complete bool, err error)

// Exchanger sends a request and returns the complete reply.
type Exchanger interface {
	Exchange(ctx context.Context, req []byte, framer Framer) ([]byte, error)
}
