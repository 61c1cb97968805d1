package transport

import "errors"

var (
	// ErrTimeout indicates the reply did not complete within the request timeout.
	ErrTimeout = errors.New("transport: reply timeout")

	// ErrSessionClosed indicates the session was closed for good.
	ErrSessionClosed = errors.New("transport: session closed")

	// ErrLinkNil indicates that a nil Link was supplied.
	ErrLinkNil = errors.New("transport: link is nil")

	// ErrOpen indicates the link could not be opened.
	ErrOpen = errors.New("transport: open failed")

	// ErrLinkClosed indicates I/O on a link that is not open.
	ErrLinkClosed = errors.New("transport: link not open")
)

// IsTimeout reports whether err is a reply timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
