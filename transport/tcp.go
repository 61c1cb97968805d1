package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// TCPLink is a Link over a TCP stream, used by Modbus TCP and by serial
// servers forwarding an ASCII controller port.
type TCPLink struct {
	host           string
	port           int
	connectTimeout time.Duration
	conn           net.Conn
}

var _ Link = (*TCPLink)(nil)

// NewTCPLink creates a TCP link to host:port. A zero connectTimeout uses
// DefaultConnectTimeout.
func NewTCPLink(host string, port int, connectTimeout time.Duration) (*TCPLink, error) {
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(host), "."), ".")
	if host == "" {
		return nil, errors.New("transport: empty host")
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("transport: port %d out of range [1, 65535]", port)
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	return &TCPLink{host: host, port: port, connectTimeout: connectTimeout}, nil
}

// Addr returns "host:port".
func (l *TCPLink) Addr() string { return net.JoinHostPort(l.host, strconv.Itoa(l.port)) }

func (l *TCPLink) String() string { return "tcp://" + l.Addr() }

func (l *TCPLink) Open(ctx context.Context) error {
	if l.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: l.connectTimeout}
	conn, err := d.DialContext(ctx, "tcp", l.Addr())
	if err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	l.conn = conn

	return nil
}

func (l *TCPLink) Close() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil

	return err
}

func (l *TCPLink) Write(p []byte) (int, error) {
	if l.conn == nil {
		return 0, ErrLinkClosed
	}

	return l.conn.Write(p)
}

func (l *TCPLink) Read(p []byte, deadline time.Time) (int, error) {
	if l.conn == nil {
		return 0, ErrLinkClosed
	}
	if err := l.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	n, err := l.conn.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}

	return n, err
}

// Discard reads until the stream has been silent for a short while.
func (l *TCPLink) Discard() error {
	if l.conn == nil {
		return nil
	}
	buf := make([]byte, 256)
	for {
		n, err := l.Read(buf, time.Now().Add(5*time.Millisecond))
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}
