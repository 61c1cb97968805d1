package ascii

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/transport"
)

var delimiter = []byte("\r\n")

// LineFramer completes a reply at the first CRLF.
func LineFramer(buf []byte) (bool, error) {
	return bytes.HasSuffix(buf, delimiter), nil
}

// Client sends commands over an Exchanger.
type Client struct {
	ex     transport.Exchanger
	cfg    *clientConfig
	logger logger.Logger
}

// NewClient creates a client over ex.
func NewClient(ex transport.Exchanger, opts ...Option) (*Client, error) {
	if ex == nil {
		return nil, errors.New("ascii: exchanger is nil")
	}
	cfg := defaultClientConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return &Client{ex: ex, cfg: cfg, logger: cfg.logger.With("address", cfg.address)}, nil
}

// Address returns the bus address, 0 when unaddressed.
func (c *Client) Address() int { return c.cfg.address }

// Encode builds the request frame for cmd. Non-ASCII characters are dropped.
func (c *Client) Encode(cmd string) []byte {
	var b strings.Builder
	if c.cfg.address > 0 {
		b.WriteString(strconv.Itoa(c.cfg.address))
		b.WriteByte(',')
	}
	for _, r := range cmd {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	b.Write(delimiter)

	return []byte(b.String())
}

// Interact sends cmd and returns the reply without its terminator.
func (c *Client) Interact(ctx context.Context, cmd string) (string, error) {
	req := c.Encode(cmd)
	attempts := c.cfg.retryLimit + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		reply, err := c.ex.Exchange(ctx, req, LineFramer)
		if err == nil {
			line := string(bytes.TrimSuffix(reply, delimiter))
			if code, ok := strings.CutPrefix(line, "NA:"); ok {
				derr := &DeviceError{Command: cmd, Code: code}
				c.logger.Error("command rejected", "command", cmd, "code", code, "reason", derr.Description())
				return "", derr
			}
			return line, nil
		}

		switch {
		case ctx.Err() != nil:
			return "", ctx.Err()
		case errors.Is(err, transport.ErrOpen), errors.Is(err, transport.ErrSessionClosed):
			return "", fmt.Errorf("%w: %w", chamber.ErrCommunication, err)
		}
		lastErr = err
		if attempt < attempts {
			c.logger.Warn("command failed, retrying", "command", cmd, "attempt", attempt, "error", err)
		}
	}
	c.logger.Error("command failed", "command", cmd, "attempts", attempts, "error", lastErr)

	return "", fmt.Errorf("%w: command %q failed after %d attempts: %w", chamber.ErrCommunication, cmd, attempts, lastErr)
}

// InteractAll sends each command in order and stops at the first error.
func (c *Client) InteractAll(ctx context.Context, cmds ...string) ([]string, error) {
	out := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		reply, err := c.Interact(ctx, cmd)
		if err != nil {
			return out, err
		}
		out = append(out, reply)
	}

	return out, nil
}
