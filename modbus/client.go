package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/transport"
)

// Client issues Modbus requests over an Exchanger.
//
// Client is goroutine-safe as long as the Exchanger is; a *transport.Session
// serializes requests from concurrent callers.
type Client struct {
	ex     transport.Exchanger
	cfg    *clientConfig
	logger logger.Logger
	txID   atomic.Uint32
}

// NewClient creates a client over ex.
func NewClient(ex transport.Exchanger, opts ...Option) (*Client, error) {
	if ex == nil {
		return nil, errors.New("modbus: exchanger is nil")
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

	return &Client{
		ex:     ex,
		cfg:    cfg,
		logger: cfg.logger.With("framing", cfg.framing.String(), "unit", cfg.unitID),
	}, nil
}

// Framing returns the configured framing.
func (c *Client) Framing() Framing { return c.cfg.framing }

// LowWordFirst reports the configured 32-bit word order.
func (c *Client) LowWordFirst() bool { return c.cfg.lowWordFirst }

// do sends pdu and returns the validated reply PDU. Transient failures are
// retried; exception replies and context cancellation are returned at once.
func (c *Client) do(ctx context.Context, pdu []byte) ([]byte, error) {
	fc := pdu[0]
	attempts := c.cfg.retryLimit + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		adu, tx := c.encode(pdu)
		reply, err := c.ex.Exchange(ctx, adu, c.framer())
		if err == nil {
			var resp []byte
			resp, err = c.decode(reply, tx, fc)
			if err == nil {
				return resp, nil
			}
		}

		var exc *ExceptionError
		switch {
		case errors.As(err, &exc):
			c.logger.Error("modbus exception", "function", fc, "code", exc.Code, "reason", exc.Reason())
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, transport.ErrOpen), errors.Is(err, transport.ErrSessionClosed):
			return nil, fmt.Errorf("%w: %w", chamber.ErrCommunication, err)
		}

		lastErr = err
		if attempt < attempts {
			c.logger.Warn("modbus request failed, retrying", "function", fc, "attempt", attempt, "error", err)
		}
	}
	c.logger.Error("modbus request failed", "function", fc, "attempts", attempts, "error", lastErr)

	return nil, fmt.Errorf("%w: modbus function 0x%02x failed after %d attempts: %w",
		chamber.ErrCommunication, fc, attempts, lastErr)
}

func (c *Client) read(ctx context.Context, fc byte, addr uint16, count int) ([]uint16, error) {
	if count < 1 || count > MaxReadCount {
		return nil, fmt.Errorf("modbus: read count %d out of range [1, %d]", count, MaxReadCount)
	}
	resp, err := c.do(ctx, readPDU(fc, addr, count))
	if err != nil {
		return nil, err
	}
	if int(resp[1]) != 2*count {
		return nil, fmt.Errorf("modbus: read %d registers at %d, got %d bytes: %w", count, addr, resp[1], convert.ErrDecode)
	}
	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(resp[2+2*i:])
	}

	return regs, nil
}

// ReadHolding reads count holding registers starting at addr.
func (c *Client) ReadHolding(ctx context.Context, addr uint16, count int) ([]uint16, error) {
	return c.read(ctx, FuncReadHolding, addr, count)
}

// ReadInput reads count input registers starting at addr.
func (c *Client) ReadInput(ctx context.Context, addr uint16, count int) ([]uint16, error) {
	return c.read(ctx, FuncReadInput, addr, count)
}

// ReadHoldingSigned reads count holding registers as signed values.
func (c *Client) ReadHoldingSigned(ctx context.Context, addr uint16, count int) ([]int16, error) {
	regs, err := c.ReadHolding(ctx, addr, count)
	if err != nil {
		return nil, err
	}
	out := make([]int16, len(regs))
	for i, r := range regs {
		out[i] = convert.Int16(r)
	}

	return out, nil
}

// ReadHoldingFloat reads count consecutive floats, two registers each.
func (c *Client) ReadHoldingFloat(ctx context.Context, addr uint16, count int) ([]float32, error) {
	regs, err := c.ReadHolding(ctx, addr, 2*count)
	if err != nil {
		return nil, err
	}
	out := make([]float32, count)
	for i := range out {
		if out[i], err = convert.Float32FromRegisters(regs[2*i:2*i+2], c.cfg.lowWordFirst); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadHoldingString reads a string stored one character per register.
func (c *Client) ReadHoldingString(ctx context.Context, addr uint16, count int) (string, error) {
	regs, err := c.ReadHolding(ctx, addr, count)
	if err != nil {
		return "", err
	}

	return convert.StringFromRegisters(regs), nil
}

// WriteHolding writes values starting at addr. A single value uses function
// 6, several values use function 16.
func (c *Client) WriteHolding(ctx context.Context, addr uint16, values ...uint16) error {
	switch {
	case len(values) == 0:
		return errors.New("modbus: nothing to write")
	case len(values) > MaxWriteCount:
		return fmt.Errorf("modbus: write count %d exceeds %d", len(values), MaxWriteCount)
	case len(values) == 1:
		resp, err := c.do(ctx, writeSinglePDU(addr, values[0]))
		if err != nil {
			return err
		}
		if binary.BigEndian.Uint16(resp[1:3]) != addr || binary.BigEndian.Uint16(resp[3:5]) != values[0] {
			return fmt.Errorf("modbus: write echo % x does not match request: %w", resp, convert.ErrDecode)
		}
	default:
		resp, err := c.do(ctx, writeMultiplePDU(addr, values))
		if err != nil {
			return err
		}
		if binary.BigEndian.Uint16(resp[1:3]) != addr || int(binary.BigEndian.Uint16(resp[3:5])) != len(values) {
			return fmt.Errorf("modbus: write echo % x does not match request: %w", resp, convert.ErrDecode)
		}
	}

	return nil
}

// WriteHoldingSigned writes signed values starting at addr.
func (c *Client) WriteHoldingSigned(ctx context.Context, addr uint16, values ...int16) error {
	regs := make([]uint16, len(values))
	for i, v := range values {
		regs[i] = convert.Uint16(v)
	}

	return c.WriteHolding(ctx, addr, regs...)
}

// WriteHoldingFloat writes floats starting at addr, two registers each.
func (c *Client) WriteHoldingFloat(ctx context.Context, addr uint16, values ...float32) error {
	regs := make([]uint16, 0, 2*len(values))
	for _, v := range values {
		regs = append(regs, convert.RegistersFromFloat32(v, c.cfg.lowWordFirst)...)
	}

	return c.WriteHolding(ctx, addr, regs...)
}

// WriteHoldingString writes s one character per register, padded with zero
// registers to count.
func (c *Client) WriteHoldingString(ctx context.Context, addr uint16, s string, count int) error {
	return c.WriteHolding(ctx, addr, convert.RegistersFromString(s, count, 0)...)
}

// Raw sends a request PDU and returns the reply PDU. Only the supported
// function codes are accepted.
func (c *Client) Raw(ctx context.Context, pdu []byte) ([]byte, error) {
	if len(pdu) < 5 {
		return nil, fmt.Errorf("modbus: raw request too short: % x", pdu)
	}
	switch pdu[0] {
	case FuncReadHolding, FuncReadInput, FuncWriteSingle:
		if len(pdu) != 5 {
			return nil, fmt.Errorf("modbus: raw function 0x%02x needs 5 bytes, got %d", pdu[0], len(pdu))
		}
	case FuncWriteMultiple:
		if len(pdu) < 6 || len(pdu) != 6+int(pdu[5]) {
			return nil, fmt.Errorf("modbus: raw function 0x10 byte count mismatch: % x", pdu)
		}
	default:
		return nil, fmt.Errorf("modbus: raw function 0x%02x not supported", pdu[0])
	}

	return c.do(ctx, pdu)
}
