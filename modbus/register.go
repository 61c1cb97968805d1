package modbus

import (
	"context"
	"fmt"

	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/regmap"
)

func (c *Client) readRegs(ctx context.Context, r regmap.Register) ([]uint16, error) {
	if r.Input {
		return c.ReadInput(ctx, r.Address, r.Words())
	}

	return c.ReadHolding(ctx, r.Address, r.Words())
}

// ReadValue reads a numeric register and converts it to an engineering value.
// A register with a bit selector yields 0 or 1.
func (c *Client) ReadValue(ctx context.Context, r regmap.Register) (float64, error) {
	regs, err := c.readRegs(ctx, r)
	if err != nil {
		return 0, err
	}
	if r.Bit != nil {
		if convert.BitAt(regs[0], *r.Bit) {
			return 1, nil
		}
		return 0, nil
	}

	switch r.Type {
	case regmap.TypeFloat32:
		f, err := convert.Float32FromRegisters(regs, c.cfg.lowWordFirst)
		if err != nil {
			return 0, err
		}
		if r.Resolution > 0 {
			return convert.Quantize(float64(f), r.Resolution), nil
		}
		return float64(f), nil
	case regmap.TypeInt16:
		return convert.RegisterToScaled(regs[0], r.Resolution), nil
	case regmap.TypeString:
		return 0, fmt.Errorf("modbus: register %d holds a string", r.Address)
	default:
		return convert.ToEngineering(int64(regs[0]), r.Resolution), nil
	}
}

// ReadWord reads the raw word of a single register.
func (c *Client) ReadWord(ctx context.Context, r regmap.Register) (uint16, error) {
	regs, err := c.readRegs(ctx, r)
	if err != nil {
		return 0, err
	}

	return regs[0], nil
}

// ReadString reads a string register block.
func (c *Client) ReadString(ctx context.Context, r regmap.Register) (string, error) {
	regs, err := c.readRegs(ctx, r)
	if err != nil {
		return "", err
	}

	return convert.StringFromRegisters(regs), nil
}

// WriteValue converts an engineering value and writes it. A register with a
// bit selector is read, modified and written back.
func (c *Client) WriteValue(ctx context.Context, r regmap.Register, v float64) error {
	if r.Bit != nil {
		word, err := c.ReadWord(ctx, r)
		if err != nil {
			return err
		}
		return c.WriteHolding(ctx, r.Address, convert.SetBit(word, *r.Bit, v != 0))
	}

	switch r.Type {
	case regmap.TypeFloat32:
		return c.WriteHoldingFloat(ctx, r.Address, float32(v))
	case regmap.TypeInt16:
		word, err := convert.ScaledToRegister(v, r.Resolution)
		if err != nil {
			return err
		}
		return c.WriteHolding(ctx, r.Address, word)
	case regmap.TypeString:
		return fmt.Errorf("modbus: register %d holds a string", r.Address)
	default:
		raw := convert.ToRaw(v, r.Resolution)
		if raw < 0 || raw > 0xFFFF {
			return fmt.Errorf("modbus: %v does not fit unsigned register %d", v, r.Address)
		}
		return c.WriteHolding(ctx, r.Address, uint16(raw))
	}
}

// WriteString writes a string register block.
func (c *Client) WriteString(ctx context.Context, r regmap.Register, s string) error {
	return c.WriteHoldingString(ctx, r.Address, s, r.Words())
}
