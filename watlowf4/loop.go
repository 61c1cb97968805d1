package watlowf4

import (
	"context"
	"strings"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/regmap"
)

// Status register values.
const (
	statusProgram = 2
	statusPaused  = 3
)

// productChannel is the decimals index of the cascade product input.
const productChannel = 3

// channel returns the 1-based controller channel of a loop; a cascade is
// channel 1.
func (d *Driver) channel(ref chamber.LoopRef) int {
	for i, r := range d.profile.LoopMap() {
		if r == ref {
			return i + 1
		}
	}

	return 0
}

// ReadLoopField reads one field of a loop or cascade into dst.
func (d *Driver) ReadLoopField(ctx context.Context, ref chamber.LoopRef, field chamber.Field, dst *chamber.Loop) error {
	ch := d.channel(ref)

	switch field {
	case chamber.FieldSetpoint:
		sp, err := d.readSetpoint(ctx, ch, true)
		if err != nil {
			return err
		}
		if ref.Type == chamber.LoopCascade {
			air, err := d.readScaled(ctx, regmap.CascadeSetpointAir, 1, ch)
			if err != nil {
				return err
			}
			prod := sp.Current
			sp.Air, sp.Product = &air, &prod
		}
		dst.Setpoint = &sp

	case chamber.FieldProcessValue:
		air, err := d.readScaled(ctx, regmap.LoopProcessValue, ch, ch)
		if err != nil {
			return err
		}
		pv := &chamber.ProcessValue{Air: air}
		if ref.Type == chamber.LoopCascade {
			prod, err := d.readScaled(ctx, regmap.CascadeProcessValueProduct, 1, productChannel)
			if err != nil {
				return err
			}
			pv.Product = &prod
		}
		dst.ProcessValue = pv

	case chamber.FieldRange:
		rng, err := d.readRange(ctx, ch)
		if err != nil {
			return err
		}
		dst.Range = &rng

	case chamber.FieldEnable:
		en, err := d.readEnable(ctx, ref, ch)
		if err != nil {
			return err
		}
		dst.Enable = &en

	case chamber.FieldUnits:
		units, err := d.readUnits(ctx, ch)
		if err != nil {
			return err
		}
		dst.Units = &units

	case chamber.FieldMode:
		en, err := d.readEnable(ctx, ref, ch)
		if err != nil {
			return err
		}
		dst.Mode = &chamber.ModeValue{Constant: onOff(en.Constant), Current: onOff(en.Current)}

	case chamber.FieldPower:
		pwr, err := d.readPower(ctx, ch)
		if err != nil {
			return err
		}
		dst.Power = &chamber.Power{Constant: pwr, Current: pwr}

	case chamber.FieldDeviation:
		neg, err := d.readScaled(ctx, regmap.CascadeDeviationNegative, 1, ch)
		if err != nil {
			return err
		}
		pos, err := d.readScaled(ctx, regmap.CascadeDeviationPositive, 1, ch)
		if err != nil {
			return err
		}
		dst.Deviation = &chamber.Deviation{Positive: pos, Negative: neg}

	case chamber.FieldEnableCascade:
		dst.EnableCascade = &chamber.Toggle{Constant: true, Current: true}

	default:
		return chamber.CapabilityErrorf("unknown field %q", field)
	}

	return nil
}

func onOff(on bool) string {
	if on {
		return "On"
	}

	return "Off"
}

// readSetpoint reads the constant setpoint and, while a program runs, the
// active one. With clamp set both are raised to the range minimum, which is
// where the F4 parks a disabled channel.
func (d *Driver) readSetpoint(ctx context.Context, ch int, clamp bool) (chamber.Setpoint, error) {
	c, err := d.readScaled(ctx, regmap.LoopSetpoint, ch, ch)
	if err != nil {
		return chamber.Setpoint{}, err
	}
	cur := c
	if d.regs.Has(regmap.LoopSetpointCurrent, ch) {
		active, err := d.programActive(ctx)
		if err != nil {
			return chamber.Setpoint{}, err
		}
		if active {
			if cur, err = d.readScaled(ctx, regmap.LoopSetpointCurrent, ch, ch); err != nil {
				return chamber.Setpoint{}, err
			}
		}
	}
	if clamp {
		lo, err := d.readScaled(ctx, regmap.LoopRangeMin, ch, ch)
		if err != nil {
			return chamber.Setpoint{}, err
		}
		c, cur = max(c, lo), max(cur, lo)
	}

	return chamber.Setpoint{Constant: c, Current: cur}, nil
}

func (d *Driver) readRange(ctx context.Context, ch int) (chamber.Range, error) {
	lo, err := d.readScaled(ctx, regmap.LoopRangeMin, ch, ch)
	if err != nil {
		return chamber.Range{}, err
	}
	hi, err := d.readScaled(ctx, regmap.LoopRangeMax, ch, ch)
	if err != nil {
		return chamber.Range{}, err
	}

	return chamber.Range{Min: lo, Max: hi}, nil
}

// programActive reports whether a program is running or paused.
func (d *Driver) programActive(ctx context.Context) (bool, error) {
	word, err := d.readWord(ctx, regmap.Status, 0)
	if err != nil {
		return false, err
	}

	return word == statusProgram || word == statusPaused, nil
}

// readEnable derives the enable state. A channel without a gating event is
// enabled while its setpoint sits above the range minimum.
func (d *Driver) readEnable(ctx context.Context, ref chamber.LoopRef, ch int) (chamber.Toggle, error) {
	sp, err := d.readSetpoint(ctx, ch, false)
	if err != nil {
		return chamber.Toggle{}, err
	}
	lo, err := d.readScaled(ctx, regmap.LoopRangeMin, ch, ch)
	if err != nil {
		return chamber.Toggle{}, err
	}
	cmd := sp.Constant >= lo

	ev := d.profile.EventFor(ref)
	if ev == 0 {
		active, err := d.programActive(ctx)
		if err != nil {
			return chamber.Toggle{}, err
		}
		return chamber.Toggle{Constant: cmd, Current: active || cmd}, nil
	}
	event, err := d.GetEvent(ctx, ev)
	if err != nil {
		return chamber.Toggle{}, err
	}
	running := true
	if d.profile.CondEvent != 0 {
		cond, err := d.GetEvent(ctx, d.profile.CondEvent)
		if err != nil {
			return chamber.Toggle{}, err
		}
		running = cond.Constant
	}
	if running {
		cmd = event.Constant
	}

	return chamber.Toggle{Constant: event.Constant, Current: cmd}, nil
}

// readUnits reads the channel input units. Temperature channels report the
// controller's temperature scale.
func (d *Driver) readUnits(ctx context.Context, ch int) (string, error) {
	if !d.regs.Has(regmap.LoopUnits, ch) {
		return "", chamber.UnsupportedErrorf("channel %d units are not mapped", ch)
	}
	word, err := d.readWord(ctx, regmap.LoopUnits, ch)
	if err != nil {
		return "", err
	}
	if int(word) >= len(unitNames) {
		return "ERROR", nil
	}
	name := unitNames[word]
	if name != "Temp" {
		return name, nil
	}
	if !d.regs.Has(regmap.TemperatureUnits, 0) {
		return name, nil
	}
	scale, err := d.readWord(ctx, regmap.TemperatureUnits, 0)
	if err != nil {
		return "", err
	}
	if scale != 0 {
		return "°C", nil
	}

	return "°F", nil
}

// readPower sums the heat (A) and cool (B) outputs of a channel.
func (d *Driver) readPower(ctx context.Context, ch int) (float64, error) {
	if !d.regs.Has(regmap.LoopPower, ch) {
		return 0, chamber.UnsupportedErrorf("channel %d power is not mapped", ch)
	}
	r, err := d.resolve(regmap.LoopPower, ch)
	if err != nil {
		return 0, err
	}
	pwr, err := d.client.ReadValue(ctx, r)
	if err != nil {
		return 0, err
	}
	if d.regs.Has(regmap.LoopOutputB, ch) {
		r, err := d.resolve(regmap.LoopOutputB, ch)
		if err != nil {
			return 0, err
		}
		b, err := d.client.ReadValue(ctx, r)
		if err != nil {
			return 0, err
		}
		pwr += b
	}

	return convert.Quantize(pwr, r.Resolution), nil
}

// WriteLoopField writes one field of a loop or cascade.
func (d *Driver) WriteLoopField(ctx context.Context, ref chamber.LoopRef, field chamber.Field, s *chamber.LoopSettings) error {
	ch := d.channel(ref)

	switch field {
	case chamber.FieldSetpoint:
		return d.writeScaled(ctx, regmap.LoopSetpoint, ch, ch, *s.Setpoint)
	case chamber.FieldRange:
		return d.writeRange(ctx, ch, *s.Range)
	case chamber.FieldEnable:
		return d.writeEnable(ctx, ref, ch, *s.Enable)
	case chamber.FieldMode:
		switch strings.ToLower(*s.Mode) {
		case "on":
			return d.writeEnable(ctx, ref, ch, true)
		case "off":
			return d.writeEnable(ctx, ref, ch, false)
		}
		return chamber.ValidationErrorf("mode %q must be On or Off", *s.Mode)
	case chamber.FieldDeviation:
		return d.writeDeviation(ctx, ch, *s.Deviation)
	}

	return chamber.UnsupportedErrorf("field %s is read only", field)
}

func (d *Driver) writeRange(ctx context.Context, ch int, rng chamber.Range) error {
	dec, ok, err := d.channelDecimals(ctx, ch)
	if err != nil {
		return err
	}
	regs := make([]regmap.Register, 2)
	values := make([]uint16, 2)
	for i, item := range []struct {
		p regmap.Param
		v float64
	}{{regmap.LoopRangeMin, rng.Min}, {regmap.LoopRangeMax, rng.Max}} {
		r, err := d.resolve(item.p, ch)
		if err != nil {
			return err
		}
		if ok {
			r.Resolution = dec
		}
		if values[i], err = convert.ScaledToRegister(item.v, r.Resolution); err != nil {
			return chamber.ValidationErrorf("range %v: %v", item.v, err)
		}
		regs[i] = r
	}

	return d.writeWords(ctx, regs, values...)
}

// writeEnable enables or disables a channel. Enabling lifts a setpoint parked
// below the range minimum. Without a gating event a channel cannot be
// disabled.
func (d *Driver) writeEnable(ctx context.Context, ref chamber.LoopRef, ch int, on bool) error {
	ev := d.profile.EventFor(ref)
	if ev == 0 && !on {
		return chamber.UnsupportedErrorf("%s has no event to disable it", ref)
	}
	if on {
		sp, err := d.readScaled(ctx, regmap.LoopSetpoint, ch, ch)
		if err != nil {
			return err
		}
		lo, err := d.readScaled(ctx, regmap.LoopRangeMin, ch, ch)
		if err != nil {
			return err
		}
		if sp < lo {
			if err := d.writeScaled(ctx, regmap.LoopSetpoint, ch, ch, lo); err != nil {
				return err
			}
		}
	}
	if ev == 0 {
		return nil
	}

	return d.SetEvent(ctx, ev, on)
}

// writeDeviation writes the deviation pair and saves it.
func (d *Driver) writeDeviation(ctx context.Context, ch int, dev chamber.Deviation) error {
	neg := dev.Negative
	if neg > 0 {
		neg = -neg
	}
	if err := d.writeScaled(ctx, regmap.CascadeDeviationNegative, 1, ch, neg); err != nil {
		return err
	}
	if err := d.writeScaled(ctx, regmap.CascadeDeviationPositive, 1, ch, dev.Positive); err != nil {
		return err
	}
	if !d.regs.Has(regmap.Save, 0) {
		return nil
	}

	return d.writeWord(ctx, regmap.Save, 0, 0)
}
