package espec

import (
	"context"
	"fmt"
	"strings"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/regmap"
)

const (
	modeOn  = "On"
	modeOff = "Off"
)

func onOff(on bool) string {
	if on {
		return modeOn
	}

	return modeOff
}

func (d *Driver) channelState(ctx context.Context, ch int) (channelState, error) {
	cmd, reply, err := d.lookup(ctx, regmap.LoopProcessValue, ch)
	if err != nil {
		return channelState{}, err
	}

	return parseChannel(cmd, reply)
}

func (d *Driver) constantState(ctx context.Context, ch int) (constantState, error) {
	cmd, reply, err := d.lookup(ctx, regmap.LoopSetpoint, ch)
	if err != nil {
		return constantState{}, err
	}

	return parseConstant(cmd, reply)
}

func (d *Driver) ptcState(ctx context.Context) (ptcState, error) {
	_, reply, err := d.lookup(ctx, regmap.CascadeProcessValueProduct, 1)
	if err != nil {
		return ptcState{}, err
	}

	return parsePTC(d.model, reply)
}

func (d *Driver) constantPTC(ctx context.Context) (constantPTC, error) {
	_, reply, err := d.lookup(ctx, regmap.CascadeControl, 1)
	if err != nil {
		return constantPTC{}, err
	}

	return parseConstantPTC(d.model, reply)
}

// enabled reports the configured and active state of a channel. Temperature
// is always on.
func (d *Driver) enabled(ctx context.Context, ch int) (chamber.Toggle, error) {
	if ch == chTemp {
		return chamber.Toggle{Constant: true, Current: true}, nil
	}
	cur, err := d.channelState(ctx, ch)
	if err != nil {
		return chamber.Toggle{}, err
	}
	con, err := d.constantState(ctx, ch)
	if err != nil {
		return chamber.Toggle{}, err
	}

	return chamber.Toggle{Constant: con.Enabled, Current: cur.Enabled}, nil
}

// ReadLoopField implements chamber.LoopDriver.
func (d *Driver) ReadLoopField(ctx context.Context, ref chamber.LoopRef, field chamber.Field, dst *chamber.Loop) error {
	ch := channelOf(&d.profile, ref)
	cascade := ref.Type == chamber.LoopCascade

	switch field {
	case chamber.FieldSetpoint:
		con, err := d.constantState(ctx, ch)
		if err != nil {
			return err
		}
		if !cascade {
			cur, err := d.channelState(ctx, ch)
			if err != nil {
				return err
			}
			dst.Setpoint = &chamber.Setpoint{Constant: con.Setpoint, Current: cur.Setpoint}
			return nil
		}
		ptc, err := d.ptcState(ctx)
		if err != nil {
			return err
		}
		sp := &chamber.Setpoint{Constant: con.Setpoint, Current: ptc.SPAir, Air: &ptc.SPAir, Product: &ptc.SPProduct}
		if ptc.Cascade {
			sp.Current = ptc.SPProduct
		}
		dst.Setpoint = sp

	case chamber.FieldProcessValue:
		if cascade {
			ptc, err := d.ptcState(ctx)
			if err != nil {
				return err
			}
			dst.ProcessValue = &chamber.ProcessValue{Air: ptc.Air, Product: &ptc.Product}
			return nil
		}
		cur, err := d.channelState(ctx, ch)
		if err != nil {
			return err
		}
		dst.ProcessValue = &chamber.ProcessValue{Air: cur.ProcessValue}

	case chamber.FieldRange:
		cur, err := d.channelState(ctx, ch)
		if err != nil {
			return err
		}
		r := cur.Range
		dst.Range = &r

	case chamber.FieldEnable:
		en, err := d.enabled(ctx, ch)
		if err != nil {
			return err
		}
		dst.Enable = &en

	case chamber.FieldUnits:
		units := channelUnits[ch]
		dst.Units = &units

	case chamber.FieldMode:
		en, err := d.enabled(ctx, ch)
		if err != nil {
			return err
		}
		mode := &chamber.ModeValue{Constant: onOff(en.Constant), Current: onOff(en.Current)}
		status, err := d.query(ctx, d.model.modeQuery)
		if err != nil {
			return err
		}
		if status == "OFF" || status == "STANDBY" {
			mode.Current = modeOff
		}
		dst.Mode = mode

	case chamber.FieldPower:
		_, reply, err := d.lookup(ctx, regmap.LoopPower, 0)
		if err != nil {
			return err
		}
		out, err := parseHeater(reply)
		if err != nil {
			return err
		}
		v, ok := out[ch]
		if !ok {
			return badReply(cmdHeater, reply)
		}
		dst.Power = &chamber.Power{Constant: v, Current: v}

	case chamber.FieldDeviation:
		con, err := d.constantPTC(ctx)
		if err != nil {
			return err
		}
		dev := con.Deviation
		dst.Deviation = &dev

	case chamber.FieldEnableCascade:
		ptc, err := d.ptcState(ctx)
		if err != nil {
			return err
		}
		con, err := d.constantPTC(ctx)
		if err != nil {
			return err
		}
		dst.EnableCascade = &chamber.Toggle{Constant: con.Enabled, Current: ptc.Cascade}

	default:
		return chamber.UnsupportedErrorf("field %s", field)
	}

	return nil
}

// disables reports whether s switches the loop off.
func disables(s *chamber.LoopSettings) bool {
	if s.Enable != nil {
		return !*s.Enable
	}

	return s.Mode != nil && strings.EqualFold(*s.Mode, modeOff)
}

// WriteLoopField implements chamber.LoopDriver. Humidity is switched off by
// writing the setpoint as SOFF, so a setpoint written together with a disable
// is dropped.
func (d *Driver) WriteLoopField(ctx context.Context, ref chamber.LoopRef, field chamber.Field, s *chamber.LoopSettings) error {
	ch := channelOf(&d.profile, ref)
	if _, err := d.cmds.Resolve(regmap.LoopProcessValue, ch); err != nil {
		return err
	}
	name := channelNames[ch]

	switch field {
	case chamber.FieldSetpoint:
		if ch == chHumi && disables(s) {
			d.logger.Debug("setpoint dropped, humidity switched off", "loop", ref.String())
			return nil
		}
		return d.command(ctx, fmt.Sprintf("%s, S%0.1f", name, *s.Setpoint))

	case chamber.FieldRange:
		if err := d.command(ctx, fmt.Sprintf("%s, L%0.1f", name, s.Range.Min)); err != nil {
			return err
		}
		return d.command(ctx, fmt.Sprintf("%s, H%0.1f", name, s.Range.Max))

	case chamber.FieldEnable:
		return d.writeEnable(ctx, ch, *s.Enable, s.Setpoint)

	case chamber.FieldMode:
		switch {
		case strings.EqualFold(*s.Mode, modeOn):
			return d.writeEnable(ctx, ch, true, s.Setpoint)
		case strings.EqualFold(*s.Mode, modeOff):
			return d.writeEnable(ctx, ch, false, nil)
		}
		return chamber.ValidationErrorf("mode must be On or Off, got %q", *s.Mode)

	case chamber.FieldDeviation:
		con, err := d.constantPTC(ctx)
		if err != nil {
			return err
		}
		return d.writePTC(ctx, con.Enabled, *s.Deviation)

	case chamber.FieldEnableCascade:
		con, err := d.constantPTC(ctx)
		if err != nil {
			return err
		}
		dev := con.Deviation
		if s.Deviation != nil {
			dev = *s.Deviation
		}
		return d.writePTC(ctx, *s.EnableCascade, dev)
	}

	return chamber.UnsupportedErrorf("%s is read only on %s", field, d.model.name)
}

// writeEnable switches a channel. Humidity is enabled by writing a setpoint:
// sp when given, otherwise the current constant setpoint.
func (d *Driver) writeEnable(ctx context.Context, ch int, on bool, sp *float64) error {
	if ch == chTemp {
		if !on {
			return chamber.UnsupportedErrorf("temperature cannot be switched off")
		}
		return nil
	}
	if !on {
		return d.command(ctx, "HUMI,SOFF")
	}
	if sp == nil {
		con, err := d.constantState(ctx, ch)
		if err != nil {
			return err
		}
		sp = &con.Setpoint
	}

	return d.command(ctx, fmt.Sprintf("HUMI, S%0.1f", *sp))
}

func (d *Driver) writePTC(ctx context.Context, on bool, dev chamber.Deviation) error {
	neg := dev.Negative
	if d.model.negativeMagnitude && neg < 0 {
		neg = -neg
	}
	state := "OFF"
	if on {
		state = "ON"
	}

	return d.command(ctx, fmt.Sprintf("TEMP PTC, PTC%s, DEVP%0.1f, DEVN%0.1f", state, dev.Positive, neg))
}
