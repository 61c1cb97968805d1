package watlowf4t

import (
	"context"
	"fmt"
	"strings"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/regmap"
)

// loopParams names the registers of one loop or cascade.
type loopParams struct {
	setpoint, setpointCurrent regmap.Param
	rangeMin, rangeMax        regmap.Param
	mode, modeCurrent         regmap.Param
	power, powerCurrent       regmap.Param
}

var (
	standardParams = loopParams{
		setpoint: regmap.LoopSetpoint, setpointCurrent: regmap.LoopSetpointCurrent,
		rangeMin: regmap.LoopRangeMin, rangeMax: regmap.LoopRangeMax,
		mode: regmap.LoopMode, modeCurrent: regmap.LoopModeCurrent,
		power: regmap.LoopPower, powerCurrent: regmap.LoopPowerCurrent,
	}
	cascadeParams = loopParams{
		setpoint: regmap.CascadeSetpoint,
		rangeMin: regmap.CascadeRangeMin, rangeMax: regmap.CascadeRangeMax,
		mode: regmap.CascadeEnable, modeCurrent: regmap.CascadeEnableCurrent,
		power: regmap.CascadePower, powerCurrent: regmap.CascadePowerCurrent,
	}
)

func paramsFor(ref chamber.LoopRef) loopParams {
	if ref.Type == chamber.LoopCascade {
		return cascadeParams
	}

	return standardParams
}

// ReadLoopField reads one field of a loop or cascade into dst.
func (d *Driver) ReadLoopField(ctx context.Context, ref chamber.LoopRef, field chamber.Field, dst *chamber.Loop) error {
	lp := paramsFor(ref)
	n := ref.Number

	switch field {
	case chamber.FieldSetpoint:
		sp, err := d.readSetpoint(ctx, ref, lp)
		if err != nil {
			return err
		}
		dst.Setpoint = sp

	case chamber.FieldProcessValue:
		if ref.Type == chamber.LoopCascade {
			air, err := d.readFloat(ctx, regmap.CascadeProcessValueAir, n)
			if err != nil {
				return err
			}
			prod, err := d.readFloat(ctx, regmap.CascadeProcessValueProduct, n)
			if err != nil {
				return err
			}
			dst.ProcessValue = &chamber.ProcessValue{Air: air, Product: &prod}
			return nil
		}
		air, err := d.readFloat(ctx, regmap.LoopProcessValue, n)
		if err != nil {
			return err
		}
		dst.ProcessValue = &chamber.ProcessValue{Air: air}

	case chamber.FieldRange:
		lo, err := d.readFloat(ctx, lp.rangeMin, n)
		if err != nil {
			return err
		}
		hi, err := d.readFloat(ctx, lp.rangeMax, n)
		if err != nil {
			return err
		}
		dst.Range = &chamber.Range{Min: lo, Max: hi}

	case chamber.FieldEnable:
		en, err := d.readEnable(ctx, ref, lp)
		if err != nil {
			return err
		}
		dst.Enable = &en

	case chamber.FieldUnits:
		units, err := d.readUnits(ctx, ref)
		if err != nil {
			return err
		}
		dst.Units = &units

	case chamber.FieldMode:
		mode, err := d.readMode(ctx, ref, lp)
		if err != nil {
			return err
		}
		dst.Mode = &mode

	case chamber.FieldPower:
		c, err := d.readFloat(ctx, lp.power, n)
		if err != nil {
			return err
		}
		cur, err := d.readFloat(ctx, lp.powerCurrent, n)
		if err != nil {
			return err
		}
		dst.Power = &chamber.Power{Constant: c, Current: cur}

	case chamber.FieldDeviation:
		pos, err := d.readFloat(ctx, regmap.CascadeDeviationPositive, n)
		if err != nil {
			return err
		}
		neg, err := d.readFloat(ctx, regmap.CascadeDeviationNegative, n)
		if err != nil {
			return err
		}
		dst.Deviation = &chamber.Deviation{Positive: pos, Negative: neg}

	case chamber.FieldEnableCascade:
		ctl, err := d.readCascadeControl(ctx, n)
		if err != nil {
			return err
		}
		dst.EnableCascade = &ctl

	default:
		return chamber.CapabilityErrorf("unknown field %q", field)
	}

	return nil
}

func (d *Driver) readSetpoint(ctx context.Context, ref chamber.LoopRef, lp loopParams) (*chamber.Setpoint, error) {
	n := ref.Number
	c, err := d.readFloat(ctx, lp.setpoint, n)
	if err != nil {
		return nil, err
	}
	if ref.Type != chamber.LoopCascade {
		cur, err := d.readFloat(ctx, lp.setpointCurrent, n)
		if err != nil {
			return nil, err
		}
		return &chamber.Setpoint{Constant: c, Current: cur}, nil
	}

	air, err := d.readFloat(ctx, regmap.CascadeSetpointAir, n)
	if err != nil {
		return nil, err
	}
	prod, err := d.readFloat(ctx, regmap.CascadeSetpointProduct, n)
	if err != nil {
		return nil, err
	}
	ctl, err := d.readCascadeControl(ctx, n)
	if err != nil {
		return nil, err
	}
	sp := &chamber.Setpoint{Constant: c, Current: air, Air: &air, Product: &prod}
	if ctl.Current {
		sp.Current = prod
	}

	return sp, nil
}

// readEnable derives the enable state. A loop gated by an event reports the
// event as its configured state; while the chamber runs the event also decides
// the active state.
func (d *Driver) readEnable(ctx context.Context, ref chamber.LoopRef, lp loopParams) (chamber.Toggle, error) {
	word, err := d.readWord(ctx, lp.modeCurrent, ref.Number)
	if err != nil {
		return chamber.Toggle{}, err
	}
	active := word != valOff

	ev := d.profile.EventFor(ref)
	if ev == 0 {
		return chamber.Toggle{Constant: true, Current: active}, nil
	}
	event, err := d.GetEvent(ctx, ev)
	if err != nil {
		return chamber.Toggle{}, err
	}
	running, err := d.running(ctx)
	if err != nil {
		return chamber.Toggle{}, err
	}
	if running {
		active = event.Constant
	}

	return chamber.Toggle{Constant: event.Constant, Current: active}, nil
}

func (d *Driver) readMode(ctx context.Context, ref chamber.LoopRef, lp loopParams) (chamber.ModeValue, error) {
	en, err := d.readEnable(ctx, ref, lp)
	if err != nil {
		return chamber.ModeValue{}, err
	}
	mode := chamber.ModeValue{Constant: "Off", Current: "Off"}
	if en.Constant {
		word, err := d.readWord(ctx, lp.mode, ref.Number)
		if err != nil {
			return chamber.ModeValue{}, err
		}
		if mode.Constant, err = loopModeName(word); err != nil {
			return chamber.ModeValue{}, err
		}
	}
	if en.Current {
		word, err := d.readWord(ctx, lp.modeCurrent, ref.Number)
		if err != nil {
			return chamber.ModeValue{}, err
		}
		cur, err := loopModeName(word)
		if err != nil {
			return chamber.ModeValue{}, err
		}
		if cur == "Off" {
			cur = "Auto"
		}
		mode.Current = cur
	}

	return mode, nil
}

func loopModeName(word uint16) (string, error) {
	name, ok := loopModes[word]
	if !ok {
		return "", fmt.Errorf("watlowf4t: unknown loop mode %d: %w", word, convert.ErrDecode)
	}

	return name, nil
}

// readCascadeControl reports whether cascade (product) control is active.
func (d *Driver) readCascadeControl(ctx context.Context, n int) (chamber.Toggle, error) {
	if ev := d.profile.CascadeCtlEventFor(n); ev != 0 {
		event, err := d.GetEvent(ctx, ev)
		if err != nil {
			return chamber.Toggle{}, err
		}
		return chamber.Toggle{Constant: event.Constant, Current: event.Current}, nil
	}
	word, err := d.readWord(ctx, regmap.CascadeControl, n)
	if err != nil {
		return chamber.Toggle{}, err
	}
	on := word == valOff

	return chamber.Toggle{Constant: on, Current: on}, nil
}

// readUnits reads the units of the profile channel driving the loop.
// Temperature channels report the controller's temperature scale.
func (d *Driver) readUnits(ctx context.Context, ref chamber.LoopRef) (string, error) {
	if !d.profile.Profiles {
		return "", chamber.UnsupportedErrorf("units need program support")
	}
	channel := 0
	for i, r := range d.profile.LoopMap() {
		if r == ref {
			channel = i + 1
		}
	}
	word, err := d.readWord(ctx, regmap.LoopUnits, channel)
	if err != nil {
		return "", err
	}
	name, ok := names[word]
	if !ok {
		return "ERROR", nil
	}
	switch name {
	case "absoluteTemperature", "relativeTemperature", "notsourced":
		scale, err := d.readWord(ctx, regmap.TemperatureUnits, 0)
		if err != nil {
			return "", err
		}
		s, ok := names[scale]
		if !ok {
			return "ERROR", nil
		}
		return "°" + s, nil
	}

	return name, nil
}

// WriteLoopField writes one field of a loop or cascade.
func (d *Driver) WriteLoopField(ctx context.Context, ref chamber.LoopRef, field chamber.Field, s *chamber.LoopSettings) error {
	lp := paramsFor(ref)
	n := ref.Number

	switch field {
	case chamber.FieldMode:
		return d.writeMode(ctx, ref, lp, *s.Mode)
	case chamber.FieldSetpoint:
		return d.writeFloat(ctx, lp.setpoint, n, *s.Setpoint)
	case chamber.FieldRange:
		if err := d.writeFloat(ctx, lp.rangeMax, n, s.Range.Max); err != nil {
			return err
		}
		return d.writeFloat(ctx, lp.rangeMin, n, s.Range.Min)
	case chamber.FieldEnable:
		return d.writeEnable(ctx, ref, lp, *s.Enable)
	case chamber.FieldPower:
		return d.writeFloat(ctx, lp.power, n, *s.Power)
	case chamber.FieldDeviation:
		neg := s.Deviation.Negative
		if neg > 0 {
			neg = -neg
		}
		if err := d.writeFloat(ctx, regmap.CascadeDeviationNegative, n, neg); err != nil {
			return err
		}
		return d.writeFloat(ctx, regmap.CascadeDeviationPositive, n, s.Deviation.Positive)
	case chamber.FieldEnableCascade:
		return d.writeCascadeControl(ctx, n, *s.EnableCascade)
	}

	return chamber.UnsupportedErrorf("field %s is read only", field)
}

func (d *Driver) writeEnable(ctx context.Context, ref chamber.LoopRef, lp loopParams, on bool) error {
	word, err := d.readWord(ctx, lp.mode, ref.Number)
	if err != nil {
		return err
	}
	if word == valOff && on {
		if err := d.writeWord(ctx, lp.mode, ref.Number, valAuto); err != nil {
			return err
		}
	}
	if ev := d.profile.EventFor(ref); ev != 0 {
		return d.SetEvent(ctx, ev, on)
	}

	return nil
}

func (d *Driver) writeMode(ctx context.Context, ref chamber.LoopRef, lp loopParams, mode string) error {
	switch strings.ToLower(mode) {
	case "off":
		return d.writeEnable(ctx, ref, lp, false)
	case "on":
		return d.writeEnable(ctx, ref, lp, true)
	case "auto":
		if err := d.writeEnable(ctx, ref, lp, true); err != nil {
			return err
		}
		return d.writeWord(ctx, lp.mode, ref.Number, valAuto)
	case "manual":
		if err := d.writeEnable(ctx, ref, lp, true); err != nil {
			return err
		}
		return d.writeWord(ctx, lp.mode, ref.Number, valManual)
	}

	return chamber.ValidationErrorf("mode %q must be Off, On, Auto or Manual", mode)
}

func (d *Driver) writeCascadeControl(ctx context.Context, n int, on bool) error {
	word, err := d.readWord(ctx, regmap.CascadeControl, n)
	if err != nil {
		return err
	}
	if word == valOn && on {
		if err := d.writeWord(ctx, regmap.CascadeControl, n, valOff); err != nil {
			return err
		}
	}
	if ev := d.profile.CascadeCtlEventFor(n); ev != 0 {
		return d.SetEvent(ctx, ev, on)
	}

	return nil
}
