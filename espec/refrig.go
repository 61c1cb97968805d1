package espec

import (
	"context"
	"strconv"
	"strings"

	"github.com/arloliu/go-chamber/chamber"
)

// Refrigeration capacity codes. Manual capacities are fixed steps.
var refrigCodes = map[string]chamber.Refrig{
	"REF0": {Mode: chamber.RefrigOff},
	"REF1": {Mode: chamber.RefrigManual, Setpoint: 20},
	"REF3": {Mode: chamber.RefrigManual, Setpoint: 50},
	"REF6": {Mode: chamber.RefrigManual, Setpoint: 100},
	"REF9": {Mode: chamber.RefrigAuto},
}

func decodeRefrig(code string) chamber.Refrig {
	if r, ok := refrigCodes[code]; ok {
		return r
	}

	return chamber.Refrig{Mode: chamber.RefrigManual}
}

func encodeRefrig(r chamber.Refrig) (string, error) {
	switch r.Mode {
	case chamber.RefrigOff:
		return "REF0", nil
	case chamber.RefrigAuto:
		return "REF9", nil
	case chamber.RefrigManual:
		switch r.Setpoint {
		case 0:
			return "REF0", nil
		case 20:
			return "REF1", nil
		case 50:
			return "REF3", nil
		case 100:
			return "REF6", nil
		}
		return "", chamber.ValidationErrorf("refrigeration setpoint %v must be 0, 20, 50 or 100", r.Setpoint)
	}

	return "", chamber.ValidationErrorf("unknown refrigeration mode %q", r.Mode)
}

// GetRefrig reads the constant mode refrigeration setting.
func (d *Driver) GetRefrig(ctx context.Context) (chamber.Refrig, error) {
	reply, err := d.query(ctx, cmdConstRefrig)
	if err != nil {
		return chamber.Refrig{}, err
	}
	if v, err := strconv.ParseFloat(reply, 64); err == nil {
		return chamber.Refrig{Mode: chamber.RefrigManual, Setpoint: v}, nil
	}
	mode := chamber.RefrigMode(strings.ToLower(reply))
	switch {
	case mode == chamber.RefrigOff || mode == chamber.RefrigManual:
	case d.model.autoRefrig, mode == chamber.RefrigAuto:
		mode = chamber.RefrigAuto
	default:
		return chamber.Refrig{}, badReply(cmdConstRefrig, reply)
	}

	return chamber.Refrig{Mode: mode}, nil
}

// SetRefrig writes the constant mode refrigeration setting.
func (d *Driver) SetRefrig(ctx context.Context, r chamber.Refrig) error {
	code, err := encodeRefrig(r)
	if err != nil {
		return err
	}

	return d.command(ctx, "SET,"+code)
}
