package watlowf4t

import (
	"context"
	"errors"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/regmap"
)

// Part number digit 7 selects program support and the alarm count.
var functionDigit = map[byte]struct {
	profiles bool
	alarms   int
}{
	'A': {false, 6},
	'B': {false, 8},
	'C': {false, 14},
	'D': {true, 6},
	'E': {true, 8},
	'F': {true, 14},
}

// Part number digit 12 selects the loop and cascade counts.
var controlDigit = map[byte][2]int{
	'1': {1, 0}, '2': {2, 0}, '3': {3, 0}, '4': {4, 0},
	'5': {0, 0}, '6': {0, 1}, '7': {1, 1}, '8': {2, 1},
	'9': {3, 1}, 'A': {0, 2}, 'B': {1, 2}, 'C': {2, 2},
}

// PartNumber reads the controller part number.
func (d *Driver) PartNumber(ctx context.Context) (string, error) {
	return d.readString(ctx, regmap.PartNumber)
}

// ProfileFromPartNumber returns base with the loops, cascades, alarms and
// program support encoded in an F4T part number. Unknown digits keep the
// single loop, six alarm, no program defaults.
func ProfileFromPartNumber(pn string, base chamber.Profile) (chamber.Profile, error) {
	if len(pn) < 12 {
		return chamber.Profile{}, chamber.ValidationErrorf("part number %q too short", pn)
	}
	p := base.Clone()

	fn, ok := functionDigit[pn[6]]
	if !ok {
		fn = functionDigit['A']
	}
	p.Profiles, p.Alarms = fn.profiles, fn.alarms

	ctl, ok := controlDigit[pn[11]]
	if !ok {
		ctl = controlDigit['1']
	}
	p.Loops, p.Cascades = ctl[0], ctl[1]
	if len(p.LoopNames) > len(p.LoopMap()) {
		p.LoopNames = p.LoopNames[:len(p.LoopMap())]
	}

	return p, nil
}

// Identify reads the part number and probes the limit controller modules, and
// returns the profile they describe. The driver's own profile is not changed;
// create a new driver with the result.
func (d *Driver) Identify(ctx context.Context) (string, chamber.Profile, error) {
	pn, err := d.PartNumber(ctx)
	if err != nil {
		return "", chamber.Profile{}, err
	}
	p, err := ProfileFromPartNumber(pn, d.profile)
	if err != nil {
		return pn, chamber.Profile{}, err
	}

	p.Limits = p.Limits[:0]
	for m := 1; m <= maxModules; m++ {
		addr := 11250 + uint16((m-1)*limitStride) //nolint:gosec
		_, err := d.client.ReadHolding(ctx, addr, 1)
		var exc *modbus.ExceptionError
		switch {
		case err == nil:
			p.Limits = append(p.Limits, m)
		case errors.As(err, &exc):
			d.logger.Debug("no limit controller", "module", m, "reason", exc.Reason())
		default:
			return pn, chamber.Profile{}, err
		}
	}

	return pn, p, nil
}
