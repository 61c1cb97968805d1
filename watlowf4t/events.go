package watlowf4t

import (
	"context"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/regmap"
)

// GetEvent reads event n. Key events report the key output state.
func (d *Driver) GetEvent(ctx context.Context, n int) (chamber.Event, error) {
	word, err := d.readWord(ctx, regmap.Event, n)
	if err != nil {
		return chamber.Event{}, err
	}
	on := word == valOn

	return chamber.Event{Number: n, Constant: on, Current: on}, nil
}

// SetEvent turns a profile event on or off, or presses (on) or releases (off)
// a front panel key.
func (d *Driver) SetEvent(ctx context.Context, n int, on bool) error {
	if n > profileEvents {
		v := valUp
		if on {
			v = valDown
		}
		return d.writeWord(ctx, regmap.EventKey, n, v)
	}
	v := valOff
	if on {
		v = valOn
	}

	return d.writeWord(ctx, regmap.Event, n, v)
}

// running reports the "chamber running" digital output. Without a configured
// output the chamber is reported as not running.
func (d *Driver) running(ctx context.Context) (bool, error) {
	if !d.regs.Has(regmap.RunInput, 0) {
		return false, nil
	}
	word, err := d.readWord(ctx, regmap.RunInput, 0)
	if err != nil {
		return false, err
	}

	return word == valOn, nil
}
