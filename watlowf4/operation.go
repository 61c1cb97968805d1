package watlowf4

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/internal/pool"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/regmap"
)

var statusNames = []string{"Constant", "Constant", "Program Running", "Program Paused"}

// GetEvent reads event n; the F4 has no separate active state.
func (d *Driver) GetEvent(ctx context.Context, n int) (chamber.Event, error) {
	word, err := d.readWord(ctx, regmap.Event, n)
	if err != nil {
		return chamber.Event{}, err
	}
	on := word == 1

	return chamber.Event{Number: n, Constant: on, Current: on}, nil
}

// SetEvent switches event n.
func (d *Driver) SetEvent(ctx context.Context, n int, on bool) error {
	var v uint16
	if on {
		v = 1
	}

	return d.writeWord(ctx, regmap.Event, n, v)
}

// Status returns the verbose run status. Active limit inputs take precedence;
// a chamber whose condition event is off is in standby.
func (d *Driver) Status(ctx context.Context) (string, error) {
	alarms, err := d.Alarms(ctx)
	if err != nil {
		return "", err
	}
	if len(alarms) > 0 {
		return "Alarm", nil
	}
	word, err := d.readWord(ctx, regmap.Status, 0)
	if err != nil {
		return "", err
	}
	if int(word) >= len(statusNames) {
		return "", fmt.Errorf("watlowf4: status %d: %w", word, convert.ErrDecode)
	}
	if d.profile.CondEvent != 0 {
		cond, err := d.GetEvent(ctx, d.profile.CondEvent)
		if err != nil {
			return "", err
		}
		if !cond.Constant {
			return "Standby", nil
		}
	}

	return statusNames[word], nil
}

// Alarms returns the limit inputs whose value differs from their normal state.
func (d *Driver) Alarms(ctx context.Context) ([]int, error) {
	active := []int{}
	for _, m := range d.profile.Limits {
		word, err := d.readWord(ctx, regmap.LimitInput, m)
		if err != nil {
			return nil, err
		}
		normal, err := d.readWord(ctx, regmap.LimitInputNormal, m)
		if err != nil {
			return nil, err
		}
		if word != normal {
			active = append(active, m)
		}
	}

	return active, nil
}

// ConstantStart ends any program and sets the condition event.
func (d *Driver) ConstantStart(ctx context.Context) error {
	if err := d.writeWord(ctx, regmap.Terminate, 0, 1); err != nil {
		return err
	}
	if d.profile.CondEvent == 0 {
		return nil
	}

	return d.SetEvent(ctx, d.profile.CondEvent, true)
}

// Stop ends any program and clears the condition event.
func (d *Driver) Stop(ctx context.Context) error {
	if d.profile.CondEvent == 0 {
		return chamber.UnsupportedErrorf("stop needs a condition event")
	}
	if err := d.writeWord(ctx, regmap.Terminate, 0, 1); err != nil {
		return err
	}

	return d.SetEvent(ctx, d.profile.CondEvent, false)
}

// ProgramStart runs program number from step.
func (d *Driver) ProgramStart(ctx context.Context, number, step int) error {
	if !d.profile.Profiles {
		return chamber.CapabilityErrorf("controller has no program support")
	}
	steps, err := d.programSteps(ctx, number)
	if err != nil {
		return err
	}
	if step > steps {
		return chamber.ValidationErrorf("step %d beyond the %d steps of program %d", step, steps, number)
	}

	return d.writeParams(ctx,
		[]regmap.Param{regmap.ProgramSelect, regmap.ProgramStartStep, regmap.ProgramStart},
		uint16(number), uint16(step), actionStart) //nolint:gosec
}

// ProgramPause holds the running program.
func (d *Driver) ProgramPause(ctx context.Context) error {
	return d.writeWord(ctx, regmap.ProgramPause, 0, 1)
}

// ProgramResume continues a held program.
func (d *Driver) ProgramResume(ctx context.Context) error {
	return d.writeWord(ctx, regmap.ProgramResume, 0, 1)
}

// ProgramAdvance restarts the running program at its next step.
func (d *Driver) ProgramAdvance(ctx context.Context) error {
	number, err := d.readWord(ctx, regmap.ProgramCurrent, 0)
	if err != nil {
		return err
	}
	step, err := d.readWord(ctx, regmap.ProgramCurrentStep, 0)
	if err != nil {
		return err
	}
	if err := d.ConstantStart(ctx); err != nil {
		return err
	}
	if err := pool.Sleep(ctx, d.cfg.advanceSettle); err != nil {
		return err
	}

	return d.ProgramStart(ctx, int(number), int(step)+1)
}

// ProgramStatus describes the running program. Remaining time is computed by
// walking the program definition from the current step.
func (d *Driver) ProgramStatus(ctx context.Context, cached *chamber.Program) (*chamber.ProgramStatus, error) {
	number, err := d.readWord(ctx, regmap.ProgramCurrent, 0)
	if err != nil {
		return nil, err
	}
	step, err := d.readWord(ctx, regmap.ProgramCurrentStep, 0)
	if err != nil {
		return nil, err
	}
	r, err := d.resolve(regmap.ProgramStepTime, 0)
	if err != nil {
		return nil, err
	}
	left, err := d.client.ReadHolding(ctx, r.Address, 3)
	if err != nil {
		return nil, err
	}
	counters, jumps, err := d.counters(ctx)
	if err != nil {
		return nil, err
	}

	p := cached
	if p == nil || p.Number != int(number) {
		if p, err = d.GetProgram(ctx, int(number)); err != nil {
			return nil, err
		}
	}
	stepLeft := int(left[0])*3600 + int(left[1])*60 + int(left[2])

	return &chamber.ProgramStatus{
		Number:            int(number),
		Step:              int(step),
		Name:              p.Name,
		Steps:             len(p.Steps),
		TimeRemaining:     remainingTime(p, int(step), stepLeft, jumps),
		StepTimeRemaining: convert.FormatHMS(int(left[0]), int(left[1]), int(left[2])),
		Cycles:            counters,
	}, nil
}

// counters reads the jump loop of the running program. Cycles holds the
// repeats still to run; jumps is the count already taken.
func (d *Driver) counters(ctx context.Context) ([]chamber.Counter, int, error) {
	if !d.regs.Has(regmap.ProgramCycles, 0) {
		return nil, 0, nil
	}
	r, err := d.resolve(regmap.ProgramCycles, 0)
	if err != nil {
		return nil, 0, err
	}
	status, err := d.client.ReadHolding(ctx, r.Address, 3)
	if err != nil {
		return nil, 0, err
	}
	count, prof, step := int(status[0]), status[1], status[2]
	if prof == 0 || step == 0 {
		return nil, count, nil
	}
	if err := d.writeParams(ctx, []regmap.Param{regmap.ProgramSelect, regmap.ProgramStartStep}, prof, step); err != nil {
		return nil, 0, err
	}
	block, err := d.stepBlock()
	if err != nil {
		return nil, 0, err
	}
	jump, err := d.client.ReadHoldingSigned(ctx, block.Offset(offJump).Address, 3)
	if err != nil {
		var exc *modbus.ExceptionError
		if errors.As(err, &exc) {
			d.logger.Debug("jump counter unavailable", "reason", exc.Reason())
			return nil, count, nil
		}
		return nil, 0, err
	}

	return []chamber.Counter{{
		Start:  int(jump[1]),
		End:    int(step),
		Cycles: max(int(jump[2])-count, 0),
	}}, count, nil
}
