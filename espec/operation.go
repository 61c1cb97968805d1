package espec

import (
	"context"
	"fmt"
	"slices"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/regmap"
)

// statusNames maps run modes to status strings.
var statusNames = map[string]string{
	"OFF":              "Off",
	"STANDBY":          "Standby",
	"CONSTANT":         "Constant",
	"RUN":              "Program Running",
	"RUN PAUSE":        "Program Paused",
	"RUN END HOLD":     "Program End Hold",
	"RMT RUN":          "Remote Program Running",
	"RMT RUN PAUSE":    "Remote Program Paused",
	"RMT RUN END HOLD": "Remote Program End Hold",
}

func relayState(cmd, reply string, n int) (bool, error) {
	on, err := parseList(cmd, reply)
	if err != nil {
		return false, err
	}

	return slices.Contains(on, n), nil
}

// GetEvent reads time signal n.
func (d *Driver) GetEvent(ctx context.Context, n int) (chamber.Event, error) {
	reply, err := d.query(ctx, cmdRelay)
	if err != nil {
		return chamber.Event{}, err
	}
	cur, err := relayState(cmdRelay, reply, n)
	if err != nil {
		return chamber.Event{}, err
	}
	if reply, err = d.query(ctx, cmdConstRelay); err != nil {
		return chamber.Event{}, err
	}
	con, err := relayState(cmdConstRelay, reply, n)
	if err != nil {
		return chamber.Event{}, err
	}

	return chamber.Event{Number: n, Constant: con, Current: cur}, nil
}

// SetEvent switches time signal n.
func (d *Driver) SetEvent(ctx context.Context, n int, on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}

	return d.command(ctx, fmt.Sprintf("RELAY,%s,%d", state, n))
}

// Status returns "Alarm" while any alarm is active, otherwise the run mode.
// An unknown run mode is returned as sent.
func (d *Driver) Status(ctx context.Context) (string, error) {
	reply, err := d.query(ctx, cmdMonitor)
	if err != nil {
		return "", err
	}
	mon, err := parseMonitor(reply)
	if err != nil {
		return "", err
	}
	if mon.Alarms > 0 {
		return "Alarm", nil
	}
	_, mode, err := d.lookup(ctx, regmap.Status, 0)
	if err != nil {
		return "", err
	}
	if s, ok := statusNames[mode]; ok {
		return s, nil
	}
	d.logger.Warn("unknown run mode", "mode", mode)

	return mode, nil
}

// Alarms returns the active alarm codes.
func (d *Driver) Alarms(ctx context.Context) ([]int, error) {
	cmd, reply, err := d.lookup(ctx, regmap.Alarm, 0)
	if err != nil {
		return nil, err
	}

	return parseList(cmd, reply)
}

// ConstantStart runs constant mode.
func (d *Driver) ConstantStart(ctx context.Context) error {
	return d.command(ctx, cmdModeConstant)
}

// Stop puts the chamber in standby.
func (d *Driver) Stop(ctx context.Context) error {
	return d.command(ctx, cmdModeStandby)
}

// ProgramStart runs program number from step.
func (d *Driver) ProgramStart(ctx context.Context, number, step int) error {
	return d.command(ctx, fmt.Sprintf("PRGM,RUN,%s,STEP%d", d.model.memory(number), step))
}

// ProgramPause pauses the running program.
func (d *Driver) ProgramPause(ctx context.Context) error {
	return d.command(ctx, cmdPause)
}

// ProgramResume resumes a paused program.
func (d *Driver) ProgramResume(ctx context.Context) error {
	return d.command(ctx, cmdContinue)
}

// ProgramAdvance skips to the next step.
func (d *Driver) ProgramAdvance(ctx context.Context) error {
	return d.command(ctx, cmdAdvance)
}

// ProgramStatus describes the running program. Counters report the cycles
// left.
func (d *Driver) ProgramStatus(ctx context.Context, cached *chamber.Program) (*chamber.ProgramStatus, error) {
	reply, err := d.query(ctx, cmdProgramSet)
	if err != nil {
		return nil, err
	}
	number, name, err := parseProgramSet(reply)
	if err != nil {
		return nil, err
	}
	if reply, err = d.query(ctx, cmdProgramMon); err != nil {
		return nil, err
	}
	mon, err := parseProgramMonitor(reply)
	if err != nil {
		return nil, err
	}
	hdr, err := d.programHeader(ctx, number)
	if err != nil {
		return nil, err
	}

	p := cached
	if p == nil {
		if p, err = d.GetProgram(ctx, number); err != nil {
			return nil, err
		}
	}

	st := &chamber.ProgramStatus{
		Number:            number,
		Step:              mon.Step,
		Name:              name,
		Steps:             hdr.Steps,
		StepTimeRemaining: convert.FormatHMS(mon.Hours, mon.Minutes, 0),
		TimeRemaining:     remainingTime(p, mon),
	}
	for i, c := range hdr.Counters {
		st.Cycles = append(st.Cycles, chamber.Counter{Start: c.Start, End: c.End, Cycles: mon.Counters[i]})
	}

	return st, nil
}

// remainingTime walks the steps left in the program, following the repeat
// counters, and sums their times. The walk is capped so that inconsistent
// counters cannot loop forever. A paused step waits for the operator, so no
// time can be given once the walk reaches one.
func remainingTime(p *chamber.Program, mon programMonitor) string {
	steps := len(p.Steps)
	if mon.Step < 1 || mon.Step > steps {
		return chamber.TimeErrorUnbounded
	}
	var counters [2]chamber.Counter
	copy(counters[:], p.Counters)
	for _, c := range counters {
		if c.Cycles > 0 && (c.Start < 1 || c.End < c.Start || c.End > steps) {
			return chamber.TimeErrorUnbounded
		}
	}
	a, b := counters[0], counters[1]
	leftA, leftB := mon.Counters[0], mon.Counters[1]
	// a is the inner (or only) counter.
	if (a.End >= b.End && a.Start <= b.Start) || (a.Cycles == 0 && b.Cycles != 0) {
		a, b = b, a
		leftA, leftB = leftB, leftA
	}

	limit := steps
	if a.Cycles > 0 {
		limit *= a.Cycles + 2
	}
	if b.Cycles > 0 {
		limit *= b.Cycles + 2
	}
	limit += 2

	minutes := mon.Hours*60 + mon.Minutes
	cur := mon.Step - 1
	if p.Steps[cur].Paused {
		return chamber.TimeErrorHold
	}
	prevB := leftB
	for ; cur < steps && limit > 0; limit-- {
		switch {
		case a.Start == b.Start && a.Cycles > 0 && b.Cycles > 0 && cur == b.Start-1:
			if prevB != leftB {
				leftA = a.Cycles
			}
		case cur == b.Start-1 && b.Cycles > 0:
			leftA = a.Cycles
		}
		switch {
		case cur == a.End-1 && a.Cycles > 0 && leftA > 0:
			cur = a.Start - 1
			leftA--
		case cur == b.End-1 && b.Cycles > 0 && leftB > 0:
			cur = b.Start - 1
			prevB = leftB
			leftB--
		default:
			prevB = leftB
			cur++
		}
		if cur < steps {
			if p.Steps[cur].Paused {
				return chamber.TimeErrorHold
			}
			d := p.Steps[cur].Duration
			minutes += d.Hours*60 + d.Minutes
		}
	}
	if cur < steps {
		return chamber.TimeErrorUnbounded
	}

	return convert.FormatHMS(minutes/60, minutes%60, 0)
}
