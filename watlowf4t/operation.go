package watlowf4t

import (
	"context"
	"strings"
	"time"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/internal/pool"
	"github.com/arloliu/go-chamber/regmap"
)

// Status returns the verbose run status.
func (d *Driver) Status(ctx context.Context) (string, error) {
	state, err := d.readWord(ctx, regmap.Status, 0)
	if err != nil {
		return "", err
	}
	switch state {
	case valRunning:
		return "Program Running", nil
	case valPause:
		return "Program Paused", nil
	}

	running, err := d.running(ctx)
	if err != nil {
		return "", err
	}
	if state == valTimedStart {
		if running {
			return "Constant (Program Calendar Start)", nil
		}
		return "Standby (Program Calendar Start)", nil
	}
	alarms, err := d.Alarms(ctx)
	if err != nil {
		return "", err
	}
	switch {
	case len(alarms) > 0:
		return "Alarm", nil
	case running:
		return "Constant", nil
	default:
		return "Standby", nil
	}
}

// Alarms returns the active alarm slots. Limit controllers are reported as
// 20 plus their module number.
func (d *Driver) Alarms(ctx context.Context) ([]int, error) {
	active := []int{}
	for i := 1; i <= d.profile.Alarms; i++ {
		word, err := d.readWord(ctx, regmap.Alarm, i)
		if err != nil {
			return nil, err
		}
		if !alarmIdle[word] {
			active = append(active, i)
		}
	}
	for _, m := range d.profile.Limits {
		r, err := d.resolve(regmap.Limit, m)
		if err != nil {
			return nil, err
		}
		state, err := d.client.ReadWord(ctx, r)
		if err != nil {
			return nil, err
		}
		cerr, err := d.client.ReadWord(ctx, r.Offset(limitErrorOffset))
		if err != nil {
			return nil, err
		}
		status, err := d.client.ReadWord(ctx, r.Offset(limitStatusOffset))
		if err != nil {
			return nil, err
		}
		if state == valError || cerr != valNone || status == valFail {
			active = append(active, 20+m)
		}
	}

	return active, nil
}

func (d *Driver) terminate(ctx context.Context, settle time.Duration) error {
	if err := d.writeWord(ctx, regmap.Terminate, 0, valTerminate); err != nil {
		return err
	}

	return pool.Sleep(ctx, settle)
}

// ConstantStart ends any running program and switches the chamber on. From
// standby the first cascade, or the first loop, is enabled.
func (d *Driver) ConstantStart(ctx context.Context) error {
	status, err := d.Status(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(status, "Program") {
		if err := d.terminate(ctx, d.cfg.terminateSettle); err != nil {
			return err
		}
	}
	running, err := d.running(ctx)
	if err != nil {
		return err
	}
	if !running && d.profile.CondEvent != 0 {
		if err := d.SetEvent(ctx, d.profile.CondEvent, true); err != nil {
			return err
		}
	}
	if !strings.Contains(status, "Standby") {
		return nil
	}
	ref := chamber.LoopRef{Type: chamber.LoopStandard, Number: 1}
	if d.profile.Cascades > 0 {
		ref.Type = chamber.LoopCascade
	}

	return d.writeEnable(ctx, ref, paramsFor(ref), true)
}

// Stop switches the chamber off through the condition event: a latched event
// is cleared, a key is pressed.
func (d *Driver) Stop(ctx context.Context) error {
	if d.profile.CondEvent == 0 {
		return chamber.UnsupportedErrorf("no condition event configured")
	}
	running, err := d.running(ctx)
	if err != nil || !running {
		return err
	}

	return d.SetEvent(ctx, d.profile.CondEvent, !d.profile.CondEventToggle)
}

// ProgramStart starts program number at step, ending a running program first.
func (d *Driver) ProgramStart(ctx context.Context, number, step int) error {
	steps, err := d.programSteps(ctx, number)
	if err != nil {
		return err
	}
	if steps == 0 {
		return chamber.CapabilityErrorf("program %d does not exist", number)
	}
	if step > steps {
		return chamber.ValidationErrorf("program %d does not have step %d", number, step)
	}
	status, err := d.Status(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(status, "Program") {
		if err := d.terminate(ctx, d.cfg.restartSettle); err != nil {
			return err
		}
	}
	if err := d.writeWord(ctx, regmap.ProgramSelect, 0, uint16(number)); err != nil { //nolint:gosec
		return err
	}
	if err := d.writeWord(ctx, regmap.ProgramStartStep, 0, uint16(step)); err != nil { //nolint:gosec
		return err
	}

	return d.writeWord(ctx, regmap.ProgramStart, 0, valStart)
}

// ProgramPause pauses the running program.
func (d *Driver) ProgramPause(ctx context.Context) error {
	return d.writeWord(ctx, regmap.ProgramPause, 0, valPause)
}

// ProgramResume resumes a paused program.
func (d *Driver) ProgramResume(ctx context.Context) error {
	return d.writeWord(ctx, regmap.ProgramResume, 0, valResume)
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

// ProgramStatus reads the running program's position and remaining times.
func (d *Driver) ProgramStatus(ctx context.Context, cached *chamber.Program) (*chamber.ProgramStatus, error) {
	number, err := d.readWord(ctx, regmap.ProgramCurrent, 0)
	if err != nil {
		return nil, err
	}
	step, err := d.readWord(ctx, regmap.ProgramCurrentStep, 0)
	if err != nil {
		return nil, err
	}
	st := &chamber.ProgramStatus{Number: int(number), Step: int(step)}

	if st.Name, err = d.programName(ctx, st.Number); err != nil {
		return nil, err
	}
	if cached != nil && len(cached.Steps) > 0 {
		st.Steps = len(cached.Steps)
	} else if st.Steps, err = d.programSteps(ctx, st.Number); err != nil {
		return nil, err
	}

	stepTime, err := d.readBlock(ctx, regmap.ProgramStepTime, 0)
	if err != nil {
		return nil, err
	}
	if len(stepTime) < 5 {
		return nil, chamber.CommunicationErrorf("short step time block")
	}
	st.StepTimeRemaining = convert.FormatHMS(int(stepTime[4]), int(stepTime[2]), int(stepTime[0]))

	total, err := d.readBlock(ctx, regmap.ProgramTime, 0)
	if err != nil {
		return nil, err
	}
	if len(total) < 3 {
		return nil, chamber.CommunicationErrorf("short program time block")
	}
	st.TimeRemaining = convert.FormatHMS(int(total[2]), int(total[0]), 0)

	return st, nil
}
