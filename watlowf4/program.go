package watlowf4

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/internal/util"
	"github.com/arloliu/go-chamber/regmap"
)

var (
	errNoProgram = errors.New("program does not exist")

	namePattern     = regexp.MustCompile(`^[A-Z0-9]*$`)
	storedNameMatch = regexp.MustCompile(`[A-Z0-9]+`)
)

// maxTimeWalk bounds the step walk of remainingTime.
const maxTimeWalk = 10000

func noProgram(n int) error {
	return fmt.Errorf("%w: program %d: %w", chamber.ErrCapability, n, errNoProgram)
}

func (d *Driver) stepBlock() (regmap.Register, error) {
	return d.resolve(regmap.ProgramStepBlock, 0)
}

// selectStep points the step block at step of program n.
func (d *Driver) selectStep(ctx context.Context, n, step int) error {
	return d.writeParams(ctx, []regmap.Param{regmap.ProgramSelect, regmap.ProgramStartStep},
		uint16(n), uint16(step)) //nolint:gosec
}

// readStepBlock reads the selected step.
func (d *Driver) readStepBlock(ctx context.Context) ([]int16, error) {
	block, err := d.stepBlock()
	if err != nil {
		return nil, err
	}

	return d.client.ReadHoldingSigned(ctx, block.Address, stepBlockSize)
}

// stepType reads the type code of the selected step.
func (d *Driver) stepType(ctx context.Context) (int16, error) {
	block, err := d.stepBlock()
	if err != nil {
		return 0, err
	}
	code, err := d.client.ReadHoldingSigned(ctx, block.Address, 1)
	if err != nil {
		return 0, err
	}

	return code[0], nil
}

// programSteps returns the number of steps of program n, its end step
// included.
func (d *Driver) programSteps(ctx context.Context, n int) (int, error) {
	if err := d.writeWord(ctx, regmap.ProgramSelect, 0, uint16(n)); err != nil { //nolint:gosec
		return 0, err
	}
	for step := 1; step <= Limits.MaxSteps; step++ {
		if err := d.writeWord(ctx, regmap.ProgramStartStep, 0, uint16(step)); err != nil { //nolint:gosec
			return 0, err
		}
		code, err := d.stepType(ctx)
		if err != nil {
			return 0, err
		}
		switch {
		case code == codeEnd:
			return step, nil
		case code < 0 || code > codeEnd:
			return 0, noProgram(n)
		}
	}

	return 0, fmt.Errorf("watlowf4: program %d has no end step: %w", n, convert.ErrDecode)
}

func (d *Driver) nameRegister(n int) (regmap.Register, error) {
	r, err := d.resolve(regmap.ProgramName, 0)
	if err != nil {
		return r, err
	}

	return r.Offset((n - 1) * r.Words()), nil
}

func (d *Driver) programName(ctx context.Context, n int) (string, error) {
	r, err := d.nameRegister(n)
	if err != nil {
		return "", err
	}
	s, err := d.client.ReadString(ctx, r)
	if err != nil {
		return "", err
	}

	return storedNameMatch.FindString(s), nil
}

func (d *Driver) writeName(ctx context.Context, n int, name string) error {
	r, err := d.nameRegister(n)
	if err != nil {
		return err
	}

	return d.client.WriteHolding(ctx, r.Address, convert.RegistersFromString(strings.ToUpper(name), r.Words(), ' ')...)
}

// stepResolution returns the decimal places of step targets on channel ch.
func (d *Driver) stepResolution(ctx context.Context, ch int) (int, error) {
	dec, ok, err := d.channelDecimals(ctx, ch)
	if err != nil || ok {
		return dec, err
	}
	if r, err := d.resolve(regmap.LoopSetpoint, ch); err == nil {
		return r.Resolution, nil
	}

	return 0, nil
}

// gatedEvents are the events a program step drives through loop enables and
// the run condition rather than through its event list.
func (d *Driver) gatedEvents() []int {
	events := []int{}
	for _, ref := range d.profile.LoopMap() {
		if ev := d.profile.EventFor(ref); ev != 0 {
			events = append(events, ev)
		}
	}
	if d.profile.CondEvent != 0 {
		events = append(events, d.profile.CondEvent)
	}

	return events
}

// GetProgram reads program n step by step.
func (d *Driver) GetProgram(ctx context.Context, n int) (*chamber.Program, error) {
	if !d.profile.Profiles {
		return nil, chamber.CapabilityErrorf("controller has no program support")
	}
	name, err := d.programName(ctx, n)
	if err != nil {
		return nil, err
	}
	p := &chamber.Program{Number: n, Name: name}
	for step := 1; step <= Limits.MaxSteps; step++ {
		if err := d.selectStep(ctx, n, step); err != nil {
			return nil, err
		}
		regs, err := d.readStepBlock(ctx)
		if err != nil {
			return nil, err
		}
		st, err := d.decodeStep(ctx, n, regs)
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, st)
		if st.Type == chamber.StepEnd {
			return p, nil
		}
	}

	return nil, fmt.Errorf("watlowf4: program %d has no end step: %w", n, convert.ErrDecode)
}

func (d *Driver) decodeStep(ctx context.Context, n int, regs []int16) (chamber.Step, error) {
	typ, ok := stepTypes[regs[offType]]
	if !ok {
		return chamber.Step{}, noProgram(n)
	}
	st := chamber.Step{Type: typ}
	refs := d.profile.LoopMap()

	switch typ {
	case chamber.StepAutoStart:
		st.Duration = durationAt(regs, offTime)
		if regs[offStartKind] == 1 {
			day := int(regs[offStartDay])
			if day < 0 || day >= len(weekdays) {
				return st, fmt.Errorf("watlowf4: autostart day %d: %w", day, convert.ErrDecode)
			}
			st.Action = "day:" + weekdays[day]
			break
		}
		st.Action = fmt.Sprintf("date:%04d-%02d-%02d", regs[offStartDate+2], regs[offStartDate], regs[offStartDate+1])

	case chamber.StepRampTime, chamber.StepRampRate, chamber.StepSoak:
		if typ != chamber.StepRampRate {
			st.Duration = durationAt(regs, offTime)
		}
		gated := d.gatedEvents()
		for ev := 1; ev <= d.profile.Events; ev++ {
			if slices.Contains(gated, ev) {
				continue
			}
			v := chamber.EventOff
			if regs[offEvents+ev-1] != 0 {
				v = chamber.EventOn
			}
			st.Events = append(st.Events, chamber.StepEvent{Number: ev, Value: v})
		}
		for i, ref := range refs {
			res, err := d.stepResolution(ctx, i+1)
			if err != nil {
				return st, err
			}
			lp := chamber.StepLoop{
				Target:         convert.ToEngineering(int64(regs[offTargets+i]), res),
				Enable:         true,
				GuaranteedSoak: regs[offGSoak+i] == 1,
				PIDSet:         int(regs[offPIDSets+i]) + 1 + 5*i,
			}
			if ev := d.profile.EventFor(ref); ev != 0 {
				lp.Enable = regs[offEvents+ev-1] == 1
			}
			if i == 0 && typ == chamber.StepRampRate {
				lp.Rate = float64(regs[offRate]) / 10
			}
			st.Loops = append(st.Loops, lp)
		}
		if regs[offWaitEnable] == 1 {
			waits, err := d.decodeWaits(ctx, regs)
			if err != nil {
				return st, err
			}
			st.Waits = waits
		}

	case chamber.StepJump:
		if prof := int(regs[offJump]); prof != n {
			st.JumpProgram = prof
		}
		st.JumpStep = int(regs[offJump+1])
		st.JumpCount = int(regs[offJump+2])

	case chamber.StepEnd:
		action := int(regs[offEndAction])
		if action < 0 || action >= len(endActions) {
			return st, fmt.Errorf("watlowf4: end action %d: %w", action, convert.ErrDecode)
		}
		st.Action = endActions[action]
		for i := range refs {
			res, err := d.stepResolution(ctx, i+1)
			if err != nil {
				return st, err
			}
			st.Loops = append(st.Loops, chamber.StepLoop{
				Target: convert.ToEngineering(int64(regs[offEndTargets+i]), res),
				Enable: true,
			})
		}
	}

	return st, nil
}

// decodeWaits reads the enabled wait conditions of a step. Digital inputs are
// reported with condition "on" or "off", analog inputs with "analog".
func (d *Driver) decodeWaits(ctx context.Context, regs []int16) ([]chamber.Wait, error) {
	waits := []chamber.Wait{}
	for i := 0; i < maxInputs; i++ {
		switch regs[offWaitDigital+i] {
		case 1:
			waits = append(waits, chamber.Wait{Number: i + 1, Condition: "off"})
		case 2:
			waits = append(waits, chamber.Wait{Number: i + 1, Condition: "on"})
		}
	}
	for i := 0; i < analogWaitCount; i++ {
		if regs[offWaitAnalog+2*i] != 1 {
			continue
		}
		res, err := d.stepResolution(ctx, i+1)
		if err != nil {
			return nil, err
		}
		waits = append(waits, chamber.Wait{
			Number:    i + 1,
			Condition: "analog",
			Value:     convert.ToEngineering(int64(regs[offWaitAnalog+2*i+1]), res),
		})
	}

	return waits, nil
}

func durationAt(regs []int16, off int) chamber.Duration {
	return chamber.Duration{Hours: int(regs[off]), Minutes: int(regs[off+1]), Seconds: int(regs[off+2])}
}

// autoStart is a decoded autostart action.
type autoStart struct {
	byDay bool
	day   int
	date  time.Time
}

// parseAutoStart parses "day:<weekday>" or "date:YYYY-MM-DD".
func parseAutoStart(action string) (autoStart, error) {
	kind, arg, ok := strings.Cut(strings.ToLower(strings.TrimSpace(action)), ":")
	if !ok {
		return autoStart{}, chamber.ValidationErrorf("autostart action %q must be day:<weekday> or date:YYYY-MM-DD", action)
	}
	switch kind {
	case "day":
		i := slices.Index(weekdays, arg)
		if i < 0 {
			return autoStart{}, chamber.ValidationErrorf("autostart day %q must be one of %v", arg, weekdays)
		}
		return autoStart{byDay: true, day: i}, nil
	case "date":
		t, err := time.Parse(time.DateOnly, arg)
		if err != nil {
			return autoStart{}, chamber.ValidationErrorf("autostart date %q: %v", arg, err)
		}
		return autoStart{date: t}, nil
	}

	return autoStart{}, chamber.ValidationErrorf("autostart action %q must be day:<weekday> or date:YYYY-MM-DD", action)
}

// checkProgram rejects what the F4 cannot store before anything is written.
func (d *Driver) checkProgram(p *chamber.Program) error {
	if !namePattern.MatchString(strings.ToUpper(p.Name)) {
		return chamber.ValidationErrorf("program name %q must be letters and digits only", p.Name)
	}
	for i := range p.Steps {
		st := &p.Steps[i]
		if _, ok := stepCodes[st.Type]; !ok {
			return chamber.ValidationErrorf("step %d: type %q is not available", i+1, st.Type)
		}
		if st.Type == chamber.StepEnd && i != len(p.Steps)-1 {
			return chamber.ValidationErrorf("step %d: end must be the last step", i+1)
		}
		switch st.Type {
		case chamber.StepAutoStart:
			if _, err := parseAutoStart(st.Action); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		case chamber.StepEnd:
			if st.Action != "" && !slices.Contains(endActions, st.Action) {
				return chamber.ValidationErrorf("step %d: end action %q must be one of %v", i+1, st.Action, endActions)
			}
		case chamber.StepJump:
			if !util.InRange(st.JumpProgram, 0, Limits.Programs) {
				return chamber.ValidationErrorf("step %d: jump program %d out of range", i+1, st.JumpProgram)
			}
		}
		for _, w := range st.Waits {
			limit := maxInputs
			switch w.Condition {
			case "on", "off":
			case "analog":
				limit = analogWaitCount
			default:
				return chamber.ValidationErrorf("step %d: wait condition %q must be on, off or analog", i+1, w.Condition)
			}
			if w.Number < 1 || w.Number > limit {
				return chamber.ValidationErrorf("step %d: wait input %d out of range [1, %d]", i+1, w.Number, limit)
			}
		}
	}

	return nil
}

// SetProgram replaces program n. The F4 assigns the number of a new program
// itself; a mismatch with n is logged.
func (d *Driver) SetProgram(ctx context.Context, n int, p *chamber.Program) error {
	if !d.profile.Profiles {
		return chamber.CapabilityErrorf("controller has no program support")
	}
	if err := d.checkProgram(p); err != nil {
		return err
	}
	if _, err := d.programSteps(ctx, n); err == nil {
		if err := d.deleteProgram(ctx, n); err != nil {
			return err
		}
	} else if !errors.Is(err, errNoProgram) {
		return err
	}

	if err := d.writeWord(ctx, regmap.ProgramStart, 0, actionCreate); err != nil {
		return err
	}
	assigned, err := d.readWord(ctx, regmap.ProgramSelect, 0)
	if err != nil {
		return err
	}
	num := int(assigned)
	if num != n {
		d.logger.Warn("controller assigned a different program number", "requested", n, "assigned", num)
	}
	if err := d.writeName(ctx, num, p.Name); err != nil {
		return err
	}
	for i := range p.Steps {
		st := &p.Steps[i]
		if st.Type == chamber.StepEnd {
			err = d.writeWord(ctx, regmap.ProgramStartStep, 0, uint16(i+1)) //nolint:gosec
		} else {
			err = d.writeParams(ctx, []regmap.Param{regmap.ProgramStartStep, regmap.ProgramStart},
				uint16(i+1), actionInsert) //nolint:gosec
		}
		if err != nil {
			return err
		}
		if err := d.writeStep(ctx, num, st); err != nil {
			return fmt.Errorf("watlowf4: step %d: %w", i+1, err)
		}
	}

	return d.writeWord(ctx, regmap.Save, 0, 0)
}

// writeStep edits the selected step of program n.
func (d *Driver) writeStep(ctx context.Context, n int, st *chamber.Step) error {
	block, err := d.stepBlock()
	if err != nil {
		return err
	}
	at := func(off int) uint16 { return block.Offset(off).Address }
	write := func(off int, values ...uint16) error { return d.client.WriteHolding(ctx, at(off), values...) }
	target := func(i int, v float64) (uint16, error) {
		res, err := d.stepResolution(ctx, i+1)
		if err != nil {
			return 0, err
		}
		word, err := convert.ScaledToRegister(v, res)
		if err != nil {
			return 0, chamber.ValidationErrorf("target %v: %v", v, err)
		}
		return word, nil
	}

	switch st.Type {
	case chamber.StepAutoStart:
		as, err := parseAutoStart(st.Action)
		if err != nil {
			return err
		}
		if err := write(offType, codeAutoStart); err != nil {
			return err
		}
		if as.byDay {
			if err := write(offStartKind, 1); err != nil {
				return err
			}
			if err := write(offStartDay, uint16(as.day)); err != nil { //nolint:gosec
				return err
			}
		} else {
			y, m, dd := as.date.Date()
			if err := write(offStartKind, 0, uint16(m), uint16(dd), uint16(y)); err != nil { //nolint:gosec
				return err
			}
		}
		return write(offTime, durationWords(st.Duration)...)

	case chamber.StepRampTime, chamber.StepRampRate, chamber.StepSoak:
		if err := write(offType, stepCodes[st.Type]); err != nil {
			return err
		}
		if err := d.writeWaits(ctx, block, st.Waits, target); err != nil {
			return err
		}
		for _, ev := range st.Events {
			if ev.Value == chamber.EventNoChange {
				continue
			}
			if err := write(offEvents+ev.Number-1, boolWord(ev.Value == chamber.EventOn)); err != nil {
				return err
			}
		}
		if st.Type != chamber.StepRampRate {
			if err := write(offTime, durationWords(st.Duration)...); err != nil {
				return err
			}
		} else if len(st.Loops) > 0 {
			rate := int64(math.Round(st.Loops[0].Rate * 10))
			if err := write(offRate, convert.Uint16(int16(rate))); err != nil { //nolint:gosec
				return err
			}
		}
		refs := d.profile.LoopMap()
		for i, lp := range st.Loops {
			word, err := target(i, lp.Target)
			if err != nil {
				return err
			}
			if err := write(offTargets+i, word); err != nil {
				return err
			}
			if err := write(offPIDSets+i, uint16(max(lp.PIDSet-5*i-1, 0))); err != nil { //nolint:gosec
				return err
			}
			if err := write(offGSoak+i, boolWord(lp.GuaranteedSoak)); err != nil {
				return err
			}
			if ev := d.profile.EventFor(refs[i]); ev != 0 {
				if err := write(offEvents+ev-1, boolWord(lp.Enable)); err != nil {
					return err
				}
			}
		}
		if ev := d.profile.CondEvent; ev != 0 {
			return write(offEvents+ev-1, 1)
		}
		return nil

	case chamber.StepJump:
		prof := st.JumpProgram
		if prof == 0 {
			prof = n
		}
		if err := write(offType, codeJump); err != nil {
			return err
		}
		return write(offJump, uint16(prof), uint16(st.JumpStep), uint16(st.JumpCount)) //nolint:gosec

	case chamber.StepEnd:
		action := max(slices.Index(endActions, st.Action), 0)
		values := []uint16{uint16(action)} //nolint:gosec
		if endActions[action] == "idle" {
			for i, lp := range st.Loops {
				word, err := target(i, lp.Target)
				if err != nil {
					return err
				}
				values = append(values, word)
			}
		}
		return write(offEndAction, values...)
	}

	return chamber.ValidationErrorf("step type %q is not available", st.Type)
}

func (d *Driver) writeWaits(ctx context.Context, block regmap.Register, waits []chamber.Wait, target func(int, float64) (uint16, error)) error {
	if len(waits) == 0 {
		return d.client.WriteHolding(ctx, block.Offset(offWaitEnable).Address, 0)
	}
	if err := d.client.WriteHolding(ctx, block.Offset(offWaitEnable).Address, 1); err != nil {
		return err
	}
	for _, w := range waits {
		if w.Condition == "analog" {
			word, err := target(w.Number-1, w.Value)
			if err != nil {
				return err
			}
			if err := d.client.WriteHolding(ctx, block.Offset(offWaitAnalog+2*(w.Number-1)).Address, 1, word); err != nil {
				return err
			}
			continue
		}
		v := uint16(1)
		if w.Condition == "on" {
			v = 2
		}
		if err := d.client.WriteHolding(ctx, block.Offset(offWaitDigital+w.Number-1).Address, v); err != nil {
			return err
		}
	}

	return nil
}

func durationWords(d chamber.Duration) []uint16 {
	return []uint16{uint16(d.Hours), uint16(d.Minutes), uint16(d.Seconds)} //nolint:gosec
}

func boolWord(on bool) uint16 {
	if on {
		return 1
	}

	return 0
}

func (d *Driver) deleteProgram(ctx context.Context, n int) error {
	return d.writeParams(ctx,
		[]regmap.Param{regmap.ProgramSelect, regmap.ProgramStartStep, regmap.ProgramStart},
		uint16(n), 1, actionDelete) //nolint:gosec
}

// DeleteProgram removes program n and saves.
func (d *Driver) DeleteProgram(ctx context.Context, n int) error {
	if !d.profile.Profiles {
		return chamber.CapabilityErrorf("controller has no program support")
	}
	if err := d.deleteProgram(ctx, n); err != nil {
		return err
	}

	return d.writeWord(ctx, regmap.Save, 0, 0)
}

// ProgramList lists every program slot. The free slot count bounds how many
// slots are probed.
func (d *Driver) ProgramList(ctx context.Context) ([]chamber.ProgramSummary, error) {
	if !d.profile.Profiles {
		return nil, chamber.CapabilityErrorf("controller has no program support")
	}
	free, err := d.readWord(ctx, regmap.ProgramFree, 0)
	if err != nil {
		return nil, err
	}
	used := Limits.Programs - int(free)
	list := make([]chamber.ProgramSummary, 0, Limits.Programs)
	for n := 1; n <= Limits.Programs; n++ {
		s := chamber.ProgramSummary{Number: n}
		if used > 0 {
			if err := d.selectStep(ctx, n, 1); err != nil {
				return nil, err
			}
			code, err := d.stepType(ctx)
			if err != nil {
				return nil, err
			}
			if code >= 0 && code <= codeEnd {
				if s.Name, err = d.programName(ctx, n); err != nil {
					return nil, err
				}
				used--
			}
		}
		list = append(list, s)
	}

	return list, nil
}

// ProgramDetails returns the name and step count of program n.
func (d *Driver) ProgramDetails(ctx context.Context, n int) (chamber.ProgramSummary, error) {
	if !d.profile.Profiles {
		return chamber.ProgramSummary{}, chamber.CapabilityErrorf("controller has no program support")
	}
	steps, err := d.programSteps(ctx, n)
	if err != nil {
		return chamber.ProgramSummary{}, err
	}
	name, err := d.programName(ctx, n)
	if err != nil {
		return chamber.ProgramSummary{}, err
	}

	return chamber.ProgramSummary{Number: n, Name: name, Steps: steps}, nil
}

// remainingTime walks p from the step after step and adds up the time left.
// stepLeft is the time left in the current step in seconds and jumps the
// repeats already taken. Programs with more than one jump, or a jump into
// another program, cannot be walked, and a wait step holds for as long as its
// condition takes.
func remainingTime(p *chamber.Program, step, stepLeft, jumps int) string {
	jumpSteps := 0
	for _, st := range p.Steps {
		if st.Type != chamber.StepJump {
			continue
		}
		jumpSteps++
		if jumpSteps > 1 {
			return chamber.TimeErrorJumpCount
		}
		if st.JumpProgram != 0 && st.JumpProgram != p.Number {
			return chamber.TimeErrorJumpProgram
		}
	}

	target := 0.0
	for i := min(step, len(p.Steps)) - 1; i >= 0; i-- {
		if t := p.Steps[i].Type; isTimed(t) && len(p.Steps[i].Loops) > 0 {
			target = p.Steps[i].Loops[0].Target
			break
		}
	}
	if step >= 1 && step <= len(p.Steps) && p.Steps[step-1].Type == chamber.StepWait {
		return chamber.TimeErrorHold
	}
	total := stepLeft
	next := step + 1
	for walked := 0; next >= 1 && next <= len(p.Steps); walked++ {
		if walked > maxTimeWalk {
			return chamber.TimeErrorUnbounded
		}
		st := &p.Steps[next-1]
		switch st.Type {
		case chamber.StepWait:
			return chamber.TimeErrorHold
		case chamber.StepRampTime, chamber.StepSoak:
			total += st.Duration.TotalSeconds()
			if len(st.Loops) > 0 {
				target = st.Loops[0].Target
			}
		case chamber.StepRampRate:
			if len(st.Loops) > 0 {
				if rate := st.Loops[0].Rate; rate > 0 {
					total += int(math.Abs(st.Loops[0].Target-target) / rate * 60)
				}
				target = st.Loops[0].Target
			}
		}
		if st.Type == chamber.StepJump && jumps < st.JumpCount {
			jumps++
			next = st.JumpStep
		} else {
			next++
		}
	}

	return convert.FormatHMS(convert.SplitSeconds(total))
}

func isTimed(t chamber.StepType) bool {
	return t == chamber.StepRampTime || t == chamber.StepRampRate || t == chamber.StepSoak
}
