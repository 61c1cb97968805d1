package watlowf4t

import (
	"context"
	"fmt"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/internal/util"
	"github.com/arloliu/go-chamber/regmap"
)

// stepBase returns the register of the first word of step i (0-based).
func (d *Driver) stepBase(i int) (uint16, error) {
	r, err := d.resolve(regmap.ProgramStepBlock, 0)
	if err != nil {
		return 0, err
	}

	return r.Address + uint16(i*stepStride), nil //nolint:gosec
}

func (d *Driver) selectProgram(ctx context.Context, n int) error {
	return d.writeWord(ctx, regmap.ProgramEditSelect, 0, uint16(n)) //nolint:gosec
}

// programSteps selects program n for editing and returns its step count.
func (d *Driver) programSteps(ctx context.Context, n int) (int, error) {
	if err := d.selectProgram(ctx, n); err != nil {
		return 0, err
	}
	steps, err := d.readWord(ctx, regmap.ProgramSteps, 0)
	if err != nil {
		return 0, err
	}

	return int(steps), nil
}

func (d *Driver) programName(ctx context.Context, n int) (string, error) {
	r, err := d.resolve(regmap.ProgramName, n)
	if err != nil {
		return "", err
	}

	return d.client.ReadString(ctx, r)
}

func (d *Driver) float(regs []uint16, i int) (float64, error) {
	if len(regs) < i+2 {
		return 0, fmt.Errorf("watlowf4t: float at %d of %d registers: %w", i, len(regs), convert.ErrDecode)
	}
	v, err := convert.Float32FromRegisters(regs[i:i+2], d.client.LowWordFirst())
	if err != nil {
		return 0, err
	}

	return convert.Quantize(float64(v), 1), nil
}

// stepEvent returns the state of event n held by a guaranteed soak/event block.
func stepEvent(block []uint16, n int) chamber.EventValue {
	i := stepEventsLow + (n-1)*2
	if n > 4 {
		i = stepEventsHigh + (n-5)*2
	}
	if i >= len(block) {
		return chamber.EventNoChange
	}
	switch block[i] {
	case valOn:
		return chamber.EventOn
	case valOff:
		return chamber.EventOff
	}

	return chamber.EventNoChange
}

// GetProgram reads program n.
func (d *Driver) GetProgram(ctx context.Context, n int) (*chamber.Program, error) {
	count, err := d.programSteps(ctx, n)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, chamber.CapabilityErrorf("program %d does not exist", n)
	}

	p := &chamber.Program{Number: n}
	if p.Name, err = d.readString(ctx, regmap.ProgramEditName); err != nil {
		return nil, err
	}
	logWord, err := d.client.ReadHolding(ctx, programLog, 1)
	if err != nil {
		return nil, err
	}
	p.Log = logWord[0] == valYes

	loops := d.profile.LoopMap()
	gsd, err := d.client.ReadHolding(ctx, programGSoakDev, len(loops)*2)
	if err != nil {
		return nil, err
	}
	for i := range loops {
		v, err := d.float(gsd, i*2)
		if err != nil {
			return nil, err
		}
		p.GuaranteedSoakDeviation = append(p.GuaranteedSoakDeviation, v)
	}

	for i := 0; i < count; i++ {
		st, err := d.readStep(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("watlowf4t: program %d step %d: %w", n, i+1, err)
		}
		p.Steps = append(p.Steps, *st)
	}

	return p, nil
}

func (d *Driver) readString(ctx context.Context, p regmap.Param) (string, error) {
	r, err := d.resolve(p, 0)
	if err != nil {
		return "", err
	}

	return d.client.ReadString(ctx, r)
}

func (d *Driver) readStep(ctx context.Context, i int) (*chamber.Step, error) {
	base, err := d.stepBase(i)
	if err != nil {
		return nil, err
	}
	word, err := d.client.ReadHolding(ctx, base+stepType, 1)
	if err != nil {
		return nil, err
	}
	typ, ok := stepTypes[word[0]]
	if !ok {
		return nil, fmt.Errorf("unknown step type %d: %w", word[0], convert.ErrDecode)
	}
	st := &chamber.Step{Type: typ}

	var params []uint16
	switch typ {
	case chamber.StepSoak, chamber.StepRampTime, chamber.StepInstant:
		dur, err := d.client.ReadHolding(ctx, base+stepHours, 6)
		if err != nil {
			return nil, err
		}
		st.Duration = chamber.Duration{Hours: int(dur[0]), Minutes: int(dur[2]), Seconds: int(dur[4])}
		if typ != chamber.StepSoak {
			if params, err = d.client.ReadHolding(ctx, base+stepTargets, 8); err != nil {
				return nil, err
			}
		}
	case chamber.StepRampRate:
		if params, err = d.client.ReadHolding(ctx, base+stepRates, 16); err != nil {
			return nil, err
		}
	case chamber.StepEnd:
		if params, err = d.client.ReadHolding(ctx, base+stepEndModes, 7); err != nil {
			return nil, err
		}
	}

	block, err := d.client.ReadHolding(ctx, base+stepGSoakEvents, eventsBlockSize)
	if err != nil {
		return nil, err
	}
	// Per loop words sit in 32-bit slots.
	gsoak := util.Every(block, 0, 2)
	ends := util.Every(params, 0, 2)
	for j, ref := range d.profile.LoopMap() {
		sl := chamber.StepLoop{GuaranteedSoak: gsoak[j] == valOn, Enable: true}
		switch typ {
		case chamber.StepRampRate:
			if sl.Target, err = d.float(params, 8+j*2); err != nil {
				return nil, err
			}
			if sl.Rate, err = d.float(params, j*2); err != nil {
				return nil, err
			}
		case chamber.StepInstant, chamber.StepRampTime:
			if sl.Target, err = d.float(params, j*2); err != nil {
				return nil, err
			}
		case chamber.StepEnd:
			switch ends[j] {
			case valUser:
				sl.Mode = "user"
			case valOff:
				sl.Mode = "off"
			default:
				sl.Mode = "hold"
			}
		}
		if ev := d.profile.EventFor(ref); ev != 0 {
			sl.Enable = stepEvent(block, ev) == chamber.EventOn
		}
		if ref.Type == chamber.LoopCascade {
			if ev := d.profile.CascadeCtlEventFor(ref.Number); ev != 0 {
				sl.EnableCascade = stepEvent(block, ev) == chamber.EventOn
			}
		}
		st.Loops = append(st.Loops, sl)
	}

	if d.hasWaits() {
		raw, err := d.client.ReadHolding(ctx, base+stepWaits, 16)
		if err != nil {
			return nil, err
		}
		for j, name := range d.profile.Waits {
			if name == "" || j >= maxWaits {
				continue
			}
			v, err := d.float(raw, j*waitStride+2)
			if err != nil {
				return nil, err
			}
			st.Waits = append(st.Waits, chamber.Wait{Number: j + 1, Condition: names[raw[j*waitStride]], Value: v})
		}
	}

	jump, err := d.client.ReadHolding(ctx, base+stepJumpStep, 3)
	if err != nil {
		return nil, err
	}
	st.JumpStep, st.JumpCount = int(jump[0]), int(jump[2])

	for e := 1; e <= profileEvents; e++ {
		st.Events = append(st.Events, chamber.StepEvent{Number: e, Value: stepEvent(block, e)})
	}

	return st, nil
}

func (d *Driver) hasWaits() bool {
	for _, w := range d.profile.Waits {
		if w != "" {
			return true
		}
	}

	return false
}

// SetProgram writes program n. Program events are limited to the eight
// profile events.
func (d *Driver) SetProgram(ctx context.Context, n int, p *chamber.Program) error {
	for i := range p.Steps {
		if _, ok := stepTypeValues[p.Steps[i].Type]; !ok {
			return chamber.ValidationErrorf("step %d: type %q is not supported", i+1, p.Steps[i].Type)
		}
		for _, ev := range p.Steps[i].Events {
			if ev.Number > profileEvents {
				return chamber.ValidationErrorf("step %d: event %d is not a profile event", i+1, ev.Number)
			}
		}
	}

	if err := d.selectProgram(ctx, n); err != nil {
		return err
	}
	if err := d.writeWord(ctx, regmap.ProgramEditAction, 0, valAdd); err != nil {
		return err
	}
	nameReg, err := d.resolve(regmap.ProgramEditName, 0)
	if err != nil {
		return err
	}
	if err := d.client.WriteString(ctx, nameReg, p.Name); err != nil {
		return err
	}
	logWord := valNo
	if p.Log {
		logWord = valYes
	}
	if err := d.client.WriteHolding(ctx, programLog, logWord); err != nil {
		return err
	}
	for i, v := range p.GuaranteedSoakDeviation {
		if err := d.client.WriteHoldingFloat(ctx, programGSoakDev+uint16(i*2), float32(v)); err != nil { //nolint:gosec
			return err
		}
	}
	for i := range p.Steps {
		if err := d.writeStep(ctx, i, &p.Steps[i]); err != nil {
			return fmt.Errorf("watlowf4t: program %d step %d: %w", n, i+1, err)
		}
	}

	return nil
}

func (d *Driver) writeStep(ctx context.Context, i int, st *chamber.Step) error {
	base, err := d.stepBase(i)
	if err != nil {
		return err
	}
	write := func(off int, v uint16) error {
		return d.client.WriteHolding(ctx, base+uint16(off), v) //nolint:gosec
	}
	writeFloat := func(off int, v float64) error {
		return d.client.WriteHoldingFloat(ctx, base+uint16(off), float32(v)) //nolint:gosec
	}
	event := func(n int, v chamber.EventValue) error {
		off := stepGSoakEvents + stepEventsLow + (n-1)*2
		if n > 4 {
			off = stepGSoakEvents + stepEventsHigh + (n-5)*2
		}
		return write(off, eventValues[v])
	}
	onOff := func(on bool) chamber.EventValue {
		if on {
			return chamber.EventOn
		}
		return chamber.EventOff
	}

	if err := write(stepType, stepTypeValues[st.Type]); err != nil {
		return err
	}
	for _, ev := range st.Events {
		v := ev.Value
		if _, ok := eventValues[v]; !ok {
			return chamber.ValidationErrorf("event %d: unknown value %q", ev.Number, v)
		}
		if err := event(ev.Number, v); err != nil {
			return err
		}
	}

	switch st.Type {
	case chamber.StepJump:
		if err := write(stepJumpStep, uint16(st.JumpStep)); err != nil { //nolint:gosec
			return err
		}
		if err := write(stepJumpCount, uint16(st.JumpCount)); err != nil { //nolint:gosec
			return err
		}
	case chamber.StepWait:
		for _, w := range st.Waits {
			cond, err := valueOf(w.Condition)
			if err != nil {
				return err
			}
			if err := write(stepWaits+(w.Number-1)*waitStride, cond); err != nil {
				return err
			}
			if err := writeFloat(stepWaits+(w.Number-1)*waitStride+2, w.Value); err != nil {
				return err
			}
		}
	}

	switch st.Type {
	case chamber.StepSoak, chamber.StepInstant, chamber.StepRampTime, chamber.StepRampRate, chamber.StepEnd:
		loops := d.profile.LoopMap()
		for j, sl := range st.Loops {
			ref := loops[j]
			if st.Type == chamber.StepRampRate {
				if err := writeFloat(stepRates+j*2, sl.Rate); err != nil {
					return err
				}
			}
			if st.Type == chamber.StepRampRate || st.Type == chamber.StepRampTime || st.Type == chamber.StepInstant {
				if err := writeFloat(stepTargets+j*2, sl.Target); err != nil {
					return err
				}
			}
			if st.Type == chamber.StepEnd {
				mode, ok := endModes[sl.Mode]
				if !ok {
					return chamber.ValidationErrorf("loop %d: end mode %q must be user, off or hold", j+1, sl.Mode)
				}
				if err := write(stepEndModes+j*2, mode); err != nil {
					return err
				}
				continue
			}
			gsoak := valOff
			if sl.GuaranteedSoak {
				gsoak = valOn
			}
			if err := write(stepGSoakEvents+j*2, gsoak); err != nil {
				return err
			}
			if ev := d.profile.EventFor(ref); ev > 0 {
				if err := event(ev, onOff(sl.Enable)); err != nil {
					return err
				}
			}
			if ref.Type == chamber.LoopCascade {
				if ev := d.profile.CascadeCtlEventFor(ref.Number); ev > 0 {
					if err := event(ev, onOff(sl.EnableCascade)); err != nil {
						return err
					}
				}
			}
		}
	default:
		for _, ev := range d.gateEvents() {
			if err := event(ev, chamber.EventNoChange); err != nil {
				return err
			}
		}
	}

	switch st.Type {
	case chamber.StepSoak, chamber.StepInstant, chamber.StepRampTime:
		if err := write(stepSeconds, uint16(st.Duration.Seconds)); err != nil { //nolint:gosec
			return err
		}
		if err := write(stepMinutes, uint16(st.Duration.Minutes)); err != nil { //nolint:gosec
			return err
		}
		if err := write(stepHours, uint16(st.Duration.Hours)); err != nil { //nolint:gosec
			return err
		}
	}

	// The run condition stays on unless every loop ends switched off.
	if cond := d.profile.CondEvent; cond > 0 && cond <= profileEvents {
		run := st.Type != chamber.StepEnd || len(st.Loops) == 0
		for _, sl := range st.Loops {
			if st.Type == chamber.StepEnd && sl.Mode != "off" {
				run = true
			}
		}
		return event(cond, onOff(run))
	}

	return nil
}

// gateEvents lists the profile events gating loops, cascades and cascade
// control.
func (d *Driver) gateEvents() []int {
	var out []int
	for _, list := range [][]int{d.profile.LoopEvent, d.profile.CascadeEvent, d.profile.CascadeCtlEvent} {
		for _, ev := range list {
			if ev > 0 && ev <= profileEvents {
				out = append(out, ev)
			}
		}
	}

	return out
}

// DeleteProgram deletes program n.
func (d *Driver) DeleteProgram(ctx context.Context, n int) error {
	if err := d.selectProgram(ctx, n); err != nil {
		return err
	}

	return d.writeWord(ctx, regmap.ProgramEditAction, 0, valDelete)
}

// ProgramList returns the name of every program slot.
func (d *Driver) ProgramList(ctx context.Context) ([]chamber.ProgramSummary, error) {
	out := make([]chamber.ProgramSummary, 0, Limits.Programs)
	for n := 1; n <= Limits.Programs; n++ {
		name, err := d.programName(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, chamber.ProgramSummary{Number: n, Name: name})
	}

	return out, nil
}

// ProgramDetails returns the name and step count of program n.
func (d *Driver) ProgramDetails(ctx context.Context, n int) (chamber.ProgramSummary, error) {
	name, err := d.programName(ctx, n)
	if err != nil {
		return chamber.ProgramSummary{}, err
	}
	steps, err := d.programSteps(ctx, n)
	if err != nil {
		return chamber.ProgramSummary{}, err
	}

	return chamber.ProgramSummary{Number: n, Name: name, Steps: steps}, nil
}
