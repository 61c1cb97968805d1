package espec

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/arloliu/go-chamber/chamber"
)

// Program end modes.
var endModes = []string{"OFF", "STANDBY", "CONSTANT", "HOLD", "RUN"}

// maxCounters is the number of repeat counters of a program, A and B.
const maxCounters = 2

func (d *Driver) checkPrograms() error {
	if !d.profile.Profiles {
		return chamber.CapabilityErrorf("controller has no program support")
	}

	return nil
}

func (d *Driver) humidity() bool { return len(d.profile.LoopMap()) > 1 }

// dataQuery returns the program data query of program n, with the PTCON
// fields when the chamber has a cascade.
func (d *Driver) dataQuery(n int) string {
	if d.profile.Cascades > 0 {
		return "PRGM DATA PTC?," + d.model.memory(n)
	}

	return "PRGM DATA?," + d.model.memory(n)
}

func (d *Driver) programHeader(ctx context.Context, n int) (programHeader, error) {
	cmd := d.dataQuery(n)
	reply, err := d.query(ctx, cmd)
	if err != nil {
		return programHeader{}, fmt.Errorf("espec: program %d: %w", n, err)
	}

	return parseProgramData(cmd, reply)
}

// GetProgram reads program n.
func (d *Driver) GetProgram(ctx context.Context, n int) (*chamber.Program, error) {
	if err := d.checkPrograms(); err != nil {
		return nil, err
	}
	hdr, err := d.programHeader(ctx, n)
	if err != nil {
		return nil, err
	}
	p := &chamber.Program{
		Number:      n,
		Name:        hdr.Name,
		Counters:    hdr.Counters[:],
		End:         hdr.End,
		NextProgram: hdr.NextProgram,
	}
	if d.model.programRanges {
		cmd := d.dataQuery(n) + ",DETAIL"
		reply, err := d.query(ctx, cmd)
		if err != nil {
			return nil, err
		}
		if p.TempRange, p.HumiRange, err = parseProgramRanges(cmd, reply); err != nil {
			return nil, err
		}
	}
	for i := 1; i <= hdr.Steps; i++ {
		cmd := fmt.Sprintf("%s,STEP%d", d.dataQuery(n), i)
		reply, err := d.query(ctx, cmd)
		if err != nil {
			return nil, err
		}
		ps, err := parseProgramStep(d.model, cmd, reply)
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, d.decodeStep(&ps))
	}

	return p, nil
}

func (d *Driver) decodeStep(ps *programStep) chamber.Step {
	refrig := ps.Refrig
	st := chamber.Step{
		Type:       chamber.StepSoak,
		Duration:   chamber.Duration{Hours: ps.Hours, Minutes: ps.Minutes},
		Paused:     ps.Paused,
		Guaranteed: ps.Guaranteed,
		Refrig:     &refrig,
	}
	temp := chamber.StepLoop{Target: ps.Temp, Ramp: ps.TempRamp, Enable: true}
	if ps.PTC != nil {
		temp.EnableCascade = *ps.PTC
		temp.Deviation = ps.Deviation
	}
	st.Loops = append(st.Loops, temp)
	if d.humidity() {
		humi := chamber.StepLoop{Enable: ps.Humi != nil, Ramp: ps.HumiRamp}
		if ps.Humi != nil {
			humi.Target = *ps.Humi
		}
		st.Loops = append(st.Loops, humi)
	}
	if ps.TempRamp || ps.HumiRamp {
		st.Type = chamber.StepRampTime
	}
	for _, r := range ps.Relays {
		st.Events = append(st.Events, chamber.StepEvent{Number: r, Value: chamber.EventOn})
	}

	return st
}

func (d *Driver) checkProgram(p *chamber.Program) error {
	if strings.ContainsAny(p.Name, ",;<>") {
		return chamber.ValidationErrorf("program name %q contains a reserved character", p.Name)
	}
	if len(p.Counters) > maxCounters {
		return chamber.ValidationErrorf("%d counters, the controller has %d", len(p.Counters), maxCounters)
	}
	if p.End != "" && !slices.Contains(endModes, p.End) {
		return chamber.ValidationErrorf("unknown end mode %q", p.End)
	}
	if p.End == "RUN" && (p.NextProgram < 1 || p.NextProgram > d.model.limits.Programs) {
		return chamber.ValidationErrorf("next program %d out of range [1, %d]", p.NextProgram, d.model.limits.Programs)
	}
	for i := range p.Steps {
		st := &p.Steps[i]
		switch st.Type {
		case "", chamber.StepSoak, chamber.StepRampTime:
		default:
			return chamber.ValidationErrorf("step %d: %s steps are not supported", i+1, st.Type)
		}
		if len(st.Loops) == 0 {
			return chamber.ValidationErrorf("step %d: temperature target missing", i+1)
		}
		if st.Duration.Seconds != 0 {
			return chamber.ValidationErrorf("step %d: step times have a resolution of one minute", i+1)
		}
		if d.profile.Cascades == 0 && (st.Loops[0].EnableCascade || st.Loops[0].Deviation != nil) {
			return chamber.ValidationErrorf("step %d: product temperature control needs a cascade", i+1)
		}
		if st.Refrig != nil {
			if _, err := encodeRefrig(*st.Refrig); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}

	return nil
}

// SetProgram writes program n in edit mode. On failure the edit is cancelled
// and the original error returned.
func (d *Driver) SetProgram(ctx context.Context, n int, p *chamber.Program) error {
	if err := d.checkPrograms(); err != nil {
		return err
	}
	if err := d.checkProgram(p); err != nil {
		return err
	}
	prefix := fmt.Sprintf("PRGM DATA WRITE, PGM%d", n)
	if err := d.command(ctx, prefix+", EDIT START"); err != nil {
		return err
	}
	if err := d.writeProgram(ctx, n, p); err != nil {
		if cerr := d.command(ctx, prefix+", EDIT CANCEL"); cerr != nil {
			d.logger.Error("program edit not cancelled", "program", n, "error", cerr)
		}
		return err
	}

	return nil
}

func (d *Driver) writeProgram(ctx context.Context, n int, p *chamber.Program) error {
	humidity := false
	for i := range p.Steps {
		if err := d.command(ctx, d.stepCommand(n, i+1, &p.Steps[i])); err != nil {
			return err
		}
		if len(p.Steps[i].Loops) > 1 && p.Steps[i].Loops[1].Enable {
			humidity = true
		}
	}

	var cmds []string
	var counters []string
	for i, c := range p.Counters {
		if c.Cycles > 0 {
			counters = append(counters, fmt.Sprintf("%c(%d.%d.%d)", 'A'+i, c.Start, c.End, c.Cycles))
		}
	}
	if len(counters) > 0 {
		cmds = append(cmds, fmt.Sprintf("PRGM DATA WRITE,PGM%d,COUNT,%s", n, strings.Join(counters, ",")))
	}
	prefix := fmt.Sprintf("PRGM DATA WRITE, PGM%d", n)
	if p.Name != "" {
		cmds = append(cmds, prefix+", NAME,"+p.Name)
	}
	switch p.End {
	case "":
	case "RUN":
		cmds = append(cmds, fmt.Sprintf("%s, END,RUN,PTN%d", prefix, p.NextProgram))
	default:
		cmds = append(cmds, prefix+", END,"+p.End)
	}
	if d.model.programRanges && p.TempRange != nil {
		cmds = append(cmds,
			fmt.Sprintf("%s, HTEMP,%0.1f", prefix, p.TempRange.Max),
			fmt.Sprintf("%s, LTEMP,%0.1f", prefix, p.TempRange.Min))
	}
	if d.model.programRanges && humidity && p.HumiRange != nil {
		cmds = append(cmds,
			fmt.Sprintf("%s, HHUMI,%0.0f", prefix, p.HumiRange.Max),
			fmt.Sprintf("%s, LHUMI,%0.0f", prefix, p.HumiRange.Min))
	}
	cmds = append(cmds, prefix+", EDIT END")
	for _, cmd := range cmds {
		if err := d.command(ctx, cmd); err != nil {
			return err
		}
	}

	return nil
}

func onOffToken(on bool) string {
	if on {
		return "ON"
	}

	return "OFF"
}

func (d *Driver) stepCommand(n, step int, st *chamber.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRGM DATA WRITE, PGM%d, STEP%d", n, step)
	fmt.Fprintf(&b, ",TIME%d:%d", st.Duration.Hours, st.Duration.Minutes)
	fmt.Fprintf(&b, ",PAUSE %s", onOffToken(st.Paused))
	if st.Refrig != nil {
		code, _ := encodeRefrig(*st.Refrig)
		b.WriteString("," + code)
	}
	fmt.Fprintf(&b, ",GRANTY %s", onOffToken(st.Guaranteed))

	ramp := st.Type == chamber.StepRampTime
	temp := st.Loops[0]
	fmt.Fprintf(&b, ",TEMP%0.1f,TRAMP%s", temp.Target, onOffToken(temp.Ramp || ramp))
	if d.profile.Cascades > 0 {
		fmt.Fprintf(&b, ",PTC%s", onOffToken(temp.EnableCascade))
		if dev := temp.Deviation; dev != nil {
			neg := dev.Negative
			if d.model.negativeMagnitude && neg < 0 {
				neg = -neg
			}
			fmt.Fprintf(&b, ",DEVP%0.1f,DEVN%0.1f", dev.Positive, neg)
		}
	}
	if len(st.Loops) > 1 {
		humi := st.Loops[1]
		if humi.Enable {
			fmt.Fprintf(&b, ",HUMI%0.0f,HRAMP%s", humi.Target, onOffToken(humi.Ramp || ramp))
		} else {
			b.WriteString(",HUMIOFF")
		}
	}

	var on, off []string
	for _, ev := range st.Events {
		switch ev.Value {
		case chamber.EventOn:
			on = append(on, strconv.Itoa(ev.Number))
		case chamber.EventOff:
			off = append(off, strconv.Itoa(ev.Number))
		}
	}
	if len(on) > 0 {
		b.WriteString(",RELAY ON" + strings.Join(on, "."))
	}
	if len(off) > 0 {
		b.WriteString(",RELAY OFF" + strings.Join(off, "."))
	}

	return b.String()
}

// DeleteProgram erases program n.
func (d *Driver) DeleteProgram(ctx context.Context, n int) error {
	if err := d.checkPrograms(); err != nil {
		return err
	}

	return d.command(ctx, "PRGM ERASE,"+d.model.memory(n))
}

// ProgramList lists every program slot; empty slots have no name.
func (d *Driver) ProgramList(ctx context.Context) ([]chamber.ProgramSummary, error) {
	if err := d.checkPrograms(); err != nil {
		return nil, err
	}
	reply, err := d.query(ctx, cmdProgramUsed)
	if err != nil {
		return nil, err
	}
	used, err := parseList(cmdProgramUsed, reply)
	if err != nil {
		return nil, err
	}

	list := make([]chamber.ProgramSummary, 0, d.model.limits.Programs)
	for n := 1; n <= d.model.limits.Programs; n++ {
		s := chamber.ProgramSummary{Number: n}
		if n > d.model.ramPrograms || slices.Contains(used, n) {
			if s.Name, err = d.programName(ctx, n); err != nil {
				return nil, err
			}
		}
		list = append(list, s)
	}

	return list, nil
}

// programName reads the name of program n, or "" when the slot is empty.
func (d *Driver) programName(ctx context.Context, n int) (string, error) {
	reply, err := d.query(ctx, "PRGM USE?,"+d.model.memory(n))
	if errors.Is(err, chamber.ErrDeviceRejected) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	name, _, _ := strings.Cut(reply, ",")

	return strings.TrimSpace(name), nil
}

// ProgramDetails returns the name and step count of program n.
func (d *Driver) ProgramDetails(ctx context.Context, n int) (chamber.ProgramSummary, error) {
	if err := d.checkPrograms(); err != nil {
		return chamber.ProgramSummary{}, err
	}
	hdr, err := d.programHeader(ctx, n)
	if err != nil {
		return chamber.ProgramSummary{}, err
	}

	return chamber.ProgramSummary{Number: n, Name: hdr.Name, Steps: hdr.Steps}, nil
}
