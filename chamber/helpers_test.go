package chamber

import (
	"context"
	"sync"
	"time"
)

// fakeSession counts leases and serializes them like the real session.
type fakeSession struct {
	mu     sync.Mutex
	leases int
	closed bool
}

func (s *fakeSession) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases++

	return fn(ctx)
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeDriver keeps chamber state in memory and records every call.
type fakeDriver struct {
	profile Profile
	limits  Limits

	status   string
	alarms   []int
	current  ProgramRef
	events   map[int]bool
	clock    time.Time
	setpoint map[LoopRef]float64
	programs map[int]*Program

	failRead    map[Field]error
	failWrite   map[Field]error
	writeFields []Field
	calls       []string
}

var _ Driver = (*fakeDriver)(nil)

func newFakeDriver(p Profile) *fakeDriver {
	return &fakeDriver{
		profile:  p,
		limits:   Limits{Programs: 40, WritablePrograms: 40, MaxSteps: 5},
		status:   "Standby",
		events:   map[int]bool{},
		clock:    time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local),
		setpoint: map[LoopRef]float64{},
		programs: map[int]*Program{},
		failRead: map[Field]error{}, failWrite: map[Field]error{},
	}
}

func (d *fakeDriver) Family() Family   { return FamilyWatlowF4T }
func (d *fakeDriver) Profile() Profile { return d.profile }

func (d *fakeDriver) ReadLoopField(_ context.Context, ref LoopRef, f Field, dst *Loop) error {
	d.calls = append(d.calls, "read:"+string(f))
	if err := d.failRead[f]; err != nil {
		return err
	}
	sp := d.setpoint[ref]
	switch f {
	case FieldSetpoint:
		dst.Setpoint = &Setpoint{Constant: sp, Current: sp}
	case FieldProcessValue:
		dst.ProcessValue = &ProcessValue{Air: sp - 0.5}
	case FieldRange:
		dst.Range = &Range{Min: -70, Max: 180}
	case FieldEnable:
		dst.Enable = &Toggle{Constant: true, Current: true}
	case FieldUnits:
		u := "°C"
		dst.Units = &u
	case FieldMode:
		dst.Mode = &ModeValue{Constant: "On", Current: "Auto"}
	case FieldPower:
		dst.Power = &Power{Constant: 0, Current: 12.5}
	case FieldDeviation:
		dst.Deviation = &Deviation{Positive: 3, Negative: -3}
	case FieldEnableCascade:
		dst.EnableCascade = &Toggle{}
	}

	return nil
}

func (d *fakeDriver) WriteLoopField(_ context.Context, ref LoopRef, f Field, s *LoopSettings) error {
	if err := d.failWrite[f]; err != nil {
		return err
	}
	d.writeFields = append(d.writeFields, f)
	if f == FieldSetpoint {
		d.setpoint[ref] = *s.Setpoint
	}

	return nil
}

func (d *fakeDriver) GetEvent(_ context.Context, n int) (Event, error) {
	return Event{Number: n, Constant: d.events[n], Current: d.events[n]}, nil
}

func (d *fakeDriver) SetEvent(_ context.Context, n int, on bool) error {
	d.events[n] = on
	return nil
}

func (d *fakeDriver) GetDatetime(context.Context) (time.Time, error) { return d.clock, nil }

func (d *fakeDriver) SetDatetime(_ context.Context, t time.Time) error {
	d.clock = t
	return nil
}

func (d *fakeDriver) Status(context.Context) (string, error) { return d.status, nil }
func (d *fakeDriver) Alarms(context.Context) ([]int, error)  { return d.alarms, nil }

func (d *fakeDriver) ConstantStart(context.Context) error {
	d.calls = append(d.calls, "constant")
	d.status = "Constant"

	return nil
}

func (d *fakeDriver) Stop(context.Context) error {
	d.calls = append(d.calls, "stop")
	d.status = "Standby"

	return nil
}

func (d *fakeDriver) ProgramStart(_ context.Context, n, step int) error {
	d.calls = append(d.calls, "start")
	d.current = ProgramRef{Number: n, Step: step}
	d.status = "Program Running"

	return nil
}

func (d *fakeDriver) ProgramPause(context.Context) error {
	d.status = "Program Paused"
	return nil
}

func (d *fakeDriver) ProgramResume(context.Context) error {
	d.status = "Program Running"
	return nil
}

func (d *fakeDriver) ProgramAdvance(context.Context) error {
	d.current.Step++
	return nil
}

func (d *fakeDriver) ProgramStatus(context.Context, *Program) (*ProgramStatus, error) {
	return &ProgramStatus{
		Number: d.current.Number, Step: d.current.Step, Name: "SOAK", Steps: 4,
		TimeRemaining: "3:05:09", StepTimeRemaining: "0:10:00",
	}, nil
}

func (d *fakeDriver) ProgramLimits() Limits { return d.limits }

func (d *fakeDriver) GetProgram(_ context.Context, n int) (*Program, error) {
	p, ok := d.programs[n]
	if !ok {
		return nil, CapabilityErrorf("program %d empty", n)
	}

	return p, nil
}

func (d *fakeDriver) SetProgram(_ context.Context, n int, p *Program) error {
	d.calls = append(d.calls, "set-program")
	cp := *p
	d.programs[n] = &cp

	return nil
}

func (d *fakeDriver) DeleteProgram(_ context.Context, n int) error {
	delete(d.programs, n)
	return nil
}

func (d *fakeDriver) ProgramList(context.Context) ([]ProgramSummary, error) {
	var out []ProgramSummary
	for i := 1; i <= d.limits.Programs; i++ {
		if p, ok := d.programs[i]; ok {
			out = append(out, ProgramSummary{Number: i, Name: p.Name})
		}
	}

	return out, nil
}

func (d *fakeDriver) ProgramDetails(_ context.Context, n int) (ProgramSummary, error) {
	p, err := d.GetProgram(context.Background(), n)
	if err != nil {
		return ProgramSummary{}, err
	}

	return ProgramSummary{Number: n, Name: p.Name, Steps: len(p.Steps)}, nil
}

// refrigDriver adds refrigeration support to fakeDriver.
type refrigDriver struct {
	*fakeDriver
	refrig Refrig
}

func (d *refrigDriver) GetRefrig(context.Context) (Refrig, error) { return d.refrig, nil }

func (d *refrigDriver) SetRefrig(_ context.Context, r Refrig) error {
	d.refrig = r
	return nil
}

func ptr[T any](v T) *T { return &v }
