package chamber

import (
	"fmt"
	"strings"
)

// StepType is the kind of a program step.
type StepType string

const (
	StepInstant   StepType = "instant"
	StepRampTime  StepType = "ramptime"
	StepRampRate  StepType = "ramprate"
	StepSoak      StepType = "soak"
	StepWait      StepType = "wait"
	StepJump      StepType = "jump"
	StepEnd       StepType = "end"
	StepAutoStart StepType = "autostart"
)

func (t StepType) valid() bool {
	switch t {
	case StepInstant, StepRampTime, StepRampRate, StepSoak, StepWait, StepJump, StepEnd, StepAutoStart:
		return true
	}

	return false
}

// Duration is a step duration.
type Duration struct {
	Hours   int `json:"hours" yaml:"hours"`
	Minutes int `json:"minutes" yaml:"minutes"`
	Seconds int `json:"seconds" yaml:"seconds"`
}

// TotalSeconds returns the duration in seconds.
func (d Duration) TotalSeconds() int {
	return d.Hours*3600 + d.Minutes*60 + d.Seconds
}

// DurationFromSeconds splits seconds into a Duration.
func DurationFromSeconds(total int) Duration {
	if total < 0 {
		total = 0
	}

	return Duration{Hours: total / 3600, Minutes: total % 3600 / 60, Seconds: total % 60}
}

// StepLoop holds the per-loop settings of a step. The slice index in
// Step.Loops follows Profile.LoopMap order.
type StepLoop struct {
	Target         float64    `json:"target" yaml:"target"`
	Rate           float64    `json:"rate,omitempty" yaml:"rate,omitempty"`
	Ramp           bool       `json:"ramp,omitempty" yaml:"ramp,omitempty"`
	Enable         bool       `json:"enable" yaml:"enable"`
	EnableCascade  bool       `json:"enable_cascade,omitempty" yaml:"enable_cascade,omitempty"`
	GuaranteedSoak bool       `json:"gsoak,omitempty" yaml:"gsoak,omitempty"`
	Deviation      *Deviation `json:"deviation,omitempty" yaml:"deviation,omitempty"`
	Mode           string     `json:"mode,omitempty" yaml:"mode,omitempty"`
	PIDSet         int        `json:"pid_set,omitempty" yaml:"pid_set,omitempty"`
}

// EventValue is the requested state of an event during a step.
type EventValue string

const (
	EventOn       EventValue = "on"
	EventOff      EventValue = "off"
	EventNoChange EventValue = "nc"
)

// StepEvent sets an event during a step.
type StepEvent struct {
	Number int        `json:"number" yaml:"number"`
	Value  EventValue `json:"value" yaml:"value"`
}

// Wait is a wait-for condition of a wait step.
type Wait struct {
	Number    int     `json:"number" yaml:"number"`
	Condition string  `json:"condition" yaml:"condition"`
	Value     float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

// Step is one program step. Which fields are meaningful depends on Type and on
// the controller family.
type Step struct {
	Type        StepType    `json:"type" yaml:"type"`
	Duration    Duration    `json:"duration" yaml:"duration"`
	Loops       []StepLoop  `json:"loops,omitempty" yaml:"loops,omitempty"`
	Events      []StepEvent `json:"events,omitempty" yaml:"events,omitempty"`
	Waits       []Wait      `json:"waits,omitempty" yaml:"waits,omitempty"`
	JumpProgram int         `json:"jump_program,omitempty" yaml:"jump_program,omitempty"`
	JumpStep    int         `json:"jump_step,omitempty" yaml:"jump_step,omitempty"`
	JumpCount   int         `json:"jump_count,omitempty" yaml:"jump_count,omitempty"`
	Paused      bool        `json:"paused,omitempty" yaml:"paused,omitempty"`
	Guaranteed  bool        `json:"granty,omitempty" yaml:"granty,omitempty"`
	Refrig      *Refrig     `json:"refrig,omitempty" yaml:"refrig,omitempty"`
	Action      string      `json:"action,omitempty" yaml:"action,omitempty"`
}

// Counter is a repeat counter of a program: steps Start..End run Cycles extra times.
type Counter struct {
	Start  int `json:"start" yaml:"start"`
	End    int `json:"end" yaml:"end"`
	Cycles int `json:"cycles" yaml:"cycles"`
}

// Program is a stored multi-step program.
type Program struct {
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
	Steps  []Step `json:"steps" yaml:"steps"`

	Log                     bool      `json:"log,omitempty" yaml:"log,omitempty"`
	GuaranteedSoakDeviation []float64 `json:"gsoak_deviation,omitempty" yaml:"gsoak_deviation,omitempty"`
	Counters                []Counter `json:"counters,omitempty" yaml:"counters,omitempty"`
	End                     string    `json:"end,omitempty" yaml:"end,omitempty"`
	NextProgram             int       `json:"next_program,omitempty" yaml:"next_program,omitempty"`
	TempRange               *Range    `json:"temp_range,omitempty" yaml:"temp_range,omitempty"`
	HumiRange               *Range    `json:"humi_range,omitempty" yaml:"humi_range,omitempty"`
}

// ProgramSummary identifies a stored program.
type ProgramSummary struct {
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
	Steps  int    `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Limits are the program bounds of a controller model.
type Limits struct {
	// Programs is the number of addressable programs.
	Programs int
	// WritablePrograms is the number of programs that may be written; it never
	// exceeds Programs.
	WritablePrograms int
	// MaxSteps is the largest number of steps in a program.
	MaxSteps int
	// MaxNameLength bounds program names; 0 means unbounded.
	MaxNameLength int
}

// CheckNumber fails with ErrCapability when n is not an addressable program.
func (l Limits) CheckNumber(n int, write bool) error {
	limit := l.Programs
	if write && l.WritablePrograms > 0 {
		limit = l.WritablePrograms
	}
	if n < 1 || n > limit {
		return CapabilityErrorf("program %d out of range [1, %d]", n, limit)
	}

	return nil
}

// ErrTooManySteps is returned when a program exceeds the step bound of the
// controller. It matches both ErrValidation and ErrCapability.
var ErrTooManySteps = fmt.Errorf("%w: %w: too many program steps", ErrValidation, ErrCapability)

// Validate checks a program against the limits and profile before anything is
// transmitted.
func (p *Program) Validate(l Limits, prof *Profile) error {
	if len(p.Steps) == 0 {
		return ValidationErrorf("program has no steps")
	}
	if l.MaxSteps > 0 && len(p.Steps) > l.MaxSteps {
		return fmt.Errorf("%w: %d steps, at most %d", ErrTooManySteps, len(p.Steps), l.MaxSteps)
	}
	if l.MaxNameLength > 0 && len(p.Name) > l.MaxNameLength {
		return ValidationErrorf("program name %q longer than %d", p.Name, l.MaxNameLength)
	}
	loops := len(prof.LoopMap())
	for i := range p.Steps {
		st := &p.Steps[i]
		if st.Type != "" && !st.Type.valid() {
			return ValidationErrorf("step %d: unknown type %q", i+1, st.Type)
		}
		if len(st.Loops) > loops {
			return ValidationErrorf("step %d: %d loop entries for %d loops", i+1, len(st.Loops), loops)
		}
		d := st.Duration
		if d.Hours < 0 || d.Minutes < 0 || d.Minutes > 59 || d.Seconds < 0 || d.Seconds > 59 {
			return ValidationErrorf("step %d: invalid duration %+v", i+1, d)
		}
		for _, ev := range st.Events {
			if err := prof.CheckEvent(ev.Number); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		if st.Type == StepJump && (st.JumpStep < 1 || st.JumpCount < 0) {
			return ValidationErrorf("step %d: jump needs a target step and a non-negative count", i+1)
		}
	}
	for i, c := range p.Counters {
		if c.Cycles == 0 {
			continue
		}
		if c.Start < 1 || c.End < c.Start || c.End > len(p.Steps) {
			return ValidationErrorf("counter %d: steps %d..%d outside program", i+1, c.Start, c.End)
		}
	}

	return nil
}

// ProgramStatus describes the running program.
type ProgramStatus struct {
	Number            int       `json:"number" yaml:"number"`
	Step              int       `json:"step" yaml:"step"`
	Name              string    `json:"name" yaml:"name"`
	Steps             int       `json:"steps" yaml:"steps"`
	TimeRemaining     string    `json:"time_remaining" yaml:"time_remaining"`
	StepTimeRemaining string    `json:"step_time_remaining" yaml:"step_time_remaining"`
	Cycles            []Counter `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// Remaining-time error strings.
const (
	TimeErrorJumpCount   = "ERROR:jump qty"
	TimeErrorJumpProgram = "ERROR:jump prfl"
	TimeErrorHold        = "ERROR:hold"
	TimeErrorUnbounded   = "ERROR:time calc"
)

// IsTimeError reports whether a remaining-time string is an error marker.
func IsTimeError(s string) bool {
	return strings.HasPrefix(s, "ERROR")
}
