package chamber

import (
	"fmt"
	"strings"
)

// Profile limits.
const (
	MaxLoops    = 4
	MaxCascades = 3
	MaxEvents   = 16
)

// Profile describes the hardware capability of a chamber. It is fixed when the
// Chamber is constructed.
type Profile struct {
	// Loops is the number of standard control loops.
	Loops int `json:"loops" yaml:"loops"`
	// Cascades is the number of cascade (product temperature) loops.
	Cascades int `json:"cascades" yaml:"cascades"`
	// Alarms is the number of alarm slots the controller reports.
	Alarms int `json:"alarms" yaml:"alarms"`
	// Profiles reports whether the controller stores programs.
	Profiles bool `json:"profiles" yaml:"profiles"`
	// Events is the number of addressable digital events.
	Events int `json:"events" yaml:"events"`
	// CondEvent is the event driving the chamber run condition; 0 when unused.
	CondEvent int `json:"cond_event" yaml:"cond_event"`
	// CondEventToggle reports whether the condition event is latched (true)
	// or a momentary push button (false).
	CondEventToggle bool `json:"cond_event_toggle" yaml:"cond_event_toggle"`
	// RunModule and RunIO address the digital input that reports the run state.
	RunModule int `json:"run_module" yaml:"run_module"`
	RunIO     int `json:"run_io" yaml:"run_io"`
	// Limits lists the module indices carrying limit controllers.
	Limits []int `json:"limits" yaml:"limits"`
	// LoopEvent, CascadeEvent and CascadeCtlEvent list, per loop or cascade, the
	// event gating it. Zero means the loop is gated by its own mode register.
	LoopEvent       []int `json:"loop_event" yaml:"loop_event"`
	CascadeEvent    []int `json:"cascade_event" yaml:"cascade_event"`
	CascadeCtlEvent []int `json:"cascade_ctl_event" yaml:"cascade_ctl_event"`
	// LoopNames names each entry of LoopMap in order.
	LoopNames []string `json:"loop_names" yaml:"loop_names"`
	// Waits names the wait-for inputs used by program steps.
	Waits []string `json:"waits" yaml:"waits"`
}

// Validate checks counts and event assignments.
func (p *Profile) Validate() error {
	if p.Loops < 0 || p.Loops > MaxLoops {
		return ValidationErrorf("loops %d out of range [0, %d]", p.Loops, MaxLoops)
	}
	if p.Cascades < 0 || p.Cascades > MaxCascades {
		return ValidationErrorf("cascades %d out of range [0, %d]", p.Cascades, MaxCascades)
	}
	if p.Alarms < 0 {
		return ValidationErrorf("alarms %d must not be negative", p.Alarms)
	}
	if p.Events < 0 || p.Events > MaxEvents {
		return ValidationErrorf("events %d out of range [0, %d]", p.Events, MaxEvents)
	}
	checkEvent := func(name string, ev int) error {
		if ev < 0 || ev > p.Events {
			return ValidationErrorf("%s event %d out of range [0, %d]", name, ev, p.Events)
		}
		return nil
	}
	if err := checkEvent("cond", p.CondEvent); err != nil {
		return err
	}
	for _, group := range []struct {
		name   string
		events []int
	}{
		{"loop", p.LoopEvent},
		{"cascade", p.CascadeEvent},
		{"cascade control", p.CascadeCtlEvent},
	} {
		for _, ev := range group.events {
			if err := checkEvent(group.name, ev); err != nil {
				return err
			}
		}
	}
	if p.RunModule < 0 || p.RunIO < 0 {
		return ValidationErrorf("run module/io must not be negative")
	}
	if len(p.LoopNames) > len(p.LoopMap()) {
		return ValidationErrorf("%d loop names for %d loops", len(p.LoopNames), len(p.LoopMap()))
	}

	return nil
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	c := p
	c.Limits = append([]int(nil), p.Limits...)
	c.LoopEvent = append([]int(nil), p.LoopEvent...)
	c.CascadeEvent = append([]int(nil), p.CascadeEvent...)
	c.CascadeCtlEvent = append([]int(nil), p.CascadeCtlEvent...)
	c.LoopNames = append([]string(nil), p.LoopNames...)
	c.Waits = append([]string(nil), p.Waits...)

	return c
}

// LoopMap lists every loop of the profile, cascades first.
func (p *Profile) LoopMap() []LoopRef {
	refs := make([]LoopRef, 0, p.Cascades+p.Loops)
	for i := 1; i <= p.Cascades; i++ {
		refs = append(refs, LoopRef{Type: LoopCascade, Number: i})
	}
	for i := 1; i <= p.Loops; i++ {
		refs = append(refs, LoopRef{Type: LoopStandard, Number: i})
	}

	return refs
}

// LoopName returns the configured name of a loop, or a generated one.
func (p *Profile) LoopName(ref LoopRef) string {
	for i, r := range p.LoopMap() {
		if r == ref && i < len(p.LoopNames) && p.LoopNames[i] != "" {
			return p.LoopNames[i]
		}
	}
	if ref.Type == LoopCascade {
		return fmt.Sprintf("Cascade %d", ref.Number)
	}

	return fmt.Sprintf("Loop %d", ref.Number)
}

// ResolveName maps a loop name to its address. Matching ignores case.
func (p *Profile) ResolveName(name string) (LoopRef, error) {
	for _, ref := range p.LoopMap() {
		if strings.EqualFold(p.LoopName(ref), strings.TrimSpace(name)) {
			return ref, nil
		}
	}

	return LoopRef{}, CapabilityErrorf("no loop named %q", name)
}

// CheckLoop fails with ErrCapability when the profile has no such loop.
func (p *Profile) CheckLoop(ref LoopRef) error {
	count := p.Loops
	switch ref.Type {
	case LoopStandard:
	case LoopCascade:
		count = p.Cascades
	default:
		return ValidationErrorf("unknown loop type %q", ref.Type)
	}
	if ref.Number < 1 || ref.Number > count {
		return CapabilityErrorf("%s out of range [1, %d]", ref, count)
	}

	return nil
}

// CheckEvent fails with ErrCapability when the profile has no such event.
func (p *Profile) CheckEvent(n int) error {
	if n < 1 || n > p.Events {
		return CapabilityErrorf("event %d out of range [1, %d]", n, p.Events)
	}

	return nil
}

// EventFor returns the event gating a loop, or 0.
func (p *Profile) EventFor(ref LoopRef) int {
	events := p.LoopEvent
	if ref.Type == LoopCascade {
		events = p.CascadeEvent
	}

	return at(events, ref.Number-1)
}

// CascadeCtlEventFor returns the event enabling cascade control, or 0.
func (p *Profile) CascadeCtlEventFor(n int) int {
	return at(p.CascadeCtlEvent, n-1)
}

func at(list []int, i int) int {
	if i < 0 || i >= len(list) {
		return 0
	}

	return list[i]
}
