package chamber

import (
	"strings"
)

// Mode is the chamber run mode.
type Mode string

const (
	ModeOff          Mode = "off"
	ModeStandby      Mode = "standby"
	ModeConstant     Mode = "constant"
	ModeProgram      Mode = "program"
	ModeProgramPause Mode = "program_pause"
	ModeAlarm        Mode = "alarm"
	// ModeUnknown is reported when the status string is not recognized.
	ModeUnknown Mode = "ERROR"
)

// Idle reports whether the mode is off or standby.
func (m Mode) Idle() bool { return m == ModeOff || m == ModeStandby }

// Command is a requested run mode change.
type Command string

const (
	CmdOff            Command = "off"
	CmdStandby        Command = "standby"
	CmdConstant       Command = "constant"
	CmdProgram        Command = "program"
	CmdProgramPause   Command = "program_pause"
	CmdProgramResume  Command = "program_resume"
	CmdProgramAdvance Command = "program_advance"
)

// ParseCommand parses an operation command name.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CmdOff, CmdStandby, CmdConstant, CmdProgram, CmdProgramPause, CmdProgramResume, CmdProgramAdvance:
		return c, nil
	}

	return "", ValidationErrorf("unknown operation %q", s)
}

// ProgramRef selects a program and the step to start at.
type ProgramRef struct {
	Number int `json:"number" yaml:"number"`
	Step   int `json:"step" yaml:"step"`
}

// OperationRequest is the argument of SetOperation.
type OperationRequest struct {
	Mode    Command     `json:"mode" yaml:"mode"`
	Program *ProgramRef `json:"program,omitempty" yaml:"program,omitempty"`
}

// StartStep returns the requested step, defaulting to 1.
func (r OperationRequest) StartStep() int {
	if r.Program == nil || r.Program.Step < 1 {
		return 1
	}

	return r.Program.Step
}

// OperationStatus is the result of GetOperation.
type OperationStatus struct {
	Mode    Mode           `json:"mode" yaml:"mode"`
	Status  string         `json:"status" yaml:"status"`
	Program *ProgramStatus `json:"program,omitempty" yaml:"program,omitempty"`
	Alarms  []int          `json:"alarms" yaml:"alarms"`
}

// ModeFromStatus maps a controller status string to a run mode.
func ModeFromStatus(status string) Mode {
	switch {
	case strings.Contains(status, "Paused"):
		return ModeProgramPause
	case strings.HasPrefix(status, "Prog"):
		return ModeProgram
	case strings.HasPrefix(status, "Const"):
		return ModeConstant
	case strings.HasPrefix(status, "Stand"):
		return ModeStandby
	case strings.HasPrefix(status, "Off"):
		return ModeOff
	case strings.HasPrefix(status, "Alarm"):
		return ModeAlarm
	}

	return ModeUnknown
}

// transitions lists the allowed (current mode, command) pairs and the mode
// reached. A status the controller reports outside the known modes, such as
// an Espec remote run, can still be stopped.
var transitions = map[Mode]map[Command]Mode{
	ModeOff: {
		CmdConstant: ModeConstant,
		CmdProgram:  ModeProgram,
	},
	ModeStandby: {
		CmdConstant: ModeConstant,
		CmdProgram:  ModeProgram,
	},
	ModeConstant: {
		CmdOff:     ModeOff,
		CmdStandby: ModeStandby,
	},
	ModeProgram: {
		CmdProgramPause:   ModeProgramPause,
		CmdProgramAdvance: ModeProgram,
		CmdOff:            ModeOff,
		CmdStandby:        ModeStandby,
	},
	ModeProgramPause: {
		CmdProgramResume: ModeProgram,
		CmdOff:           ModeOff,
		CmdStandby:       ModeStandby,
	},
	ModeAlarm: {
		CmdOff:     ModeOff,
		CmdStandby: ModeStandby,
	},
	ModeUnknown: {
		CmdOff:     ModeOff,
		CmdStandby: ModeStandby,
	},
}

// Transition validates a run mode change and returns the mode it leads to.
// Program starts must carry a program reference; every other command must not.
func Transition(from Mode, req OperationRequest) (Mode, error) {
	to, ok := transitions[from][req.Mode]
	if !ok {
		return from, invalidTransition(from, req)
	}
	if (req.Mode == CmdProgram) != (req.Program != nil) {
		return from, invalidTransition(from, req)
	}
	if req.Program != nil && req.Program.Number < 1 {
		return from, invalidTransition(from, req)
	}

	return to, nil
}

func invalidTransition(from Mode, req OperationRequest) error {
	ctx := "without program"
	if req.Program != nil {
		ctx = "with program"
	}

	return &TransitionError{From: from, Command: req.Mode, Context: ctx}
}

// TransitionError describes a rejected run mode change.
type TransitionError struct {
	From    Mode
	Command Command
	Context string
}

func (e *TransitionError) Error() string {
	return "invalid state transition: " + string(e.Command) + " " + e.Context + " from " + string(e.From)
}

// Unwrap returns ErrInvalidTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// OperationModes lists the commands a chamber can honor. Register-mapped
// chambers without a condition event cannot be stopped into standby.
func OperationModes(f Family, p *Profile) []Command {
	modes := []Command{CmdConstant}
	switch {
	case f == FamilyEspecP300 || f == FamilyEspecSCP220:
		modes = append(modes, CmdStandby, CmdOff)
	case p.CondEvent != 0:
		modes = append(modes, CmdStandby)
	}
	if p.Profiles {
		modes = append(modes, CmdProgram, CmdProgramPause, CmdProgramResume, CmdProgramAdvance)
	}

	return modes
}
