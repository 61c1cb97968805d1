package chamber

import (
	"context"
	"time"
)

// Session serializes access to the physical link. Do holds an exclusive lease
// for the duration of fn; requests issued through the ctx passed to fn reuse it.
type Session interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	Close() error
}

// LoopDriver reads and writes individual loop fields. The Chamber has already
// checked the loop address and field against the profile.
type LoopDriver interface {
	// ReadLoopField stores the value of field into dst.
	ReadLoopField(ctx context.Context, ref LoopRef, field Field, dst *Loop) error
	// WriteLoopField writes the value of field held by s.
	WriteLoopField(ctx context.Context, ref LoopRef, field Field, s *LoopSettings) error
}

// EventDriver reads and writes digital events.
type EventDriver interface {
	GetEvent(ctx context.Context, n int) (Event, error)
	SetEvent(ctx context.Context, n int, on bool) error
}

// ClockDriver reads and writes the controller clock.
type ClockDriver interface {
	GetDatetime(ctx context.Context) (time.Time, error)
	SetDatetime(ctx context.Context, t time.Time) error
}

// OperationDriver reports and changes the run mode.
type OperationDriver interface {
	// Status returns the verbose status string, for example "Program Running".
	Status(ctx context.Context) (string, error)
	// Alarms returns the indices of active alarms.
	Alarms(ctx context.Context) ([]int, error)
	ConstantStart(ctx context.Context) error
	Stop(ctx context.Context) error
	ProgramStart(ctx context.Context, number, step int) error
	ProgramPause(ctx context.Context) error
	ProgramResume(ctx context.Context) error
	ProgramAdvance(ctx context.Context) error
	// ProgramStatus describes the running program. cached, when not nil, is the
	// running program's definition and saves reading it from the device.
	ProgramStatus(ctx context.Context, cached *Program) (*ProgramStatus, error)
}

// ProgramDriver manages stored programs. Numbers have been checked against
// ProgramLimits and programs validated before these are called.
type ProgramDriver interface {
	ProgramLimits() Limits
	GetProgram(ctx context.Context, n int) (*Program, error)
	SetProgram(ctx context.Context, n int, p *Program) error
	DeleteProgram(ctx context.Context, n int) error
	ProgramList(ctx context.Context) ([]ProgramSummary, error)
	ProgramDetails(ctx context.Context, n int) (ProgramSummary, error)
}

// Driver is implemented by every controller variant.
type Driver interface {
	Family() Family
	Profile() Profile

	LoopDriver
	EventDriver
	ClockDriver
	OperationDriver
	ProgramDriver
}

// RefrigDriver is implemented by variants with refrigeration control.
type RefrigDriver interface {
	GetRefrig(ctx context.Context) (Refrig, error)
	SetRefrig(ctx context.Context, r Refrig) error
}

// RawDriver is implemented by variants that accept raw requests for diagnostics.
type RawDriver interface {
	Raw(ctx context.Context, request string) (string, error)
}
