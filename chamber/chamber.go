package chamber

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/arloliu/go-chamber/internal/util"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/transport"
)

// Chamber is the controller-agnostic façade over a variant Driver.
type Chamber struct {
	drv     Driver
	sess    Session
	profile Profile
	limits  Limits
	cfg     options
	logger  logger.Logger
}

type options struct {
	logger         logger.Logger
	verifyPrograms bool
}

// Option configures a Chamber.
type Option interface {
	apply(*options) error
}

type optFunc func(*options) error

func (f optFunc) apply(o *options) error { return f(o) }

// WithLogger sets the logger. The default is logger.GetLogger().
func WithLogger(l logger.Logger) Option {
	return optFunc(func(o *options) error {
		if l == nil {
			return errors.New("chamber: logger is nil")
		}
		o.logger = l

		return nil
	})
}

// WithVerifyPrograms enables reading every written program back and
// comparing it with what was written.
func WithVerifyPrograms(enable bool) Option {
	return optFunc(func(o *options) error {
		o.verifyPrograms = enable
		return nil
	})
}

// New creates a Chamber. The Chamber takes ownership of sess and closes it in Close.
func New(drv Driver, sess Session, opts ...Option) (*Chamber, error) {
	if drv == nil {
		return nil, ErrDriverNil
	}
	if sess == nil {
		return nil, ErrSessionNil
	}
	cfg := options{logger: logger.GetLogger()}
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}
	prof := drv.Profile()
	if err := prof.Validate(); err != nil {
		return nil, err
	}

	return &Chamber{
		drv:     drv,
		sess:    sess,
		profile: prof.Clone(),
		limits:  drv.ProgramLimits(),
		cfg:     cfg,
		logger:  cfg.logger.With("controller", string(drv.Family())),
	}, nil
}

// Family returns the controller family.
func (c *Chamber) Family() Family { return c.drv.Family() }

// Profile returns a copy of the capability profile.
func (c *Chamber) Profile() Profile { return c.profile.Clone() }

// ProgramLimits returns the program bounds of the controller model.
func (c *Chamber) ProgramLimits() Limits { return c.limits }

// OperationModes lists the operation commands this chamber supports.
func (c *Chamber) OperationModes() []Command { return OperationModes(c.drv.Family(), &c.profile) }

// Close releases the transport session.
func (c *Chamber) Close() error { return c.sess.Close() }

func (c *Chamber) lease(ctx context.Context, fn func(ctx context.Context) error) error {
	err := c.sess.Do(ctx, fn)
	if errors.Is(err, transport.ErrOpen) && !errors.Is(err, ErrCommunication) {
		return fmt.Errorf("%w: %w", ErrCommunication, err)
	}

	return err
}

// GetLoop reads a loop or cascade. With no fields every known field of the
// loop type is read and the first failure aborts the call. With an explicit
// field list each field is read independently; failures are returned as
// FieldErrors alongside the partially populated Loop.
func (c *Chamber) GetLoop(ctx context.Context, n int, typ LoopType, fields ...Field) (*Loop, error) {
	return c.getLoop(ctx, LoopRef{Type: typ, Number: n}, fields)
}

// GetLoopByName reads a loop addressed by its profile name.
func (c *Chamber) GetLoopByName(ctx context.Context, name string, fields ...Field) (*Loop, error) {
	ref, err := c.profile.ResolveName(name)
	if err != nil {
		return nil, err
	}

	return c.getLoop(ctx, ref, fields)
}

func (c *Chamber) checkFields(ref LoopRef, fields []Field) error {
	for _, f := range fields {
		if _, err := ParseField(string(f)); err != nil {
			return err
		}
		if f.IsCascadeOnly() && ref.Type != LoopCascade {
			return CapabilityErrorf("field %s only exists on cascades", f)
		}
	}

	return nil
}

func (c *Chamber) getLoop(ctx context.Context, ref LoopRef, fields []Field) (*Loop, error) {
	if err := c.profile.CheckLoop(ref); err != nil {
		return nil, err
	}
	if err := c.checkFields(ref, fields); err != nil {
		return nil, err
	}

	loop := &Loop{Type: ref.Type, Number: ref.Number, Name: c.profile.LoopName(ref)}
	var ferrs FieldErrors
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		ferrs, err = c.readLoop(ctx, loop, fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(ferrs) > 0 {
		return loop, ferrs
	}

	return loop, nil
}

// readLoop must be called with the lease held.
func (c *Chamber) readLoop(ctx context.Context, loop *Loop, fields []Field) (FieldErrors, error) {
	explicit := len(fields) > 0
	if !explicit {
		fields = DefaultFields(loop.Type)
	}
	var ferrs FieldErrors
	for _, f := range fields {
		err := c.drv.ReadLoopField(ctx, loop.Ref(), f, loop)
		switch {
		case err == nil:
		case explicit:
			ferrs = append(ferrs, &FieldError{Field: f, Err: err})
		case errors.Is(err, ErrUnsupported):
			c.logger.Debug("loop field not supported", "loop", loop.Ref().String(), "field", string(f))
		default:
			return nil, fmt.Errorf("chamber: read %s %s: %w", loop.Ref(), f, err)
		}
	}

	return ferrs, nil
}

// SetLoop writes loop fields. The mode is applied first; fields the variant
// cannot write are skipped.
func (c *Chamber) SetLoop(ctx context.Context, n int, typ LoopType, s *LoopSettings) error {
	return c.setLoop(ctx, LoopRef{Type: typ, Number: n}, s)
}

// SetLoopByName writes loop fields of a loop addressed by its profile name.
func (c *Chamber) SetLoopByName(ctx context.Context, name string, s *LoopSettings) error {
	ref, err := c.profile.ResolveName(name)
	if err != nil {
		return err
	}

	return c.setLoop(ctx, ref, s)
}

func (c *Chamber) setLoop(ctx context.Context, ref LoopRef, s *LoopSettings) error {
	if s == nil {
		return ValidationErrorf("loop settings are nil")
	}
	if err := c.profile.CheckLoop(ref); err != nil {
		return err
	}
	fields := s.Fields()
	if err := c.checkFields(ref, fields); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	return c.lease(ctx, func(ctx context.Context) error {
		for _, f := range fields {
			err := c.drv.WriteLoopField(ctx, ref, f, s)
			if errors.Is(err, ErrUnsupported) {
				c.logger.Warn("loop field not writable, skipped", "loop", ref.String(), "field", string(f))
				continue
			}
			if err != nil {
				return fmt.Errorf("chamber: write %s %s: %w", ref, f, err)
			}
		}
		return nil
	})
}

// GetEvent reads event n.
func (c *Chamber) GetEvent(ctx context.Context, n int) (Event, error) {
	if err := c.profile.CheckEvent(n); err != nil {
		return Event{}, err
	}
	var ev Event
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		ev, err = c.drv.GetEvent(ctx, n)
		return err
	})

	return ev, err
}

// SetEvent turns event n on or off.
func (c *Chamber) SetEvent(ctx context.Context, n int, on bool) error {
	if err := c.profile.CheckEvent(n); err != nil {
		return err
	}

	return c.lease(ctx, func(ctx context.Context) error {
		return c.drv.SetEvent(ctx, n, on)
	})
}

// GetDatetime reads the controller clock.
func (c *Chamber) GetDatetime(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		t, err = c.drv.GetDatetime(ctx)
		return err
	})

	return t, err
}

// SetDatetime sets the controller clock.
func (c *Chamber) SetDatetime(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		return ValidationErrorf("datetime is zero")
	}

	return c.lease(ctx, func(ctx context.Context) error {
		return c.drv.SetDatetime(ctx, t)
	})
}

// GetRefrig reads the refrigeration settings.
func (c *Chamber) GetRefrig(ctx context.Context) (Refrig, error) {
	rd, ok := c.drv.(RefrigDriver)
	if !ok {
		return Refrig{}, UnsupportedErrorf("%s has no refrigeration control", c.drv.Family())
	}
	var r Refrig
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		r, err = rd.GetRefrig(ctx)
		return err
	})

	return r, err
}

// SetRefrig writes the refrigeration settings.
func (c *Chamber) SetRefrig(ctx context.Context, r Refrig) error {
	rd, ok := c.drv.(RefrigDriver)
	if !ok {
		return UnsupportedErrorf("%s has no refrigeration control", c.drv.Family())
	}
	if err := r.Validate(); err != nil {
		return err
	}

	return c.lease(ctx, func(ctx context.Context) error {
		return rd.SetRefrig(ctx, r)
	})
}

// Raw sends a raw request for diagnostics and returns the raw reply.
func (c *Chamber) Raw(ctx context.Context, request string) (string, error) {
	rd, ok := c.drv.(RawDriver)
	if !ok {
		return "", UnsupportedErrorf("%s does not accept raw requests", c.drv.Family())
	}
	var reply string
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		reply, err = rd.Raw(ctx, request)
		return err
	})

	return reply, err
}

// GetOperation reports the run mode, the verbose status, active alarms and,
// while a program runs or is paused, the program status. cached may hold the
// running program's definition to save reading it back.
func (c *Chamber) GetOperation(ctx context.Context, cached *Program) (*OperationStatus, error) {
	var st *OperationStatus
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		st, err = c.operation(ctx, cached)
		return err
	})

	return st, err
}

func (c *Chamber) operation(ctx context.Context, cached *Program) (*OperationStatus, error) {
	status, err := c.drv.Status(ctx)
	if err != nil {
		return nil, err
	}
	st := &OperationStatus{Mode: ModeFromStatus(status), Status: status}
	alarms, err := c.drv.Alarms(ctx)
	if err != nil {
		return nil, err
	}
	st.Alarms = util.CloneSlice(alarms, 0)
	if st.Mode == ModeProgram || st.Mode == ModeProgramPause {
		if st.Program, err = c.drv.ProgramStatus(ctx, cached); err != nil {
			return nil, err
		}
	}

	return st, nil
}

// SetOperation changes the run mode. The current mode is read first and the
// request is rejected with ErrInvalidTransition unless Transition allows it.
func (c *Chamber) SetOperation(ctx context.Context, req OperationRequest) error {
	if req.Program != nil {
		if err := c.limits.CheckNumber(req.Program.Number, false); err != nil {
			return err
		}
		if req.Program.Step < 0 || (c.limits.MaxSteps > 0 && req.Program.Step > c.limits.MaxSteps) {
			return ValidationErrorf("program step %d out of range [1, %d]", req.Program.Step, c.limits.MaxSteps)
		}
	}
	if req.Mode == CmdProgram && !c.profile.Profiles {
		return CapabilityErrorf("chamber has no program support")
	}

	return c.lease(ctx, func(ctx context.Context) error {
		status, err := c.drv.Status(ctx)
		if err != nil {
			return err
		}
		from := ModeFromStatus(status)
		to, err := Transition(from, req)
		if err != nil {
			return err
		}

		switch req.Mode {
		case CmdOff, CmdStandby:
			err = c.drv.Stop(ctx)
		case CmdConstant:
			err = c.drv.ConstantStart(ctx)
		case CmdProgram:
			err = c.drv.ProgramStart(ctx, req.Program.Number, req.StartStep())
		case CmdProgramPause:
			err = c.drv.ProgramPause(ctx)
		case CmdProgramResume:
			err = c.drv.ProgramResume(ctx)
		case CmdProgramAdvance:
			err = c.drv.ProgramAdvance(ctx)
		}
		if err != nil {
			return fmt.Errorf("chamber: %s: %w", req.Mode, err)
		}
		c.logger.Info("operation changed", "from", string(from), "to", string(to), "command", string(req.Mode))

		return nil
	})
}

// GetProgram reads program n.
func (c *Chamber) GetProgram(ctx context.Context, n int) (*Program, error) {
	if err := c.checkPrograms(n, false); err != nil {
		return nil, err
	}
	var p *Program
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		p, err = c.drv.GetProgram(ctx, n)
		return err
	})

	return p, err
}

// SetProgram writes program n. A nil program deletes it. Writes are not
// atomic: an interrupted write leaves the program partially written.
func (c *Chamber) SetProgram(ctx context.Context, n int, p *Program) error {
	if err := c.checkPrograms(n, true); err != nil {
		return err
	}
	if p == nil {
		return c.lease(ctx, func(ctx context.Context) error {
			if err := c.drv.DeleteProgram(ctx, n); err != nil {
				return err
			}
			c.logger.Info("program deleted", "program", n)
			return nil
		})
	}
	if err := p.Validate(c.limits, &c.profile); err != nil {
		return err
	}

	return c.lease(ctx, func(ctx context.Context) error {
		if err := c.drv.SetProgram(ctx, n, p); err != nil {
			return err
		}
		c.logger.Info("program written", "program", n, "steps", len(p.Steps))
		if !c.cfg.verifyPrograms {
			return nil
		}
		got, err := c.drv.GetProgram(ctx, n)
		if err != nil {
			return fmt.Errorf("chamber: verify program %d: %w", n, err)
		}
		if diff := DiffPrograms(p, got); diff != "" {
			return CommunicationErrorf("program %d read back differs: %s", n, diff)
		}
		return nil
	})
}

// GetProgramList lists the stored programs.
func (c *Chamber) GetProgramList(ctx context.Context) ([]ProgramSummary, error) {
	if !c.profile.Profiles {
		return nil, CapabilityErrorf("chamber has no program support")
	}
	var list []ProgramSummary
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		list, err = c.drv.ProgramList(ctx)
		return err
	})

	return list, err
}

// GetProgramDetails returns the number, name and step count of program n.
func (c *Chamber) GetProgramDetails(ctx context.Context, n int) (ProgramSummary, error) {
	if err := c.checkPrograms(n, false); err != nil {
		return ProgramSummary{}, err
	}
	var sum ProgramSummary
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		sum, err = c.drv.ProgramDetails(ctx, n)
		return err
	})

	return sum, err
}

func (c *Chamber) checkPrograms(n int, write bool) error {
	if !c.profile.Profiles {
		return CapabilityErrorf("chamber has no program support")
	}

	return c.limits.CheckNumber(n, write)
}

// Sample reads the clock, the status and the default fields of every loop.
func (c *Chamber) Sample(ctx context.Context) (*Sample, error) {
	s := &Sample{}
	err := c.lease(ctx, func(ctx context.Context) error {
		var err error
		if s.Datetime, err = c.drv.GetDatetime(ctx); err != nil {
			return err
		}
		for _, ref := range c.profile.LoopMap() {
			loop := &Loop{Type: ref.Type, Number: ref.Number, Name: c.profile.LoopName(ref)}
			if _, err := c.readLoop(ctx, loop, nil); err != nil {
				return err
			}
			s.Loops = append(s.Loops, loop)
		}
		s.Status, err = c.drv.Status(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// DiffPrograms describes the first difference between a written and a read
// back program, or returns "" when they match. Values are compared at a
// resolution of 0.1.
func DiffPrograms(want, got *Program) string {
	if got == nil {
		return "program missing"
	}
	if want.Name != "" && want.Name != got.Name {
		return fmt.Sprintf("name %q != %q", got.Name, want.Name)
	}
	if len(want.Steps) != len(got.Steps) {
		return fmt.Sprintf("%d steps != %d", len(got.Steps), len(want.Steps))
	}
	for i := range want.Steps {
		w, g := &want.Steps[i], &got.Steps[i]
		if w.Type != "" && w.Type != g.Type {
			return fmt.Sprintf("step %d type %s != %s", i+1, g.Type, w.Type)
		}
		if w.Duration != g.Duration {
			return fmt.Sprintf("step %d duration %+v != %+v", i+1, g.Duration, w.Duration)
		}
		for j := range w.Loops {
			if j >= len(g.Loops) {
				return fmt.Sprintf("step %d loop %d missing", i+1, j+1)
			}
			if math.Abs(w.Loops[j].Target-g.Loops[j].Target) > 0.05 {
				return fmt.Sprintf("step %d loop %d target %v != %v", i+1, j+1, g.Loops[j].Target, w.Loops[j].Target)
			}
		}
	}

	return ""
}
