package watlowf4t

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/internal/util"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/regmap"
)

// Limits are the program bounds of the F4T.
var Limits = chamber.Limits{Programs: 40, WritablePrograms: 40, MaxSteps: 256, MaxNameLength: nameLength}

// DefaultProfile returns the profile of a single loop F4T with the run
// condition on the first front panel key.
func DefaultProfile() chamber.Profile {
	return chamber.Profile{
		Loops:     1,
		Alarms:    6,
		Events:    maxEvents,
		CondEvent: 9,
		RunModule: 1,
		RunIO:     1,
		Limits:    []int{5},
		Waits:     []string{"", "", "", ""},
	}
}

// Driver implements chamber.Driver for the Watlow F4T.
type Driver struct {
	client  *modbus.Client
	profile chamber.Profile
	regs    *regmap.Table[regmap.Register]
	cfg     *driverConfig
	logger  logger.Logger
}

var _ chamber.Driver = (*Driver)(nil)
var _ chamber.RawDriver = (*Driver)(nil)

// New creates a driver for a controller with the given profile. A zero event
// count selects all twelve events.
func New(client *modbus.Client, profile chamber.Profile, opts ...Option) (*Driver, error) {
	if client == nil {
		return nil, errors.New("watlowf4t: modbus client is nil")
	}
	cfg := defaultDriverConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	p := profile.Clone()
	if p.Events == 0 {
		p.Events = maxEvents
	}
	if len(p.Waits) > maxWaits {
		return nil, fmt.Errorf("watlowf4t: %w", chamber.CapabilityErrorf("%d wait inputs, the controller has %d", len(p.Waits), maxWaits))
	}
	p.Waits = util.Pad(p.Waits, maxWaits, "")
	if err := checkProfile(&p); err != nil {
		return nil, fmt.Errorf("watlowf4t: %w", err)
	}

	return &Driver{
		client:  client,
		profile: p,
		regs:    newRegisterMap(&p, client.Framing()),
		cfg:     cfg,
		logger:  cfg.logger.With("controller", string(chamber.FamilyWatlowF4T)),
	}, nil
}

func checkProfile(p *chamber.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if n := len(p.LoopMap()); n > maxChannels {
		return chamber.CapabilityErrorf("%d loops and cascades, the controller has %d", n, maxChannels)
	}
	if p.Events > maxEvents {
		return chamber.CapabilityErrorf("%d events, the controller has %d", p.Events, maxEvents)
	}
	if !util.InRange(p.RunModule, 0, maxModules) || !util.InRange(p.RunIO, 0, maxIO) {
		return chamber.ValidationErrorf("run module %d io %d out of range", p.RunModule, p.RunIO)
	}
	for _, m := range p.Limits {
		if !util.InRange(m, 1, maxModules) {
			return chamber.ValidationErrorf("limit module %d out of range [1, %d]", m, maxModules)
		}
	}

	return nil
}

// Family returns chamber.FamilyWatlowF4T.
func (d *Driver) Family() chamber.Family { return chamber.FamilyWatlowF4T }

// Profile returns the capability profile.
func (d *Driver) Profile() chamber.Profile { return d.profile.Clone() }

// ProgramLimits returns Limits.
func (d *Driver) ProgramLimits() chamber.Limits { return Limits }

func (d *Driver) resolve(p regmap.Param, index int) (regmap.Register, error) {
	return d.regs.Resolve(p, index)
}

func (d *Driver) readWord(ctx context.Context, p regmap.Param, index int) (uint16, error) {
	r, err := d.resolve(p, index)
	if err != nil {
		return 0, err
	}

	return d.client.ReadWord(ctx, r)
}

func (d *Driver) writeWord(ctx context.Context, p regmap.Param, index int, v uint16) error {
	r, err := d.resolve(p, index)
	if err != nil {
		return err
	}

	return d.client.WriteHolding(ctx, r.Address, v)
}

func (d *Driver) readFloat(ctx context.Context, p regmap.Param, index int) (float64, error) {
	r, err := d.resolve(p, index)
	if err != nil {
		return 0, err
	}

	return d.client.ReadValue(ctx, r)
}

func (d *Driver) writeFloat(ctx context.Context, p regmap.Param, index int, v float64) error {
	r, err := d.resolve(p, index)
	if err != nil {
		return err
	}

	return d.client.WriteValue(ctx, r, v)
}

// readBlock reads the Count registers of a multi-register entry.
func (d *Driver) readBlock(ctx context.Context, p regmap.Param, index int) ([]uint16, error) {
	r, err := d.resolve(p, index)
	if err != nil {
		return nil, err
	}

	return d.client.ReadHolding(ctx, r.Address, max(r.Count, 1))
}

// Raw sends a hex encoded request PDU, for example "03 0ADE 0002", and returns
// the hex encoded reply PDU.
func (d *Driver) Raw(ctx context.Context, request string) (string, error) {
	pdu, err := hex.DecodeString(strings.Join(strings.Fields(request), ""))
	if err != nil {
		return "", chamber.ValidationErrorf("raw request %q is not hex: %v", request, err)
	}
	reply, err := d.client.Raw(ctx, pdu)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(reply), nil
}

// GetDatetime reads the controller clock.
func (d *Driver) GetDatetime(ctx context.Context) (time.Time, error) {
	r, err := d.resolve(regmap.Clock, 0)
	if err != nil {
		return time.Time{}, err
	}
	regs, err := d.client.ReadHolding(ctx, r.Address, convert.ClockRegisterCount(clockStride))
	if err != nil {
		return time.Time{}, err
	}

	return convert.DecodeClockRegisters(regs, clockStride)
}

// SetDatetime sets the controller clock. Each field is written on its own so
// the unused odd registers are left alone.
func (d *Driver) SetDatetime(ctx context.Context, t time.Time) error {
	r, err := d.resolve(regmap.Clock, 0)
	if err != nil {
		return err
	}
	regs := convert.EncodeClockRegisters(t, clockStride)
	for i := 0; i < len(regs); i += clockStride {
		if err := d.client.WriteHolding(ctx, r.Address+uint16(i), regs[i]); err != nil { //nolint:gosec
			return err
		}
	}

	return nil
}
