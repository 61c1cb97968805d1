package watlowf4

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/internal/util"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/regmap"
)

// Limits are the program bounds of the F4.
var Limits = chamber.Limits{Programs: 40, WritablePrograms: 40, MaxSteps: 256, MaxNameLength: nameLength}

// DefaultProfile returns the profile of a single loop F4 with programs and
// no limit inputs.
func DefaultProfile() chamber.Profile {
	return chamber.Profile{
		Loops:    1,
		Events:   maxEvents,
		Profiles: true,
	}
}

// Driver implements chamber.Driver for the Watlow F4.
type Driver struct {
	client  *modbus.Client
	profile chamber.Profile
	regs    *regmap.Table[regmap.Register]
	// decimals caches the decimal places of each channel input.
	decimals *xsync.MapOf[int, int]
	cfg      *driverConfig
	logger   logger.Logger
}

var _ chamber.Driver = (*Driver)(nil)
var _ chamber.RawDriver = (*Driver)(nil)

// New creates a driver for a controller with the given profile. Every register
// the profile depends on must be present in regs. A zero event count selects
// all eight events.
func New(client *modbus.Client, regs *regmap.Table[regmap.Register], profile chamber.Profile, opts ...Option) (*Driver, error) {
	if client == nil {
		return nil, errors.New("watlowf4: modbus client is nil")
	}
	if regs == nil {
		return nil, errors.New("watlowf4: register map is nil")
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
	if err := checkProfile(&p); err != nil {
		return nil, fmt.Errorf("watlowf4: %w", err)
	}
	if err := regs.Require(requiredKeys(&p)...); err != nil {
		return nil, fmt.Errorf("watlowf4: %w", err)
	}

	return &Driver{
		client:   client,
		profile:  p,
		regs:     regs,
		decimals: xsync.NewMapOf[int, int](),
		cfg:      cfg,
		logger:   cfg.logger.With("controller", string(chamber.FamilyWatlowF4)),
	}, nil
}

func checkProfile(p *chamber.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Cascades > 1 {
		return chamber.CapabilityErrorf("%d cascades, the controller has at most 1", p.Cascades)
	}
	if n := len(p.LoopMap()); n > maxChannels {
		return chamber.CapabilityErrorf("%d loops and cascades, the controller has %d", n, maxChannels)
	}
	if p.Events > maxEvents {
		return chamber.CapabilityErrorf("%d events, the controller has %d", p.Events, maxEvents)
	}
	for _, m := range p.Limits {
		if !util.InRange(m, 1, maxInputs) {
			return chamber.ValidationErrorf("limit input %d out of range [1, %d]", m, maxInputs)
		}
	}

	return nil
}

// Family returns chamber.FamilyWatlowF4.
func (d *Driver) Family() chamber.Family { return chamber.FamilyWatlowF4 }

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

// writeWords writes one value per register, in a single request when the
// registers are contiguous.
func (d *Driver) writeWords(ctx context.Context, regs []regmap.Register, values ...uint16) error {
	contiguous := true
	for i := 1; i < len(regs); i++ {
		if regs[i].Address != regs[i-1].Address+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return d.client.WriteHolding(ctx, regs[0].Address, values...)
	}
	for i, r := range regs {
		if err := d.client.WriteHolding(ctx, r.Address, values[i]); err != nil {
			return err
		}
	}

	return nil
}

// writeParams is writeWords for index 0 parameters.
func (d *Driver) writeParams(ctx context.Context, params []regmap.Param, values ...uint16) error {
	regs := make([]regmap.Register, len(params))
	for i, p := range params {
		r, err := d.resolve(p, 0)
		if err != nil {
			return err
		}
		regs[i] = r
	}

	return d.writeWords(ctx, regs, values...)
}

// channelDecimals returns the decimal places of a channel input. ok is false
// when the map has no decimals register for the channel.
func (d *Driver) channelDecimals(ctx context.Context, ch int) (int, bool, error) {
	if !d.regs.Has(regmap.LoopDecimals, ch) {
		return 0, false, nil
	}
	if dec, ok := d.decimals.Load(ch); ok {
		return dec, true, nil
	}
	word, err := d.readWord(ctx, regmap.LoopDecimals, ch)
	if err != nil {
		return 0, false, err
	}
	if word > 6 {
		return 0, false, fmt.Errorf("watlowf4: channel %d decimals %d: %w", ch, word, convert.ErrDecode)
	}
	dec := int(word)
	d.decimals.Store(ch, dec)

	return dec, true, nil
}

// scaled resolves p and applies the decimal places of channel ch.
func (d *Driver) scaled(ctx context.Context, p regmap.Param, index, ch int) (regmap.Register, error) {
	r, err := d.resolve(p, index)
	if err != nil {
		return r, err
	}
	dec, ok, err := d.channelDecimals(ctx, ch)
	if err != nil {
		return r, err
	}
	if ok {
		r.Resolution = dec
	}

	return r, nil
}

func (d *Driver) readScaled(ctx context.Context, p regmap.Param, index, ch int) (float64, error) {
	r, err := d.scaled(ctx, p, index, ch)
	if err != nil {
		return 0, err
	}

	return d.client.ReadValue(ctx, r)
}

func (d *Driver) writeScaled(ctx context.Context, p regmap.Param, index, ch int, v float64) error {
	r, err := d.scaled(ctx, p, index, ch)
	if err != nil {
		return err
	}

	return d.client.WriteValue(ctx, r, v)
}

// Raw sends a hex encoded request PDU, for example "03 012C 0001", and returns
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
	regs, err := d.client.ReadHolding(ctx, r.Address, convert.ClockRegisterCount(1))
	if err != nil {
		return time.Time{}, err
	}

	return convert.DecodeClockRegisters(regs, 1)
}

// SetDatetime sets the controller clock in one request.
func (d *Driver) SetDatetime(ctx context.Context, t time.Time) error {
	r, err := d.resolve(regmap.Clock, 0)
	if err != nil {
		return err
	}

	return d.client.WriteHolding(ctx, r.Address, convert.EncodeClockRegisters(t, 1)...)
}

// Identify reports the controller model: "Watlow F4" followed by S (single)
// or D (dual channel) and " W/Cascade" when cascade control is enabled. The
// second channel is probed by writing its setpoint back unchanged.
func (d *Driver) Identify(ctx context.Context) (string, error) {
	model := "Watlow F4S"
	if d.regs.Has(regmap.LoopSetpoint, 2) {
		r, err := d.resolve(regmap.LoopSetpoint, 2)
		if err != nil {
			return "", err
		}
		word, err := d.client.ReadWord(ctx, r)
		if err == nil {
			err = d.client.WriteHolding(ctx, r.Address, word)
		}
		var exc *modbus.ExceptionError
		switch {
		case err == nil:
			model = "Watlow F4D"
		case errors.As(err, &exc):
			d.logger.Debug("second channel absent", "reason", exc.Reason())
		default:
			return "", err
		}
	}
	if d.regs.Has(regmap.CascadeEnable, 1) {
		word, err := d.readWord(ctx, regmap.CascadeEnable, 1)
		if err != nil {
			return "", err
		}
		if word != 0 {
			model += " W/Cascade"
		}
	}

	return model, nil
}
