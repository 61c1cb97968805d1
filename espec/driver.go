package espec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-chamber/ascii"
	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/regmap"
)

// Profile bounds of the command set.
const (
	maxEvents = 12
	maxAlarms = 27
)

// AlarmCodes lists the alarm codes the controller can report.
var AlarmCodes = []int{
	0, 1, 2, 3, 6, 7, 8, 9, 10, 11, 12, 18, 19, 21, 22, 23, 26,
	30, 31, 40, 41, 43, 46, 48, 50, 51, 99,
}

// DefaultProfile returns the profile of a temperature and humidity chamber
// with programs and all twelve time signals.
func DefaultProfile() chamber.Profile {
	return chamber.Profile{
		Loops:    2,
		Alarms:   maxAlarms,
		Profiles: true,
		Events:   maxEvents,
	}
}

type cachedReply struct {
	at    time.Time
	reply string
}

// Driver implements chamber.Driver for the P300 and SCP-220.
type Driver struct {
	client  *ascii.Client
	model   *model
	profile chamber.Profile
	cmds    *regmap.Table[string]
	cache   *xsync.MapOf[string, cachedReply]
	cfg     *driverConfig
	logger  logger.Logger
}

var (
	_ chamber.Driver       = (*Driver)(nil)
	_ chamber.RawDriver    = (*Driver)(nil)
	_ chamber.RefrigDriver = (*Driver)(nil)
)

// NewP300 creates a driver for a P300. Zero event and alarm counts select the
// controller's twelve time signals and 27 alarm codes.
func NewP300(client *ascii.Client, profile chamber.Profile, opts ...Option) (*Driver, error) {
	return newDriver(client, p300, profile, opts)
}

// NewSCP220 creates a driver for an SCP-220.
func NewSCP220(client *ascii.Client, profile chamber.Profile, opts ...Option) (*Driver, error) {
	return newDriver(client, scp220, profile, opts)
}

// New creates a driver for the given family.
func New(family chamber.Family, client *ascii.Client, profile chamber.Profile, opts ...Option) (*Driver, error) {
	switch family {
	case chamber.FamilyEspecP300:
		return NewP300(client, profile, opts...)
	case chamber.FamilyEspecSCP220:
		return NewSCP220(client, profile, opts...)
	}

	return nil, chamber.ValidationErrorf("%s is not an ASCII controller", family)
}

func newDriver(client *ascii.Client, m *model, profile chamber.Profile, opts []Option) (*Driver, error) {
	if client == nil {
		return nil, errors.New("espec: ascii client is nil")
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
	if p.Alarms == 0 {
		p.Alarms = maxAlarms
	}
	if err := checkProfile(&p); err != nil {
		return nil, fmt.Errorf("espec: %w", err)
	}

	return &Driver{
		client:  client,
		model:   m,
		profile: p,
		cmds:    commandTable(m, &p),
		cache:   xsync.NewMapOf[string, cachedReply](),
		cfg:     cfg,
		logger:  cfg.logger.With("controller", string(m.family)),
	}, nil
}

func checkProfile(p *chamber.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Cascades > 1 {
		return chamber.CapabilityErrorf("%d cascades, only temperature can be a cascade", p.Cascades)
	}
	if n := len(p.LoopMap()); n < 1 || n > 2 {
		return chamber.CapabilityErrorf("%d loops and cascades, the controller has temperature and humidity only", n)
	}
	if p.Events > maxEvents {
		return chamber.CapabilityErrorf("%d events, the controller has %d time signals", p.Events, maxEvents)
	}
	if p.CondEvent != 0 {
		return chamber.CapabilityErrorf("the controller has no run condition event")
	}

	return nil
}

// Family returns chamber.FamilyEspecP300 or chamber.FamilyEspecSCP220.
func (d *Driver) Family() chamber.Family { return d.model.family }

// Profile returns the capability profile.
func (d *Driver) Profile() chamber.Profile { return d.profile.Clone() }

// ProgramLimits returns the program bounds of the firmware.
func (d *Driver) ProgramLimits() chamber.Limits { return d.model.limits }

// query sends a read command, reusing a reply younger than the freshness
// window.
func (d *Driver) query(ctx context.Context, cmd string) (string, error) {
	if d.cfg.freshness > 0 {
		if c, ok := d.cache.Load(cmd); ok && d.cfg.now().Sub(c.at) < d.cfg.freshness {
			return c.reply, nil
		}
	}
	reply, err := d.client.Interact(ctx, cmd)
	if err != nil {
		return "", err
	}
	if d.cfg.freshness > 0 {
		d.cache.Store(cmd, cachedReply{at: d.cfg.now(), reply: reply})
	}

	return reply, nil
}

// lookup resolves a command of the table and queries it.
func (d *Driver) lookup(ctx context.Context, p regmap.Param, index int) (string, string, error) {
	cmd, err := d.cmds.Resolve(p, index)
	if err != nil {
		return "", "", err
	}
	reply, err := d.query(ctx, cmd)

	return cmd, reply, err
}

// command sends a write command and drops every cached reply.
func (d *Driver) command(ctx context.Context, cmd string) error {
	d.cache.Clear()
	_, err := d.client.Interact(ctx, cmd)
	d.logger.Debug("command sent", "command", cmd)

	return err
}

// Raw sends cmd as is. A rejection is returned as the "NA:" reply text rather
// than an error.
func (d *Driver) Raw(ctx context.Context, cmd string) (string, error) {
	d.cache.Clear()
	reply, err := d.client.Interact(ctx, cmd)
	var derr *ascii.DeviceError
	if errors.As(err, &derr) {
		return "NA:" + derr.Code, nil
	}

	return reply, err
}

// GetDatetime reads the controller clock.
func (d *Driver) GetDatetime(ctx context.Context) (time.Time, error) {
	tr, err := d.client.Interact(ctx, cmdTime)
	if err != nil {
		return time.Time{}, err
	}
	dr, err := d.client.Interact(ctx, cmdDate)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, second, err := convert.ParseASCIITime(tr)
	if err != nil {
		return time.Time{}, fmt.Errorf("espec: %w", err)
	}
	// The date may be followed by the day of week.
	tok, _, _ := strings.Cut(strings.TrimSpace(dr), " ")
	year, month, day, err := convert.ParseASCIIDate(strings.TrimSuffix(tok, "."))
	if err != nil {
		return time.Time{}, fmt.Errorf("espec: %w", err)
	}

	return time.Date(year, month, day, hour, minute, second, 0, time.Local), nil
}

// SetDatetime sets the controller clock, time first.
func (d *Driver) SetDatetime(ctx context.Context, t time.Time) error {
	if t.Year() < 2000 || t.Year() > 2099 {
		return chamber.ValidationErrorf("year %d out of range [2000, 2099]", t.Year())
	}
	if err := d.command(ctx, "TIME,"+convert.FormatASCIITime(t)); err != nil {
		return err
	}

	return d.command(ctx, "DATE,"+convert.FormatASCIIDate(t))
}

// Identify reports the controller model and options, for example
// "P300 W/PTCON W/Humidity", and the profile they imply.
func (d *Driver) Identify(ctx context.Context) (string, chamber.Profile, error) {
	rom, err := d.client.Interact(ctx, cmdROM)
	if err != nil {
		return "", chamber.Profile{}, err
	}
	parts := []string{"SCP-220"}
	if strings.HasPrefix(rom, "P3") {
		parts[0] = "P300"
	}

	p := DefaultProfile()
	p.Loops = 0
	ok, err := d.probe(ctx, cmdTempPTC)
	if err != nil {
		return "", chamber.Profile{}, err
	}
	if ok {
		p.Cascades = 1
		parts = append(parts, "W/PTCON")
	} else {
		p.Loops++
	}
	if ok, err = d.probe(ctx, "HUMI?"); err != nil {
		return "", chamber.Profile{}, err
	}
	if ok {
		p.Loops++
		parts = append(parts, "W/Humidity")
	}

	return strings.Join(parts, " "), p, nil
}

// probe reports whether the controller accepts a query.
func (d *Driver) probe(ctx context.Context, cmd string) (bool, error) {
	_, err := d.client.Interact(ctx, cmd)
	if errors.Is(err, chamber.ErrDeviceRejected) {
		d.logger.Debug("option not present", "command", cmd, "error", err)
		return false, nil
	}

	return err == nil, err
}
