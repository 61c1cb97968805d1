package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/go-chamber/ascii"
	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/espec"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/transport"
	"github.com/arloliu/go-chamber/watlowf4"
	"github.com/arloliu/go-chamber/watlowf4t"
)

type buildConfig struct {
	link        transport.Link
	logger      logger.Logger
	sessionOpts []transport.Option
}

// Option configures Build.
type Option interface {
	apply(*buildConfig) error
}

type optFunc func(*buildConfig) error

func (f optFunc) apply(c *buildConfig) error { return f(c) }

// WithLink replaces the serial or TCP link the configuration describes.
func WithLink(l transport.Link) Option {
	return optFunc(func(c *buildConfig) error {
		if l == nil {
			return errors.New("config: link is nil")
		}
		c.link = l

		return nil
	})
}

// WithLogger sets the logger of every built component. The default is a
// slog logger at the configured log level.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *buildConfig) error {
		if l == nil {
			return errors.New("config: logger is nil")
		}
		c.logger = l

		return nil
	})
}

// WithSessionOptions appends transport options after the ones derived from
// the configuration.
func WithSessionOptions(opts ...transport.Option) Option {
	return optFunc(func(c *buildConfig) error {
		c.sessionOpts = append(c.sessionOpts, opts...)
		return nil
	})
}

// Instance is a built chamber together with its driver and session.
type Instance struct {
	*chamber.Chamber

	Driver  chamber.Driver
	Session *transport.Session
}

// Build validates cfg and wires link, session, codec, variant driver and
// chamber. Nothing is opened until the first request.
func Build(cfg *Config, opts ...Option) (*Instance, error) {
	if cfg == nil {
		return nil, errors.New("config: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bc := &buildConfig{}
	for _, opt := range opts {
		if err := opt.apply(bc); err != nil {
			return nil, err
		}
	}
	if bc.logger == nil {
		bc.logger = logger.NewSlog(cfg.Level(), false)
	}

	link := bc.link
	if link == nil {
		var err error
		if link, err = newLink(cfg); err != nil {
			return nil, err
		}
	}

	sessOpts := []transport.Option{transport.WithLogger(bc.logger)}
	if cfg.Timeout > 0 {
		sessOpts = append(sessOpts, transport.WithTimeout(cfg.Timeout))
	}
	if cfg.SettleDelay > 0 {
		sessOpts = append(sessOpts, transport.WithSettleDelay(cfg.SettleDelay))
	}
	sess, err := transport.NewSession(link, append(sessOpts, bc.sessionOpts...)...)
	if err != nil {
		return nil, err
	}

	drv, err := newDriver(cfg, sess, bc.logger)
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	c, err := chamber.New(drv, sess,
		chamber.WithLogger(bc.logger),
		chamber.WithVerifyPrograms(cfg.VerifyPrograms),
	)
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	bc.logger.Debug("chamber built", "controller", cfg.Controller, "link", link.String(), "session", sess.ID())

	return &Instance{Chamber: c, Driver: drv, Session: sess}, nil
}

func newLink(cfg *Config) (transport.Link, error) {
	if cfg.Interface == InterfaceTCP {
		return transport.NewTCPLink(cfg.Host, cfg.TCPPort(), cfg.Timeout)
	}

	return transport.NewSerialLink(cfg.SerialPort, transport.SerialMode{BaudRate: cfg.BaudRate})
}

func newDriver(cfg *Config, sess *transport.Session, l logger.Logger) (chamber.Driver, error) {
	f := cfg.Family()
	switch f {
	case chamber.FamilyWatlowF4T, chamber.FamilyWatlowF4:
		client, err := newModbusClient(cfg, sess, l)
		if err != nil {
			return nil, err
		}
		if f == chamber.FamilyWatlowF4T {
			return watlowf4t.New(client, cfg.Profile, watlowf4t.WithLogger(l))
		}
		regs, err := watlowf4.LoadMap(cfg.RegisterMap)
		if err != nil {
			return nil, err
		}

		return watlowf4.New(client, regs, cfg.Profile, watlowf4.WithLogger(l))

	case chamber.FamilyEspecP300, chamber.FamilyEspecSCP220:
		// The network adapter answers without an address prefix.
		adr := cfg.Adr
		if cfg.Interface == InterfaceTCP {
			adr = 0
		}
		client, err := ascii.NewClient(sess,
			ascii.WithAddress(adr),
			ascii.WithRetryLimit(cfg.Retries),
			ascii.WithLogger(l),
		)
		if err != nil {
			return nil, err
		}

		return espec.New(f, client, cfg.Profile,
			espec.WithFreshness(cfg.Freshness),
			espec.WithLogger(l),
		)
	}

	return nil, fmt.Errorf("config: %w", chamber.ValidationErrorf("unsupported controller %q", f))
}

func newModbusClient(cfg *Config, sess *transport.Session, l logger.Logger) (*modbus.Client, error) {
	framing := modbus.RTU
	if cfg.Interface == InterfaceTCP {
		framing = modbus.TCP
	}

	return modbus.NewClient(sess,
		modbus.WithFraming(framing),
		modbus.WithUnitID(cfg.Adr),
		modbus.WithRetryLimit(cfg.Retries),
		modbus.WithLogger(l),
	)
}

// Identify asks the controller for its model. Drivers that can derive a
// capability profile from the answer return it too; the others return the
// configured profile.
func (i *Instance) Identify(ctx context.Context) (string, chamber.Profile, error) {
	var (
		model string
		prof  = i.Profile()
	)
	err := i.Session.Do(ctx, func(ctx context.Context) error {
		var err error
		switch d := i.Driver.(type) {
		case interface {
			Identify(ctx context.Context) (string, chamber.Profile, error)
		}:
			model, prof, err = d.Identify(ctx)
		case interface {
			Identify(ctx context.Context) (string, error)
		}:
			model, err = d.Identify(ctx)
		default:
			err = chamber.ErrUnsupported
		}

		return err
	})

	return model, prof, err
}
