package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-chamber/logger"
)

// Default session values.
const (
	DefaultTimeout        = 3 * time.Second
	DefaultConnectTimeout = 3 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultSettleDelay    = 0
)

// Session value limits.
const (
	MinTimeout = 10 * time.Millisecond
	MaxTimeout = 60 * time.Second

	MinPollInterval = time.Millisecond
	MaxPollInterval = time.Second

	MaxSettleDelay = 5 * time.Second
)

// sessionConfig holds the configuration of a Session.
type sessionConfig struct {
	timeout      time.Duration
	pollInterval time.Duration
	// settleDelay is the quiet time inserted between a reply and the next
	// request, required by some RS-485 adapters.
	settleDelay time.Duration
	logger      logger.Logger
}

func defaultSessionConfig() *sessionConfig {
	return &sessionConfig{
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		settleDelay:  DefaultSettleDelay,
		logger:       logger.GetLogger(),
	}
}

// Option is a functional option for configuring a Session.
type Option interface {
	apply(*sessionConfig) error
}

type optFunc func(*sessionConfig) error

func (f optFunc) apply(cfg *sessionConfig) error { return f(cfg) }

// WithTimeout sets the per-request reply timeout.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(cfg *sessionConfig) error {
		if d < MinTimeout || d > MaxTimeout {
			return fmt.Errorf("transport: timeout %v out of range [%v, %v]", d, MinTimeout, MaxTimeout)
		}
		cfg.timeout = d

		return nil
	})
}

// WithPollInterval sets how often a pending read checks for context cancellation.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *sessionConfig) error {
		if d < MinPollInterval || d > MaxPollInterval {
			return fmt.Errorf("transport: poll interval %v out of range [%v, %v]", d, MinPollInterval, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithSettleDelay sets the quiet time between a reply and the next request.
func WithSettleDelay(d time.Duration) Option {
	return optFunc(func(cfg *sessionConfig) error {
		if d < 0 || d > MaxSettleDelay {
			return fmt.Errorf("transport: settle delay %v out of range [0, %v]", d, MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *sessionConfig) error {
		if l == nil {
			return errors.New("transport: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
