package modbus

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-chamber/logger"
)

// Framing selects the Modbus wire variant.
type Framing int

const (
	// RTU frames carry a unit address and a CRC16 trailer.
	RTU Framing = iota
	// TCP frames carry an MBAP header and no checksum.
	TCP
)

func (f Framing) String() string {
	switch f {
	case RTU:
		return "rtu"
	case TCP:
		return "tcp"
	default:
		return fmt.Sprintf("Framing(%d)", int(f))
	}
}

// Default client values.
const (
	DefaultUnitID     = 1
	DefaultRetryLimit = 3
)

// Client value limits.
const (
	MinUnitID     = 1
	MaxUnitID     = 247
	MaxRetryLimit = 10

	// MaxReadCount is the largest register count of a single read.
	MaxReadCount = 125
	// MaxWriteCount is the largest register count of a single write.
	MaxWriteCount = 123
)

type clientConfig struct {
	framing      Framing
	unitID       byte
	retryLimit   int
	lowWordFirst bool
	logger       logger.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		framing:      RTU,
		unitID:       DefaultUnitID,
		retryLimit:   DefaultRetryLimit,
		lowWordFirst: true,
		logger:       logger.GetLogger(),
	}
}

// Option is a functional option for configuring a Client.
type Option interface {
	apply(*clientConfig) error
}

type optFunc func(*clientConfig) error

func (f optFunc) apply(cfg *clientConfig) error { return f(cfg) }

// WithFraming selects RTU or TCP framing. The default is RTU.
func WithFraming(f Framing) Option {
	return optFunc(func(cfg *clientConfig) error {
		if f != RTU && f != TCP {
			return fmt.Errorf("modbus: unknown framing %v", f)
		}
		cfg.framing = f

		return nil
	})
}

// WithUnitID sets the slave address.
func WithUnitID(id int) Option {
	return optFunc(func(cfg *clientConfig) error {
		if id < MinUnitID || id > MaxUnitID {
			return fmt.Errorf("modbus: unit id %d out of range [%d, %d]", id, MinUnitID, MaxUnitID)
		}
		cfg.unitID = byte(id)

		return nil
	})
}

// WithRetryLimit sets how many times a failed request is retried. A request is
// attempted at most n+1 times.
func WithRetryLimit(n int) Option {
	return optFunc(func(cfg *clientConfig) error {
		if n < 0 || n > MaxRetryLimit {
			return fmt.Errorf("modbus: retry limit %d out of range [0, %d]", n, MaxRetryLimit)
		}
		cfg.retryLimit = n

		return nil
	})
}

// WithWordOrder sets whether 32-bit values are stored low word first.
func WithWordOrder(lowWordFirst bool) Option {
	return optFunc(func(cfg *clientConfig) error {
		cfg.lowWordFirst = lowWordFirst
		return nil
	})
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *clientConfig) error {
		if l == nil {
			return errors.New("modbus: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
