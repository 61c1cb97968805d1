package ascii

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-chamber/logger"
)

// Default client values.
const (
	DefaultRetryLimit = 3
	DefaultTCPPort    = 10001
)

// Client value limits.
const (
	MinAddress    = 1
	MaxAddress    = 16
	MaxRetryLimit = 10
)

type clientConfig struct {
	address    int
	retryLimit int
	logger     logger.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		retryLimit: DefaultRetryLimit,
		logger:     logger.GetLogger(),
	}
}

// Option is a functional option for configuring a Client.
type Option interface {
	apply(*clientConfig) error
}

type optFunc func(*clientConfig) error

func (f optFunc) apply(cfg *clientConfig) error { return f(cfg) }

// WithAddress sets the serial bus address prefixed to every command. Zero
// disables the prefix.
func WithAddress(addr int) Option {
	return optFunc(func(cfg *clientConfig) error {
		if addr != 0 && (addr < MinAddress || addr > MaxAddress) {
			return fmt.Errorf("ascii: address %d out of range [%d, %d]", addr, MinAddress, MaxAddress)
		}
		cfg.address = addr

		return nil
	})
}

// WithRetryLimit sets how many times a timed out or garbled request is retried.
func WithRetryLimit(n int) Option {
	return optFunc(func(cfg *clientConfig) error {
		if n < 0 || n > MaxRetryLimit {
			return fmt.Errorf("ascii: retry limit %d out of range [0, %d]", n, MaxRetryLimit)
		}
		cfg.retryLimit = n

		return nil
	})
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *clientConfig) error {
		if l == nil {
			return errors.New("ascii: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
