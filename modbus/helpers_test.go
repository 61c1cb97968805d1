package modbus_test

import (
	"testing"
	"time"

	"github.com/arloliu/go-chamber/internal/fakedev"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/transport"
)

func newTestClient(t *testing.T, framing modbus.Framing, opts ...modbus.Option) (*modbus.Client, *fakedev.RegisterBank) {
	t.Helper()

	bank := fakedev.NewRegisterBank(framing, 1)
	sess, err := transport.NewSession(bank,
		transport.WithTimeout(30*time.Millisecond),
		transport.WithPollInterval(2*time.Millisecond),
		transport.WithLogger(logger.NewNopMockLogger()),
	)
	if err != nil {
		t.Fatalf("newTestClient: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })

	defaults := []modbus.Option{
		modbus.WithFraming(framing),
		modbus.WithLogger(logger.NewNopMockLogger()),
	}
	c, err := modbus.NewClient(sess, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestClient: %v", err)
	}

	return c, bank
}
