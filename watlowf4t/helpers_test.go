package watlowf4t_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/internal/fakedev"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/transport"
	"github.com/arloliu/go-chamber/watlowf4t"
	"github.com/stretchr/testify/require"
)

// Register addresses used by the tests.
const (
	regStatus      = 16568
	regRunIO       = 33718
	regAlarm1      = 1356
	regLimit5      = 11490
	regLoopSP      = 2782
	regLoopSPCur   = 2810
	regLoopMode    = 2730
	regLoopModeCur = 2814
	regEvent1      = 16594
	regEvent2      = 16596
	regKey1        = 6850
	regSteps       = 18920
	regStepBlock   = 19094
	regClock       = 14664
)

func testProfile() chamber.Profile {
	p := watlowf4t.DefaultProfile()
	p.Profiles = true
	p.LoopNames = []string{"Temperature"}

	return p
}

// newTestChamber wires a driver and a Chamber to an idle in-memory
// controller: no alarms, limits healthy, chamber not running.
func newTestChamber(t *testing.T, p chamber.Profile, opts ...watlowf4t.Option) (*chamber.Chamber, *watlowf4t.Driver, *fakedev.RegisterBank) {
	t.Helper()

	bank := fakedev.NewRegisterBank(modbus.RTU, 1)
	for i := 0; i < p.Alarms; i++ {
		bank.Set(uint16(regAlarm1+i*100), 61) //nolint:gosec
	}
	for _, m := range p.Limits {
		bank.Set(uint16(11250+(m-1)*60+38), 61) //nolint:gosec
	}
	bank.Set(regLoopMode, 10)
	bank.Set(regLoopModeCur, 10)

	sess, err := transport.NewSession(bank,
		transport.WithTimeout(30*time.Millisecond),
		transport.WithPollInterval(2*time.Millisecond),
		transport.WithLogger(logger.NewNopMockLogger()),
	)
	require.NoError(t, err)

	client, err := modbus.NewClient(sess,
		modbus.WithFraming(modbus.RTU),
		modbus.WithLogger(logger.NewNopMockLogger()),
	)
	require.NoError(t, err)

	defaults := []watlowf4t.Option{
		watlowf4t.WithSettleDelays(0, 0, 0),
		watlowf4t.WithLogger(logger.NewNopMockLogger()),
	}
	drv, err := watlowf4t.New(client, p, append(defaults, opts...)...)
	require.NoError(t, err)

	ch, err := chamber.New(drv, sess, chamber.WithLogger(logger.NewNopMockLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	return ch, drv, bank
}

func ptr[T any](v T) *T { return &v }

// nopExchanger fails every exchange; it backs drivers that are only constructed.
type nopExchanger struct{}

func (nopExchanger) Exchange(context.Context, []byte, transport.Framer) ([]byte, error) {
	return nil, errors.New("no device")
}
