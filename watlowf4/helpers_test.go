package watlowf4_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/internal/fakedev"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/regmap"
	"github.com/arloliu/go-chamber/transport"
	"github.com/arloliu/go-chamber/watlowf4"
	"github.com/stretchr/testify/require"
)

const mapPath = "../configs/watlowf4-map.yaml"

// Register addresses of the sample map.
const (
	regStatus       = 200
	regEvent1       = 2000
	regCondEvent    = 2070
	regTerminate    = 1217
	regSave         = 25
	regSelect       = 4000
	regBlock        = 4003
	regFree         = 1218
	regCurrent      = 4100
	regCurrentStep  = 4101
	regStepTime     = 4119
	regCycles       = 4126
	regName         = 3500
	regClock        = 1916
	regSP1          = 300
	regSP2          = 319
	regSPCur1       = 4122
	regPV1          = 100
	regMin1         = 602
	regMax1         = 603
	regDecimals1    = 606
	regUnits1       = 608
	regTempUnits    = 901
	regPower1       = 103
	regPowerB1      = 107
	regLimit1       = 201
	regCascadeAir   = 1922
	regProduct      = 108
	regCascadeOn    = 1925
	regDevNegative  = 1926
	regDecimalsProd = 626
)

// testProfile is a single loop F4 with programs, run condition on event 8.
func testProfile() chamber.Profile {
	p := watlowf4.DefaultProfile()
	p.CondEvent = 8
	p.LoopNames = []string{"Temperature"}

	return p
}

func loadMap(t *testing.T) *regmap.Table[regmap.Register] {
	t.Helper()

	regs, err := watlowf4.LoadMap(mapPath)
	require.NoError(t, err)

	return regs
}

// newTestChamber wires a driver and a Chamber to an in-memory F4 holding no
// programs. Channel inputs have one decimal place and a range of -70..180.
func newTestChamber(t *testing.T, p chamber.Profile, opts ...watlowf4.Option) (*chamber.Chamber, *watlowf4.Driver, *fakedev.RegisterBank, *programStore) {
	t.Helper()

	bank := fakedev.NewRegisterBank(modbus.RTU, 1)
	for ch := 0; ch < 3; ch++ {
		bank.Set(uint16(regDecimals1+10*ch), 1) //nolint:gosec
	}
	bank.SetSigned(regMin1, -700)
	bank.Set(regMax1, 1800)
	store := newProgramStore(bank)

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

	defaults := []watlowf4.Option{
		watlowf4.WithAdvanceSettle(0),
		watlowf4.WithLogger(logger.NewNopMockLogger()),
	}
	drv, err := watlowf4.New(client, loadMap(t), p, append(defaults, opts...)...)
	require.NoError(t, err)

	ch, err := chamber.New(drv, sess, chamber.WithLogger(logger.NewNopMockLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	return ch, drv, bank, store
}

func ptr[T any](v T) *T { return &v }

// nopExchanger fails every exchange; it backs drivers that are only constructed.
type nopExchanger struct{}

func (nopExchanger) Exchange(context.Context, []byte, transport.Framer) ([]byte, error) {
	return nil, errors.New("no device")
}

// programStore emulates the F4 program editor: the select, step and action
// registers pick a step of a stored program and the step block shows it.
type programStore struct {
	mu       sync.Mutex
	programs map[int][][]uint16
	selected int
	step     int
}

func newProgramStore(bank *fakedev.RegisterBank) *programStore {
	s := &programStore{programs: map[int][][]uint16{}}
	bank.Set(regFree, 40)
	bank.Set(regBlock, 7)
	bank.OnWrite(s.hook)

	return s
}

func endBlock() []uint16 {
	b := make([]uint16, 60)
	b[0] = 5

	return b
}

func (s *programStore) hook(addr uint16, values []uint16, set func(uint16, ...uint16)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, v := range values {
		a := addr + uint16(i) //nolint:gosec
		switch {
		case a == regSelect:
			s.selected = int(v)
		case a == regSelect+1:
			s.step = int(v)
		case a == regSelect+2:
			s.action(int(v), set)
		case a >= regBlock && a < regBlock+60:
			if blk := s.block(); blk != nil {
				blk[a-regBlock] = v
			}
		}
	}
	set(regFree, uint16(40-len(s.programs))) //nolint:gosec
	if blk := s.block(); blk != nil {
		set(regBlock, blk...)
	} else {
		set(regBlock, 7)
	}
}

func (s *programStore) action(code int, set func(uint16, ...uint16)) {
	switch code {
	case 1:
		n := 1
		for s.programs[n] != nil {
			n++
		}
		s.programs[n] = [][]uint16{endBlock()}
		s.selected, s.step = n, 1
		set(regSelect, uint16(n)) //nolint:gosec
	case 2:
		steps := s.programs[s.selected]
		if steps != nil && s.step >= 1 && s.step <= len(steps) {
			blank := make([]uint16, 60)
			blank[0] = 3
			s.programs[s.selected] = slices.Insert(steps, s.step-1, blank)
		}
	case 3:
		delete(s.programs, s.selected)
	case 5:
		set(regStatus, 2)
		set(regCurrent, uint16(s.selected)) //nolint:gosec
		set(regCurrentStep, uint16(s.step)) //nolint:gosec
	}
}

func (s *programStore) block() []uint16 {
	steps := s.programs[s.selected]
	if s.step < 1 || s.step > len(steps) {
		return nil
	}

	return steps[s.step-1]
}

// count returns the number of stored programs.
func (s *programStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.programs)
}
