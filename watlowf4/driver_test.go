package watlowf4_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/regmap"
	"github.com/arloliu/go-chamber/watlowf4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMap(t *testing.T) {
	regs := loadMap(t)
	assert.Equal(t, "watlow-f4", regs.Name())

	r, err := regs.Resolve(regmap.LoopSetpoint, 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(regSP2), r.Address)
	assert.Equal(t, regmap.TypeInt16, r.Type)

	_, err = watlowf4.LoadMap("does-not-exist.yaml")
	require.Error(t, err)
}

func TestNew_ProfileChecks(t *testing.T) {
	client, err := modbus.NewClient(nopExchanger{})
	require.NoError(t, err)
	regs := loadMap(t)

	tests := []struct {
		name    string
		mutate  func(p *chamber.Profile)
		wantErr error
	}{
		{"default", func(*chamber.Profile) {}, nil},
		{"dual channel", func(p *chamber.Profile) { p.Loops = 2 }, nil},
		{"cascade and loop", func(p *chamber.Profile) { p.Cascades = 1 }, nil},
		{"two cascades", func(p *chamber.Profile) { p.Cascades = 2 }, chamber.ErrCapability},
		{"three channels", func(p *chamber.Profile) { p.Loops = 3 }, chamber.ErrCapability},
		{"limit input", func(p *chamber.Profile) { p.Limits = []int{5} }, chamber.ErrValidation},
		{"cond event out of range", func(p *chamber.Profile) { p.CondEvent = 9 }, chamber.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := watlowf4.DefaultProfile()
			tt.mutate(&p)
			drv, err := watlowf4.New(client, regs, p)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, chamber.FamilyWatlowF4, drv.Family())
			assert.Equal(t, 8, drv.Profile().Events)
		})
	}
}

func TestNew_MissingMapping(t *testing.T) {
	client, err := modbus.NewClient(nopExchanger{})
	require.NoError(t, err)

	const doc = `
name: partial
registers:
  - {param: clock, address: 1916}
  - {param: status, address: 200}
  - {param: terminate, address: 1217}
  - {param: loop.setpoint, index: 1, address: 300, type: int16}
  - {param: loop.processvalue, index: 1, address: 100, type: int16}
  - {param: loop.range.min, index: 1, address: 602, type: int16}
  - {param: loop.range.max, index: 1, address: 603, type: int16}
`
	regs, err := regmap.LoadRegisters(strings.NewReader(doc))
	require.NoError(t, err)

	p := watlowf4.DefaultProfile()
	p.Profiles = false
	p.Events = 0
	_, err = watlowf4.New(client, regs, p)
	require.ErrorIs(t, err, chamber.ErrCapability)
	assert.Contains(t, err.Error(), "event[1]")

	_, err = watlowf4.New(client, nil, p)
	require.Error(t, err)
}

func TestLoop_Setpoint(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()
	bank.Set(regSP1, 235)
	bank.SetSigned(regSPCur1, 400)

	loop, err := ch.GetLoop(ctx, 1, chamber.LoopStandard, chamber.FieldSetpoint)
	require.NoError(t, err)
	assert.Equal(t, chamber.Setpoint{Constant: 23.5, Current: 23.5}, *loop.Setpoint)

	// the active setpoint is only reported while a program runs
	bank.Set(regStatus, 2)
	loop, err = ch.GetLoop(ctx, 1, chamber.LoopStandard, chamber.FieldSetpoint)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, loop.Setpoint.Current, 1e-9)

	require.NoError(t, ch.SetLoop(ctx, 1, chamber.LoopStandard, &chamber.LoopSettings{Setpoint: ptr(-12.5)}))
	assert.Equal(t, uint16(0xFF83), bank.Get(regSP1))
}

func TestLoop_SetpointClampedToRange(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	bank.SetSigned(regSP1, -1000)

	loop, err := ch.GetLoop(context.Background(), 1, chamber.LoopStandard, chamber.FieldSetpoint, chamber.FieldRange)
	require.NoError(t, err)
	assert.InDelta(t, -70.0, loop.Setpoint.Constant, 1e-9)
	assert.Equal(t, chamber.Range{Min: -70, Max: 180}, *loop.Range)
}

func TestLoop_DecimalsCached(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ch.GetLoop(ctx, 1, chamber.LoopStandard, chamber.FieldProcessValue)
		require.NoError(t, err)
	}
	reads := 0
	for _, r := range bank.Requests() {
		if r.Function == modbus.FuncReadHolding && r.Address == regDecimals1 {
			reads++
		}
	}
	assert.Equal(t, 1, reads)
}

func TestLoop_Range(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())

	err := ch.SetLoop(context.Background(), 1, chamber.LoopStandard,
		&chamber.LoopSettings{Range: &chamber.Range{Min: -40, Max: 150}})
	require.NoError(t, err)

	writes := bank.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, uint16(regMin1), writes[0].Address)
	assert.Equal(t, []uint16{0xFE70, 1500}, writes[0].Values)
}

func TestLoop_EnableWithoutEvent(t *testing.T) {
	_, drv, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()
	ref := chamber.LoopRef{Type: chamber.LoopStandard, Number: 1}
	bank.Set(regSP1, 250)

	var loop chamber.Loop
	require.NoError(t, drv.ReadLoopField(ctx, ref, chamber.FieldEnable, &loop))
	assert.Equal(t, chamber.Toggle{Constant: true, Current: true}, *loop.Enable)
	require.NoError(t, drv.ReadLoopField(ctx, ref, chamber.FieldMode, &loop))
	assert.Equal(t, chamber.ModeValue{Constant: "On", Current: "On"}, *loop.Mode)

	err := drv.WriteLoopField(ctx, ref, chamber.FieldEnable, &chamber.LoopSettings{Enable: ptr(false)})
	require.ErrorIs(t, err, chamber.ErrUnsupported)

	err = drv.WriteLoopField(ctx, ref, chamber.FieldMode, &chamber.LoopSettings{Mode: ptr("Auto")})
	require.ErrorIs(t, err, chamber.ErrValidation)
}

func TestLoop_EnableWithEvent(t *testing.T) {
	p := testProfile()
	p.LoopEvent = []int{1}
	ch, _, bank, _ := newTestChamber(t, p)
	ctx := context.Background()
	bank.SetSigned(regSP1, -900)

	require.NoError(t, ch.SetLoop(ctx, 1, chamber.LoopStandard, &chamber.LoopSettings{Enable: ptr(true)}))
	assert.Equal(t, uint16(1), bank.Get(regEvent1))
	assert.Equal(t, uint16(0xFD44), bank.Get(regSP1), "setpoint lifted to the range minimum")

	// with the run condition off the active state follows the setpoint
	loop, err := ch.GetLoop(ctx, 1, chamber.LoopStandard, chamber.FieldEnable)
	require.NoError(t, err)
	assert.Equal(t, chamber.Toggle{Constant: true, Current: true}, *loop.Enable)

	require.NoError(t, ch.SetLoop(ctx, 1, chamber.LoopStandard, &chamber.LoopSettings{Mode: ptr("off")}))
	assert.Equal(t, uint16(0), bank.Get(regEvent1))
}

func TestLoop_UnitsAndPower(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()
	bank.Set(regTempUnits, 1)
	bank.Set(regPower1, 4550)
	bank.Set(regPowerB1, 1000)

	loop, err := ch.GetLoop(ctx, 1, chamber.LoopStandard, chamber.FieldUnits, chamber.FieldPower)
	require.NoError(t, err)
	assert.Equal(t, "°C", *loop.Units)
	assert.InDelta(t, 55.5, loop.Power.Current, 1e-9)

	bank.Set(regUnits1, 1)
	loop, err = ch.GetLoop(ctx, 1, chamber.LoopStandard, chamber.FieldUnits)
	require.NoError(t, err)
	assert.Equal(t, "%RH", *loop.Units)

	// power is read only and skipped with a warning
	require.NoError(t, ch.SetLoop(ctx, 1, chamber.LoopStandard, &chamber.LoopSettings{Power: ptr(10.0)}))
	assert.Empty(t, bank.Writes())
}

func TestCascade(t *testing.T) {
	p := watlowf4.DefaultProfile()
	p.Loops = 0
	p.Cascades = 1
	ch, _, bank, _ := newTestChamber(t, p)
	ctx := context.Background()
	bank.Set(regSP1, 500)
	bank.Set(regCascadeAir, 550)
	bank.Set(regPV1, 498)
	bank.Set(regProduct, 471)

	loop, err := ch.GetLoop(ctx, 1, chamber.LoopCascade)
	require.NoError(t, err)
	assert.Equal(t, 50.0, loop.Setpoint.Constant)
	require.NotNil(t, loop.Setpoint.Air)
	assert.Equal(t, 55.0, *loop.Setpoint.Air)
	assert.Equal(t, 50.0, *loop.Setpoint.Product)
	assert.InDelta(t, 49.8, loop.ProcessValue.Air, 1e-9)
	assert.InDelta(t, 47.1, *loop.ProcessValue.Product, 1e-9)
	assert.Equal(t, chamber.Toggle{Constant: true, Current: true}, *loop.EnableCascade)

	require.NoError(t, ch.SetLoop(ctx, 1, chamber.LoopCascade,
		&chamber.LoopSettings{Deviation: &chamber.Deviation{Positive: 5, Negative: 3}}))
	assert.Equal(t, uint16(0xFFE2), bank.Get(regDevNegative))
	assert.Equal(t, uint16(50), bank.Get(regDevNegative+1))
	writes := bank.Writes()
	assert.Equal(t, uint16(regSave), writes[len(writes)-1].Address)
}

func TestEvents(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()

	require.NoError(t, ch.SetEvent(ctx, 3, true))
	assert.Equal(t, uint16(1), bank.Get(regEvent1+20))

	ev, err := ch.GetEvent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, chamber.Event{Number: 3, Constant: true, Current: true}, ev)

	_, err = ch.GetEvent(ctx, 9)
	require.ErrorIs(t, err, chamber.ErrCapability)
}

func TestDatetime(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()
	want := time.Date(2024, time.March, 9, 14, 5, 30, 0, time.Local)

	require.NoError(t, ch.SetDatetime(ctx, want))
	writes := bank.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, uint16(regClock), writes[0].Address)
	assert.Equal(t, []uint16{14, 5, 30, 3, 9, 2024}, writes[0].Values)

	got, err := ch.GetDatetime(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestIdentify(t *testing.T) {
	p := watlowf4.DefaultProfile()
	p.Loops = 2

	_, drv, bank, _ := newTestChamber(t, p)
	model, err := drv.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Watlow F4D", model)

	bank.Except(regSP2, modbus.ExceptionIllegalAddress)
	bank.Set(regCascadeOn, 1)
	model, err = drv.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Watlow F4S W/Cascade", model)
}

func TestRaw(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	bank.Set(regStatus, 2)

	reply, err := ch.Raw(context.Background(), "03 00C8 0001")
	require.NoError(t, err)
	assert.Equal(t, "03020002", reply)

	_, err = ch.Raw(context.Background(), "zz")
	require.ErrorIs(t, err, chamber.ErrValidation)
}
