package watlowf4t_test

import (
	"context"
	"testing"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/internal/fakedev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOperation_Status(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(b *fakedev.RegisterBank)
		mode   chamber.Mode
		status string
		alarms []int
	}{
		{"standby", func(*fakedev.RegisterBank) {}, chamber.ModeStandby, "Standby", []int{}},
		{"constant", func(b *fakedev.RegisterBank) { b.Set(regRunIO, 63) }, chamber.ModeConstant, "Constant", []int{}},
		{"alarm", func(b *fakedev.RegisterBank) { b.Set(regAlarm1, 0) }, chamber.ModeAlarm, "Alarm", []int{1}},
		{"limit tripped", func(b *fakedev.RegisterBank) { b.Set(regLimit5, 28) }, chamber.ModeAlarm, "Alarm", []int{25}},
		{
			"calendar start", func(b *fakedev.RegisterBank) { b.Set(regStatus, 1783) },
			chamber.ModeStandby, "Standby (Program Calendar Start)", []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, _, bank := newTestChamber(t, testProfile())
			tt.setup(bank)

			st, err := ch.GetOperation(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, st.Mode)
			assert.Equal(t, tt.status, st.Status)
			assert.Equal(t, tt.alarms, st.Alarms)
			assert.Nil(t, st.Program)
		})
	}
}

// runningProgram makes the bank report program 3 at step 2.
func runningProgram(b *fakedev.RegisterBank) {
	b.Set(regStatus, 149)
	b.Set(16588, 3)
	b.Set(16590, 2)
	b.SetString(16966, "SOAK", 20)
	b.Set(regSteps, 5)
	b.Set(16622, 9, 0, 5, 0, 3)
	b.Set(16570, 30, 0, 1)
}

func TestGetOperation_ProgramStatus(t *testing.T) {
	ch, _, bank := newTestChamber(t, testProfile())
	runningProgram(bank)

	st, err := ch.GetOperation(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, chamber.ModeProgram, st.Mode)
	require.NotNil(t, st.Program)
	assert.Equal(t, chamber.ProgramStatus{
		Number:            3,
		Step:              2,
		Name:              "SOAK",
		Steps:             5,
		TimeRemaining:     "1:30:00",
		StepTimeRemaining: "3:05:09",
	}, *st.Program)

	cached := &chamber.Program{Steps: make([]chamber.Step, 7)}
	st, err = ch.GetOperation(context.Background(), cached)
	require.NoError(t, err)
	assert.Equal(t, 7, st.Program.Steps)
}

func TestSetOperation_ProgramStart(t *testing.T) {
	ch, _, bank := newTestChamber(t, testProfile())
	ctx := context.Background()
	bank.Set(regSteps, 5)
	bank.SetString(16966, "SOAK", 20)
	bank.OnWrite(func(addr uint16, values []uint16, set func(uint16, ...uint16)) {
		if addr == 16562 && values[0] == 1782 {
			set(regStatus, 149)
			set(16588, 3)
			set(16590, 2)
		}
	})

	req := chamber.OperationRequest{Mode: chamber.CmdProgram, Program: &chamber.ProgramRef{Number: 3, Step: 2}}
	require.NoError(t, ch.SetOperation(ctx, req))

	writes := bank.Writes()
	require.GreaterOrEqual(t, len(writes), 3)
	tail := writes[len(writes)-3:]
	assert.Equal(t, []uint16{3}, tail[0].Values)
	assert.Equal(t, uint16(16558), tail[0].Address)
	assert.Equal(t, []uint16{2}, tail[1].Values)
	assert.Equal(t, []uint16{1782}, tail[2].Values)

	st, err := ch.GetOperation(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, chamber.ModeProgram, st.Mode)
	assert.Equal(t, 3, st.Program.Number)
	assert.Equal(t, 2, st.Program.Step)
}

func TestSetOperation_ProgramStartChecksSteps(t *testing.T) {
	ch, _, bank := newTestChamber(t, testProfile())
	ctx := context.Background()

	req := chamber.OperationRequest{Mode: chamber.CmdProgram, Program: &chamber.ProgramRef{Number: 3, Step: 6}}
	require.ErrorIs(t, ch.SetOperation(ctx, req), chamber.ErrCapability)

	bank.Set(regSteps, 5)
	require.ErrorIs(t, ch.SetOperation(ctx, req), chamber.ErrValidation)
	for _, w := range bank.Writes() {
		assert.NotEqual(t, uint16(16562), w.Address)
	}
}

func TestSetOperation_ConstantFromStandby(t *testing.T) {
	ch, _, bank := newTestChamber(t, testProfile())

	require.NoError(t, ch.SetOperation(context.Background(), chamber.OperationRequest{Mode: chamber.CmdConstant}))
	writes := bank.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, uint16(regKey1), writes[0].Address)
	assert.Equal(t, []uint16{1457}, writes[0].Values)
}

func TestSetOperation_Stop(t *testing.T) {
	ch, _, bank := newTestChamber(t, testProfile())
	bank.Set(regRunIO, 63)

	require.NoError(t, ch.SetOperation(context.Background(), chamber.OperationRequest{Mode: chamber.CmdStandby}))
	assert.Equal(t, uint16(1457), bank.Get(regKey1))

	p := testProfile()
	p.CondEvent = 0
	ch, _, bank = newTestChamber(t, p)
	bank.Set(regRunIO, 63)
	err := ch.SetOperation(context.Background(), chamber.OperationRequest{Mode: chamber.CmdOff})
	require.ErrorIs(t, err, chamber.ErrUnsupported)
}

func TestSetOperation_InvalidTransition(t *testing.T) {
	ch, _, bank := newTestChamber(t, testProfile())

	err := ch.SetOperation(context.Background(), chamber.OperationRequest{Mode: chamber.CmdProgramPause})
	require.ErrorIs(t, err, chamber.ErrInvalidTransition)
	assert.Empty(t, bank.Writes())
}

func TestSetOperation_PauseResume(t *testing.T) {
	ch, _, bank := newTestChamber(t, testProfile())
	ctx := context.Background()
	runningProgram(bank)

	require.NoError(t, ch.SetOperation(ctx, chamber.OperationRequest{Mode: chamber.CmdProgramPause}))
	assert.Equal(t, uint16(146), bank.Get(16566))

	bank.Set(regStatus, 146)
	require.NoError(t, ch.SetOperation(ctx, chamber.OperationRequest{Mode: chamber.CmdProgramResume}))
	assert.Equal(t, uint16(147), bank.Get(16564))
}

func TestSetOperation_Advance(t *testing.T) {
	ch, _, bank := newTestChamber(t, testProfile())
	runningProgram(bank)
	bank.OnWrite(func(addr uint16, values []uint16, set func(uint16, ...uint16)) {
		if addr == 16566 && values[0] == 148 {
			set(regStatus, 0)
		}
	})

	require.NoError(t, ch.SetOperation(context.Background(), chamber.OperationRequest{Mode: chamber.CmdProgramAdvance}))
	assert.Equal(t, uint16(148), bank.Get(16566))
	assert.Equal(t, uint16(3), bank.Get(16558))
	assert.Equal(t, uint16(3), bank.Get(16560))
	assert.Equal(t, uint16(1782), bank.Get(16562))
}
