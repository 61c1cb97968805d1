package watlowf4_test

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
		{"constant", func(b *fakedev.RegisterBank) { b.Set(regCondEvent, 1) }, chamber.ModeConstant, "Constant", []int{}},
		{
			"limit tripped", func(b *fakedev.RegisterBank) { b.Set(regLimit1, 1) },
			chamber.ModeAlarm, "Alarm", []int{1},
		},
		{
			"paused program without run condition", func(b *fakedev.RegisterBank) { b.Set(regStatus, 3) },
			chamber.ModeStandby, "Standby", []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile()
			p.Limits = []int{1}
			ch, _, bank, _ := newTestChamber(t, p)
			tt.setup(bank)

			st, err := ch.GetOperation(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, st.Mode)
			assert.Equal(t, tt.status, st.Status)
			assert.Equal(t, tt.alarms, st.Alarms)
		})
	}
}

func TestGetOperation_UnknownStatus(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	bank.Set(regStatus, 9)

	_, err := ch.GetOperation(context.Background(), nil)
	require.ErrorIs(t, err, chamber.ErrDecode)
}

// rampProgram soaks at 25 for ten minutes, ramps to 85 at 2 per minute and
// repeats once.
func rampProgram() *chamber.Program {
	return &chamber.Program{
		Name: "RAMP",
		Steps: []chamber.Step{
			{
				Type:     chamber.StepSoak,
				Duration: chamber.Duration{Minutes: 10},
				Loops:    []chamber.StepLoop{{Target: 25, Enable: true, PIDSet: 1}},
			},
			{
				Type:  chamber.StepRampRate,
				Loops: []chamber.StepLoop{{Target: 85, Rate: 2, Enable: true, PIDSet: 1}},
			},
			{Type: chamber.StepJump, JumpStep: 1, JumpCount: 1},
			{Type: chamber.StepEnd, Action: "hold"},
		},
	}
}

func TestGetOperation_ProgramStatus(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()
	require.NoError(t, ch.SetProgram(ctx, 1, rampProgram()))

	bank.Set(regCondEvent, 1)
	bank.Set(regStatus, 2)
	bank.Set(regCurrent, 1, 1)
	bank.Set(regStepTime, 0, 5, 0)
	bank.Set(regCycles, 0, 1, 3)

	st, err := ch.GetOperation(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, chamber.ModeProgram, st.Mode)
	require.NotNil(t, st.Program)
	assert.Equal(t, chamber.ProgramStatus{
		Number:            1,
		Step:              1,
		Name:              "RAMP",
		Steps:             4,
		TimeRemaining:     "1:15:00",
		StepTimeRemaining: "0:05:00",
		Cycles:            []chamber.Counter{{Start: 1, End: 3, Cycles: 1}},
	}, *st.Program)
}

func TestSetOperation_ConstantAndStop(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()

	require.NoError(t, ch.SetOperation(ctx, chamber.OperationRequest{Mode: chamber.CmdConstant}))
	assert.Equal(t, uint16(1), bank.Get(regTerminate))
	assert.Equal(t, uint16(1), bank.Get(regCondEvent))

	bank.Set(regTerminate, 0)
	require.NoError(t, ch.SetOperation(ctx, chamber.OperationRequest{Mode: chamber.CmdStandby}))
	assert.Equal(t, uint16(1), bank.Get(regTerminate))
	assert.Equal(t, uint16(0), bank.Get(regCondEvent))
}

func TestSetOperation_StopWithoutCondEvent(t *testing.T) {
	p := testProfile()
	p.CondEvent = 0
	ch, _, bank, _ := newTestChamber(t, p)

	err := ch.SetOperation(context.Background(), chamber.OperationRequest{Mode: chamber.CmdOff})
	require.ErrorIs(t, err, chamber.ErrUnsupported)
	assert.Empty(t, bank.Writes())
}

func TestSetOperation_ProgramStart(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()
	require.NoError(t, ch.SetProgram(ctx, 1, rampProgram()))

	err := ch.SetOperation(ctx, chamber.OperationRequest{
		Mode: chamber.CmdProgram, Program: &chamber.ProgramRef{Number: 1, Step: 2},
	})
	require.NoError(t, err)
	writes := bank.Writes()
	last := writes[len(writes)-1]
	assert.Equal(t, uint16(regSelect), last.Address)
	assert.Equal(t, []uint16{1, 2, 5}, last.Values)
	assert.Equal(t, uint16(2), bank.Get(regStatus))

	bank.Set(regStatus, 0)
	err = ch.SetOperation(ctx, chamber.OperationRequest{
		Mode: chamber.CmdProgram, Program: &chamber.ProgramRef{Number: 1, Step: 5},
	})
	require.ErrorIs(t, err, chamber.ErrValidation)

	err = ch.SetOperation(ctx, chamber.OperationRequest{
		Mode: chamber.CmdProgram, Program: &chamber.ProgramRef{Number: 7},
	})
	require.ErrorIs(t, err, chamber.ErrCapability)
}

func TestSetOperation_PauseResumeAdvance(t *testing.T) {
	ch, _, bank, _ := newTestChamber(t, testProfile())
	ctx := context.Background()
	require.NoError(t, ch.SetProgram(ctx, 1, rampProgram()))
	bank.Set(regCondEvent, 1)
	bank.Set(regStatus, 2)
	bank.Set(regCurrent, 1, 1)

	require.NoError(t, ch.SetOperation(ctx, chamber.OperationRequest{Mode: chamber.CmdProgramPause}))
	assert.Equal(t, uint16(1), bank.Get(1210))

	bank.Set(regStatus, 3)
	require.NoError(t, ch.SetOperation(ctx, chamber.OperationRequest{Mode: chamber.CmdProgramResume}))
	assert.Equal(t, uint16(1), bank.Get(1209))

	bank.Set(regStatus, 2)
	require.NoError(t, ch.SetOperation(ctx, chamber.OperationRequest{Mode: chamber.CmdProgramAdvance}))
	writes := bank.Writes()
	last := writes[len(writes)-1]
	assert.Equal(t, []uint16{1, 2, 5}, last.Values)
	assert.Equal(t, uint16(1), bank.Get(regTerminate))

	err := ch.SetOperation(ctx, chamber.OperationRequest{Mode: chamber.CmdProgramResume})
	require.ErrorIs(t, err, chamber.ErrInvalidTransition)
}
