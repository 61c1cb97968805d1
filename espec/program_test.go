package espec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-chamber/ascii"
	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/espec"
)

// cycleProgram ramps to 25 °C and 60 %RH with time signals 1 and 3, soaks at
// -10 °C with humidity off and repeats both steps three times before starting
// program 2.
func cycleProgram() *chamber.Program {
	return &chamber.Program{
		Number: 1,
		Name:   "CYCLE",
		Steps: []chamber.Step{
			{
				Type:     chamber.StepRampTime,
				Duration: chamber.Duration{Hours: 1, Minutes: 30},
				Loops: []chamber.StepLoop{
					{Target: 25, Ramp: true, Enable: true},
					{Target: 60, Ramp: true, Enable: true},
				},
				Events: []chamber.StepEvent{
					{Number: 1, Value: chamber.EventOn},
					{Number: 3, Value: chamber.EventOn},
				},
				Guaranteed: true,
				Refrig:     &chamber.Refrig{Mode: chamber.RefrigAuto},
			},
			{
				Type:     chamber.StepSoak,
				Duration: chamber.Duration{Minutes: 45},
				Loops: []chamber.StepLoop{
					{Target: -10, Enable: true},
					{},
				},
				Paused: true,
				Refrig: &chamber.Refrig{Mode: chamber.RefrigManual, Setpoint: 50},
			},
		},
		Counters:    []chamber.Counter{{Start: 1, End: 2, Cycles: 3}, {}},
		End:         "RUN",
		NextProgram: 2,
		TempRange:   &chamber.Range{Min: -40, Max: 100},
		HumiRange:   &chamber.Range{Min: 10, Max: 95},
	}
}

func storedCycleProgram(dev *device) {
	dev.set("PRGM DATA?,RAM:1", "2,<CYCLE>,COUNT,A(1.2.3),B(0.0.0),END(RUN:2)")
	dev.set("PRGM DATA?,RAM:1,DETAIL", "100.0,-40.0,95,10,TEMPOFF,HUMIOFF")
	dev.set("PRGM DATA?,RAM:1,STEP1",
		"1,TEMP25.0,TEMP RAMP ON,HUMI60,HUMI RAMP ON,TIME1:30,GRANTY ON,REF9,RELAY ON1.3,PAUSE OFF")
	dev.set("PRGM DATA?,RAM:1,STEP2",
		"2,TEMP-10.0,TEMP RAMP OFF,HUMI OFF,TIME0:45,GRANTY OFF,REF3,PAUSE ON")
}

func TestGetProgram(t *testing.T) {
	ch, _, dev := newTestChamber(t, chamber.FamilyEspecP300, humidityProfile())
	storedCycleProgram(dev)

	got, err := ch.GetProgram(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, cycleProgram(), got)
}

func TestGetProgram_ProductControl(t *testing.T) {
	ch, _, dev := newTestChamber(t, chamber.FamilyEspecSCP220, ptcProfile())
	dev.set("PRGM DATA PTC?,RAM:4", "1,<PTC>,COUNT,A(0.0.0),B(0.0.0),END(HOLD)")
	dev.set("PRGM DATA PTC?,RAM:4,STEP1",
		"1,TEMP40.0,TEMP RAMP OFF,PTC ON,HUMI50,HUMI RAMP OFF,TIME2:00,GRANTY OFF,REF9,PAUSE OFF,DEVP3.0,DEVN3.0")

	got, err := ch.GetProgram(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "PTC", got.Name)
	assert.Equal(t, "HOLD", got.End)
	assert.Nil(t, got.TempRange)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, []chamber.StepLoop{
		{Target: 40, Enable: true, EnableCascade: true, Deviation: &chamber.Deviation{Positive: 3, Negative: -3}},
		{Target: 50, Enable: true},
	}, got.Steps[0].Loops)
	assert.Equal(t, chamber.Duration{Hours: 2}, got.Steps[0].Duration)
	assert.Zero(t, dev.count("PRGM DATA PTC?,RAM:4,DETAIL"))
}

func TestGetProgram_Empty(t *testing.T) {
	ch, _, _ := newTestChamber(t, chamber.FamilyEspecP300, humidityProfile())

	_, err := ch.GetProgram(context.Background(), 7)
	require.ErrorIs(t, err, chamber.ErrDeviceRejected)
}

func TestSetProgram(t *testing.T) {
	ch, _, dev := newTestChamber(t, chamber.FamilyEspecP300, humidityProfile())

	require.NoError(t, ch.SetProgram(context.Background(), 1, cycleProgram()))
	assert.Equal(t, []string{
		"PRGM DATA WRITE, PGM1, EDIT START",
		"PRGM DATA WRITE, PGM1, STEP1,TIME1:30,PAUSE OFF,REF9,GRANTY ON,TEMP25.0,TRAMPON,HUMI60,HRAMPON,RELAY ON1.3",
		"PRGM DATA WRITE, PGM1, STEP2,TIME0:45,PAUSE ON,REF3,GRANTY OFF,TEMP-10.0,TRAMPOFF,HUMIOFF",
		"PRGM DATA WRITE,PGM1,COUNT,A(1.2.3)",
		"PRGM DATA WRITE, PGM1, NAME,CYCLE",
		"PRGM DATA WRITE, PGM1, END,RUN,PTN2",
		"PRGM DATA WRITE, PGM1, HTEMP,100.0",
		"PRGM DATA WRITE, PGM1, LTEMP,-40.0",
		"PRGM DATA WRITE, PGM1, HHUMI,95",
		"PRGM DATA WRITE, PGM1, LHUMI,10",
		"PRGM DATA WRITE, PGM1, EDIT END",
	}, dev.Writes())
}

func TestSetProgram_ProductControl(t *testing.T) {
	ch, _, dev := newTestChamber(t, chamber.FamilyEspecSCP220, ptcProfile())
	p := &chamber.Program{
		Steps: []chamber.Step{{
			Duration: chamber.Duration{Hours: 2},
			Loops: []chamber.StepLoop{
				{Target: 40, Enable: true, EnableCascade: true, Deviation: &chamber.Deviation{Positive: 3, Negative: -3}},
			},
			Events: []chamber.StepEvent{{Number: 2, Value: chamber.EventOff}, {Number: 4, Value: chamber.EventNoChange}},
		}},
		End:       "STANDBY",
		TempRange: &chamber.Range{Min: -40, Max: 100},
	}

	require.NoError(t, ch.SetProgram(context.Background(), 5, p))
	assert.Equal(t, []string{
		"PRGM DATA WRITE, PGM5, EDIT START",
		"PRGM DATA WRITE, PGM5, STEP1,TIME2:0,PAUSE OFF,GRANTY OFF,TEMP40.0,TRAMPOFF,PTCON,DEVP3.0,DEVN3.0,RELAY OFF2",
		"PRGM DATA WRITE, PGM5, END,STANDBY",
		"PRGM DATA WRITE, PGM5, EDIT END",
	}, dev.Writes())
}

func TestSetProgram_CancelOnError(t *testing.T) {
	ch, _, dev := newTestChamber(t, chamber.FamilyEspecP300, humidityProfile())
	dev.reject("PRGM DATA WRITE, PGM1, STEP2", "PRGM WRITE ERR")

	err := ch.SetProgram(context.Background(), 1, cycleProgram())
	require.ErrorIs(t, err, chamber.ErrDeviceRejected)
	var derr *ascii.DeviceError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "PRGM WRITE ERR", derr.Code)

	writes := dev.Writes()
	require.Len(t, writes, 4)
	assert.Equal(t, "PRGM DATA WRITE, PGM1, EDIT CANCEL", writes[3])
}

func TestSetProgram_Validation(t *testing.T) {
	tests := []struct {
		name   string
		family chamber.Family
		number int
		modify func(p *chamber.Program)
		err    error
	}{
		{"too many steps", chamber.FamilyEspecP300, 1, func(p *chamber.Program) {
			for len(p.Steps) < 100 {
				p.Steps = append(p.Steps, p.Steps[1])
			}
		}, chamber.ErrValidation},
		{"rom program", chamber.FamilyEspecSCP220, 21, func(*chamber.Program) {}, chamber.ErrCapability},
		{"reserved name", chamber.FamilyEspecP300, 1, func(p *chamber.Program) { p.Name = "A,B" }, chamber.ErrValidation},
		{"end mode", chamber.FamilyEspecP300, 1, func(p *chamber.Program) { p.End = "REPEAT" }, chamber.ErrValidation},
		{"next program", chamber.FamilyEspecP300, 1, func(p *chamber.Program) { p.NextProgram = 41 }, chamber.ErrValidation},
		{"three counters", chamber.FamilyEspecP300, 1, func(p *chamber.Program) {
			p.Counters = append(p.Counters, chamber.Counter{})
		}, chamber.ErrValidation},
		{"wait step", chamber.FamilyEspecP300, 1, func(p *chamber.Program) {
			p.Steps[0].Type = chamber.StepWait
		}, chamber.ErrValidation},
		{"seconds", chamber.FamilyEspecP300, 1, func(p *chamber.Program) {
			p.Steps[0].Duration.Seconds = 30
		}, chamber.ErrValidation},
		{"refrigeration capacity", chamber.FamilyEspecP300, 1, func(p *chamber.Program) {
			p.Steps[1].Refrig = &chamber.Refrig{Mode: chamber.RefrigManual, Setpoint: 30}
		}, chamber.ErrValidation},
		{"product control without cascade", chamber.FamilyEspecP300, 1, func(p *chamber.Program) {
			p.Steps[0].Loops[0].EnableCascade = true
		}, chamber.ErrValidation},
		{"event out of range", chamber.FamilyEspecP300, 1, func(p *chamber.Program) {
			p.Steps[0].Events = append(p.Steps[0].Events, chamber.StepEvent{Number: 13, Value: chamber.EventOn})
		}, chamber.ErrCapability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, _, dev := newTestChamber(t, tt.family, humidityProfile())
			p := cycleProgram()
			tt.modify(p)

			err := ch.SetProgram(context.Background(), tt.number, p)
			require.ErrorIs(t, err, tt.err)
			assert.Empty(t, dev.Writes())
		})
	}
}

func TestDeleteProgram(t *testing.T) {
	ch, _, dev := newTestChamber(t, chamber.FamilyEspecP300, humidityProfile())
	ctx := context.Background()

	require.NoError(t, ch.SetProgram(ctx, 4, nil))
	assert.Equal(t, []string{"PRGM ERASE,RAM:4"}, dev.Writes())

	ch, _, _ = newTestChamber(t, chamber.FamilyEspecSCP220, humidityProfile())
	require.ErrorIs(t, ch.SetProgram(ctx, 21, nil), chamber.ErrCapability)
}

func TestProgramList(t *testing.T) {
	ctx := context.Background()

	t.Run("p300", func(t *testing.T) {
		ch, _, dev := newTestChamber(t, chamber.FamilyEspecP300, humidityProfile())
		dev.set("PRGM USE?,RAM", "2,1,3")
		dev.set("PRGM USE?,RAM:1", "SOAK,24.03/01")
		dev.set("PRGM USE?,RAM:3", "CYCLE,24.03/02")

		list, err := ch.GetProgramList(ctx)
		require.NoError(t, err)
		require.Len(t, list, 40)
		assert.Equal(t, chamber.ProgramSummary{Number: 1, Name: "SOAK"}, list[0])
		assert.Equal(t, chamber.ProgramSummary{Number: 2}, list[1])
		assert.Equal(t, chamber.ProgramSummary{Number: 3, Name: "CYCLE"}, list[2])
		assert.Zero(t, dev.count("PRGM USE?,RAM:2"))
	})

	t.Run("scp220 rom programs", func(t *testing.T) {
		ch, _, dev := newTestChamber(t, chamber.FamilyEspecSCP220, humidityProfile())
		dev.set("PRGM USE?,RAM", "0")
		dev.set("PRGM USE?,ROM:21", "FACTORY,00.01/01")

		list, err := ch.GetProgramList(ctx)
		require.NoError(t, err)
		require.Len(t, list, 30)
		assert.Equal(t, chamber.ProgramSummary{Number: 20}, list[19])
		assert.Equal(t, chamber.ProgramSummary{Number: 21, Name: "FACTORY"}, list[20])
		assert.Equal(t, chamber.ProgramSummary{Number: 22}, list[21])
	})

	t.Run("no program support", func(t *testing.T) {
		ch, _, _ := newTestChamber(t, chamber.FamilyEspecP300, chamber.Profile{Loops: 2})
		_, err := ch.GetProgramList(ctx)
		require.ErrorIs(t, err, chamber.ErrCapability)
	})
}

func TestProgramDetails(t *testing.T) {
	ch, _, dev := newTestChamber(t, chamber.FamilyEspecP300, espec.DefaultProfile())
	storedCycleProgram(dev)

	sum, err := ch.GetProgramDetails(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, chamber.ProgramSummary{Number: 1, Name: "CYCLE", Steps: 2}, sum)
}
