package watlowf4t

import (
	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/regmap"
)

// Register layout strides and counts.
const (
	loopStride    = 160
	cascadeStride = 200
	alarmStride   = 100
	limitStride   = 60
	ioStride      = 40
	keyStride     = 20
	unitsStride   = 2
	nameStride    = 40
	clockStride   = 2

	// Profile (program) events and front panel key events.
	profileEvents = 8
	keyEvents     = 4
	maxEvents     = profileEvents + keyEvents

	// maxChannels bounds loops plus cascades.
	maxChannels = 4
	maxModules  = 6
	maxIO       = 6
	maxWaits    = 4

	nameLength     = 20
	partNumberSize = 15
)

// Limit controller registers relative to the Limit entry.
const (
	limitErrorOffset  = 38
	limitStatusOffset = 14
)

// Program edit block layout. Step registers are relative to the start of a
// step block; blocks repeat every stepStride registers.
const (
	programLog      uint16 = 19038
	programGSoakDev uint16 = 19086
	stepStride             = 170
	stepType               = 0
	stepHours              = 2
	stepMinutes            = 4
	stepSeconds            = 6
	stepJumpStep           = 8
	stepJumpCount          = 10
	stepRates              = 12
	stepTargets            = 20
	stepWaits              = 28
	stepGSoakEvents        = 44
	stepEventsLow          = 8
	stepEventsHigh         = 24
	stepEndModes           = 76
	waitStride             = 4
	eventsBlockSize        = 32
)

var (
	eventRegisters = [maxEvents]uint16{
		16594, 16596, 16598, 16600, 16822, 16824, 16826, 16828, 6844, 6864, 6884, 6904,
	}
	runIORegisters = [maxModules]uint16{33718, 33958, 34198, 34438, 34678, 34918}
)

func fl(addr uint16) regmap.Register {
	return regmap.Register{Address: addr, Type: regmap.TypeFloat32, Resolution: 1}
}

// newRegisterMap computes the register table of a profile.
func newRegisterMap(p *chamber.Profile, framing modbus.Framing) *regmap.Table[regmap.Register] {
	t := regmap.NewTable[regmap.Register]("watlow-f4t")

	t.Set(regmap.Clock, 0, regmap.Reg(14664))
	t.Set(regmap.Status, 0, regmap.Reg(16568))
	t.Set(regmap.PartNumber, 0, regmap.String(16, partNumberSize))
	if framing == modbus.RTU {
		t.Set(regmap.TemperatureUnits, 0, regmap.Reg(14080))
	} else {
		t.Set(regmap.TemperatureUnits, 0, regmap.Reg(6730))
	}
	if p.RunModule > 0 && p.RunIO > 0 {
		t.Set(regmap.RunInput, 0, regmap.Reg(runIORegisters[p.RunModule-1]+uint16((p.RunIO-1)*ioStride))) //nolint:gosec
	}

	for n := 1; n <= p.Loops; n++ {
		off := uint16((n - 1) * loopStride) //nolint:gosec
		t.Set(regmap.LoopSetpoint, n, fl(2782+off)).
			Set(regmap.LoopSetpointCurrent, n, fl(2810+off)).
			Set(regmap.LoopProcessValue, n, fl(2820+off)).
			Set(regmap.LoopRangeMin, n, fl(2774+off)).
			Set(regmap.LoopRangeMax, n, fl(2776+off)).
			Set(regmap.LoopMode, n, regmap.Reg(2730+off)).
			Set(regmap.LoopModeCurrent, n, regmap.Reg(2814+off)).
			Set(regmap.LoopPower, n, fl(2784+off)).
			Set(regmap.LoopPowerCurrent, n, fl(2808+off))
	}
	for n := 1; n <= p.Cascades; n++ {
		off := uint16((n - 1) * cascadeStride) //nolint:gosec
		t.Set(regmap.CascadeSetpoint, n, fl(4042+off)).
			Set(regmap.CascadeSetpointAir, n, fl(4188+off)).
			Set(regmap.CascadeSetpointProduct, n, fl(4190+off)).
			Set(regmap.CascadeProcessValueProduct, n, fl(4180+off)).
			Set(regmap.CascadeProcessValueAir, n, fl(4182+off)).
			Set(regmap.CascadeRangeMin, n, fl(4034+off)).
			Set(regmap.CascadeRangeMax, n, fl(4036+off)).
			Set(regmap.CascadeEnable, n, regmap.Reg(4010+off)).
			Set(regmap.CascadeEnableCurrent, n, regmap.Reg(4012+off)).
			Set(regmap.CascadeControl, n, regmap.Reg(4200+off)).
			Set(regmap.CascadeDeviationNegative, n, fl(4168+off)).
			Set(regmap.CascadeDeviationPositive, n, fl(4170+off)).
			Set(regmap.CascadePower, n, fl(4044+off)).
			Set(regmap.CascadePowerCurrent, n, fl(4178+off))
	}
	for i := range p.LoopMap() {
		t.Set(regmap.LoopUnits, i+1, regmap.Reg(16536+uint16(i*unitsStride))) //nolint:gosec
	}

	for n := 1; n <= p.Events && n <= maxEvents; n++ {
		t.Set(regmap.Event, n, regmap.Reg(eventRegisters[n-1]))
		if n > profileEvents {
			t.Set(regmap.EventKey, n, regmap.Reg(6850+uint16((n-profileEvents-1)*keyStride))) //nolint:gosec
		}
	}
	for i := 1; i <= p.Alarms; i++ {
		t.Set(regmap.Alarm, i, regmap.Reg(1356+uint16((i-1)*alarmStride))) //nolint:gosec
	}
	for _, m := range p.Limits {
		t.Set(regmap.Limit, m, regmap.Reg(11250+uint16((m-1)*limitStride))) //nolint:gosec
	}

	if !p.Profiles {
		return t
	}
	t.Set(regmap.Terminate, 0, regmap.Reg(16566)).
		Set(regmap.ProgramPause, 0, regmap.Reg(16566)).
		Set(regmap.ProgramResume, 0, regmap.Reg(16564)).
		Set(regmap.ProgramSelect, 0, regmap.Reg(16558)).
		Set(regmap.ProgramStartStep, 0, regmap.Reg(16560)).
		Set(regmap.ProgramStart, 0, regmap.Reg(16562)).
		Set(regmap.ProgramCurrent, 0, regmap.Reg(16588)).
		Set(regmap.ProgramCurrentStep, 0, regmap.Reg(16590)).
		Set(regmap.ProgramStepTime, 0, regmap.Register{Address: 16622, Type: regmap.TypeUint16, Count: 5}).
		Set(regmap.ProgramTime, 0, regmap.Register{Address: 16570, Type: regmap.TypeUint16, Count: 3}).
		Set(regmap.ProgramEditSelect, 0, regmap.Reg(18888)).
		Set(regmap.ProgramEditAction, 0, regmap.Reg(18890)).
		Set(regmap.ProgramSteps, 0, regmap.Reg(18920)).
		Set(regmap.ProgramEditName, 0, regmap.String(18606, nameLength)).
		Set(regmap.ProgramStepBlock, 0, regmap.Reg(19094))
	for n := 1; n <= Limits.Programs; n++ {
		t.Set(regmap.ProgramName, n, regmap.String(16886+uint16((n-1)*nameStride), nameLength)) //nolint:gosec
	}

	return t
}
