package regmap

// Param names a logical controller parameter.
type Param string

// Chamber-wide parameters.
const (
	Clock  Param = "clock"
	Status Param = "status"
	Alarm  Param = "alarm"
	Limit  Param = "limit"
	// LimitInput and LimitInputNormal are a digital input wired to a limit
	// controller and the value it reads while the limit is healthy.
	LimitInput       Param = "limit.input"
	LimitInputNormal Param = "limit.input.normal"
	RunInput         Param = "run_input"
	TemperatureUnits Param = "temperature.units"
	PartNumber       Param = "part_number"
	Event            Param = "event"
	EventKey         Param = "event.key"
	Terminate        Param = "terminate"
	Save             Param = "save"
)

// Loop parameters, indexed by loop number.
const (
	LoopSetpoint        Param = "loop.setpoint"
	LoopSetpointCurrent Param = "loop.setpoint.current"
	LoopProcessValue    Param = "loop.processvalue"
	LoopRangeMin        Param = "loop.range.min"
	LoopRangeMax        Param = "loop.range.max"
	LoopMode            Param = "loop.mode"
	LoopModeCurrent     Param = "loop.mode.current"
	LoopPower           Param = "loop.power"
	LoopPowerCurrent    Param = "loop.power.current"
	LoopOutputB         Param = "loop.power.output_b"
	LoopUnits           Param = "loop.units"
	LoopDecimals        Param = "loop.decimals"
)

// Cascade parameters, indexed by cascade number.
const (
	CascadeSetpoint            Param = "cascade.setpoint"
	CascadeSetpointAir         Param = "cascade.setpoint.air"
	CascadeSetpointProduct     Param = "cascade.setpoint.product"
	CascadeProcessValueAir     Param = "cascade.processvalue.air"
	CascadeProcessValueProduct Param = "cascade.processvalue.product"
	CascadeRangeMin            Param = "cascade.range.min"
	CascadeRangeMax            Param = "cascade.range.max"
	CascadeEnable              Param = "cascade.enable"
	CascadeEnableCurrent       Param = "cascade.enable.current"
	CascadeControl             Param = "cascade.control"
	CascadeDeviationNegative   Param = "cascade.deviation.negative"
	CascadeDeviationPositive   Param = "cascade.deviation.positive"
	CascadePower               Param = "cascade.power"
	CascadePowerCurrent        Param = "cascade.power.current"
)

// Program control parameters.
const (
	ProgramSelect      Param = "program.select"
	ProgramStartStep   Param = "program.start_step"
	ProgramStart       Param = "program.start"
	ProgramPause       Param = "program.pause"
	ProgramResume      Param = "program.resume"
	ProgramCurrent     Param = "program.current"
	ProgramCurrentStep Param = "program.current_step"
	ProgramStepTime    Param = "program.step_time"
	ProgramTime        Param = "program.time"
	ProgramName        Param = "program.name"
	ProgramSteps       Param = "program.steps"
	ProgramEditSelect  Param = "program.edit.select"
	ProgramEditStep    Param = "program.edit.step"
	ProgramEditAction  Param = "program.edit.action"
	ProgramEditName    Param = "program.edit.name"
	ProgramStepBlock   Param = "program.step_block"
	ProgramCycles      Param = "program.cycles"
	ProgramFree        Param = "program.free"
)

// Known reports whether p is one of the parameters above.
func (p Param) Known() bool {
	_, ok := known[p]
	return ok
}

var known = func() map[Param]struct{} {
	m := map[Param]struct{}{}
	for _, p := range []Param{
		Clock, Status, Alarm, Limit, LimitInput, LimitInputNormal, RunInput, TemperatureUnits, PartNumber, Event, EventKey, Terminate, Save,
		LoopSetpoint, LoopSetpointCurrent, LoopProcessValue, LoopRangeMin, LoopRangeMax, LoopMode,
		LoopModeCurrent, LoopPower, LoopPowerCurrent, LoopOutputB, LoopUnits, LoopDecimals,
		CascadeSetpoint, CascadeSetpointAir, CascadeSetpointProduct, CascadeProcessValueAir,
		CascadeProcessValueProduct, CascadeRangeMin, CascadeRangeMax, CascadeEnable, CascadeEnableCurrent,
		CascadeControl, CascadeDeviationNegative, CascadeDeviationPositive, CascadePower, CascadePowerCurrent,
		ProgramSelect, ProgramStartStep, ProgramStart, ProgramPause, ProgramResume, ProgramCurrent,
		ProgramCurrentStep, ProgramStepTime, ProgramTime, ProgramName, ProgramSteps, ProgramEditSelect,
		ProgramEditStep, ProgramEditAction, ProgramEditName, ProgramStepBlock, ProgramCycles,
		ProgramFree,
	} {
		m[p] = struct{}{}
	}

	return m
}()
