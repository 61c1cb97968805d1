package watlowf4t

import "github.com/arloliu/go-chamber/chamber"

// Enumerated register values.
const (
	valAuto       uint16 = 10
	valError      uint16 = 28
	valFail       uint16 = 32
	valHold       uint16 = 47
	valManual     uint16 = 54
	valNo         uint16 = 59
	valNone       uint16 = 61
	valOff        uint16 = 62
	valOn         uint16 = 63
	valStartup    uint16 = 88
	valUser       uint16 = 100
	valYes        uint16 = 106
	valPause      uint16 = 146
	valResume     uint16 = 147
	valTerminate  uint16 = 148
	valRunning    uint16 = 149
	valAdd        uint16 = 1375
	valUp         uint16 = 1456
	valDown       uint16 = 1457
	valNoChange   uint16 = 1557
	valDelete     uint16 = 1772
	valStart      uint16 = 1782
	valTimedStart uint16 = 1783
)

// alarmIdle lists the alarm states that mean no alarm.
var alarmIdle = map[uint16]bool{12: true, valNone: true, valStartup: true}

var names = map[uint16]string{
	1: "2", 2: "3", 3: "50Hz", 4: "60Hz", 9: "ambientError",
	10: "auto", 11: "b", 13: "both", 15: "C", 17: "closeOnAlarm",
	22: "current", 23: "d", 24: "deviationAlarm", 26: "e", 27: "end", 28: "error",
	30: "F", 31: "factory", 32: "fail", 34: "fixedTimeBase", 37: "high", 39: "hours",
	40: "hundredths", 44: "inputDryContact", 46: "j", 47: "hold", 48: "k", 49: "latching",
	53: "low", 54: "manual", 56: "millivolts", 57: "minutes", 58: "n", 59: "no",
	60: "nonLatching", 61: "none", 62: "off", 63: "on", 65: "open", 66: "openOnAlarm",
	68: "output", 73: "power", 75: "process", 76: "processAlarm",
	80: "r", 81: "ramprate", 84: "s", 85: "setPoint", 87: "soak", 88: "startup",
	93: "t", 94: "tenths", 95: "thermocouple", 96: "thousandths",
	100: "user", 103: "variableTimeBase", 104: "volts", 105: "whole", 106: "yes",
	108: "silenceAlarms", 112: "milliamps", 113: "rtd100ohm", 114: "rtd1000ohm", 116: "jump",
	127: "shorted", 129: "clear", 138: "ok", 139: "badCalibrationData",
	140: "measurementError", 141: "rtdError", 142: "analogInput", 146: "pause", 147: "resume",
	148: "terminate", 149: "running", 155: "1kpotentiometer", 160: "heatPower", 161: "coolPower",
	180: "custom", 193: "inputVoltage", 204: "ignore",
	240: "math", 241: "processValue", 242: "setPointClosed", 243: "setPointOpen",
	245: "variable", 246: "notsourced", 251: "notStarted", 252: "complete", 253: "terminated",
	1037: "counts", 1276: "electrical", 1360: "10k", 1361: "20k", 1375: "add",
	1423: "mathError", 1448: "5k", 1449: "40k", 1451: "curveA", 1452: "curveB", 1453: "curveC",
	1456: "up", 1457: "down", 1538: "%RH", 1540: "absoluteTemperature",
	1541: "relativeTemperature", 1542: "wait", 1557: "nc", 1617: "stale", 1667: "safe",
	1740: "encoder", 1770: "edit", 1771: "insert", 1772: "delete", 1779: "profileNumber",
	1782: "start", 1783: "timedStart", 1794: "cascadeHeatPower", 1795: "cascadeCoolPower",
	1796: "cascadePower", 1797: "cascadeSetPointClosed", 1798: "cascadeSetPointOpen",
	1927: "instant", 1928: "ramptime", 1964: "above", 1965: "below", 10001: "condition",
}

var values = func() map[string]uint16 {
	m := make(map[string]uint16, len(names))
	for k, v := range names {
		m[v] = k
	}

	return m
}()

// valueOf returns the register value of an enumerated name.
func valueOf(name string) (uint16, error) {
	v, ok := values[name]
	if !ok {
		return 0, chamber.ValidationErrorf("unknown value %q", name)
	}

	return v, nil
}

var stepTypes = map[uint16]chamber.StepType{
	1927: chamber.StepInstant,
	1928: chamber.StepRampTime,
	81:   chamber.StepRampRate,
	87:   chamber.StepSoak,
	1542: chamber.StepWait,
	116:  chamber.StepJump,
	27:   chamber.StepEnd,
}

var stepTypeValues = func() map[chamber.StepType]uint16 {
	m := make(map[chamber.StepType]uint16, len(stepTypes))
	for k, v := range stepTypes {
		m[v] = k
	}

	return m
}()

var loopModes = map[uint16]string{valOff: "Off", valAuto: "Auto", valManual: "Manual"}

var endModes = map[string]uint16{"user": valUser, "off": valOff, "hold": valHold}

var eventValues = map[chamber.EventValue]uint16{
	chamber.EventOn:       valOn,
	chamber.EventOff:      valOff,
	chamber.EventNoChange: valNoChange,
}
