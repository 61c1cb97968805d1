package espec

import (
	"fmt"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/regmap"
)

// Physical channels.
const (
	chTemp = 1
	chHumi = 2
)

var channelNames = map[int]string{chTemp: "TEMP", chHumi: "HUMI"}

var channelUnits = map[int]string{chTemp: "°C", chHumi: "%RH"}

// Fixed commands.
const (
	cmdROM          = "ROM?"
	cmdDate         = "DATE?"
	cmdTime         = "TIME?"
	cmdMonitor      = "MON?"
	cmdAlarm        = "ALARM?"
	cmdRelay        = "RELAY?"
	cmdConstRelay   = "CONSTANT SET?,RELAY"
	cmdConstRefrig  = "CONSTANT SET?,REF"
	cmdHeater       = "%?"
	cmdTempPTC      = "TEMP PTC?"
	cmdConstPTC     = "CONSTANT SET?,PTC"
	cmdProgramSet   = "PRGM SET?"
	cmdProgramMon   = "PRGM MON?"
	cmdProgramUsed  = "PRGM USE?,RAM"
	cmdModeConstant = "MODE,CONSTANT"
	cmdModeStandby  = "MODE,STANDBY"
	cmdPause        = "PRGM,PAUSE"
	cmdContinue     = "PRGM,CONTINUE"
	cmdAdvance      = "PRGM,ADVANCE"
)

// model holds the differences between firmware profiles of the command set.
type model struct {
	family chamber.Family
	name   string
	limits chamber.Limits
	// ramPrograms is the number of writable RAM programs; higher numbers are
	// ROM programs.
	ramPrograms int
	modeQuery   string
	// negativeMagnitude marks firmware reporting and expecting the negative
	// PTCON deviation as a positive number.
	negativeMagnitude bool
	// swapPTC marks firmware reporting the TEMP PTC? setpoints product first.
	swapPTC bool
	// programRanges marks firmware answering PRGM DATA?,...,DETAIL.
	programRanges bool
	// autoRefrig maps every refrigeration reply other than manual or off to auto.
	autoRefrig bool
}

var p300 = &model{
	family:        chamber.FamilyEspecP300,
	name:          "P300",
	limits:        chamber.Limits{Programs: 40, WritablePrograms: 40, MaxSteps: 99},
	ramPrograms:   40,
	modeQuery:     "MODE?,DETAIL",
	programRanges: true,
}

var scp220 = &model{
	family:            chamber.FamilyEspecSCP220,
	name:              "SCP-220",
	limits:            chamber.Limits{Programs: 30, WritablePrograms: 20, MaxSteps: 99},
	ramPrograms:       20,
	modeQuery:         "MODE?",
	negativeMagnitude: true,
	swapPTC:           true,
	autoRefrig:        true,
}

// memory returns the program memory token of program n.
func (m *model) memory(n int) string {
	if n <= m.ramPrograms {
		return fmt.Sprintf("RAM:%d", n)
	}

	return fmt.Sprintf("ROM:%d", n)
}

// channelOf maps a loop address to a physical channel. Cascade 1 is always
// temperature; loops follow it.
func channelOf(p *chamber.Profile, ref chamber.LoopRef) int {
	if ref.Type == chamber.LoopCascade {
		return chTemp
	}

	return ref.Number + p.Cascades
}

// commandTable lists the loop queries a profile exposes, keyed by channel.
func commandTable(m *model, p *chamber.Profile) *regmap.Table[string] {
	t := regmap.NewTable[string](m.name)
	t.Set(regmap.Status, 0, m.modeQuery)
	t.Set(regmap.Alarm, 0, cmdAlarm)
	t.Set(regmap.LoopPower, 0, cmdHeater)
	for _, ref := range p.LoopMap() {
		ch := channelOf(p, ref)
		name := channelNames[ch]
		t.Set(regmap.LoopProcessValue, ch, name+"?")
		t.Set(regmap.LoopSetpoint, ch, "CONSTANT SET?,"+name)
	}
	if p.Cascades > 0 {
		t.Set(regmap.CascadeProcessValueProduct, 1, cmdTempPTC)
		t.Set(regmap.CascadeControl, 1, cmdConstPTC)
	}

	return t
}
