package watlowf4

import (
	"fmt"
	"os"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/regmap"
)

// Controller limits.
const (
	maxEvents   = 8
	maxChannels = 2
	maxInputs   = 4
	nameLength  = 10
	clockWords  = 6
)

// Step block layout, relative to the program.step_block register. The block
// spans stepBlockSize registers.
const (
	stepBlockSize   = 60
	offType         = 0
	offStartKind    = 1
	offStartDate    = 2
	offStartDay     = 5
	offTime         = 6
	offWaitEnable   = 9
	offWaitDigital  = 10
	offWaitAnalog   = 18
	offEvents       = 27
	offRate         = 40
	offTargets      = 41
	offPIDSets      = 43
	offGSoak        = 45
	offJump         = 47
	offEndAction    = 57
	offEndTargets   = 58
	analogWaitCount = 3
)

// Step type codes.
const (
	codeAutoStart = 0
	codeRampTime  = 1
	codeRampRate  = 2
	codeSoak      = 3
	codeJump      = 4
	codeEnd       = 5
)

// Values of the program.start (action) register.
const (
	actionCreate = 1
	actionInsert = 2
	actionDelete = 3
	actionStart  = 5
)

var (
	stepCodes = map[chamber.StepType]uint16{
		chamber.StepAutoStart: codeAutoStart,
		chamber.StepRampTime:  codeRampTime,
		chamber.StepRampRate:  codeRampRate,
		chamber.StepSoak:      codeSoak,
		chamber.StepJump:      codeJump,
		chamber.StepEnd:       codeEnd,
	}
	stepTypes = func() map[int16]chamber.StepType {
		m := make(map[int16]chamber.StepType, len(stepCodes))
		for k, v := range stepCodes {
			m[int16(v)] = k //nolint:gosec
		}
		return m
	}()

	endActions = []string{"hold", "controloff", "alloff", "idle"}
	weekdays   = []string{"daily", "sun", "mon", "tue", "wed", "thur", "fri", "sat"}
	unitNames  = []string{"Temp", "%RH", "PSI", ""}
)

// LoadMap reads a YAML register map from path.
func LoadMap(path string) (*regmap.Table[regmap.Register], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("watlowf4: open register map: %w", err)
	}
	defer f.Close()

	return regmap.LoadRegisters(f)
}

// requiredKeys lists the map entries a profile depends on.
func requiredKeys(p *chamber.Profile) []regmap.Key {
	k := func(param regmap.Param, index int) regmap.Key { return regmap.Key{Param: param, Index: index} }

	keys := []regmap.Key{k(regmap.Clock, 0), k(regmap.Status, 0), k(regmap.Terminate, 0)}
	for n := 1; n <= p.Events; n++ {
		keys = append(keys, k(regmap.Event, n))
	}
	for ch := 1; ch <= len(p.LoopMap()); ch++ {
		keys = append(keys,
			k(regmap.LoopSetpoint, ch), k(regmap.LoopProcessValue, ch),
			k(regmap.LoopRangeMin, ch), k(regmap.LoopRangeMax, ch))
	}
	if p.Cascades > 0 {
		keys = append(keys,
			k(regmap.CascadeSetpointAir, 1), k(regmap.CascadeProcessValueProduct, 1),
			k(regmap.CascadeDeviationNegative, 1), k(regmap.CascadeDeviationPositive, 1))
	}
	for _, m := range p.Limits {
		keys = append(keys, k(regmap.LimitInput, m), k(regmap.LimitInputNormal, m))
	}
	if p.Profiles {
		for _, param := range []regmap.Param{
			regmap.Save, regmap.ProgramSelect, regmap.ProgramStartStep, regmap.ProgramStart,
			regmap.ProgramStepBlock, regmap.ProgramPause, regmap.ProgramResume, regmap.ProgramCurrent,
			regmap.ProgramCurrentStep, regmap.ProgramStepTime, regmap.ProgramName, regmap.ProgramFree,
		} {
			keys = append(keys, k(param, 0))
		}
	}

	return keys
}
