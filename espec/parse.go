package espec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arloliu/go-chamber/chamber"
)

func badReply(cmd, reply string) error {
	return fmt.Errorf("espec: %s: bad reply %q: %w", cmd, reply, chamber.ErrDecode)
}

func fields(reply string) []string {
	parts := strings.Split(reply, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}

// floatOr parses s, returning def for non-numeric tokens such as "OFF".
func floatOr(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}

	return v
}

func parseFloats(cmd, reply string, tokens ...string) ([]float64, error) {
	out := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, badReply(cmd, reply)
		}
		out[i] = v
	}

	return out, nil
}

// channelState is the TEMP? or HUMI? reply.
type channelState struct {
	ProcessValue float64
	Setpoint     float64
	Enabled      bool
	Range        chamber.Range
}

// parseChannel parses "pv,sp,max,min". A humidity setpoint of OFF means the
// channel is disabled.
func parseChannel(cmd, reply string) (channelState, error) {
	f := fields(reply)
	if len(f) < 4 {
		return channelState{}, badReply(cmd, reply)
	}
	v, err := parseFloats(cmd, reply, f[0], f[2], f[3])
	if err != nil {
		return channelState{}, err
	}
	_, spErr := strconv.ParseFloat(f[1], 64)

	return channelState{
		ProcessValue: v[0],
		Setpoint:     floatOr(f[1], 0),
		Enabled:      spErr == nil,
		Range:        chamber.Range{Max: v[1], Min: v[2]},
	}, nil
}

// constantState is the CONSTANT SET?,TEMP or CONSTANT SET?,HUMI reply.
type constantState struct {
	Setpoint float64
	Enabled  bool
}

func parseConstant(cmd, reply string) (constantState, error) {
	f := fields(reply)
	if len(f) < 2 {
		return constantState{}, badReply(cmd, reply)
	}
	if _, err := strconv.ParseFloat(f[0], 64); err != nil && f[0] != "OFF" {
		return constantState{}, badReply(cmd, reply)
	}

	return constantState{Setpoint: floatOr(f[0], 0), Enabled: f[1] == "ON"}, nil
}

// ptcState is the TEMP PTC? reply.
type ptcState struct {
	Cascade   bool
	Air       float64
	Product   float64
	SPAir     float64
	SPProduct float64
	Deviation chamber.Deviation
}

// parsePTC parses "on,pv product,pv air,sp air,sp product,devp,devn".
func parsePTC(m *model, reply string) (ptcState, error) {
	f := fields(reply)
	if len(f) < 7 {
		return ptcState{}, badReply(cmdTempPTC, reply)
	}
	s := ptcState{
		Cascade:   f[0] == "ON",
		Product:   floatOr(f[1], 0),
		Air:       floatOr(f[2], 0),
		SPAir:     floatOr(f[3], 0),
		SPProduct: floatOr(f[4], 0),
		Deviation: chamber.Deviation{Positive: floatOr(f[5], 0), Negative: floatOr(f[6], 0)},
	}
	if m.swapPTC {
		s.SPAir, s.SPProduct = s.SPProduct, s.SPAir
	}
	if m.negativeMagnitude {
		s.Deviation.Negative = -s.Deviation.Negative
	}

	return s, nil
}

// constantPTC is the CONSTANT SET?,PTC reply.
type constantPTC struct {
	Enabled   bool
	Deviation chamber.Deviation
}

func parseConstantPTC(m *model, reply string) (constantPTC, error) {
	f := fields(reply)
	if len(f) < 3 {
		return constantPTC{}, badReply(cmdConstPTC, reply)
	}
	v, err := parseFloats(cmdConstPTC, reply, f[1], f[2])
	if err != nil {
		return constantPTC{}, err
	}
	s := constantPTC{Enabled: f[0] == "ON", Deviation: chamber.Deviation{Positive: v[0], Negative: v[1]}}
	if m.negativeMagnitude {
		s.Deviation.Negative = -s.Deviation.Negative
	}

	return s, nil
}

// parseHeater parses the "%?" reply into the output of each channel.
func parseHeater(reply string) (map[int]float64, error) {
	f := fields(reply)
	if len(f) < 2 {
		return nil, badReply(cmdHeater, reply)
	}
	v, err := parseFloats(cmdHeater, reply, f[1:]...)
	if err != nil {
		return nil, err
	}
	out := map[int]float64{chTemp: v[0]}
	if len(v) > 1 {
		out[chHumi] = v[1]
	}

	return out, nil
}

// parseList parses a "count,n1,n2,..." reply.
func parseList(cmd, reply string) ([]int, error) {
	f := fields(reply)
	out := []int{}
	for _, tok := range f[1:] {
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, badReply(cmd, reply)
		}
		out = append(out, n)
	}

	return out, nil
}

// monitor is the MON? reply.
type monitor struct {
	Mode   string
	Alarms int
}

// parseMonitor parses "temp,humi,mode,alarms"; humi is empty without humidity.
func parseMonitor(reply string) (monitor, error) {
	f := fields(reply)
	if len(f) < 4 {
		return monitor{}, badReply(cmdMonitor, reply)
	}
	n, err := strconv.Atoi(f[3])
	if err != nil {
		return monitor{}, badReply(cmdMonitor, reply)
	}

	return monitor{Mode: f[2], Alarms: n}, nil
}

// programMonitor is the PRGM MON? reply. Counters hold the remaining cycles.
type programMonitor struct {
	Step     int
	Hours    int
	Minutes  int
	Counters [2]int
}

// parseProgramMonitor parses "step,temp[,humi],h:mm,counter a,counter b".
func parseProgramMonitor(reply string) (programMonitor, error) {
	f := fields(reply)
	if len(f) == 6 {
		f = append(f[:2], f[3:]...)
	}
	if len(f) != 5 {
		return programMonitor{}, badReply(cmdProgramMon, reply)
	}
	h, m, ok := strings.Cut(f[2], ":")
	if !ok {
		return programMonitor{}, badReply(cmdProgramMon, reply)
	}
	vals := make([]int, 0, 5)
	for _, tok := range []string{f[0], h, m, f[3], f[4]} {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return programMonitor{}, badReply(cmdProgramMon, reply)
		}
		vals = append(vals, v)
	}

	if vals[0] < 1 || vals[1] < 0 || vals[2] < 0 || vals[3] < 0 || vals[4] < 0 {
		return programMonitor{}, badReply(cmdProgramMon, reply)
	}

	return programMonitor{Step: vals[0], Hours: vals[1], Minutes: vals[2], Counters: [2]int{vals[3], vals[4]}}, nil
}

var programSetPattern = regexp.MustCompile(`R[AO]M:(\d+),([^,;]+),END\((\w+)\)`)

// parseProgramSet parses the PRGM SET? reply into the running program number
// and name.
func parseProgramSet(reply string) (int, string, error) {
	m := programSetPattern.FindStringSubmatch(reply)
	if m == nil {
		return 0, "", badReply(cmdProgramSet, reply)
	}
	n, _ := strconv.Atoi(m[1])

	return n, m[2], nil
}

var programDataPattern = regexp.MustCompile(
	`(\d+),<([^,;]*)>,COUNT,A\((\d+)\.(\d+)\.(\d+)\),B\((\d+)\.(\d+)\.(\d+)\),END\(([a-zA-Z0-9:]+)\)`)

// programHeader is the PRGM DATA? reply.
type programHeader struct {
	Steps       int
	Name        string
	Counters    [2]chamber.Counter
	End         string
	NextProgram int
}

func parseProgramData(cmd, reply string) (programHeader, error) {
	m := programDataPattern.FindStringSubmatch(reply)
	if m == nil {
		return programHeader{}, badReply(cmd, reply)
	}
	num := func(i int) int {
		v, _ := strconv.Atoi(m[i])
		return v
	}
	h := programHeader{
		Steps: num(1),
		Name:  m[2],
		Counters: [2]chamber.Counter{
			{Start: num(3), End: num(4), Cycles: num(5)},
			{Start: num(6), End: num(7), Cycles: num(8)},
		},
		End: m[9],
	}
	if next, ok := strings.CutPrefix(m[9], "RUN"); ok {
		h.End = "RUN"
		h.NextProgram, _ = strconv.Atoi(strings.TrimLeft(next, ":"))
	}

	return h, nil
}

var programDetailPattern = regexp.MustCompile(
	`([0-9.-]+),([0-9.-]+),(?:(\d+),(\d+),)?TEMP(\w+)(?:,([0-9.-]+))?(?:,HUMI(\w+)(?:,(\d+))?)?`)

// parseProgramRanges parses the operating ranges of PRGM DATA?,...,DETAIL.
func parseProgramRanges(cmd, reply string) (*chamber.Range, *chamber.Range, error) {
	m := programDetailPattern.FindStringSubmatch(reply)
	if m == nil {
		return nil, nil, badReply(cmd, reply)
	}
	temp := &chamber.Range{Max: floatOr(m[1], 0), Min: floatOr(m[2], 0)}
	if m[3] == "" {
		return temp, nil, nil
	}

	return temp, &chamber.Range{Max: floatOr(m[3], 0), Min: floatOr(m[4], 0)}, nil
}

var programStepPattern = regexp.MustCompile(
	`(\d+),TEMP([0-9.-]+),TEMP RAMP (\w+)(?:,PTC (\w+))?(?:,HUMI([^,]+)(?:,HUMI RAMP (\w+))?)?` +
		`,TIME(\d+):(\d+),GRANTY (\w+),REF(\w+)(?:,RELAY ON([0-9.]+))?(?:,PAUSE (\w+))?` +
		`(?:,DEVP([0-9.-]+),DEVN([0-9.-]+))?`)

// programStep is one PRGM DATA?,...,STEPn reply.
type programStep struct {
	Number     int
	Temp       float64
	TempRamp   bool
	PTC        *bool
	Humi       *float64
	HumiRamp   bool
	Hours      int
	Minutes    int
	Guaranteed bool
	Refrig     chamber.Refrig
	Relays     []int
	Paused     bool
	Deviation  *chamber.Deviation
}

func parseProgramStep(m *model, cmd, reply string) (programStep, error) {
	g := programStepPattern.FindStringSubmatch(reply)
	if g == nil {
		return programStep{}, badReply(cmd, reply)
	}
	num := func(i int) int {
		v, _ := strconv.Atoi(g[i])
		return v
	}
	s := programStep{
		Number:     num(1),
		Temp:       floatOr(g[2], 0),
		TempRamp:   g[3] == "ON",
		HumiRamp:   g[6] == "ON",
		Hours:      num(7),
		Minutes:    num(8),
		Guaranteed: g[9] == "ON",
		Refrig:     decodeRefrig("REF" + g[10]),
		Paused:     g[12] == "ON",
	}
	if g[4] != "" {
		on := g[4] == "ON"
		s.PTC = &on
		dev := chamber.Deviation{Positive: floatOr(g[13], 0), Negative: floatOr(g[14], 0)}
		if m.negativeMagnitude {
			dev.Negative = -dev.Negative
		}
		s.Deviation = &dev
	}
	if h := strings.TrimSpace(g[5]); h != "" && h != "OFF" {
		v := floatOr(h, 0)
		s.Humi = &v
	}
	if g[11] != "" {
		for _, tok := range strings.Split(g[11], ".") {
			if n, err := strconv.Atoi(tok); err == nil {
				s.Relays = append(s.Relays, n)
			}
		}
	}

	return s, nil
}
