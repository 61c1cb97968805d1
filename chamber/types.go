package chamber

import (
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-chamber/internal/util"
)

// Family identifies a controller family and firmware profile.
type Family string

const (
	FamilyWatlowF4T   Family = "watlowf4t"
	FamilyWatlowF4    Family = "watlowf4"
	FamilyEspecP300   Family = "p300"
	FamilyEspecSCP220 Family = "scp220"
)

// ParseFamily parses a controller family name, case-insensitively.
func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case FamilyWatlowF4T, FamilyWatlowF4, FamilyEspecP300, FamilyEspecSCP220:
		return f, nil
	case "f4t":
		return FamilyWatlowF4T, nil
	case "f4":
		return FamilyWatlowF4, nil
	case "espec", "es102":
		return FamilyEspecP300, nil
	}

	return "", ValidationErrorf("unknown controller %q", s)
}

// LoopType distinguishes standard control loops from cascade loops.
type LoopType string

const (
	LoopStandard LoopType = "loop"
	LoopCascade  LoopType = "cascade"
)

// ParseLoopType parses "loop" or "cascade".
func ParseLoopType(s string) (LoopType, error) {
	switch LoopType(strings.ToLower(strings.TrimSpace(s))) {
	case LoopStandard:
		return LoopStandard, nil
	case LoopCascade:
		return LoopCascade, nil
	}

	return "", ValidationErrorf("unknown loop type %q", s)
}

// LoopRef addresses a loop or cascade by its 1-based number.
type LoopRef struct {
	Type   LoopType `json:"type" yaml:"type"`
	Number int      `json:"number" yaml:"number"`
}

func (r LoopRef) String() string {
	return fmt.Sprintf("%s %d", r.Type, r.Number)
}

// Field names a loop attribute.
type Field string

const (
	FieldSetpoint      Field = "setpoint"
	FieldProcessValue  Field = "processvalue"
	FieldRange         Field = "range"
	FieldEnable        Field = "enable"
	FieldUnits         Field = "units"
	FieldMode          Field = "mode"
	FieldPower         Field = "power"
	FieldDeviation     Field = "deviation"
	FieldEnableCascade Field = "enable_cascade"
)

var (
	standardFields = []Field{
		FieldSetpoint, FieldProcessValue, FieldRange, FieldEnable, FieldUnits, FieldMode, FieldPower,
	}
	cascadeFields = append(util.CloneSlice(standardFields, 0), FieldDeviation, FieldEnableCascade)
)

// DefaultFields returns every known field for the loop type in canonical order.
func DefaultFields(t LoopType) []Field {
	if t == LoopCascade {
		return util.CloneSlice(cascadeFields, 0)
	}

	return util.CloneSlice(standardFields, 0)
}

// IsCascadeOnly reports whether the field only exists on cascade loops.
func (f Field) IsCascadeOnly() bool {
	return f == FieldDeviation || f == FieldEnableCascade
}

// ParseField parses a field name, accepting the camelCase aliases used by
// older clients.
func ParseField(s string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if f, ok := fieldAliases[key]; ok {
		return f, nil
	}

	return "", ValidationErrorf("unknown loop field %q", s)
}

var fieldAliases = map[string]Field{
	"setpoint":       FieldSetpoint,
	"setvalue":       FieldSetpoint,
	"processvalue":   FieldProcessValue,
	"range":          FieldRange,
	"enable":         FieldEnable,
	"units":          FieldUnits,
	"mode":           FieldMode,
	"power":          FieldPower,
	"deviation":      FieldDeviation,
	"enable_cascade": FieldEnableCascade,
	"enablecascade":  FieldEnableCascade,
}

// Setpoint holds the configured (constant) and active (current) setpoint. Air and
// Product are reported by cascade loops.
type Setpoint struct {
	Constant float64  `json:"constant" yaml:"constant"`
	Current  float64  `json:"current" yaml:"current"`
	Air      *float64 `json:"air,omitempty" yaml:"air,omitempty"`
	Product  *float64 `json:"product,omitempty" yaml:"product,omitempty"`
}

// ProcessValue holds the measured value. Cascades report the product too.
type ProcessValue struct {
	Air     float64  `json:"air" yaml:"air"`
	Product *float64 `json:"product,omitempty" yaml:"product,omitempty"`
}

// Range holds the allowed setpoint range.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Toggle holds a configured and active boolean.
type Toggle struct {
	Constant bool `json:"constant" yaml:"constant"`
	Current  bool `json:"current" yaml:"current"`
}

// ModeValue holds a configured and active loop mode name.
type ModeValue struct {
	Constant string `json:"constant" yaml:"constant"`
	Current  string `json:"current" yaml:"current"`
}

// Power holds the configured and active output power in percent.
type Power struct {
	Constant float64 `json:"constant" yaml:"constant"`
	Current  float64 `json:"current" yaml:"current"`
}

// Deviation holds the cascade deviation limits. Negative is reported as a
// negative number.
type Deviation struct {
	Positive float64 `json:"positive" yaml:"positive"`
	Negative float64 `json:"negative" yaml:"negative"`
}

// Loop is a view of a loop or cascade. Fields that were not requested are nil.
type Loop struct {
	Type          LoopType      `json:"type" yaml:"type"`
	Number        int           `json:"number" yaml:"number"`
	Name          string        `json:"name,omitempty" yaml:"name,omitempty"`
	Setpoint      *Setpoint     `json:"setpoint,omitempty" yaml:"setpoint,omitempty"`
	ProcessValue  *ProcessValue `json:"processvalue,omitempty" yaml:"processvalue,omitempty"`
	Range         *Range        `json:"range,omitempty" yaml:"range,omitempty"`
	Enable        *Toggle       `json:"enable,omitempty" yaml:"enable,omitempty"`
	Units         *string       `json:"units,omitempty" yaml:"units,omitempty"`
	Mode          *ModeValue    `json:"mode,omitempty" yaml:"mode,omitempty"`
	Power         *Power        `json:"power,omitempty" yaml:"power,omitempty"`
	Deviation     *Deviation    `json:"deviation,omitempty" yaml:"deviation,omitempty"`
	EnableCascade *Toggle       `json:"enable_cascade,omitempty" yaml:"enable_cascade,omitempty"`
}

// Fields returns the populated fields in canonical order.
func (l *Loop) Fields() []Field {
	present := map[Field]bool{
		FieldSetpoint:      l.Setpoint != nil,
		FieldProcessValue:  l.ProcessValue != nil,
		FieldRange:         l.Range != nil,
		FieldEnable:        l.Enable != nil,
		FieldUnits:         l.Units != nil,
		FieldMode:          l.Mode != nil,
		FieldPower:         l.Power != nil,
		FieldDeviation:     l.Deviation != nil,
		FieldEnableCascade: l.EnableCascade != nil,
	}
	out := make([]Field, 0, len(cascadeFields))
	for _, f := range cascadeFields {
		if present[f] {
			out = append(out, f)
		}
	}

	return out
}

// Ref returns the loop's address.
func (l *Loop) Ref() LoopRef { return LoopRef{Type: l.Type, Number: l.Number} }

// Event is the state of a digital event output.
type Event struct {
	Number   int  `json:"number" yaml:"number"`
	Constant bool `json:"constant" yaml:"constant"`
	Current  bool `json:"current" yaml:"current"`
}

// RefrigMode is the refrigeration control mode.
type RefrigMode string

const (
	RefrigOff    RefrigMode = "off"
	RefrigManual RefrigMode = "manual"
	RefrigAuto   RefrigMode = "auto"
)

// Refrig holds the refrigeration settings. Setpoint is the manual capacity in percent.
type Refrig struct {
	Mode     RefrigMode `json:"mode" yaml:"mode"`
	Setpoint float64    `json:"setpoint" yaml:"setpoint"`
}

// Validate checks the mode and setpoint.
func (r Refrig) Validate() error {
	switch r.Mode {
	case RefrigOff, RefrigAuto:
		return nil
	case RefrigManual:
		if r.Setpoint < 0 || r.Setpoint > 100 {
			return ValidationErrorf("refrigeration setpoint %v out of range [0, 100]", r.Setpoint)
		}
		return nil
	}

	return ValidationErrorf("unknown refrigeration mode %q", r.Mode)
}

// Sample is a snapshot of the chamber for data logging.
type Sample struct {
	Datetime time.Time `json:"datetime" yaml:"datetime"`
	Loops    []*Loop   `json:"loops" yaml:"loops"`
	Status   string    `json:"status" yaml:"status"`
}
