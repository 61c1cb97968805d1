package chamber

import (
	"fmt"
	"strconv"
	"strings"
)

// LoopSettings is the canonical write shape for SetLoop. Nil fields are left
// untouched. Values are the constant (configured) side of each field.
type LoopSettings struct {
	Mode          *string    `json:"mode,omitempty" yaml:"mode,omitempty"`
	Setpoint      *float64   `json:"setpoint,omitempty" yaml:"setpoint,omitempty"`
	Range         *Range     `json:"range,omitempty" yaml:"range,omitempty"`
	Enable        *bool      `json:"enable,omitempty" yaml:"enable,omitempty"`
	Power         *float64   `json:"power,omitempty" yaml:"power,omitempty"`
	Deviation     *Deviation `json:"deviation,omitempty" yaml:"deviation,omitempty"`
	EnableCascade *bool      `json:"enable_cascade,omitempty" yaml:"enable_cascade,omitempty"`
}

// writeOrder is the order SetLoop applies fields in. Mode goes first so that
// a loop switched on accepts the following values.
var writeOrder = []Field{
	FieldMode, FieldSetpoint, FieldRange, FieldEnable, FieldPower, FieldDeviation, FieldEnableCascade,
}

// Fields returns the fields present in s in write order.
func (s *LoopSettings) Fields() []Field {
	present := map[Field]bool{
		FieldMode:          s.Mode != nil,
		FieldSetpoint:      s.Setpoint != nil,
		FieldRange:         s.Range != nil,
		FieldEnable:        s.Enable != nil,
		FieldPower:         s.Power != nil,
		FieldDeviation:     s.Deviation != nil,
		FieldEnableCascade: s.EnableCascade != nil,
	}
	out := make([]Field, 0, len(writeOrder))
	for _, f := range writeOrder {
		if present[f] {
			out = append(out, f)
		}
	}

	return out
}

// Validate checks value ranges that do not depend on the device.
func (s *LoopSettings) Validate() error {
	if s.Range != nil && s.Range.Min > s.Range.Max {
		return ValidationErrorf("range min %v greater than max %v", s.Range.Min, s.Range.Max)
	}
	if s.Power != nil && (*s.Power < -100 || *s.Power > 100) {
		return ValidationErrorf("power %v out of range [-100, 100]", *s.Power)
	}
	if s.Deviation != nil && (s.Deviation.Positive < 0) {
		return ValidationErrorf("positive deviation %v must not be negative", s.Deviation.Positive)
	}

	return nil
}

// ParseLoopSettings normalizes a loosely shaped settings document, such as a
// decoded JSON or YAML object, into LoopSettings.
//
// Both the nested form {"setpoint": {"constant": 50}} and the shorthand form
// {"setpoint": 50} are accepted. Unknown keys are ignored.
func ParseLoopSettings(doc map[string]any) (*LoopSettings, error) {
	s := &LoopSettings{}
	for key, raw := range doc {
		f, err := ParseField(key)
		if err != nil {
			continue
		}
		if err := s.assign(f, raw); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *LoopSettings) assign(f Field, raw any) error {
	switch f {
	case FieldMode:
		v, err := asString(constantOf(raw))
		if err != nil {
			return fieldErr(f, err)
		}
		s.Mode = &v
	case FieldSetpoint:
		v, err := asFloat(constantOf(raw))
		if err != nil {
			return fieldErr(f, err)
		}
		s.Setpoint = &v
	case FieldPower:
		v, err := asFloat(constantOf(raw))
		if err != nil {
			return fieldErr(f, err)
		}
		s.Power = &v
	case FieldEnable:
		v, err := asBool(constantOf(raw))
		if err != nil {
			return fieldErr(f, err)
		}
		s.Enable = &v
	case FieldEnableCascade:
		v, err := asBool(constantOf(raw))
		if err != nil {
			return fieldErr(f, err)
		}
		s.EnableCascade = &v
	case FieldRange:
		m, ok := constantOf(raw).(map[string]any)
		if !ok {
			return fieldErr(f, fmt.Errorf("expected {min, max}, got %T", raw))
		}
		lo, err1 := asFloat(m["min"])
		hi, err2 := asFloat(m["max"])
		if err1 != nil || err2 != nil {
			return fieldErr(f, fmt.Errorf("expected numeric min and max"))
		}
		s.Range = &Range{Min: lo, Max: hi}
	case FieldDeviation:
		m, ok := constantOf(raw).(map[string]any)
		if !ok {
			return fieldErr(f, fmt.Errorf("expected {positive, negative}, got %T", raw))
		}
		pos, err1 := asFloat(m["positive"])
		neg, err2 := asFloat(m["negative"])
		if err1 != nil || err2 != nil {
			return fieldErr(f, fmt.Errorf("expected numeric positive and negative"))
		}
		s.Deviation = &Deviation{Positive: pos, Negative: neg}
	case FieldProcessValue, FieldUnits:
		// read-only
	}

	return nil
}

// constantOf unwraps the nested {"constant": v} form.
func constantOf(raw any) any {
	if m, ok := raw.(map[string]any); ok {
		if v, ok := m["constant"]; ok {
			return v
		}
	}

	return raw
}

func fieldErr(f Field, err error) error {
	return ValidationErrorf("%s: %v", f, err)
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}

	return 0, fmt.Errorf("expected number, got %T", v)
}

func asBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "on", "true", "yes", "1":
			return true, nil
		case "off", "false", "no", "0":
			return false, nil
		}
	case int:
		return x != 0, nil
	case float64:
		return x != 0, nil
	}

	return false, fmt.Errorf("expected boolean, got %v", v)
}

func asString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}

	return "", fmt.Errorf("expected string, got %T", v)
}
