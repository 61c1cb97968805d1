package regmap

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// RegisterType is the encoding of a register value.
type RegisterType string

const (
	TypeUint16  RegisterType = "uint16"
	TypeInt16   RegisterType = "int16"
	TypeFloat32 RegisterType = "float32"
	TypeString  RegisterType = "string"
)

// Register is a Modbus register address with its encoding.
type Register struct {
	Address uint16       `yaml:"address"`
	Type    RegisterType `yaml:"type,omitempty"`
	// Count is the number of registers a string occupies.
	Count int `yaml:"count,omitempty"`
	// Resolution is the number of decimal places of a scaled integer.
	Resolution int `yaml:"resolution,omitempty"`
	// Bit selects a single bit of the register; nil means the whole register.
	Bit *int `yaml:"bit,omitempty"`
	// Input selects the input register table (function 4) for reads.
	Input bool `yaml:"input,omitempty"`
}

// Words returns the number of registers the value occupies.
func (r Register) Words() int {
	switch r.Type {
	case TypeFloat32:
		return 2
	case TypeString:
		if r.Count > 0 {
			return r.Count
		}
		return 1
	default:
		return 1
	}
}

// Offset returns a copy of r shifted by delta registers.
func (r Register) Offset(delta int) Register {
	r.Address = uint16(int(r.Address) + delta) //nolint:gosec
	return r
}

// Reg is shorthand for an unsigned register.
func Reg(addr uint16) Register { return Register{Address: addr, Type: TypeUint16} }

// Signed is shorthand for a signed register at a resolution.
func Signed(addr uint16, resolution int) Register {
	return Register{Address: addr, Type: TypeInt16, Resolution: resolution}
}

// Float is shorthand for a two register float.
func Float(addr uint16) Register { return Register{Address: addr, Type: TypeFloat32} }

// String is shorthand for a string of count registers.
func String(addr uint16, count int) Register {
	return Register{Address: addr, Type: TypeString, Count: count}
}

func (r *Register) validate() error {
	switch r.Type {
	case "":
		r.Type = TypeUint16
	case TypeUint16, TypeInt16, TypeFloat32, TypeString:
	default:
		return fmt.Errorf("unknown type %q", r.Type)
	}
	if r.Resolution < 0 || r.Resolution > 6 {
		return fmt.Errorf("resolution %d out of range [0, 6]", r.Resolution)
	}
	if r.Bit != nil && (*r.Bit < 0 || *r.Bit > 15) {
		return fmt.Errorf("bit %d out of range [0, 15]", *r.Bit)
	}
	if r.Type == TypeString && r.Count < 1 {
		return errors.New("string needs a count")
	}

	return nil
}

type registerFile struct {
	Name      string          `yaml:"name"`
	Registers []registerEntry `yaml:"registers"`
}

type registerEntry struct {
	Param    Param `yaml:"param"`
	Index    int   `yaml:"index"`
	Register `yaml:",inline"`
}

// LoadRegisters parses a YAML register map. Unknown parameters, duplicate keys
// and invalid encodings are rejected.
func LoadRegisters(r io.Reader) (*Table[Register], error) {
	var doc registerFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("regmap: parse register map: %w", err)
	}
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		name = "register map"
	}
	t := NewTable[Register](name)
	for i, e := range doc.Registers {
		if !e.Param.Known() {
			return nil, fmt.Errorf("regmap: entry %d: unknown param %q", i+1, e.Param)
		}
		if e.Index < 0 {
			return nil, fmt.Errorf("regmap: entry %d: negative index", i+1)
		}
		if err := e.Register.validate(); err != nil {
			return nil, fmt.Errorf("regmap: entry %d (%s): %w", i+1, Key{e.Param, e.Index}, err)
		}
		if t.Has(e.Param, e.Index) {
			return nil, fmt.Errorf("regmap: entry %d: duplicate %s", i+1, Key{e.Param, e.Index})
		}
		t.Set(e.Param, e.Index, e.Register)
	}

	return t, nil
}
