package regmap_test

import (
	"os"
	"strings"
	"testing"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/regmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Resolve(t *testing.T) {
	tbl := regmap.NewTable[regmap.Register]("model x").
		Set(regmap.LoopSetpoint, 1, regmap.Signed(300, 1)).
		Set(regmap.Clock, 0, regmap.Reg(1916))

	r, err := tbl.Resolve(regmap.LoopSetpoint, 1)
	require.NoError(t, err)
	assert.Equal(t, regmap.Register{Address: 300, Type: regmap.TypeInt16, Resolution: 1}, r)
	assert.True(t, tbl.Has(regmap.Clock, 0))
	assert.Equal(t, 2, tbl.Len())

	_, err = tbl.Resolve(regmap.LoopSetpoint, 2)
	require.ErrorIs(t, err, chamber.ErrCapability)
	assert.Contains(t, err.Error(), "model x has no loop.setpoint[2]")

	assert.Equal(t, []regmap.Key{{Param: regmap.Clock}, {Param: regmap.LoopSetpoint, Index: 1}}, tbl.Keys())
}

func TestTable_Require(t *testing.T) {
	tbl := regmap.NewTable[string]("ascii").Set(regmap.Event, 1, "RELAY")

	require.NoError(t, tbl.Require(regmap.Key{Param: regmap.Event, Index: 1}))
	err := tbl.Require(
		regmap.Key{Param: regmap.Event, Index: 1},
		regmap.Key{Param: regmap.Event, Index: 2},
		regmap.Key{Param: regmap.Status},
	)
	require.ErrorIs(t, err, chamber.ErrCapability)
	assert.Contains(t, err.Error(), "event[2]")
	assert.Contains(t, err.Error(), "status")
}

func TestRegister_Words(t *testing.T) {
	assert.Equal(t, 1, regmap.Reg(1).Words())
	assert.Equal(t, 2, regmap.Float(1).Words())
	assert.Equal(t, 20, regmap.String(1, 20).Words())
	assert.Equal(t, uint16(110), regmap.Reg(100).Offset(10).Address)
}

func TestLoadRegisters(t *testing.T) {
	const doc = `
name: test map
registers:
  - {param: loop.setpoint, index: 1, address: 300, type: int16, resolution: 1}
  - {param: event, index: 1, address: 2000}
  - {param: program.name, address: 3500, type: string, count: 10}
  - {param: run_input, address: 33718, bit: 3, input: true}
`
	tbl, err := regmap.LoadRegisters(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "test map", tbl.Name())
	assert.Equal(t, 4, tbl.Len())

	r, err := tbl.Resolve(regmap.Event, 1)
	require.NoError(t, err)
	assert.Equal(t, regmap.TypeUint16, r.Type, "type defaults to uint16")

	r, err = tbl.Resolve(regmap.RunInput, 0)
	require.NoError(t, err)
	require.NotNil(t, r.Bit)
	assert.Equal(t, 3, *r.Bit)
	assert.True(t, r.Input)
}

func TestLoadRegisters_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"unknown param", "registers:\n  - {param: loop.color, index: 1, address: 1}\n", "unknown param"},
		{"duplicate", "registers:\n  - {param: clock, address: 1}\n  - {param: clock, address: 2}\n", "duplicate"},
		{"bad type", "registers:\n  - {param: clock, address: 1, type: int64}\n", "unknown type"},
		{"string without count", "registers:\n  - {param: program.name, address: 1, type: string}\n", "count"},
		{"bit out of range", "registers:\n  - {param: event, index: 1, address: 1, bit: 16}\n", "bit"},
		{"resolution", "registers:\n  - {param: clock, address: 1, resolution: 9}\n", "resolution"},
		{"negative index", "registers:\n  - {param: event, index: -1, address: 1}\n", "negative index"},
		{"unknown field", "registers:\n  - {param: clock, adress: 1}\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := regmap.LoadRegisters(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadRegisters_SampleMap(t *testing.T) {
	f, err := os.Open("../configs/watlowf4-map.yaml")
	require.NoError(t, err)
	defer f.Close()

	tbl, err := regmap.LoadRegisters(f)
	require.NoError(t, err)
	for _, k := range tbl.Keys() {
		assert.True(t, k.Param.Known(), k.String())
	}

	name, err := tbl.Resolve(regmap.ProgramName, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, name.Words())
}
