package modbus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/regmap"
	"github.com/arloliu/go-chamber/transport"
)

var framings = []modbus.Framing{modbus.RTU, modbus.TCP}

func TestCRC16(t *testing.T) {
	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	assert.Equal(t, uint16(0xCDC5), modbus.CRC16(frame))
	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A, 0xC5, 0xCD}, modbus.AppendCRC(frame))
}

func TestFramers(t *testing.T) {
	done, err := modbus.RTUFramer([]byte{0x01, 0x03, 0x04, 0x00})
	require.NoError(t, err)
	assert.False(t, done)
	done, err = modbus.RTUFramer([]byte{0x01, 0x03, 0x02, 0x00, 0x01, 0xAA, 0xBB})
	require.NoError(t, err)
	assert.True(t, done)
	done, err = modbus.RTUFramer([]byte{0x01, 0x83, 0x02, 0xAA, 0xBB})
	require.NoError(t, err)
	assert.True(t, done)
	_, err = modbus.RTUFramer([]byte{0x01, 0x2B})
	require.ErrorIs(t, err, modbus.ErrFrame)

	done, err = modbus.TCPFramer([]byte{0, 1, 0, 0, 0, 6, 1, 6, 0, 1})
	require.NoError(t, err)
	assert.False(t, done)
	done, err = modbus.TCPFramer([]byte{0, 1, 0, 0, 0, 6, 1, 6, 0, 1, 0, 5})
	require.NoError(t, err)
	assert.True(t, done)
	_, err = modbus.TCPFramer([]byte{0, 1, 0, 9, 0, 6})
	require.ErrorIs(t, err, modbus.ErrFrame)
}

func TestNewClient_Options(t *testing.T) {
	_, err := modbus.NewClient(nil)
	require.Error(t, err)

	c, _ := newTestClient(t, modbus.RTU)
	assert.Equal(t, modbus.RTU, c.Framing())
	assert.True(t, c.LowWordFirst())

	for _, opt := range []modbus.Option{
		modbus.WithUnitID(0),
		modbus.WithUnitID(248),
		modbus.WithRetryLimit(-1),
		modbus.WithRetryLimit(modbus.MaxRetryLimit + 1),
		modbus.WithFraming(modbus.Framing(7)),
		modbus.WithLogger(nil),
	} {
		_, err := modbus.NewClient(&countingExchanger{}, opt)
		assert.Error(t, err)
	}
}

func TestClient_ReadWrite(t *testing.T) {
	for _, f := range framings {
		t.Run(f.String(), func(t *testing.T) {
			c, bank := newTestClient(t, f)
			ctx := context.Background()
			bank.Set(2782, 250, 0xFF9C)

			regs, err := c.ReadHolding(ctx, 2782, 2)
			require.NoError(t, err)
			assert.Equal(t, []uint16{250, 0xFF9C}, regs)

			signed, err := c.ReadHoldingSigned(ctx, 2782, 2)
			require.NoError(t, err)
			assert.Equal(t, []int16{250, -100}, signed)

			require.NoError(t, c.WriteHolding(ctx, 100, 7))
			assert.Equal(t, uint16(7), bank.Get(100))
			require.NoError(t, c.WriteHolding(ctx, 200, 1, 2, 3))
			assert.Equal(t, uint16(3), bank.Get(202))

			require.NoError(t, c.WriteHoldingFloat(ctx, 300, 23.5, -40))
			assert.InDelta(t, 23.5, bank.Float(300), 1e-6)
			floats, err := c.ReadHoldingFloat(ctx, 300, 2)
			require.NoError(t, err)
			assert.Equal(t, []float32{23.5, -40}, floats)

			require.NoError(t, c.WriteHoldingString(ctx, 400, "PROFILE", 20))
			s, err := c.ReadHoldingString(ctx, 400, 20)
			require.NoError(t, err)
			assert.Equal(t, "PROFILE", s)

			writes := bank.Writes()
			require.Len(t, writes, 4)
			assert.Equal(t, modbus.FuncWriteSingle, writes[0].Function)
			assert.Equal(t, modbus.FuncWriteMultiple, writes[1].Function)
		})
	}
}

func TestClient_ReadCountBounds(t *testing.T) {
	c, bank := newTestClient(t, modbus.RTU)
	_, err := c.ReadHolding(context.Background(), 0, 0)
	require.Error(t, err)
	_, err = c.ReadHolding(context.Background(), 0, modbus.MaxReadCount+1)
	require.Error(t, err)
	assert.Empty(t, bank.Requests())
}

func TestClient_ExceptionNotRetried(t *testing.T) {
	for _, f := range framings {
		t.Run(f.String(), func(t *testing.T) {
			c, bank := newTestClient(t, f)
			bank.Except(16594, modbus.ExceptionIllegalAddress)

			_, err := c.ReadHolding(context.Background(), 16594, 1)
			require.ErrorIs(t, err, chamber.ErrDeviceRejected)
			var exc *modbus.ExceptionError
			require.ErrorAs(t, err, &exc)
			assert.Equal(t, modbus.FuncReadHolding, exc.Function)
			assert.Equal(t, "illegal data address", exc.Reason())
			assert.Len(t, bank.Requests(), 1)
		})
	}
}

func TestClient_ExceptionLoggedAsError(t *testing.T) {
	l := &logger.MockLogger{}
	l.On("With", mock.Anything).Return(l)
	l.On("Error", "modbus exception", mock.Anything).Once()

	c, bank := newTestClient(t, modbus.RTU, modbus.WithLogger(l))
	bank.Except(16594, modbus.ExceptionIllegalAddress)

	_, err := c.ReadHolding(context.Background(), 16594, 1)
	require.ErrorIs(t, err, chamber.ErrDeviceRejected)
	l.AssertExpectations(t)
	l.AssertNotCalled(t, "Warn", mock.Anything, mock.Anything)
}

func TestClient_RetryOnTimeout(t *testing.T) {
	c, bank := newTestClient(t, modbus.RTU, modbus.WithRetryLimit(2))
	bank.Set(10, 42)
	bank.Drop(2)

	regs, err := c.ReadHolding(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{42}, regs)
	assert.Len(t, bank.Requests(), 3)
}

func TestClient_RetryExhausted(t *testing.T) {
	c, bank := newTestClient(t, modbus.RTU, modbus.WithRetryLimit(2))
	bank.Drop(10)

	_, err := c.ReadHolding(context.Background(), 10, 1)
	require.ErrorIs(t, err, chamber.ErrCommunication)
	assert.Len(t, bank.Requests(), 3)
}

func TestClient_CorruptReplyRetried(t *testing.T) {
	for _, f := range framings {
		t.Run(f.String(), func(t *testing.T) {
			c, bank := newTestClient(t, f, modbus.WithRetryLimit(1))
			bank.Set(5, 9)
			bank.Corrupt(1)

			regs, err := c.ReadHolding(context.Background(), 5, 1)
			require.NoError(t, err)
			assert.Equal(t, []uint16{9}, regs)
			assert.Len(t, bank.Requests(), 2)
		})
	}
}

func TestClient_CancelledNotRetried(t *testing.T) {
	ex := &countingExchanger{err: context.Canceled}
	c, err := modbus.NewClient(ex, modbus.WithRetryLimit(3))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.ReadHolding(ctx, 1, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ex.calls)
}

func TestClient_Raw(t *testing.T) {
	c, bank := newTestClient(t, modbus.TCP)
	bank.Set(16, 'F', '4')

	resp, err := c.Raw(context.Background(), []byte{0x03, 0x00, 0x10, 0x00, 0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x04, 0x00, 'F', 0x00, '4'}, resp)

	_, err = c.Raw(context.Background(), []byte{0x2B, 0, 0, 0, 0})
	require.Error(t, err)
	_, err = c.Raw(context.Background(), []byte{0x10, 0, 0, 0, 1, 2, 0})
	require.Error(t, err)
}

func TestClient_RegisterValues(t *testing.T) {
	c, bank := newTestClient(t, modbus.RTU)
	ctx := context.Background()
	bit := 3

	require.NoError(t, c.WriteValue(ctx, regmap.Signed(300, 1), -12.5))
	assert.Equal(t, uint16(0xFF83), bank.Get(300))
	v, err := c.ReadValue(ctx, regmap.Signed(300, 1))
	require.NoError(t, err)
	assert.InDelta(t, -12.5, v, 1e-9)

	require.NoError(t, c.WriteValue(ctx, regmap.Float(2782), 85.25))
	v, err = c.ReadValue(ctx, regmap.Float(2782))
	require.NoError(t, err)
	assert.InDelta(t, 85.25, v, 1e-9)

	bank.Set(2000, 0x0001)
	bitReg := regmap.Register{Address: 2000, Type: regmap.TypeUint16, Bit: &bit}
	require.NoError(t, c.WriteValue(ctx, bitReg, 1))
	assert.Equal(t, uint16(0x0009), bank.Get(2000))
	v, err = c.ReadValue(ctx, bitReg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 0)

	require.Error(t, c.WriteValue(ctx, regmap.Reg(1), -1))
	require.Error(t, c.WriteValue(ctx, regmap.Signed(1, 2), 1000))

	require.NoError(t, c.WriteString(ctx, regmap.String(500, 10), "NAME"))
	s, err := c.ReadString(ctx, regmap.String(500, 10))
	require.NoError(t, err)
	assert.Equal(t, "NAME", s)

	bank.Set(700, 11)
	w, err := c.ReadWord(ctx, regmap.Register{Address: 700, Input: true})
	require.NoError(t, err)
	assert.Equal(t, uint16(11), w)
	assert.Equal(t, modbus.FuncReadInput, bank.Requests()[len(bank.Requests())-1].Function)
}

type countingExchanger struct {
	calls int
	err   error
}

func (e *countingExchanger) Exchange(context.Context, []byte, transport.Framer) ([]byte, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}

	return nil, errors.New("no device")
}
