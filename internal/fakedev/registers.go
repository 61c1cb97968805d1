package fakedev

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-chamber/convert"
	"github.com/arloliu/go-chamber/modbus"
)

// Request is a decoded Modbus request received by a RegisterBank.
type Request struct {
	Function byte
	Address  uint16
	Count    int
	Values   []uint16
}

// WriteHook runs after a write is applied. It may modify the bank through the
// supplied setter, for example to simulate a status change.
type WriteHook func(addr uint16, values []uint16, set func(addr uint16, values ...uint16))

// RegisterBank is an in-memory Modbus controller. Unset registers read as 0.
type RegisterBank struct {
	wire
	framing    modbus.Framing
	unitID     byte
	regs       map[uint16]uint16
	exceptions map[uint16]byte
	corrupt    int
	hooks      []WriteHook
	requests   []Request
	overlaps   int
}

// NewRegisterBank creates a bank answering as unitID with the given framing.
func NewRegisterBank(framing modbus.Framing, unitID byte) *RegisterBank {
	return &RegisterBank{
		framing:    framing,
		unitID:     unitID,
		regs:       map[uint16]uint16{},
		exceptions: map[uint16]byte{},
	}
}

func (b *RegisterBank) String() string { return "fake-modbus-" + b.framing.String() }

// Set stores consecutive register values starting at addr.
func (b *RegisterBank) Set(addr uint16, values ...uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(addr, values...)
}

func (b *RegisterBank) set(addr uint16, values ...uint16) {
	for i, v := range values {
		b.regs[addr+uint16(i)] = v //nolint:gosec
	}
}

// SetSigned stores a signed value.
func (b *RegisterBank) SetSigned(addr uint16, v int16) { b.Set(addr, convert.Uint16(v)) }

// SetFloat stores a low word first float.
func (b *RegisterBank) SetFloat(addr uint16, v float32) {
	b.Set(addr, convert.RegistersFromFloat32(v, true)...)
}

// SetString stores s one character per register, padded to n registers.
func (b *RegisterBank) SetString(addr uint16, s string, n int) {
	b.Set(addr, convert.RegistersFromString(s, n, 0)...)
}

// Get returns the register at addr.
func (b *RegisterBank) Get(addr uint16) uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.regs[addr]
}

// Float returns the low word first float at addr.
func (b *RegisterBank) Float(addr uint16) float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, _ := convert.Float32FromRegisters([]uint16{b.regs[addr], b.regs[addr+1]}, true)

	return f
}

// Except makes any request touching addr answer with exception code.
func (b *RegisterBank) Except(addr uint16, code byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exceptions[addr] = code
}

// Corrupt makes the next n replies carry a bad checksum or transaction id.
func (b *RegisterBank) Corrupt(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.corrupt = n
}

// OnWrite registers a hook run after every applied write.
func (b *RegisterBank) OnWrite(h WriteHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, h)
}

// Requests returns a copy of the requests received so far.
func (b *RegisterBank) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Request(nil), b.requests...)
}

// Writes returns the write requests received so far.
func (b *RegisterBank) Writes() []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Function == modbus.FuncWriteSingle || r.Function == modbus.FuncWriteMultiple {
			out = append(out, r)
		}
	}

	return out
}

// Overlaps returns how many requests arrived while a previous reply was still
// unread.
func (b *RegisterBank) Overlaps() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.overlaps
}

// Write decodes a request frame and queues the reply.
func (b *RegisterBank) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return 0, ErrNotOpen
	}
	if len(b.pending) > 0 {
		b.overlaps++
	}

	var (
		pdu  []byte
		head []byte
	)
	switch b.framing {
	case modbus.TCP:
		if len(p) < 8 {
			return 0, fmt.Errorf("fakedev: short tcp frame % x", p)
		}
		head, pdu = append([]byte(nil), p[:7]...), p[7:]
	default:
		if len(p) < 4 || modbus.CRC16(p[:len(p)-2]) != binary.LittleEndian.Uint16(p[len(p)-2:]) {
			return 0, fmt.Errorf("fakedev: bad rtu frame % x", p)
		}
		head, pdu = []byte{p[0]}, p[1:len(p)-2]
	}

	resp := b.handle(pdu)
	b.reply(b.frame(head, resp))

	return len(p), nil
}

func (b *RegisterBank) frame(head, pdu []byte) []byte {
	corrupt := b.corrupt > 0
	if corrupt {
		b.corrupt--
	}
	if b.framing == modbus.TCP {
		out := append([]byte(nil), head...)
		binary.BigEndian.PutUint16(out[4:6], uint16(len(pdu)+1)) //nolint:gosec
		if corrupt {
			out[0] ^= 0xFF
		}
		return append(out, pdu...)
	}
	out := append(append([]byte(nil), head...), pdu...)
	out = modbus.AppendCRC(out)
	if corrupt {
		out[len(out)-1] ^= 0xFF
	}

	return out
}

func exception(fc, code byte) []byte { return []byte{fc | 0x80, code} }

func (b *RegisterBank) handle(pdu []byte) []byte {
	if len(pdu) < 5 {
		return exception(pdu[0], modbus.ExceptionIllegalValue)
	}
	fc := pdu[0]
	addr := binary.BigEndian.Uint16(pdu[1:3])
	req := Request{Function: fc, Address: addr}

	switch fc {
	case modbus.FuncReadHolding, modbus.FuncReadInput:
		count := int(binary.BigEndian.Uint16(pdu[3:5]))
		req.Count = count
		b.requests = append(b.requests, req)
		if code, ok := b.excepted(addr, count); ok {
			return exception(fc, code)
		}
		out := []byte{fc, byte(2 * count)} //nolint:gosec
		for i := 0; i < count; i++ {
			out = binary.BigEndian.AppendUint16(out, b.regs[addr+uint16(i)]) //nolint:gosec
		}
		return out

	case modbus.FuncWriteSingle:
		v := binary.BigEndian.Uint16(pdu[3:5])
		req.Count, req.Values = 1, []uint16{v}
		b.requests = append(b.requests, req)
		if code, ok := b.excepted(addr, 1); ok {
			return exception(fc, code)
		}
		b.applyWrite(addr, req.Values)
		return append([]byte(nil), pdu[:5]...)

	case modbus.FuncWriteMultiple:
		count := int(binary.BigEndian.Uint16(pdu[3:5]))
		if len(pdu) < 6+2*count {
			return exception(fc, modbus.ExceptionIllegalValue)
		}
		values := make([]uint16, count)
		for i := range values {
			values[i] = binary.BigEndian.Uint16(pdu[6+2*i:])
		}
		req.Count, req.Values = count, values
		b.requests = append(b.requests, req)
		if code, ok := b.excepted(addr, count); ok {
			return exception(fc, code)
		}
		b.applyWrite(addr, values)
		return append([]byte(nil), pdu[:5]...)

	default:
		return exception(fc, modbus.ExceptionIllegalFunction)
	}
}

func (b *RegisterBank) excepted(addr uint16, count int) (byte, bool) {
	for i := 0; i < count; i++ {
		if code, ok := b.exceptions[addr+uint16(i)]; ok { //nolint:gosec
			return code, true
		}
	}

	return 0, false
}

func (b *RegisterBank) applyWrite(addr uint16, values []uint16) {
	b.set(addr, values...)
	for _, h := range b.hooks {
		h(addr, values, b.set)
	}
}
