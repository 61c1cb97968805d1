package convert

import (
	"errors"
	"fmt"
	"math"
)

// ErrDecode indicates malformed raw data received from a controller.
var ErrDecode = errors.New("decode error")

// MaxResolution is the largest supported number of decimal places.
const MaxResolution = 6

var pow10 = [...]float64{1, 10, 100, 1000, 10000, 100000, 1000000}

func scale(resolution int) float64 {
	if resolution <= 0 {
		return 1
	}
	if resolution > MaxResolution {
		resolution = MaxResolution
	}

	return pow10[resolution]
}

// ToEngineering converts a raw integer at the given resolution to its engineering value.
func ToEngineering(raw int64, resolution int) float64 {
	return float64(raw) / scale(resolution)
}

// ToRaw converts an engineering value to a raw integer at the given resolution.
func ToRaw(v float64, resolution int) int64 {
	return int64(math.Round(v * scale(resolution)))
}

// Quantize rounds v to the given resolution.
func Quantize(v float64, resolution int) float64 {
	return ToEngineering(ToRaw(v, resolution), resolution)
}

// BitAt reports whether bit pos of word is set. Positions outside 0..15 read as false.
func BitAt(word uint16, pos int) bool {
	if pos < 0 || pos > 15 {
		return false
	}

	return word&(1<<uint(pos)) != 0
}

// SetBit returns word with bit pos set or cleared. Positions outside 0..15
// leave the word unchanged.
func SetBit(word uint16, pos int, on bool) uint16 {
	if pos < 0 || pos > 15 {
		return word
	}
	if on {
		return word | 1<<uint(pos)
	}

	return word &^ (1 << uint(pos))
}

// Int16 reinterprets a register as a two's complement signed value.
func Int16(word uint16) int16 {
	return int16(word) //nolint:gosec
}

// Uint16 reinterprets a signed value as a register.
func Uint16(v int16) uint16 {
	return uint16(v) //nolint:gosec
}

// ScaledToRegister converts an engineering value to a signed register at the
// given resolution. Values outside the int16 range are rejected.
func ScaledToRegister(v float64, resolution int) (uint16, error) {
	raw := ToRaw(v, resolution)
	if raw < math.MinInt16 || raw > math.MaxInt16 {
		return 0, fmt.Errorf("convert: %v at resolution %d does not fit a register", v, resolution)
	}

	return Uint16(int16(raw)), nil
}

// RegisterToScaled converts a signed register at the given resolution to an engineering value.
func RegisterToScaled(word uint16, resolution int) float64 {
	return ToEngineering(int64(Int16(word)), resolution)
}

// Float32FromRegisters decodes an IEEE-754 single from two registers.
func Float32FromRegisters(regs []uint16, lowWordFirst bool) (float32, error) {
	if len(regs) < 2 {
		return 0, fmt.Errorf("convert: float needs 2 registers, got %d: %w", len(regs), ErrDecode)
	}
	lo, hi := regs[0], regs[1]
	if !lowWordFirst {
		lo, hi = hi, lo
	}

	return math.Float32frombits(uint32(hi)<<16 | uint32(lo)), nil
}

// RegistersFromFloat32 encodes an IEEE-754 single into two registers.
func RegistersFromFloat32(v float32, lowWordFirst bool) []uint16 {
	bits := math.Float32bits(v)
	lo, hi := uint16(bits&0xffff), uint16(bits>>16) //nolint:gosec
	if lowWordFirst {
		return []uint16{lo, hi}
	}

	return []uint16{hi, lo}
}

// StringFromRegisters decodes one character per register. NUL registers are skipped.
func StringFromRegisters(regs []uint16) string {
	buf := make([]byte, 0, len(regs))
	for _, r := range regs {
		if r == 0 {
			continue
		}
		buf = append(buf, byte(r&0xff)) //nolint:gosec
	}

	return string(buf)
}

// RegistersFromString encodes s as one character per register, truncated or
// padded with pad up to n registers.
func RegistersFromString(s string, n int, pad uint16) []uint16 {
	regs := make([]uint16, n)
	for i := range regs {
		if i < len(s) {
			regs[i] = uint16(s[i])
		} else {
			regs[i] = pad
		}
	}

	return regs
}

// FormatHMS formats a duration as H:MM:SS. Hours are not bounded.
func FormatHMS(hours, minutes, seconds int) string {
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// SplitSeconds splits a number of seconds into hours, minutes and seconds.
func SplitSeconds(total int) (hours, minutes, seconds int) {
	if total < 0 {
		total = 0
	}

	return total / 3600, total % 3600 / 60, total % 60
}
