package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// clockFields is the number of wall clock fields held in registers:
// hour, minute, second, month, day and year.
const clockFields = 6

// ClockRegisterCount returns how many registers hold a clock with the given stride.
func ClockRegisterCount(stride int) int {
	if stride < 1 {
		stride = 1
	}

	return clockFields * stride
}

// DecodeClockRegisters decodes hour, minute, second, month, day and year held
// stride registers apart. The result is in the local time zone.
func DecodeClockRegisters(regs []uint16, stride int) (time.Time, error) {
	if stride < 1 {
		stride = 1
	}
	need := (clockFields-1)*stride + 1
	if len(regs) < need {
		return time.Time{}, fmt.Errorf("convert: clock needs %d registers, got %d: %w", need, len(regs), ErrDecode)
	}
	f := make([]int, clockFields)
	for i := range f {
		f[i] = int(regs[i*stride])
	}
	hour, minute, sec, month, day, year := f[0], f[1], f[2], f[3], f[4], f[5]
	if year < 100 {
		year += 2000
	}
	if hour > 23 || minute > 59 || sec > 59 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("convert: invalid clock %v: %w", f, ErrDecode)
	}

	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.Local), nil
}

// EncodeClockRegisters encodes t as hour, minute, second, month, day and year
// stride registers apart. Gaps between fields are zero.
func EncodeClockRegisters(t time.Time, stride int) []uint16 {
	if stride < 1 {
		stride = 1
	}
	fields := []int{t.Hour(), t.Minute(), t.Second(), int(t.Month()), t.Day(), t.Year()}
	regs := make([]uint16, (clockFields-1)*stride+1)
	for i, v := range fields {
		regs[i*stride] = uint16(v) //nolint:gosec
	}

	return regs
}

// ParseASCIIDate parses a "yy.mm/dd" date token.
func ParseASCIIDate(s string) (year int, month time.Month, day int, err error) {
	s = strings.TrimSpace(s)
	dot := strings.IndexByte(s, '.')
	slash := strings.IndexByte(s, '/')
	if dot < 0 || slash < dot {
		return 0, 0, 0, fmt.Errorf("convert: bad date %q: %w", s, ErrDecode)
	}
	y, err1 := strconv.Atoi(s[:dot])
	m, err2 := strconv.Atoi(s[dot+1 : slash])
	d, err3 := strconv.Atoi(strings.TrimSpace(s[slash+1:]))
	if err1 != nil || err2 != nil || err3 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, 0, 0, fmt.Errorf("convert: bad date %q: %w", s, ErrDecode)
	}

	return 2000 + y, time.Month(m), d, nil
}

// ParseASCIITime parses a "hh:mm:ss" time token.
func ParseASCIITime(s string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("convert: bad time %q: %w", s, ErrDecode)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, perr := strconv.Atoi(p)
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("convert: bad time %q: %w", s, ErrDecode)
		}
		vals[i] = v
	}
	if vals[0] > 23 || vals[1] > 59 || vals[2] > 59 {
		return 0, 0, 0, fmt.Errorf("convert: bad time %q: %w", s, ErrDecode)
	}

	return vals[0], vals[1], vals[2], nil
}

var weekdays = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// FormatASCIIDate formats t as the "yy.m/d. DOW" date argument.
func FormatASCIIDate(t time.Time) string {
	return fmt.Sprintf("%d.%d/%d. %s", t.Year()-2000, int(t.Month()), t.Day(), weekdays[t.Weekday()])
}

// FormatASCIITime formats t as the "h:m:s" time argument.
func FormatASCIITime(t time.Time) string {
	return fmt.Sprintf("%d:%d:%d", t.Hour(), t.Minute(), t.Second())
}
