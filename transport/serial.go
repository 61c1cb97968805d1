package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Serial line defaults.
const (
	DefaultBaudRate = 9600
	DefaultDataBits = 8
)

// SerialMode describes the serial line settings.
type SerialMode struct {
	BaudRate int
	DataBits int
	// Parity is "N", "E" or "O".
	Parity string
	// StopBits is 1 or 2.
	StopBits int
}

func (m SerialMode) toMode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: m.BaudRate,
		DataBits: m.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = DefaultBaudRate
	}
	if mode.DataBits == 0 {
		mode.DataBits = DefaultDataBits
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return nil, fmt.Errorf("transport: data bits %d out of range [5, 8]", mode.DataBits)
	}
	switch strings.ToUpper(m.Parity) {
	case "", "N":
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("transport: unknown parity %q", m.Parity)
	}
	switch m.StopBits {
	case 0, 1:
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("transport: stop bits %d not supported", m.StopBits)
	}

	return mode, nil
}

// SerialLink is a Link over an RS-232/RS-485 port.
type SerialLink struct {
	name string
	mode *serial.Mode
	port serial.Port
}

var _ Link = (*SerialLink)(nil)

// NewSerialLink creates a serial link on the named port, such as
// "/dev/ttyUSB0" or "COM3".
func NewSerialLink(name string, m SerialMode) (*SerialLink, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("transport: empty serial port name")
	}
	mode, err := m.toMode()
	if err != nil {
		return nil, err
	}

	return &SerialLink{name: name, mode: mode}, nil
}

func (l *SerialLink) String() string {
	return fmt.Sprintf("serial://%s@%d", l.name, l.mode.BaudRate)
}

func (l *SerialLink) Open(_ context.Context) error {
	if l.port != nil {
		return nil
	}
	port, err := serial.Open(l.name, l.mode)
	if err != nil {
		return err
	}
	l.port = port

	return nil
}

func (l *SerialLink) Close() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil

	return err
}

func (l *SerialLink) Write(p []byte) (int, error) {
	if l.port == nil {
		return 0, ErrLinkClosed
	}

	return l.port.Write(p)
}

// Read waits until deadline for input. The serial driver reports a read timeout
// as zero bytes with a nil error.
func (l *SerialLink) Read(p []byte, deadline time.Time) (int, error) {
	if l.port == nil {
		return 0, ErrLinkClosed
	}
	wait := time.Until(deadline)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	if err := l.port.SetReadTimeout(wait); err != nil {
		return 0, err
	}

	return l.port.Read(p)
}

func (l *SerialLink) Discard() error {
	if l.port == nil {
		return nil
	}

	return l.port.ResetInputBuffer()
}
