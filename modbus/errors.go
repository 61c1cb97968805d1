package modbus

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-chamber/chamber"
)

var (
	// ErrCRC indicates an RTU reply whose checksum did not match.
	ErrCRC = errors.New("modbus: crc mismatch")

	// ErrFrame indicates a reply that does not answer the request.
	ErrFrame = errors.New("modbus: unexpected reply")
)

// Exception codes defined by the Modbus application protocol.
const (
	ExceptionIllegalFunction   byte = 0x01
	ExceptionIllegalAddress    byte = 0x02
	ExceptionIllegalValue      byte = 0x03
	ExceptionDeviceFailure     byte = 0x04
	ExceptionAcknowledge       byte = 0x05
	ExceptionDeviceBusy        byte = 0x06
	ExceptionMemoryParity      byte = 0x08
	ExceptionGatewayPath       byte = 0x0A
	ExceptionGatewayNoResponse byte = 0x0B
)

var exceptionText = map[byte]string{
	ExceptionIllegalFunction:   "illegal function",
	ExceptionIllegalAddress:    "illegal data address",
	ExceptionIllegalValue:      "illegal data value",
	ExceptionDeviceFailure:     "slave device failure",
	ExceptionAcknowledge:       "acknowledge",
	ExceptionDeviceBusy:        "slave device busy",
	ExceptionMemoryParity:      "memory parity error",
	ExceptionGatewayPath:       "gateway path unavailable",
	ExceptionGatewayNoResponse: "gateway target failed to respond",
}

// ExceptionError is an exception reply from the controller.
type ExceptionError struct {
	Function byte
	Code     byte
}

// Reason returns the protocol description of the exception code.
func (e *ExceptionError) Reason() string {
	if s, ok := exceptionText[e.Code]; ok {
		return s
	}

	return "unknown exception"
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus: function 0x%02x exception %d (%s)", e.Function, e.Code, e.Reason())
}

func (e *ExceptionError) Unwrap() error { return chamber.ErrDeviceRejected }
