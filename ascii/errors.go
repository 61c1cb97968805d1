package ascii

import (
	"fmt"

	"github.com/arloliu/go-chamber/chamber"
)

var errorText = map[string]string{
	"CMD ERR":           "unrecognized command",
	"ADDR ERR":          "bad address",
	"CONT NOT READY-1":  "chamber does not support PTCON or humidity",
	"CONT NOT READY-2":  "chamber is not running a program",
	"CONT NOT READY-3":  "command not supported by this controller",
	"CONT NOT READY-4":  "keys may not be locked while controller is off",
	"CONT NOT READY-5":  "specified time signal is not enabled",
	"DATA NOT READY":    "specified program does not exist",
	"PARA ERR":          "parameter missing or unrecognizable",
	"DATA OUT OF RANGE": "data not within valid range",
	"PROTECT ON":        "controller data protection is enabled on the panel",
	"PRGM WRITE ERR-1":  "program slot is read only",
	"PRGM WRITE ERR-2":  "not in program edit or overwrite mode",
	"PRGM WRITE ERR-3":  "edit request not allowed outside edit mode",
	"PRGM WRITE ERR-4":  "a program is already being edited",
	"PRGM WRITE ERR-5":  "a program is already being edited",
	"PRGM WRITE ERR-6":  "not in overwrite mode",
	"PRGM WRITE ERR-7":  "cannot edit a program other than the one in edit mode",
	"PRGM WRITE ERR-8":  "steps must be entered in order",
	"PRGM WRITE ERR-9":  "invalid counter configuration",
	"PRGM WRITE ERR-10": "cannot edit a running program",
	"PRGM WRITE ERR-11": "missing data for counter or end mode",
	"PRGM WRITE ERR-12": "program is being edited on the panel",
	"PRGM WRITE ERR-13": "invalid step data",
	"PRGM WRITE ERR-14": "cannot set exposure time while ramp control is on",
	"PRGM WRITE ERR-15": "humidity must be enabled for humidity ramp mode",
	"INVALID REQ":       "unsupported function",
	"CHB NOT READY":     "could not act on given command",
}

// DeviceError is an "NA:" rejection from the controller.
type DeviceError struct {
	Command string
	Code    string
}

// Description returns the meaning of the rejection code.
func (e *DeviceError) Description() string {
	if s, ok := errorText[e.Code]; ok {
		return s
	}

	return "missing description"
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("ascii: command %q rejected: %s (%s)", e.Command, e.Code, e.Description())
}

func (e *DeviceError) Unwrap() error { return chamber.ErrDeviceRejected }
