// Package chamber defines the controller-agnostic contract for environmental
// test chambers and the Chamber façade that enforces it.
//
// A Chamber wraps one variant Driver (Watlow F4T, Watlow F4 or an Espec
// P300/SCP-220 controller) together with the transport session the driver talks
// through. Callers address loops, cascades, events, programs and the run mode
// through Chamber without knowing the wire protocol.
//
// # Capability Profile
//
// Every Chamber is bound to an immutable Profile describing the loop, cascade,
// alarm and event counts of the physical chamber plus the event assignments used
// to gate loops and the run condition. Requests naming an index the profile does
// not expose fail with ErrCapability before anything is sent.
//
// # Operation State Machine
//
// The run mode is one of off, standby, constant, program, program_pause or
// alarm. SetOperation reads the current mode first and rejects any request that
// is not an allowed transition with ErrInvalidTransition; see Transition.
//
// # Errors
//
// Failures are reported with the sentinel errors in errors.go. Use errors.Is to
// classify them:
//
//   - ErrCommunication: timeouts and framing failures after the retry budget.
//   - ErrDeviceRejected: the controller answered with an error code.
//   - ErrCapability: the profile or variant does not expose the index or field.
//   - ErrUnsupported: the variant has no such operation.
//   - ErrValidation: caller supplied values are out of range.
//   - ErrInvalidTransition: the requested run mode change is not allowed.
//
// Active alarms are not errors; they are reported in OperationStatus.
//
// # Concurrency
//
// Chamber methods are safe for concurrent use. Each call holds the session lease
// for its whole duration, so multi-request operations never interleave frames.
package chamber
