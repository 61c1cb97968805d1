// Package modbus implements the Modbus RTU and Modbus TCP client used by the
// register-mapped Watlow drivers.
//
// The client builds request frames, validates replies and retries transient
// failures. Byte transport is delegated to a transport.Exchanger, normally a
// *transport.Session, so every request inherits the session's timeout and
// mutual exclusion.
//
// # Function codes
//
// Only the functions the controllers implement are supported:
//
//	0x03  read holding registers
//	0x04  read input registers
//	0x06  write single register
//	0x10  write multiple registers
//
// # Errors
//
// An exception reply is returned as *ExceptionError, which wraps
// chamber.ErrDeviceRejected and is never retried. Timeouts, CRC mismatches and
// malformed replies are retried up to the configured retry limit and then
// reported as chamber.ErrCommunication.
//
// # Word order
//
// Watlow controllers store 32-bit floats low word first. WithWordOrder changes
// this for devices that do not.
package modbus
