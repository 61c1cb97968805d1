// Package watlowf4t drives Watlow F4T controllers over Modbus RTU or Modbus TCP.
//
// The register table is computed from the capability profile when the Driver
// is constructed: loop registers repeat every 160 registers, cascade registers
// every 200, and the profile's alarm, limit, event and run-input settings
// select the remaining addresses.
//
// # Events
//
// Events 1 to 8 are profile (program) events. Events 9 to 12 are the four
// front panel keys; writing one simulates a key press, which is how the
// chamber run condition is usually toggled.
//
// # Programs
//
// The F4T stores 40 programs. A program is edited by selecting it in the edit
// block and writing one 170 register block per step. Step counts above 256
// are rejected before anything is sent.
package watlowf4t
