// Package config loads a chamber description from YAML and wires it into a
// ready to use *chamber.Chamber.
//
// A minimal file for an F4T on an RS-485 adapter:
//
//	controller: watlowf4t
//	interface: serial
//	serialport: /dev/ttyUSB0
//	baudrate: 38400
//	adr: 1
//	loops: 1
//	cascades: 1
//	cond_event: 9
//
// Profile keys (loops, cascades, alarms, events and so on) sit at the top
// level next to the connection keys. Keys left out fall back to the profile
// defaults of the selected controller family.
//
// CHAMBER_HOST, CHAMBER_SERIALPORT, CHAMBER_INTERFACE and CHAMBER_ADR override
// the file, which lets one file serve several identical chambers.
package config
