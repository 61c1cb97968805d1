// Package fakedev provides in-memory controllers that implement
// transport.Link for tests: a Modbus register bank and a scripted ASCII
// command device.
package fakedev
