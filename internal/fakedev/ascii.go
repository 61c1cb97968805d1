package fakedev

import (
	"bytes"
	"strings"
)

// Handler answers one ASCII command. The command excludes the address prefix
// and the line terminator; the reply is sent with a CRLF appended.
type Handler func(cmd string) string

// ASCIIDevice is a scripted line oriented controller.
type ASCIIDevice struct {
	wire
	handler  Handler
	buf      []byte
	commands []string
	address  []string
}

// NewASCIIDevice creates a device answering with h.
func NewASCIIDevice(h Handler) *ASCIIDevice {
	return &ASCIIDevice{handler: h}
}

func (d *ASCIIDevice) String() string { return "fake-ascii" }

// SetHandler replaces the command handler.
func (d *ASCIIDevice) SetHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

// Commands returns the commands received so far.
func (d *ASCIIDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.commands...)
}

// Addresses returns the address prefix of every command, empty for
// unaddressed ones.
func (d *ASCIIDevice) Addresses() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.address...)
}

// Write buffers p and answers every complete line.
func (d *ASCIIDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0, ErrNotOpen
	}
	d.buf = append(d.buf, p...)
	for {
		i := bytes.Index(d.buf, []byte("\r\n"))
		if i < 0 {
			break
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+2:]

		addr := ""
		if j := strings.IndexByte(line, ','); j > 0 && isDigits(line[:j]) {
			addr, line = line[:j], line[j+1:]
		}
		d.commands = append(d.commands, line)
		d.address = append(d.address, addr)
		d.reply([]byte(d.handler(line) + "\r\n"))
	}

	return len(p), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return s != ""
}
