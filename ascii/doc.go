// Package ascii implements the line oriented command protocol of Espec
// controllers.
//
// A request is a command terminated by CRLF. On a serial bus with several
// controllers the command is prefixed with the decimal bus address and a
// comma ("1,TEMP?\r\n"). TCP serial forwarders do not honor the prefix, so it
// is never sent over TCP. Every request is answered by exactly one CRLF
// terminated line. A reply starting with "NA:" is a rejection and is returned
// as *DeviceError.
package ascii
