package modbus

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-chamber/transport"
)

// Function codes.
const (
	FuncReadHolding   byte = 0x03
	FuncReadInput     byte = 0x04
	FuncWriteSingle   byte = 0x06
	FuncWriteMultiple byte = 0x10
)

const (
	mbapHeaderLen = 7
	exceptionFlag = 0x80
)

// CRC16 computes the Modbus RTU checksum of data.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}

	return crc
}

// AppendCRC appends the little-endian checksum of frame to frame.
func AppendCRC(frame []byte) []byte {
	return binary.LittleEndian.AppendUint16(frame, CRC16(frame))
}

// pduLength returns the total PDU length of a reply once enough of it is
// known, or 0 when more bytes are needed.
func pduLength(pdu []byte) (int, error) {
	if len(pdu) < 1 {
		return 0, nil
	}
	fc := pdu[0]
	if fc&exceptionFlag != 0 {
		return 2, nil
	}
	switch fc {
	case FuncReadHolding, FuncReadInput:
		if len(pdu) < 2 {
			return 0, nil
		}
		return 2 + int(pdu[1]), nil
	case FuncWriteSingle, FuncWriteMultiple:
		return 5, nil
	default:
		return 0, fmt.Errorf("function 0x%02x: %w", fc, ErrFrame)
	}
}

// RTUFramer reports when buf holds a complete RTU reply.
func RTUFramer(buf []byte) (bool, error) {
	if len(buf) < 2 {
		return false, nil
	}
	n, err := pduLength(buf[1:])
	if err != nil || n == 0 {
		return false, err
	}

	return len(buf) >= 1+n+2, nil
}

// TCPFramer reports when buf holds a complete Modbus TCP reply.
func TCPFramer(buf []byte) (bool, error) {
	if len(buf) < 6 {
		return false, nil
	}
	if binary.BigEndian.Uint16(buf[2:4]) != 0 {
		return false, fmt.Errorf("protocol id %d: %w", binary.BigEndian.Uint16(buf[2:4]), ErrFrame)
	}
	n := int(binary.BigEndian.Uint16(buf[4:6]))
	if n < 2 {
		return false, fmt.Errorf("mbap length %d: %w", n, ErrFrame)
	}

	return len(buf) >= 6+n, nil
}

func (c *Client) framer() transport.Framer {
	if c.cfg.framing == TCP {
		return TCPFramer
	}

	return RTUFramer
}

// encode wraps pdu in an ADU and returns the frame and its transaction id.
func (c *Client) encode(pdu []byte) ([]byte, uint16) {
	if c.cfg.framing == TCP {
		tx := uint16(c.txID.Add(1)) //nolint:gosec
		adu := make([]byte, mbapHeaderLen, mbapHeaderLen+len(pdu))
		binary.BigEndian.PutUint16(adu[0:2], tx)
		binary.BigEndian.PutUint16(adu[4:6], uint16(len(pdu)+1)) //nolint:gosec
		adu[6] = c.cfg.unitID

		return append(adu, pdu...), tx
	}
	adu := make([]byte, 0, len(pdu)+3)
	adu = append(adu, c.cfg.unitID)
	adu = append(adu, pdu...)

	return AppendCRC(adu), 0
}

// decode strips the ADU envelope from a reply and checks it answers request fc.
func (c *Client) decode(adu []byte, tx uint16, fc byte) ([]byte, error) {
	var pdu []byte
	if c.cfg.framing == TCP {
		if len(adu) < mbapHeaderLen+1 {
			return nil, fmt.Errorf("short reply % x: %w", adu, ErrFrame)
		}
		if got := binary.BigEndian.Uint16(adu[0:2]); got != tx {
			return nil, fmt.Errorf("transaction id %d, want %d: %w", got, tx, ErrFrame)
		}
		if adu[6] != c.cfg.unitID {
			return nil, fmt.Errorf("unit id %d, want %d: %w", adu[6], c.cfg.unitID, ErrFrame)
		}
		pdu = adu[mbapHeaderLen:]
	} else {
		if len(adu) < 4 {
			return nil, fmt.Errorf("short reply % x: %w", adu, ErrFrame)
		}
		body := adu[:len(adu)-2]
		if got, want := binary.LittleEndian.Uint16(adu[len(adu)-2:]), CRC16(body); got != want {
			return nil, fmt.Errorf("got 0x%04x, want 0x%04x: %w", got, want, ErrCRC)
		}
		if adu[0] != c.cfg.unitID {
			return nil, fmt.Errorf("unit id %d, want %d: %w", adu[0], c.cfg.unitID, ErrFrame)
		}
		pdu = body[1:]
	}

	n, err := pduLength(pdu)
	if err != nil {
		return nil, err
	}
	if n == 0 || len(pdu) != n {
		return nil, fmt.Errorf("pdu length %d, want %d: %w", len(pdu), n, ErrFrame)
	}
	if pdu[0] == fc|exceptionFlag {
		return nil, &ExceptionError{Function: fc, Code: pdu[1]}
	}
	if pdu[0] != fc {
		return nil, fmt.Errorf("function 0x%02x, want 0x%02x: %w", pdu[0], fc, ErrFrame)
	}

	return pdu, nil
}

func readPDU(fc byte, addr uint16, count int) []byte {
	pdu := []byte{fc, 0, 0, 0, 0}
	binary.BigEndian.PutUint16(pdu[1:3], addr)
	binary.BigEndian.PutUint16(pdu[3:5], uint16(count)) //nolint:gosec

	return pdu
}

func writeSinglePDU(addr, value uint16) []byte {
	pdu := []byte{FuncWriteSingle, 0, 0, 0, 0}
	binary.BigEndian.PutUint16(pdu[1:3], addr)
	binary.BigEndian.PutUint16(pdu[3:5], value)

	return pdu
}

func writeMultiplePDU(addr uint16, values []uint16) []byte {
	pdu := make([]byte, 6, 6+2*len(values))
	pdu[0] = FuncWriteMultiple
	binary.BigEndian.PutUint16(pdu[1:3], addr)
	binary.BigEndian.PutUint16(pdu[3:5], uint16(len(values))) //nolint:gosec
	pdu[5] = byte(2 * len(values))                            //nolint:gosec
	for _, v := range values {
		pdu = binary.BigEndian.AppendUint16(pdu, v)
	}

	return pdu
}
