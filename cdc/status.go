package cdc

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/usbuart/pkg"
)

// Status is the GET_STATUS response: telemetry counters, the active channel,
// and the current line coding.
type Status struct {
	BytesFromHost uint32 // Bytes accepted from the host (OUT)
	BytesToHost   uint32 // Bytes delivered to the host (IN)
	UARTErrors    uint32 // Dropped bytes and UART line errors
	Channel       Channel
	LineCoding    LineCoding
}

// StatusSize is the wire size of [Status]:
//
//	offset 0  fromHost   uint32 LE
//	offset 4  toHost     uint32 LE
//	offset 8  uartErrors uint32 LE
//	offset 12 channel    uint8
//	offset 13 line coding (7 bytes)
const StatusSize = 20

// MarshalTo writes the status to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (s *Status) MarshalTo(buf []byte) int {
	if len(buf) < StatusSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], s.BytesFromHost)
	binary.LittleEndian.PutUint32(buf[4:8], s.BytesToHost)
	binary.LittleEndian.PutUint32(buf[8:12], s.UARTErrors)
	buf[12] = byte(s.Channel)
	s.LineCoding.MarshalTo(buf[13:])
	return StatusSize
}

// ParseStatus parses a GET_STATUS response into out.
func ParseStatus(data []byte, out *Status) error {
	if len(data) < StatusSize {
		return fmt.Errorf("%w: status %d bytes, want %d", pkg.ErrShortResponse, len(data), StatusSize)
	}
	out.BytesFromHost = binary.LittleEndian.Uint32(data[0:4])
	out.BytesToHost = binary.LittleEndian.Uint32(data[4:8])
	out.UARTErrors = binary.LittleEndian.Uint32(data[8:12])
	out.Channel = Channel(data[12])
	return ParseLineCoding(data[13:], &out.LineCoding)
}
