package cdc

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/usbuart/pkg"
)

// StopBits is the bCharFormat field of a line coding.
type StopBits uint8

// Stop bit values.
const (
	StopBits1   StopBits = 0 // 1 stop bit
	StopBits1_5 StopBits = 1 // 1.5 stop bits
	StopBits2   StopBits = 2 // 2 stop bits
)

// String returns the conventional notation of the stop bit setting.
func (s StopBits) String() string {
	switch s {
	case StopBits1:
		return "1"
	case StopBits1_5:
		return "1.5"
	case StopBits2:
		return "2"
	default:
		return fmt.Sprintf("StopBits(%d)", uint8(s))
	}
}

// Parity is the bParityType field of a line coding.
type Parity uint8

// Parity values.
const (
	ParityNone  Parity = 0
	ParityOdd   Parity = 1
	ParityEven  Parity = 2
	ParityMark  Parity = 3
	ParitySpace Parity = 4
)

// String returns the lowercase name of the parity setting.
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return fmt.Sprintf("Parity(%d)", uint8(p))
	}
}

// Letter returns the single-letter parity code used in "8N1" notation.
func (p Parity) Letter() byte {
	switch p {
	case ParityOdd:
		return 'O'
	case ParityEven:
		return 'E'
	case ParityMark:
		return 'M'
	case ParitySpace:
		return 'S'
	default:
		return 'N'
	}
}

// ParseStopBits converts "1", "1.5" or "2" to a [StopBits].
func ParseStopBits(s string) (StopBits, error) {
	switch s {
	case "1", "":
		return StopBits1, nil
	case "1.5":
		return StopBits1_5, nil
	case "2":
		return StopBits2, nil
	}
	return StopBits1, fmt.Errorf("%w: stop bits %q", pkg.ErrInvalidLineCoding, s)
}

// ParseParity converts a parity name or letter (none/n, odd/o, even/e,
// mark/m, space/s) to a [Parity].
func ParseParity(s string) (Parity, error) {
	switch s {
	case "", "none", "n", "N":
		return ParityNone, nil
	case "odd", "o", "O":
		return ParityOdd, nil
	case "even", "e", "E":
		return ParityEven, nil
	case "mark", "m", "M":
		return ParityMark, nil
	case "space", "s", "S":
		return ParitySpace, nil
	}
	return ParityNone, fmt.Errorf("%w: parity %q", pkg.ErrInvalidLineCoding, s)
}

// LineCoding represents the serial line configuration.
type LineCoding struct {
	DTERate    uint32   // Data terminal rate (baud rate)
	CharFormat StopBits // Stop bits
	ParityType Parity   // Parity
	DataBits   uint8    // Data bits: 5, 6, 7, or 8
}

// LineCodingSize is the size of LineCoding in bytes.
const LineCodingSize = 7

// DefaultBaudRate is the rate applied at device init.
const DefaultBaudRate = 115200

// DefaultLineCoding is 115200 8N1.
var DefaultLineCoding = LineCoding{
	DTERate:    DefaultBaudRate,
	CharFormat: StopBits1,
	ParityType: ParityNone,
	DataBits:   8,
}

// Validate returns an error wrapping [pkg.ErrInvalidLineCoding] if any field
// is outside its enumerated range.
func (lc LineCoding) Validate() error {
	if lc.DTERate == 0 {
		return fmt.Errorf("%w: zero baud rate", pkg.ErrInvalidLineCoding)
	}
	if lc.CharFormat > StopBits2 {
		return fmt.Errorf("%w: stop bits %d", pkg.ErrInvalidLineCoding, lc.CharFormat)
	}
	if lc.ParityType > ParitySpace {
		return fmt.Errorf("%w: parity %d", pkg.ErrInvalidLineCoding, lc.ParityType)
	}
	if lc.DataBits < 5 || lc.DataBits > 8 {
		return fmt.Errorf("%w: data bits %d", pkg.ErrInvalidLineCoding, lc.DataBits)
	}
	return nil
}

// String returns the coding as "<rate> <bits><parity><stop>", e.g. "115200 8N1".
func (lc LineCoding) String() string {
	return fmt.Sprintf("%d %d%c%s", lc.DTERate, lc.DataBits, lc.ParityType.Letter(), lc.CharFormat)
}

// MarshalTo writes the LineCoding to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (lc *LineCoding) MarshalTo(buf []byte) int {
	if len(buf) < LineCodingSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], lc.DTERate)
	buf[4] = byte(lc.CharFormat)
	buf[5] = byte(lc.ParityType)
	buf[6] = lc.DataBits
	return LineCodingSize
}

// ParseLineCoding parses LineCoding from data into out without validating it.
// Returns [pkg.ErrBufferTooSmall] if data is too short.
func ParseLineCoding(data []byte, out *LineCoding) error {
	if len(data) < LineCodingSize {
		return pkg.ErrBufferTooSmall
	}
	out.DTERate = binary.LittleEndian.Uint32(data[0:4])
	out.CharFormat = StopBits(data[4])
	out.ParityType = Parity(data[5])
	out.DataBits = data[6]
	return nil
}
