package cdc

import (
	"errors"
	"testing"

	"github.com/ardnew/usbuart/pkg"
)

func TestDefaultLineCoding(t *testing.T) {
	want := LineCoding{DTERate: 115200, CharFormat: StopBits1, ParityType: ParityNone, DataBits: 8}
	if DefaultLineCoding != want {
		t.Errorf("DefaultLineCoding = %+v, want %+v", DefaultLineCoding, want)
	}
	if err := DefaultLineCoding.Validate(); err != nil {
		t.Errorf("DefaultLineCoding.Validate() error = %v", err)
	}
	if got := DefaultLineCoding.String(); got != "115200 8N1" {
		t.Errorf("DefaultLineCoding.String() = %q, want %q", got, "115200 8N1")
	}
}

func TestLineCodingValidate(t *testing.T) {
	tests := []struct {
		name    string
		lc      LineCoding
		wantErr bool
	}{
		{"9600 7O2", LineCoding{9600, StopBits2, ParityOdd, 7}, false},
		{"5 bits space 1.5", LineCoding{300, StopBits1_5, ParitySpace, 5}, false},
		{"zero rate", LineCoding{0, StopBits1, ParityNone, 8}, true},
		{"stop bits 3", LineCoding{9600, StopBits(3), ParityNone, 8}, true},
		{"parity 5", LineCoding{9600, StopBits1, Parity(5), 8}, true},
		{"4 data bits", LineCoding{9600, StopBits1, ParityNone, 4}, true},
		{"16 data bits", LineCoding{9600, StopBits1, ParityNone, 16}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, pkg.ErrInvalidLineCoding) {
				t.Errorf("Validate() error = %v, want %v", err, pkg.ErrInvalidLineCoding)
			}
		})
	}
}

func TestLineCodingWireFormat(t *testing.T) {
	lc := LineCoding{DTERate: 9600, CharFormat: StopBits2, ParityType: ParityOdd, DataBits: 7}
	var buf [LineCodingSize]byte
	if n := lc.MarshalTo(buf[:]); n != LineCodingSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, LineCodingSize)
	}
	want := [LineCodingSize]byte{0x80, 0x25, 0x00, 0x00, 0x02, 0x01, 0x07}
	if buf != want {
		t.Errorf("MarshalTo() bytes = % X, want % X", buf, want)
	}

	var got LineCoding
	if err := ParseLineCoding(buf[:], &got); err != nil {
		t.Fatalf("ParseLineCoding() error = %v", err)
	}
	if got != lc {
		t.Errorf("ParseLineCoding() = %+v, want %+v", got, lc)
	}
}

func TestLineCodingShortBuffers(t *testing.T) {
	var lc LineCoding
	if err := ParseLineCoding([]byte{1, 2, 3}, &lc); !errors.Is(err, pkg.ErrBufferTooSmall) {
		t.Errorf("ParseLineCoding() error = %v, want %v", err, pkg.ErrBufferTooSmall)
	}
	if n := DefaultLineCoding.MarshalTo(make([]byte, 6)); n != 0 {
		t.Errorf("MarshalTo() short buffer = %d, want 0", n)
	}
}

func TestParseStopBitsAndParity(t *testing.T) {
	stops := map[string]StopBits{"1": StopBits1, "1.5": StopBits1_5, "2": StopBits2}
	for in, want := range stops {
		got, err := ParseStopBits(in)
		if err != nil || got != want {
			t.Errorf("ParseStopBits(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseStopBits("3"); !errors.Is(err, pkg.ErrInvalidLineCoding) {
		t.Errorf("ParseStopBits(3) error = %v, want %v", err, pkg.ErrInvalidLineCoding)
	}

	parities := map[string]Parity{"none": ParityNone, "O": ParityOdd, "even": ParityEven, "m": ParityMark, "space": ParitySpace}
	for in, want := range parities {
		got, err := ParseParity(in)
		if err != nil || got != want {
			t.Errorf("ParseParity(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseParity("x"); !errors.Is(err, pkg.ErrInvalidLineCoding) {
		t.Errorf("ParseParity(x) error = %v, want %v", err, pkg.ErrInvalidLineCoding)
	}
}
