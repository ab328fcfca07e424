package cdc

import (
	"errors"
	"testing"

	"github.com/ardnew/usbuart/pkg"
)

func TestStatusWireFormat(t *testing.T) {
	s := Status{
		BytesFromHost: 0x01020304,
		BytesToHost:   10,
		UARTErrors:    904,
		Channel:       ChannelB,
		LineCoding:    LineCoding{9600, StopBits2, ParityOdd, 7},
	}

	var buf [StatusSize]byte
	if n := s.MarshalTo(buf[:]); n != StatusSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, StatusSize)
	}
	if buf[0] != 0x04 || buf[3] != 0x01 {
		t.Errorf("fromHost not little-endian: % X", buf[0:4])
	}
	if buf[12] != 1 {
		t.Errorf("channel byte = %d, want 1", buf[12])
	}

	var got Status
	if err := ParseStatus(buf[:], &got); err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}
	if got != s {
		t.Errorf("ParseStatus() = %+v, want %+v", got, s)
	}
}

func TestParseStatusShort(t *testing.T) {
	var s Status
	err := ParseStatus(make([]byte, StatusSize-1), &s)
	if !errors.Is(err, pkg.ErrShortResponse) {
		t.Errorf("ParseStatus() error = %v, want %v", err, pkg.ErrShortResponse)
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    Channel
		wantErr bool
	}{
		{"a", ChannelA, false},
		{"B", ChannelB, false},
		{"1", ChannelB, false},
		{"c", ChannelA, true},
	}
	for _, tt := range tests {
		got, err := ParseChannel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseChannel(%q) = %v, %v, want %v (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
	if ChannelA.Other() != ChannelB || ChannelB.Other() != ChannelA {
		t.Error("Other() does not toggle between A and B")
	}
	if Channel(2).Valid() {
		t.Error("Channel(2).Valid() = true, want false")
	}
}
