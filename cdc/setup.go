package cdc

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/usbuart/pkg"
)

// Request type masks (USB 2.0 Spec Table 9-2).
const (
	RequestTypeDirectionMask = 0x80 // Direction bit mask
	RequestTypeTypeMask      = 0x60 // Type bits mask
	RequestTypeRecipientMask = 0x1F // Recipient bits mask
)

// Request type direction values.
const (
	RequestDirectionHostToDevice = 0x00 // Host to device
	RequestDirectionDeviceToHost = 0x80 // Device to host
)

// Request type values.
const (
	RequestTypeStandard = 0x00 // Standard request
	RequestTypeClass    = 0x20 // Class-specific request
	RequestTypeVendor   = 0x40 // Vendor-specific request
)

// Request recipient values.
const (
	RequestRecipientDevice    = 0x00 // Device recipient
	RequestRecipientInterface = 0x01 // Interface recipient
	RequestRecipientEndpoint  = 0x02 // Endpoint recipient
	RequestRecipientOther     = 0x03 // Other recipient
)

// SetupPacket represents an 8-byte USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // bmRequestType: direction, type, recipient
	Request     uint8  // bRequest: specific request code
	Value       uint16 // wValue: request-specific parameter
	Index       uint16 // wIndex: request-specific index
	Length      uint16 // wLength: number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket parses a setup packet from 8 bytes into out.
func ParseSetupPacket(data []byte, out *SetupPacket) error {
	if len(data) < SetupPacketSize {
		return fmt.Errorf("%w: setup packet %d bytes", pkg.ErrBufferTooSmall, len(data))
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

// MarshalTo serializes the setup packet to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

// IsDeviceToHost returns true if this is a device-to-host transfer.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

// Type returns the request type (Standard, Class, or Vendor).
func (s *SetupPacket) Type() uint8 {
	return s.RequestType & RequestTypeTypeMask
}

// IsClass returns true if this is a class-specific request.
func (s *SetupPacket) IsClass() bool {
	return s.Type() == RequestTypeClass
}

// IsVendor returns true if this is a vendor-specific request.
func (s *SetupPacket) IsVendor() bool {
	return s.Type() == RequestTypeVendor
}

// Recipient returns the request recipient.
func (s *SetupPacket) Recipient() uint8 {
	return s.RequestType & RequestTypeRecipientMask
}

// InterfaceNumber returns the interface number from wIndex.
func (s *SetupPacket) InterfaceNumber() uint8 {
	return uint8(s.Index & 0xFF)
}

// String returns a human-readable representation of the setup packet.
func (s *SetupPacket) String() string {
	dir := "OUT"
	if s.IsDeviceToHost() {
		dir = "IN"
	}
	reqType := "Standard"
	switch s.Type() {
	case RequestTypeClass:
		reqType = "Class"
	case RequestTypeVendor:
		reqType = "Vendor"
	}
	return fmt.Sprintf("SETUP[%s %s] %s(0x%02X) Value=0x%04X Index=0x%04X Length=%d",
		dir, reqType, RequestName(s.Request), s.Request, s.Value, s.Index, s.Length)
}

func classOut(out *SetupPacket, request uint8, value, iface, length uint16) {
	out.RequestType = RequestDirectionHostToDevice | RequestTypeClass | RequestRecipientInterface
	out.Request = request
	out.Value = value
	out.Index = iface
	out.Length = length
}

func classIn(out *SetupPacket, request uint8, iface, length uint16) {
	out.RequestType = RequestDirectionDeviceToHost | RequestTypeClass | RequestRecipientInterface
	out.Request = request
	out.Value = 0
	out.Index = iface
	out.Length = length
}

// Vendor requests address the device so a host can issue them while the
// operating system's ACM driver owns the communication interface.
func vendorOut(out *SetupPacket, request uint8, value, iface uint16) {
	out.RequestType = RequestDirectionHostToDevice | RequestTypeVendor | RequestRecipientDevice
	out.Request = request
	out.Value = value
	out.Index = iface
	out.Length = 0
}

// SetLineCodingSetup initializes out as a SET_LINE_CODING request.
func SetLineCodingSetup(out *SetupPacket, iface uint8) {
	classOut(out, RequestSetLineCoding, 0, uint16(iface), LineCodingSize)
}

// GetLineCodingSetup initializes out as a GET_LINE_CODING request.
func GetLineCodingSetup(out *SetupPacket, iface uint8) {
	classIn(out, RequestGetLineCoding, uint16(iface), LineCodingSize)
}

// SetControlLineStateSetup initializes out as a SET_CONTROL_LINE_STATE request.
func SetControlLineStateSetup(out *SetupPacket, iface uint8, dtr, rts bool) {
	var value uint16
	if dtr {
		value |= ControlLineDTR
	}
	if rts {
		value |= ControlLineRTS
	}
	classOut(out, RequestSetControlLineState, value, uint16(iface), 0)
}

// SendBreakSetup initializes out as a SEND_BREAK request of millis duration.
// Use [BreakIndefinite] and [BreakOff] to hold and release the break.
func SendBreakSetup(out *SetupPacket, iface uint8, millis uint16) {
	classOut(out, RequestSendBreak, millis, uint16(iface), 0)
}

// ShowStatusSetup initializes out as a SHOW_STATUS vendor request.
func ShowStatusSetup(out *SetupPacket, iface uint8) {
	vendorOut(out, RequestShowStatus, 0, uint16(iface))
}

// SelectUARTSetup initializes out as a SELECT_UART vendor request.
func SelectUARTSetup(out *SetupPacket, iface uint8, ch Channel) {
	vendorOut(out, RequestSelectUART, uint16(ch), uint16(iface))
}

// GetStatusSetup initializes out as a GET_STATUS vendor request.
func GetStatusSetup(out *SetupPacket, iface uint8) {
	out.RequestType = RequestDirectionDeviceToHost | RequestTypeVendor | RequestRecipientDevice
	out.Request = RequestGetStatus
	out.Value = 0
	out.Index = uint16(iface)
	out.Length = StatusSize
}
