// Package cdc defines the wire vocabulary of the usbuart bridge: CDC-ACM and
// vendor request codes, the 8-byte SETUP packet, the 7-byte line coding, and
// the 20-byte GET_STATUS layout.
//
// The types are shared by the device-side bridge core
// ([github.com/ardnew/usbuart/bridge]) and the host-side client
// ([github.com/ardnew/usbuart/client]), so both ends agree on every byte.
//
// # Requests
//
// The bridge answers the ACM subset of CDC 1.1 plus three vendor requests:
//
//	0x20 SET_LINE_CODING         host→device  7 bytes
//	0x21 GET_LINE_CODING         device→host  7 bytes
//	0x22 SET_CONTROL_LINE_STATE  wValue bit0=DTR bit1=RTS
//	0x23 SEND_BREAK              wValue = ms, 0xFFFF hold, 0 release
//	0xE0 SHOW_STATUS             no data
//	0xE1 SELECT_UART             wValue = channel
//	0xE2 GET_STATUS              device→host  20 bytes
//
// Encapsulated commands and comm features (0x00-0x04) are rejected.
//
// # Zero-Allocation Design
//
// Serialization uses MarshalTo(buf) and Parse functions with output
// parameters, so the bridge can encode responses into fixed buffers.
package cdc
