package cdc

// CDC Class codes.
const (
	ClassCDC     = 0x02 // Communications Device Class
	ClassCDCData = 0x0A // CDC Data Class
)

// CDC Subclass and protocol codes used by the bridge's ACM function.
const (
	SubclassACM = 0x02 // Abstract Control Model
	ProtocolAT  = 0x01 // AT Commands: V.250
)

// CDC Request codes.
const (
	RequestSendEncapsulatedCommand = 0x00
	RequestGetEncapsulatedResponse = 0x01
	RequestSetCommFeature          = 0x02
	RequestGetCommFeature          = 0x03
	RequestClearCommFeature        = 0x04
	RequestSetLineCoding           = 0x20
	RequestGetLineCoding           = 0x21
	RequestSetControlLineState     = 0x22
	RequestSendBreak               = 0x23
)

// Vendor request codes understood by the bridge.
const (
	RequestShowStatus = 0xE0 // Render a status snapshot on the display
	RequestSelectUART = 0xE1 // Request a switch of the active UART channel
	RequestGetStatus  = 0xE2 // Read counters, active channel, and line coding
)

// RequestNone marks the absence of a request awaiting its data stage.
const RequestNone = 0xFF

// Control line state bits (for SET_CONTROL_LINE_STATE).
const (
	ControlLineDTR = 1 << 0 // Data Terminal Ready
	ControlLineRTS = 1 << 1 // Request To Send
)

// SEND_BREAK wValue specials.
const (
	BreakOff        = 0x0000 // Clear an active break
	BreakIndefinite = 0xFFFF // Hold break until a BreakOff request
)

// RequestName returns the CDC or vendor name of a request code.
func RequestName(code uint8) string {
	switch code {
	case RequestSendEncapsulatedCommand:
		return "SEND_ENCAPSULATED_COMMAND"
	case RequestGetEncapsulatedResponse:
		return "GET_ENCAPSULATED_RESPONSE"
	case RequestSetCommFeature:
		return "SET_COMM_FEATURE"
	case RequestGetCommFeature:
		return "GET_COMM_FEATURE"
	case RequestClearCommFeature:
		return "CLEAR_COMM_FEATURE"
	case RequestSetLineCoding:
		return "SET_LINE_CODING"
	case RequestGetLineCoding:
		return "GET_LINE_CODING"
	case RequestSetControlLineState:
		return "SET_CONTROL_LINE_STATE"
	case RequestSendBreak:
		return "SEND_BREAK"
	case RequestShowStatus:
		return "SHOW_STATUS"
	case RequestSelectUART:
		return "SELECT_UART"
	case RequestGetStatus:
		return "GET_STATUS"
	case RequestNone:
		return "NO_CMD"
	default:
		return "UNKNOWN"
	}
}
