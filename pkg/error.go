package pkg

import "errors"

// Control transfer errors. Any of these returned from a class request
// handler makes the USB stack stall the transfer; the device stays up.
var (
	// ErrStall indicates the control transfer must be stalled.
	ErrStall = errors.New("endpoint stalled")

	// ErrUnsupportedRequest indicates a request code the bridge does not implement.
	ErrUnsupportedRequest = errors.New("unsupported request")

	// ErrInvalidRequest indicates a malformed request (bad type, length, or value).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidLineCoding indicates a line coding outside its enumerated ranges.
	ErrInvalidLineCoding = errors.New("invalid line coding")

	// ErrInvalidChannel indicates an unknown UART channel identifier.
	ErrInvalidChannel = errors.New("invalid uart channel")

	// ErrNoPendingCommand indicates a control data stage with no request awaiting it.
	ErrNoPendingCommand = errors.New("no pending command")
)

// Data path errors.
var (
	// ErrInvalidEndpoint indicates a transfer notification for an endpoint the
	// bridge does not own.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrNotConfigured indicates the bridge has not been initialized.
	ErrNotConfigured = errors.New("bridge not configured")

	// ErrTransferBusy indicates a transfer is already in flight on the endpoint.
	ErrTransferBusy = errors.New("transfer in flight")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")
)

// Runtime and host-side errors.
var (
	// ErrShortResponse indicates a device response shorter than its wire layout.
	ErrShortResponse = errors.New("short response")

	// ErrDeviceNotFound indicates no bridge matched the requested vendor/product.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrAlreadyRunning indicates the runtime is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the runtime is not running.
	ErrNotRunning = errors.New("not running")

	// ErrClosed indicates use of a closed resource.
	ErrClosed = errors.New("closed")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// IsRequestError reports whether err rejects a single control transfer
// rather than signalling a fault in the caller.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrStall) ||
		errors.Is(err, ErrUnsupportedRequest) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidLineCoding) ||
		errors.Is(err, ErrInvalidChannel) ||
		errors.Is(err, ErrNoPendingCommand)
}
