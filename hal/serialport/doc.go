// Package serialport drives the bridge's UART channels with host serial
// ports through go.bug.st/serial.
//
// Each connected channel runs three goroutines: a reader that delivers
// received bytes through the interrupt controller, a writer that pulls TX
// bytes after a KickTx, and a break holder. The bridge therefore sees the
// same handler sequence it would from UART interrupts.
package serialport
