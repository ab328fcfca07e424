// Package hal defines the collaborators the bridge core is driven by and
// drives: UART hardware, the bulk side of a USB device stack, a one-shot
// timer, and a status display.
//
// The interfaces model an interrupt-driven microcontroller. Calls into a
// collaborator never block, and events flow back through [UARTHandler] and
// [USBHandler] as short handler invocations.
//
// # Implementations
//
//   - [github.com/ardnew/usbuart/hal/sim]: in-memory collaborators for tests
//   - [github.com/ardnew/usbuart/hal/serialport]: UART channels backed by host
//     serial ports
//   - [github.com/ardnew/usbuart/hal/pipe]: bulk endpoints carried over an
//     io.Reader/io.Writer pair
//   - [github.com/ardnew/usbuart/irq]: a [Timer] that fires in handler context
package hal
