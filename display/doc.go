// Package display renders bridge status snapshots, standing in for the
// status screen of the hardware bridge.
//
// [Log] emits one structured record per event. [Panel] draws a framed
// lipgloss panel on a terminal:
//
//	╭───────────────────────╮
//	│ usbuart  UART B       │
//	│ coding    9600 7O2    │
//	│ host→     0 B         │
//	│ →host     0 B         │
//	│ errors    0           │
//	│ switched, 10 B discarded │
//	╰───────────────────────╯
package display
