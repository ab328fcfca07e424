// Package tui implements the live bridge monitor: a bubbletea program that
// polls GET_STATUS, tabulates the samples with transfer rates, and maps
// keys to SELECT_UART, SHOW_STATUS, SET_CONTROL_LINE_STATE and SEND_BREAK.
package tui
