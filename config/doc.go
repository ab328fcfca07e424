// Package config loads usbuart settings from defaults, an optional YAML
// file and USBUART_* environment variables, in increasing precedence.
//
// A complete file looks like:
//
//	log:
//	  level: info
//	  format: text
//	bridge:
//	  packet_size: 64
//	  switch_policy: drain
//	  drain_timeout: 250ms
//	  break_toggle: true
//	  initial_channel: a
//	line_coding:
//	  baud: 115200
//	  stop_bits: "1"
//	  parity: none
//	  data_bits: 8
//	uart:
//	  a: /dev/ttyUSB0
//	  b: /dev/ttyUSB1
//	display:
//	  mode: panel
//	usb:
//	  vendor_id: 0x1209
//	  product_id: 0x0001
//	  timeout: 1s
package config
