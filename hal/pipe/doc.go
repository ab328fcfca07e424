// Package pipe carries the bridge's bulk endpoints over a pair of byte
// streams, standing in for a USB device controller when the bridge runs on
// a host.
//
// The host side writes to the OUT stream and reads from the IN stream. The
// streams may be stdin/stdout, a socket, or the named pipes created by
// [OpenFIFO]:
//
//	busDir/
//	└── usbuart-{uuid}/
//	    ├── ep_out   host → bridge
//	    └── ep_in    bridge → host
//
// OUT data is consumed only while the endpoint is armed by PrepareOut, so a
// bridge whose TX ring is saturated still drops bytes exactly as the device
// would, one packet at a time.
package pipe
