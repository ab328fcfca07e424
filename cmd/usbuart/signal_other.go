//go:build !unix

package main

import "os"

// No user signals; status and switching are only reachable over USB.
var showSignal, toggleSignal os.Signal
