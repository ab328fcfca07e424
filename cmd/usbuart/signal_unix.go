//go:build unix

package main

import (
	"os"
	"syscall"
)

var (
	showSignal   os.Signal = syscall.SIGUSR1
	toggleSignal os.Signal = syscall.SIGUSR2
)
