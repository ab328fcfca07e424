//go:build unix

package pipe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// FIFO file names inside a device directory.
const (
	FIFOOut = "ep_out" // host writes, bridge reads
	FIFOIn  = "ep_in"  // bridge writes, host reads
)

// OpenFIFO creates a device directory busDir/usbuart-{uuid} holding two
// named pipes, FIFOOut and FIFOIn, and returns a transport bound to them.
// Close removes the directory.
func OpenFIFO(busDir string, raiser hal.Raiser, packetSize int) (*Transport, string, error) {
	dir := filepath.Join(busDir, "usbuart-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create device dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	for _, name := range []string{FIFOOut, FIFOIn} {
		if err := unix.Mkfifo(filepath.Join(dir, name), 0o600); err != nil {
			cleanup()
			return nil, "", fmt.Errorf("create FIFO %s: %w", name, err)
		}
	}

	// O_RDWR keeps each FIFO open without a peer, so neither side blocks
	// in open and a reader sees no EOF when the host reconnects.
	out, err := os.OpenFile(filepath.Join(dir, FIFOOut), os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		cleanup()
		return nil, "", fmt.Errorf("open %s: %w", FIFOOut, err)
	}
	in, err := os.OpenFile(filepath.Join(dir, FIFOIn), os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		out.Close()
		cleanup()
		return nil, "", fmt.Errorf("open %s: %w", FIFOIn, err)
	}

	t := New(out, in, raiser, packetSize)
	t.closer = []io.Closer{closerFunc(func() error { cleanup(); return nil }), out, in}
	pkg.LogInfo(pkg.ComponentUSB, "FIFO transport created", "dir", dir)
	return t, dir, nil
}
