package pipe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ardnew/usbuart/irq"
	"github.com/ardnew/usbuart/pkg"
)

// recorder is a USB handler that records completions and re-arms OUT.
type recorder struct {
	mutex sync.Mutex
	outs  [][]byte
	ins   int
	got   chan struct{}
}

func (r *recorder) BulkInComplete(ep uint8) error {
	r.mutex.Lock()
	r.ins++
	r.mutex.Unlock()
	r.got <- struct{}{}
	return nil
}

func (r *recorder) BulkOutComplete(ep uint8, data []byte) error {
	r.mutex.Lock()
	r.outs = append(r.outs, bytes.Clone(data))
	r.mutex.Unlock()
	r.got <- struct{}{}
	return nil
}

func startIRQ(t *testing.T) *irq.Controller {
	t.Helper()
	c := irq.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c
}

func wait(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestTransportIn(t *testing.T) {
	c := startIRQ(t)
	var out bytes.Buffer
	tr := New(bytes.NewReader(nil), &out, c, 8)
	rec := &recorder{got: make(chan struct{}, 4)}
	tr.Attach(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	tr.PrepareOut(0x01)
	go func() { done <- tr.Run(ctx) }()

	// Reader at EOF ends Run cleanly once OUT is armed.
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	tr = New(blockingReader{}, &out, c, 8)
	tr.Attach(rec)
	go func() { done <- tr.Run(ctx) }()

	if err := tr.SubmitIn(0x81, []byte("hello")); err != nil {
		t.Fatalf("SubmitIn() error = %v", err)
	}
	wait(t, rec.got)
	if out.String() != "hello" {
		t.Errorf("IN stream = %q, want %q", out.String(), "hello")
	}
	if in, _ := tr.Stats(); in != 5 {
		t.Errorf("Stats() in = %d, want 5", in)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() after cancel error = %v, want nil", err)
	}
}

func TestTransportSubmitBusy(t *testing.T) {
	tr := New(bytes.NewReader(nil), io.Discard, irq.New(0), 8)
	if err := tr.SubmitIn(0x81, []byte("a")); err != nil {
		t.Fatalf("SubmitIn() error = %v", err)
	}
	if err := tr.SubmitIn(0x81, []byte("b")); !errors.Is(err, pkg.ErrTransferBusy) {
		t.Errorf("second SubmitIn() error = %v, want %v", err, pkg.ErrTransferBusy)
	}
}

func TestTransportOutGatedByArm(t *testing.T) {
	c := startIRQ(t)
	pr, pw := io.Pipe()
	tr := New(pr, io.Discard, c, 4)
	rec := &recorder{got: make(chan struct{}, 4)}
	tr.Attach(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	go pw.Write([]byte("abcdef"))

	tr.PrepareOut(0x01)
	wait(t, rec.got)
	select {
	case <-rec.got:
		t.Fatal("second OUT packet delivered before re-arm")
	case <-time.After(50 * time.Millisecond):
	}

	tr.PrepareOut(0x01)
	wait(t, rec.got)

	rec.mutex.Lock()
	defer rec.mutex.Unlock()
	if len(rec.outs) != 2 || string(rec.outs[0]) != "abcd" || string(rec.outs[1]) != "ef" {
		t.Errorf("OUT packets = %q, want [abcd ef]", rec.outs)
	}
	pw.Close()
}

func TestTransportRunRequiresHandler(t *testing.T) {
	tr := New(bytes.NewReader(nil), io.Discard, irq.New(0), 8)
	if err := tr.Run(context.Background()); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Run() error = %v, want %v", err, pkg.ErrNotConfigured)
	}
}

// blockingReader never returns data.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
