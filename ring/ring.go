// Package ring provides the fixed-capacity byte FIFO that decouples UART
// interrupts from USB transfers.
//
// A Buffer is single-producer single-consumer: exactly one context calls
// [Buffer.Push]/[Buffer.Write] and exactly one context calls
// [Buffer.Pop]/[Buffer.Read]/[Buffer.Discard]. No locks are taken; the head
// and tail counters are free-running and published with atomic stores, so
// count = head - tail holds across uint32 wraparound.
package ring

import "go.uber.org/atomic"

// Capacity is the number of bytes a Buffer holds. It must be a power of two.
const Capacity = 4096

const mask = Capacity - 1

// Buffer is a lock-free SPSC byte FIFO. The zero value is an empty buffer.
type Buffer struct {
	data [Capacity]byte
	head atomic.Uint32 // next write position, advanced only by the producer
	tail atomic.Uint32 // next read position, advanced only by the consumer
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return int(b.head.Load() - b.tail.Load())
}

// Free returns the number of bytes that can be pushed before the buffer is
// full.
func (b *Buffer) Free() int {
	return Capacity - b.Len()
}

// Empty reports whether the buffer holds no bytes.
func (b *Buffer) Empty() bool {
	return b.head.Load() == b.tail.Load()
}

// Push appends c. It returns false, leaving the buffer unchanged, if the
// buffer is full; the newest byte is the one dropped.
func (b *Buffer) Push(c byte) bool {
	head := b.head.Load()
	if head-b.tail.Load() >= Capacity {
		return false
	}
	b.data[head&mask] = c
	b.head.Store(head + 1)
	return true
}

// Write pushes as many bytes of p as fit and returns that count. Bytes past
// the free space are dropped.
func (b *Buffer) Write(p []byte) int {
	head := b.head.Load()
	free := Capacity - int(head-b.tail.Load())
	n := min(len(p), free)
	for i := range n {
		b.data[(head+uint32(i))&mask] = p[i]
	}
	b.head.Store(head + uint32(n))
	return n
}

// Pop removes and returns the oldest byte. ok is false if the buffer is empty.
func (b *Buffer) Pop() (c byte, ok bool) {
	tail := b.tail.Load()
	if tail == b.head.Load() {
		return 0, false
	}
	c = b.data[tail&mask]
	b.tail.Store(tail + 1)
	return c, true
}

// Read pops up to len(p) bytes into p in FIFO order and returns the count.
func (b *Buffer) Read(p []byte) int {
	tail := b.tail.Load()
	n := min(len(p), int(b.head.Load()-tail))
	for i := range n {
		p[i] = b.data[(tail+uint32(i))&mask]
	}
	b.tail.Store(tail + uint32(n))
	return n
}

// Discard empties the buffer and returns the number of bytes dropped. It is
// a consumer-side operation: bytes pushed concurrently may survive it.
func (b *Buffer) Discard() int {
	head := b.head.Load()
	n := int(head - b.tail.Swap(head))
	return n
}
