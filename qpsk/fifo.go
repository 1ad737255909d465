package qpsk

/*------------------------------------------------------------------
 *
 * Purpose:	Single-producer single-consumer sample queue between the
 *		ADC interrupt and the worker loop, plus an overwriting
 *		variant used only for diagnostics.
 *
 * Description:	Exactly one producer context (the ISR) and one consumer
 *		context (the main/worker loop) touch a Fifo. Two
 *		monotonically increasing indices are published with
 *		atomic release/acquire ordering; available = write -
 *		read. Push never overwrites unread data in the
 *		non-overwriting Fifo; RingBuffer instead advances the
 *		read index on a full buffer so it always accepts the
 *		newest sample. No locks, no retries, no allocation after
 *		Init.
 *
 *---------------------------------------------------------------*/

import "sync/atomic"

// spscRing is the shared core of Fifo and RingBuffer: a power-of-two
// capacity ring with atomic write/read indices. The producer owns
// writeIdx, the consumer owns readIdx; both are published with
// atomic stores and observed with atomic loads so no lock is needed
// between the two contexts.
type spscRing[T any] struct {
	buf      []T
	mask     uint64
	writeIdx atomic.Uint64
	readIdx  atomic.Uint64
}

func newSpscRing[T any](capacity int) spscRing[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("qpsk: ring capacity must be a power of two")
	}

	return spscRing[T]{
		buf:  make([]T, capacity),
		mask: uint64(capacity - 1),
	}
}

func (r *spscRing[T]) capacity() int {
	return len(r.buf)
}

func (r *spscRing[T]) available() int {
	w := r.writeIdx.Load()
	rd := r.readIdx.Load()

	return int(w - rd)
}

func (r *spscRing[T]) empty() bool {
	return r.available() == 0
}

func (r *spscRing[T]) full() bool {
	return r.available() == r.capacity()
}

// peek reads the oldest unread element without consuming it.
func (r *spscRing[T]) peek() (T, bool) {
	var zero T

	if r.empty() {
		return zero, false
	}

	rd := r.readIdx.Load()

	return r.buf[rd&r.mask], true
}

// pop consumes the oldest unread element, if any.
func (r *spscRing[T]) pop() (T, bool) {
	v, ok := r.peek()
	if !ok {
		return v, false
	}

	r.readIdx.Store(r.readIdx.Load() + 1)

	return v, true
}

func (r *spscRing[T]) flush() {
	r.readIdx.Store(r.writeIdx.Load())
}

// Fifo is the non-overwriting SPSC ring used on the sample-ingress
// path. Push reports false (and must be treated as a fatal overflow
// by the caller) when the ring is already full.
type Fifo[T any] struct {
	ring spscRing[T]
}

// NewFifo allocates a Fifo with the given power-of-two capacity. All
// storage is allocated here; nothing is allocated afterward.
func NewFifo[T any](capacity int) *Fifo[T] {
	return &Fifo[T]{ring: newSpscRing[T](capacity)}
}

func (f *Fifo[T]) Init() {
	f.ring.writeIdx.Store(0)
	f.ring.readIdx.Store(0)
}

func (f *Fifo[T]) Capacity() int  { return f.ring.capacity() }
func (f *Fifo[T]) Available() int { return f.ring.available() }
func (f *Fifo[T]) Empty() bool    { return f.ring.empty() }
func (f *Fifo[T]) Full() bool     { return f.ring.full() }
func (f *Fifo[T]) Flush()         { f.ring.flush() }

// Push appends one item. Called from the ISR. Returns false without
// modifying any state if the Fifo is full; the caller must treat that
// as a fatal overflow, not retry.
func (f *Fifo[T]) Push(v T) bool {
	if f.ring.full() {
		return false
	}

	w := f.ring.writeIdx.Load()
	f.ring.buf[w&f.ring.mask] = v
	f.ring.writeIdx.Store(w + 1)

	return true
}

// PushBuffer pushes every item in vs, or none of them if they would
// not all fit.
func (f *Fifo[T]) PushBuffer(vs []T) bool {
	if f.ring.available()+len(vs) > f.ring.capacity() {
		return false
	}

	for _, v := range vs {
		f.Push(v)
	}

	return true
}

func (f *Fifo[T]) Peek() (T, bool) { return f.ring.peek() }
func (f *Fifo[T]) Pop() (T, bool)  { return f.ring.pop() }

// RingBuffer is the overwriting SPSC ring used by diagnostics: a full
// buffer accepts the newest sample by advancing the read index,
// silently discarding the oldest unread entry.
type RingBuffer[T any] struct {
	ring spscRing[T]
}

func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	return &RingBuffer[T]{ring: newSpscRing[T](capacity)}
}

func (r *RingBuffer[T]) Init() {
	r.ring.writeIdx.Store(0)
	r.ring.readIdx.Store(0)
}

func (r *RingBuffer[T]) Capacity() int  { return r.ring.capacity() }
func (r *RingBuffer[T]) Available() int { return r.ring.available() }
func (r *RingBuffer[T]) Empty() bool    { return r.ring.empty() }
func (r *RingBuffer[T]) Full() bool     { return r.ring.full() }

// Push always accepts the sample. If the buffer is full, the oldest
// unread sample is dropped to make room.
func (r *RingBuffer[T]) Push(v T) {
	if r.ring.full() {
		r.ring.readIdx.Store(r.ring.readIdx.Load() + 1)
	}

	w := r.ring.writeIdx.Load()
	r.ring.buf[w&r.ring.mask] = v
	r.ring.writeIdx.Store(w + 1)
}

func (r *RingBuffer[T]) Peek() (T, bool) { return r.ring.peek() }
func (r *RingBuffer[T]) Pop() (T, bool)  { return r.ring.pop() }
