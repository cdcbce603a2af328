/*
Copyright 2019-2026 the wirepack authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package transform

import "fmt"

const (
	// DefaultRingSize is the default amount of recent plaintext kept
	// for cross-packet matching.
	DefaultRingSize = 1 << 16

	_RING_MIN_SIZE = 1 << 10
	_RING_MAX_SIZE = 1 << 20
)

// RingBuffer keeps the most recent plaintext bytes for cross-packet
// back-reference matching. Single owner (the Context); no locking.
type RingBuffer struct {
	buf  []byte
	head int // next write index
	fill int
}

// NewRingBuffer creates a ring of the given capacity (0 selects the
// default).
func NewRingBuffer(size int) (*RingBuffer, error) {
	if size == 0 {
		size = DefaultRingSize
	}

	if size < _RING_MIN_SIZE || size > _RING_MAX_SIZE {
		return nil, fmt.Errorf("Invalid ring size: %d (must be in [%d..%d])", size, _RING_MIN_SIZE, _RING_MAX_SIZE)
	}

	this := &RingBuffer{}
	this.buf = make([]byte, size)
	return this, nil
}

// Append adds a packet's plaintext to the ring, overwriting the oldest
// bytes on wraparound.
func (this *RingBuffer) Append(p []byte) {
	if len(p) >= len(this.buf) {
		// Only the tail survives
		copy(this.buf, p[len(p)-len(this.buf):])
		this.head = 0
		this.fill = len(this.buf)
		return
	}

	n := copy(this.buf[this.head:], p)

	if n < len(p) {
		copy(this.buf, p[n:])
	}

	this.head = (this.head + len(p)) % len(this.buf)
	this.fill = min(this.fill+len(p), len(this.buf))
}

// Capacity returns the ring size in bytes.
func (this *RingBuffer) Capacity() int {
	return len(this.buf)
}

// Fill returns the number of valid bytes held.
func (this *RingBuffer) Fill() int {
	return this.fill
}

// CopyTail copies the most recent n bytes into dst in stream order and
// returns the number copied (clamped to the current fill).
func (this *RingBuffer) CopyTail(dst []byte, n int) int {
	n = min(n, this.fill)
	n = min(n, len(dst))

	if n == 0 {
		return 0
	}

	start := this.head - n

	if start >= 0 {
		copy(dst, this.buf[start:this.head])
		return n
	}

	start += len(this.buf)
	k := copy(dst, this.buf[start:])
	copy(dst[k:], this.buf[:this.head])
	return n
}

// Reset discards all history but keeps the allocation.
func (this *RingBuffer) Reset() {
	this.head = 0
	this.fill = 0
}
