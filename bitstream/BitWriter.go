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

// Package bitstream provides the backward bit stream used by the tANS
// codec: the writer emits fields LSB first into a little-endian byte
// stream closed by a sentinel bit, and the reader consumes them from
// the end in reverse order.
package bitstream

import "errors"

// BitWriter accumulates bit fields into a caller supplied buffer. It
// never allocates; an undersized buffer surfaces as an error from
// Finish, not a panic.
type BitWriter struct {
	dst      []byte
	current  uint64
	nbBits   uint
	position int
	overflow bool
}

// Reset directs the writer at dst and clears any previous state.
func (this *BitWriter) Reset(dst []byte) {
	this.dst = dst
	this.current = 0
	this.nbBits = 0
	this.position = 0
	this.overflow = false
}

// WriteBits appends the low 'count' bits of value. count must not
// exceed 24, which keeps the 64 bit accumulator from overflowing
// between flushes.
func (this *BitWriter) WriteBits(value uint32, count uint) {
	this.current |= uint64(value) << this.nbBits
	this.nbBits += count

	for this.nbBits >= 32 {
		if this.position+4 > len(this.dst) {
			this.overflow = true
			this.nbBits -= 32
			this.current >>= 32
			continue
		}

		this.dst[this.position] = byte(this.current)
		this.dst[this.position+1] = byte(this.current >> 8)
		this.dst[this.position+2] = byte(this.current >> 16)
		this.dst[this.position+3] = byte(this.current >> 24)
		this.position += 4
		this.current >>= 32
		this.nbBits -= 32
	}
}

// Finish appends the sentinel bit, flushes the tail bytes and returns
// the total number of bytes written.
func (this *BitWriter) Finish() (int, error) {
	this.current |= uint64(1) << this.nbBits
	this.nbBits++
	tail := int((this.nbBits + 7) >> 3)

	if this.overflow == true || this.position+tail > len(this.dst) {
		return 0, errors.New("Bit stream overflow: destination too small")
	}

	for i := 0; i < tail; i++ {
		this.dst[this.position+i] = byte(this.current >> (8 * uint(i)))
	}

	this.position += tail
	this.nbBits = 0
	this.current = 0
	return this.position, nil
}
