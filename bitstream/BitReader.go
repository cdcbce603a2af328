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

package bitstream

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

// BitReader walks a finished bit stream backward, returning fields in
// the reverse of write order. Reading past the start is safe and only
// flagged through Overread, so a decode loop can run unchecked and
// validate once at the end.
type BitReader struct {
	src          []byte
	current      uint64
	bitsConsumed uint
	offset       int
	remaining    int
}

// Reset positions the reader on the sentinel bit of src. An empty
// stream or a stream with no sentinel is rejected here, which is the
// only error path; ReadBits itself cannot fail.
func (this *BitReader) Reset(src []byte) error {
	if len(src) == 0 {
		return errors.New("Invalid bit stream: empty input")
	}

	last := src[len(src)-1]

	if last == 0 {
		return errors.New("Invalid bit stream: missing sentinel")
	}

	this.src = src
	this.current = 0
	this.bitsConsumed = uint(bits.LeadingZeros8(last)) + 1
	this.remaining = 8*len(src) - int(this.bitsConsumed)

	if len(src) >= 8 {
		this.offset = len(src) - 8
		this.current = binary.LittleEndian.Uint64(src[this.offset:])
	} else {
		this.offset = 0

		for i := len(src) - 1; i >= 0; i-- {
			this.current = this.current<<8 | uint64(src[i])
		}

		// Keep the final byte in the top position
		this.current <<= 8 * uint(8-len(src))
	}

	return nil
}

// ReadBits returns the next 'count' bits (1 to 24). Once the stream is
// exhausted it returns garbage and drives the remaining count negative
// instead of failing.
func (this *BitReader) ReadBits(count uint) uint32 {
	v := uint32((this.current << this.bitsConsumed) >> (64 - count))
	this.bitsConsumed += count
	this.remaining -= int(count)

	for this.bitsConsumed >= 8 && this.offset > 0 {
		this.offset--
		this.bitsConsumed -= 8
		this.current = this.current<<8 | uint64(this.src[this.offset])
	}

	return v
}

// Overread reports whether more bits were requested than the stream
// holds.
func (this *BitReader) Overread() bool {
	return this.remaining < 0
}

// Remaining returns the number of unread payload bits.
func (this *BitReader) Remaining() int {
	return this.remaining
}
