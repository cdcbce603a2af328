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

package entropy

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/wirepack/wirepack/bitstream"
)

// Implementation of a tabular Asymmetric Numeral System codec.
// See "Asymmetric Numeral System" by Jarek Duda at http://arxiv.org/abs/0902.0271
// For an alternate C implementation example, see https://github.com/Cyan4973/FiniteStateEntropy

const (
	// TableLog12 is the default table size (4096 slots).
	TableLog12 = uint(12)

	// TableLog10 is the reduced variant for small packets (1024 slots).
	TableLog10 = uint(10)

	// DualThreshold is the minimum payload size for which the dual
	// interleaved state machine is worth its extra transmitted state.
	DualThreshold = 256
)

type encSymbol struct {
	deltaStart int32  // cumulative start minus frequency
	threshold  uint32 // below it one fewer bit is flushed
	freq       uint16
	maxBits    uint8
}

type decSlot struct {
	newState uint16 // (freq + rank) << nbBits, absolute in [size, 2*size)
	symbol   uint8
	nbBits   uint8
}

// Table is an immutable pair of encode/decode views built from one
// normalized frequency table. Safe for concurrent use once built.
type Table struct {
	encSymbols [256]encSymbol
	encStates  []uint16 // transition targets, in [size, 2*size)
	decSlots   []decSlot
	log        uint
	size       uint32
}

// NewTable builds the encode and decode tables for the given normalized
// frequencies. The frequencies must sum to exactly 1<<tableLog; a
// violation is a build error, never a runtime one.
func NewTable(norm []uint16, tableLog uint) (*Table, error) {
	if tableLog != TableLog12 && tableLog != TableLog10 {
		return nil, fmt.Errorf("Invalid table log: %d (must be 10 or 12)", tableLog)
	}

	size := 1 << tableLog

	if err := VerifyCounts(norm, size); err != nil {
		return nil, err
	}

	this := &Table{}
	this.log = tableLog
	this.size = uint32(size)
	this.encStates = make([]uint16, size)
	this.decSlots = make([]decSlot, size)

	// Spread the symbols over the table with a stride coprime with the
	// table size: a single linear walk visits every slot exactly once.
	spread := make([]uint8, size)
	step := (size >> 1) + (size >> 3) + 3
	mask := size - 1
	pos := 0

	for s := 0; s < 256; s++ {
		for k := 0; k < int(norm[s]); k++ {
			spread[pos] = uint8(s)
			pos = (pos + step) & mask
		}
	}

	// Cumulative frequency starts
	var cum [257]int32

	for s := 0; s < 256; s++ {
		cum[s+1] = cum[s] + int32(norm[s])
	}

	// Decode slots and encode transition targets in one walk
	var seen [256]int32

	for p := 0; p < size; p++ {
		s := spread[p]
		x := uint32(norm[s]) + uint32(seen[s])
		nb := tableLog - uint(bits.Len32(x)) + 1
		this.decSlots[p] = decSlot{
			newState: uint16(x << nb),
			symbol:   s,
			nbBits:   uint8(nb),
		}
		this.encStates[cum[s]+seen[s]] = uint16(uint32(size) + uint32(p))
		seen[s]++
	}

	// Per symbol encode metadata
	for s := 0; s < 256; s++ {
		f := uint32(norm[s])
		sym := &this.encSymbols[s]
		sym.freq = norm[s]

		if f == 0 {
			continue
		}

		maxBits := tableLog - uint(bits.Len32(f)) + 1
		sym.maxBits = uint8(maxBits)
		sym.threshold = f << maxBits
		sym.deltaStart = cum[s] - int32(f)
	}

	return this, nil
}

// Log returns the table log (10 or 12).
func (this *Table) Log() uint {
	return this.log
}

// Size returns the number of slots.
func (this *Table) Size() int {
	return int(this.size)
}

// Selector picks the coding table for a symbol position. prev is the
// preceding plaintext byte (0 at position 0). All returned tables must
// share the same table log.
type Selector func(pos int, prev byte) *Table

// Fixed returns a Selector that always yields the same table.
func Fixed(t *Table) Selector {
	return func(int, byte) *Table {
		return t
	}
}

func (this *Table) encodeSymbol(w *bitstream.BitWriter, state uint32, s byte) (uint32, error) {
	sym := &this.encSymbols[s]

	if sym.freq == 0 {
		return 0, fmt.Errorf("Symbol %d has a null frequency in this table", s)
	}

	nb := uint(sym.maxBits)

	if state < sym.threshold {
		nb--
	}

	w.WriteBits(state&((1<<nb)-1), nb)
	return uint32(this.encStates[sym.deltaStart+int32(state>>nb)]), nil
}

// Encode compresses src into dst with a per-position table choice and
// returns the number of bytes written. Symbols are processed in reverse
// order; the final state(s) and the sentinel close the stream. With
// dual set, two independent state machines share the bit stream (lane =
// position & 1), exposing instruction level parallelism at the price of
// one extra transmitted state.
func Encode(sel Selector, src, dst []byte, dual bool) (int, error) {
	if len(src) == 0 {
		return 0, errors.New("Invalid empty input block")
	}

	first := sel(0, 0)

	if first == nil {
		return 0, errors.New("Invalid null coding table")
	}

	log := first.log
	size := first.size
	var w bitstream.BitWriter
	w.Reset(dst)
	st0 := size
	st1 := size
	var err error

	for i := len(src) - 1; i >= 0; i-- {
		var prev byte

		if i > 0 {
			prev = src[i-1]
		}

		t := sel(i, prev)

		if t == nil || t.log != log {
			return 0, errors.New("Invalid coding table for position")
		}

		if dual == true && i&1 == 1 {
			st1, err = t.encodeSymbol(&w, st1, src[i])
		} else {
			st0, err = t.encodeSymbol(&w, st0, src[i])
		}

		if err != nil {
			return 0, err
		}
	}

	// The decoder reads values in reverse write order: lane 0 state last
	if dual == true {
		w.WriteBits(st1-size, log)
	}

	w.WriteBits(st0-size, log)
	return w.Finish()
}

// Decode is the exact mirror of Encode. It decompresses src into dst
// (whose length is the original symbol count) and fails on any bit
// underflow or on a final state that does not match the encoder's
// starting state.
func Decode(sel Selector, src, dst []byte, dual bool) error {
	if len(dst) == 0 {
		return errors.New("Invalid empty output block")
	}

	first := sel(0, 0)

	if first == nil {
		return errors.New("Invalid null coding table")
	}

	log := first.log
	size := first.size
	var r bitstream.BitReader

	if err := r.Reset(src); err != nil {
		return err
	}

	st0 := size + r.ReadBits(log)
	st1 := size

	if dual == true {
		st1 = size + r.ReadBits(log)
	}

	prev := byte(0)

	for i := range dst {
		t := sel(i, prev)

		if t == nil || t.log != log {
			return errors.New("Invalid coding table for position")
		}

		var st *uint32

		if dual == true && i&1 == 1 {
			st = &st1
		} else {
			st = &st0
		}

		idx := *st - size

		if idx >= size {
			return fmt.Errorf("Invalid bitstream: decode state %d out of range", *st)
		}

		slot := &t.decSlots[idx]
		dst[i] = slot.symbol
		*st = uint32(slot.newState) + r.ReadBits(uint(slot.nbBits))
		prev = slot.symbol
	}

	if r.Overread() == true {
		return errors.New("Invalid bitstream: truncated tANS stream")
	}

	if st0 != size || st1 != size {
		return errors.New("Invalid bitstream: final decode state mismatch")
	}

	return nil
}

// MaxEncodedLen returns the destination size that guarantees a trial
// encode never fails for lack of room.
func MaxEncodedLen(srcLen int) int {
	// Worst case is tableLog bits per symbol plus states and sentinel
	return 2*srcLen + 16
}
