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

import (
	"encoding/binary"
	"errors"
)

const (
	// PredTableLog is the log2 size of the position prediction table.
	PredTableLog = 16

	// PredTableSize is the number of (value, confidence) slots.
	PredTableSize = 1 << PredTableLog

	// PredMaxConfidence saturates the per-slot hit counter.
	PredMaxConfidence = 63

	// PredMinSize is the smallest packet worth filtering.
	PredMinSize = 8

	_PRED_HASH_SEED1 = 2654435761
	_PRED_HASH_SEED2 = 2246822519
)

// PredEntry is one slot of the prediction table. Conf == 0 marks an
// empty slot.
type PredEntry struct {
	Value byte
	Conf  byte
}

// PositionPredictor predicts the next byte from (previous byte, byte
// position) context. The table is trained offline from a corpus and
// refined online with a decay counter scheme that resists thrashing
// from hash collisions: an empty slot is filled immediately, a
// mismatch only decrements confidence and a slot is overwritten once
// confidence reaches zero.
type PositionPredictor struct {
	table []PredEntry
}

// NewPositionPredictor creates an empty predictor.
func NewPositionPredictor() *PositionPredictor {
	this := &PositionPredictor{}
	this.table = make([]PredEntry, PredTableSize)
	return this
}

// Clone returns an independent copy. Contexts clone the dictionary's
// trained table so that online refinement never mutates the shared
// dictionary.
func (this *PositionPredictor) Clone() *PositionPredictor {
	res := &PositionPredictor{}
	res.table = make([]PredEntry, PredTableSize)
	copy(res.table, this.table)
	return res
}

// CopyFrom restores this predictor to the state of src.
func (this *PositionPredictor) CopyFrom(src *PositionPredictor) {
	copy(this.table, src.table)
}

// Entries exposes the raw table for dictionary (de)serialization.
func (this *PositionPredictor) Entries() []PredEntry {
	return this.table
}

func predHash(prev byte, pos int) uint32 {
	return (uint32(prev)*_PRED_HASH_SEED1 ^ uint32(pos)*_PRED_HASH_SEED2) >> (32 - PredTableLog)
}

func (this *PositionPredictor) predict(prev byte, pos int) (byte, bool) {
	e := this.table[predHash(prev, pos)]
	return e.Value, e.Conf > 0
}

// Update refines the table with a fully reconstructed packet. Encoder
// and decoder run the identical update on identical bytes, so the two
// sides never need synchronization messages.
func (this *PositionPredictor) Update(block []byte) {
	prev := byte(0)

	for i, b := range block {
		e := &this.table[predHash(prev, i)]

		if e.Conf == 0 {
			e.Value = b
			e.Conf = 1
		} else if e.Value == b {
			if e.Conf < PredMaxConfidence {
				e.Conf++
			}
		} else {
			e.Conf--
		}

		prev = b
	}
}

// HitCount returns how many bytes of src the table currently predicts.
func (this *PositionPredictor) HitCount(src []byte) int {
	hits := 0
	prev := byte(0)

	for i, b := range src {
		if v, ok := this.predict(prev, i); ok == true && v == b {
			hits++
		}

		prev = b
	}

	return hits
}

// FilterEncode emits actual XOR predicted for every byte: a same
// length, lower entropy stream for downstream tANS coding. A position
// with no valid prediction passes through unchanged (prediction 0).
func (this *PositionPredictor) FilterEncode(src, dst []byte) error {
	if len(dst) < len(src) {
		return errors.New("Position predictor: destination too small")
	}

	prev := byte(0)

	for i, b := range src {
		p, ok := this.predict(prev, i)

		if ok == false {
			p = 0
		}

		dst[i] = b ^ p
		prev = b
	}

	return nil
}

// FilterDecode inverts FilterEncode. The context byte is the already
// reconstructed previous plaintext byte.
func (this *PositionPredictor) FilterDecode(src, dst []byte) error {
	if len(dst) < len(src) {
		return errors.New("Position predictor: destination too small")
	}

	prev := byte(0)

	for i, r := range src {
		p, ok := this.predict(prev, i)

		if ok == false {
			p = 0
		}

		b := r ^ p
		dst[i] = b
		prev = b
	}

	return nil
}

// MaskEncode is the standalone wire form: a 2-byte literal count, one
// hit/miss bit per byte (MSB first), then the literal bytes for every
// miss. Returns the number of bytes written or an error when the
// result would not be smaller than the input.
func (this *PositionPredictor) MaskEncode(src, dst []byte) (int, error) {
	n := len(src)
	maskLen := (n + 7) >> 3
	litCount := n - this.HitCount(src)
	total := 2 + maskLen + litCount

	if total >= n {
		return 0, errors.New("Position predictor: block not predictable enough")
	}

	if len(dst) < total {
		return 0, errors.New("Position predictor: destination too small")
	}

	binary.LittleEndian.PutUint16(dst[0:2], uint16(litCount))

	for i := 2; i < 2+maskLen; i++ {
		dst[i] = 0
	}

	lit := 2 + maskLen
	prev := byte(0)

	for i, b := range src {
		v, ok := this.predict(prev, i)

		if ok == true && v == b {
			dst[2+(i>>3)] |= 0x80 >> uint(i&7)
		} else {
			dst[lit] = b
			lit++
		}

		prev = b
	}

	return lit, nil
}

// MaskDecode inverts MaskEncode into dst, whose length must be the
// original packet size.
func (this *PositionPredictor) MaskDecode(src, dst []byte) error {
	n := len(dst)
	maskLen := (n + 7) >> 3

	if len(src) < 2+maskLen {
		return errors.New("Position predictor: truncated stream")
	}

	litCount := int(binary.LittleEndian.Uint16(src[0:2]))

	if len(src) != 2+maskLen+litCount {
		return errors.New("Position predictor: invalid literal count")
	}

	lit := 2 + maskLen
	prev := byte(0)

	for i := 0; i < n; i++ {
		var b byte

		if src[2+(i>>3)]&(0x80>>uint(i&7)) != 0 {
			v, ok := this.predict(prev, i)

			if ok == false {
				return errors.New("Position predictor: hit bit with no prediction")
			}

			b = v
		} else {
			if lit >= len(src) {
				return errors.New("Position predictor: literal stream underrun")
			}

			b = src[lit]
			lit++
		}

		dst[i] = b
		prev = b
	}

	return nil
}
