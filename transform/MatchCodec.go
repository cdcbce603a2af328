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
	"errors"
)

// Token stream shared by both back-reference coders:
//
//	0x00..0x7F  literal run of length b+1, followed by the literals
//	0x80..0xFF  back-reference of length (b&0x7F)+3, followed by the offset
//
// Within-packet offsets are one byte holding off-1 (1..256). Ring
// offsets are one byte holding off (1..255), or a zero escape byte
// followed by a little-endian uint16 holding off-1 (up to 65536).

const (
	// MatchMinLen is the minimum back-reference length.
	MatchMinLen = 3

	// MatchMaxLen is the maximum back-reference length.
	MatchMaxLen = 130

	// MatchMaxLiteralRun is the longest single literal run token.
	MatchMaxLiteralRun = 128

	_MATCH_LOCAL_WINDOW = 256
	_MATCH_RING_WINDOW  = 65536
	_MATCH_HASH_LOG     = 12
	_MATCH_HASH_SEED    = 0x9E3779B1
)

// MatchCodec finds greedy back-references through a small hash table
// over 3-byte prefixes. The same instance is reused across packets; the
// hash table and the concatenation scratch grow once and are cleared
// per call.
type MatchCodec struct {
	hashes []int32
	vbuf   []byte
}

// NewMatchCodec creates a reusable matcher.
func NewMatchCodec() *MatchCodec {
	this := &MatchCodec{}
	this.hashes = make([]int32, 1<<_MATCH_HASH_LOG)
	this.vbuf = make([]byte, 0)
	return this
}

func matchHash(p []byte) uint32 {
	v := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
	return (v * _MATCH_HASH_SEED) >> (32 - _MATCH_HASH_LOG)
}

func matchLength(v []byte, ref, cur, maxLen int) int {
	n := 0

	for n < maxLen && v[ref+n] == v[cur+n] {
		n++
	}

	return n
}

// encode runs the greedy matcher over v starting at base (bytes before
// base are history, searchable but not emitted). ringForm selects the
// escape offset encoding and the wide window.
func (this *MatchCodec) encode(v []byte, base int, dst []byte, ringForm bool) (int, error) {
	for i := range this.hashes {
		this.hashes[i] = 0
	}

	window := _MATCH_LOCAL_WINDOW

	if ringForm == true {
		window = _MATCH_RING_WINDOW
	}

	end := len(v)
	n := end - base
	out := 0
	lit := base

	// Seed the table with the history prefix
	for i := 0; i+MatchMinLen <= base; i++ {
		this.hashes[matchHash(v[i:])] = int32(i + 1)
	}

	flush := func(from, to int) error {
		for from < to {
			run := min(MatchMaxLiteralRun, to-from)

			if out+1+run > len(dst) {
				return errors.New("Match codec: destination too small")
			}

			dst[out] = byte(run - 1)
			out++
			copy(dst[out:], v[from:from+run])
			out += run
			from += run
		}

		return nil
	}

	i := base

	for i+MatchMinLen <= end {
		h := matchHash(v[i:])
		cand := int(this.hashes[h]) - 1
		this.hashes[h] = int32(i + 1)
		bestLen := 0

		if cand >= 0 {
			off := i - cand

			if off >= 1 && off <= window && v[cand] == v[i] && v[cand+1] == v[i+1] && v[cand+2] == v[i+2] {
				maxLen := min(MatchMaxLen, end-i)
				bestLen = matchLength(v, cand, i, maxLen)
			}
		}

		if bestLen < MatchMinLen {
			i++
			continue
		}

		if err := flush(lit, i); err != nil {
			return 0, err
		}

		off := i - cand
		need := 2

		if ringForm == true && off > 255 {
			need = 4
		}

		if out+need > len(dst) {
			return 0, errors.New("Match codec: destination too small")
		}

		dst[out] = 0x80 | byte(bestLen-MatchMinLen)
		out++

		if ringForm == false {
			dst[out] = byte(off - 1)
			out++
		} else if off <= 255 {
			dst[out] = byte(off)
			out++
		} else {
			dst[out] = 0
			dst[out+1] = byte(off - 1)
			dst[out+2] = byte((off - 1) >> 8)
			out += 3
		}

		// Keep the table fresh inside the match
		for k := i + 1; k < i+bestLen && k+MatchMinLen <= end; k++ {
			this.hashes[matchHash(v[k:])] = int32(k + 1)
		}

		i += bestLen
		lit = i
	}

	if err := flush(lit, end); err != nil {
		return 0, err
	}

	if out >= n {
		return 0, errors.New("Match codec: block not compressible")
	}

	return out, nil
}

// EncodeLocal codes src against itself within a 256-byte lookback
// window. Returns the token stream size or an error when the result is
// not smaller than the input.
func (this *MatchCodec) EncodeLocal(src, dst []byte) (int, error) {
	if len(src) < MatchMinLen {
		return 0, errors.New("Match codec: block too small")
	}

	return this.encode(src, 0, dst, false)
}

// EncodeRing codes src against the concatenation of recent ring history
// and src itself, with offsets up to 65536 reaching into the history.
func (this *MatchCodec) EncodeRing(hist, src, dst []byte) (int, error) {
	if len(src) < MatchMinLen {
		return 0, errors.New("Match codec: block too small")
	}

	total := len(hist) + len(src)

	if len(this.vbuf) < total {
		this.vbuf = make([]byte, total)
	}

	v := this.vbuf[0:total]
	copy(v, hist)
	copy(v[len(hist):], src)
	return this.encode(v, len(hist), dst, true)
}

// decode expands the token stream src into v starting at base; bytes
// before base are pre-filled history. n is the expected output size.
func decode(v []byte, base int, src []byte, n int, ringForm bool) error {
	pos := base
	end := base + n
	in := 0

	for in < len(src) {
		tok := int(src[in])
		in++

		if tok < 0x80 {
			run := tok + 1

			if in+run > len(src) || pos+run > end {
				return errors.New("Invalid token stream: literal run out of bounds")
			}

			copy(v[pos:], src[in:in+run])
			in += run
			pos += run
			continue
		}

		length := (tok & 0x7F) + MatchMinLen
		var off int

		if ringForm == false {
			if in >= len(src) {
				return errors.New("Invalid token stream: truncated offset")
			}

			off = int(src[in]) + 1
			in++
		} else {
			if in >= len(src) {
				return errors.New("Invalid token stream: truncated offset")
			}

			b := int(src[in])
			in++

			if b != 0 {
				off = b
			} else {
				if in+2 > len(src) {
					return errors.New("Invalid token stream: truncated offset")
				}

				off = (int(src[in]) | int(src[in+1])<<8) + 1
				in += 2
			}
		}

		ref := pos - off

		if ref < 0 || pos+length > end {
			return errors.New("Invalid token stream: back-reference out of bounds")
		}

		// Byte by byte: source and destination may overlap
		for k := 0; k < length; k++ {
			v[pos+k] = v[ref+k]
		}

		pos += length
	}

	if pos != end {
		return errors.New("Invalid token stream: output size mismatch")
	}

	return nil
}

// DecodeLocal expands a within-packet token stream into dst, whose
// length must be the original packet size.
func DecodeLocal(src, dst []byte) error {
	return decode(dst, 0, src, len(dst), false)
}

// DecodeRing expands a cross-packet token stream. hist must hold the
// same recent plaintext the encoder searched; the reconstructed packet
// is written into dst.
func (this *MatchCodec) DecodeRing(hist, src, dst []byte) error {
	total := len(hist) + len(dst)

	if len(this.vbuf) < total {
		this.vbuf = make([]byte, total)
	}

	v := this.vbuf[0:total]
	copy(v, hist)

	if err := decode(v, len(hist), src, len(dst), true); err != nil {
		return err
	}

	copy(dst, v[len(hist):total])
	return nil
}
