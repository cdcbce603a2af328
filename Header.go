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

package wirepack

import (
	"encoding/binary"
	"fmt"
)

// Packet headers come in two forms. The legacy form is a fixed 8
// bytes, little-endian:
//
//	[origSize:u16][compSize:u16][flags:u8][algo:u8][modelID:u8][seq:u8]
//
// The compact form is 2 to 4 bytes: one packet-type byte selecting a
// pre-agreed {flags, algorithm} pair from a fixed 256-entry table,
// then a variable-length original-size field (one raw byte when the
// size fits 7 bits, otherwise a continuation byte 0x80|low7 followed
// by a little-endian uint16 holding the remaining high bits).
//
// Decoding a header is a pure function of the received bytes; only the
// dictionary's model id is consulted afterwards for validation.

const (
	_LEGACY_HEADER_SIZE = 8
	_COMPACT_HEADER_MIN = 2
	_COMPACT_HEADER_MAX = 4
	_COMPACT_SIZE_1BYTE = 127
)

type header struct {
	origSize int
	flags    uint8
	algo     uint8
	modelID  uint8
	seq      uint8
}

type packetType struct {
	flags uint8
	algo  uint8
	valid bool
}

var (
	_PACKET_TYPES [256]packetType
	_TYPE_INDEX   [int(numAlgos) << 6]int16
)

// validCombo reports whether a {flags, algorithm} pair is assignable to
// a packet. The pre-filter, dual, bigram and adaptive flags only make
// sense for the entropy-coding algorithms.
func validCombo(algo, flags uint8) bool {
	if algo >= numAlgos || flags&^flagsMask != 0 {
		return false
	}

	prefilter := flags & (FlagDelta | FlagDelta2 | FlagPredictXOR)

	switch prefilter {
	case 0, FlagDelta, FlagDelta2, FlagPredictXOR:
	default:
		return false
	}

	switch algo {
	case AlgoPassthrough, AlgoMatch, AlgoMatchRing, AlgoPredictMask:
		return flags == 0

	case AlgoSingle, AlgoPCTX10:
		return flags&FlagBigram == 0

	case AlgoMulti:
		return flags&(FlagBigram|FlagDual) == 0

	case AlgoPCTX:
		return true
	}

	return false
}

func comboKey(algo, flags uint8) int {
	return int(algo)<<6 | int(flags)
}

func init() {
	for i := range _TYPE_INDEX {
		_TYPE_INDEX[i] = -1
	}

	// Deterministic enumeration: both sides must build the same table.
	next := 0

	for algo := uint8(0); algo < uint8(numAlgos); algo++ {
		for flags := uint8(0); flags <= flagsMask; flags++ {
			if validCombo(algo, flags) == false {
				continue
			}

			_PACKET_TYPES[next] = packetType{flags: flags, algo: algo, valid: true}
			_TYPE_INDEX[comboKey(algo, flags)] = int16(next)
			next++
		}
	}
}

func legacyHeaderEncode(dst []byte, h header, compSize int) (int, error) {
	if len(dst) < _LEGACY_HEADER_SIZE {
		return 0, ErrOutputTooSmall
	}

	binary.LittleEndian.PutUint16(dst[0:2], uint16(h.origSize))
	binary.LittleEndian.PutUint16(dst[2:4], uint16(compSize))
	dst[4] = h.flags
	dst[5] = h.algo
	dst[6] = h.modelID
	dst[7] = h.seq
	return _LEGACY_HEADER_SIZE, nil
}

func compactHeaderEncode(dst []byte, h header) (int, error) {
	idx := _TYPE_INDEX[comboKey(h.algo, h.flags)]

	if idx < 0 {
		return 0, fmt.Errorf("%w: no packet type for algorithm %d flags %#x", ErrInvalidArgument, h.algo, h.flags)
	}

	n := _COMPACT_HEADER_MIN

	if h.origSize > _COMPACT_SIZE_1BYTE {
		n = _COMPACT_HEADER_MAX
	}

	if len(dst) < n {
		return 0, ErrOutputTooSmall
	}

	dst[0] = byte(idx)

	if h.origSize <= _COMPACT_SIZE_1BYTE {
		dst[1] = byte(h.origSize)
	} else {
		dst[1] = 0x80 | byte(h.origSize&0x7F)
		binary.LittleEndian.PutUint16(dst[2:4], uint16(h.origSize>>7))
	}

	return n, nil
}

// headerDecode parses the header matching the configured form and
// returns it together with the payload bytes. It is a pure function of
// src; no context state is consulted.
func headerDecode(src []byte, compact bool) (header, []byte, error) {
	var h header

	if compact == false {
		if len(src) < _LEGACY_HEADER_SIZE {
			return h, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
		}

		h.origSize = int(binary.LittleEndian.Uint16(src[0:2]))
		compSize := int(binary.LittleEndian.Uint16(src[2:4]))
		h.flags = src[4]
		h.algo = src[5]
		h.modelID = src[6]
		h.seq = src[7]

		if h.algo >= uint8(numAlgos) {
			return h, nil, fmt.Errorf("%w: algorithm %d", ErrUnsupported, h.algo)
		}

		if validCombo(h.algo, h.flags) == false {
			return h, nil, fmt.Errorf("%w: invalid flag combination %#x for algorithm %d", ErrCorrupt, h.flags, h.algo)
		}

		if compSize != len(src)-_LEGACY_HEADER_SIZE {
			return h, nil, fmt.Errorf("%w: compressed size field %d does not match payload %d", ErrCorrupt, compSize, len(src)-_LEGACY_HEADER_SIZE)
		}

		if h.origSize == 0 {
			return h, nil, fmt.Errorf("%w: null original size", ErrCorrupt)
		}

		return h, src[_LEGACY_HEADER_SIZE:], nil
	}

	if len(src) < _COMPACT_HEADER_MIN {
		return h, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}

	pt := _PACKET_TYPES[src[0]]

	if pt.valid == false {
		return h, nil, fmt.Errorf("%w: unassigned packet type %d", ErrCorrupt, src[0])
	}

	h.flags = pt.flags
	h.algo = pt.algo
	n := _COMPACT_HEADER_MIN

	if src[1] <= _COMPACT_SIZE_1BYTE {
		h.origSize = int(src[1])
	} else {
		if len(src) < _COMPACT_HEADER_MAX {
			return h, nil, fmt.Errorf("%w: truncated size field", ErrCorrupt)
		}

		h.origSize = int(src[1]&0x7F) | int(binary.LittleEndian.Uint16(src[2:4]))<<7
		n = _COMPACT_HEADER_MAX
	}

	if h.origSize == 0 || h.origSize > MaxPacketSize {
		return h, nil, fmt.Errorf("%w: original size %d out of range", ErrCorrupt, h.origSize)
	}

	return h, src[n:], nil
}
