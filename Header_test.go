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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketTypeTable(t *testing.T) {
	valid := 0

	for _, pt := range _PACKET_TYPES {
		if pt.valid == false {
			continue
		}

		valid++
		require.True(t, validCombo(pt.algo, pt.flags))
	}

	// 16 (single) + 8 (multi) + 32 (pctx) + 16 (pctx10) + 4 flagless
	require.Equal(t, 76, valid)

	// Round trip through the index
	for i, pt := range _PACKET_TYPES {
		if pt.valid == true {
			require.Equal(t, int16(i), _TYPE_INDEX[comboKey(pt.algo, pt.flags)])
		}
	}
}

func TestValidCombo(t *testing.T) {
	require.True(t, validCombo(AlgoPassthrough, 0))
	require.True(t, validCombo(AlgoPCTX, FlagDelta|FlagDual|FlagBigram|FlagAdaptive))
	require.True(t, validCombo(AlgoSingle, FlagPredictXOR|FlagDual))
	require.True(t, validCombo(AlgoMulti, FlagDelta2|FlagAdaptive))

	// Back-reference and passthrough packets never carry flags
	require.False(t, validCombo(AlgoMatch, FlagDelta))
	require.False(t, validCombo(AlgoMatchRing, FlagAdaptive))
	require.False(t, validCombo(AlgoPredictMask, FlagPredictXOR))

	// Mutually exclusive pre-filters
	require.False(t, validCombo(AlgoPCTX, FlagDelta|FlagDelta2))
	require.False(t, validCombo(AlgoPCTX, FlagDelta|FlagPredictXOR))

	// Bigram refinement only applies to the context model
	require.False(t, validCombo(AlgoSingle, FlagBigram))
	require.False(t, validCombo(AlgoPCTX10, FlagBigram))
	require.False(t, validCombo(AlgoMulti, FlagDual))

	require.False(t, validCombo(numAlgos, 0))
	require.False(t, validCombo(AlgoPCTX, 0x40))
}

func TestLegacyHeaderRoundTrip(t *testing.T) {
	h := header{origSize: 1234, flags: FlagDelta | FlagBigram, algo: AlgoPCTX, modelID: 7, seq: 200}
	buf := make([]byte, 20)
	hn, err := legacyHeaderEncode(buf, h, 12)
	require.NoError(t, err)
	require.Equal(t, 8, hn)

	payload := []byte("abcdefghijkl")
	packet := append(buf[:hn], payload...)
	got, body, err := headerDecode(packet, false)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, payload, body)
}

func TestLegacyHeaderRejects(t *testing.T) {
	h := header{origSize: 100, algo: AlgoSingle, modelID: 1, seq: 0}
	buf := make([]byte, 8)
	_, err := legacyHeaderEncode(buf, h, 5)
	require.NoError(t, err)

	// Truncated
	_, _, err = headerDecode(buf[:7], false)
	require.ErrorIs(t, err, ErrCorrupt)

	// Compressed size field disagrees with the payload
	_, _, err = headerDecode(append(buf, make([]byte, 9)...), false)
	require.ErrorIs(t, err, ErrCorrupt)

	// Reserved algorithm
	bad := append([]byte(nil), buf...)
	bad = append(bad, make([]byte, 5)...)
	bad[5] = 99
	_, _, err = headerDecode(bad, false)
	require.ErrorIs(t, err, ErrUnsupported)

	// Invalid flag combination
	bad[5] = AlgoMatch
	bad[4] = FlagDelta
	_, _, err = headerDecode(bad, false)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestCompactHeaderRoundTrip(t *testing.T) {
	for _, origSize := range []int{1, 127, 128, 1000, MaxPacketSize} {
		h := header{origSize: origSize, flags: FlagDelta, algo: AlgoPCTX}
		buf := make([]byte, 8)
		hn, err := compactHeaderEncode(buf, h)
		require.NoError(t, err)

		if origSize <= 127 {
			require.Equal(t, 2, hn)
		} else {
			require.Equal(t, 4, hn)
		}

		got, body, err := headerDecode(buf[:hn], true)
		require.NoError(t, err)
		require.Equal(t, origSize, got.origSize)
		require.Equal(t, h.flags, got.flags)
		require.Equal(t, h.algo, got.algo)
		require.Empty(t, body)
	}
}

func TestCompactHeaderRejects(t *testing.T) {
	// Find an unassigned type byte
	unassigned := -1

	for i := len(_PACKET_TYPES) - 1; i >= 0; i-- {
		if _PACKET_TYPES[i].valid == false {
			unassigned = i
			break
		}
	}

	require.GreaterOrEqual(t, unassigned, 0)

	_, _, err := headerDecode([]byte{byte(unassigned), 10}, true)
	require.ErrorIs(t, err, ErrCorrupt)

	// Zero size
	_, _, err = headerDecode([]byte{0, 0}, true)
	require.ErrorIs(t, err, ErrCorrupt)

	// Continuation byte without the extension
	_, _, err = headerDecode([]byte{0, 0x85}, true)
	require.ErrorIs(t, err, ErrCorrupt)

	// No type for an invalid combination
	_, err = compactHeaderEncode(make([]byte, 8), header{origSize: 10, flags: FlagDelta, algo: AlgoMatch})
	require.ErrorIs(t, err, ErrInvalidArgument)
}
