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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// trainingPackets builds a corpus with stable per-position structure:
// a constant preamble, a slowly varying counter and a noisy payload.
func trainingPackets(t testing.TB, count, size int) [][]byte {
	t.Helper()
	r := rand.New(rand.NewSource(99))
	packets := make([][]byte, count)

	for i := range packets {
		p := make([]byte, size)
		copy(p, []byte{0xCA, 0xFE, 0x01, 0x00})

		for j := 4; j < min(16, size); j++ {
			p[j] = byte(i >> (j & 3))
		}

		for j := 16; j < size; j++ {
			p[j] = byte(r.Intn(8))
		}

		packets[i] = p
	}

	return packets
}

func TestTrainValidation(t *testing.T) {
	_, err := Train(nil, 1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Train([][]byte{{1, 2, 3}}, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Train([][]byte{{1, 2, 3}}, 255)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Train([][]byte{{}}, 1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDictionarySaveLoad(t *testing.T) {
	dict, err := Train(trainingPackets(t, 200, 64), 7)
	require.NoError(t, err)
	require.Equal(t, uint8(7), dict.ModelID())
	require.True(t, dict.HasBigram())
	require.True(t, dict.HasPrediction())

	blob := dict.Save()
	loaded, err := LoadDictionary(blob)
	require.NoError(t, err)
	require.Equal(t, dict.ModelID(), loaded.ModelID())
	require.Equal(t, dict.counts, loaded.counts)
	require.Equal(t, dict.bigramCounts, loaded.bigramCounts)
	require.Equal(t, dict.pred.Entries(), loaded.pred.Entries())

	// Serialization is deterministic
	require.Equal(t, blob, loaded.Save())
}

func TestDictionarySaveLoadMinimal(t *testing.T) {
	dict, err := TrainWithConfig(trainingPackets(t, 50, 32), 3, TrainConfig{})
	require.NoError(t, err)
	require.False(t, dict.HasBigram())
	require.False(t, dict.HasPrediction())

	loaded, err := LoadDictionary(dict.Save())
	require.NoError(t, err)
	require.Equal(t, dict.counts, loaded.counts)
	require.Nil(t, loaded.pred)
}

func TestLoadDictionaryRejectsCorruption(t *testing.T) {
	dict, err := Train(trainingPackets(t, 100, 48), 9)
	require.NoError(t, err)
	blob := dict.Save()

	// A link-layer style corruption of the final byte must fail the
	// checksum, never load a broken model
	bad := append([]byte(nil), blob...)
	bad[len(bad)-1] ^= 0x01
	_, err = LoadDictionary(bad)
	require.ErrorIs(t, err, ErrDictionaryInvalid)

	// Any single-byte corruption anywhere must be caught
	r := rand.New(rand.NewSource(5))

	for i := 0; i < 50; i++ {
		bad = append(bad[:0], blob...)
		bad[r.Intn(len(bad))] ^= byte(1 + r.Intn(255))
		_, err = LoadDictionary(bad)
		require.Error(t, err, "corruption at iteration %d accepted", i)
	}

	// Truncations
	for _, cut := range []int{0, 4, 100, len(blob) - 1} {
		_, err = LoadDictionary(blob[:cut])
		require.ErrorIs(t, err, ErrDictionaryInvalid)
	}
}

func TestLoadDictionaryVersionMismatch(t *testing.T) {
	dict, err := Train(trainingPackets(t, 50, 32), 2)
	require.NoError(t, err)
	blob := dict.Save()
	blob[4] = 99
	_, err = LoadDictionary(blob)
	require.ErrorIs(t, err, ErrVersionMismatch)
}
