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

// Package internal provides shared tables and helpers for the wirepack
// packet compressor: byte-offset bucket maps, integer log2 approximations
// and histogram accumulation.
package internal

import (
	"errors"
	"math/bits"
)

const (
	// MaxPacketSize is the hard cap on the size of a single packet.
	MaxPacketSize = 65535

	// NumBuckets is the number of fine-grained byte-offset buckets.
	NumBuckets = 16

	// NumLegacyBuckets is the coarse 4-way view (header/subheader/body/tail).
	NumLegacyBuckets = 4

	// NumBigramClasses is the number of coarse previous-byte classes.
	NumBigramClasses = 4
)

// Byte-offset starts of the 16 fine buckets. Bucket 15 covers 512 and up.
var BucketStarts = [NumBuckets]int{
	0, 2, 4, 6, 8, 12, 16, 24, 32, 48, 64, 96, 128, 192, 256, 512,
}

var bucketMap [512]uint8

func init() {
	b := 0

	for pos := 0; pos < 512; pos++ {
		for b+1 < NumBuckets && pos >= BucketStarts[b+1] {
			b++
		}

		bucketMap[pos] = uint8(b)
	}
}

// Bucket returns the fine bucket index for a byte offset within a packet.
func Bucket(pos int) int {
	if pos >= 512 {
		return NumBuckets - 1
	}

	return int(bucketMap[pos])
}

// LegacyBucket returns the coarse 4-way bucket for a byte offset.
// The boundaries (16, 64, 256) also drive the delta field-class split.
func LegacyBucket(pos int) int {
	if pos < 16 {
		return 0
	}

	if pos < 64 {
		return 1
	}

	if pos < 256 {
		return 2
	}

	return 3
}

// BigramClass maps the previous byte to a coarse class: zero, low
// (control/counter), printable, high.
func BigramClass(prev byte) int {
	if prev == 0 {
		return 0
	}

	if prev < 32 {
		return 1
	}

	if prev < 128 {
		return 2
	}

	return 3
}

// LOG2_4096 is an array with 256 elements: 4096*log2(x)
var LOG2_4096 = [...]uint32{
	0, 0, 4096, 6492, 8192, 9511, 10588, 11499, 12288, 12984,
	13607, 14170, 14684, 15157, 15595, 16003, 16384, 16742, 17080, 17400,
	17703, 17991, 18266, 18529, 18780, 19021, 19253, 19476, 19691, 19898,
	20099, 20292, 20480, 20662, 20838, 21010, 21176, 21338, 21496, 21649,
	21799, 21945, 22087, 22226, 22362, 22495, 22625, 22752, 22876, 22998,
	23117, 23234, 23349, 23462, 23572, 23680, 23787, 23892, 23994, 24095,
	24195, 24292, 24388, 24483, 24576, 24668, 24758, 24847, 24934, 25021,
	25106, 25189, 25272, 25354, 25434, 25513, 25592, 25669, 25745, 25820,
	25895, 25968, 26041, 26112, 26183, 26253, 26322, 26390, 26458, 26525,
	26591, 26656, 26721, 26784, 26848, 26910, 26972, 27033, 27094, 27154,
	27213, 27272, 27330, 27388, 27445, 27502, 27558, 27613, 27668, 27722,
	27776, 27830, 27883, 27935, 27988, 28039, 28090, 28141, 28191, 28241,
	28291, 28340, 28388, 28437, 28484, 28532, 28579, 28626, 28672, 28718,
	28764, 28809, 28854, 28898, 28943, 28987, 29030, 29074, 29117, 29159,
	29202, 29244, 29285, 29327, 29368, 29409, 29450, 29490, 29530, 29570,
	29609, 29649, 29688, 29726, 29765, 29803, 29841, 29879, 29916, 29954,
	29991, 30027, 30064, 30100, 30137, 30172, 30208, 30244, 30279, 30314,
	30349, 30384, 30418, 30452, 30486, 30520, 30554, 30587, 30621, 30654,
	30687, 30719, 30752, 30784, 30817, 30849, 30880, 30912, 30944, 30975,
	31006, 31037, 31068, 31099, 31129, 31160, 31190, 31220, 31250, 31280,
	31309, 31339, 31368, 31397, 31426, 31455, 31484, 31513, 31541, 31569,
	31598, 31626, 31654, 31681, 31709, 31737, 31764, 31791, 31818, 31846,
	31872, 31899, 31926, 31952, 31979, 32005, 32031, 32058, 32084, 32109,
	32135, 32161, 32186, 32212, 32237, 32262, 32287, 32312, 32337, 32362,
	32387, 32411, 32436, 32460, 32484, 32508, 32533, 32557, 32580, 32604,
	32628, 32651, 32675, 32698, 32722, 32745, 32768,
}

// Log2NoCheck returns int(log2(x)). x must not be 0.
func Log2NoCheck(x uint32) uint32 {
	return uint32(bits.Len32(x)) - 1
}

// Log2 returns a fast, integer rounded value for log2(x)
func Log2(x uint32) (uint32, error) {
	if x == 0 {
		return 0, errors.New("Cannot calculate log of a null value")
	}

	return Log2NoCheck(x), nil
}

// Log2_1024 returns 1024 * log2(x). Max error is around 0.1%
func Log2_1024(x uint32) (uint32, error) {
	if x == 0 {
		return 0, errors.New("Cannot calculate log of a null value")
	}

	if x < 256 {
		return (LOG2_4096[x] + 2) >> 2, nil
	}

	log := Log2NoCheck(x)

	if x&(x-1) == 0 {
		return log << 10, nil
	}

	return ((log - 7) * 1024) + ((LOG2_4096[x>>(log-7)] + 2) >> 2), nil
}

// ComputeHistogram computes the byte frequencies of the input slice.
// freqs must hold at least 256 entries and is not cleared on entry.
func ComputeHistogram(block []byte, freqs []int) {
	f := freqs[0:256]

	for _, b := range block {
		f[b]++
	}
}

// ZeroCount returns the number of zero bytes in the slice. Used as a
// cheap entropy proxy when ranking residual transforms.
func ZeroCount(block []byte) int {
	n := 0

	for _, b := range block {
		if b == 0 {
			n++
		}
	}

	return n
}
