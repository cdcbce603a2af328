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

// Package entropy implements the tabular Asymmetric Numeral System
// coder used by the wirepack packet compressor, together with the
// frequency normalization shared by dictionary training and adaptive
// table rebuilds.
package entropy

import (
	"fmt"

	internal "github.com/wirepack/wirepack/internal"
)

// NormalizeCounts scales raw symbol counts so that the 256 normalized
// frequencies sum to exactly 'scale'. Two phases: every symbol first
// receives a floor of one slot (an unseen symbol must remain
// encodable), then the remaining budget is distributed proportionally
// to the observed counts. The rounding remainder goes to the single
// most frequent symbol, lowest index on ties. An all-zero histogram
// normalizes to the uniform distribution.
func NormalizeCounts(counts []int, norm []uint16, scale int) error {
	if len(counts) < 256 || len(norm) < 256 {
		return fmt.Errorf("Invalid table size: %d counts, %d normalized (must both be 256)", len(counts), len(norm))
	}

	if scale < 256 || scale > 65536 {
		return fmt.Errorf("Invalid scale: %d (must be in [256..65536])", scale)
	}

	total := 0

	for i := 0; i < 256; i++ {
		if counts[i] < 0 {
			return fmt.Errorf("Invalid count for symbol %d: %d", i, counts[i])
		}

		total += counts[i]
	}

	if total == 0 {
		// Uniform distribution
		q := scale >> 8
		r := scale & 255

		for i := 0; i < 256; i++ {
			norm[i] = uint16(q)

			if i < r {
				norm[i]++
			}
		}

		return nil
	}

	budget := scale - 256
	sum := 0
	idxMax := 0

	for i := 0; i < 256; i++ {
		extra := int(int64(budget) * int64(counts[i]) / int64(total))
		norm[i] = uint16(1 + extra)
		sum += 1 + extra

		if counts[i] > counts[idxMax] {
			idxMax = i
		}
	}

	// Flooring always leaves sum <= scale
	norm[idxMax] += uint16(scale - sum)
	return nil
}

// VerifyCounts checks that the normalized frequencies sum to exactly
// 'scale'. A violating table must fail at build time, never at runtime.
func VerifyCounts(norm []uint16, scale int) error {
	if len(norm) < 256 {
		return fmt.Errorf("Invalid table size: %d (must be 256)", len(norm))
	}

	sum := 0

	for i := 0; i < 256; i++ {
		sum += int(norm[i])
	}

	if sum != scale {
		return fmt.Errorf("Invalid frequency table: sum is %d, expected %d", sum, scale)
	}

	return nil
}

// EstimateSize returns an approximate coded size in bytes for a block
// with byte histogram 'hist' under the normalized table 'norm'. Used to
// pick the best-fit bucket table without running a full trial encode.
func EstimateSize(norm []uint16, hist []int, tableLog uint) int {
	bits := 0

	for s := 0; s < 256; s++ {
		if hist[s] == 0 {
			continue
		}

		f := uint32(norm[s])

		if f == 0 {
			// Not encodable with this table
			return 1 << 30
		}

		l, _ := internal.Log2_1024(f)
		bits += hist[s] * (int(tableLog<<10) - int(l))
	}

	return (bits >> 13) + int(tableLog>>2) + 2
}
