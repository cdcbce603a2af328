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
	"github.com/wirepack/wirepack/entropy"
	"github.com/wirepack/wirepack/internal"
)

const (
	_ADAPTIVE_INTERVAL   = 64
	_ADAPTIVE_ACC_WEIGHT = 4
	_ADAPTIVE_BASE_UNIT  = 4096
)

// adaptiveState tracks observed byte frequencies per bucket and
// periodically rebuilds the per-context entropy tables by blending the
// accumulators with the dictionary's static counts. Both peers run the
// same deterministic schedule, so the adapted tables stay in sync
// without any side channel.
type adaptiveState struct {
	accum    [internal.NumBuckets][256]uint32
	total    uint64
	packets  int
	tables12 [internal.NumBuckets]*entropy.Table
	tables10 [internal.NumBuckets]*entropy.Table
}

func newAdaptiveState(dict *Dictionary) *adaptiveState {
	a := &adaptiveState{}
	a.reset(dict)
	return a
}

func (this *adaptiveState) reset(dict *Dictionary) {
	for bkt := 0; bkt < internal.NumBuckets; bkt++ {
		for s := 0; s < 256; s++ {
			this.accum[bkt][s] = 0
		}

		this.tables12[bkt] = dict.tables12[bkt]
		this.tables10[bkt] = dict.tables10[bkt]
	}

	this.total = 0
	this.packets = 0
}

// accumulate folds one packet of plaintext into the frequency
// accumulators. Always called with the original bytes, never with a
// pre-filter residual.
func (this *adaptiveState) accumulate(block []byte) {
	for pos, b := range block {
		this.accum[internal.Bucket(pos)][b]++
	}

	this.total += uint64(len(block))
	this.packets++
}

// maybeRebuild regenerates the adapted tables every interval. A bucket
// whose blended distribution cannot produce a valid table falls back to
// the dictionary's static table for that bucket.
func (this *adaptiveState) maybeRebuild(dict *Dictionary) {
	if this.packets < _ADAPTIVE_INTERVAL {
		return
	}

	this.packets = 0
	baseScale := uint32(1)

	if w := uint32(this.total / _ADAPTIVE_BASE_UNIT); w > 1 {
		baseScale = w
	}

	counts := make([]int, 256)
	var norm12 [256]uint16
	var norm10 [256]uint16

	for bkt := 0; bkt < internal.NumBuckets; bkt++ {
		for s := 0; s < 256; s++ {
			counts[s] = int(_ADAPTIVE_ACC_WEIGHT*this.accum[bkt][s] + uint32(dict.counts[bkt][s])*baseScale)
		}

		ok := true

		if err := entropy.NormalizeCounts(counts, norm12[:], 1<<entropy.TableLog12); err != nil {
			ok = false
		}

		if ok == true {
			if err := entropy.NormalizeCounts(counts, norm10[:], 1<<entropy.TableLog10); err != nil {
				ok = false
			}
		}

		if ok == true {
			t12, err12 := entropy.NewTable(norm12[:], entropy.TableLog12)
			t10, err10 := entropy.NewTable(norm10[:], entropy.TableLog10)

			if err12 != nil || err10 != nil {
				ok = false
			} else {
				this.tables12[bkt] = t12
				this.tables10[bkt] = t10
			}
		}

		if ok == false {
			this.tables12[bkt] = dict.tables12[bkt]
			this.tables10[bkt] = dict.tables10[bkt]
		}

		// Halve the accumulators so stale traffic ages out.
		for s := 0; s < 256; s++ {
			this.accum[bkt][s] >>= 1
		}
	}

	this.total >>= 1
}
