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

// Stats holds per-context counters, updated only when the context was
// created with Stats enabled. Counters are plain fields; a context is
// single-goroutine so no atomics are needed.
type Stats struct {
	Packets     uint64
	BytesIn     uint64
	BytesOut    uint64
	Passthrough uint64
	AlgoCounts  [numAlgos]uint64
	Prefiltered uint64
	Rebuilds    uint64
}

// Ratio returns the cumulative compression ratio, or 0 before any
// packet has been processed.
func (this *Stats) Ratio() float64 {
	if this.BytesIn == 0 {
		return 0
	}

	return float64(this.BytesOut) / float64(this.BytesIn)
}

func (this *Stats) record(algo uint8, in, out int, prefiltered bool) {
	this.Packets++
	this.BytesIn += uint64(in)
	this.BytesOut += uint64(out)
	this.AlgoCounts[algo]++

	if algo == AlgoPassthrough {
		this.Passthrough++
	}

	if prefiltered == true {
		this.Prefiltered++
	}
}
