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

	"go.uber.org/zap"

	"github.com/wirepack/wirepack/entropy"
	"github.com/wirepack/wirepack/internal"
	"github.com/wirepack/wirepack/transform"
)

const (
	_PCTX10_MAX_SIZE   = 128
	_MULTI_MIN_EFFORT  = 4
	_DELTA2_MIN_EFFORT = 5
	_PRED_HIT_NUM      = 4
)

// MaxCompressedLen returns a destination size that always suffices for
// Compress: the losing trials are discarded, and the worst surviving
// candidate is passthrough plus a header.
func MaxCompressedLen(srcLen int) int {
	return srcLen + MaxOverhead
}

func (this *Context) entropySelector(tableLog uint, bigram bool) entropy.Selector {
	if bigram == true {
		return func(pos int, prev byte) *entropy.Table {
			return this.dict.tableFor(pos, prev, true)
		}
	}

	if tableLog == entropy.TableLog10 {
		return func(pos int, _ byte) *entropy.Table {
			return this.table10(pos)
		}
	}

	return func(pos int, _ byte) *entropy.Table {
		return this.table12(pos)
	}
}

// Compress compresses one packet into dst and returns the number of
// bytes written. Every enabled algorithm is trialed on the (possibly
// pre-filtered) packet and the smallest wire form wins; the output is
// never larger than the input plus MaxOverhead.
func (this *Context) Compress(src, dst []byte) (int, error) {
	if this == nil {
		return 0, ErrNilContext
	}

	n := len(src)

	if n == 0 {
		return 0, fmt.Errorf("%w: empty packet", ErrInvalidArgument)
	}

	if n > MaxPacketSize {
		return 0, fmt.Errorf("%w: packet size %d exceeds %d", ErrTooBig, n, MaxPacketSize)
	}

	// Stage 1: pre-filter. Exactly one of delta, order-2 delta or
	// prediction XOR may rewrite the block the entropy trials see.
	work := src
	prefilter := uint8(0)

	if this.cfg.Delta == true && this.prevSize == n && n >= transform.DeltaMinSize {
		if err := transform.DeltaEncode(this.prev[:n], src, this.filt[:n]); err != nil {
			return 0, err
		}

		work = this.filt[:n]
		prefilter = FlagDelta

		if this.cfg.Effort >= _DELTA2_MIN_EFFORT && this.prev2Size == n {
			if err := transform.Delta2Encode(this.prev2[:n], this.prev[:n], src, this.filt2[:n]); err != nil {
				return 0, err
			}

			// More zeroed residual bytes means an easier block for
			// the entropy stage.
			if internal.ZeroCount(this.filt2[:n]) > internal.ZeroCount(work) {
				work = this.filt2[:n]
				prefilter = FlagDelta2
			}
		}
	} else if this.pred != nil && n >= transform.PredMinSize && this.pred.HitCount(src)*_PRED_HIT_NUM >= n {
		if err := this.pred.FilterEncode(src, this.filt[:n]); err == nil {
			work = this.filt[:n]
			prefilter = FlagPredictXOR
		}
	}

	// Stage 2: trials. bestAlgo/bestFlags/bestLen describe the current
	// winner; its payload lives in this.best.
	bestAlgo := AlgoPassthrough
	bestFlags := uint8(0)
	bestLen := n
	adaptiveFlag := uint8(0)

	if this.adaptive != nil {
		adaptiveFlag = FlagAdaptive
	}

	keep := func(algo uint8, flags uint8, payload []byte) {
		if len(payload) < bestLen {
			bestAlgo = algo
			bestFlags = flags
			bestLen = len(payload)
			this.best = append(this.best[:0], payload...)
		}
	}

	dual := this.vector == VectorWide && n >= entropy.DualThreshold

	if this.dict != nil {
		this.trialEntropy(work, prefilter|adaptiveFlag, false, keep)

		if dual == true {
			this.trialEntropy(work, prefilter|adaptiveFlag|FlagDual, true, keep)
		}
	}

	// Prediction mask competes on the original bytes; it carries its
	// own literals, so pre-filters do not compose with it.
	if this.pred != nil && n >= transform.PredMinSize {
		if sz, err := this.pred.MaskEncode(src, this.trial[:cap(this.trial)]); err == nil {
			keep(AlgoPredictMask, 0, this.trial[:sz])
		}
	}

	// Back-references earn a trial when entropy coding is absent or
	// struggling.
	if this.dict == nil || bestLen*2 > n {
		if sz, err := this.matcher.EncodeLocal(src, this.trial[:cap(this.trial)]); err == nil {
			keep(AlgoMatch, 0, this.trial[:sz])
		}

		if this.cfg.Stateful == true {
			histLen := min(this.prevSize, this.ring.Fill())

			if histLen > 0 {
				hist := this.hist[:histLen]
				this.ring.CopyTail(hist, histLen)

				if sz, err := this.matcher.EncodeRing(hist, src, this.trial[:cap(this.trial)]); err == nil {
					keep(AlgoMatchRing, 0, this.trial[:sz])
				}
			}
		}
	}

	payload := this.best[:bestLen]

	if bestAlgo == AlgoPassthrough {
		payload = src
	}

	// Stage 3: emit.
	h := header{origSize: n, flags: bestFlags, algo: bestAlgo, seq: this.seq}

	if this.dict != nil && algoNeedsModel(bestAlgo) == true {
		h.modelID = this.dict.ModelID()
	}

	headerSize := _LEGACY_HEADER_SIZE

	if this.cfg.CompactHeader == true {
		headerSize = _COMPACT_HEADER_MIN

		if n > _COMPACT_SIZE_1BYTE {
			headerSize = _COMPACT_HEADER_MAX
		}
	}

	if len(dst) < headerSize+len(payload) {
		return 0, ErrOutputTooSmall
	}

	var hn int
	var err error

	if this.cfg.CompactHeader == true {
		hn, err = compactHeaderEncode(dst, h)
	} else {
		hn, err = legacyHeaderEncode(dst, h, len(payload))
	}

	if err != nil {
		return 0, err
	}

	copy(dst[hn:], payload)

	// Stage 4: history. Always the original plaintext, mirrored by the
	// decompressing side.
	this.advanceHistory(src)

	if this.cfg.Stats == true {
		this.stats.record(bestAlgo, n, hn+len(payload), bestFlags&(FlagDelta|FlagDelta2|FlagPredictXOR) != 0)
	}

	if ce := this.log.Check(zap.DebugLevel, "packet compressed"); ce != nil {
		ce.Write(
			zap.Int("in", n),
			zap.Int("out", hn+len(payload)),
			zap.Uint8("algo", bestAlgo),
			zap.Uint8("flags", bestFlags))
	}

	return hn + len(payload), nil
}

func algoNeedsModel(algo uint8) bool {
	switch algo {
	case AlgoSingle, AlgoMulti, AlgoPCTX, AlgoPCTX10, AlgoPredictMask:
		return true
	}

	return false
}

// trialEntropy runs the entropy-coding candidates over the filtered
// block and offers each to keep.
func (this *Context) trialEntropy(work []byte, flags uint8, dual bool, keep func(uint8, uint8, []byte)) {
	n := len(work)
	buf := this.trial[:cap(this.trial)]

	// Whole-packet position context model
	if sz, err := entropy.Encode(this.entropySelector(entropy.TableLog12, false), work, buf, dual); err == nil {
		keep(AlgoPCTX, flags, buf[:sz])
	}

	if this.cfg.Bigram == true && this.dict.hasBigram == true {
		if sz, err := entropy.Encode(this.entropySelector(entropy.TableLog12, true), work, buf, dual); err == nil {
			keep(AlgoPCTX, flags|FlagBigram, buf[:sz])
		}
	}

	// Reduced table for short packets, compact framing only
	if this.cfg.CompactHeader == true && n <= _PCTX10_MAX_SIZE {
		if sz, err := entropy.Encode(this.entropySelector(entropy.TableLog10, false), work, buf, dual); err == nil {
			keep(AlgoPCTX10, flags, buf[:sz])
		}
	}

	// Single table chosen by estimated cost over the block histogram
	var hist [256]int
	internal.ComputeHistogram(work, hist[:])
	bestBucket := 0
	bestCost := -1

	for bkt := 0; bkt < internal.NumBuckets; bkt++ {
		cost := entropy.EstimateSize(this.dict.counts[bkt][:], hist[:], entropy.TableLog12)

		if bestCost < 0 || cost < bestCost {
			bestCost = cost
			bestBucket = bkt
		}
	}

	single := this.singleTable(bestBucket)

	if sz, err := entropy.Encode(entropy.Fixed(single), work, buf[1:], dual); err == nil {
		buf[0] = byte(bestBucket)
		keep(AlgoSingle, flags, buf[:1+sz])
	}

	// Region-per-bucket framing pays off when the packet spans several
	// buckets with genuinely different statistics.
	if dual == false && this.cfg.Effort >= _MULTI_MIN_EFFORT {
		this.trialMulti(work, flags&^FlagDual, keep)
	}
}

func (this *Context) singleTable(bucket int) *entropy.Table {
	if this.adaptive != nil {
		return this.adaptive.tables12[bucket]
	}

	return this.dict.tables12[bucket]
}

// trialMulti encodes each maximal same-bucket region as its own stream,
// prefixing every region except the last with its compressed length.
func (this *Context) trialMulti(work []byte, flags uint8, keep func(uint8, uint8, []byte)) {
	n := len(work)
	spans := regionSpans(n)

	if len(spans) < 2 {
		return
	}

	buf := this.trial[:cap(this.trial)]
	out := 0
	start := 0

	for i, end := range spans {
		region := work[start:end]
		last := i == len(spans)-1
		pos := out

		if last == false {
			pos += 2
		}

		if pos >= len(buf) {
			return
		}

		sz, err := entropy.Encode(entropy.Fixed(this.singleTable(internal.Bucket(start))), region, buf[pos:], false)

		if err != nil || sz > 0xFFFF {
			return
		}

		if last == false {
			binary.LittleEndian.PutUint16(buf[out:], uint16(sz))
			out += 2
		}

		out += sz
		start = end
	}

	keep(AlgoMulti, flags, buf[:out])
}

// regionSpans returns the exclusive end offsets of the maximal runs of
// positions sharing a bucket, clipped to the block length.
func regionSpans(n int) []int {
	spans := make([]int, 0, internal.NumBuckets)

	for b := 1; b < internal.NumBuckets; b++ {
		s := internal.BucketStarts[b]

		if s >= n {
			break
		}

		spans = append(spans, s)
	}

	return append(spans, n)
}
