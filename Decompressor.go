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

	"github.com/wirepack/wirepack/entropy"
	"github.com/wirepack/wirepack/internal"
	"github.com/wirepack/wirepack/transform"
)

// Decompress decodes one packet into dst and returns the number of
// bytes written. The context state only advances when the whole packet
// decodes cleanly, so a corrupt packet never desynchronizes the stream.
func (this *Context) Decompress(src, dst []byte) (int, error) {
	if this == nil {
		return 0, ErrNilContext
	}

	h, payload, err := headerDecode(src, this.cfg.CompactHeader)

	if err != nil {
		return 0, err
	}

	n := h.origSize

	if len(dst) < n {
		return 0, ErrOutputTooSmall
	}

	if algoNeedsModel(h.algo) == true {
		if this.dict == nil {
			return 0, fmt.Errorf("%w: algorithm %d requires a dictionary", ErrCorrupt, h.algo)
		}

		if this.cfg.CompactHeader == false && h.modelID != this.dict.ModelID() {
			return 0, fmt.Errorf("%w: model id %d, context holds %d", ErrCorrupt, h.modelID, this.dict.ModelID())
		}
	} else if this.cfg.CompactHeader == false && h.modelID != 0 {
		return 0, fmt.Errorf("%w: unexpected model id %d", ErrCorrupt, h.modelID)
	}

	if this.cfg.CompactHeader == false && this.cfg.Stateful == true && h.seq != this.seq {
		return 0, fmt.Errorf("%w: sequence %d, expected %d", ErrCorrupt, h.seq, this.seq)
	}

	if err := this.checkFlagState(h, n); err != nil {
		return 0, err
	}

	// Decode into scratch; dst and the stream state are only touched
	// after full validation.
	work := this.work[:n]

	switch h.algo {
	case AlgoPassthrough:
		if len(payload) != n {
			return 0, fmt.Errorf("%w: passthrough payload length %d, expected %d", ErrCorrupt, len(payload), n)
		}

		copy(work, payload)

	case AlgoSingle:
		if len(payload) < 1 {
			return 0, fmt.Errorf("%w: missing bucket byte", ErrCorrupt)
		}

		bkt := int(payload[0])

		if bkt >= internal.NumBuckets {
			return 0, fmt.Errorf("%w: bucket %d out of range", ErrCorrupt, bkt)
		}

		if err := entropy.Decode(entropy.Fixed(this.singleTable(bkt)), payload[1:], work, h.flags&FlagDual != 0); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

	case AlgoMulti:
		if err := this.decodeMulti(payload, work); err != nil {
			return 0, err
		}

	case AlgoPCTX:
		sel := this.entropySelector(entropy.TableLog12, h.flags&FlagBigram != 0)

		if err := entropy.Decode(sel, payload, work, h.flags&FlagDual != 0); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

	case AlgoPCTX10:
		if err := entropy.Decode(this.entropySelector(entropy.TableLog10, false), payload, work, h.flags&FlagDual != 0); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

	case AlgoMatch:
		if err := transform.DecodeLocal(payload, work); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

	case AlgoMatchRing:
		histLen := min(this.prevSize, this.ring.Fill())

		if histLen == 0 {
			return 0, fmt.Errorf("%w: ring back-reference with empty history", ErrCorrupt)
		}

		hist := this.hist[:histLen]
		this.ring.CopyTail(hist, histLen)

		if err := this.matcher.DecodeRing(hist, payload, work); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

	case AlgoPredictMask:
		if err := this.pred.MaskDecode(payload, work); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

	default:
		return 0, fmt.Errorf("%w: algorithm %d", ErrUnsupported, h.algo)
	}

	// Undo the pre-filter to recover the plaintext.
	plain := work

	switch {
	case h.flags&FlagDelta != 0:
		if err := transform.DeltaDecode(this.prev[:n], work, this.filt[:n]); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		plain = this.filt[:n]

	case h.flags&FlagDelta2 != 0:
		if err := transform.Delta2Decode(this.prev2[:n], this.prev[:n], work, this.filt[:n]); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		plain = this.filt[:n]

	case h.flags&FlagPredictXOR != 0:
		if err := this.pred.FilterDecode(work, this.filt[:n]); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		plain = this.filt[:n]
	}

	copy(dst[:n], plain)
	this.advanceHistory(dst[:n])

	if this.cfg.Stats == true {
		this.stats.record(h.algo, n, len(src), h.flags&(FlagDelta|FlagDelta2|FlagPredictXOR) != 0)
	}

	return n, nil
}

// checkFlagState verifies that the context holds the state a packet's
// flags rely on.
func (this *Context) checkFlagState(h header, n int) error {
	if h.flags&FlagDelta != 0 || h.flags&FlagDelta2 != 0 {
		if this.cfg.Stateful == false || this.prevSize != n {
			return fmt.Errorf("%w: delta packet without matching history", ErrCorrupt)
		}

		if h.flags&FlagDelta2 != 0 && this.prev2Size != n {
			return fmt.Errorf("%w: order-2 delta packet without matching history", ErrCorrupt)
		}
	}

	if h.flags&FlagPredictXOR != 0 && this.pred == nil {
		return fmt.Errorf("%w: prediction filter without a trained predictor", ErrCorrupt)
	}

	if h.algo == AlgoPredictMask && this.pred == nil {
		return fmt.Errorf("%w: prediction mask without a trained predictor", ErrCorrupt)
	}

	if h.flags&FlagBigram != 0 && this.dict.hasBigram == false {
		return fmt.Errorf("%w: bigram packet against a dictionary with no bigram model", ErrCorrupt)
	}

	if h.flags&FlagAdaptive != 0 && this.adaptive == nil {
		return fmt.Errorf("%w: adaptive packet on a non-adaptive context", ErrCorrupt)
	}

	if h.algo == AlgoMatchRing && this.cfg.Stateful == false {
		return fmt.Errorf("%w: ring back-reference on a stateless context", ErrCorrupt)
	}

	return nil
}

// decodeMulti splits the payload into the per-bucket regions implied by
// the original size and decodes each with its bucket's table.
func (this *Context) decodeMulti(payload, work []byte) error {
	n := len(work)
	spans := regionSpans(n)

	if len(spans) < 2 {
		return fmt.Errorf("%w: multi-region packet too short for two regions", ErrCorrupt)
	}

	in := 0
	start := 0

	for i, end := range spans {
		last := i == len(spans)-1
		var region []byte

		if last == true {
			region = payload[in:]
		} else {
			if in+2 > len(payload) {
				return fmt.Errorf("%w: truncated region length", ErrCorrupt)
			}

			sz := int(binary.LittleEndian.Uint16(payload[in:]))
			in += 2

			if in+sz > len(payload) {
				return fmt.Errorf("%w: region length %d exceeds payload", ErrCorrupt, sz)
			}

			region = payload[in : in+sz]
			in += sz
		}

		if err := entropy.Decode(entropy.Fixed(this.singleTable(internal.Bucket(start))), region, work[start:end], false); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		start = end
	}

	return nil
}
