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

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/wirepack/wirepack/entropy"
	"github.com/wirepack/wirepack/internal"
	"github.com/wirepack/wirepack/transform"
)

const (
	_DICT_MAGIC       = 0x57504431 // "WPD1" little-endian
	_DICT_VERSION     = 1
	_DICT_FLAG_BIGRAM = 0x01
	_DICT_FLAG_PRED   = 0x02
	_DICT_HEADER_SIZE = 8
	_DICT_SCALE       = 1 << entropy.TableLog12
	_DICT_COUNTS_SIZE = internal.NumBuckets * 256 * 2
	_DICT_BIGRAM_SIZE = internal.NumBuckets * internal.NumBigramClasses * 256 * 2
	_DICT_PRED_SIZE   = (1 << transform.PredTableLog) * 2
)

// Dictionary is a trained model for one traffic class: per-bucket byte
// distributions already normalized to the entropy coder's scale, an
// optional bigram refinement keyed on the previous byte's class, and an
// optional position-keyed prediction table. Dictionaries are immutable
// once trained or loaded and safe to share between contexts.
type Dictionary struct {
	modelID      uint8
	counts       [internal.NumBuckets][256]uint16
	bigramCounts [internal.NumBuckets][internal.NumBigramClasses][256]uint16
	pred         *transform.PositionPredictor
	tables12     [internal.NumBuckets]*entropy.Table
	tables10     [internal.NumBuckets]*entropy.Table
	bigramTables [internal.NumBuckets * internal.NumBigramClasses]*entropy.Table
	hasBigram    bool
	hasPred      bool
}

// TrainConfig controls which optional models a training run builds.
type TrainConfig struct {
	Bigram     bool
	Prediction bool
	Logger     *zap.Logger
}

// Train builds a dictionary from sample packets with both optional
// models enabled.
func Train(packets [][]byte, modelID uint8) (*Dictionary, error) {
	return TrainWithConfig(packets, modelID, TrainConfig{Bigram: true, Prediction: true})
}

// TrainWithConfig builds a dictionary from sample packets. The samples
// must be representative plaintext packets of the traffic class the
// dictionary will serve.
func TrainWithConfig(packets [][]byte, modelID uint8, cfg TrainConfig) (*Dictionary, error) {
	if len(packets) == 0 {
		return nil, fmt.Errorf("%w: no training packets", ErrInvalidArgument)
	}

	if modelID < MinModelID || modelID > MaxModelID {
		return nil, fmt.Errorf("%w: model id %d out of range [%d, %d]", ErrInvalidArgument, modelID, MinModelID, MaxModelID)
	}

	log := cfg.Logger

	if log == nil {
		log = zap.NewNop()
	}

	var raw [internal.NumBuckets][256]int
	var rawBigram [internal.NumBuckets][internal.NumBigramClasses][256]int
	total := 0

	var pred *transform.PositionPredictor

	if cfg.Prediction == true {
		pred = transform.NewPositionPredictor()
	}

	for _, p := range packets {
		if len(p) == 0 || len(p) > MaxPacketSize {
			return nil, fmt.Errorf("%w: training packet size %d", ErrInvalidArgument, len(p))
		}

		prev := byte(0)

		for pos, b := range p {
			bkt := internal.Bucket(pos)
			raw[bkt][b]++

			if cfg.Bigram == true {
				rawBigram[bkt][internal.BigramClass(prev)][b]++
			}

			prev = b
		}

		if pred != nil {
			pred.Update(p)
		}

		total += len(p)
	}

	d := &Dictionary{modelID: modelID, hasBigram: cfg.Bigram, hasPred: cfg.Prediction, pred: pred}

	var norm [256]uint16

	for bkt := 0; bkt < internal.NumBuckets; bkt++ {
		if err := entropy.NormalizeCounts(raw[bkt][:], norm[:], _DICT_SCALE); err != nil {
			return nil, err
		}

		copy(d.counts[bkt][:], norm[:])
	}

	if cfg.Bigram == true {
		for bkt := 0; bkt < internal.NumBuckets; bkt++ {
			for cls := 0; cls < internal.NumBigramClasses; cls++ {
				if err := entropy.NormalizeCounts(rawBigram[bkt][cls][:], norm[:], _DICT_SCALE); err != nil {
					return nil, err
				}

				copy(d.bigramCounts[bkt][cls][:], norm[:])
			}
		}
	}

	if err := d.buildTables(); err != nil {
		return nil, err
	}

	log.Info("dictionary trained",
		zap.Uint8("modelID", modelID),
		zap.Int("packets", len(packets)),
		zap.Int("bytes", total),
		zap.Bool("bigram", cfg.Bigram),
		zap.Bool("prediction", cfg.Prediction))

	return d, nil
}

// ModelID returns the identifier carried in headers of packets
// compressed against this dictionary.
func (this *Dictionary) ModelID() uint8 {
	return this.modelID
}

// HasPrediction reports whether the dictionary carries a trained
// position prediction table.
func (this *Dictionary) HasPrediction() bool {
	return this.hasPred
}

// HasBigram reports whether the dictionary carries bigram-refined
// distributions.
func (this *Dictionary) HasBigram() bool {
	return this.hasBigram
}

func (this *Dictionary) buildTables() error {
	var err error

	for bkt := 0; bkt < internal.NumBuckets; bkt++ {
		if this.tables12[bkt], err = entropy.NewTable(this.counts[bkt][:], entropy.TableLog12); err != nil {
			return fmt.Errorf("bucket %d: %w", bkt, err)
		}

		// The 10 bit variant trades a little precision for smaller
		// state fields in very short packets.
		var norm10 [256]uint16
		counts := make([]int, 256)

		for s := 0; s < 256; s++ {
			counts[s] = int(this.counts[bkt][s])
		}

		if err = entropy.NormalizeCounts(counts, norm10[:], 1<<entropy.TableLog10); err != nil {
			return fmt.Errorf("bucket %d: %w", bkt, err)
		}

		if this.tables10[bkt], err = entropy.NewTable(norm10[:], entropy.TableLog10); err != nil {
			return fmt.Errorf("bucket %d: %w", bkt, err)
		}
	}

	if this.hasBigram == true {
		for bkt := 0; bkt < internal.NumBuckets; bkt++ {
			for cls := 0; cls < internal.NumBigramClasses; cls++ {
				idx := bkt*internal.NumBigramClasses + cls

				if this.bigramTables[idx], err = entropy.NewTable(this.bigramCounts[bkt][cls][:], entropy.TableLog12); err != nil {
					return fmt.Errorf("bucket %d class %d: %w", bkt, cls, err)
				}
			}
		}
	}

	return nil
}

func (this *Dictionary) blobSize() int {
	sz := _DICT_HEADER_SIZE + _DICT_COUNTS_SIZE

	if this.hasBigram == true {
		sz += _DICT_BIGRAM_SIZE
	}

	if this.hasPred == true {
		sz += _DICT_PRED_SIZE
	}

	return sz + 8
}

// Save serializes the dictionary to a self-validating blob. The layout
// is little-endian throughout and ends with an XXH64 checksum over all
// preceding bytes.
func (this *Dictionary) Save() []byte {
	blob := make([]byte, this.blobSize())
	binary.LittleEndian.PutUint32(blob[0:4], _DICT_MAGIC)
	blob[4] = _DICT_VERSION
	blob[5] = this.modelID
	flags := uint8(0)

	if this.hasBigram == true {
		flags |= _DICT_FLAG_BIGRAM
	}

	if this.hasPred == true {
		flags |= _DICT_FLAG_PRED
	}

	blob[6] = flags
	blob[7] = 0
	off := _DICT_HEADER_SIZE

	for bkt := 0; bkt < internal.NumBuckets; bkt++ {
		for s := 0; s < 256; s++ {
			binary.LittleEndian.PutUint16(blob[off:], this.counts[bkt][s])
			off += 2
		}
	}

	if this.hasBigram == true {
		for bkt := 0; bkt < internal.NumBuckets; bkt++ {
			for cls := 0; cls < internal.NumBigramClasses; cls++ {
				for s := 0; s < 256; s++ {
					binary.LittleEndian.PutUint16(blob[off:], this.bigramCounts[bkt][cls][s])
					off += 2
				}
			}
		}
	}

	if this.hasPred == true {
		for _, e := range this.pred.Entries() {
			blob[off] = e.Value
			blob[off+1] = e.Conf
			off += 2
		}
	}

	binary.LittleEndian.PutUint64(blob[off:], xxhash.Sum64(blob[:off]))
	return blob
}

// LoadDictionary deserializes a blob produced by Save. Any
// inconsistency, including a checksum mismatch or a distribution that
// does not sum to the coder's scale, fails the load; a dictionary is
// never partially usable.
func LoadDictionary(blob []byte) (*Dictionary, error) {
	if len(blob) < _DICT_HEADER_SIZE+_DICT_COUNTS_SIZE+8 {
		return nil, fmt.Errorf("%w: blob too short (%d bytes)", ErrDictionaryInvalid, len(blob))
	}

	if binary.LittleEndian.Uint32(blob[0:4]) != _DICT_MAGIC {
		return nil, fmt.Errorf("%w: bad magic", ErrDictionaryInvalid)
	}

	if blob[4] != _DICT_VERSION {
		return nil, fmt.Errorf("%w: format version %d", ErrVersionMismatch, blob[4])
	}

	modelID := blob[5]

	if modelID < MinModelID || modelID > MaxModelID {
		return nil, fmt.Errorf("%w: model id %d out of range", ErrDictionaryInvalid, modelID)
	}

	flags := blob[6]

	if flags&^uint8(_DICT_FLAG_BIGRAM|_DICT_FLAG_PRED) != 0 || blob[7] != 0 {
		return nil, fmt.Errorf("%w: reserved bits set", ErrDictionaryInvalid)
	}

	d := &Dictionary{
		modelID:   modelID,
		hasBigram: flags&_DICT_FLAG_BIGRAM != 0,
		hasPred:   flags&_DICT_FLAG_PRED != 0,
	}

	if len(blob) != d.blobSize() {
		return nil, fmt.Errorf("%w: blob size %d, expected %d", ErrDictionaryInvalid, len(blob), d.blobSize())
	}

	body := len(blob) - 8

	if got, want := xxhash.Sum64(blob[:body]), binary.LittleEndian.Uint64(blob[body:]); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrDictionaryInvalid)
	}

	off := _DICT_HEADER_SIZE

	for bkt := 0; bkt < internal.NumBuckets; bkt++ {
		sum := 0

		for s := 0; s < 256; s++ {
			v := binary.LittleEndian.Uint16(blob[off:])
			d.counts[bkt][s] = v
			sum += int(v)
			off += 2
		}

		if sum != _DICT_SCALE {
			return nil, fmt.Errorf("%w: bucket %d counts sum to %d", ErrDictionaryInvalid, bkt, sum)
		}
	}

	if d.hasBigram == true {
		for bkt := 0; bkt < internal.NumBuckets; bkt++ {
			for cls := 0; cls < internal.NumBigramClasses; cls++ {
				sum := 0

				for s := 0; s < 256; s++ {
					v := binary.LittleEndian.Uint16(blob[off:])
					d.bigramCounts[bkt][cls][s] = v
					sum += int(v)
					off += 2
				}

				if sum != _DICT_SCALE {
					return nil, fmt.Errorf("%w: bucket %d class %d counts sum to %d", ErrDictionaryInvalid, bkt, cls, sum)
				}
			}
		}
	}

	if d.hasPred == true {
		d.pred = transform.NewPositionPredictor()
		entries := d.pred.Entries()

		for i := range entries {
			entries[i].Value = blob[off]
			entries[i].Conf = blob[off+1]

			if entries[i].Conf > transform.PredMaxConfidence {
				return nil, fmt.Errorf("%w: prediction confidence %d out of range", ErrDictionaryInvalid, entries[i].Conf)
			}

			off += 2
		}
	}

	if err := d.buildTables(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryInvalid, err)
	}

	return d, nil
}

// tableFor returns the 12 bit encode/decode table for a position,
// refined by the previous byte's class when the bigram model is present
// and enabled.
func (this *Dictionary) tableFor(pos int, prev byte, bigram bool) *entropy.Table {
	bkt := internal.Bucket(pos)

	if bigram == true && this.hasBigram == true {
		return this.bigramTables[bkt*internal.NumBigramClasses+int(internal.BigramClass(prev))]
	}

	return this.tables12[bkt]
}
