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
	"fmt"

	"go.uber.org/zap"

	"github.com/wirepack/wirepack/entropy"
	"github.com/wirepack/wirepack/internal"
	"github.com/wirepack/wirepack/transform"
)

// Config selects the features a context carries. The zero value is a
// valid stateless configuration; DefaultConfig enables the features
// most packet streams benefit from.
type Config struct {
	// Stateful enables cross-packet state: previous-packet buffers for
	// the delta pre-filter, the back-reference ring, the evolving
	// prediction table and the adaptive tables. Both peers must agree.
	Stateful bool

	// Delta enables the delta pre-filter trials (stateful only).
	Delta bool

	// Bigram enables the bigram-refined entropy trials when the
	// dictionary carries a bigram model.
	Bigram bool

	// Adaptive enables periodic table rebuilds from observed traffic
	// (stateful only).
	Adaptive bool

	// CompactHeader selects the 2-4 byte header instead of the legacy
	// 8 byte form. Both peers must agree.
	CompactHeader bool

	// Effort trades compression time for ratio, 0 (fastest) to 9.
	Effort int

	// Vector selects the entropy coder interleaving strategy.
	Vector VectorMode

	// RingSize overrides the back-reference ring capacity in bytes.
	// Zero means the default. Stateful only.
	RingSize int

	// Stats enables the per-context counters.
	Stats bool

	// Logger receives structured diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns the recommended configuration for a stateful
// packet stream.
func DefaultConfig() Config {
	return Config{
		Stateful: true,
		Delta:    true,
		Bigram:   true,
		Effort:   6,
	}
}

// Context holds the per-stream compression state. A context is owned
// by a single goroutine; compressing and decompressing sides of one
// stream each hold their own context and must be configured
// identically for the stateful features to stay in sync.
type Context struct {
	cfg    Config
	dict   *Dictionary
	vector VectorMode
	log    *zap.Logger
	stats  Stats

	prev      []byte
	prev2     []byte
	prevSize  int
	prev2Size int

	ring     *transform.RingBuffer
	pred     *transform.PositionPredictor
	matcher  *transform.MatchCodec
	adaptive *adaptiveState

	work  []byte
	filt  []byte
	filt2 []byte
	trial []byte
	best  []byte
	hist  []byte
	seq   uint8
}

// NewContext creates a context bound to a dictionary. A nil dictionary
// is allowed; such a context only uses the model-free algorithms
// (passthrough, back-references, prediction mask with no predictor).
func NewContext(dict *Dictionary, cfg Config) (*Context, error) {
	if cfg.Effort < 0 || cfg.Effort > 9 {
		return nil, fmt.Errorf("%w: effort %d out of range [0, 9]", ErrInvalidArgument, cfg.Effort)
	}

	if cfg.Stateful == false {
		// Stateless contexts have no cross-packet state to drive
		// these features.
		cfg.Delta = false
		cfg.Adaptive = false
	}

	log := cfg.Logger

	if log == nil {
		log = zap.NewNop()
	}

	this := &Context{
		cfg:    cfg,
		dict:   dict,
		vector: resolveVectorMode(cfg.Vector),
		log:    log,
		work:   make([]byte, MaxPacketSize),
		filt:   make([]byte, MaxPacketSize),
		filt2:  make([]byte, MaxPacketSize),
		trial:  make([]byte, 0, entropy.MaxEncodedLen(MaxPacketSize)),
		best:   make([]byte, 0, entropy.MaxEncodedLen(MaxPacketSize)),
	}

	if cfg.Stateful == true {
		this.prev = make([]byte, MaxPacketSize)
		this.prev2 = make([]byte, MaxPacketSize)

		ring, err := transform.NewRingBuffer(cfg.RingSize)

		if err != nil {
			return nil, err
		}

		this.ring = ring
		this.hist = make([]byte, ring.Capacity())
	}

	this.matcher = transform.NewMatchCodec()

	if dict != nil && dict.hasPred == true {
		if cfg.Stateful == true {
			// The table evolves with traffic, so each side needs its
			// own copy seeded from the dictionary.
			this.pred = dict.pred.Clone()
		} else {
			// Stateless contexts share the dictionary's static table
			// and never update it.
			this.pred = dict.pred
		}
	}

	if cfg.Adaptive == true {
		if dict == nil {
			return nil, fmt.Errorf("%w: adaptive mode requires a dictionary", ErrInvalidArgument)
		}

		this.adaptive = newAdaptiveState(dict)
	}

	return this, nil
}

// Reset returns the context to its initial state, dropping all
// cross-packet history while keeping allocations.
func (this *Context) Reset() {
	this.prevSize = 0
	this.prev2Size = 0
	this.seq = 0
	this.stats = Stats{}

	if this.ring != nil {
		this.ring.Reset()
	}

	if this.pred != nil && this.cfg.Stateful == true && this.dict != nil {
		this.pred.CopyFrom(this.dict.pred)
	}

	if this.adaptive != nil {
		this.adaptive.reset(this.dict)
	}
}

// Stats returns a snapshot of the context counters. All zeros unless
// the context was created with Stats enabled.
func (this *Context) Stats() Stats {
	return this.stats
}

// Dictionary returns the dictionary the context is bound to, possibly
// nil.
func (this *Context) Dictionary() *Dictionary {
	return this.dict
}

// table12 returns the position-keyed 12 bit table, preferring the
// adapted tables when adaptive mode has rebuilt them.
func (this *Context) table12(pos int) *entropy.Table {
	if this.adaptive != nil {
		return this.adaptive.tables12[internal.Bucket(pos)]
	}

	return this.dict.tables12[internal.Bucket(pos)]
}

func (this *Context) table10(pos int) *entropy.Table {
	if this.adaptive != nil {
		return this.adaptive.tables10[internal.Bucket(pos)]
	}

	return this.dict.tables10[internal.Bucket(pos)]
}

// advanceHistory folds a successfully processed packet into the
// cross-packet state. Both sides call it with the identical plaintext,
// which is what keeps stateful mode in sync.
func (this *Context) advanceHistory(block []byte) {
	if this.cfg.Stateful == true {
		this.prev, this.prev2 = this.prev2, this.prev
		this.prev2Size = this.prevSize
		copy(this.prev[:len(block)], block)
		this.prevSize = len(block)
		this.ring.Append(block)

		if this.pred != nil {
			this.pred.Update(block)
		}
	}

	if this.adaptive != nil {
		this.adaptive.accumulate(block)
		rebuilt := this.adaptive.packets >= _ADAPTIVE_INTERVAL
		this.adaptive.maybeRebuild(this.dict)

		if rebuilt == true && this.cfg.Stats == true {
			this.stats.Rebuilds++
		}
	}

	this.seq++
}
