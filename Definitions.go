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

// Package wirepack compresses small, structured, low-entropy network
// packets (game state, telemetry, financial ticks) with a tabular
// Asymmetric Numeral System coder, packet-structure-aware prediction
// and a dictionary trained offline on representative traffic.
//
// A caller holds a long-lived Dictionary, shared read-only across any
// number of Contexts, and one Context per logical connection. Each
// Compress call tries several encoding strategies against the packet
// and keeps the smallest valid result; Decompress reverses the choice
// deterministically from the packet header alone. A Context is single
// threaded; a Dictionary is immutable after training or loading and
// safe for concurrent use.
package wirepack

import (
	"errors"

	internal "github.com/wirepack/wirepack/internal"
)

const (
	// MaxPacketSize is the hard cap on the size of a single packet.
	MaxPacketSize = internal.MaxPacketSize

	// MaxOverhead is the worst-case expansion over the original packet
	// (the legacy header; the compact header needs as little as 2 bytes).
	MaxOverhead = 8

	// MinModelID and MaxModelID bound dictionary identities; 0 marks
	// "no dictionary" on the wire and 255 is reserved.
	MinModelID = 1
	MaxModelID = 254
)

// Packet algorithms, as carried in the header.
const (
	AlgoPassthrough uint8 = iota
	AlgoSingle            // single best-fit bucket table, 12-bit
	AlgoMulti             // one stream per bucket spanned by the packet
	AlgoPCTX              // per-position context single stream, 12-bit
	AlgoPCTX10            // per-position context, reduced 10-bit table
	AlgoMatch             // within-packet back-references
	AlgoMatchRing         // cross-packet back-references
	AlgoPredictMask       // position-prediction hit/miss mask form

	numAlgos
)

// Header flags.
const (
	FlagDelta      uint8 = 0x01 // order-1 delta residual pre-filter
	FlagDelta2     uint8 = 0x02 // order-2 delta residual pre-filter
	FlagPredictXOR uint8 = 0x04 // position-prediction XOR pre-filter
	FlagDual       uint8 = 0x08 // dual interleaved tANS state machines
	FlagBigram     uint8 = 0x10 // previous-byte-class sub-tables
	FlagAdaptive   uint8 = 0x20 // context-adapted tables

	flagsMask uint8 = 0x3F
)

// Error taxonomy. Every error leaves output buffers and context state
// unmodified; errors are always returned, never thrown.
var (
	// ErrInvalidArgument reports a null or out-of-range argument.
	ErrInvalidArgument = errors.New("wirepack: invalid argument")

	// ErrNilContext reports an operation on a nil context.
	ErrNilContext = errors.New("wirepack: nil context")

	// ErrTooBig reports an input packet above MaxPacketSize.
	ErrTooBig = errors.New("wirepack: packet exceeds maximum size")

	// ErrOutputTooSmall reports an undersized destination buffer.
	ErrOutputTooSmall = errors.New("wirepack: destination buffer too small")

	// ErrCorrupt reports malformed, truncated or corrupt wire data.
	ErrCorrupt = errors.New("wirepack: corrupt packet data")

	// ErrDictionaryInvalid reports a dictionary blob that failed
	// validation or table construction.
	ErrDictionaryInvalid = errors.New("wirepack: invalid dictionary")

	// ErrVersionMismatch reports an unknown dictionary or stream version.
	ErrVersionMismatch = errors.New("wirepack: unsupported version")

	// ErrUnsupported reports an algorithm variant reserved for forward
	// compatibility.
	ErrUnsupported = errors.New("wirepack: unsupported algorithm variant")
)
