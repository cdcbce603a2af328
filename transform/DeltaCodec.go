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

// Package transform provides the predictive pre-filters and the
// back-reference matchers applied ahead of (or instead of) entropy
// coding: field-class delta residuals, position-aware byte prediction
// and LZ-style token coding over a cross-packet ring buffer.
package transform

import (
	"errors"

	internal "github.com/wirepack/wirepack/internal"
)

// DeltaMinSize is the smallest packet the delta pre-filter applies to.
const DeltaMinSize = 16

// The byte offsets of a packet are partitioned into four field-class
// ranges (the legacy bucket boundaries), alternating between an XOR
// residual and a wrapping subtraction. XOR suits flag and float-like
// bytes (self inverse, no carry propagation); subtraction captures the
// monotonic drift of counters and integers.
func deltaXOR(pos int) bool {
	return internal.LegacyBucket(pos)&1 == 0
}

// DeltaEncode writes the order-1 residual of cur against prev into dst.
// prev and cur must have the same length.
func DeltaEncode(prev, cur, dst []byte) error {
	if len(prev) != len(cur) || len(dst) < len(cur) {
		return errors.New("Delta codec: mismatched buffer lengths")
	}

	if len(cur) < DeltaMinSize {
		return errors.New("Delta codec: block too small")
	}

	for i := range cur {
		if deltaXOR(i) == true {
			dst[i] = cur[i] ^ prev[i]
		} else {
			dst[i] = cur[i] - prev[i]
		}
	}

	return nil
}

// DeltaDecode is the exact algebraic inverse of DeltaEncode.
func DeltaDecode(prev, residual, dst []byte) error {
	if len(prev) != len(residual) || len(dst) < len(residual) {
		return errors.New("Delta codec: mismatched buffer lengths")
	}

	for i := range residual {
		if deltaXOR(i) == true {
			dst[i] = residual[i] ^ prev[i]
		} else {
			dst[i] = residual[i] + prev[i]
		}
	}

	return nil
}

// Delta2Encode is the order-2 variant: the predictor linearly
// extrapolates from the two prior packets (2*prev - prev2, byte-wise
// wrapping) before applying the same XOR/subtract split. Smoother for
// numeric fields that change at a near constant rate.
func Delta2Encode(prev2, prev, cur, dst []byte) error {
	if len(prev2) != len(cur) || len(prev) != len(cur) || len(dst) < len(cur) {
		return errors.New("Delta codec: mismatched buffer lengths")
	}

	if len(cur) < DeltaMinSize {
		return errors.New("Delta codec: block too small")
	}

	for i := range cur {
		pred := 2*prev[i] - prev2[i]

		if deltaXOR(i) == true {
			dst[i] = cur[i] ^ pred
		} else {
			dst[i] = cur[i] - pred
		}
	}

	return nil
}

// Delta2Decode is the exact inverse of Delta2Encode.
func Delta2Decode(prev2, prev, residual, dst []byte) error {
	if len(prev2) != len(residual) || len(prev) != len(residual) || len(dst) < len(residual) {
		return errors.New("Delta codec: mismatched buffer lengths")
	}

	for i := range residual {
		pred := 2*prev[i] - prev2[i]

		if deltaXOR(i) == true {
			dst[i] = residual[i] ^ pred
		} else {
			dst[i] = residual[i] + pred
		}
	}

	return nil
}
