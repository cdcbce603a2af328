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

package transform

import (
	"bytes"
	"testing"
)

func patternPacket(n int) []byte {
	p := make([]byte, n)

	for i := range p {
		p[i] = byte((i * 31) & 0xFF)
	}

	return p
}

func trainedPredictor(packet []byte, rounds int) *PositionPredictor {
	pred := NewPositionPredictor()

	for i := 0; i < rounds; i++ {
		pred.Update(packet)
	}

	return pred
}

func TestPredictorLearnsStablePattern(t *testing.T) {
	packet := patternPacket(64)
	pred := trainedPredictor(packet, 20)

	if hits := pred.HitCount(packet); hits < 60 {
		t.Fatalf("only %d/64 positions predicted after training", hits)
	}
}

func TestPredictorFilterRoundTrip(t *testing.T) {
	packet := patternPacket(100)
	pred := trainedPredictor(packet, 20)

	// Perturb a few bytes so the filter has misses to carry
	mutated := append([]byte(nil), packet...)
	mutated[10] ^= 0x55
	mutated[77] ^= 0x01

	residual := make([]byte, len(mutated))

	if err := pred.FilterEncode(mutated, residual); err != nil {
		t.Fatalf("FilterEncode failed: %v", err)
	}

	out := make([]byte, len(mutated))

	if err := pred.FilterDecode(residual, out); err != nil {
		t.Fatalf("FilterDecode failed: %v", err)
	}

	if bytes.Equal(mutated, out) == false {
		t.Fatal("round trip mismatch")
	}
}

func TestPredictorMaskRoundTrip(t *testing.T) {
	packet := patternPacket(128)
	pred := trainedPredictor(packet, 20)
	dst := make([]byte, 2*len(packet))
	sz, err := pred.MaskEncode(packet, dst)

	if err != nil {
		t.Fatalf("MaskEncode failed: %v", err)
	}

	if sz >= len(packet) {
		t.Fatalf("mask form not smaller: %d >= %d", sz, len(packet))
	}

	out := make([]byte, len(packet))

	if err := pred.MaskDecode(dst[:sz], out); err != nil {
		t.Fatalf("MaskDecode failed: %v", err)
	}

	if bytes.Equal(packet, out) == false {
		t.Fatal("round trip mismatch")
	}
}

func TestPredictorMaskRejectsIncompressible(t *testing.T) {
	pred := NewPositionPredictor()
	packet := patternPacket(64)
	dst := make([]byte, 2*len(packet))

	// An untrained predictor hits nothing; the mask form cannot win
	if _, err := pred.MaskEncode(packet, dst); err == nil {
		t.Fatal("mask form accepted with zero predictions")
	}
}

func TestPredictorMaskRejectsCorruption(t *testing.T) {
	packet := patternPacket(128)
	pred := trainedPredictor(packet, 20)
	dst := make([]byte, 2*len(packet))
	sz, err := pred.MaskEncode(packet, dst)

	if err != nil {
		t.Fatalf("MaskEncode failed: %v", err)
	}

	out := make([]byte, len(packet))

	// Truncations must fail cleanly, never panic or overrun
	for cut := 0; cut < sz; cut++ {
		_ = pred.MaskDecode(dst[:cut], out)
	}

	// An inflated literal count must be caught
	bad := append([]byte(nil), dst[:sz]...)
	bad[0] = 0xFF
	bad[1] = 0xFF
	_ = pred.MaskDecode(bad, out)
}

func TestPredictorCloneIsIndependent(t *testing.T) {
	packet := patternPacket(64)
	pred := trainedPredictor(packet, 20)
	clone := pred.Clone()
	other := make([]byte, 64)

	for i := range other {
		other[i] = byte(255 - i)
	}

	for i := 0; i < 50; i++ {
		clone.Update(other)
	}

	if hits := pred.HitCount(packet); hits < 60 {
		t.Fatalf("updating a clone disturbed the original (%d hits)", hits)
	}
}
