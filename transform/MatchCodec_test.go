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
	"math/rand"
	"testing"
)

func TestMatchLocalRoundTrip(t *testing.T) {
	inputs := [][]byte{
		bytes.Repeat([]byte{0}, 128),
		bytes.Repeat([]byte("abcd"), 100),
		append(bytes.Repeat([]byte{7}, 60), bytes.Repeat([]byte{9}, 60)...),
	}

	codec := NewMatchCodec()

	for i, src := range inputs {
		dst := make([]byte, len(src))
		sz, err := codec.EncodeLocal(src, dst)

		if err != nil {
			t.Fatalf("input %d: EncodeLocal failed: %v", i, err)
		}

		if sz >= len(src) {
			t.Fatalf("input %d: no gain (%d >= %d)", i, sz, len(src))
		}

		out := make([]byte, len(src))

		if err := DecodeLocal(dst[:sz], out); err != nil {
			t.Fatalf("input %d: DecodeLocal failed: %v", i, err)
		}

		if bytes.Equal(src, out) == false {
			t.Fatalf("input %d: round trip mismatch", i)
		}
	}
}

func TestMatchLocalRejectsIncompressible(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	src := make([]byte, 200)
	r.Read(src)
	codec := NewMatchCodec()
	dst := make([]byte, len(src))

	if _, err := codec.EncodeLocal(src, dst); err == nil {
		t.Fatal("random block compressed by back-references")
	}
}

func TestMatchRingRoundTrip(t *testing.T) {
	hist := bytes.Repeat([]byte("telemetry-frame:0042;"), 20)
	src := append([]byte(nil), hist[:150]...)
	src[40] ^= 0xFF
	codec := NewMatchCodec()
	dst := make([]byte, len(src))
	sz, err := codec.EncodeRing(hist, src, dst)

	if err != nil {
		t.Fatalf("EncodeRing failed: %v", err)
	}

	if sz >= len(src) {
		t.Fatalf("no gain against history (%d >= %d)", sz, len(src))
	}

	out := make([]byte, len(src))

	if err := codec.DecodeRing(hist, dst[:sz], out); err != nil {
		t.Fatalf("DecodeRing failed: %v", err)
	}

	if bytes.Equal(src, out) == false {
		t.Fatal("round trip mismatch")
	}
}

func TestMatchRingLongOffsets(t *testing.T) {
	r := rand.New(rand.NewSource(23))
	hist := make([]byte, 2000)
	r.Read(hist)

	// The packet repeats material from beyond the one byte offset
	// range, forcing the escape-coded 16 bit offsets
	src := append([]byte(nil), hist[800:940]...)
	codec := NewMatchCodec()
	dst := make([]byte, 2*len(src))
	sz, err := codec.EncodeRing(hist, src, dst)

	if err != nil {
		t.Fatalf("EncodeRing failed: %v", err)
	}

	out := make([]byte, len(src))

	if err := codec.DecodeRing(hist, dst[:sz], out); err != nil {
		t.Fatalf("DecodeRing failed: %v", err)
	}

	if bytes.Equal(src, out) == false {
		t.Fatal("round trip mismatch")
	}
}

func TestMatchDecodeRejectsCorruption(t *testing.T) {
	src := bytes.Repeat([]byte("xyz"), 60)
	codec := NewMatchCodec()
	dst := make([]byte, len(src))
	sz, err := codec.EncodeLocal(src, dst)

	if err != nil {
		t.Fatalf("EncodeLocal failed: %v", err)
	}

	out := make([]byte, len(src))

	// Every truncation must fail cleanly
	for cut := 0; cut < sz; cut++ {
		if err := DecodeLocal(dst[:cut], out); err == nil {
			t.Fatalf("truncation at %d accepted", cut)
		}
	}

	// Every single-byte corruption must fail or still produce exactly
	// the declared length, never read out of bounds
	for i := 0; i < sz; i++ {
		bad := append([]byte(nil), dst[:sz]...)
		bad[i] ^= 0xA5
		_ = DecodeLocal(bad, out)
	}
}
