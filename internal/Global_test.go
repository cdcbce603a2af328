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

package internal

import (
	"math"
	"testing"
)

func TestBucketMapping(t *testing.T) {
	// The map must be monotonic and agree with the start table
	prev := 0

	for pos := 0; pos < 2048; pos++ {
		b := Bucket(pos)

		if b < prev || b >= NumBuckets {
			t.Fatalf("pos %d: bucket %d after %d", pos, b, prev)
		}

		if pos < BucketStarts[b] {
			t.Fatalf("pos %d mapped to bucket %d starting at %d", pos, b, BucketStarts[b])
		}

		if b+1 < NumBuckets && pos >= BucketStarts[b+1] {
			t.Fatalf("pos %d mapped below bucket %d", pos, b+1)
		}

		prev = b
	}

	// The legacy view is a strict coarsening of the fine view
	for pos := 0; pos < 2048; pos++ {
		fine := Bucket(pos)
		legacy := LegacyBucket(pos)
		var want int

		switch {
		case BucketStarts[fine] < 16:
			want = 0
		case BucketStarts[fine] < 64:
			want = 1
		case BucketStarts[fine] < 256:
			want = 2
		default:
			want = 3
		}

		if legacy != want {
			t.Fatalf("pos %d: legacy bucket %d, fine bucket %d", pos, legacy, fine)
		}
	}
}

func TestBigramClass(t *testing.T) {
	cases := []struct {
		prev byte
		cls  int
	}{
		{0, 0}, {1, 1}, {31, 1}, {32, 2}, {'a', 2}, {127, 2}, {128, 3}, {255, 3},
	}

	for _, c := range cases {
		if got := BigramClass(c.prev); got != c.cls {
			t.Fatalf("class(%d) = %d, expected %d", c.prev, got, c.cls)
		}
	}
}

func TestLog2_1024(t *testing.T) {
	if _, err := Log2_1024(0); err == nil {
		t.Fatal("log of zero accepted")
	}

	for _, x := range []uint32{1, 2, 3, 16, 255, 256, 1000, 4096, 1 << 20} {
		got, err := Log2_1024(x)

		if err != nil {
			t.Fatalf("Log2_1024(%d) failed: %v", x, err)
		}

		want := 1024 * math.Log2(float64(x))

		if math.Abs(float64(got)-want) > want*0.002+1 {
			t.Fatalf("Log2_1024(%d) = %d, expected about %.0f", x, got, want)
		}
	}
}
