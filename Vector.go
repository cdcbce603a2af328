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
	"github.com/klauspost/cpuid/v2"
)

// VectorMode selects the interleaving strategy for the entropy coder.
// Wide mode runs two alternating coder states so the CPU can overlap
// the table lookups; it only pays off on cores with wide out-of-order
// windows, so auto detection keys off AVX2 as a proxy for such cores.
type VectorMode int

const (
	VectorAuto VectorMode = iota
	VectorGeneric
	VectorWide
)

func (this VectorMode) String() string {
	switch this {
	case VectorAuto:
		return "AUTO"
	case VectorGeneric:
		return "GENERIC"
	case VectorWide:
		return "WIDE"
	}

	return "UNKNOWN"
}

// resolveVectorMode maps auto detection to a concrete mode.
func resolveVectorMode(m VectorMode) VectorMode {
	if m != VectorAuto {
		return m
	}

	if cpuid.CPU.Has(cpuid.AVX2) {
		return VectorWide
	}

	return VectorGeneric
}
