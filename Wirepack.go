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

// Compress compresses a single packet against a dictionary with no
// cross-packet state, using the legacy header. Convenience wrapper for
// callers that do not keep a Context; dict may be nil.
func Compress(dict *Dictionary, src, dst []byte) (int, error) {
	ctx, err := NewContext(dict, Config{Effort: 6})

	if err != nil {
		return 0, err
	}

	return ctx.Compress(src, dst)
}

// Decompress is the stateless counterpart of the package level
// Compress.
func Decompress(dict *Dictionary, src, dst []byte) (int, error) {
	ctx, err := NewContext(dict, Config{Effort: 6})

	if err != nil {
		return 0, err
	}

	return ctx.Decompress(src, dst)
}
