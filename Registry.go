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
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LoaderFunc fetches the serialized blob for a model id, typically from
// disk or a configuration store.
type LoaderFunc func(modelID uint8) ([]byte, error)

// Registry resolves model ids to dictionaries, keeping the most
// recently used ones deserialized. Safe for concurrent use; the
// dictionaries it hands out are immutable.
type Registry struct {
	mu     sync.Mutex
	cache  *lru.Cache[uint8, *Dictionary]
	loader LoaderFunc
}

// NewRegistry creates a registry holding at most capacity dictionaries.
func NewRegistry(capacity int, loader LoaderFunc) (*Registry, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: nil loader", ErrInvalidArgument)
	}

	cache, err := lru.New[uint8, *Dictionary](capacity)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	return &Registry{cache: cache, loader: loader}, nil
}

// Dictionary returns the dictionary for a model id, loading and caching
// it on first use.
func (this *Registry) Dictionary(modelID uint8) (*Dictionary, error) {
	if modelID < MinModelID || modelID > MaxModelID {
		return nil, fmt.Errorf("%w: model id %d out of range", ErrInvalidArgument, modelID)
	}

	this.mu.Lock()
	defer this.mu.Unlock()

	if d, ok := this.cache.Get(modelID); ok == true {
		return d, nil
	}

	blob, err := this.loader(modelID)

	if err != nil {
		return nil, err
	}

	d, err := LoadDictionary(blob)

	if err != nil {
		return nil, err
	}

	if d.ModelID() != modelID {
		return nil, fmt.Errorf("%w: loader returned model id %d for %d", ErrDictionaryInvalid, d.ModelID(), modelID)
	}

	this.cache.Add(modelID, d)
	return d, nil
}

// Add inserts a pre-built dictionary, evicting the least recently used
// entry if the registry is full.
func (this *Registry) Add(d *Dictionary) error {
	if d == nil {
		return fmt.Errorf("%w: nil dictionary", ErrInvalidArgument)
	}

	this.mu.Lock()
	this.cache.Add(d.ModelID(), d)
	this.mu.Unlock()
	return nil
}
