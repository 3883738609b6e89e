// Copyright 2024 The pgexporter Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
package metric

import "sort"

// Registry owns metric families for the duration of one scrape. It
// is never reused across scrapes: a fresh Registry is created per
// request that misses cache and discarded once serialization
// completes (spec lifecycle: registry and families exist only for
// one scrape that missed cache).
type Registry struct {
	families map[string]*Family
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*Family)}
}

// GetOrCreate returns the family for name, creating it with the
// given help/kind if absent. Insertion is idempotent: a second call
// with the same name returns the same *Family so collectors can keep
// appending series, and help/kind from the first call win.
func (r *Registry) GetOrCreate(name, help string, kind Kind) *Family {
	if f, ok := r.families[name]; ok {
		return f
	}
	f := &Family{Name: name, Help: help, Kind: kind}
	r.families[name] = f
	return f
}

// Get returns the family for name if it already exists.
func (r *Registry) Get(name string) (*Family, bool) {
	f, ok := r.families[name]
	return f, ok
}

// Len reports the number of distinct families currently registered.
func (r *Registry) Len() int {
	return len(r.families)
}

// Iterate returns families ordered by name, making serialization
// output deterministic regardless of collector execution order.
func (r *Registry) Iterate() []*Family {
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Family, len(names))
	for i, name := range names {
		out[i] = r.families[name]
	}
	return out
}
