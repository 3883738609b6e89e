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
package query

import "sort"

// Variant is one SQL statement specialized for a version/role.
type Variant struct {
	MinMajor, MinMinor int
	Role               ServerQueryType
	SQL                string
}

// VariantTree holds every variant for one metric, in the order
// they're declared. GetVariant selects the variant with the highest
// (MinMajor, MinMinor) not exceeding the server's version, among
// those whose Role matches the server.
type VariantTree struct {
	Variants []Variant
}

// ServerVersion identifies a backend for variant selection.
type ServerVersion struct {
	Major, Minor int
	Role         Role
}

// GetVariant returns the best-matching variant for server, or false
// if none of the tree's variants apply (e.g. none declared a
// role-compatible entry at or below the server's version).
func GetVariant(tree VariantTree, server ServerVersion) (Variant, bool) {
	candidates := make([]Variant, 0, len(tree.Variants))
	for _, v := range tree.Variants {
		if !v.Role.Matches(server.Role) {
			continue
		}
		if v.MinMajor > server.Major || (v.MinMajor == server.Major && v.MinMinor > server.Minor) {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return Variant{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].MinMajor != candidates[j].MinMajor {
			return candidates[i].MinMajor > candidates[j].MinMajor
		}
		return candidates[i].MinMinor > candidates[j].MinMinor
	})
	return candidates[0], true
}
