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

// Label is one name/value pair. Series keep labels as an ordered
// slice, not a map, so serialization order matches insertion order
// (spec invariant: label pairs within a series appear in insertion
// order).
type Label struct {
	Name  string
	Value string
}

// Series is a labelset under a Family plus its samples. Label name
// uniqueness within a Series is an invariant enforced by callers
// (AppendSeries/AddSample do not themselves dedupe — collectors are
// expected to build each labelset once).
type Series struct {
	Labels    []Label
	Samples   []Sample
	Histogram *HistogramPoint // set instead of Samples for histogram families
}

// Sample is a pre-formatted value string plus the wall-clock second
// it was observed at. Value is stored pre-formatted because the
// legal lexical forms (NaN, +Inf, -Inf, integer, decimal) are fixed
// by the value coercer, not by the sample itself.
type Sample struct {
	Value     string
	Timestamp float64 // seconds since epoch
}

// AddSample appends a sample to the series.
func (s *Series) AddSample(value string, timestamp float64) {
	s.Samples = append(s.Samples, Sample{Value: value, Timestamp: timestamp})
}
