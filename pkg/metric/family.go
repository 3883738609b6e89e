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
// Package metric is the in-memory Prometheus metric model: families,
// series, samples and a registry, plus the value and label helpers
// used to populate them from raw query output. Serialization to the
// exposition text format lives in format.go.
package metric

import "regexp"

// Kind is the tagged variant a Family carries. The text formatter
// dispatches on Kind rather than on a stringly-typed field.
type Kind string

const (
	Gauge     Kind = "gauge"
	Counter   Kind = "counter"
	Histogram Kind = "histogram"
)

var nameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// ValidName reports whether name is a legal Prometheus metric name.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// Family is a metric identity: a unique name, help text and kind,
// owning an ordered sequence of series definitions.
type Family struct {
	Name   string
	Help   string
	Kind   Kind
	Series []*Series
}

// AppendSeries appends a new series with the given labels and returns
// it so the caller can push samples onto it. Labels are copied to
// preserve insertion order independent of the caller's map/slice.
func (f *Family) AppendSeries(labels []Label) *Series {
	s := &Series{Labels: append([]Label(nil), labels...)}
	f.Series = append(f.Series, s)
	return s
}
