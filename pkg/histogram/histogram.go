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
// Package histogram assembles histogram families from PostgreSQL
// array-literal columns, per spec §4.6.
package histogram

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pg-community/pgexporter/pkg/metric"
)

// ParseArray parses a PostgreSQL array literal of the form
// "{v1,v2,...,vn}" into a slice of float64s. An empty array ("{}")
// returns an empty, non-nil slice.
func ParseArray(literal string) ([]float64, error) {
	if len(literal) < 2 || literal[0] != '{' || literal[len(literal)-1] != '}' {
		return nil, fmt.Errorf("histogram: malformed array literal %q", literal)
	}
	inner := literal[1 : len(literal)-1]
	if inner == "" {
		return []float64{}, nil
	}
	parts := strings.Split(inner, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("histogram: bad element %q in %q: %w", p, literal, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Row is the raw data the orchestrator hands the assembler for one
// histogram series: the bounds array literal, the cumulative-counts
// array literal, and the scalar sum/count columns.
type Row struct {
	Bounds string
	Counts string
	Sum    string
	Count  string
}

// Assemble parses a Row into a metric.HistogramPoint. Bounds and
// Counts lengths must match; on mismatch it emits what the shorter
// (bounds-limited) length allows and logs a trace diagnostic rather
// than failing the whole series, per spec §4.6.
func Assemble(logger *zap.SugaredLogger, name string, row Row) (metric.HistogramPoint, error) {
	bounds, err := ParseArray(row.Bounds)
	if err != nil {
		return metric.HistogramPoint{}, err
	}
	counts, err := ParseArray(row.Counts)
	if err != nil {
		return metric.HistogramPoint{}, err
	}
	if len(bounds) != len(counts) {
		if logger != nil {
			logger.Debugw("histogram bucket/count length mismatch", "metric", name,
				"bounds", len(bounds), "counts", len(counts))
		}
		n := len(bounds)
		if len(counts) < n {
			n = len(counts)
		}
		bounds, counts = bounds[:n], counts[:n]
	}
	return metric.HistogramPoint{
		Bounds: bounds,
		Counts: counts,
		Sum:    metric.CoerceValue(row.Sum),
		Count:  metric.CoerceValue(row.Count),
	}, nil
}
