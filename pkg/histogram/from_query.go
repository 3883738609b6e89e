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
package histogram

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pg-community/pgexporter/pkg/metric"
	"github.com/pg-community/pgexporter/pkg/query"
)

// NewAssembler returns a query.HistogramAssembler that locates a
// metric's bounds/counts/sum/count columns by the suffix convention
// from spec §4.6: for a histogram column named <name>, the bounds
// array is the column literally named <name>, the cumulative counts
// array is <name>_bucket, and the scalar columns are <name>_sum and
// <name>_count.
func NewAssembler(logger *zap.SugaredLogger, name string) query.HistogramAssembler {
	return func(ctx context.Context, labels []metric.Label, row query.Tuple, columns []query.Column) (metric.HistogramPoint, error) {
		bounds, ok := lookup(row, columns, name)
		if !ok {
			return metric.HistogramPoint{}, fmt.Errorf("histogram: missing bounds column %q", name)
		}
		counts, ok := lookup(row, columns, name+"_bucket")
		if !ok {
			return metric.HistogramPoint{}, fmt.Errorf("histogram: missing counts column %q", name+"_bucket")
		}
		sum, _ := lookup(row, columns, name+"_sum")
		count, _ := lookup(row, columns, name+"_count")
		return Assemble(logger, name, Row{Bounds: bounds, Counts: counts, Sum: sum, Count: count})
	}
}

func lookup(row query.Tuple, columns []query.Column, name string) (string, bool) {
	for i, c := range columns {
		if c.Name == name {
			return row.Get(i), true
		}
	}
	return "", false
}

// NewGenericAssembler returns a query.HistogramAssembler that works
// for any metric definition following the suffix convention, without
// needing to know the bounds column's name up front: it is derived
// per call from columns by finding a histogram-kind column whose name
// has a "_bucket"-suffixed sibling among the other histogram columns.
func NewGenericAssembler(logger *zap.SugaredLogger) query.HistogramAssembler {
	return func(ctx context.Context, labels []metric.Label, row query.Tuple, columns []query.Column) (metric.HistogramPoint, error) {
		name, ok := boundsColumnName(columns)
		if !ok {
			return metric.HistogramPoint{}, fmt.Errorf("histogram: no bounds column found among %d columns", len(columns))
		}
		return NewAssembler(logger, name)(ctx, labels, row, columns)
	}
}

func boundsColumnName(columns []query.Column) (string, bool) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.Kind == query.ColumnHistogram {
			known[c.Name] = true
		}
	}
	for name := range known {
		if known[name+"_bucket"] {
			return name, true
		}
	}
	return "", false
}
