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

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/pg-community/pgexporter/pkg/metric"
)

// Server is one configured backend, as far as the orchestrator is
// concerned: a live connection, its version/role, and the extension
// capability flag that latches false on a failed probe (spec §4.1,
// §4.7, §7). Extension uses atomic.Bool so the benign
// true-only-flips-to-false race the spec describes across concurrent
// scrapes is race-detector clean.
type Server struct {
	Name                string
	Conn                Conn
	Version             ServerVersion
	Extension           atomic.Bool
	Connected           bool
	DataDir             string
	WALDir              string
	InstalledExtensions []string
}

// SortType controls how merged series are ordered within a family
// before emission.
type SortType string

const (
	SortNone        SortType = "none"
	SortByLabel     SortType = "label"
	SortByFirstData SortType = "first_data_column"
)

// MetricDef is one configured custom metric: a family identity plus
// the variant tree used to pick its SQL per server.
type MetricDef struct {
	Tag             string
	Help            string
	Kind            metric.Kind
	CollectorName   string
	Namespace       string
	ServerQueryType ServerQueryType
	Variants        VariantTree
	Sort            SortType
	// Columns declares each result column's role, parallel to the
	// variant SQL's SELECT list: label columns first, then the
	// gauge/counter/histogram data columns (spec §4.5/§4.6).
	Columns []Column
}

// HistogramAssembler is implemented by pkg/histogram; kept as an
// interface here so query does not import histogram (histogram
// imports metric, and would otherwise need to import query too).
type HistogramAssembler func(ctx context.Context, labels []metric.Label, row Tuple, columns []Column) (metric.HistogramPoint, error)

// Orchestrator fans a set of metric definitions out across servers
// and merges the results into a registry.
type Orchestrator struct {
	Logger    *zap.SugaredLogger
	Servers   []*Server
	Histogram HistogramAssembler
}

// Run executes every def against every eligible server and appends
// the resulting series into reg, stamping every sample with now
// (seconds since epoch) — the scrape's start time, never a stale
// cache value, per spec §3. A per-server query failure is logged and
// skipped; it never aborts the whole run (spec §4.1 failure
// semantics).
func (o *Orchestrator) Run(ctx context.Context, reg *metric.Registry, defs []MetricDef, now float64) {
	for _, def := range defs {
		fam := reg.GetOrCreate(def.Tag, def.Help, def.Kind)
		var rows []mergedRow
		for _, srv := range o.Servers {
			if !def.ServerQueryType.Matches(srv.Version.Role) {
				continue
			}
			variant, ok := GetVariant(def.Variants, srv.Version)
			if !ok {
				continue
			}
			res, err := srv.Conn.Execute(ctx, variant.SQL, def.Namespace, def.Columns)
			if err != nil {
				if o.Logger != nil {
					o.Logger.Warnw("query failed", "metric", def.Tag, "server", srv.Name, "err", err)
				}
				continue
			}
			for _, t := range res.Tuples() {
				rows = append(rows, mergedRow{server: srv.Name, columns: res.Columns(), tuple: t})
			}
		}
		sortRows(def.Sort, rows)
		for _, row := range rows {
			o.appendRow(ctx, fam, def, row, now)
		}
	}
}

type mergedRow struct {
	server  string
	columns []Column
	tuple   Tuple
}

func sortRows(st SortType, rows []mergedRow) {
	switch st {
	case SortByLabel:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].server < rows[j].server })
	case SortByFirstData:
		sort.SliceStable(rows, func(i, j int) bool {
			return firstDataColumn(rows[i]) < firstDataColumn(rows[j])
		})
	}
}

func firstDataColumn(r mergedRow) string {
	for i, c := range r.columns {
		if c.Kind != ColumnLabel {
			return r.tuple.Get(i)
		}
	}
	return ""
}

func (o *Orchestrator) appendRow(ctx context.Context, fam *metric.Family, def MetricDef, row mergedRow, now float64) {
	labels := make([]metric.Label, 0, len(row.columns)+1)
	labels = append(labels, metric.Label{Name: "server", Value: metric.SafeKey(row.server)})
	for i, c := range row.columns {
		if c.Kind == ColumnLabel {
			labels = append(labels, metric.Label{Name: metric.SafeKey(c.Name), Value: metric.SafeKey(row.tuple.Get(i))})
		}
	}

	if def.Kind == metric.Histogram {
		if o.Histogram == nil {
			return
		}
		point, err := o.Histogram(ctx, labels, row.tuple, row.columns)
		if err != nil {
			if o.Logger != nil {
				o.Logger.Debugw("histogram assembly failed", "metric", def.Tag, "server", row.server, "err", err)
			}
			return
		}
		fam.AppendHistogram(labels, point)
		return
	}

	// Per spec Open Question: when multiple non-label columns exist,
	// only the first data column's coerced value is emitted.
	for i, c := range row.columns {
		if c.Kind == ColumnLabel {
			continue
		}
		fam.AppendSeries(labels).AddSample(metric.CoerceValue(row.tuple.Get(i)), now)
		break
	}
}
