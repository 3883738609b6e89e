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

import (
	"bytes"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/require"
)

func TestWriteToIsDeterministic(t *testing.T) {
	build := func() *Registry {
		r := NewRegistry()
		f := r.GetOrCreate("pgexporter_postgresql_active", "is the server reachable", Gauge)
		f.AppendSeries([]Label{{Name: "server", Value: "s1"}}).AddSample("1", 0)
		return r
	}
	var a, b bytes.Buffer
	require.NoError(t, WriteTo(&a, build()))
	require.NoError(t, WriteTo(&b, build()))
	require.Equal(t, a.String(), b.String())
}

func TestWriteToEmptyFamilyGaugeValidParse(t *testing.T) {
	r := NewRegistry()
	f := r.GetOrCreate("pgexporter_state", "exporter is running", Gauge)
	f.AppendSeries(nil).AddSample("1", 0)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, r))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(&buf)
	require.NoError(t, err)
	require.Contains(t, families, "pgexporter_state")
	require.Len(t, families["pgexporter_state"].Metric, 1)
	require.Equal(t, float64(1), families["pgexporter_state"].Metric[0].GetGauge().GetValue())
}

func TestWriteToHistogramExpandsToThreeBlocks(t *testing.T) {
	r := NewRegistry()
	f := r.GetOrCreate("pgexporter_query_duration", "query duration histogram", Histogram)
	f.AppendHistogram([]Label{{Name: "server", Value: "s1"}}, HistogramPoint{
		Bounds: []float64{0.1, 0.5, 1},
		Counts: []float64{2, 5, 7},
		Sum:    "3.14",
		Count:  "9",
	})

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, r))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(&buf)
	require.NoError(t, err)

	bucket, ok := families["pgexporter_query_duration_bucket"]
	require.True(t, ok)
	require.Len(t, bucket.Metric, 4)
	buckets := bucket.Metric[0].GetGauge()
	_ = buckets // bucket family is modeled as individual gauge series, one per le

	sum, ok := families["pgexporter_query_duration_sum"]
	require.True(t, ok)
	require.Equal(t, 3.14, sum.Metric[0].GetGauge().GetValue())

	count, ok := families["pgexporter_query_duration_count"]
	require.True(t, ok)
	require.Equal(t, float64(9), count.Metric[0].GetGauge().GetValue())
}

func TestWriteToHistogramBucketLines(t *testing.T) {
	r := NewRegistry()
	f := r.GetOrCreate("pgexporter_query_duration", "", Histogram)
	f.AppendHistogram([]Label{{Name: "server", Value: "s1"}}, HistogramPoint{
		Bounds: []float64{0.1, 0.5, 1},
		Counts: []float64{2, 5, 7},
		Sum:    "3.14",
		Count:  "9",
	})
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, r))
	text := buf.String()
	require.Contains(t, text, `le="0.1"} 2`)
	require.Contains(t, text, `le="0.5"} 5`)
	require.Contains(t, text, `le="1"} 7`)
	require.Contains(t, text, `le="+Inf"} 9`)
}
