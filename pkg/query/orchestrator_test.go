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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pg-community/pgexporter/pkg/metric"
)

type fakeTuple struct{ values []string }

func (t fakeTuple) Get(i int) string { return t.values[i] }
func (t fakeTuple) GetByName(name string) (string, bool) {
	return "", false
}

type fakeResult struct {
	columns []Column
	tuples  []Tuple
}

func (r fakeResult) Columns() []Column { return r.columns }
func (r fakeResult) Tuples() []Tuple   { return r.tuples }

type fakeConn struct {
	result Result
	err    error
}

func (c *fakeConn) Execute(ctx context.Context, sql, namespace string, columns []Column) (Result, error) {
	return c.result, c.err
}
func (c *fakeConn) Close() error { return nil }

func serverAt(name string, major, minor int, role Role, conn Conn) *Server {
	return &Server{Name: name, Conn: conn, Version: ServerVersion{Major: major, Minor: minor, Role: role}}
}

func TestOrchestratorMergesAcrossServers(t *testing.T) {
	uptimeResult := fakeResult{
		columns: []Column{{Name: "uptime", Kind: ColumnGauge}},
		tuples:  []Tuple{fakeTuple{values: []string{"123"}}},
	}
	s1 := serverAt("s1", 15, 4, RolePrimary, &fakeConn{result: uptimeResult})
	s2 := serverAt("s2", 15, 4, RolePrimary, &fakeConn{result: uptimeResult})

	def := MetricDef{
		Tag: "pgexporter_postgresql_uptime", Kind: metric.Counter,
		ServerQueryType: QueryAny,
		Variants:        VariantTree{Variants: []Variant{{MinMajor: 9, MinMinor: 0, Role: QueryAny, SQL: "select uptime"}}},
	}

	o := &Orchestrator{Servers: []*Server{s1, s2}}
	reg := metric.NewRegistry()
	o.Run(context.Background(), reg, []MetricDef{def}, 1000)

	fam, ok := reg.Get("pgexporter_postgresql_uptime")
	require.True(t, ok)
	require.Len(t, fam.Series, 2)
	servers := map[string]bool{}
	for _, s := range fam.Series {
		for _, l := range s.Labels {
			if l.Name == "server" {
				servers[l.Value] = true
			}
		}
	}
	require.True(t, servers["s1"])
	require.True(t, servers["s2"])
}

func TestOrchestratorSkipsFailingServerButKeepsOthers(t *testing.T) {
	good := fakeResult{
		columns: []Column{{Name: "v", Kind: ColumnGauge}},
		tuples:  []Tuple{fakeTuple{values: []string{"1"}}},
	}
	s1 := serverAt("s1", 15, 4, RolePrimary, &fakeConn{result: good})
	s2 := serverAt("s2", 15, 4, RolePrimary, &fakeConn{err: context.DeadlineExceeded})

	def := MetricDef{
		Tag: "pgexporter_setting", Kind: metric.Gauge,
		ServerQueryType: QueryAny,
		Variants:        VariantTree{Variants: []Variant{{MinMajor: 0, MinMinor: 0, Role: QueryAny, SQL: "select 1"}}},
	}
	o := &Orchestrator{Servers: []*Server{s1, s2}}
	reg := metric.NewRegistry()
	o.Run(context.Background(), reg, []MetricDef{def}, 1000)

	fam, ok := reg.Get("pgexporter_setting")
	require.True(t, ok)
	require.Len(t, fam.Series, 1)
}

func TestOrchestratorRespectsServerQueryType(t *testing.T) {
	res := fakeResult{columns: []Column{{Name: "v", Kind: ColumnGauge}}, tuples: []Tuple{fakeTuple{values: []string{"1"}}}}
	primary := serverAt("s1", 15, 4, RolePrimary, &fakeConn{result: res})
	replica := serverAt("s2", 15, 4, RoleReplica, &fakeConn{result: res})

	def := MetricDef{
		Tag: "primary_only", Kind: metric.Gauge,
		ServerQueryType: QueryPrimary,
		Variants:        VariantTree{Variants: []Variant{{MinMajor: 0, MinMinor: 0, Role: QueryAny, SQL: "select 1"}}},
	}
	o := &Orchestrator{Servers: []*Server{primary, replica}}
	reg := metric.NewRegistry()
	o.Run(context.Background(), reg, []MetricDef{def}, 1000)

	fam, ok := reg.Get("primary_only")
	require.True(t, ok)
	require.Len(t, fam.Series, 1)
	require.Equal(t, "s1", fam.Series[0].Labels[0].Value)
}
