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
package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pg-community/pgexporter/pkg/metric"
	"github.com/pg-community/pgexporter/pkg/query"
)

type fakeTuple struct{ values []string }

func (t fakeTuple) Get(i int) string { return t.values[i] }
func (t fakeTuple) GetByName(name string) (string, bool) {
	return "", false
}

type fakeResult struct {
	columns []query.Column
	tuples  []query.Tuple
}

func (r fakeResult) Columns() []query.Column { return r.columns }
func (r fakeResult) Tuples() []query.Tuple   { return r.tuples }

type fakeConn struct {
	responses map[string]fakeResult
	errs      map[string]error
}

func (c *fakeConn) Execute(ctx context.Context, sqlText, namespace string, columns []query.Column) (query.Result, error) {
	if err, ok := c.errs[sqlText]; ok {
		return nil, err
	}
	if res, ok := c.responses[sqlText]; ok {
		return res, nil
	}
	return fakeResult{columns: columns}, nil
}

func (c *fakeConn) Close() error { return nil }

const versionSQL = "SELECT current_setting('server_version_num'), pg_is_in_recovery()::text"
const uptimeSQL = "SELECT extract(epoch from now() - pg_postmaster_start_time())"

func TestCollectorBuildsFixedInventory(t *testing.T) {
	conn := &fakeConn{responses: map[string]fakeResult{
		versionSQL: {tuples: []query.Tuple{fakeTuple{values: []string{"150004", "f"}}}},
		uptimeSQL:  {tuples: []query.Tuple{fakeTuple{values: []string{"42.5"}}}},
	}}
	srv := &query.Server{Name: "primary", Conn: conn}

	c := &Collector{ExporterVersion: "1.2.3", Servers: []*query.Server{srv}}
	reg := metric.NewRegistry()
	c.Collect(context.Background(), reg, 1000)

	_, ok := reg.Get("pgexporter_state")
	require.True(t, ok)

	version, ok := reg.Get("pgexporter_version")
	require.True(t, ok)
	require.Equal(t, "pgexporter_version", version.Series[0].Labels[0].Name)
	require.Equal(t, "1.2.3", version.Series[0].Labels[0].Value)

	active, ok := reg.Get("pgexporter_postgresql_active")
	require.True(t, ok)
	require.Equal(t, "1", active.Series[0].Samples[0].Value)

	primary, ok := reg.Get("pgexporter_postgresql_primary")
	require.True(t, ok)
	require.Equal(t, "1", primary.Series[0].Samples[0].Value)

	uptime, ok := reg.Get("pgexporter_postgresql_uptime")
	require.True(t, ok)
	require.Equal(t, "42.5", uptime.Series[0].Samples[0].Value)
}

func TestCollectorMarksUnreachableServerInactive(t *testing.T) {
	failing := &fakeConn{errs: map[string]error{versionSQL: errConnectionRefused}}
	srv := &query.Server{Name: "down", Conn: failing}

	c := &Collector{Servers: []*query.Server{srv}}
	reg := metric.NewRegistry()
	c.Collect(context.Background(), reg, 1000)

	active, ok := reg.Get("pgexporter_postgresql_active")
	require.True(t, ok)
	require.Equal(t, "0", active.Series[0].Samples[0].Value)

	_, ok = reg.Get("pgexporter_postgresql_uptime")
	require.False(t, ok)
}

func TestSettingsFoldDuplicateNamesAcrossServers(t *testing.T) {
	settingSQL := "SELECT setting FROM pg_settings WHERE name = 'max_connections'"
	conn1 := &fakeConn{responses: map[string]fakeResult{
		versionSQL: {tuples: []query.Tuple{fakeTuple{values: []string{"150004", "f"}}}},
		settingSQL: {tuples: []query.Tuple{fakeTuple{values: []string{"100"}}}},
	}}
	conn2 := &fakeConn{responses: map[string]fakeResult{
		versionSQL: {tuples: []query.Tuple{fakeTuple{values: []string{"150004", "f"}}}},
		settingSQL: {tuples: []query.Tuple{fakeTuple{values: []string{"200"}}}},
	}}
	s1 := &query.Server{Name: "s1", Conn: conn1}
	s2 := &query.Server{Name: "s2", Conn: conn2}

	c := &Collector{Servers: []*query.Server{s1, s2}, Settings: []string{"max_connections"}}
	reg := metric.NewRegistry()
	c.Collect(context.Background(), reg, 1000)

	fam, ok := reg.Get("pgexporter_max_connections")
	require.True(t, ok)
	require.Len(t, fam.Series, 2)
}

func TestExtensionInfoEmitsProbesForInstalledExtensions(t *testing.T) {
	conn := &fakeConn{responses: map[string]fakeResult{
		versionSQL: {tuples: []query.Tuple{fakeTuple{values: []string{"150004", "f"}}}},
	}}
	srv := &query.Server{
		Name:                "primary",
		Conn:                conn,
		DataDir:             "/var/lib/postgresql/data",
		WALDir:              "/var/lib/postgresql/wal",
		InstalledExtensions: []string{"pgexporter_ext"},
	}
	srv.Extension.Store(true)

	c := &Collector{Servers: []*query.Server{srv}}
	reg := metric.NewRegistry()
	c.Collect(context.Background(), reg, 1000)

	fam, ok := reg.Get("pgexporter_postgresql_extension_info")
	require.True(t, ok)
	require.Len(t, fam.Series, len(Probes))

	var sawDataSuffix, sawWALSuffix bool
	for _, s := range fam.Series {
		for _, l := range s.Labels {
			if l.Name == "extension" && l.Value == "pgexporter_get_data_checksum_data" {
				sawDataSuffix = true
			}
			if l.Name == "extension" && l.Value == "pgexporter_get_wal_checksum_wal" {
				sawWALSuffix = true
			}
		}
	}
	require.True(t, sawDataSuffix)
	require.True(t, sawWALSuffix)
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

var errConnectionRefused = sentinelErr("connection refused")
