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
// Package builtin implements the exporter's fixed metric inventory
// (spec §4.7): exporter-level gauges that need no backend at all,
// plus the per-server active/version/uptime/primary/setting/extension
// probes.
package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/pg-community/pgexporter/pkg/config"
	"github.com/pg-community/pgexporter/pkg/metric"
	"github.com/pg-community/pgexporter/pkg/query"
)

// Collector runs the fixed collectors in the order spec §4.7/§5
// requires: exporter-level metrics first, then one pass per server.
type Collector struct {
	Logger          *zap.SugaredLogger
	Counters        *config.Counters
	ExporterVersion string
	Servers         []*query.Server
	Settings        []string
}

// Collect runs every built-in collector in a fixed order and appends
// their series to reg, stamping samples with now.
func (c *Collector) Collect(ctx context.Context, reg *metric.Registry, now float64) {
	c.state(reg, now)
	c.logging(reg, now)
	c.version(reg, now)
	for _, srv := range c.Servers {
		c.detect(ctx, srv)
		c.active(reg, srv, now)
		c.postgresVersion(reg, srv, now)
		c.uptime(ctx, reg, srv, now)
		c.primary(reg, srv, now)
	}
	c.settings(ctx, reg, now)
	c.extensionInfo(ctx, reg, now)
}

func (c *Collector) state(reg *metric.Registry, now float64) {
	f := reg.GetOrCreate("pgexporter_state", "Whether the exporter process is running", metric.Gauge)
	f.AppendSeries(nil).AddSample("1", now)
}

func (c *Collector) logging(reg *metric.Registry, now float64) {
	if c.Counters == nil {
		return
	}
	add := func(name string, val uint64) {
		f := reg.GetOrCreate(name, "Count of log messages emitted at this level", metric.Gauge)
		f.AppendSeries(nil).AddSample(strconv.FormatUint(val, 10), now)
	}
	add("pgexporter_logging_info", c.Counters.Info.Load())
	add("pgexporter_logging_warn", c.Counters.Warn.Load())
	add("pgexporter_logging_error", c.Counters.Error.Load())
	add("pgexporter_logging_fatal", c.Counters.Fatal.Load())
}

func (c *Collector) version(reg *metric.Registry, now float64) {
	f := reg.GetOrCreate("pgexporter_version", "The exporter's own version", metric.Counter)
	f.AppendSeries([]metric.Label{{Name: "pgexporter_version", Value: c.ExporterVersion}}).AddSample("1", now)
}

var serverVersionColumns = []query.Column{{Name: "version_num", Kind: query.ColumnGauge}, {Name: "in_recovery", Kind: query.ColumnGauge}}

// detect populates srv.Version (major/minor/role) from the backend so
// the query orchestrator can pick the right variant for later custom
// metrics. A detection failure leaves Version unchanged (its zero
// value if detection never succeeded), marks the server not
// Connected, and latches Extension false (spec §7: backend error latches the
// capability flag false for the process lifetime).
func (c *Collector) detect(ctx context.Context, srv *query.Server) {
	res, err := srv.Conn.Execute(ctx,
		"SELECT current_setting('server_version_num'), pg_is_in_recovery()::text",
		"", serverVersionColumns)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warnw("server detection failed", "server", srv.Name, "err", err)
		}
		srv.Extension.Store(false)
		srv.Connected = false
		return
	}
	srv.Connected = true
	tuples := res.Tuples()
	if len(tuples) == 0 {
		return
	}
	t := tuples[0]
	num, _ := strconv.Atoi(t.Get(0))
	srv.Version.Major = num / 10000
	srv.Version.Minor = num % 10000
	if num < 100000 { // pre-10 versioning: major.minor.patch encoded as MMmmpp
		srv.Version.Major = num / 10000
		srv.Version.Minor = (num / 100) % 100
	}
	if t.Get(1) == "t" {
		srv.Version.Role = query.RoleReplica
	} else {
		srv.Version.Role = query.RolePrimary
	}
}

func (c *Collector) active(reg *metric.Registry, srv *query.Server, now float64) {
	f := reg.GetOrCreate("pgexporter_postgresql_active", "Whether the server is reachable", metric.Gauge)
	val := "0"
	if srv.Connected {
		val = "1"
	}
	f.AppendSeries([]metric.Label{{Name: "server", Value: metric.SafeKey(srv.Name)}}).AddSample(val, now)
}

func (c *Collector) postgresVersion(reg *metric.Registry, srv *query.Server, now float64) {
	if !srv.Connected {
		return
	}
	f := reg.GetOrCreate("pgexporter_postgresql_version", "The server's PostgreSQL version", metric.Gauge)
	f.AppendSeries([]metric.Label{
		{Name: "server", Value: metric.SafeKey(srv.Name)},
		{Name: "version", Value: strconv.Itoa(srv.Version.Major)},
		{Name: "minor_version", Value: strconv.Itoa(srv.Version.Minor)},
	}).AddSample("1", now)
}

var uptimeColumns = []query.Column{{Name: "uptime", Kind: query.ColumnCounter}}

func (c *Collector) uptime(ctx context.Context, reg *metric.Registry, srv *query.Server, now float64) {
	if !srv.Connected {
		return
	}
	res, err := srv.Conn.Execute(ctx,
		"SELECT extract(epoch from now() - pg_postmaster_start_time())", "", uptimeColumns)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warnw("uptime query failed", "server", srv.Name, "err", err)
		}
		return
	}
	tuples := res.Tuples()
	if len(tuples) == 0 {
		return
	}
	f := reg.GetOrCreate("pgexporter_postgresql_uptime", "Seconds since the server started", metric.Counter)
	f.AppendSeries([]metric.Label{{Name: "server", Value: metric.SafeKey(srv.Name)}}).AddSample(metric.CoerceValue(tuples[0].Get(0)), now)
}

func (c *Collector) primary(reg *metric.Registry, srv *query.Server, now float64) {
	if !srv.Connected {
		return
	}
	f := reg.GetOrCreate("pgexporter_postgresql_primary", "Whether the server is a primary", metric.Gauge)
	val := "0"
	if srv.Version.Role == query.RolePrimary {
		val = "1"
	}
	f.AppendSeries([]metric.Label{{Name: "server", Value: metric.SafeKey(srv.Name)}}).AddSample(val, now)
}

var settingNameRE = regexp.MustCompile(`^[a-z0-9_.]+$`)

// settings folds duplicate setting names across servers into one
// family per name, with one series per server that reports it — the
// spec's third Open Question is resolved this way (see SPEC_FULL.md).
func (c *Collector) settings(ctx context.Context, reg *metric.Registry, now float64) {
	for _, name := range c.Settings {
		if !settingNameRE.MatchString(name) {
			continue
		}
		famName := "pgexporter_" + metric.SafeKey(name)
		for _, srv := range c.Servers {
			if !srv.Connected {
				continue
			}
			res, err := srv.Conn.Execute(ctx,
				fmt.Sprintf("SELECT setting FROM pg_settings WHERE name = '%s'", name),
				"", []query.Column{{Name: "setting", Kind: query.ColumnGauge}})
			if err != nil {
				if c.Logger != nil {
					c.Logger.Debugw("setting query failed", "server", srv.Name, "setting", name, "err", err)
				}
				continue
			}
			tuples := res.Tuples()
			if len(tuples) == 0 {
				continue
			}
			f := reg.GetOrCreate(famName, "PostgreSQL setting "+name, metric.Gauge)
			f.AppendSeries([]metric.Label{{Name: "server", Value: metric.SafeKey(srv.Name)}}).
				AddSample(metric.CoerceValue(tuples[0].Get(0)), now)
		}
	}
}

// ExtensionProbe describes one function the extension collector can
// invoke: no-input, or with a data-directory/WAL-directory argument.
type ExtensionProbe struct {
	Extension string
	Function  string
	Comment   string
	Mode      ExtensionMode
}

type ExtensionMode string

const (
	ExtensionNoInput   ExtensionMode = ""
	ExtensionDataInput ExtensionMode = "data"
	ExtensionWALInput  ExtensionMode = "wal"
)

// Probes lists the extension functions the collector invokes, one
// per capability the pgexporter_ext support extension exposes.
// Whether a given probe actually runs against a server still depends
// on that server's InstalledExtensions (spec §4.7's "enumerates
// available functions from a support extension").
var Probes = []ExtensionProbe{
	{Extension: "pgexporter_ext", Function: "pgexporter_get_version", Comment: "support extension version", Mode: ExtensionNoInput},
	{Extension: "pgexporter_ext", Function: "pgexporter_get_data_checksum", Comment: "data directory checksum status", Mode: ExtensionDataInput},
	{Extension: "pgexporter_ext", Function: "pgexporter_get_wal_checksum", Comment: "WAL directory checksum status", Mode: ExtensionWALInput},
}

// extensionProbeColumns describes the single scalar column every
// pgexporter_ext probe function returns. Passing nil columns here
// would size pgconn's scan destination to zero and fail Scan against
// the probe's one-column result.
var extensionProbeColumns = []query.Column{{Name: "result", Kind: query.ColumnGauge}}

func (c *Collector) extensionInfo(ctx context.Context, reg *metric.Registry, now float64) {
	if len(Probes) == 0 {
		return
	}
	f := reg.GetOrCreate("pgexporter_postgresql_extension_info", "Installed support-extension functions", metric.Gauge)
	for _, srv := range c.Servers {
		if !srv.Connected || !srv.Extension.Load() {
			continue
		}
		for _, p := range Probes {
			if !installed(srv, p.Extension) {
				continue
			}
			arg := ""
			switch p.Mode {
			case ExtensionDataInput:
				arg = dataDirOf(c.Servers, srv.Name)
			case ExtensionWALInput:
				arg = walDirOf(c.Servers, srv.Name)
			}
			sql := fmt.Sprintf("SELECT %s()", p.Function)
			if arg != "" {
				sql = fmt.Sprintf("SELECT %s('%s')", p.Function, arg)
			}
			if _, err := srv.Conn.Execute(ctx, sql, "", extensionProbeColumns); err != nil {
				if c.Logger != nil {
					c.Logger.Warnw("extension probe failed", "server", srv.Name, "function", p.Function, "err", err)
				}
				srv.Extension.Store(false)
				continue
			}
			name := p.Function
			switch p.Mode {
			case ExtensionDataInput:
				name += "_data"
			case ExtensionWALInput:
				name += "_wal"
			}
			f.AppendSeries([]metric.Label{
				{Name: "server", Value: metric.SafeKey(srv.Name)},
				{Name: "extension", Value: metric.SafeKey(name)},
				{Name: "version", Value: metric.SafeKey(p.Extension)},
				{Name: "comment", Value: p.Comment},
			}).AddSample("1", now)
		}
	}
}

func installed(srv *query.Server, extension string) bool {
	for _, e := range srv.InstalledExtensions {
		if e == extension {
			return true
		}
	}
	return false
}

func dataDirOf(servers []*query.Server, name string) string {
	for _, s := range servers {
		if s.Name == name {
			return s.DataDir
		}
	}
	return ""
}

func walDirOf(servers []*query.Server, name string) string {
	for _, s := range servers {
		if s.Name == name {
			return s.WALDir
		}
	}
	return ""
}
