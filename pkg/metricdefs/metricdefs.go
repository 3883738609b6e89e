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

// Package metricdefs loads the custom-metric inventory the query
// orchestrator fans out across servers, the way the teacher's
// pkg/metrics.LoadDefaultMetricSet loads its own embedded defaults:
// a go:embed'd document parsed and defaulted with
// github.com/creasty/defaults, overridable by a user-supplied file.
package metricdefs

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v2"

	"github.com/pg-community/pgexporter/pkg/metric"
	"github.com/pg-community/pgexporter/pkg/query"
)

//go:embed defaultMetricDefs.yaml
var defaultMetricDefs []byte

// VariantConfig is one SQL variant for a metric, keyed by minimum
// server version and role.
type VariantConfig struct {
	MinMajor int    `yaml:"min_major"`
	MinMinor int    `yaml:"min_minor"`
	Role     string `yaml:"role" default:"any"`
	SQL      string `yaml:"sql"`
}

// ColumnConfig describes one result column's name and role.
type ColumnConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// MetricDefConfig is one custom metric's on-disk description.
type MetricDefConfig struct {
	Tag             string          `yaml:"tag"`
	Help            string          `yaml:"help"`
	Kind            string          `yaml:"kind"`
	CollectorName   string          `yaml:"collector_name"`
	Namespace       string          `yaml:"namespace"`
	ServerQueryType string          `yaml:"server_query_type" default:"any"`
	Sort            string          `yaml:"sort" default:"none"`
	Columns         []ColumnConfig  `yaml:"columns"`
	Variants        []VariantConfig `yaml:"variants"`
}

// Document is the root of a metric-definitions file.
type Document struct {
	Metrics []MetricDefConfig `yaml:"metrics"`
}

// LoadDefault parses the embedded default document.
func LoadDefault() ([]query.MetricDef, error) {
	return Parse(defaultMetricDefs)
}

// LoadFile reads and parses path, falling back to the embedded
// defaults when path is empty — mirroring how pkg/config.Read treats
// an empty config path as "use the built-in defaults".
func LoadFile(path string) ([]query.MetricDef, error) {
	if path == "" {
		return LoadDefault()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metricdefs: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse unmarshals a metric-definitions document and converts it into
// the query.MetricDef slice the orchestrator consumes.
func Parse(b []byte) ([]query.MetricDef, error) {
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("metricdefs: parse: %w", err)
	}
	defs := make([]query.MetricDef, 0, len(doc.Metrics))
	for i := range doc.Metrics {
		if err := defaults.Set(&doc.Metrics[i]); err != nil {
			return nil, fmt.Errorf("metricdefs: apply defaults to %q: %w", doc.Metrics[i].Tag, err)
		}
		def, err := convert(doc.Metrics[i])
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func convert(c MetricDefConfig) (query.MetricDef, error) {
	kind, err := parseKind(c.Kind)
	if err != nil {
		return query.MetricDef{}, fmt.Errorf("metricdefs: metric %q: %w", c.Tag, err)
	}
	columns := make([]query.Column, len(c.Columns))
	for i, col := range c.Columns {
		columns[i] = query.Column{Name: col.Name, Kind: query.ColumnKind(col.Kind)}
	}
	variants := make([]query.Variant, len(c.Variants))
	for i, v := range c.Variants {
		variants[i] = query.Variant{
			MinMajor: v.MinMajor,
			MinMinor: v.MinMinor,
			Role:     query.ServerQueryType(v.Role),
			SQL:      v.SQL,
		}
	}
	return query.MetricDef{
		Tag:             c.Tag,
		Help:            c.Help,
		Kind:            kind,
		CollectorName:   c.CollectorName,
		Namespace:       c.Namespace,
		ServerQueryType: query.ServerQueryType(c.ServerQueryType),
		Sort:            query.SortType(c.Sort),
		Columns:         columns,
		Variants:        query.VariantTree{Variants: variants},
	}, nil
}

func parseKind(s string) (metric.Kind, error) {
	switch metric.Kind(s) {
	case metric.Gauge, metric.Counter, metric.Histogram:
		return metric.Kind(s), nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}
