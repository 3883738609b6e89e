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
// Package query defines the abstract collaborator interfaces the
// orchestrator drives (§6 of the spec: Query, Variant selector,
// Connection lifecycle) plus the fan-out/merge logic that turns
// per-server query results into metric families.
package query

import "context"

// ColumnKind tags a result column's role.
type ColumnKind string

const (
	ColumnLabel     ColumnKind = "label"
	ColumnGauge     ColumnKind = "gauge"
	ColumnCounter   ColumnKind = "counter"
	ColumnHistogram ColumnKind = "histogram"
)

// Column describes one result column.
type Column struct {
	Name string
	Kind ColumnKind
}

// Tuple is one result row with positional and by-name access.
type Tuple interface {
	Get(i int) string
	GetByName(name string) (string, bool)
}

// Result is the output of executing a query: column metadata plus
// its tuples, returned as one slice.
type Result interface {
	Columns() []Column
	Tuples() []Tuple
}

// Conn is the abstract connection to one backend server. A concrete
// implementation (e.g. pkg/pgconn) wraps the real wire protocol;
// that wiring is out of scope for this package. columns describes
// the caller's expectation of each result column's role (label vs.
// gauge/counter/histogram data) — the underlying SQL engine has no
// notion of this itself, so the collector configuration supplies it.
type Conn interface {
	// Execute runs sql against the connection, namespaced (e.g. to a
	// particular database) by namespace.
	Execute(ctx context.Context, sql, namespace string, columns []Column) (Result, error)
	// Close releases the connection.
	Close() error
}

// Role is a server's replication role, used to select query variants
// and to filter metrics by ServerQueryType.
type Role string

const (
	RolePrimary Role = "primary"
	RoleReplica Role = "replica"
)

// ServerQueryType restricts a metric definition to servers of a
// given role, or to all servers.
type ServerQueryType string

const (
	QueryAny     ServerQueryType = "any"
	QueryPrimary ServerQueryType = "primary"
	QueryReplica ServerQueryType = "replica"
)

// Matches reports whether a server in the given role should run a
// metric declared with this ServerQueryType.
func (t ServerQueryType) Matches(role Role) bool {
	switch t {
	case QueryPrimary:
		return role == RolePrimary
	case QueryReplica:
		return role == RoleReplica
	default:
		return true
	}
}
