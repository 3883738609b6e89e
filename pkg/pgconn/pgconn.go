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
// Package pgconn is the concrete PostgreSQL adapter behind the
// abstract query.Conn collaborator: a thin database/sql + lib/pq
// wrapper with no connection pooling or wire-protocol work beyond
// what database/sql already does (those remain out of scope per
// spec §1).
package pgconn

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pg-community/pgexporter/pkg/meta"
	"github.com/pg-community/pgexporter/pkg/query"
)

// Conn wraps one *sql.DB per configured server.
type Conn struct {
	Name   string
	DB     *sql.DB
	logger *zap.SugaredLogger
}

// Open prepares a database/sql handle for dsn. The exporter's own
// version tags this connection's logger name; dsn is passed to the
// driver unchanged, so no application_name is set unless dsn
// carries one.
func Open(logger *zap.SugaredLogger, name, dsn string) (*Conn, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgconn: open %s: %w", name, err)
	}
	db.SetMaxOpenConns(1)
	return &Conn{Name: name, DB: db, logger: logger.Named(fmt.Sprintf("pgconn[%s/%s]", name, meta.Version))}, nil
}

func (c *Conn) Close() error {
	return c.DB.Close()
}

// Execute runs sql against the server. namespace, when non-empty, is
// used as `SET search_path` before running the query — PostgreSQL has
// no notion of a per-query namespace argument, unlike SQL engines
// that accept one positionally.
func (c *Conn) Execute(ctx context.Context, sqlText, namespace string, columns []query.Column) (query.Result, error) {
	if namespace != "" {
		if _, err := c.DB.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", namespace)); err != nil {
			return nil, fmt.Errorf("pgconn: set search_path: %w", err)
		}
	}
	rows, err := c.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("pgconn: query: %w", err)
	}
	defer rows.Close()

	res := &Result{columns: columns}
	for rows.Next() {
		raw := make([]sql.NullString, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("pgconn: scan: %w", err)
		}
		values := make([]string, len(raw))
		for i, v := range raw {
			if v.Valid {
				values[i] = v.String
			}
		}
		res.tuples = append(res.tuples, stringTuple(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgconn: rows: %w", err)
	}
	return res, nil
}

// Result is a fully materialized query result — the orchestrator
// runs one query at a time per server, so there is no benefit to
// streaming rows lazily the way a long-lived cursor would.
type Result struct {
	columns []query.Column
	tuples  []query.Tuple
}

func (r *Result) Columns() []query.Column { return r.columns }
func (r *Result) Tuples() []query.Tuple   { return r.tuples }

type stringTuple []string

func (t stringTuple) Get(i int) string {
	if i < 0 || i >= len(t) {
		return ""
	}
	return t[i]
}

func (t stringTuple) GetByName(name string) (string, bool) {
	return "", false
}
