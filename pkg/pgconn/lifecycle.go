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
package pgconn

import (
	"go.uber.org/zap"

	"github.com/pg-community/pgexporter/pkg/config"
	"github.com/pg-community/pgexporter/pkg/query"
)

// OpenAll opens one connection per configured server and wraps each
// in a query.Server. A server that fails to open (Open rejects its
// DSN) is logged and left out of the returned list rather than
// aborting startup; it is not retried later. Open does not dial, so
// a server that is merely unreachable is still returned here, and the
// builtin collector's per-scrape probe reports it as "active=0"
// (spec §4.1/§4.7).
func OpenAll(logger *zap.SugaredLogger, servers []config.ServerConfig) []*query.Server {
	out := make([]*query.Server, 0, len(servers))
	for _, sc := range servers {
		conn, err := Open(logger, sc.Name, sc.DSN)
		if err != nil {
			logger.Warnw("failed to open server", "server", sc.Name, "err", err)
			continue
		}
		srv := &query.Server{
			Name:                sc.Name,
			Conn:                conn,
			DataDir:             sc.DataDir,
			WALDir:              sc.WALDir,
			InstalledExtensions: sc.InstalledExtensions,
		}
		srv.Extension.Store(sc.Extension)
		out = append(out, srv)
	}
	return out
}

// CloseAll closes every server's connection, logging but not
// propagating close errors. The connections are shared by every
// scrape for the process lifetime; the entrypoint calls CloseAll once
// at shutdown.
func CloseAll(logger *zap.SugaredLogger, servers []*query.Server) {
	for _, srv := range servers {
		if err := srv.Conn.Close(); err != nil {
			logger.Warnw("failed to close server", "server", srv.Name, "err", err)
		}
	}
}
