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
// Package scrape implements the coordinator that ties the cache,
// query orchestrator, and built-in collectors together into one
// /metrics response, per spec §4.1.
package scrape

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pg-community/pgexporter/pkg/builtin"
	"github.com/pg-community/pgexporter/pkg/cache"
	"github.com/pg-community/pgexporter/pkg/httpd"
	"github.com/pg-community/pgexporter/pkg/metric"
	"github.com/pg-community/pgexporter/pkg/query"
)

const (
	// lockRetryInterval is the 10ms sleep spec §4.1/§4.8 uses while
	// waiting for the cache lock during a scrape (as opposed to the
	// 1ms interval used when resetting).
	lockRetryInterval = 10 * time.Millisecond
)

// Coordinator implements httpd.MetricsServer, running the algorithm
// spec §4.1 describes for GET /metrics.
type Coordinator struct {
	Cache           *cache.Cache
	BlockingTimeout time.Duration
	Builtin         *builtin.Collector
	Orchestrator    *query.Orchestrator
	Defs            []query.MetricDef
	IsAllowed       func(collectorName string) bool
	Logger          *zap.SugaredLogger
}

// ServeMetrics runs steps 1-8 of the scrape algorithm against conn.
func (c *Coordinator) ServeMetrics(ctx context.Context, conn io.Writer) error {
	start := time.Now()
	now := float64(start.Unix())

	if !c.Cache.Disabled() && !c.Cache.Lock(c.BlockingTimeout, lockRetryInterval) {
		return httpd.ErrBlockingTimeout
	}
	defer c.Cache.Unlock()

	if !c.Cache.Disabled() && c.Cache.Valid() {
		_, err := conn.Write(c.Cache.Body())
		return err
	}

	c.Cache.Invalidate()

	header := []byte(headerBlock(start))
	if _, err := conn.Write(header); err != nil {
		return err
	}
	headerCached := c.Cache.Append(header)

	reg := metric.NewRegistry()
	if c.Builtin != nil {
		c.Builtin.Collect(ctx, reg, now)
	}
	if c.Orchestrator != nil {
		c.Orchestrator.Run(ctx, reg, c.allowedDefs(), now)
	}

	sink := &cacheSink{cache: c.Cache, live: headerCached}
	cw := httpd.NewChunkedWriter(io.MultiWriter(conn, sink))
	if err := metric.WriteTo(cw, reg); err != nil {
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}
	if sink.live {
		c.Cache.Finalize()
	}
	return nil
}

// allowedDefs filters c.Defs by the configured collector allow-list.
// A nil IsAllowed means everything passes, matching
// config.Config.IsCollectorAllowed's own empty-list behavior.
func (c *Coordinator) allowedDefs() []query.MetricDef {
	if c.IsAllowed == nil {
		return c.Defs
	}
	out := make([]query.MetricDef, 0, len(c.Defs))
	for _, d := range c.Defs {
		if c.IsAllowed(d.CollectorName) {
			out = append(out, d)
		}
	}
	return out
}

func headerBlock(start time.Time) string {
	return fmt.Sprintf(
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain; version=0.0.1; charset=utf-8\r\nDate: %s\r\nTransfer-Encoding: chunked\r\n\r\n",
		start.UTC().Format(time.RFC1123))
}

// cacheSink mirrors every byte the chunked writer sends to the client
// into the cache, so the cached body is byte-for-byte the same framed
// stream the client received (spec §4.1 step 7, §8 scenario 4: a
// cache hit must be byte-identical to the original miss response).
// It sits behind an io.MultiWriter alongside the real connection, so
// a cache-overflow write failure must never surface as an error here
// — that would abort the MultiWriter's write to conn too. It just
// stops mirroring for the remainder of the scrape.
type cacheSink struct {
	cache *cache.Cache
	live  bool
}

func (s *cacheSink) Write(p []byte) (int, error) {
	if s.live && !s.cache.Append(p) {
		s.live = false
	}
	return len(p), nil
}
