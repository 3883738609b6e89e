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

package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pg-community/pgexporter/pkg/builtin"
	"github.com/pg-community/pgexporter/pkg/cache"
	"github.com/pg-community/pgexporter/pkg/config"
	"github.com/pg-community/pgexporter/pkg/histogram"
	"github.com/pg-community/pgexporter/pkg/httpd"
	"github.com/pg-community/pgexporter/pkg/meta"
	"github.com/pg-community/pgexporter/pkg/metricdefs"
	"github.com/pg-community/pgexporter/pkg/pgconn"
	"github.com/pg-community/pgexporter/pkg/query"
	"github.com/pg-community/pgexporter/pkg/scrape"
)

var flagConfigPath = flag.String("config-file", "", "path to read config from (leave blank to use defaults)")

const indexHTML = `<html>
<head><title>pgexporter</title></head>
<body>
<h1>pgexporter</h1>
<p><a href="/metrics">Metrics</a></p>
</body>
</html>
`

func main() {
	flag.Parse()

	cfg, err := config.Read(*flagConfigPath)
	if err != nil {
		panic(err)
	}

	counters := &config.Counters{}
	logger, err := config.NewLogger(cfg.LogLevel, counters)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Debugw("loaded config", "cfg", cfg)

	servers := pgconn.OpenAll(sugar, cfg.Servers)
	defer pgconn.CloseAll(sugar, servers)

	defs, err := metricdefs.LoadFile(cfg.MetricDefsPath)
	if err != nil {
		logger.Fatal("failed to load metric definitions", zap.Error(err))
	}

	c, err := cache.New(cache.Options{
		MaxSize:     cfg.CacheMaxSize,
		MaxAgeSecs:  cfg.CacheMaxAge,
		MetricsPort: cfg.MetricsPort,
		HugePages:   cfg.CacheHugePages,
	})
	if err != nil {
		logger.Fatal("failed to allocate response cache", zap.Error(err))
	}
	defer c.Close()

	assembler := histogram.NewGenericAssembler(sugar)

	coordinator := &scrape.Coordinator{
		Cache:           c,
		BlockingTimeout: time.Duration(cfg.BlockingTimeout) * time.Second,
		Builtin: &builtin.Collector{
			Logger:          sugar,
			Counters:        counters,
			ExporterVersion: meta.Version,
			Servers:         servers,
			Settings:        cfg.Settings,
		},
		Orchestrator: &query.Orchestrator{Logger: sugar, Servers: servers, Histogram: assembler},
		Defs:         defs,
		IsAllowed:    cfg.IsCollectorAllowed,
		Logger:       sugar,
	}

	listener, err := net.Listen("tcp", cfg.Bind)
	if err != nil {
		logger.Fatal("failed to bind", zap.Error(err), zap.String("bind", cfg.Bind))
	}

	server := &httpd.Server{
		Listener:    listener,
		MetricsPort: cfg.MetricsPort,
		AuthTimeout: time.Duration(cfg.AuthenticationTimeout) * time.Second,
		Metrics:     coordinator,
		IndexHTML:   []byte(indexHTML),
		Logger:      sugar,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("http server starting", zap.String("bind", cfg.Bind))
	if err := server.Serve(ctx); err != nil {
		logger.Fatal("http server exited", zap.Error(err))
	}
}
