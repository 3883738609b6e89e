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
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// ServerConfig is one backend record, per spec §6's Config
// collaborator: name, connection info, role, and the paths/flags the
// extension collector needs.
type ServerConfig struct {
	Name                string   `mapstructure:"name"`
	DSN                 string   `mapstructure:"dsn"`
	Role                string   `mapstructure:"role" default:"primary"`
	DataDir             string   `mapstructure:"data_dir"`
	WALDir              string   `mapstructure:"wal_dir"`
	Extension           bool     `mapstructure:"extension" default:"true"`
	InstalledExtensions []string `mapstructure:"installed_extensions"`
}

// Config is the exporter's full runtime configuration.
type Config struct {
	Servers               []ServerConfig `mapstructure:"servers"`
	Bind                  string         `mapstructure:"bind"`
	MetricsPort           int            `mapstructure:"metrics_port"`
	CacheMaxAge           int            `mapstructure:"cache_max_age" default:"10"`
	CacheMaxSize          int            `mapstructure:"cache_max_size" default:"1048576"`
	CacheHugePages        bool           `mapstructure:"cache_huge_pages"`
	BlockingTimeout       int            `mapstructure:"blocking_timeout" default:"30"`
	AuthenticationTimeout int            `mapstructure:"authentication_timeout" default:"5"`
	AllowedCollectors     []string       `mapstructure:"allowed_collectors"`
	LogLevel              LogLevel       `mapstructure:"log_level" default:"info"`
	MetricDefsPath        string         `mapstructure:"metric_defs_path"`
	Settings              []string       `mapstructure:"settings"`
}

func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("Bind", c.Bind)
	enc.AddInt("MetricsPort", c.MetricsPort)
	enc.AddInt("CacheMaxAge", c.CacheMaxAge)
	enc.AddInt("CacheMaxSize", c.CacheMaxSize)
	enc.AddInt("BlockingTimeout", c.BlockingTimeout)
	enc.AddInt("AuthenticationTimeout", c.AuthenticationTimeout)
	enc.AddInt("Servers", len(c.Servers))
	enc.AddString("LogLevel", string(c.LogLevel))
	return nil
}

func init() {
	pflag.String("bind", ":9187", "host:port to serve /metrics on")
	pflag.Int("metrics_port", 9187, "metrics port; 0 disables the cache")
	pflag.Int("cache_max_age", 10, "seconds a cached /metrics body stays valid")
	pflag.Int("cache_max_size", 1048576, "bytes reserved for the cached /metrics body")
	pflag.Int("blocking_timeout", 30, "seconds to wait on cache-lock contention before failing a request")
	pflag.Int("authentication_timeout", 5, "seconds to wait for a client to finish sending its request")
	pflag.StringSlice("allowed_collectors", nil, "allow-listed custom collector names; empty means all")
	pflag.StringP("log_level", "l", "info", "level to log at")
	pflag.Bool("cache_huge_pages", false, "back the response cache with huge pages when the kernel allows it")
	pflag.String("metric_defs_path", "", "path to a custom-metric definitions file; empty uses the built-in defaults")
	pflag.StringSlice("settings", nil, "pg_settings names to export as pgexporter_<name> gauges")
}

// Read loads configuration the way the teacher's pkg/config.Read
// does: pflag + env (PGEXPORTER_ prefixed) + an optional file, bound
// through viper, defaulted via creasty/defaults for anything the
// caller left zero.
func Read(path string) (*Config, error) {
	viper.SetEnvPrefix("PGEXPORTER")
	viper.AutomaticEnv()
	_ = viper.BindPFlags(pflag.CommandLine)

	viper.SetConfigName("pgexporter")
	viper.SetConfigType("yaml")

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()
		if err := viper.ReadConfig(file); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		viper.AddConfigPath("/etc/pgexporter")
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read default config paths: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	for i := range cfg.Servers {
		if err := defaults.Set(&cfg.Servers[i]); err != nil {
			return nil, fmt.Errorf("failed to apply server defaults: %w", err)
		}
	}
	return &cfg, nil
}

// IsCollectorAllowed reports whether name passes the configured
// allow-list. An empty allow-list means every collector is allowed.
func (c Config) IsCollectorAllowed(name string) bool {
	if len(c.AllowedCollectors) == 0 {
		return true
	}
	for _, allowed := range c.AllowedCollectors {
		if allowed == name {
			return true
		}
	}
	return false
}
