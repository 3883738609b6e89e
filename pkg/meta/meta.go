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
// Package meta holds build-time identity for the exporter binary.
package meta

// Version is the exporter's own semantic version. It is surfaced as
// the pgexporter_version series' label value and in the names of
// pgconn's per-server loggers.
var Version = "0.1.0-dev"
