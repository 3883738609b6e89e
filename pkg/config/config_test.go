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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCollectorAllowed(t *testing.T) {
	empty := Config{}
	require.True(t, empty.IsCollectorAllowed("anything"))

	restricted := Config{AllowedCollectors: []string{"pg_stat_activity"}}
	require.True(t, restricted.IsCollectorAllowed("pg_stat_activity"))
	require.False(t, restricted.IsCollectorAllowed("pg_stat_replication"))
}
