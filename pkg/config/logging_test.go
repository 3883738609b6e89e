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

func TestCountingCoreCountsThroughDerivedLoggers(t *testing.T) {
	counters := &Counters{}
	logger, err := NewLogger(Debug, counters)
	require.NoError(t, err)

	// A *zap.SugaredLogger obtained the way every collector in this
	// repo receives one, including a .Named() child the way
	// pgconn.Open tags its per-server logger.
	sugar := logger.Sugar().Named("pgconn[s1]")
	sugar.Warnw("query failed", "server", "s1")
	sugar.Errorw("probe failed", "server", "s1")

	require.Equal(t, uint64(1), counters.Warn.Load())
	require.Equal(t, uint64(1), counters.Error.Load())
	require.Equal(t, uint64(0), counters.Info.Load())

	logger.Info("http server starting")
	require.Equal(t, uint64(1), counters.Info.Load())
}
