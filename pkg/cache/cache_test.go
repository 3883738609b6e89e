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
package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, size, maxAge int) *Cache {
	t.Helper()
	c, err := New(Options{MaxSize: size, MaxAgeSecs: maxAge, MetricsPort: 9187})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheAppendFinalizeRoundTrip(t *testing.T) {
	c := newTestCache(t, 1024, 10)
	require.True(t, c.Lock(time.Second, time.Millisecond))
	defer c.Unlock()

	require.True(t, c.Append([]byte("hello ")))
	require.True(t, c.Append([]byte("world")))
	c.Finalize()

	require.Equal(t, "hello world", string(c.Body()))
	require.True(t, c.Valid())
}

func TestCacheOverflowInvalidatesWithoutTruncating(t *testing.T) {
	c := newTestCache(t, 10, 10)
	require.True(t, c.Lock(time.Second, time.Millisecond))
	defer c.Unlock()

	require.True(t, c.Append([]byte("12345")))
	ok := c.Append([]byte("12345")) // 5+5 = 10 >= size(10) -> overflow
	require.False(t, ok)
	require.False(t, c.Valid())
	require.Empty(t, c.Body())
}

func TestCacheDisabledWhenMaxAgeZero(t *testing.T) {
	c, err := New(Options{MaxSize: 1024, MaxAgeSecs: 0, MetricsPort: 9187})
	require.NoError(t, err)
	require.True(t, c.Disabled())
	require.False(t, c.TryLock())
	require.False(t, c.Append([]byte("x")))
}

func TestCacheDisabledWhenMetricsPortZero(t *testing.T) {
	c, err := New(Options{MaxSize: 1024, MaxAgeSecs: 10, MetricsPort: 0})
	require.NoError(t, err)
	require.True(t, c.Disabled())
}

func TestCacheLockIsMutuallyExclusive(t *testing.T) {
	c := newTestCache(t, 1024, 10)
	require.True(t, c.TryLock())
	require.False(t, c.TryLock())
	c.Unlock()
	require.True(t, c.TryLock())
	c.Unlock()
}
