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
// Package cache implements the shared, single-writer/many-reader
// response cache described in spec §4.8: a fixed-size buffer with a
// CAS-testable lock word and a validity window, backed by an
// OS-level shared-memory mapping (golang.org/x/sys/unix), with
// optional huge-page backing.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	free  int32 = 0
	inUse int32 = 1

	// HardMax bounds the configured size the way the source caps
	// metrics_cache_max_size against a compile-time ceiling.
	HardMax = 64 << 20 // 64 MiB
	// DefaultSize is used when the caller configures no size.
	DefaultSize = 1 << 20 // 1 MiB
	// headerSize is lock(int32) + pad(4) + validUntil(int64) + size(uint64).
	headerSize = 24
)

// Cache is the shared body cache. It is disabled (every operation a
// no-op returning failure) when constructed with maxAge == 0 or
// metricsPort == 0, per spec §4.8.
type Cache struct {
	region   []byte
	lockPtr  *int32
	untilPtr *int64
	sizePtr  *uint64
	data     []byte
	maxAge   time.Duration
	disabled bool
	length   int
}

// Options configures cache construction.
type Options struct {
	MaxSize     int
	MaxAgeSecs  int
	MetricsPort int
	HugePages   bool
}

// New allocates the cache's shared-memory region once, for the
// process group's lifetime.
func New(opts Options) (*Cache, error) {
	if opts.MaxAgeSecs == 0 || opts.MetricsPort == 0 {
		return &Cache{disabled: true}, nil
	}
	size := opts.MaxSize
	if size <= 0 {
		size = DefaultSize
	}
	if size > HardMax {
		size = HardMax
	}

	flags := unix.MAP_SHARED | unix.MAP_ANONYMOUS
	if opts.HugePages {
		flags |= unix.MAP_HUGETLB
	}
	region, err := unix.Mmap(-1, 0, headerSize+size, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil && opts.HugePages {
		// Huge pages are an optimization, not a requirement: fall back
		// to a normal anonymous mapping if the kernel has none free.
		region, err = unix.Mmap(-1, 0, headerSize+size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	}
	if err != nil {
		return nil, fmt.Errorf("cache: mmap shared region: %w", err)
	}

	c := &Cache{
		region:   region,
		lockPtr:  (*int32)(unsafe.Pointer(&region[0])),
		untilPtr: (*int64)(unsafe.Pointer(&region[8])),
		sizePtr:  (*uint64)(unsafe.Pointer(&region[16])),
		data:     region[headerSize:],
		maxAge:   time.Duration(opts.MaxAgeSecs) * time.Second,
	}
	atomic.StoreUint64(c.sizePtr, uint64(size))
	return c, nil
}

// Close unmaps the shared region. Called once at process-group exit.
func (c *Cache) Close() error {
	if c.disabled || c.region == nil {
		return nil
	}
	return unix.Munmap(c.region)
}

func (c *Cache) size() int {
	if c.disabled {
		return 0
	}
	return int(atomic.LoadUint64(c.sizePtr))
}

// TryLock attempts one CAS from FREE to IN_USE. It does not block;
// callers implement the bounded sleep/retry loop themselves (spec
// §4.1/§4.8: 1ms for reset, 10ms for scrape, bounded by
// BlockingTimeout).
func (c *Cache) TryLock() bool {
	if c.disabled {
		return false
	}
	return atomic.CompareAndSwapInt32(c.lockPtr, free, inUse)
}

// Unlock releases the lock unconditionally. Callers must hold it.
func (c *Cache) Unlock() {
	if c.disabled {
		return
	}
	atomic.StoreInt32(c.lockPtr, free)
}

// Lock blocks until TryLock succeeds or timeout elapses, sleeping
// sleepEvery between attempts. It returns false on timeout.
func (c *Cache) Lock(timeout, sleepEvery time.Duration) bool {
	if c.disabled {
		return false
	}
	deadline := time.Now().Add(timeout)
	for {
		if c.TryLock() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(sleepEvery)
	}
}

// Valid reports whether the cached body is fresh and non-empty.
// Caller must hold the lock.
func (c *Cache) Valid() bool {
	if c.disabled {
		return false
	}
	return atomic.LoadInt64(c.untilPtr) > time.Now().Unix() && c.length > 0
}

// Body returns the currently cached bytes. Caller must hold the lock
// and have checked Valid().
func (c *Cache) Body() []byte {
	if c.disabled {
		return nil
	}
	return c.data[:c.length]
}

// Invalidate zeroes the cached body and clears valid_until. Caller
// must hold the lock.
func (c *Cache) Invalidate() {
	if c.disabled {
		return
	}
	for i := 0; i < c.length; i++ {
		c.data[i] = 0
	}
	c.length = 0
	atomic.StoreInt64(c.untilPtr, 0)
}

// Append copies payload onto the end of the cached body. If the
// result would reach or exceed the declared size, it invalidates the
// cache and returns false instead of truncating the output (spec:
// "Cache body length strictly less than declared size; overflow
// triggers invalidation, not truncation of served output"). Caller
// must hold the lock.
func (c *Cache) Append(payload []byte) bool {
	if c.disabled {
		return false
	}
	if c.length+len(payload) >= c.size() {
		c.Invalidate()
		return false
	}
	copy(c.data[c.length:], payload)
	c.length += len(payload)
	return true
}

// Finalize marks the cached body valid for maxAge from now. Caller
// must hold the lock.
func (c *Cache) Finalize() {
	if c.disabled {
		return
	}
	atomic.StoreInt64(c.untilPtr, time.Now().Add(c.maxAge).Unix())
}

// Disabled reports whether the cache is a configured no-op.
func (c *Cache) Disabled() bool {
	return c.disabled
}
