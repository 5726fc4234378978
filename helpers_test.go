// helpers_test.go: Shared test fixtures
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testEpoch is 2025-01-01T00:00:00Z
const testEpoch = 1735689600

// manualClock only moves when told to
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(testEpoch, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// newTestEngine builds an engine over a temporary directory with a manual clock
func newTestEngine(t testing.TB, configure func(*Config)) (*Engine, string, *manualClock) {
	t.Helper()

	dir := t.TempDir()
	clock := newManualClock()
	cfg := &Config{
		Dir:        dir,
		Clock:      clock,
		RetryCount: 1,
		RetryDelay: time.Millisecond,
	}
	if configure != nil {
		configure(cfg)
	}

	engine, err := NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine, dir, clock
}

// createFile writes size bytes to dir/name
func createFile(t testing.TB, dir, name string, size int) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = 'a'
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

// archivesIn returns the sorted archive names of the backend with extension ext
func archivesIn(t testing.TB, dir, ext string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if _, ok := ParseArchiveName(entry.Name(), ext); ok {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// readFile returns the content of dir/name
func readFile(t testing.TB, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return data
}
