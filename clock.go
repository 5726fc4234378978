// clock.go: Wall-clock source for naming and scheduling
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Clock supplies the wall-clock time used for archive names and rotation scheduling.
type Clock interface {
	Now() time.Time
}

// cachedClock reads time from a millisecond-resolution time cache
type cachedClock struct {
	tc *timecache.TimeCache
}

func newCachedClock() *cachedClock {
	return &cachedClock{tc: timecache.NewWithResolution(time.Millisecond)}
}

func (c *cachedClock) Now() time.Time {
	return c.tc.CachedTime()
}

func (c *cachedClock) stop() {
	c.tc.Stop()
}
