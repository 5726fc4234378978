// schedule_test.go: Rotation scheduling tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_String(t *testing.T) {
	tests := map[Schedule]string{
		ScheduleDisabled: "disabled",
		SchedulePending:  "pending",
		ScheduleDue:      "due",
		ScheduleReset:    "reset",
		Schedule(99):     "unknown",
	}
	for s, want := range tests {
		assert.Equal(t, want, s.String())
	}
}

func TestUntilNextRotation_Disabled(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	d, s := engine.UntilNextRotation()
	assert.Equal(t, ScheduleDisabled, s)
	assert.Zero(t, d)
}

func TestUntilNextRotation_ResetWithoutBaseline(t *testing.T) {
	engine, _, clock := newTestEngine(t, func(c *Config) { c.RotateAfter = time.Minute })

	_, s := engine.UntilNextRotation()
	assert.Equal(t, ScheduleReset, s)

	// The reset installed a baseline
	clock.Advance(15 * time.Second)
	d, s := engine.UntilNextRotation()
	assert.Equal(t, SchedulePending, s)
	assert.Equal(t, 45*time.Second, d)
}

func TestUntilNextRotation_PendingThenDue(t *testing.T) {
	engine, _, clock := newTestEngine(t, func(c *Config) { c.RotateAfter = time.Minute })
	require.NoError(t, engine.Rotate())

	clock.Advance(20 * time.Second)
	d, s := engine.UntilNextRotation()
	assert.Equal(t, SchedulePending, s)
	assert.Equal(t, 40*time.Second, d)

	clock.Advance(40 * time.Second)
	_, s = engine.UntilNextRotation()
	assert.Equal(t, ScheduleDue, s)
}

func TestUntilNextRotation_ClockMovedBackwards(t *testing.T) {
	engine, _, clock := newTestEngine(t, func(c *Config) { c.RotateAfter = time.Minute })
	require.NoError(t, engine.Rotate())

	clock.Advance(-time.Hour)
	_, s := engine.UntilNextRotation()
	assert.Equal(t, ScheduleReset, s)
	assert.Equal(t, clock.Now(), engine.Stats().LastRotation)

	d, s := engine.UntilNextRotation()
	assert.Equal(t, SchedulePending, s)
	assert.Equal(t, time.Minute, d)
}

func TestRotateIfNeeded_IntervalElapsed(t *testing.T) {
	engine, dir, clock := newTestEngine(t, func(c *Config) { c.RotateAfter = time.Minute })

	_, err := engine.Write([]byte("tick"))
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	require.NoError(t, engine.RotateIfNeeded())
	assert.Empty(t, archivesIn(t, dir, ""))

	clock.Advance(31 * time.Second)
	require.NoError(t, engine.RotateIfNeeded())
	assert.Equal(t, []string{"1735689661.msgpack"}, archivesIn(t, dir, ""))
}

func TestRotateIfNeeded_BackwardsClockRotatesImmediately(t *testing.T) {
	engine, dir, clock := newTestEngine(t, func(c *Config) { c.RotateAfter = time.Hour })

	_, err := engine.Write([]byte("before the jump"))
	require.NoError(t, err)

	clock.Advance(-time.Minute)
	require.NoError(t, engine.RotateIfNeeded())
	assert.Equal(t, []string{"1735689540.msgpack"}, archivesIn(t, dir, ""))

	_, s := engine.UntilNextRotation()
	assert.Equal(t, SchedulePending, s)
}

func TestRotateIfNeeded_OpensFileWhenNoneOpen(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	require.NoError(t, engine.RotateIfNeeded())
	stats := engine.Stats()
	assert.True(t, stats.IsOpen)
	assert.EqualValues(t, 1, stats.RotationCount)
}

func TestRotateIfNeeded_NothingDueOnlyPurges(t *testing.T) {
	engine, dir, _ := newTestEngine(t, func(c *Config) { c.MaxFiles = 1 })
	createFile(t, dir, "100.msgpack", 1)
	createFile(t, dir, "200.msgpack", 1)
	createFile(t, dir, "300.msgpack", 1)

	_, err := engine.Write([]byte("small"))
	require.NoError(t, err)
	createFile(t, dir, "400.msgpack", 1)

	for i := 0; i < 5; i++ {
		require.NoError(t, engine.RotateIfNeeded())
	}

	assert.Equal(t, []string{"400.msgpack"}, archivesIn(t, dir, ""))
	stats := engine.Stats()
	assert.EqualValues(t, 1, stats.RotationCount, "only the opening rotation ran")
	assert.Zero(t, stats.ArchiveCount)
	assert.Equal(t, "small", string(readFile(t, dir, ".current")))
}

func TestSetRotateAfter_AppliesToNextDecision(t *testing.T) {
	engine, dir, clock := newTestEngine(t, nil)
	_, err := engine.Write([]byte("x"))
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	require.NoError(t, engine.RotateIfNeeded())
	assert.Empty(t, archivesIn(t, dir, ""))

	engine.SetRotateAfter(5 * time.Second)
	require.NoError(t, engine.RotateIfNeeded())
	assert.Len(t, archivesIn(t, dir, ""), 1)

	engine.SetRotateAfter(-time.Second)
	_, s := engine.UntilNextRotation()
	assert.Equal(t, ScheduleDisabled, s)
}
