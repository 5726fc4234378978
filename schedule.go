// schedule.go: Time- and size-based rotation decisions
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import "time"

// Schedule describes the state of time-based rotation.
type Schedule int

const (
	// ScheduleDisabled means no rotation interval is configured
	ScheduleDisabled Schedule = iota

	// SchedulePending means the interval has not elapsed yet
	SchedulePending

	// ScheduleDue means the interval has elapsed
	ScheduleDue

	// ScheduleReset means there was no usable baseline (never rotated, or
	// the clock moved backwards). The baseline was reset to now and a
	// rotation should happen immediately.
	ScheduleReset
)

func (s Schedule) String() string {
	switch s {
	case ScheduleDisabled:
		return "disabled"
	case SchedulePending:
		return "pending"
	case ScheduleDue:
		return "due"
	case ScheduleReset:
		return "reset"
	default:
		return "unknown"
	}
}

// rotateNow reports whether the schedule asks for an immediate rotation
func (s Schedule) rotateNow() bool {
	return s == ScheduleDue || s == ScheduleReset
}

// untilNextRotation returns the time left before the next time-based rotation.
// The duration is only meaningful for SchedulePending.
func (e *Engine) untilNextRotation() (time.Duration, Schedule) {
	if e.rotateAfter <= 0 {
		return 0, ScheduleDisabled
	}

	now := e.clock.Now()
	if e.lastRotation.IsZero() || now.Before(e.lastRotation) {
		e.lastRotation = now
		return 0, ScheduleReset
	}

	elapsed := now.Sub(e.lastRotation)
	if elapsed >= e.rotateAfter {
		return 0, ScheduleDue
	}
	return e.rotateAfter - elapsed, SchedulePending
}

// rotateIfNeeded rotates when the interval is due or the current file has
// reached the soft limit, and purges otherwise.
func (e *Engine) rotateIfNeeded() error {
	if _, schedule := e.untilNextRotation(); schedule.rotateNow() {
		return e.performRotation()
	}
	if !e.backend.IsOpen() {
		return e.performRotation()
	}

	offset, err := e.backend.Tell()
	if err != nil {
		return err
	}
	if offset >= e.softLimit {
		return e.performRotation()
	}

	// Retention still applies: files may have been added from outside
	return e.purge()
}
