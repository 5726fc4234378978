// retention.go: Retention scanning and purge
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"fmt"
	"log/slog"
	"os"
)

// RetentionReport summarizes the archives of the active backend in the directory.
type RetentionReport struct {
	// Count is the number of archives recognized
	Count int `json:"count"`

	// TotalSize is the summed size of recognized archives in bytes.
	// Purge only fills it when a space limit is configured.
	TotalSize int64 `json:"total_size"`

	// Oldest is the name of the oldest archive, empty when Count is 0
	Oldest string `json:"oldest"`

	// OldestID is the ordering key of Oldest
	OldestID ArchiveID `json:"oldest_id"`
}

// scanArchives reads the directory once and reports the archives belonging to
// the active backend. Sizes are only collected when withSizes is set.
func (e *Engine) scanArchives(withSizes bool) (RetentionReport, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return RetentionReport{}, fmt.Errorf("autosplit: scanning %s: %w", e.dir, err)
	}

	ext := e.backend.Extension()
	var report RetentionReport
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		id, ok := ParseArchiveName(entry.Name(), ext)
		if !ok {
			continue
		}

		report.Count++
		if report.Oldest == "" || id.Less(report.OldestID) {
			report.Oldest = entry.Name()
			report.OldestID = id
		}

		if withSizes {
			info, err := entry.Info()
			if err != nil {
				e.warn("stat", fmt.Errorf("unable to stat [%s]: %w", entry.Name(), err))
				continue
			}
			report.TotalSize += info.Size()
		}
	}
	return report, nil
}

// overLimits reports whether report breaks a configured retention limit
func (e *Engine) overLimits(report RetentionReport) bool {
	if e.maxFiles > 0 && uint64(report.Count) > uint64(e.maxFiles) { // #nosec G115 -- Count is never negative
		return true
	}
	return e.maxSpace > 0 && report.TotalSize > e.maxSpace
}

// purge deletes the oldest archive and rescans until both limits hold or no
// candidate remains. Every pass removes one file, so the loop is bounded by
// the number of archives present.
func (e *Engine) purge() error {
	if e.maxFiles == 0 && e.maxSpace == 0 {
		return nil
	}

	for {
		report, err := e.scanArchives(e.maxSpace > 0)
		if err != nil {
			return err
		}
		if report.Oldest == "" || !e.overLimits(report) {
			return nil
		}

		if err := os.Remove(e.path(report.Oldest)); err != nil {
			// Stop here rather than retrying the same undeletable file
			e.warn("purge", fmt.Errorf("unable to purge %s: %w", report.Oldest, err))
			return nil
		}

		e.stats.purged++
		e.metrics.purged(e.backend.Name())
		e.logger.Debug("purged archive",
			slog.String("file", report.Oldest),
			slog.Int("archives", report.Count-1))
	}
}
