// naming.go: Archive naming and name recognition
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// archiveMarker separates the timestamp part of an archive name from the backend suffix
	archiveMarker = ".msgpack"

	// maxArchiveNameLength bounds formatted archive names
	maxArchiveNameLength = 99

	// maxSequence caps the candidate names tried in one rotation
	maxSequence = 0xFFFF

	// sequenceDigits is the zero-padded width of the sequence field
	sequenceDigits = 5
)

// ArchiveID orders archives: timestamp first, sequence as tiebreaker.
// Archives named without a sequence field have Sequence 0.
type ArchiveID struct {
	Timestamp uint64
	Sequence  uint32
}

// Less reports whether a sorts before b.
func (a ArchiveID) Less(b ArchiveID) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.Sequence < b.Sequence
}

// ArchiveName formats the archive name for a rotation happening at now.
//
// Sequence 0 yields the bare form "<epoch>.msgpack<ext>"; any other sequence
// yields "<epoch>.<seq:05d>.msgpack<ext>".
func ArchiveName(now time.Time, seq uint32, ext string) (string, error) {
	epoch := uint64(now.Unix()) // #nosec G115 -- pre-1970 clocks wrap like the unsigned on-disk format
	var name string
	if seq == 0 {
		name = strconv.FormatUint(epoch, 10) + archiveMarker + ext
	} else {
		name = fmt.Sprintf("%d.%0*d%s%s", epoch, sequenceDigits, seq, archiveMarker, ext)
	}
	if len(name) > maxArchiveNameLength {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrNameTooLong, len(name), maxArchiveNameLength)
	}
	return name, nil
}

// ParseArchiveName reports whether name is an archive produced by a backend
// with extension ext, and returns its ordering key.
//
// The marker must be followed by exactly ext, and the part before it must be
// "<digits>" or "<digits>.<5 digits>".
func ParseArchiveName(name, ext string) (ArchiveID, bool) {
	idx := strings.Index(name, archiveMarker)
	if idx < 0 || name[idx+len(archiveMarker):] != ext {
		return ArchiveID{}, false
	}

	stamp, seq, hasSeq := strings.Cut(name[:idx], ".")
	ts, ok := parseDigits(stamp, 64)
	if !ok {
		return ArchiveID{}, false
	}
	if !hasSeq {
		return ArchiveID{Timestamp: ts}, true
	}
	if len(seq) != sequenceDigits {
		return ArchiveID{}, false
	}
	n, ok := parseDigits(seq, 32)
	if !ok {
		return ArchiveID{}, false
	}
	return ArchiveID{Timestamp: ts, Sequence: uint32(n)}, true // #nosec G115 -- parsed with a 32-bit bound
}

// parseDigits accepts only non-empty runs of ASCII digits; no signs or spaces
func parseDigits(s string, bitSize int) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, bitSize)
	if err != nil {
		return 0, false
	}
	return n, true
}

// nextArchiveName resets the sequence counter and returns the first candidate
// name not already present in the directory.
func (e *Engine) nextArchiveName() (string, error) {
	e.seq = 0
	for {
		name, err := ArchiveName(e.clock.Now(), e.seq, e.backend.Extension())
		if err != nil {
			return "", err
		}
		if e.seq >= maxSequence {
			return "", fmt.Errorf("%w: %d candidates tried", ErrSequenceExhausted, e.seq)
		}
		if _, err := os.Lstat(e.path(name)); err != nil {
			return name, nil
		}
		e.seq++
	}
}
