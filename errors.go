// errors.go: Sentinel errors
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import "errors"

// Configuration errors. A host should refuse to start when it sees one.
var (
	// ErrUnsupportedCompression is returned for an unknown or compiled-out method
	ErrUnsupportedCompression = errors.New("autosplit: unsupported compression method")

	// ErrCompressionLocked is returned when switching backends after a file was opened
	ErrCompressionLocked = errors.New("autosplit: compression method cannot change after a file was opened")

	// ErrDirectoryRequired is returned when no log directory was configured
	ErrDirectoryRequired = errors.New("autosplit: directory not specified")

	// ErrDirectoryMissing is returned when the log directory does not exist
	ErrDirectoryMissing = errors.New("autosplit: directory does not exist")

	// ErrInvalidConfig wraps validation failures of Config fields
	ErrInvalidConfig = errors.New("autosplit: invalid configuration")
)

// Rotation and I/O errors.
var (
	// ErrCurrentUnavailable means a fresh current file could not be opened.
	// Logging cannot continue without a destination; hosts should terminate.
	ErrCurrentUnavailable = errors.New("autosplit: unable to create current file")

	// ErrNameTooLong is returned when a formatted archive name exceeds the length bound
	ErrNameTooLong = errors.New("autosplit: archive name too long")

	// ErrSequenceExhausted is returned when no free archive name was found
	ErrSequenceExhausted = errors.New("autosplit: archive sequence exhausted")

	// ErrChunkTooLarge is returned by the gzip backend for oversized writes
	ErrChunkTooLarge = errors.New("autosplit: write exceeds maximum compression chunk")

	// ErrNotOpen is returned by backend operations that need an open file
	ErrNotOpen = errors.New("autosplit: no file open")

	// ErrAlreadyOpen is returned when opening a backend that already holds a file
	ErrAlreadyOpen = errors.New("autosplit: file already open")

	// ErrClosed is returned by every Engine operation after Close
	ErrClosed = errors.New("autosplit: engine is closed")
)
