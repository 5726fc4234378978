// autosplit.go: Public API - rotation engine for append-only record streams
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var _ io.WriteCloser = (*Engine)(nil)

// Engine owns the current file of one log directory, rotates it into
// timestamped archives and enforces retention limits.
//
// Every exported method takes the engine's mutex, so a host may call Write
// from one goroutine and RotateIfNeeded from a timer. Only one Engine (and one
// process) should manage a given directory.
//
// Basic usage:
//
//	engine, err := autosplit.New("/var/log/records")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.Write(record)
//	if err := engine.RotateIfNeeded(); err != nil {
//		log.Fatal(err)
//	}
type Engine struct {
	mu sync.Mutex

	dir     string
	backend Backend

	seq          uint32
	lastRotation time.Time // zero until the first rotation

	softLimit   int64
	rotateAfter time.Duration
	maxFiles    uint
	maxSpace    int64

	fileMode   os.FileMode
	retryCount int
	retryDelay time.Duration

	clock      Clock
	ownedClock *cachedClock // stopped on Close when the engine created it

	logger        *slog.Logger
	errorCallback func(operation string, err error)
	metrics       *engineMetrics

	everOpened bool
	closed     bool
	stats      counters
}

// counters are guarded by Engine.mu
type counters struct {
	writes    uint64
	bytes     uint64
	rotations uint64
	archives  uint64
	purged    uint64
	warnings  uint64
}

// New creates an Engine for dir with defaults: no compression, a 10 MiB soft
// limit, time-based rotation disabled and no retention limits.
//
// No file is opened until the first Write, Rotate or RotateIfNeeded.
func New(dir string) (*Engine, error) {
	return NewWithConfig(&Config{Dir: dir})
}

// NewWithConfig creates an Engine from a detailed configuration.
//
// Configuration errors (missing directory, unknown compression, malformed
// sizes) are returned before anything touches the directory.
func NewWithConfig(config *Config) (*Engine, error) {
	if config == nil {
		return nil, errors.New("autosplit: config cannot be nil")
	}

	dir, err := config.validateDir()
	if err != nil {
		return nil, err
	}

	l, err := config.resolveLimits()
	if err != nil {
		return nil, err
	}

	compression := config.Compression
	if compression == "" {
		compression = CompressionNone
	}
	backend, err := NewBackend(compression)
	if err != nil {
		return nil, err
	}

	metrics, err := newEngineMetrics(config.MeterProvider)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dir:           dir,
		backend:       backend,
		softLimit:     l.softLimit,
		rotateAfter:   l.rotateAfter,
		maxFiles:      l.maxFiles,
		maxSpace:      l.maxSpace,
		fileMode:      config.FileMode,
		retryCount:    config.RetryCount,
		retryDelay:    config.RetryDelay,
		clock:         config.Clock,
		logger:        config.Logger,
		errorCallback: config.ErrorCallback,
		metrics:       metrics,
	}

	// Apply safe defaults for unset values
	if e.fileMode == 0 {
		e.fileMode = GetDefaultFileMode()
	}
	if e.retryCount == 0 {
		e.retryCount = 3
	}
	if e.retryDelay == 0 {
		e.retryDelay = 10 * time.Millisecond
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.clock == nil {
		e.ownedClock = newCachedClock()
		e.clock = e.ownedClock
	}

	return e, nil
}

// SetCompression selects the compression backend by name ("none" or "gzip",
// case-insensitive).
//
// It must be called before the first file is opened. Selecting the method
// already in use is always accepted; switching afterwards returns
// ErrCompressionLocked. Unknown or compiled-out names return
// ErrUnsupportedCompression. On error the active backend is unchanged.
func (e *Engine) SetCompression(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	backend, err := NewBackend(name)
	if err != nil {
		return err
	}
	if backend.Name() == e.backend.Name() {
		return nil
	}
	if e.everOpened {
		return fmt.Errorf("%w: active %q, requested %q", ErrCompressionLocked, e.backend.Name(), backend.Name())
	}
	e.backend = backend
	return nil
}

// Compression returns the name of the active backend.
func (e *Engine) Compression() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.Name()
}

// Dir returns the managed log directory.
func (e *Engine) Dir() string {
	return e.dir
}

// Write appends p to the current file through the active backend.
//
// If no file is open yet, Write first performs a rotation, which archives a
// current file left behind by an earlier process and opens a fresh one.
// Write never retries and never rotates on its own; call RotateIfNeeded.
func (e *Engine) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, ErrClosed
	}

	if !e.backend.IsOpen() {
		if err := e.performRotation(); err != nil {
			if !e.backend.IsOpen() {
				return 0, err
			}
			e.warn("purge", err)
		}
	}

	n, err := e.backend.Write(p)
	if n > 0 {
		e.stats.bytes += uint64(n) // #nosec G115 -- n is positive
		e.metrics.wrote(e.backend.Name(), n)
	}
	e.stats.writes++
	return n, err
}

// Flush pushes bytes buffered by the backend to the current file.
// It is a no-op when no file is open.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if !e.backend.IsOpen() {
		return nil
	}
	return e.backend.Flush()
}

// Rotate closes the current file, renames it to a unique archive name when it
// is not empty, opens a fresh current file and purges old archives.
//
// An error wrapping ErrCurrentUnavailable means no current file could be
// opened; logging cannot continue and the host should terminate.
func (e *Engine) Rotate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	return e.performRotation()
}

// RotateIfNeeded rotates when the rotation interval has elapsed, when there is
// no usable baseline (first call, or the clock moved backwards), or when the
// current file has reached the soft limit. Otherwise it only purges.
func (e *Engine) RotateIfNeeded() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	return e.rotateIfNeeded()
}

// Purge deletes the oldest archives until the retention limits hold or no
// archive is left. It is a no-op when both limits are zero.
func (e *Engine) Purge() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	return e.purge()
}

// UntilNextRotation returns the time left before the next time-based rotation
// together with the schedule state. ScheduleReset also resets the baseline
// to the current time.
func (e *Engine) UntilNextRotation() (time.Duration, Schedule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.untilNextRotation()
}

// Scan reports the archives of the active backend, including their total size.
func (e *Engine) Scan() (RetentionReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanArchives(true)
}

// SetRetention replaces the archive count and space limits. Zero means unlimited.
// The new limits apply from the next purge.
func (e *Engine) SetRetention(maxFiles uint, maxSpace int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxFiles = maxFiles
	if maxSpace < 0 {
		maxSpace = 0
	}
	e.maxSpace = maxSpace
}

// SetSoftLimit replaces the size that triggers rotation. Non-positive values
// restore DefaultSoftLimit.
func (e *Engine) SetSoftLimit(limit int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limit <= 0 {
		limit = DefaultSoftLimit
	}
	e.softLimit = limit
}

// SetRotateAfter replaces the rotation interval. Zero or negative disables
// time-based rotation.
func (e *Engine) SetRotateAfter(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d < 0 {
		d = 0
	}
	e.rotateAfter = d
}

// Reconfigure applies the tunable fields of config (soft limit, rotation
// interval, retention limits) to a running engine. Directory and compression
// cannot change at runtime; differing values are reported as a warning.
func (e *Engine) Reconfigure(config *Config) error {
	if config == nil {
		return errors.New("autosplit: config cannot be nil")
	}
	l, err := config.resolveLimits()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if config.Compression != "" {
		if b, err := NewBackend(config.Compression); err != nil || b.Name() != e.backend.Name() {
			e.warn("reconfigure", fmt.Errorf("compression change to %q ignored at runtime", config.Compression))
		}
	}
	e.softLimit = l.softLimit
	e.rotateAfter = l.rotateAfter
	e.maxFiles = l.maxFiles
	e.maxSpace = l.maxSpace

	e.logger.Info("configuration applied",
		slog.Int64("soft_limit", l.softLimit),
		slog.Duration("rotate_after", l.rotateAfter),
		slog.Uint64("max_files", uint64(l.maxFiles)),
		slog.Int64("max_space", l.maxSpace))
	return nil
}

// Close closes the current file. Buffered compressed data is flushed first.
// It is safe to call Close more than once; later calls return nil.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	err := e.closeCurrent()
	if e.ownedClock != nil {
		e.ownedClock.stop()
	}
	return err
}

// Stats is a snapshot of engine counters and state.
type Stats struct {
	Compression   string    `json:"compression"`
	IsOpen        bool      `json:"is_open"`
	CurrentOffset int64     `json:"current_offset"` // backend Tell; uncompressed bytes for gzip
	LastRotation  time.Time `json:"last_rotation"`

	WriteCount    uint64 `json:"write_count"`
	BytesWritten  uint64 `json:"bytes_written"`
	RotationCount uint64 `json:"rotation_count"`
	ArchiveCount  uint64 `json:"archive_count"` // rotations that produced an archive
	PurgedCount   uint64 `json:"purged_count"`
	WarningCount  uint64 `json:"warning_count"`

	SoftLimit   int64         `json:"soft_limit"`
	RotateAfter time.Duration `json:"rotate_after"`
	MaxFiles    uint          `json:"max_files"`
	MaxSpace    int64         `json:"max_space"`
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Compression:   e.backend.Name(),
		IsOpen:        e.backend.IsOpen(),
		LastRotation:  e.lastRotation,
		WriteCount:    e.stats.writes,
		BytesWritten:  e.stats.bytes,
		RotationCount: e.stats.rotations,
		ArchiveCount:  e.stats.archives,
		PurgedCount:   e.stats.purged,
		WarningCount:  e.stats.warnings,
		SoftLimit:     e.softLimit,
		RotateAfter:   e.rotateAfter,
		MaxFiles:      e.maxFiles,
		MaxSpace:      e.maxSpace,
	}
	if s.IsOpen {
		if offset, err := e.backend.Tell(); err == nil {
			s.CurrentOffset = offset
		}
	}
	return s
}

// warn reports a recoverable failure to the operator
func (e *Engine) warn(operation string, err error) {
	e.stats.warnings++
	e.metrics.warned(operation)
	e.logger.Warn("autosplit: recoverable failure",
		slog.String("operation", operation),
		slog.String("error", err.Error()))
	e.reportError(operation, err)
}

// reportError invokes the error callback if set
func (e *Engine) reportError(operation string, err error) {
	if e.errorCallback != nil {
		e.errorCallback(operation, err)
	}
}
