// rotation.go: Core rotation logic and file operations
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// path resolves a file name inside the log directory
func (e *Engine) path(name string) string {
	return filepath.Join(e.dir, name)
}

// performRotation closes the current file, moves it to a fresh archive name,
// opens a new current file and enforces retention.
//
// Only a failure to close or to name the archive aborts before a new file is
// opened. Rename and stat failures are warnings: the data stays in the
// current file and logging goes on.
func (e *Engine) performRotation() error {
	if err := e.closeCurrent(); err != nil {
		return fmt.Errorf("autosplit: closing current file: %w", err)
	}

	archiveName, err := e.nextArchiveName()
	if err != nil {
		return err
	}

	currentPath := e.path(e.backend.CurrentFileName())
	e.archiveCurrent(currentPath, archiveName)

	if err := e.openCurrentFile(currentPath); err != nil {
		e.reportError("file_open", err)
		return fmt.Errorf("%w [%s]: %w", ErrCurrentUnavailable, currentPath, err)
	}

	e.updateRotationState()
	return e.purge()
}

// closeCurrent releases the current file if one is open
func (e *Engine) closeCurrent() error {
	if !e.backend.IsOpen() {
		return nil
	}
	return e.backend.Close()
}

// archiveCurrent renames a non-empty current file to archiveName.
// Missing and empty current files are left alone.
func (e *Engine) archiveCurrent(currentPath, archiveName string) {
	info, err := os.Stat(currentPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.warn("stat", fmt.Errorf("unable to stat [%s]: %w", currentPath, err))
		}
		return
	}
	if info.Size() <= 0 {
		return
	}

	archivePath := e.path(archiveName)
	if err := os.Rename(currentPath, archivePath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.warn("rename", fmt.Errorf("unable to rename [%s] to [%s]: %w", currentPath, archivePath, err))
		}
		return
	}

	e.stats.archives++
	e.metrics.archived(e.backend.Name())
	e.logger.Info("rotated current file",
		slog.String("archive", archiveName),
		slog.Int64("size", info.Size()),
		slog.Uint64("sequence", uint64(e.seq)))
}

// openCurrentFile opens the fixed current file with retry
func (e *Engine) openCurrentFile(currentPath string) error {
	err := RetryFileOperation(func() error {
		return e.backend.Open(currentPath, e.fileMode)
	}, e.retryCount, e.retryDelay)
	if err != nil {
		return err
	}
	e.everOpened = true
	return nil
}

// updateRotationState records the rotation as the new scheduling baseline
func (e *Engine) updateRotationState() {
	e.lastRotation = e.clock.Now()
	e.stats.rotations++
	e.metrics.rotated(e.backend.Name())
}
