// backend.go: Compression backend abstraction and the uncompressed backend
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Compression method names accepted by SetCompression and NewBackend.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
)

// currentBaseName is the fixed logical name of the live file before the backend suffix
const currentBaseName = ".current"

// Backend implements one compression policy over the single file it holds open.
//
// A Backend is chosen once per Engine and never swapped while a file is open.
// Adding a compression method means adding a Backend implementation and
// registering its constructor; callers of Engine do not change.
type Backend interface {
	// Name returns the method name, e.g. "none" or "gzip".
	Name() string

	// Extension returns the suffix appended to every file this backend produces.
	Extension() string

	// CurrentFileName returns the fixed name of the live file.
	CurrentFileName() string

	// Open opens or creates path in append mode.
	// It returns ErrAlreadyOpen if the backend already holds a file.
	Open(path string, mode os.FileMode) error

	// Close flushes and releases the open file.
	Close() error

	// Tell returns the logical write offset of the open file.
	Tell() (int64, error)

	// Write appends p and returns the number of bytes accepted.
	Write(p []byte) (int, error)

	// Flush pushes buffered bytes down to the file.
	Flush() error

	// IsOpen reports whether a file is currently held.
	IsOpen() bool
}

// backendConstructors maps method names to constructors.
// Optional backends add themselves from build-tagged files.
var backendConstructors = map[string]func() Backend{
	CompressionNone: func() Backend { return &plainBackend{} },
}

// NewBackend returns a fresh backend for the named compression method.
// Names are matched case-insensitively.
func NewBackend(name string) (Backend, error) {
	ctor, ok := backendConstructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: [%s]", ErrUnsupportedCompression, name)
	}
	return ctor(), nil
}

// Backends lists the compression methods compiled into this build, sorted.
func Backends() []string {
	names := make([]string, 0, len(backendConstructors))
	for name := range backendConstructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// plainBackend writes records to the file unmodified.
// Tell reports the real append offset: the size at open plus bytes written since.
type plainBackend struct {
	file   *os.File
	offset int64
}

func (b *plainBackend) Name() string            { return CompressionNone }
func (b *plainBackend) Extension() string       { return "" }
func (b *plainBackend) CurrentFileName() string { return currentBaseName }
func (b *plainBackend) IsOpen() bool            { return b.file != nil }

func (b *plainBackend) Open(path string, mode os.FileMode) error {
	if b.file != nil {
		return ErrAlreadyOpen
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode) // #nosec G304 -- path is built from the configured directory and a fixed name
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close() // Ignore close error during cleanup
		return err
	}
	b.file = file
	b.offset = info.Size()
	return nil
}

func (b *plainBackend) Close() error {
	if b.file == nil {
		return ErrNotOpen
	}
	err := b.file.Close()
	b.file = nil
	b.offset = 0
	return err
}

func (b *plainBackend) Tell() (int64, error) {
	if b.file == nil {
		return 0, ErrNotOpen
	}
	return b.offset, nil
}

func (b *plainBackend) Write(p []byte) (int, error) {
	if b.file == nil {
		return 0, ErrNotOpen
	}
	n, err := b.file.Write(p)
	b.offset += int64(n)
	return n, err
}

// Flush is a no-op: writes go straight to the file.
func (b *plainBackend) Flush() error {
	if b.file == nil {
		return ErrNotOpen
	}
	return nil
}
