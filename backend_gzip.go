// backend_gzip.go: Gzip compression backend
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

//go:build !nogzip

package autosplit

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"
)

// MaxGzipChunk is the largest single write the gzip backend accepts.
// It matches zlib's unsigned length bound so archives stay readable by zlib-based tools.
const MaxGzipChunk = math.MaxUint32

func init() {
	backendConstructors[CompressionGzip] = func() Backend {
		return &gzipBackend{maxChunk: MaxGzipChunk}
	}
}

// gzipBackend compresses records into the current file.
//
// Reopening an existing file appends a new gzip member; multi-member streams
// decode as one. The member is started on the first write, so a file opened
// and closed without records stays empty. Tell reports uncompressed bytes
// written through the current handle, not the compressed size on disk.
type gzipBackend struct {
	file     *os.File
	zw       *gzip.Writer
	written  int64
	maxChunk uint64
}

func (b *gzipBackend) Name() string            { return CompressionGzip }
func (b *gzipBackend) Extension() string       { return ".gz" }
func (b *gzipBackend) CurrentFileName() string { return currentBaseName + ".gz" }
func (b *gzipBackend) IsOpen() bool            { return b.file != nil }

func (b *gzipBackend) Open(path string, mode os.FileMode) error {
	if b.file != nil {
		return ErrAlreadyOpen
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode) // #nosec G304 -- path is built from the configured directory and a fixed name
	if err != nil {
		return err
	}
	b.file = file
	b.written = 0
	return nil
}

func (b *gzipBackend) Close() error {
	if b.file == nil {
		return ErrNotOpen
	}
	// The gzip trailer must reach the file before the descriptor is released
	var err error
	if b.zw != nil {
		err = b.zw.Close()
	}
	err = errors.Join(err, b.file.Close())
	b.file = nil
	b.zw = nil
	b.written = 0
	return err
}

func (b *gzipBackend) Tell() (int64, error) {
	if b.file == nil {
		return 0, ErrNotOpen
	}
	return b.written, nil
}

func (b *gzipBackend) Write(p []byte) (int, error) {
	if b.file == nil {
		return 0, ErrNotOpen
	}
	if uint64(len(p)) > b.maxChunk {
		return 0, fmt.Errorf("%w: %d bytes (limit %d)", ErrChunkTooLarge, len(p), b.maxChunk)
	}
	if b.zw == nil {
		b.zw = gzip.NewWriter(b.file)
	}
	n, err := b.zw.Write(p)
	b.written += int64(n)
	return n, err
}

func (b *gzipBackend) Flush() error {
	if b.file == nil {
		return ErrNotOpen
	}
	if b.zw == nil {
		return nil
	}
	return b.zw.Flush()
}
