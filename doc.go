// Package autosplit rotates an append-only stream of records into timestamped archives.
//
// A writer process appends opaque records to a fixed "current" file. From time
// to time it asks the engine whether a rotation is due; when it is, the current
// file is renamed to a permanent, unique archive name and a fresh current file
// is opened. Retention limits (archive count, total space) are enforced by
// deleting the oldest archives.
//
// # Quick Start
//
//	engine, err := autosplit.New("/var/spool/records")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.Write(record)
//	if err := engine.RotateIfNeeded(); err != nil {
//		log.Fatal(err) // no current file could be opened
//	}
//
// # Configuration
//
//	engine, err := autosplit.NewWithConfig(&autosplit.Config{
//		Dir:            "/var/spool/records",
//		Compression:    "gzip",
//		SoftLimitStr:   "64MB",
//		RotateAfterStr: "1h",
//		MaxFiles:       48,
//		MaxSpaceStr:    "2GB",
//		Logger:         slog.Default(),
//	})
//
// Configuration files in YAML or JSON are read with LoadConfig, and
// WatchConfig applies edits to the limits of a running engine.
//
// # On-disk Layout
//
// The current file is ".current" (".current.gz" with gzip). Archives are named
//
//	<epoch-seconds>.msgpack[.gz]
//	<epoch-seconds>.<00001-65535>.msgpack[.gz]
//
// The sequence form is used when an archive for the same second already
// exists. Other directory entries are ignored by retention.
//
// # Compression
//
// The backend is chosen once, before the first file is opened: "none" writes
// records as-is, "gzip" compresses them into the current file so archives are
// already compressed when they are renamed. Building with -tags nogzip leaves
// the gzip backend out.
//
// # Rotation Triggers
//
// RotateIfNeeded rotates when the configured interval has elapsed since the
// last rotation, or when the current file offset has reached the soft limit.
// The limit is checked only when RotateIfNeeded runs, so files may grow past
// it by the records written in between. For gzip the offset counts
// uncompressed bytes.
//
// # Failure Handling
//
// Rename, stat and delete failures are recoverable: they are logged through
// the configured slog.Logger and ErrorCallback, and the engine carries on.
// Failing to open a fresh current file returns an error wrapping
// ErrCurrentUnavailable; there is no degraded mode and the host should exit.
//
// # Thread Safety
//
// All Engine methods are serialized by an internal mutex. Only one engine, in
// one process, may manage a directory; there is no cross-process locking.
package autosplit
