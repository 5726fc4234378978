// config_test.go: Configuration parsing tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestConfig_ParseSizes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100MB", 100 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"500KB", 500 * 1024},
		{"10B", 10},
		{"1", 1}, // Plain bytes
		{"0", 0},
	}

	for _, test := range tests {
		result, err := ParseSize(test.input)
		if err != nil {
			t.Errorf("ParseSize(%s) failed: %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("ParseSize(%s) = %d, expected %d", test.input, result, test.expected)
		}
	}
}

func TestParseSizeCaseInsensitive(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		hasError bool
	}{
		// Case insensitive
		{"100kb", 100 * 1024, false},
		{"100KB", 100 * 1024, false},
		{"100Kb", 100 * 1024, false},
		{"100kB", 100 * 1024, false},

		// Single letter units
		{"100k", 100 * 1024, false},
		{"100m", 100 * 1024 * 1024, false},
		{"100G", 100 * 1024 * 1024 * 1024, false},
		{"1t", 1024 * 1024 * 1024 * 1024, false},

		// Error cases
		{"100x", 0, true},
		{"100XB", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"-5MB", 0, true},
		{"9999999999T", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseSize(tt.input)

			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for input %q, got nil", tt.input)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for input %q: %v", tt.input, err)
				}
				if result != tt.expected {
					t.Errorf("Expected %d, got %d for input %q", tt.expected, result, tt.input)
				}
			}
		})
	}
}

func TestConfig_ParseDurations(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"3600", time.Hour}, // Bare integers are seconds
		{"0", 0},
	}

	for _, test := range tests {
		result, err := ParseDuration(test.input)
		if err != nil {
			t.Errorf("ParseDuration(%s) failed: %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("ParseDuration(%s) = %v, expected %v", test.input, result, test.expected)
		}
	}

	for _, bad := range []string{"", "soon", "-5", "xd"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Errorf("ParseDuration(%q) expected error", bad)
		}
	}
}

func TestNewWithConfig_Validation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		config *Config
		want   error
	}{
		{"missing_dir", &Config{}, ErrDirectoryRequired},
		{"nonexistent_dir", &Config{Dir: filepath.Join(dir, "nope")}, ErrDirectoryMissing},
		{"not_a_directory", &Config{Dir: file}, ErrDirectoryMissing},
		{"unknown_compression", &Config{Dir: dir, Compression: "zstd"}, ErrUnsupportedCompression},
		{"soft_limit_conflict", &Config{Dir: dir, SoftLimit: 10, SoftLimitStr: "10MB"}, ErrInvalidConfig},
		{"rotate_after_conflict", &Config{Dir: dir, RotateAfter: time.Hour, RotateAfterStr: "1h"}, ErrInvalidConfig},
		{"max_space_conflict", &Config{Dir: dir, MaxSpace: 1, MaxSpaceStr: "1KB"}, ErrInvalidConfig},
		{"bad_soft_limit", &Config{Dir: dir, SoftLimitStr: "lots"}, ErrInvalidConfig},
		{"bad_rotate_after", &Config{Dir: dir, RotateAfterStr: "later"}, ErrInvalidConfig},
		{"negative_soft_limit", &Config{Dir: dir, SoftLimit: -1}, ErrInvalidConfig},
		{"negative_max_space", &Config{Dir: dir, MaxSpace: -1}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewWithConfig(tt.config)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if engine != nil {
				t.Error("expected nil engine on error")
			}
		})
	}

	if _, err := NewWithConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestNewWithConfig_StringForms(t *testing.T) {
	engine, err := NewWithConfig(&Config{
		Dir:            t.TempDir(),
		SoftLimitStr:   "1MB",
		RotateAfterStr: "1h",
		MaxSpaceStr:    "1GB",
		MaxFiles:       7,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	stats := engine.Stats()
	if stats.SoftLimit != 1024*1024 {
		t.Errorf("SoftLimit = %d", stats.SoftLimit)
	}
	if stats.RotateAfter != time.Hour {
		t.Errorf("RotateAfter = %v", stats.RotateAfter)
	}
	if stats.MaxSpace != 1024*1024*1024 {
		t.Errorf("MaxSpace = %d", stats.MaxSpace)
	}
	if stats.MaxFiles != 7 {
		t.Errorf("MaxFiles = %d", stats.MaxFiles)
	}
}

func TestNew_Defaults(t *testing.T) {
	engine, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	stats := engine.Stats()
	if stats.Compression != CompressionNone {
		t.Errorf("Compression = %q", stats.Compression)
	}
	if stats.SoftLimit != DefaultSoftLimit {
		t.Errorf("SoftLimit = %d, expected %d", stats.SoftLimit, DefaultSoftLimit)
	}
	if stats.RotateAfter != 0 || stats.MaxFiles != 0 || stats.MaxSpace != 0 {
		t.Errorf("expected rotation interval and retention disabled, got %+v", stats)
	}
	if stats.IsOpen {
		t.Error("no file should be open before the first write")
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autosplit.yaml")
	content := `dir: /var/log/records
compression: gzip
soft_limit_str: 5MB
rotate_after_str: 30m
max_files: 10
max_space_str: 1GB
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dir != "/var/log/records" || cfg.Compression != "gzip" {
		t.Errorf("unexpected dir/compression: %+v", cfg)
	}
	if cfg.SoftLimitStr != "5MB" || cfg.RotateAfterStr != "30m" || cfg.MaxSpaceStr != "1GB" {
		t.Errorf("unexpected string limits: %+v", cfg)
	}
	if cfg.MaxFiles != 10 {
		t.Errorf("MaxFiles = %d", cfg.MaxFiles)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autosplit.json")
	content := `{"dir": "/tmp/records", "soft_limit": 2048, "max_files": 3, "retry_count": 5}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dir != "/tmp/records" || cfg.SoftLimit != 2048 || cfg.MaxFiles != 3 || cfg.RetryCount != 5 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "autosplit.toml")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unsupported format, got %v", err)
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(broken); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for malformed file, got %v", err)
	}
}

func TestValidation_PathLength(t *testing.T) {
	tests := []struct {
		name      string
		pathLen   int
		shouldErr bool
	}{
		{"short_path", 50, false},
		{"medium_path", 200, false},
		{"very_long_path", 300, runtime.GOOS == "windows"},
		{"beyond_path_max", 5000, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tempDir := os.TempDir()
			remaining := test.pathLen - len(tempDir) - 10
			if remaining <= 0 {
				remaining = 10
			}
			testPath := filepath.Join(tempDir, strings.Repeat("a", remaining))

			err := ValidatePathLength(testPath)
			if test.shouldErr && err == nil {
				t.Errorf("Expected error for path length %d on %s, but got none", test.pathLen, runtime.GOOS)
			} else if !test.shouldErr && err != nil {
				t.Errorf("Unexpected error for path length %d on %s: %v", test.pathLen, runtime.GOOS, err)
			}
		})
	}
}

func TestRetry_FileOperations(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := RetryFileOperation(func() error {
		attempts++
		if attempts < maxAttempts {
			return fmt.Errorf("simulated failure %d", attempts)
		}
		return nil
	}, maxAttempts, 1*time.Millisecond)

	if err != nil {
		t.Errorf("Expected success after %d attempts, got error: %v", maxAttempts, err)
	}
	if attempts != maxAttempts {
		t.Errorf("Expected %d attempts, got %d", maxAttempts, attempts)
	}

	// Persistent failure keeps the last cause
	cause := errors.New("always fails")
	persistentAttempts := 0
	err = RetryFileOperation(func() error {
		persistentAttempts++
		return cause
	}, 2, 1*time.Millisecond)

	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
	if persistentAttempts != 2 {
		t.Errorf("Expected 2 attempts for persistent failure, got %d", persistentAttempts)
	}
}

func TestGetDefaultFileMode(t *testing.T) {
	if mode := GetDefaultFileMode(); mode != 0644 {
		t.Errorf("GetDefaultFileMode() = %o, expected 0644", mode)
	}
}

func TestLoadConfig_NumericDurationsAreSeconds(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		file        string
		content     string
		rotateAfter time.Duration
		retryDelay  time.Duration
	}{
		{"int.yaml", "rotate_after: 3600\nretry_delay: 2\n", time.Hour, 2 * time.Second},
		{"string.yaml", "rotate_after: 90m\nretry_delay: 25ms\n", 90 * time.Minute, 25 * time.Millisecond},
		{"quoted.yaml", "rotate_after: \"120\"\n", 2 * time.Minute, 0},
		{"number.json", `{"rotate_after": 90, "retry_delay": 0.5}`, 90 * time.Second, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.RotateAfter != tt.rotateAfter {
				t.Errorf("RotateAfter = %v, expected %v", cfg.RotateAfter, tt.rotateAfter)
			}
			if cfg.RetryDelay != tt.retryDelay {
				t.Errorf("RetryDelay = %v, expected %v", cfg.RetryDelay, tt.retryDelay)
			}
		})
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("rotate_after: soon\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for malformed duration, got %v", err)
	}
}

func TestLoadConfig_IntervalDoesNotRotateEarly(t *testing.T) {
	logDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "autosplit.yaml")
	if err := os.WriteFile(path, []byte("dir: "+logDir+"\nrotate_after: 3600\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	clock := newManualClock()
	cfg.Clock = clock
	engine, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	if _, err := engine.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Second)
	if err := engine.RotateIfNeeded(); err != nil {
		t.Fatal(err)
	}
	if n := len(archivesIn(t, logDir, "")); n != 0 {
		t.Errorf("archives = %d after 5s of a 1h interval, expected 0", n)
	}

	clock.Advance(time.Hour)
	if err := engine.RotateIfNeeded(); err != nil {
		t.Fatal(err)
	}
	if n := len(archivesIn(t, logDir, "")); n != 1 {
		t.Errorf("archives = %d after the interval elapsed, expected 1", n)
	}
}
