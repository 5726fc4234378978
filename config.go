// config.go: Configuration parsing utilities
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.opentelemetry.io/otel/metric"
)

// DefaultSoftLimit is the soft size limit used when none is configured (10 MiB)
const DefaultSoftLimit int64 = 10 * 1024 * 1024

// Config holds the options for creating an Engine.
//
// Dir is required. Size and interval fields come in a numeric and a string
// form; setting both for the same option is an error. In configuration files
// loaded by LoadConfig, numeric durations are seconds.
type Config struct {
	// Dir is the log directory. It must already exist.
	Dir string `koanf:"dir" json:"dir"`

	// Compression is the backend name: "none" (default) or "gzip".
	Compression string `koanf:"compression" json:"compression"`

	// SoftLimit is the current-file size in bytes that triggers rotation.
	SoftLimit    int64  `koanf:"soft_limit" json:"soft_limit"`
	SoftLimitStr string `koanf:"soft_limit_str" json:"soft_limit_str"`

	// RotateAfter is the time-based rotation interval. Zero disables it.
	RotateAfter    time.Duration `koanf:"rotate_after" json:"rotate_after"`
	RotateAfterStr string        `koanf:"rotate_after_str" json:"rotate_after_str"`

	// MaxFiles caps the number of archives. Zero means unlimited.
	MaxFiles uint `koanf:"max_files" json:"max_files"`

	// MaxSpace caps the total archive size in bytes. Zero means unlimited.
	MaxSpace    int64  `koanf:"max_space" json:"max_space"`
	MaxSpaceStr string `koanf:"max_space_str" json:"max_space_str"`

	// File operations
	FileMode   os.FileMode   `koanf:"file_mode" json:"file_mode"`
	RetryCount int           `koanf:"retry_count" json:"retry_count"`
	RetryDelay time.Duration `koanf:"retry_delay" json:"retry_delay"`

	// Logger receives operator warnings. Nil discards them.
	Logger *slog.Logger `koanf:"-" json:"-"`

	// ErrorCallback is called for every recoverable failure with the operation name.
	ErrorCallback func(operation string, err error) `koanf:"-" json:"-"`

	// Clock overrides the wall-clock source. Nil uses a cached system clock.
	Clock Clock `koanf:"-" json:"-"`

	// MeterProvider overrides the OpenTelemetry provider. Nil uses the global one.
	MeterProvider metric.MeterProvider `koanf:"-" json:"-"`
}

// limits is the validated, numeric form of the tunable Config fields
type limits struct {
	softLimit   int64
	rotateAfter time.Duration
	maxFiles    uint
	maxSpace    int64
}

// resolveLimits parses string forms and applies defaults
func (c *Config) resolveLimits() (limits, error) {
	l := limits{
		softLimit:   c.SoftLimit,
		rotateAfter: c.RotateAfter,
		maxFiles:    c.MaxFiles,
		maxSpace:    c.MaxSpace,
	}

	if c.SoftLimit != 0 && c.SoftLimitStr != "" {
		return limits{}, fmt.Errorf("%w: cannot specify both SoftLimit and SoftLimitStr", ErrInvalidConfig)
	}
	if c.RotateAfter != 0 && c.RotateAfterStr != "" {
		return limits{}, fmt.Errorf("%w: cannot specify both RotateAfter and RotateAfterStr", ErrInvalidConfig)
	}
	if c.MaxSpace != 0 && c.MaxSpaceStr != "" {
		return limits{}, fmt.Errorf("%w: cannot specify both MaxSpace and MaxSpaceStr", ErrInvalidConfig)
	}

	if c.SoftLimitStr != "" {
		size, err := ParseSize(c.SoftLimitStr)
		if err != nil {
			return limits{}, fmt.Errorf("%w: SoftLimitStr: %w", ErrInvalidConfig, err)
		}
		l.softLimit = size
	}
	if c.RotateAfterStr != "" {
		d, err := ParseDuration(c.RotateAfterStr)
		if err != nil {
			return limits{}, fmt.Errorf("%w: RotateAfterStr: %w", ErrInvalidConfig, err)
		}
		l.rotateAfter = d
	}
	if c.MaxSpaceStr != "" {
		size, err := ParseSize(c.MaxSpaceStr)
		if err != nil {
			return limits{}, fmt.Errorf("%w: MaxSpaceStr: %w", ErrInvalidConfig, err)
		}
		l.maxSpace = size
	}

	switch {
	case l.softLimit < 0:
		return limits{}, fmt.Errorf("%w: negative soft limit %d", ErrInvalidConfig, l.softLimit)
	case l.softLimit == 0:
		l.softLimit = DefaultSoftLimit
	}
	if l.maxSpace < 0 {
		return limits{}, fmt.Errorf("%w: negative max space %d", ErrInvalidConfig, l.maxSpace)
	}
	if l.rotateAfter < 0 {
		l.rotateAfter = 0
	}
	return l, nil
}

// validateDir checks that the configured directory exists
func (c *Config) validateDir() (string, error) {
	if c.Dir == "" {
		return "", ErrDirectoryRequired
	}
	if err := ValidatePathLength(c.Dir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return "", fmt.Errorf("%w: [%s]: %w", ErrDirectoryMissing, c.Dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: [%s] is not a directory", ErrDirectoryMissing, c.Dir)
	}
	return filepath.Clean(c.Dir), nil
}

// LoadConfig reads a YAML (.yaml, .yml) or JSON (.json) configuration file.
func LoadConfig(path string) (*Config, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(path))
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is the operator-supplied config file
	if err != nil {
		return nil, fmt.Errorf("autosplit: reading config: %w", err)
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
		}
	}

	cfg := &Config{}
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       durationSecondsHook,
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", cfg, conf); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationSecondsHook decodes duration fields the way the command line does:
// numbers are seconds, strings go through ParseDuration
func durationSecondsHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	v := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.String:
		if v.String() == "" {
			return time.Duration(0), nil
		}
		return ParseDuration(v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(v.Int()) * time.Second, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(v.Uint()) * time.Second, nil // #nosec G115 -- config values are small
	case reflect.Float32, reflect.Float64:
		return time.Duration(v.Float() * float64(time.Second)), nil
	default:
		return data, nil
	}
}

// ParseSize converts size strings like "100MB", "1GB" to bytes
// Supports case-insensitive input and single-letter units (K, M, G, T)
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Plain numbers are bytes
	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val, nil
	}

	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64
	var numStr string

	switch {
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = s[:len(s)-1]
	default:
		return 0, fmt.Errorf("unknown size suffix in %q (supported: B, KB/K, MB/M, GB/G, TB/T)", s)
	}

	val, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number in %q: %v", s, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("negative size %q", s)
	}

	result := val * multiplier
	if val != 0 && result/val != multiplier {
		return 0, fmt.Errorf("size %q too large", s)
	}

	return result, nil
}

// ParseDuration converts duration strings like "7d", "24h" to time.Duration
// Bare integers are seconds, the unit of the command-line interface
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs < 0 || secs > int64(time.Duration(1<<63-1)/time.Second) {
			return 0, fmt.Errorf("duration %q out of range", s)
		}
		return time.Duration(secs) * time.Second, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	s = strings.ToLower(s)

	var multiplier time.Duration
	var numStr string

	switch {
	case strings.HasSuffix(s, "d"):
		multiplier = 24 * time.Hour
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "w"):
		multiplier = 7 * 24 * time.Hour
		numStr = s[:len(s)-1]
	default:
		return 0, fmt.Errorf("unknown duration suffix in %q", s)
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration number in %q: %v", s, err)
	}

	return time.Duration(val) * multiplier, nil
}

// ValidatePathLength checks if the path length is within OS limits
func ValidatePathLength(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %v", err)
	}

	pathLen := len(absPath)

	switch runtime.GOOS {
	case "windows":
		if pathLen > 260 {
			return fmt.Errorf("path too long for Windows: %d characters (limit: 260)", pathLen)
		}
	default:
		if pathLen > 4096 {
			return fmt.Errorf("path too long: %d characters (limit: 4096)", pathLen)
		}
	}

	return nil
}

// GetDefaultFileMode returns the default mode for new current files
func GetDefaultFileMode() os.FileMode {
	return 0644
}

// RetryFileOperation executes a file operation with retry logic for cross-platform reliability
//
// Windows and network filesystems can fail transiently (antivirus scans,
// indexing, overlay filesystems). Delays are short and retries few so a real
// failure still surfaces quickly.
func RetryFileOperation(operation func() error, retryCount int, retryDelay time.Duration) error {
	if retryCount <= 0 {
		retryCount = 3
	}
	if retryDelay <= 0 {
		retryDelay = 10 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < retryCount; i++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		// No wait after the last attempt
		if i < retryCount-1 {
			time.Sleep(retryDelay)
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", retryCount, lastErr)
}
