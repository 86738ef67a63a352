// Package config loads the daemon's configuration from environment
// variables. Everything here is read exactly once at startup; the
// resulting Config is immutable and shared (read-only) by every other
// component.
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Layout selects how a hex key is mapped onto a URL path suffix.
type Layout int

const (
	// SUBDIRS splits the key into a two-character directory and the
	// remainder. It is the default.
	SUBDIRS Layout = iota
	// BAZEL pads or truncates the key to a 64-character hex string
	// prefixed with "ac/", mimicking a Bazel remote cache's action-cache
	// layout.
	BAZEL
	// FLAT appends the key verbatim.
	FLAT
)

func (l Layout) String() string {
	switch l {
	case BAZEL:
		return "bazel"
	case FLAT:
		return "flat"
	default:
		return "subdirs"
	}
}

func parseLayout(s string) Layout {
	switch s {
	case "bazel":
		return BAZEL
	case "flat":
		return FLAT
	default:
		return SUBDIRS
	}
}

// Header is a single verbatim (name, value) pair appended to every
// outgoing HTTP request, in declaration order.
type Header struct {
	Name  string
	Value string
}

// Config is the immutable, fully-resolved configuration for one run of
// the daemon.
type Config struct {
	IPCEndpoint string
	URL         string

	// IdleTimeoutSeconds is 0 when idle shutdown is disabled.
	IdleTimeoutSeconds uint

	BearerToken string
	HasBearer   bool

	Layout Layout

	Headers []Header

	// LogPath is empty when logging is disabled.
	LogPath string
}

const (
	keyIPCEndpoint = "CRSH_IPC_ENDPOINT"
	keyURL         = "CRSH_URL"
	keyIdleTimeout = "CRSH_IDLE_TIMEOUT"
	keyNumAttr     = "CRSH_NUM_ATTR"
	keyLogFile     = "CRSH_LOGFILE"
)

// Load reads and validates the daemon configuration from the process
// environment. It returns an error describing the first problem found;
// the caller is expected to log it and exit non-zero.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	endpoint := v.GetString(keyIPCEndpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%s not set", keyIPCEndpoint)
	}
	if runtime.GOOS == "windows" {
		endpoint = `\\.\pipe\` + endpoint
	}

	url := v.GetString(keyURL)
	if url == "" {
		return nil, fmt.Errorf("%s not set", keyURL)
	}

	idleTimeout, err := parseUintEnv(v, keyIdleTimeout, 0)
	if err != nil {
		return nil, fmt.Errorf("%s must be a non-negative integer: %w", keyIdleTimeout, err)
	}

	numAttr, err := parseUintEnv(v, keyNumAttr, 0)
	if err != nil {
		return nil, fmt.Errorf("%s must be a non-negative integer: %w", keyNumAttr, err)
	}

	cfg := &Config{
		IPCEndpoint:        endpoint,
		URL:                url,
		IdleTimeoutSeconds: idleTimeout,
		Layout:             SUBDIRS,
		LogPath:            v.GetString(keyLogFile),
	}

	for i := uint(0); i < numAttr; i++ {
		keyEnv := fmt.Sprintf("CRSH_ATTR_KEY_%d", i)
		valueEnv := fmt.Sprintf("CRSH_ATTR_VALUE_%d", i)

		if !v.IsSet(keyEnv) {
			return nil, fmt.Errorf("%s not set", keyEnv)
		}
		if !v.IsSet(valueEnv) {
			return nil, fmt.Errorf("%s not set", valueEnv)
		}

		applyAttr(cfg, v.GetString(keyEnv), v.GetString(valueEnv))
	}

	return cfg, nil
}

// applyAttr interprets one CRSH_ATTR_KEY_i / CRSH_ATTR_VALUE_i pair.
// Unknown keys, and a "header" value with no "=", are silently dropped:
// the front-end relies on being able to send forward-compatible
// attributes that this daemon doesn't yet understand.
func applyAttr(cfg *Config, key, value string) {
	switch key {
	case "bearer-token":
		cfg.BearerToken = value
		cfg.HasBearer = true
	case "layout":
		cfg.Layout = parseLayout(value)
	case "header":
		name, val, ok := strings.Cut(value, "=")
		if !ok {
			return
		}
		cfg.Headers = append(cfg.Headers, Header{Name: name, Value: val})
	}
}

// parseUintEnv reads an environment variable as a non-negative integer,
// returning def when the variable is unset or empty.
func parseUintEnv(v *viper.Viper, key string, def uint) (uint, error) {
	raw := v.GetString(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}
