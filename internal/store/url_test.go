package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccache/crsh/internal/config"
)

func TestDeriveURLSubdirs(t *testing.T) {
	cfg := &config.Config{URL: "https://example.com/cache", Layout: config.SUBDIRS}
	assert.Equal(t, "https://example.com/cache/ab/cdef", DeriveURL(cfg, "abcdef"))
}

func TestDeriveURLSubdirsShortKey(t *testing.T) {
	cfg := &config.Config{URL: "https://example.com/cache", Layout: config.SUBDIRS}
	assert.Equal(t, "https://example.com/cache/a", DeriveURL(cfg, "a"))
}

func TestDeriveURLFlat(t *testing.T) {
	cfg := &config.Config{URL: "https://example.com/cache", Layout: config.FLAT}
	assert.Equal(t, "https://example.com/cache/abcdef", DeriveURL(cfg, "abcdef"))
}

func TestDeriveURLBazelShortKey(t *testing.T) {
	cfg := &config.Config{URL: "https://example.com/cache", Layout: config.BAZEL}
	want := "https://example.com/cache/ac/" + strings.Repeat("abcd", 16)
	assert.Equal(t, want, DeriveURL(cfg, "abcd"))
	assert.Len(t, want, len("https://example.com/cache/ac/")+64)
}

func TestDeriveURLBazelLongKey(t *testing.T) {
	cfg := &config.Config{URL: "https://example.com/cache", Layout: config.BAZEL}
	longKey := strings.Repeat("f", 80)
	assert.Equal(t, "https://example.com/cache/ac/"+strings.Repeat("f", 64), DeriveURL(cfg, longKey))
}

func TestDeriveURLBazelExactKey(t *testing.T) {
	cfg := &config.Config{URL: "https://example.com/cache", Layout: config.BAZEL}
	key := strings.Repeat("9", 64)
	assert.Equal(t, "https://example.com/cache/ac/"+key, DeriveURL(cfg, key))
}

func TestDeriveURLNormalizesTrailingSlash(t *testing.T) {
	withSlash := &config.Config{URL: "https://example.com/cache/", Layout: config.FLAT}
	withoutSlash := &config.Config{URL: "https://example.com/cache", Layout: config.FLAT}
	assert.Equal(t, DeriveURL(withSlash, "ab"), DeriveURL(withoutSlash, "ab"))
}

func TestDeriveURLIsPure(t *testing.T) {
	cfg := &config.Config{URL: "https://example.com/cache", Layout: config.SUBDIRS, IdleTimeoutSeconds: 5}
	first := DeriveURL(cfg, "abcdef")
	cfg.IdleTimeoutSeconds = 999 // mutate an unrelated field
	second := DeriveURL(cfg, "abcdef")
	assert.Equal(t, first, second)
}
