package store

import (
	"strings"

	"github.com/ccache/crsh/internal/config"
)

const bazelHexLen = 64

// DeriveURL maps a hex-encoded key onto a full request URL according
// to cfg.Layout. It is a pure function of cfg and key: given the same
// inputs it always returns the same URL, independent of any engine
// state.
func DeriveURL(cfg *config.Config, hexKey string) string {
	base := cfg.URL
	if base == "" || base[len(base)-1] != '/' {
		base += "/"
	}

	var b strings.Builder
	b.WriteString(base)

	switch cfg.Layout {
	case config.BAZEL:
		b.WriteString("ac/")
		b.WriteString(padToBazelHexLen(hexKey))
	case config.FLAT:
		b.WriteString(hexKey)
	default: // config.SUBDIRS
		if len(hexKey) >= 2 {
			b.WriteString(hexKey[:2])
			b.WriteByte('/')
			b.WriteString(hexKey[2:])
		} else {
			b.WriteString(hexKey)
		}
	}

	return b.String()
}

// padToBazelHexLen returns a bazelHexLen-character string: the first
// bazelHexLen characters of hexKey if it's long enough, otherwise
// hexKey repeated cyclically until exactly bazelHexLen characters have
// been produced (e.g. "abcd" becomes "abcd" repeated 16 times). An
// empty key pads to nothing, since there is nothing to cycle through.
func padToBazelHexLen(hexKey string) string {
	if len(hexKey) >= bazelHexLen {
		return hexKey[:bazelHexLen]
	}
	if len(hexKey) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(bazelHexLen)
	for b.Len() < bazelHexLen {
		remaining := bazelHexLen - b.Len()
		if remaining >= len(hexKey) {
			b.WriteString(hexKey)
		} else {
			b.WriteString(hexKey[:remaining])
		}
	}
	return b.String()
}
