package pipeline

import (
	"strconv"
	"strings"

	"famfin-server/src/models"
)

// rollingHash is the 32-bit polynomial string hash (h = h*31 + c with int32
// wraparound) over the UTF-16 code units of s.
func rollingHash(s string) int32 {
	var h int32
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			h = h*31 + int32(0xD800+(r>>10))
			h = h*31 + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = h*31 + int32(r)
	}
	return h
}

// syntheticExternalID derives a stable id for transactions the provider sent
// without one. Identical descriptive fields on the same day collide.
func syntheticExternalID(provider models.Provider, parts ...string) string {
	h := int64(rollingHash(strings.Join(parts, "|")))
	if h < 0 {
		h = -h
	}
	return string(provider) + "-" + strconv.FormatInt(h, 36)
}
