package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewReference returns a human friendly application reference such as
// "LN-20261018-3FA94C0B". The date part is taken from now in UTC.
func NewReference(prefix string, now time.Time) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return prefix + "-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b))
}
