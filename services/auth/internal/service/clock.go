package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Clock returns the current time. Stored timestamps are UTC with whole seconds.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func (c Clock) now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c()
}

const opaqueTokenBytes = 32

// newOpaqueToken returns 256 random bits, url-safe so the value can sit in a query string.
func newOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
