// Package ratelimit provides fixed-window request limiting behind a backend
// neutral interface.
// This package is internal and should not be imported by external projects.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// =============================================================================
// 🚦 限流接口
// =============================================================================

// Rule is a fixed-window limit: at most Limit hits per Window.
type Rule struct {
	Limit  int           `yaml:"limit" json:"limit"`
	Window time.Duration `yaml:"window" json:"window"`
}

// PerMinute returns a Rule of n hits per minute.
func PerMinute(n int) Rule {
	return Rule{Limit: n, Window: time.Minute}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns whole seconds until the window resets, at least 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(d.ResetAt.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter counts hits per key. Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
	Close() error
}

// credentialPrefixLen is the number of hex chars of the credential hash kept
// in a key.
const credentialPrefixLen = 16

// Key builds the limiter key for a request: route:cred:<hash prefix> when a
// credential is present, otherwise route:ip:<client ip>. Raw credentials
// never appear in a key.
func Key(route, credential, clientIP string) string {
	if credential != "" {
		sum := sha256.Sum256([]byte(credential))
		return route + ":cred:" + hex.EncodeToString(sum[:])[:credentialPrefixLen]
	}
	return route + ":ip:" + clientIP
}
