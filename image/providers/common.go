// Package providers holds the HTTP plumbing shared by the upstream adapters.
package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/internal/tlsutil"
	"github.com/BaSui01/imageflow/types"
	"github.com/tidwall/gjson"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 4 << 20

// DefaultTimeout is the HTTP client timeout used when none is configured.
const DefaultTimeout = 120 * time.Second

// NewHTTPClient returns an upstream client with the given timeout
// (DefaultTimeout if 0).
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return tlsutil.UpstreamClient(timeout)
}

// TransportError maps a failed round trip into the taxonomy.
func TransportError(provider string, err error) *types.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || isTimeout(err) {
		return types.NewError(types.ErrTimeout, "Request to provider timed out").
			WithProvider(provider).
			WithCause(err)
	}
	return types.NewError(types.ErrUpstreamError, "Failed to reach provider").
		WithProvider(provider).
		WithCause(err)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// ReadBody reads at most maxBodyBytes of r.
func ReadBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}

// messagePaths are tried in order against JSON error bodies.
var messagePaths = []string{"error.message", "error", "errors.message", "message", "msg", "detail"}

// UpstreamMessage extracts a human message from an upstream error body,
// falling back to the raw text.
func UpstreamMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range messagePaths {
			r := gjson.GetBytes(body, path)
			if r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// FirstString returns the first non-empty string found at any of paths.
func FirstString(body []byte, paths ...string) string {
	for _, path := range paths {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// ContainsAny reports whether s contains any of subs (s is expected lowercase).
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Truncate shortens s to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
