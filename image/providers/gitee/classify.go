package gitee

import (
	"net/http"
	"strings"

	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
)

// classify maps a non-2xx Gitee AI response into the taxonomy. Matching on
// message text is a heuristic tied to upstream wording. Cases are checked in
// order: auth status or wording, then "expired", then rate limit / quota.
func classify(status int, message string) *types.Error {
	msg := strings.ToLower(message)

	var e *types.Error
	switch {
	case status == http.StatusUnauthorized || providers.ContainsAny(msg, "unauthorized", "invalid api key"):
		e = types.NewError(types.ErrAuthInvalid, "Gitee AI API key is invalid")
	case strings.Contains(msg, "expired"):
		e = types.NewError(types.ErrAuthExpired, "Gitee AI API key has expired")
	case status == http.StatusTooManyRequests || strings.Contains(msg, "rate limit"):
		if strings.Contains(msg, "quota") {
			e = types.NewError(types.ErrQuotaExceeded, "Gitee AI quota exceeded")
		} else {
			e = types.NewError(types.ErrRateLimited, "Gitee AI rate limit exceeded")
		}
	default:
		if message == "" {
			message = http.StatusText(status)
		}
		e = types.NewError(types.ErrProviderError, message)
	}
	return e.WithProvider(providerID).WithUpstream(providers.Truncate(message, 500))
}
