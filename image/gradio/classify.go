package gradio

import (
	"net/http"
	"strings"

	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
)

const unavailableMessage = "Service is temporarily unavailable or loading"

// Classify maps a HuggingFace/Gradio failure into the taxonomy. status is 0
// when the failure came from an event stream rather than an HTTP response.
//
// Order matters: rate-limit and quota checks run before auth, auth before
// timeout, timeout before service-unavailable. Matching is a substring
// heuristic on upstream wording.
func Classify(status int, message string) *types.Error {
	msg := strings.ToLower(message)
	upstream := providers.Truncate(message, 500)

	switch {
	case status == http.StatusTooManyRequests || providers.ContainsAny(msg, "rate limit", "too many requests"):
		return types.NewError(types.ErrRateLimited, "Rate limit exceeded, please try again later").WithUpstream(upstream)
	case providers.ContainsAny(msg, "quota", "exceeded"):
		return types.NewError(types.ErrQuotaExceeded, "Usage quota exceeded").WithUpstream(upstream)
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		providers.ContainsAny(msg, "unauthorized", "forbidden"):
		return types.NewError(types.ErrAuthInvalid, "Invalid or unauthorized token").WithUpstream(upstream)
	case providers.ContainsAny(msg, "timeout", "timed out"):
		return types.NewError(types.ErrTimeout, "Upstream request timed out").WithUpstream(upstream)
	case status == http.StatusServiceUnavailable || providers.ContainsAny(msg, "unavailable", "loading"):
		return types.NewError(types.ErrProviderError, unavailableMessage).WithUpstream(upstream)
	default:
		if message == "" {
			message = http.StatusText(status)
		}
		return types.NewError(types.ErrProviderError, message).WithUpstream(upstream)
	}
}
