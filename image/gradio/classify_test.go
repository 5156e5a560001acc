package gradio

import (
	"testing"

	"github.com/BaSui01/imageflow/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    types.ErrorCode
	}{
		{"429 status", 429, "", types.ErrRateLimited},
		{"rate limit text", 400, "Rate limit reached", types.ErrRateLimited},
		{"too many requests text", 0, "Too Many Requests", types.ErrRateLimited},
		{"quota", 400, "You have used your GPU quota", types.ErrQuotaExceeded},
		{"exceeded", 0, "ZeroGPU duration exceeded", types.ErrQuotaExceeded},
		{"401", 401, "", types.ErrAuthInvalid},
		{"403", 403, "nope", types.ErrAuthInvalid},
		{"unauthorized text", 400, "Unauthorized access", types.ErrAuthInvalid},
		{"forbidden text", 0, "forbidden", types.ErrAuthInvalid},
		{"timeout", 0, "worker timeout", types.ErrTimeout},
		{"timed out", 500, "request timed out", types.ErrTimeout},
		{"503", 503, "", types.ErrProviderError},
		{"loading", 0, "Model is loading", types.ErrProviderError},
		{"other", 500, "kaboom", types.ErrProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status, tt.message).Code)
		})
	}
}

func TestClassify_Messages(t *testing.T) {
	assert.Equal(t, unavailableMessage, Classify(503, "").Message)
	assert.Equal(t, unavailableMessage, Classify(0, "space is loading").Message)
	assert.Equal(t, "kaboom", Classify(500, "kaboom").Message)
	assert.Equal(t, "kaboom", Classify(500, "kaboom").Details.Upstream)
}

// Rate-limit and quota wording wins over auth wording regardless of status.
func TestProperty_ClassifyPrecedence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	statuses := gen.OneConstOf(0, 400, 401, 403, 500, 503)

	properties.Property("rate limit beats auth", prop.ForAll(
		func(status int, prefix string) bool {
			return Classify(status, prefix+" unauthorized: rate limit hit").Code == types.ErrRateLimited
		},
		statuses, gen.AlphaString(),
	))

	properties.Property("quota beats auth and timeout", prop.ForAll(
		func(status int) bool {
			if status == 429 {
				return true
			}
			return Classify(status, "forbidden, quota exceeded, timed out").Code == types.ErrQuotaExceeded
		},
		statuses,
	))

	properties.Property("auth beats timeout and unavailable", prop.ForAll(
		func(status int) bool {
			return Classify(status, "forbidden after timeout while loading").Code == types.ErrAuthInvalid
		},
		statuses,
	))

	properties.Property("every result is in the taxonomy", prop.ForAll(
		func(status int, msg string) bool {
			return Classify(status, msg).Code.Valid()
		},
		gen.IntRange(0, 599), gen.AnyString(),
	))

	properties.TestingRun(t)
}
