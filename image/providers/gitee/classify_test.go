package gitee

import (
	"fmt"
	"testing"

	"github.com/BaSui01/imageflow/types"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status  int
		message string
		want    types.ErrorCode
	}{
		{401, "", types.ErrAuthInvalid},
		{400, "Unauthorized", types.ErrAuthInvalid},
		{403, "invalid api key", types.ErrAuthInvalid},
		{400, "API key expired", types.ErrAuthExpired},
		{403, "API key expired", types.ErrAuthExpired},
		// 401 wins over the wording.
		{401, "API key expired", types.ErrAuthInvalid},
		{429, "key expired", types.ErrAuthExpired},
		{429, "Rate limit exceeded", types.ErrRateLimited},
		{429, "Quota exceeded", types.ErrQuotaExceeded},
		{400, "rate limit: quota used up", types.ErrQuotaExceeded},
		{400, "rate limit reached", types.ErrRateLimited},
		{500, "", types.ErrProviderError},
		{400, "prompt rejected", types.ErrProviderError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d %s", tt.status, tt.message), func(t *testing.T) {
			e := classify(tt.status, tt.message)
			assert.Equal(t, tt.want, e.Code)
			assert.Equal(t, "gitee", e.Details.Provider)
		})
	}
}

func TestClassify_EmptyMessageUsesStatusText(t *testing.T) {
	e := classify(500, "")
	assert.Equal(t, "Internal Server Error", e.Message)
	assert.Equal(t, "Internal Server Error", e.Details.Upstream)
}
