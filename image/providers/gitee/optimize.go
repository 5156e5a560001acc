package gitee

import (
	"context"
	"strings"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
	"github.com/tidwall/gjson"
)

const optimizeSystemPrompt = `You are an expert prompt engineer for text-to-image models.
Rewrite the user's prompt into a single detailed image prompt in English.
Describe subject, composition, lighting, style, colors and camera details.
Keep the user's intent. Reply with the rewritten prompt only, without quotes or commentary.`

// OptimizeRequest asks for a prompt rewrite.
type OptimizeRequest struct {
	Prompt    string `json:"prompt"`
	AuthToken string `json:"-"`
	// MaxPromptLength defaults to image.MaxOptimizePromptLength.
	MaxPromptLength int `json:"-"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// Optimize rewrites a short prompt into a detailed image prompt.
// Endpoint: POST /v1/chat/completions (OpenAI compatible)
func (p *Provider) Optimize(ctx context.Context, req *OptimizeRequest) (string, error) {
	token := strings.TrimSpace(req.AuthToken)
	if token == "" {
		return "", types.NewError(types.ErrAuthRequired, "Gitee AI API key is required").WithProvider(providerID)
	}
	limit := req.MaxPromptLength
	if limit <= 0 {
		limit = image.MaxOptimizePromptLength
	}
	if v := image.ValidatePrompt(req.Prompt, limit); !v.Valid {
		return "", v.Err(types.ErrInvalidPrompt)
	}

	body := chatRequest{
		Model: p.cfg.OptimizeModel,
		Messages: []chatMessage{
			{Role: "system", Content: optimizeSystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   1024,
		Temperature: 0.7,
	}

	respBody, err := p.postJSON(ctx, "/v1/chat/completions", token, body)
	if err != nil {
		return "", err
	}

	out := strings.TrimSpace(gjson.GetBytes(respBody, "choices.0.message.content").String())
	if out == "" {
		return "", types.NewError(types.ErrGenerationFailed, "Empty completion from Gitee AI").
			WithProvider(providerID).
			WithUpstream(providers.Truncate(string(respBody), 200))
	}
	return out, nil
}
