package huggingface

import (
	"regexp"
	"strconv"

	"github.com/BaSui01/imageflow/image"
)

// Space describes how one model is served by a Gradio space.
type Space struct {
	BaseURL  string
	Endpoint string
	// Args builds the positional argument list the endpoint expects.
	Args func(req *image.GenerateRequest, seed int64, steps int) []any
	// SeedFromString marks spaces that report the seed inside a sentence
	// instead of as a number.
	SeedFromString bool
}

func guidanceOr(req *image.GenerateRequest, def float64) float64 {
	if req.GuidanceScale != nil {
		return *req.GuidanceScale
	}
	return def
}

// spaces maps a model id to its space. Argument order is coupled to each
// space's Gradio signature.
var spaces = map[string]Space{
	"z-image-turbo": {
		BaseURL:  "https://luca115-z-image-turbo.hf.space",
		Endpoint: "generate_image",
		Args: func(req *image.GenerateRequest, seed int64, steps int) []any {
			return []any{req.Prompt, req.Height, req.Width, steps, seed, false}
		},
	},
	"qwen-image-fast": {
		BaseURL:  "https://mcp-tools-qwen-image-fast.hf.space",
		Endpoint: "generate_image",
		Args: func(req *image.GenerateRequest, seed int64, steps int) []any {
			return []any{req.Prompt, seed, false, image.FormatSize(req.Width, req.Height), guidanceOr(req, 1.0), steps}
		},
		SeedFromString: true,
	},
	"ovis-image": {
		BaseURL:  "https://aidc-ai-ovis-image-7b.hf.space",
		Endpoint: "generate",
		Args: func(req *image.GenerateRequest, seed int64, steps int) []any {
			return []any{req.Prompt, req.NegativePrompt, req.Height, req.Width, seed, steps, guidanceOr(req, 5.0)}
		},
	},
	"flux-1-schnell": {
		BaseURL:  "https://black-forest-labs-flux-1-schnell.hf.space",
		Endpoint: "infer",
		Args: func(req *image.GenerateRequest, seed int64, steps int) []any {
			return []any{req.Prompt, seed, false, req.Width, req.Height, steps}
		},
	},
}

// LookupSpace returns the space serving model.
func LookupSpace(model string) (Space, bool) {
	s, ok := spaces[model]
	return s, ok
}

var seedSentence = regexp.MustCompile(`Seed used for generation: (\d+)`)

// seedFrom reads the seed reported by a space, falling back to sent.
func seedFrom(v any, fromString bool, sent int64) int64 {
	switch s := v.(type) {
	case float64:
		return int64(s)
	case string:
		if fromString {
			if m := seedSentence.FindStringSubmatch(s); m != nil {
				if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					return n
				}
			}
		} else if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return sent
}
