// Package image provides the provider-neutral image generation contract.
package image

import (
	"context"
)

// ProviderID identifies one upstream provider. The set is closed: every value
// returned by AllProviders must have an adapter.
type ProviderID string

const (
	ProviderGitee       ProviderID = "gitee"
	ProviderHuggingFace ProviderID = "huggingface"
	ProviderModelScope  ProviderID = "modelscope"
)

// AllProviders returns every provider variant in display order.
func AllProviders() []ProviderID {
	return []ProviderID{ProviderGitee, ProviderHuggingFace, ProviderModelScope}
}

// ParseProviderID converts a raw identifier into a ProviderID.
func ParseProviderID(s string) (ProviderID, bool) {
	switch ProviderID(s) {
	case ProviderGitee, ProviderHuggingFace, ProviderModelScope:
		return ProviderID(s), true
	}
	return "", false
}

// GenerateRequest is a provider-neutral generation request.
type GenerateRequest struct {
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negativePrompt,omitempty"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Steps          int      `json:"steps,omitempty"` // 0 when absent
	Seed           *int64   `json:"seed,omitempty"`
	GuidanceScale  *float64 `json:"guidanceScale,omitempty"`

	// AuthToken is the caller's provider credential. Never serialized.
	AuthToken string `json:"-"`
}

// Result is what every adapter returns on success. Seed is always resolved.
type Result struct {
	URL  string `json:"url"`
	Seed int64  `json:"seed"`
}

// Provider is implemented by one adapter per upstream provider.
type Provider interface {
	// ID returns the provider variant served by the adapter.
	ID() ProviderID

	// Generate runs the provider's upstream protocol. Every failure is a
	// *types.Error.
	Generate(ctx context.Context, req *GenerateRequest) (*Result, error)
}

// ImageDetails is the uniform success envelope body.
type ImageDetails struct {
	URL            string   `json:"url"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	Dimensions     string   `json:"dimensions"`
	Duration       string   `json:"duration"`
	Seed           int64    `json:"seed"`
	Steps          int      `json:"steps,omitempty"`
	GuidanceScale  *float64 `json:"guidanceScale,omitempty"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negativePrompt,omitempty"`
	Timestamp      string   `json:"timestamp"`
}
