package image

// =============================================================================
// 📋 静态注册表
// =============================================================================

// ProviderConfig describes one provider. Entries are immutable.
type ProviderConfig struct {
	ID           ProviderID `json:"id"`
	Name         string     `json:"name"`
	RequiresAuth bool       `json:"requiresAuth"`
	AuthHeader   string     `json:"authHeader"`
}

// ModelFeatures lists the optional inputs a model honours.
type ModelFeatures struct {
	NegativePrompt bool `json:"negativePrompt"`
	GuidanceScale  bool `json:"guidanceScale"`
	Seed           bool `json:"seed"`
	DefaultSteps   int  `json:"defaultSteps"`
	MaxSteps       int  `json:"maxSteps"`
}

// ModelConfig describes one model. Entries are immutable.
type ModelConfig struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Provider ProviderID    `json:"provider"`
	Features ModelFeatures `json:"features"`
}

// Default request values.
const (
	DefaultProvider = ProviderGitee
	DefaultWidth    = 1024
	DefaultHeight   = 1024
	DefaultSteps    = 9
)

var providers = [...]ProviderConfig{
	{ID: ProviderGitee, Name: "Gitee AI", RequiresAuth: true, AuthHeader: "X-API-Key"},
	{ID: ProviderHuggingFace, Name: "HuggingFace", RequiresAuth: false, AuthHeader: "X-HF-Token"},
	{ID: ProviderModelScope, Name: "ModelScope", RequiresAuth: true, AuthHeader: "X-MS-Token"},
}

var models = [...]ModelConfig{
	{
		ID: "z-image-turbo", Name: "Z-Image Turbo", Provider: ProviderGitee,
		Features: ModelFeatures{Seed: true, DefaultSteps: 9, MaxSteps: 20},
	},
	{
		ID: "Qwen-Image", Name: "Qwen Image", Provider: ProviderGitee,
		Features: ModelFeatures{NegativePrompt: true, GuidanceScale: true, Seed: true, DefaultSteps: 20, MaxSteps: 50},
	},
	{
		ID: "flux-1-schnell", Name: "FLUX.1 Schnell", Provider: ProviderGitee,
		Features: ModelFeatures{Seed: true, DefaultSteps: 4, MaxSteps: 8},
	},
	{
		ID: "z-image-turbo", Name: "Z-Image Turbo", Provider: ProviderHuggingFace,
		Features: ModelFeatures{Seed: true, DefaultSteps: 9, MaxSteps: 20},
	},
	{
		ID: "qwen-image-fast", Name: "Qwen Image Fast", Provider: ProviderHuggingFace,
		Features: ModelFeatures{GuidanceScale: true, Seed: true, DefaultSteps: 8, MaxSteps: 16},
	},
	{
		ID: "ovis-image", Name: "Ovis Image", Provider: ProviderHuggingFace,
		Features: ModelFeatures{NegativePrompt: true, GuidanceScale: true, Seed: true, DefaultSteps: 30, MaxSteps: 50},
	},
	{
		ID: "flux-1-schnell", Name: "FLUX.1 Schnell", Provider: ProviderHuggingFace,
		Features: ModelFeatures{Seed: true, DefaultSteps: 4, MaxSteps: 8},
	},
	{
		ID: "Tongyi-MAI/Z-Image-Turbo", Name: "Z-Image Turbo", Provider: ProviderModelScope,
		Features: ModelFeatures{Seed: true, DefaultSteps: 9, MaxSteps: 20},
	},
	{
		ID: "Qwen/Qwen-Image", Name: "Qwen Image", Provider: ProviderModelScope,
		Features: ModelFeatures{GuidanceScale: true, Seed: true, DefaultSteps: 30, MaxSteps: 50},
	},
}

// Providers returns a copy of the provider registry.
func Providers() []ProviderConfig {
	out := make([]ProviderConfig, len(providers))
	copy(out, providers[:])
	return out
}

// LookupProvider returns the registry entry for id.
func LookupProvider(id ProviderID) (ProviderConfig, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Models returns a copy of the model registry.
func Models() []ModelConfig {
	out := make([]ModelConfig, len(models))
	copy(out, models[:])
	return out
}

// ModelsFor returns the models served by one provider.
func ModelsFor(id ProviderID) []ModelConfig {
	var out []ModelConfig
	for _, m := range models {
		if m.Provider == id {
			out = append(out, m)
		}
	}
	return out
}

// LookupModel returns the registry entry for a provider's model.
func LookupModel(id ProviderID, model string) (ModelConfig, bool) {
	for _, m := range models {
		if m.Provider == id && m.ID == model {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// DefaultModel returns the first registered model of a provider.
func DefaultModel(id ProviderID) string {
	for _, m := range models {
		if m.Provider == id {
			return m.ID
		}
	}
	return ""
}

// ProviderName returns the display name, falling back to the raw id.
func ProviderName(id string) string {
	if p, ok := LookupProvider(ProviderID(id)); ok {
		return p.Name
	}
	return id
}

// ModelName returns the display name, falling back to the raw id.
func ModelName(provider, model string) string {
	if m, ok := LookupModel(ProviderID(provider), model); ok {
		return m.Name
	}
	return model
}
