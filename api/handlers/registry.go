package handlers

import (
	"net/http"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
)

// =============================================================================
// 📋 注册表只读接口
// =============================================================================

// ProvidersResponse GET /api/providers
type ProvidersResponse struct {
	Providers []image.ProviderConfig `json:"providers"`
}

// ModelsResponse GET /api/models 与 GET /api/providers/{provider}/models
type ModelsResponse struct {
	Provider string              `json:"provider,omitempty"`
	Models   []image.ModelConfig `json:"models"`
}

// HandleProviders 返回 provider 注册表
func HandleProviders(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ProvidersResponse{Providers: image.Providers()})
}

// HandleModels 返回全部模型
func HandleModels(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ModelsResponse{Models: image.Models()})
}

// HandleProviderModels 返回单个 provider 的模型，未知 provider 返回 INVALID_PROVIDER
func HandleProviderModels(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("provider")
	id, ok := image.ParseProviderID(raw)
	if !ok {
		WriteError(w, types.NewError(types.ErrInvalidProvider, "Unknown provider: "+raw).WithField("provider"), nil)
		return
	}
	WriteJSON(w, http.StatusOK, ModelsResponse{Provider: string(id), Models: image.ModelsFor(id)})
}
