package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/likeness-ai/command-center/backend/internal/model/dashboard"
	"github.com/likeness-ai/command-center/backend/pkg/utils"
)

// Handler 仪表盘数据的HTTP处理器
type Handler struct {
	store dashboard.Store
}

// New 创建仪表盘处理器
func New(store dashboard.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册仪表盘相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(d chi.Router) {
		d.Get("/groups", h.handleListGroups)
		d.Get("/assets", h.handleListAssets)
		d.Get("/assets/{assetID}", h.handleGetAsset)
	})
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.Groups())
}

func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.Assets())
}

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.store.FindAsset(chi.URLParam(r, "assetID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "asset not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, asset)
}
