package legal

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	legalService "github.com/likeness-ai/command-center/backend/internal/service/legal"
	"github.com/likeness-ai/command-center/backend/pkg/utils"
)

// Drafter 法律文书起草
type Drafter interface {
	DraftCeaseAndDesist(ctx context.Context, req legalService.Request) (*legalService.Letter, error)
}

type Handler struct {
	drafter Drafter
}

func New(drafter Drafter) *Handler {
	return &Handler{drafter: drafter}
}

// RegisterRoutes 注册法律文书路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/legal/cease-and-desist", h.handleCeaseAndDesist)
}

func (h *Handler) handleCeaseAndDesist(w http.ResponseWriter, r *http.Request) {
	var req legalService.Request
	if err := utils.DecodeJSON(w, r, &req, 0); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	letter, err := h.drafter.DraftCeaseAndDesist(r.Context(), req)
	if err != nil {
		if errors.Is(err, legalService.ErrMissingField) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[legal] draft failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "legal drafting unavailable")
		return
	}

	utils.RespondJSON(w, http.StatusOK, letter)
}
