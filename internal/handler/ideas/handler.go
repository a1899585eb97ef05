package ideas

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/likeness-ai/command-center/backend/internal/model/analysis"
	"github.com/likeness-ai/command-center/backend/internal/service/scoring"
	"github.com/likeness-ai/command-center/backend/pkg/utils"
)

// Scorer 想法评分与通用内容分析
type Scorer interface {
	Score(ctx context.Context, idea string) (*analysis.IdeaScore, error)
	AnalyzeContent(ctx context.Context, content string) (*analysis.ScanResult, error)
}

type Handler struct {
	scorer Scorer
}

func New(scorer Scorer) *Handler {
	return &Handler{scorer: scorer}
}

// RegisterRoutes 注册评分路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ideas/score", h.handleScore)
	r.Post("/content/analyze", h.handleAnalyze)
}

type scoreRequest struct {
	Idea string `json:"idea"`
}

type scoreResponse struct {
	Score     *analysis.IdeaScore `json:"score"`
	Scorecard string              `json:"scorecard"`
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := utils.DecodeJSON(w, r, &req, 0); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	score, err := h.scorer.Score(r.Context(), req.Idea)
	if err != nil {
		respondScoringError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, scoreResponse{Score: score, Scorecard: scoring.FormatScorecard(score)})
}

type analyzeRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := utils.DecodeJSON(w, r, &req, 0); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.scorer.AnalyzeContent(r.Context(), req.Content)
	if err != nil {
		respondScoringError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func respondScoringError(w http.ResponseWriter, err error) {
	if errors.Is(err, scoring.ErrEmptyInput) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("[ideas] scoring failed: %v", err)
	utils.RespondError(w, http.StatusBadGateway, "idea scoring unavailable")
}
