package stream

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/likeness-ai/command-center/backend/internal/handler/chat"
	"github.com/likeness-ai/command-center/backend/internal/service/assistant"
	"github.com/likeness-ai/command-center/backend/pkg/utils"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	assistant chat.Assistant
}

// New creates a new stream handler
func New(assistant chat.Assistant) *Handler {
	return &Handler{assistant: assistant}
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string          `json:"event"`
	Content   string          `json:"content,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Turn      *assistant.Turn `json:"turn,omitempty"`
	Finished  bool            `json:"finished,omitempty"`
	Degraded  bool            `json:"degraded,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userMessage := r.URL.Query().Get("message")

	if h.assistant == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
		return
	}
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
		log.Printf("[stream] error handling request: %v", err)
	}
}

// HandleStreamRequest processes streaming AI responses for a chat session
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return errStreamingUnsupported
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	deltas := 0
	turn, err := h.assistant.SendMessage(ctx, sessionID, assistant.Input{Text: userMessage}, func(delta string) {
		deltas++
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   delta,
		})
	})
	if err != nil {
		utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", SessionID: sessionID, Error: err.Error()})
		return err
	}

	// 流式中途失败时客户端已渲染部分文本，需要先清空再展示替代回复
	if turn.Degraded && deltas > 0 {
		utils.SendSSEChunk(w, flusher, StreamResponse{Event: "reset", SessionID: sessionID, Degraded: true})
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   turn.Reply.Content,
		Turn:      turn,
		Degraded:  turn.Degraded,
	})
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed response for session=%s, route=%s", sessionID, turn.Route)
	return nil
}
