package chat

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/likeness-ai/command-center/backend/internal/model/chat"
	"github.com/likeness-ai/command-center/backend/internal/service/assistant"
	chatService "github.com/likeness-ai/command-center/backend/internal/service/chat"
	"github.com/likeness-ai/command-center/backend/pkg/utils"
)

// maxMessageBody 带图片的消息请求体上限
const maxMessageBody = 12 << 20

// SessionStore 会话存储
type SessionStore interface {
	CreateSession(ctx context.Context) (chat.Session, error)
	LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// Assistant 处理一轮聊天
type Assistant interface {
	SendMessage(ctx context.Context, sessionID string, in assistant.Input, onDelta func(string)) (*assistant.Turn, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	sessions  SessionStore
	assistant Assistant
}

// New 创建聊天处理器
func New(sessions SessionStore, assistant Assistant) *Handler {
	return &Handler{
		sessions:  sessions,
		assistant: assistant,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Post("/session/{sessionID}/messages", h.handleSendMessage)
}

type sessionResponse struct {
	Session  chat.Session   `json:"session"`
	Messages []chat.Message `json:"messages"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	messages, err := h.sessions.LoadTranscript(r.Context(), session.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sessionResponse{Session: session, Messages: messages})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.sessions.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, StatusFromError(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleSendMessage 发送一条聊天输入，返回用户消息与模型回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "assistant unavailable")
		return
	}

	var in assistant.Input
	if err := utils.DecodeJSON(w, r, &in, maxMessageBody); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	turn, err := h.assistant.SendMessage(r.Context(), sessionID, in, nil)
	if err != nil {
		status := StatusFromError(err)
		if status == http.StatusInternalServerError {
			log.Printf("[chat] send message for session=%s failed: %v", sessionID, err)
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

// StatusFromError 将业务错误映射为HTTP状态码
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, chatService.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrEmptyInput),
		errors.Is(err, assistant.ErrInvalidImage),
		errors.Is(err, assistant.ErrEmptyRecording):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrRecordingTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
