package speech

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/likeness-ai/command-center/backend/internal/model/chat"
	"github.com/likeness-ai/command-center/backend/internal/model/speech"
	"github.com/likeness-ai/command-center/backend/internal/service/assistant"
	chatservice "github.com/likeness-ai/command-center/backend/internal/service/chat"
	speechsvc "github.com/likeness-ai/command-center/backend/internal/service/speech"
	"github.com/likeness-ai/command-center/backend/pkg/utils"
)

// AudioLoader 抽象语音加载（缓存 + 合成），便于测试与替换实现
type AudioLoader interface {
	LoadAudio(ctx context.Context, messageID, text string) (*speech.AudioBuffer, bool, error)
}

// Conversation 会话与消息查询
type Conversation interface {
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	GetMessage(ctx context.Context, messageID string) (chat.Message, error)
}

// VoiceNotes 处理录音产物
type VoiceNotes interface {
	SubmitVoiceNote(ctx context.Context, sessionID string, rec *speech.Recording) (*assistant.Turn, error)
}

// Options 语音处理器参数
type Options struct {
	FrameDuration time.Duration
	RecordingMIME string
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	audio    AudioLoader
	convo    Conversation
	notes    VoiceNotes
	opts     Options
	upgrader websocket.Upgrader
}

// New 创建语音处理器，audio 为空时合成相关功能不可用
func New(audio AudioLoader, convo Conversation, notes VoiceNotes, opts Options) *Handler {
	if opts.FrameDuration <= 0 {
		opts.FrameDuration = 100 * time.Millisecond
	}
	if opts.RecordingMIME == "" {
		opts.RecordingMIME = "audio/webm"
	}
	return &Handler{
		audio: audio,
		convo: convo,
		notes: notes,
		opts:  opts,
		upgrader: websocket.Upgrader{
			// 跨域由 CORS 中间件与部署层控制
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
		},
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/synthesize/{messageID}", h.handleSynthesize)
		speechRouter.Get("/health", h.handleHealth)
		speechRouter.Get("/ws/{sessionID}", h.handleWebSocket)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"synthesis": h.audio != nil,
		"recording": h.notes != nil,
	})
}

// handleSynthesize 返回消息音频的 WAV 文件，已缓存时不会重复合成
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if h.audio == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech synthesis unavailable")
		return
	}

	messageID := chi.URLParam(r, "messageID")
	msg, err := h.convo.GetMessage(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, chatservice.ErrMessageNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	buf, cached, err := h.audio.LoadAudio(r.Context(), msg.ID, msg.Content)
	if err != nil {
		if errors.Is(err, speechsvc.ErrEmptyText) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[speech] synthesize message %s failed: %v", messageID, err)
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	wav, err := speechsvc.EncodeWAV(buf)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.Header().Set("X-Audio-Cached", strconv.FormatBool(cached))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(wav); err != nil {
		log.Printf("[speech] write wav for message %s: %v", messageID, err)
	}
}
