package assistant

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/likeness-ai/command-center/backend/internal/analysis/intent"
	"github.com/likeness-ai/command-center/backend/internal/model/analysis"
	"github.com/likeness-ai/command-center/backend/internal/model/chat"
	"github.com/likeness-ai/command-center/backend/internal/model/speech"
	"github.com/likeness-ai/command-center/backend/internal/service/scoring"
)

const (
	// SubstituteReply 外部服务失败时写入会话的模型回复
	SubstituteReply = "I couldn't process that request right now."
	// AudioNoteContent 语音备忘录对应的用户消息
	AudioNoteContent = "🎤 Audio Note Recorded"
	// ImageOnlyContent 只上传图片时的用户消息
	ImageOnlyContent = "Analyze this image"

	defaultImageMIME = "image/jpeg"
)

var (
	ErrEmptyInput        = errors.New("message text or image is required")
	ErrInvalidImage      = errors.New("image payload is not valid base64")
	ErrEmptyRecording    = errors.New("recording is empty")
	ErrRecordingTooLarge = errors.New("recording exceeds size limit")
)

// Store 会话存储
type Store interface {
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error)
	LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// ChatModel 多轮对话
type ChatModel interface {
	GenerateReply(ctx context.Context, history []chat.Message, query string) (string, error)
	StreamingEnabled() bool
	StreamReply(ctx context.Context, history []chat.Message, query string) (*schema.StreamReader[*schema.Message], error)
}

// ImageAnalyzer 单轮图片分析
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// IdeaScorer 想法评分
type IdeaScorer interface {
	Score(ctx context.Context, idea string) (*analysis.IdeaScore, error)
}

// Transcriber 语音转写
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// PlaceholderTranscriber 返回固定文本，尚未接入真实转写时使用
type PlaceholderTranscriber struct {
	Text string
}

func (p PlaceholderTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return p.Text, nil
}

// Input 一次聊天输入。ImageBase64 可以是裸 base64 或 data URL
type Input struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	ImageMIME   string `json:"imageMimeType,omitempty"`
}

// Turn 一轮对话写入的两条消息
type Turn struct {
	User  chat.Message `json:"user"`
	Reply chat.Message `json:"reply"`
	Route intent.Kind  `json:"route"`
	// Degraded 表示回复是外部服务失败后的替代文本
	Degraded bool `json:"degraded"`
}

// Options 可选参数
type Options struct {
	MaxRecordingBytes int
}

// Service 聊天编排：意图路由、评分、图片分析与语音备忘录
type Service struct {
	store       Store
	chat        ChatModel
	images      ImageAnalyzer
	scorer      IdeaScorer
	transcriber Transcriber
	opts        Options
}

func NewService(store Store, chatModel ChatModel, images ImageAnalyzer, scorer IdeaScorer, transcriber Transcriber, opts Options) *Service {
	return &Service{
		store:       store,
		chat:        chatModel,
		images:      images,
		scorer:      scorer,
		transcriber: transcriber,
		opts:        opts,
	}
}

// SendMessage 处理一条聊天输入。onDelta 非空且走普通对话时按流式输出增量
func (s *Service) SendMessage(ctx context.Context, sessionID string, in Input, onDelta func(string)) (*Turn, error) {
	text := strings.TrimSpace(in.Text)
	image, mimeType, err := decodeImage(in.ImageBase64, in.ImageMIME)
	if err != nil {
		return nil, err
	}
	if text == "" && image == nil {
		return nil, ErrEmptyInput
	}

	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	// 历史不包含本轮输入
	history, err := s.store.LoadTranscript(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleUser,
		Content:   text,
	}
	if image != nil {
		if userMsg.Content == "" {
			userMsg.Content = ImageOnlyContent
		}
		userMsg.Attachments = []chat.Attachment{{
			Type:     chat.AttachmentImage,
			Base64:   base64.StdEncoding.EncodeToString(image),
			MIMEType: mimeType,
		}}
	}
	userMsg, err = s.store.SaveMessage(ctx, userMsg)
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	decision := intent.Classify(text, image != nil)
	reply, err := s.reply(ctx, decision, history, userMsg.Content, image, mimeType, onDelta)
	degraded := false
	if err != nil {
		log.Printf("[assistant] %s reply for session=%s failed: %v", decision.Kind, sessionID, err)
		reply, degraded = SubstituteReply, true
	}

	modelMsg, err := s.store.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleModel,
		Content:   reply,
	})
	if err != nil {
		return nil, fmt.Errorf("save model message: %w", err)
	}

	return &Turn{User: userMsg, Reply: modelMsg, Route: decision.Kind, Degraded: degraded}, nil
}

func (s *Service) reply(ctx context.Context, decision intent.Decision, history []chat.Message, query string, image []byte, mimeType string, onDelta func(string)) (string, error) {
	switch decision.Kind {
	case intent.Image:
		return s.images.AnalyzeImage(ctx, image, mimeType, query)
	case intent.Score:
		score, err := s.scorer.Score(ctx, query)
		if err != nil {
			return "", err
		}
		return scoring.FormatScorecard(score), nil
	default:
		if onDelta != nil && s.chat.StreamingEnabled() {
			return s.streamReply(ctx, history, query, onDelta)
		}
		return s.chat.GenerateReply(ctx, history, query)
	}
}

func (s *Service) streamReply(ctx context.Context, history []chat.Message, query string, onDelta func(string)) (string, error) {
	stream, err := s.chat.StreamReply(ctx, history, query)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			onDelta(chunk.Content)
		}
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("empty stream")
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// SubmitVoiceNote 写入语音备忘录消息，转写后评分并写入分析结果
func (s *Service) SubmitVoiceNote(ctx context.Context, sessionID string, rec *speech.Recording) (*Turn, error) {
	if rec == nil || len(rec.Data) == 0 {
		return nil, ErrEmptyRecording
	}
	if s.opts.MaxRecordingBytes > 0 && len(rec.Data) > s.opts.MaxRecordingBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordingTooLarge, len(rec.Data))
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	userMsg, err := s.store.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleUser,
		Content:   AudioNoteContent,
		Attachments: []chat.Attachment{{
			Type:     chat.AttachmentAudio,
			Base64:   base64.StdEncoding.EncodeToString(rec.Data),
			MIMEType: rec.MIMEType,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("save voice note: %w", err)
	}

	reply, err := s.analyzeRecording(ctx, rec)
	degraded := false
	if err != nil {
		log.Printf("[assistant] voice note analysis for session=%s failed: %v", sessionID, err)
		reply, degraded = SubstituteReply, true
	}

	modelMsg, err := s.store.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleModel,
		Content:   reply,
	})
	if err != nil {
		return nil, fmt.Errorf("save model message: %w", err)
	}

	return &Turn{User: userMsg, Reply: modelMsg, Route: intent.Score, Degraded: degraded}, nil
}

func (s *Service) analyzeRecording(ctx context.Context, rec *speech.Recording) (string, error) {
	transcript, err := s.transcriber.Transcribe(ctx, rec.Data, rec.MIMEType)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	score, err := s.scorer.Score(ctx, transcript)
	if err != nil {
		return "", err
	}
	return scoring.FormatAudioAnalysis(score), nil
}

// decodeImage 解析裸 base64 或 data URL，未提供图片时返回 nil
func decodeImage(payload, mimeType string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", nil
	}

	if strings.HasPrefix(payload, "data:") {
		header, data, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", ErrInvalidImage
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		payload = data
	}
	if mimeType == "" {
		mimeType = defaultImageMIME
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(image) == 0 {
		return nil, "", ErrInvalidImage
	}
	return image, mimeType, nil
}
