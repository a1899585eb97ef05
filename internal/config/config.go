package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Speech    SpeechConfig
	VoiceNote VoiceNoteConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig(ai)
	if err != nil {
		return nil, err
	}

	voiceNote, err := loadVoiceNoteConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Speech: speech, VoiceNote: voiceNote}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	Addr           string   `env:"-"`
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse server config: %w", err)
	}

	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "8080"
	}

	switch {
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
	default:
		cfg.Addr = ":" + port
	}
	cfg.Port = port

	return cfg, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string `env:"AI_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	ChatModel      string `env:"GEMINI_CHAT_MODEL" envDefault:"gemini-2.5-flash"`
	ArkAPIKey      string `env:"ARK_API_KEY"`
	ArkAccessKey   string `env:"ARK_ACCESS_KEY"`
	ArkSecretKey   string `env:"ARK_SECRET_KEY"`
	ArkModel       string `env:"ARK_MODEL"`
	ArkBaseURL     string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	ArkRegion      string `env:"ARK_REGION" envDefault:"cn-beijing"`
	StreamResponse bool   `env:"AI_STREAM" envDefault:"true"`
	HistoryLimit   int    `env:"AI_HISTORY_LIMIT" envDefault:"10"`

	Temperature *float64 `env:"-"`
	TopP        *float64 `env:"-"`
	MaxTokens   *int     `env:"-"`
}

// GeminiEnabled 表示是否提供了 Gemini 密钥。
func (c AIConfig) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

// ArkEnabled 表示是否提供了 Ark 凭证与模型。
func (c AIConfig) ArkEnabled() bool {
	return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
}

// Enabled 表示所选对话服务商的凭证是否齐全。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.ArkEnabled()
	default:
		return c.GeminiEnabled()
	}
}

// NewGenAIClient 使用配置创建 Gemini 客户端，生命周期由调用方持有。
func (c AIConfig) NewGenAIClient(ctx context.Context) (*genai.Client, error) {
	if !c.GeminiEnabled() {
		return nil, fmt.Errorf("Gemini 凭证缺失，请提供 GEMINI_API_KEY 或 API_KEY")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// NewChatModel 使用配置创建对话模型。gemini 服务商复用传入的 client。
func (c AIConfig) NewChatModel(ctx context.Context, client *genai.Client) (model.ChatModel, error) {
	if c.Provider == ProviderArk {
		return c.newArkChatModel(ctx)
	}

	if client == nil {
		return nil, fmt.Errorf("gemini chat model requires a genai client")
	}

	cfg := &gemini.Config{
		Client: client,
		Model:  c.ChatModel,
	}
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		cfg.MaxTokens = &val
	}
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		cfg.Temperature = &val
	}
	if c.TopP != nil {
		val := float32(*c.TopP)
		cfg.TopP = &val
	}

	return gemini.NewChatModel(ctx, cfg)
}

func (c AIConfig) newArkChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       c.ArkModel,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	var cfg AIConfig
	if err := env.Parse(&cfg); err != nil {
		return AIConfig{}, fmt.Errorf("parse ai config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider != ProviderGemini && cfg.Provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", cfg.Provider)
	}

	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	}

	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = 1
	}

	var err error
	if cfg.Temperature, err = parseOptionalFloatEnv("AI_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	}
	if cfg.TopP, err = parseOptionalFloatEnv("AI_TOP_P"); err != nil {
		return AIConfig{}, err
	}
	if cfg.MaxTokens, err = parseOptionalIntEnv("AI_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	}

	return cfg, nil
}

// SpeechConfig 描述语音合成与播放相关配置
type SpeechConfig struct {
	Model       string `env:"GEMINI_TTS_MODEL" envDefault:"gemini-2.5-flash-preview-tts"`
	Voice       string `env:"SPEECH_TTS_VOICE" envDefault:"Fenrir"`
	SampleRate  int    `env:"SPEECH_SAMPLE_RATE" envDefault:"24000"`
	Channels    int    `env:"SPEECH_CHANNELS" envDefault:"1"`
	Timeout     int    `env:"SPEECH_TIMEOUT" envDefault:"30"` // seconds
	FrameMillis int    `env:"SPEECH_FRAME_MS" envDefault:"100"`
	Enabled     bool   `env:"-"`
}

func loadSpeechConfig(ai AIConfig) (SpeechConfig, error) {
	var cfg SpeechConfig
	if err := env.Parse(&cfg); err != nil {
		return SpeechConfig{}, fmt.Errorf("parse speech config: %w", err)
	}

	if cfg.SampleRate <= 0 {
		return SpeechConfig{}, fmt.Errorf("invalid SPEECH_SAMPLE_RATE value %d", cfg.SampleRate)
	}
	if cfg.Channels <= 0 {
		return SpeechConfig{}, fmt.Errorf("invalid SPEECH_CHANNELS value %d", cfg.Channels)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30
	}
	if cfg.FrameMillis <= 0 {
		cfg.FrameMillis = 100
	}

	// 语音合成只支持 Gemini
	cfg.Enabled = ai.GeminiEnabled()

	return cfg, nil
}

const (
	TranscriberPlaceholder = "placeholder"
	TranscriberGemini      = "gemini"
)

// VoiceNoteConfig 描述语音备忘录（录音 → 转写 → 评分）配置
type VoiceNoteConfig struct {
	MIMEType              string `env:"VOICE_NOTE_MIME" envDefault:"audio/webm"`
	Transcriber           string `env:"VOICE_NOTE_TRANSCRIBER" envDefault:"placeholder"`
	PlaceholderTranscript string `env:"VOICE_NOTE_PLACEHOLDER" envDefault:"I have an idea for a new way to protect digital likeness using blockchain..."`
	MaxBytes              int    `env:"VOICE_NOTE_MAX_BYTES" envDefault:"10485760"`
}

func loadVoiceNoteConfig() (VoiceNoteConfig, error) {
	var cfg VoiceNoteConfig
	if err := env.Parse(&cfg); err != nil {
		return VoiceNoteConfig{}, fmt.Errorf("parse voice note config: %w", err)
	}

	cfg.Transcriber = strings.ToLower(strings.TrimSpace(cfg.Transcriber))
	if cfg.Transcriber != TranscriberPlaceholder && cfg.Transcriber != TranscriberGemini {
		return VoiceNoteConfig{}, fmt.Errorf("invalid VOICE_NOTE_TRANSCRIBER value %q", cfg.Transcriber)
	}

	return cfg, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
