package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/likeness-ai/command-center/backend/internal/config"
	"github.com/likeness-ai/command-center/backend/internal/handler"
	"github.com/likeness-ai/command-center/backend/internal/handler/speech"
	"github.com/likeness-ai/command-center/backend/internal/model/dashboard"
	"github.com/likeness-ai/command-center/backend/internal/service/ai"
	"github.com/likeness-ai/command-center/backend/internal/service/assistant"
	"github.com/likeness-ai/command-center/backend/internal/service/chat"
	"github.com/likeness-ai/command-center/backend/internal/service/legal"
	"github.com/likeness-ai/command-center/backend/internal/service/scanner"
	"github.com/likeness-ai/command-center/backend/internal/service/scoring"
	speechsvc "github.com/likeness-ai/command-center/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	chatStore := chat.NewService()
	deps := handler.Dependencies{
		Dashboard: dashboard.NewMemoryStore(dashboard.SeedGroups(), dashboard.SeedAssets()),
		Sessions:  chatStore,
		Speech: speech.Options{
			FrameDuration: time.Duration(cfg.Speech.FrameMillis) * time.Millisecond,
			RecordingMIME: cfg.VoiceNote.MIMEType,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	// Gemini 客户端：TTS、评分、人脸、法律文书均依赖它
	var client *genai.Client
	var gemini *ai.Gemini
	if cfg.AI.GeminiEnabled() {
		client, err = cfg.AI.NewGenAIClient(ctx)
		if err != nil {
			log.Printf("warning: failed to create gemini client: %v", err)
		} else {
			gemini = ai.NewGemini(client, ai.GeminiOptions{
				TextModel:  cfg.AI.ChatModel,
				TTSModel:   cfg.Speech.Model,
				Voice:      cfg.Speech.Voice,
				SampleRate: cfg.Speech.SampleRate,
				Channels:   cfg.Speech.Channels,
			})
			log.Println("Gemini client initialized successfully")
		}
	} else {
		log.Println("Gemini 凭证未配置，跳过评分、扫描、法律文书与语音功能初始化")
	}

	if gemini != nil {
		scorer := scoring.NewService(gemini)
		deps.Scorer = scorer
		deps.Scanner = scanner.NewService(gemini)
		deps.Drafter = legal.NewService(gemini)

		if cfg.Speech.Enabled {
			deps.Audio = speechsvc.NewService(gemini, chatStore, speechsvc.Options{
				Voice:      cfg.Speech.Voice,
				SampleRate: cfg.Speech.SampleRate,
				Channels:   cfg.Speech.Channels,
				Timeout:    time.Duration(cfg.Speech.Timeout) * time.Second,
			})
			log.Printf("Speech service initialized (voice=%s rate=%d)", cfg.Speech.Voice, cfg.Speech.SampleRate)
		}

		chatSvc := newChatService(ctx, cfg.AI, client)
		if chatSvc != nil {
			var transcriber assistant.Transcriber = assistant.PlaceholderTranscriber{Text: cfg.VoiceNote.PlaceholderTranscript}
			if cfg.VoiceNote.Transcriber == config.TranscriberGemini {
				transcriber = gemini
			}
			assistantSvc := assistant.NewService(chatStore, chatSvc, gemini, scorer, transcriber, assistant.Options{
				MaxRecordingBytes: cfg.VoiceNote.MaxBytes,
			})
			deps.Assistant = assistantSvc
			deps.VoiceNotes = assistantSvc
			log.Printf("Assistant initialized (provider=%s transcriber=%s)", cfg.AI.Provider, cfg.VoiceNote.Transcriber)
		}
	}

	router := handler.NewRouter(deps)

	startServer(ctx, cfg.Server, router)
}

// newChatService 按配置的服务商创建对话服务，失败时返回 nil
func newChatService(ctx context.Context, aiCfg config.AIConfig, client *genai.Client) *ai.ChatService {
	if !aiCfg.Enabled() {
		log.Printf("%s 凭证未配置，跳过对话功能初始化", aiCfg.Provider)
		return nil
	}

	chatModel, err := aiCfg.NewChatModel(ctx, client)
	if err != nil {
		log.Printf("warning: failed to initialize chat model: %v", err)
		return nil
	}

	svc, err := ai.NewChatService(ctx, chatModel, ai.ChatOptions{
		Stream:       aiCfg.StreamResponse,
		HistoryLimit: aiCfg.HistoryLimit,
	})
	if err != nil {
		log.Printf("warning: failed to initialize chat service: %v", err)
		return nil
	}
	return svc
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Likeness Ai command center listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
