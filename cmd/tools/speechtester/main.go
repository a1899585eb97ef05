package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/likeness-ai/command-center/backend/internal/config"
	speechmodel "github.com/likeness-ai/command-center/backend/internal/model/speech"
	"github.com/likeness-ai/command-center/backend/internal/service/ai"
	"github.com/likeness-ai/command-center/backend/internal/service/legal"
	"github.com/likeness-ai/command-center/backend/internal/service/scanner"
	"github.com/likeness-ai/command-center/backend/internal/service/scoring"
	"github.com/likeness-ai/command-center/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	if !cfg.AI.GeminiEnabled() {
		log.Fatal("Gemini 未启用，请先在环境变量中配置 GEMINI_API_KEY 或 API_KEY")
	}

	mode := flag.String("mode", "", "测试模式: tts、score、faces、legal 或 transcribe")
	text := flag.String("text", "", "TTS 文本 / 待评分的创意")
	imagePath := flag.String("image", "", "faces 模式的图片路径")
	audioPath := flag.String("audio", "", "transcribe 模式的录音路径")
	mimeType := flag.String("mime", "", "输入文件 MIME，默认自动识别")
	violator := flag.String("violator", "", "legal 模式: 侵权方")
	asset := flag.String("asset", "", "legal 模式: 被侵权资产")
	usage := flag.String("usage", "", "legal 模式: 侵权用途")
	outputPath := flag.String("out", "", "TTS 输出 WAV 路径 (默认自动生成)")
	voice := flag.String("voice", "", "TTS 预置音色，默认使用配置中的音色")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := cfg.AI.NewGenAIClient(ctx)
	if err != nil {
		log.Fatalf("创建 Gemini 客户端失败: %v", err)
	}
	gemini := ai.NewGemini(client, ai.GeminiOptions{
		TextModel:  cfg.AI.ChatModel,
		TTSModel:   cfg.Speech.Model,
		Voice:      cfg.Speech.Voice,
		SampleRate: cfg.Speech.SampleRate,
		Channels:   cfg.Speech.Channels,
	})

	switch *mode {
	case "tts":
		runTTS(ctx, gemini, cfg, *text, *voice, *outputPath)
	case "score":
		runScore(ctx, gemini, *text)
	case "faces":
		runFaces(ctx, gemini, *imagePath, *mimeType)
	case "legal":
		runLegal(ctx, gemini, legal.Request{Violator: *violator, Asset: *asset, Usage: *usage})
	case "transcribe":
		runTranscribe(ctx, gemini, *audioPath, *mimeType)
	default:
		flag.Usage()
		log.Fatal("请通过 -mode 指定测试模式: tts、score、faces、legal 或 transcribe")
	}
}

func runTTS(ctx context.Context, gemini *ai.Gemini, cfg *config.Config, text, voice, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("TTS 模式需要通过 -text 提供待合成文本")
	}
	if voice == "" {
		voice = cfg.Speech.Voice
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.wav", time.Now().Unix())
	}

	svc := speech.NewService(gemini, nil, speech.Options{
		Voice:      voice,
		SampleRate: cfg.Speech.SampleRate,
		Channels:   cfg.Speech.Channels,
		Timeout:    time.Duration(cfg.Speech.Timeout) * time.Second,
	})

	log.Printf("开始进行 TTS 测试: voice=%s rate=%d", voice, cfg.Speech.SampleRate)

	buf, err := svc.Synthesize(ctx, &speechmodel.TTSRequest{Text: text, Voice: voice})
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	wav, err := speech.EncodeWAV(buf)
	if err != nil {
		log.Fatalf("编码 WAV 失败: %v", err)
	}
	if err := os.WriteFile(outputPath, wav, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}

	log.Printf("TTS 合成成功: 输出文件 %s, 时长=%s", outputPath, buf.Duration().Round(time.Millisecond))
}

func runScore(ctx context.Context, gemini *ai.Gemini, idea string) {
	svc := scoring.NewService(gemini)
	score, err := svc.Score(ctx, idea)
	if err != nil {
		if errors.Is(err, scoring.ErrEmptyInput) {
			log.Fatal("score 模式需要通过 -text 提供创意描述")
		}
		log.Fatalf("评分失败: %v", err)
	}
	fmt.Println(scoring.FormatScorecard(score))
}

func runFaces(ctx context.Context, gemini *ai.Gemini, imagePath, mimeType string) {
	data := readInput(imagePath, "faces 模式需要通过 -image 指定图片")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	res, err := scanner.NewService(gemini).Scan(ctx, data, mimeType)
	if errors.Is(err, scanner.ErrNoFaces) {
		fmt.Println(scanner.NoFacesMessage)
		return
	}
	if err != nil {
		log.Fatalf("人脸分析失败: %v", err)
	}

	fmt.Printf("%s (%s)\n", res.Summary.Headline, res.Summary.Detail)
	for _, face := range res.Faces {
		o := face.Overlay
		fmt.Printf("- %s  top=%.1f%% left=%.1f%% height=%.1f%% width=%.1f%%\n", face.Label, o.Top, o.Left, o.Height, o.Width)
	}
}

func runLegal(ctx context.Context, gemini *ai.Gemini, req legal.Request) {
	letter, err := legal.NewService(gemini).DraftCeaseAndDesist(ctx, req)
	if err != nil {
		log.Fatalf("生成律师函失败: %v", err)
	}
	fmt.Println(letter.Body)
}

func runTranscribe(ctx context.Context, gemini *ai.Gemini, audioPath, mimeType string) {
	data := readInput(audioPath, "transcribe 模式需要通过 -audio 指定录音文件")
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	text, err := gemini.Transcribe(ctx, data, mimeType)
	if err != nil {
		log.Fatalf("转写失败: %v", err)
	}
	fmt.Println(text)
}

func readInput(path, missing string) []byte {
	if path == "" {
		log.Fatal(missing)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("读取文件失败: %v", err)
	}
	return data
}
