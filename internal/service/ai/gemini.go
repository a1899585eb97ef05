package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/likeness-ai/command-center/backend/internal/model/analysis"
	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

var (
	// ErrNoAudio 语音合成响应中没有音频
	ErrNoAudio = errors.New("no audio data returned")
	// ErrMalformedResponse 服务商返回的内容无法按约定结构解析
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrEmptyResponse 服务商返回了空文本
	ErrEmptyResponse = errors.New("empty provider response")
)

// contentGenerator 对应 genai.Models.GenerateContent，便于测试替换
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions Gemini 各能力使用的模型与音色
type GeminiOptions struct {
	TextModel  string
	TTSModel   string
	Voice      string
	SampleRate int
	Channels   int
}

// Gemini 封装语音合成、评分、人脸分析、法律文书与转写等单轮调用
type Gemini struct {
	models contentGenerator
	opts   GeminiOptions
}

// NewGemini 基于已创建的 genai 客户端构造
func NewGemini(client *genai.Client, opts GeminiOptions) *Gemini {
	return newGemini(client.Models, opts)
}

func newGemini(models contentGenerator, opts GeminiOptions) *Gemini {
	if opts.TextModel == "" {
		opts.TextModel = "gemini-2.5-flash"
	}
	if opts.TTSModel == "" {
		opts.TTSModel = "gemini-2.5-flash-preview-tts"
	}
	if opts.Voice == "" {
		opts.Voice = "Fenrir"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = speech.DefaultSampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = speech.DefaultChannels
	}
	return &Gemini{models: models, opts: opts}
}

// SynthesizeSpeech 文本转语音，返回 24kHz 单声道 16bit PCM
func (g *Gemini) SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("tts text is empty")
	}
	voice := req.Voice
	if voice == "" {
		voice = g.opts.Voice
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.opts.TTSModel, genai.Text(req.Text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: %w", err)
	}

	blob := firstInlineData(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, ErrNoAudio
	}

	return &speech.TTSResponse{
		SessionID:  req.SessionID,
		AudioData:  blob.Data,
		MIMEType:   blob.MIMEType,
		SampleRate: g.opts.SampleRate,
		Channels:   g.opts.Channels,
		RequestID:  uuid.NewString(),
		CreatedAt:  time.Now(),
	}, nil
}

// ScoreIdea 评估想法的专利潜力与版权强度
func (g *Gemini) ScoreIdea(ctx context.Context, idea string) (*analysis.IdeaScore, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"patentScore":    {Type: genai.TypeNumber},
				"copyrightScore": {Type: genai.TypeNumber},
				"details":        {Type: genai.TypeString},
			},
			Required: []string{"patentScore", "copyrightScore", "details"},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.opts.TextModel, genai.Text(buildScorePrompt(idea)), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini score idea: %w", err)
	}

	var payload scorePayload
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	return payload.toScore()
}

// AnalyzeFaces 检测图片中的人脸并判断真伪
func (g *Gemini) AnalyzeFaces(ctx context.Context, image []byte, mimeType string) (*analysis.FaceAnalysis, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(faceAnalysisPrompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	resp, err := g.models.GenerateContent(ctx, g.opts.TextModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini analyze faces: %w", err)
	}

	var payload facesPayload
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	return payload.toAnalysis()
}

// AnalyzeImage 单轮图片分析，不携带历史
func (g *Gemini) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultImagePrompt
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ImageSystemInstruction, genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.opts.TextModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini analyze image: %w", err)
	}
	return requireText(resp)
}

// DraftCeaseAndDesist 起草停止侵权函
func (g *Gemini) DraftCeaseAndDesist(ctx context.Context, violator, asset, usage string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.opts.TextModel, genai.Text(buildLegalPrompt(violator, asset, usage)), nil)
	if err != nil {
		return "", fmt.Errorf("gemini draft letter: %w", err)
	}
	return requireText(resp)
}

// Transcribe 将录音转写为文本
func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, mimeType),
			genai.NewPartFromText(transcribePrompt),
		}, genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.opts.TextModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	text, err := requireText(resp)
	if err != nil {
		return "", err
	}
	log.Printf("[ai] transcribed %d bytes of %s into %d chars", len(audio), mimeType, len(text))
	return text, nil
}

// scorePayload 指针字段用于区分缺失与零值
type scorePayload struct {
	PatentScore    *float64 `json:"patentScore"`
	CopyrightScore *float64 `json:"copyrightScore"`
	Details        *string  `json:"details"`
}

func (p scorePayload) toScore() (*analysis.IdeaScore, error) {
	switch {
	case p.PatentScore == nil:
		return nil, fmt.Errorf("%w: missing patentScore", ErrMalformedResponse)
	case p.CopyrightScore == nil:
		return nil, fmt.Errorf("%w: missing copyrightScore", ErrMalformedResponse)
	case p.Details == nil:
		return nil, fmt.Errorf("%w: missing details", ErrMalformedResponse)
	}
	if err := checkPercent("patentScore", *p.PatentScore); err != nil {
		return nil, err
	}
	if err := checkPercent("copyrightScore", *p.CopyrightScore); err != nil {
		return nil, err
	}
	return &analysis.IdeaScore{
		PatentScore:    *p.PatentScore,
		CopyrightScore: *p.CopyrightScore,
		Details:        *p.Details,
	}, nil
}

type facesPayload struct {
	Faces *[]facePayload `json:"faces"`
}

type facePayload struct {
	BoundingBox     []int    `json:"boundingBox"`
	Demographics    string   `json:"demographics"`
	Expression      string   `json:"expression"`
	IsReal          *bool    `json:"isReal"`
	SimilarityScore *float64 `json:"similarityScore"`
}

// toAnalysis 校验人脸结果；faces 为空数组是合法的"没有人脸"，缺少 faces 则视为违约
func (p facesPayload) toAnalysis() (*analysis.FaceAnalysis, error) {
	if p.Faces == nil {
		return nil, fmt.Errorf("%w: missing faces", ErrMalformedResponse)
	}

	faces := make([]analysis.Face, 0, len(*p.Faces))
	for i, f := range *p.Faces {
		if len(f.BoundingBox) != 4 {
			return nil, fmt.Errorf("%w: face %d boundingBox has %d values", ErrMalformedResponse, i, len(f.BoundingBox))
		}
		var box analysis.BoundingBox
		for j, v := range f.BoundingBox {
			if v < 0 || v > 1000 {
				return nil, fmt.Errorf("%w: face %d boundingBox value %d out of range", ErrMalformedResponse, i, v)
			}
			box[j] = v
		}
		if f.IsReal == nil {
			return nil, fmt.Errorf("%w: face %d missing isReal", ErrMalformedResponse, i)
		}
		if f.SimilarityScore == nil {
			return nil, fmt.Errorf("%w: face %d missing similarityScore", ErrMalformedResponse, i)
		}
		if err := checkPercent("similarityScore", *f.SimilarityScore); err != nil {
			return nil, err
		}
		faces = append(faces, analysis.Face{
			BoundingBox:     box,
			Demographics:    f.Demographics,
			Expression:      f.Expression,
			IsReal:          *f.IsReal,
			SimilarityScore: *f.SimilarityScore,
		})
	}
	return &analysis.FaceAnalysis{Faces: faces}, nil
}

func checkPercent(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return fmt.Errorf("%w: %s %v out of range", ErrMalformedResponse, field, v)
	}
	return nil
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil
	}
	for _, part := range content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}

// responseText 拼接首个候选中的文本分片（忽略思考内容）
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func requireText(resp *genai.GenerateContentResponse) (string, error) {
	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func decodeJSON(resp *genai.GenerateContentResponse, out any) error {
	text := stripCodeFence(responseText(resp))
	if text == "" {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
