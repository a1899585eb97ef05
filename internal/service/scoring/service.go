package scoring

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/likeness-ai/command-center/backend/internal/model/analysis"
)

// ErrEmptyInput 待评分文本为空
var ErrEmptyInput = errors.New("idea text is required")

// minAnalyzableLength 通用内容分析的最短长度（字符数）
const minAnalyzableLength = 20

const tooShortDetails = "Content too short for analysis."

// IdeaScorer 外部评分服务
type IdeaScorer interface {
	ScoreIdea(ctx context.Context, idea string) (*analysis.IdeaScore, error)
}

// Service 想法评分
type Service struct {
	scorer IdeaScorer
}

func NewService(scorer IdeaScorer) *Service {
	return &Service{scorer: scorer}
}

// Score 对想法打分，空文本在调用外部服务前被拒绝
func (s *Service) Score(ctx context.Context, idea string) (*analysis.IdeaScore, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return nil, ErrEmptyInput
	}
	score, err := s.scorer.ScoreIdea(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("score idea: %w", err)
	}
	return score, nil
}

// AnalyzeContent 通用内容分析：足够长的文本按想法评分，其余直接返回提示
func (s *Service) AnalyzeContent(ctx context.Context, content string) (*analysis.ScanResult, error) {
	if utf8.RuneCountInString(content) <= minAnalyzableLength {
		return &analysis.ScanResult{
			IPMatches: []string{},
			Details:   tooShortDetails,
		}, nil
	}

	score, err := s.Score(ctx, content)
	if err != nil {
		return nil, err
	}
	patent, copyright := score.PatentScore, score.CopyrightScore
	return &analysis.ScanResult{
		Confidence:     100,
		IPMatches:      []string{},
		Details:        score.Details,
		PatentScore:    &patent,
		CopyrightScore: &copyright,
	}, nil
}

// FormatScorecard 聊天中展示的评分卡
func FormatScorecard(score *analysis.IdeaScore) string {
	return fmt.Sprintf("**Idea Scorecard**\n\n🛡️ Patent Potential: %s/100\n©️ Copyright Strength: %s/100\n\n%s",
		formatScore(score.PatentScore), formatScore(score.CopyrightScore), score.Details)
}

// FormatAudioAnalysis 语音备忘录评分后的模型消息
func FormatAudioAnalysis(score *analysis.IdeaScore) string {
	return fmt.Sprintf("**Audio Analysis Complete**\n\nPatent Potential: %s/100\nCopyright Strength: %s/100\n\n%s",
		formatScore(score.PatentScore), formatScore(score.CopyrightScore), score.Details)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
