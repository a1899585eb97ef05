package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/likeness-ai/command-center/backend/internal/model/analysis"
)

var (
	// ErrEmptyImage 未上传图片
	ErrEmptyImage = errors.New("image is required")
	// ErrNoFaces 图片中未检测到人脸，属于正常的空结果
	ErrNoFaces = errors.New("no faces detected")
)

const (
	VerdictAuthentic   = "Authentic Likeness"
	VerdictManipulated = "Potential AI Manipulation"
	NoFacesMessage     = "No faces detected."
)

// FaceAnalyzer 外部人脸分析服务
type FaceAnalyzer interface {
	AnalyzeFaces(ctx context.Context, image []byte, mimeType string) (*analysis.FaceAnalysis, error)
}

// DetectedFace 带叠加框与标签的人脸
type DetectedFace struct {
	analysis.Face
	Overlay analysis.Overlay `json:"overlay"`
	Label   string           `json:"label"`
}

// Summary 扫描结论
type Summary struct {
	Count     int    `json:"count"`
	Headline  string `json:"headline"`
	Verdict   string `json:"verdict,omitempty"`
	Authentic bool   `json:"authentic"`
	Detail    string `json:"detail,omitempty"`
}

// Result 一次扫描的完整结果
type Result struct {
	Faces   []DetectedFace `json:"faces"`
	Summary Summary        `json:"summary"`
}

// EmptyResult 未检测到人脸时展示的结果
func EmptyResult() *Result {
	return &Result{
		Faces:   []DetectedFace{},
		Summary: Summary{Headline: NoFacesMessage},
	}
}

type Service struct {
	analyzer FaceAnalyzer
}

func NewService(analyzer FaceAnalyzer) *Service {
	return &Service{analyzer: analyzer}
}

// Scan 分析图片中的人脸；没有人脸时返回 ErrNoFaces
func (s *Service) Scan(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	raw, err := s.analyzer.AnalyzeFaces(ctx, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("analyze faces: %w", err)
	}
	if raw == nil || len(raw.Faces) == 0 {
		return nil, ErrNoFaces
	}

	result := &Result{Faces: make([]DetectedFace, 0, len(raw.Faces))}
	for _, face := range raw.Faces {
		result.Faces = append(result.Faces, DetectedFace{
			Face:    face,
			Overlay: OverlayFor(face.BoundingBox),
			Label:   LabelFor(face),
		})
	}
	result.Summary = Summarize(raw.Faces)

	log.Printf("[scanner] detected %d face(s), authentic=%v", result.Summary.Count, result.Summary.Authentic)
	return result, nil
}

// OverlayFor 将 0-1000 坐标的 [ymin, xmin, ymax, xmax] 换算为容器百分比
func OverlayFor(box analysis.BoundingBox) analysis.Overlay {
	ymin, xmin := clampCoord(box[0]), clampCoord(box[1])
	ymax, xmax := clampCoord(box[2]), clampCoord(box[3])
	if ymax < ymin {
		ymin, ymax = ymax, ymin
	}
	if xmax < xmin {
		xmin, xmax = xmax, xmin
	}
	return analysis.Overlay{
		Top:    float64(ymin) / 10,
		Left:   float64(xmin) / 10,
		Height: float64(ymax-ymin) / 10,
		Width:  float64(xmax-xmin) / 10,
	}
}

// LabelFor 人脸标签，例如 "Adult Male • 88% Match"
func LabelFor(face analysis.Face) string {
	return fmt.Sprintf("%s • %d%% Match", face.Demographics, int(math.Round(face.SimilarityScore)))
}

// Summarize 汇总：所有人脸均为真实照片才判定为 Authentic
func Summarize(faces []analysis.Face) Summary {
	if len(faces) == 0 {
		return Summary{Headline: NoFacesMessage}
	}

	authentic := true
	for _, f := range faces {
		if !f.IsReal {
			authentic = false
			break
		}
	}

	noun := "Faces"
	if len(faces) == 1 {
		noun = "Face"
	}
	verdict := VerdictManipulated
	if authentic {
		verdict = VerdictAuthentic
	}

	return Summary{
		Count:     len(faces),
		Headline:  fmt.Sprintf("%d %s Detected", len(faces), noun),
		Verdict:   verdict,
		Authentic: authentic,
		Detail:    fmt.Sprintf("%s • %s", faces[0].Expression, verdict),
	}
}

func clampCoord(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}
