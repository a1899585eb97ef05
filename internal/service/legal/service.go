package legal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// ErrMissingField 缺少必填字段
var ErrMissingField = errors.New("missing required field")

// Drafter 外部文书起草服务
type Drafter interface {
	DraftCeaseAndDesist(ctx context.Context, violator, asset, usage string) (string, error)
}

// Request 停止侵权函参数，Usage 可为空
type Request struct {
	Violator string `json:"violator"`
	Asset    string `json:"asset"`
	Usage    string `json:"usage"`
}

// Letter 起草结果
type Letter struct {
	Violator string `json:"violator"`
	Asset    string `json:"asset"`
	Body     string `json:"body"`
}

type Service struct {
	drafter Drafter
}

func NewService(drafter Drafter) *Service {
	return &Service{drafter: drafter}
}

// Validate 校验必填字段
func (r Request) Validate() error {
	if strings.TrimSpace(r.Violator) == "" {
		return fmt.Errorf("%w: violator", ErrMissingField)
	}
	if strings.TrimSpace(r.Asset) == "" {
		return fmt.Errorf("%w: asset", ErrMissingField)
	}
	return nil
}

// DraftCeaseAndDesist 起草停止侵权函，缺少侵权方或资产名称时不调用外部服务
func (s *Service) DraftCeaseAndDesist(ctx context.Context, req Request) (*Letter, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	violator := strings.TrimSpace(req.Violator)
	asset := strings.TrimSpace(req.Asset)
	body, err := s.drafter.DraftCeaseAndDesist(ctx, violator, asset, strings.TrimSpace(req.Usage))
	if err != nil {
		return nil, fmt.Errorf("draft cease and desist: %w", err)
	}

	log.Printf("[legal] drafted letter for asset=%q violator=%q (%d chars)", asset, violator, len(body))
	return &Letter{Violator: violator, Asset: asset, Body: body}, nil
}
