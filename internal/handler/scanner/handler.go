package scanner

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	scannerService "github.com/likeness-ai/command-center/backend/internal/service/scanner"
	"github.com/likeness-ai/command-center/backend/pkg/utils"
)

const maxImageBytes = 10 << 20

// Scanner 人脸扫描
type Scanner interface {
	Scan(ctx context.Context, image []byte, mimeType string) (*scannerService.Result, error)
}

type Handler struct {
	scanner Scanner
}

func New(scanner Scanner) *Handler {
	return &Handler{scanner: scanner}
}

// RegisterRoutes 注册扫描路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/scanner/faces", h.handleScanFaces)
}

// handleScanFaces 接收 multipart 字段 image
func (h *Handler) handleScanFaces(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}

	result, err := h.scanner.Scan(r.Context(), image, mimeType)
	switch {
	case errors.Is(err, scannerService.ErrNoFaces):
		utils.RespondJSON(w, http.StatusOK, scannerService.EmptyResult())
	case errors.Is(err, scannerService.ErrEmptyImage):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		log.Printf("[scanner] scan failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "face analysis unavailable")
	default:
		utils.RespondJSON(w, http.StatusOK, result)
	}
}
