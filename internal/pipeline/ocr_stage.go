package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/ocr"
)

// LowConfidence marks OCR output worth a warning in the logs.
const LowConfidence = 0.4

type OCRStage struct {
	Recognizer ocr.Recognizer
	Timeout    time.Duration
	Logger     *slog.Logger
}

func NewOCRStage(r ocr.Recognizer, timeout time.Duration, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{Recognizer: r, Timeout: timeout, Logger: logger}
}

// Run recognizes text once, bounded by Timeout. Blank text is ErrNoTextFound.
func (s *OCRStage) Run(ctx context.Context, image []byte) (ocr.Result, error) {
	if len(image) == 0 {
		return ocr.Result{}, common.ErrNoTextFound
	}
	ctx, cancel := common.WithTimeout(ctx, s.Timeout)
	defer cancel()

	res, err := s.Recognizer.Recognize(ctx, image)
	if err != nil {
		return res, fmt.Errorf("ocr: %w", err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return res, common.ErrNoTextFound
	}
	if res.Confidence > 0 && res.Confidence < LowConfidence {
		s.Logger.Warn("pipeline.ocr.low_confidence",
			"req_id", common.RequestIDFromContext(ctx),
			"confidence", res.Confidence,
			"method", res.Method,
		)
	}
	return res, nil
}
