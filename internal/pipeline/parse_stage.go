package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/extract"
)

type ParseStage struct {
	Extractor extract.FieldExtractor
	Timeout   time.Duration
	Logger    *slog.Logger
}

func NewParseStage(fe extract.FieldExtractor, timeout time.Duration, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Extractor: fe, Timeout: timeout, Logger: logger}
}

// Run calls the field extractor once. Errors are wrapped with %w, so
// common.ErrMalformedExtraction stays matchable with errors.Is.
func (s *ParseStage) Run(ctx context.Context, text string) (extract.FieldsResult, error) {
	ctx, cancel := common.WithTimeout(ctx, s.Timeout)
	defer cancel()

	res, err := s.Extractor.ExtractFields(ctx, text)
	if err != nil {
		return res, fmt.Errorf("extract fields: %w", err)
	}
	return res, nil
}
