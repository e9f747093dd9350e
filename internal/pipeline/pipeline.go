package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
	"github.com/gustavoludtke/vagasbot/internal/ocr"
)

// Result is everything one extraction produced.
type Result struct {
	Job      entity.ExtractedJob
	OCR      ocr.Result
	RawJSON  []byte
	Strategy string
}

// Pipeline coordinates OCR (text) then field extraction. No retries: each
// collaborator is called once per image.
type Pipeline struct {
	Logger *slog.Logger
	OCR    *OCRStage
	Parse  *ParseStage
}

func New(logger *slog.Logger, ocr *OCRStage, parse *ParseStage) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger, OCR: ocr, Parse: parse}
}

// Extract returns the filled job for image. On ErrMalformedExtraction the
// diagnostic job is returned together with the error.
func (p *Pipeline) Extract(ctx context.Context, image []byte) (entity.ExtractedJob, error) {
	res, err := p.Run(ctx, image)
	return res.Job, err
}

// Run is Extract with the intermediate artifacts.
func (p *Pipeline) Run(ctx context.Context, image []byte) (Result, error) {
	rid := common.RequestIDFromContext(ctx)

	ocrRes, err := p.OCR.Run(ctx, image)
	if err != nil {
		p.Logger.Warn("pipeline.ocr.failed", "req_id", rid, "error", err)
		return Result{OCR: ocrRes}, err
	}
	p.Logger.Info("pipeline.ocr.ok",
		"req_id", rid,
		"method", ocrRes.Method,
		"text_len", len(ocrRes.Text),
		"confidence", ocrRes.Confidence,
	)

	fields, err := p.Parse.Run(ctx, ocrRes.Text)
	out := Result{OCR: ocrRes, RawJSON: fields.RawJSON, Strategy: fields.Strategy}
	if err != nil {
		if errors.Is(err, common.ErrMalformedExtraction) {
			p.Logger.Warn("pipeline.parse.malformed", "req_id", rid, "error", err)
			out.Job = entity.DiagnosticJob(ocrRes.Text)
			return out, err
		}
		p.Logger.Error("pipeline.parse.failed", "req_id", rid, "error", err)
		return out, err
	}

	job := fields.Job
	job.OriginalText = ocrRes.Text
	out.Job = job.Filled()
	p.Logger.Info("pipeline.parse.ok",
		"req_id", rid,
		"strategy", fields.Strategy,
		"title", out.Job.Title,
		"company", out.Job.Company,
	)
	return out, nil
}
