// Package core assembles the collaborators both binaries share from a Config.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/events"
	"github.com/gustavoludtke/vagasbot/internal/extract"
	"github.com/gustavoludtke/vagasbot/internal/llm"
	"github.com/gustavoludtke/vagasbot/internal/llm/openai"
	"github.com/gustavoludtke/vagasbot/internal/moderation"
	"github.com/gustavoludtke/vagasbot/internal/ocr"
	"github.com/gustavoludtke/vagasbot/internal/pipeline"
	"github.com/gustavoludtke/vagasbot/internal/repository"
)

// BuildPipeline wires OCR then field extraction as configured.
func BuildPipeline(cfg *common.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	rec, err := ocr.New(ocr.Config{
		Provider:      cfg.OCR.Provider,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		VisionAPIKey:  cfg.OCR.VisionAPIKey,
		VisionURL:     cfg.OCR.VisionURL,
	}, &http.Client{Timeout: cfg.OCR.Timeout}, logger)
	if err != nil {
		return nil, err
	}

	var completer llm.Completer
	if cfg.Extraction.Strategy == extract.StrategyAI {
		completer = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	}
	fe, err := extract.New(cfg.Extraction.Strategy, completer, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.New(logger,
		pipeline.NewOCRStage(rec, cfg.OCR.Timeout, logger),
		pipeline.NewParseStage(fe, cfg.Extraction.Timeout, logger),
	), nil
}

func BuildStore(cfg *common.Config, logger *slog.Logger) *moderation.Client {
	return moderation.NewClient(moderation.Config{
		BaseURL: cfg.Store.BaseURL,
		Token:   cfg.Store.Token,
		Timeout: cfg.Store.Timeout,
	}, nil, logger)
}

// OpenJournal opens and migrates the journal database. It returns nil, nil
// when JOURNAL_DSN is empty.
func OpenJournal(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.Journal, *repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Journal.DSN,
		MaxConns:        cfg.Journal.MaxConns,
		MinConns:        cfg.Journal.MinConns,
		MaxConnLifetime: cfg.Journal.MaxConnLifetime,
		MaxConnIdleTime: cfg.Journal.MaxConnIdleTime,
		DialTimeout:     cfg.Journal.DialTimeout,
	}, logger)
	if errors.Is(err, repository.ErrNoDSN) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.HealthCheck(ctx, 3*time.Second); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("journal health: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate journal: %w", err)
	}
	return repository.NewJournal(db, logger), db, nil
}

// BuildPublisher connects to NATS when NATS_URL is set.
func BuildPublisher(cfg *common.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		return events.NopPublisher{}, nil
	}
	return events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger)
}
