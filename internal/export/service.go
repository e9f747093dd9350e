package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/entity"
)

const (
	SheetPending     = "Vagas pendentes"
	SheetSubmissions = "Envios"
	SheetDecisions   = "Decisões"
)

type PendingLister interface {
	ListPending(ctx context.Context) ([]entity.PendingJob, error)
}

type JournalReader interface {
	List(ctx context.Context, limit int) ([]*entity.Submission, error)
	ListDecisions(ctx context.Context, limit int) ([]*entity.Decision, error)
}

// Service produces XLSX bytes for moderators who review vagas offline.
type Service struct {
	store   PendingLister
	journal JournalReader
	logger  *slog.Logger
}

// NewService builds the exporter. journal may be nil when no journal is configured.
func NewService(store PendingLister, journal JournalReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, journal: journal, logger: logger}
}

// PendingXLSX fetches the pending vagas from the content store, one row each.
func (s *Service) PendingXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	jobs, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetPending); err != nil {
		return nil, err
	}

	headers := []any{"ID"}
	for _, fld := range constants.JobFields {
		headers = append(headers, fld.Label())
	}
	headers = append(headers, "Texto original")
	if err := writeRow(f, SheetPending, 1, headers); err != nil {
		return nil, err
	}
	for i, p := range jobs {
		row := []any{p.ID}
		for _, fld := range constants.JobFields {
			row = append(row, p.Data.Text(fld))
		}
		row = append(row, truncate(p.Data.OriginalText, 500))
		if err := writeRow(f, SheetPending, i+2, row); err != nil {
			return nil, err
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetPending, "A", "A", 8)
	_ = f.SetColWidth(SheetPending, "B", "J", 28)
	_ = f.SetColWidth(SheetPending, "K", "K", 60)

	out, err := finish(f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.pending.ok", "rows", len(jobs), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// JournalXLSX writes the newest submissions and decisions, limit rows each.
func (s *Service) JournalXLSX(ctx context.Context, limit int) ([]byte, error) {
	if s.journal == nil {
		return nil, fmt.Errorf("journal export: no journal configured")
	}
	start := time.Now()
	subs, err := s.journal.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	decs, err := s.journal.ListDecisions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetSubmissions); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetDecisions); err != nil {
		return nil, err
	}

	if err := writeRow(f, SheetSubmissions, 1, []any{
		"Recebido em", "Sessão", "Remetente", "Estado", "Vaga", "Código de erro", "Mensagem de erro", "Hash da imagem",
	}); err != nil {
		return nil, err
	}
	for i, sub := range subs {
		vaga := ""
		if sub.VagaID != nil {
			vaga = strconv.FormatInt(*sub.VagaID, 10)
		}
		if err := writeRow(f, SheetSubmissions, i+2, []any{
			formatTime(sub.CreatedAt), sub.Session, sub.Sender, string(sub.State), vaga,
			sub.ErrorCode, truncate(sub.ErrorMessage, 140), sub.ContentHash,
		}); err != nil {
			return nil, err
		}
	}

	if err := writeRow(f, SheetDecisions, 1, []any{
		"Decidido em", "Vaga", "Decisão", "Resultado", "Mensagem", "Moderador", "Sessão",
	}); err != nil {
		return nil, err
	}
	for i, d := range decs {
		decision := "Reprovada"
		if d.Approved {
			decision = "Aprovada"
		}
		if err := writeRow(f, SheetDecisions, i+2, []any{
			formatTime(d.CreatedAt), d.VagaID, decision, string(d.Outcome), truncate(d.Message, 140), d.Sender, d.Session,
		}); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(SheetSubmissions, "A", "A", 20)
	_ = f.SetColWidth(SheetSubmissions, "G", "G", 48)
	_ = f.SetColWidth(SheetDecisions, "A", "A", 20)
	_ = f.SetColWidth(SheetDecisions, "E", "E", 48)

	out, err := finish(f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.journal.ok",
		"submissions", len(subs),
		"decisions", len(decs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func finish(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
