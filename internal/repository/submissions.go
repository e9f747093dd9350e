package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
)

const (
	submissionsTable = "submissions"
	defaultLimit     = 100
)

var submissionColumns = []string{
	"id", "session", "event_id", "sender", "content_hash", "state", "vaga_id",
	"ocr_text", "extracted_json", "error_code", "error_message", "created_at", "updated_at",
}

// SubmissionRepository journals every image the workflow handled. The content
// store remains the source of truth; these rows are never read back to
// decide anything.
type SubmissionRepository interface {
	Start(ctx context.Context, sub *entity.Submission) error
	MarkExtracting(ctx context.Context, id uuid.UUID) error
	MarkExtracted(ctx context.Context, id uuid.UUID, ocrText string, extracted json.RawMessage) error
	MarkSubmitted(ctx context.Context, id uuid.UUID, vagaID int64) error
	MarkFailed(ctx context.Context, id uuid.UUID, state constants.SubmissionState, code, message string) error
	MarkDecided(ctx context.Context, vagaID int64, approved bool) error
	List(ctx context.Context, limit int) ([]*entity.Submission, error)
	FindByContentHash(ctx context.Context, hash string) (*entity.Submission, error)
}

type submissionRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSubmissionRepository(db *DB, logger *slog.Logger) SubmissionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &submissionRepository{db: db, logger: logger, now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

// Start inserts sub in state RECEIVED, assigning an id and timestamps.
func (r *submissionRepository) Start(ctx context.Context, sub *entity.Submission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	now := r.now()
	sub.State = constants.StateReceived
	sub.CreatedAt, sub.UpdatedAt = now, now

	q, args := r.db.builder().Insert(submissionsTable).
		Columns(submissionColumns...).
		Values(
			sub.ID.String(), sub.Session, sub.EventID, sub.Sender, sub.ContentHash, string(sub.State), nullID(sub.VagaID),
			sub.OCRText, string(sub.ExtractedJSON), sub.ErrorCode, sub.ErrorMessage, now, now,
		).Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("journal.submission.insert_failed", "id", sub.ID, "error", err)
		return fmt.Errorf("%w: insert submission: %w", common.ErrDatabase, err)
	}
	return nil
}

func (r *submissionRepository) MarkExtracting(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{"state": string(constants.StateExtracting)})
}

func (r *submissionRepository) MarkExtracted(ctx context.Context, id uuid.UUID, ocrText string, extracted json.RawMessage) error {
	return r.update(ctx, id, map[string]any{
		"ocr_text":       ocrText,
		"extracted_json": string(extracted),
	})
}

func (r *submissionRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, vagaID int64) error {
	return r.update(ctx, id, map[string]any{
		"state":   string(constants.StateSubmitted),
		"vaga_id": vagaID,
	})
}

func (r *submissionRepository) MarkFailed(ctx context.Context, id uuid.UUID, state constants.SubmissionState, code, message string) error {
	return r.update(ctx, id, map[string]any{
		"state":         string(state),
		"error_code":    code,
		"error_message": message,
	})
}

// MarkDecided moves the SUBMITTED row of vagaID, if the journal has one, to
// its terminal state.
func (r *submissionRepository) MarkDecided(ctx context.Context, vagaID int64, approved bool) error {
	q, args := r.db.builder().Update(submissionsTable).
		Set("state", string(constants.DecisionState(approved))).
		Set("updated_at", r.now()).
		Where(entsql.And(
			entsql.EQ("vaga_id", vagaID),
			entsql.EQ("state", string(constants.StateSubmitted)),
		)).Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("journal.submission.decide_failed", "vaga_id", vagaID, "error", err)
		return fmt.Errorf("%w: mark decided: %w", common.ErrDatabase, err)
	}
	return nil
}

func (r *submissionRepository) update(ctx context.Context, id uuid.UUID, set map[string]any) error {
	u := r.db.builder().Update(submissionsTable)
	// fixed column order keeps the statement text stable
	for _, col := range submissionColumns {
		if v, ok := set[col]; ok {
			u = u.Set(col, v)
		}
	}
	q, args := u.Set("updated_at", r.now()).Where(entsql.EQ("id", id.String())).Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("journal.submission.update_failed", "id", id, "error", err)
		return fmt.Errorf("%w: update submission: %w", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// List returns the newest submissions first.
func (r *submissionRepository) List(ctx context.Context, limit int) ([]*entity.Submission, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	b := r.db.builder()
	q, args := b.Select(submissionColumns...).
		From(b.Table(submissionsTable)).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()
	return r.query(ctx, q, args)
}

// FindByContentHash returns the newest submission with that image hash that
// reached the content store, or common.ErrNotFound.
func (r *submissionRepository) FindByContentHash(ctx context.Context, hash string) (*entity.Submission, error) {
	b := r.db.builder()
	q, args := b.Select(submissionColumns...).
		From(b.Table(submissionsTable)).
		Where(entsql.And(
			entsql.EQ("content_hash", hash),
			entsql.NotNull("vaga_id"),
		)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1).
		Query()
	subs, err := r.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, common.ErrNotFound
	}
	return subs[0], nil
}

func (r *submissionRepository) query(ctx context.Context, q string, args []any) ([]*entity.Submission, error) {
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.logger.Error("journal.submission.query_failed", "error", err)
		return nil, fmt.Errorf("%w: query submissions: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Submission
	for rows.Next() {
		var (
			s         entity.Submission
			id, state string
			vagaID    sql.NullInt64
			extracted string
		)
		if err := rows.Scan(&id, &s.Session, &s.EventID, &s.Sender, &s.ContentHash, &state, &vagaID,
			&s.OCRText, &extracted, &s.ErrorCode, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan submission: %w", common.ErrDatabase, err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: submission id %q: %w", common.ErrDatabase, id, err)
		}
		s.ID = parsed
		s.State = constants.SubmissionState(state)
		if vagaID.Valid {
			v := vagaID.Int64
			s.VagaID = &v
		}
		if extracted != "" {
			s.ExtractedJSON = json.RawMessage(extracted)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate submissions: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
