package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
)

const decisionsTable = "decisions"

var decisionColumns = []string{"id", "vaga_id", "approved", "outcome", "message", "sender", "session", "created_at"}

// DecisionRepository journals every moderator decision, including the ones the
// store refused.
type DecisionRepository interface {
	RecordDecision(ctx context.Context, d *entity.Decision) error
	ListDecisions(ctx context.Context, limit int) ([]*entity.Decision, error)
}

type decisionRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDecisionRepository(db *DB, logger *slog.Logger) DecisionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &decisionRepository{db: db, logger: logger, now: utcNow}
}

func (r *decisionRepository) RecordDecision(ctx context.Context, d *entity.Decision) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.now()
	}
	q, args := r.db.builder().Insert(decisionsTable).
		Columns(decisionColumns...).
		Values(d.ID.String(), d.VagaID, d.Approved, string(d.Outcome), d.Message, d.Sender, d.Session, d.CreatedAt).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("journal.decision.insert_failed", "vaga_id", d.VagaID, "error", err)
		return fmt.Errorf("%w: insert decision: %w", common.ErrDatabase, err)
	}
	return nil
}

// ListDecisions returns the newest decisions first.
func (r *decisionRepository) ListDecisions(ctx context.Context, limit int) ([]*entity.Decision, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	b := r.db.builder()
	q, args := b.Select(decisionColumns...).
		From(b.Table(decisionsTable)).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.logger.Error("journal.decision.query_failed", "error", err)
		return nil, fmt.Errorf("%w: query decisions: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Decision
	for rows.Next() {
		var (
			d           entity.Decision
			id, outcome string
		)
		if err := rows.Scan(&id, &d.VagaID, &d.Approved, &outcome, &d.Message, &d.Sender, &d.Session, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan decision: %w", common.ErrDatabase, err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: decision id %q: %w", common.ErrDatabase, id, err)
		}
		d.ID = parsed
		d.Outcome = constants.DecisionOutcome(outcome)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate decisions: %w", common.ErrDatabase, err)
	}
	return out, nil
}
