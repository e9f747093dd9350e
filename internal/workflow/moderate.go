package workflow

import (
	"context"
	"errors"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/chat"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
	"github.com/gustavoludtke/vagasbot/internal/events"
	"github.com/gustavoludtke/vagasbot/internal/present"
)

// handleList always asks the store; nothing is cached between listings.
func (e *Engine) handleList(ctx context.Context) []chat.Message {
	jobs, err := e.store.ListPending(ctx)
	if err != nil {
		e.logger.Error("engine.list.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		if common.IsTimeout(err) {
			return present.Timeout()
		}
		return present.ListFailed(err)
	}
	e.logger.Info("engine.list.ok", "req_id", common.RequestIDFromContext(ctx), "pending", len(jobs))
	return present.Pending(jobs)
}

// handleDecision applies SUBMITTED -> APPROVED | REJECTED. The store decides
// terminality; a second decision on the same id is answered, not an error.
func (e *Engine) handleDecision(ctx context.Context, ev chat.DecisionPressed) []chat.Message {
	rid := common.RequestIDFromContext(ctx)
	approved := ev.Decision.Approved()
	msg, err := e.store.Decide(ctx, ev.JobID, approved)

	rec := &entity.Decision{
		VagaID:   ev.JobID,
		Approved: approved,
		Sender:   ev.Sender,
		Session:  common.SessionFromContext(ctx),
		Message:  msg,
	}
	var out []chat.Message
	switch {
	case err == nil:
		rec.Outcome = constants.OutcomeApplied
		out = present.Decided(ev.JobID, approved, msg, ev.Callback)
	case errors.Is(err, common.ErrAlreadyDecided):
		rec.Outcome = constants.OutcomeAlreadyDecided
		out = present.AlreadyDecided(ev.JobID, ev.Callback)
	case common.IsTimeout(err):
		rec.Outcome = constants.OutcomeFailed
		out = present.Timeout()
	default:
		rec.Outcome = constants.OutcomeFailed
		out = present.DecideFailed(ev.JobID, err)
	}
	if err != nil {
		rec.Message = err.Error()
		e.logger.Warn("engine.decision.not_applied", "req_id", rid, "vaga_id", ev.JobID, "outcome", rec.Outcome, "error", err)
	} else {
		e.logger.Info("engine.decision.applied", "req_id", rid, "vaga_id", ev.JobID, "approved", approved)
	}

	if e.journal != nil {
		if jerr := e.journal.RecordDecision(ctx, rec); jerr != nil {
			e.logger.Warn("engine.journal.record_decision_failed", "req_id", rid, "error", jerr)
		}
		if rec.Outcome == constants.OutcomeApplied {
			if jerr := e.journal.MarkDecided(ctx, ev.JobID, approved); jerr != nil {
				e.logger.Warn("engine.journal.mark_decided_failed", "req_id", rid, "error", jerr)
			}
		}
	}
	if rec.Outcome == constants.OutcomeApplied {
		e.publish(ctx, events.Event{
			Type:     events.KindDecided,
			VagaID:   ev.JobID,
			Approved: &approved,
			Outcome:  string(rec.Outcome),
			Session:  rec.Session,
			Sender:   ev.Sender,
		})
	}
	return out
}
