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

// handleImage runs RECEIVED -> EXTRACTING -> SUBMITTED | EXTRACTION_FAILED.
func (e *Engine) handleImage(ctx context.Context, ev chat.ImagePosted) []chat.Message {
	rid := common.RequestIDFromContext(ctx)
	hash := contentHash(ev.Image)
	sub := e.startSubmission(ctx, ev, hash)

	e.journalStep(ctx, "mark_extracting", func(j Journal) error { return j.MarkExtracting(ctx, sub.ID) }, sub)
	res, err := e.extractor.Run(ctx, ev.Image)
	if res.OCR.Text != "" {
		e.journalStep(ctx, "mark_extracted", func(j Journal) error {
			return j.MarkExtracted(ctx, sub.ID, res.OCR.Text, res.RawJSON)
		}, sub)
	}

	if err != nil && !(errors.Is(err, common.ErrMalformedExtraction) && e.opts.SubmitOnMalformed) {
		code := common.Code(err)
		if code == common.CodeInternal {
			code = common.CodeExtractionFailed
		}
		e.logger.Warn("engine.image.extraction_failed", "req_id", rid, "code", code, "error", err)
		e.fail(ctx, sub, constants.StateExtractionFailed, code, err)
		switch code {
		case common.CodeTransportTimeout:
			return present.Timeout()
		case common.CodeNoTextFound:
			return present.NoText()
		case common.CodeMalformedExtraction:
			return present.Malformed()
		}
		return present.ExtractionFailed()
	}
	if err != nil {
		e.logger.Warn("engine.image.submitting_diagnostic", "req_id", rid, "error", err)
	}

	dup := e.duplicateOf(ctx, hash)
	id, err := e.store.Submit(ctx, res.Job)
	if err != nil {
		code := common.Code(err)
		e.logger.Error("engine.image.submit_failed", "req_id", rid, "code", code, "error", err)
		e.fail(ctx, sub, constants.StateSubmitFailed, code, err)
		if code == common.CodeTransportTimeout {
			return present.Timeout()
		}
		return present.SubmitFailed(err)
	}

	e.journalStep(ctx, "mark_submitted", func(j Journal) error { return j.MarkSubmitted(ctx, sub.ID, id) }, sub)
	e.publish(ctx, events.Event{Type: events.KindSubmitted, VagaID: id, Session: common.SessionFromContext(ctx), Sender: ev.Sender})
	attrs := []any{"req_id", rid, "vaga_id", id, "diagnostic", res.Job.IsDiagnostic(), "strategy", res.Strategy}
	if dup != nil {
		attrs = append(attrs, "duplicate_of", *dup)
	}
	e.logger.Info("engine.image.submitted", attrs...)
	return present.Submitted(id, res.Job, dup)
}

// startSubmission opens the journal row; the returned value is nil when
// there is no journal or the insert failed.
func (e *Engine) startSubmission(ctx context.Context, ev chat.ImagePosted, hash string) *entity.Submission {
	if e.journal == nil {
		return nil
	}
	sub := &entity.Submission{
		Session:     common.SessionFromContext(ctx),
		EventID:     ev.ID,
		Sender:      ev.Sender,
		ContentHash: hash,
	}
	if err := e.journal.Start(ctx, sub); err != nil {
		e.logger.Warn("engine.journal.start_failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		return nil
	}
	return sub
}

// journalStep runs fn when the submission row exists.
func (e *Engine) journalStep(ctx context.Context, step string, fn func(Journal) error, sub *entity.Submission) {
	if e.journal == nil || sub == nil {
		return
	}
	if err := fn(e.journal); err != nil {
		e.logger.Warn("engine.journal."+step+"_failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
	}
}

func (e *Engine) fail(ctx context.Context, sub *entity.Submission, state constants.SubmissionState, code string, cause error) {
	e.journalStep(ctx, "mark_failed", func(j Journal) error {
		return j.MarkFailed(ctx, sub.ID, state, code, cause.Error())
	}, sub)
}

// duplicateOf returns the vaga id an identical image produced before, if any.
func (e *Engine) duplicateOf(ctx context.Context, hash string) *int64 {
	if e.journal == nil {
		return nil
	}
	prev, err := e.journal.FindByContentHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			e.logger.Warn("engine.journal.lookup_failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		}
		return nil
	}
	return prev.VagaID
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Warn("engine.events.publish_failed", "req_id", common.RequestIDFromContext(ctx), "type", ev.Type, "error", err)
	}
}
