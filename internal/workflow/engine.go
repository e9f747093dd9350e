// Package workflow turns chat events into content store calls and replies.
package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/chat"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
	"github.com/gustavoludtke/vagasbot/internal/events"
	"github.com/gustavoludtke/vagasbot/internal/moderation"
	"github.com/gustavoludtke/vagasbot/internal/pipeline"
	"github.com/gustavoludtke/vagasbot/internal/present"
)

const replyTimeout = 30 * time.Second

// Extractor turns an image into a job posting.
type Extractor interface {
	Run(ctx context.Context, image []byte) (pipeline.Result, error)
}

// Journal is the audit trail the engine writes to. Failures are logged and
// never change what the user sees.
type Journal interface {
	Start(ctx context.Context, sub *entity.Submission) error
	MarkExtracting(ctx context.Context, id uuid.UUID) error
	MarkExtracted(ctx context.Context, id uuid.UUID, ocrText string, extracted json.RawMessage) error
	MarkSubmitted(ctx context.Context, id uuid.UUID, vagaID int64) error
	MarkFailed(ctx context.Context, id uuid.UUID, state constants.SubmissionState, code, message string) error
	MarkDecided(ctx context.Context, vagaID int64, approved bool) error
	FindByContentHash(ctx context.Context, hash string) (*entity.Submission, error)
	RecordDecision(ctx context.Context, d *entity.Decision) error
}

// Options carries the engine's optional collaborators.
type Options struct {
	Journal   Journal          // optional
	Publisher events.Publisher // optional
	// SubmitOnMalformed sends the diagnostic record to the store when the
	// extraction output could not be understood.
	SubmitOnMalformed bool
}

// Engine handles one event at a time per session. It keeps no state between
// events: pending vagas and their terminality live in the content store.
type Engine struct {
	extractor Extractor
	store     moderation.Store
	journal   Journal
	publisher events.Publisher
	opts      Options
	logger    *slog.Logger
}

func New(extractor Extractor, store moderation.Store, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	pub := opts.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Engine{
		extractor: extractor,
		store:     store,
		journal:   opts.Journal,
		publisher: pub,
		opts:      opts,
		logger:    logger,
	}
}

// Run consumes s until ctx is done or the session closes. Each event gets
// its replies before the session is told it is done.
func (e *Engine) Run(ctx context.Context, s chat.Session) error {
	ctx = common.WithSession(ctx, s.Name())
	logger := e.logger.With("session", s.Name())
	logger.Info("engine.session.started")
	for {
		ev, err := s.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("engine.session.stopped")
				return nil
			}
			logger.Error("engine.session.failed", "error", err)
			return err
		}
		e.dispatch(ctx, s, ev)
		s.Done(ev)
	}
}

func (e *Engine) dispatch(ctx context.Context, s chat.Session, ev chat.Event) {
	h := ev.EventHeader()
	ctx = common.WithRequestID(ctx, uuid.NewString())
	start := time.Now()

	msgs := e.safeHandle(ctx, ev)

	// replies go out even if shutdown started while the event was handled
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()
	for _, m := range msgs {
		if err := s.Reply(replyCtx, h.Origin, m); err != nil {
			e.logger.Error("engine.reply.failed",
				"req_id", common.RequestIDFromContext(ctx),
				"session", s.Name(),
				"event_id", h.ID,
				"error", err,
			)
		}
	}
	e.logger.Info("engine.event.handled",
		"req_id", common.RequestIDFromContext(ctx),
		"session", s.Name(),
		"event_id", h.ID,
		"kind", eventKind(ev),
		"replies", len(msgs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

func (e *Engine) safeHandle(ctx context.Context, ev chat.Event) (msgs []chat.Message) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine.event.panic",
				"req_id", common.RequestIDFromContext(ctx),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			msgs = present.Generic()
		}
	}()
	return e.Handle(ctx, ev)
}

// Handle produces the reply batch for one event. It never returns an empty batch.
func (e *Engine) Handle(ctx context.Context, ev chat.Event) []chat.Message {
	switch ev := ev.(type) {
	case chat.ImagePosted:
		return e.handleImage(ctx, ev)
	case chat.CommandPosted:
		if ev.Command == chat.CommandHelp {
			return present.Help()
		}
		return e.handleList(ctx)
	case chat.DecisionPressed:
		return e.handleDecision(ctx, ev)
	case chat.CommandError:
		e.logger.Info("engine.command.invalid", "req_id", common.RequestIDFromContext(ctx), "text", ev.Text)
		return present.CommandError(ev.Usage)
	}
	e.logger.Error("engine.event.unknown", "req_id", common.RequestIDFromContext(ctx), "kind", eventKind(ev))
	return present.Generic()
}

func eventKind(ev chat.Event) string {
	switch ev.(type) {
	case chat.ImagePosted:
		return "image"
	case chat.CommandPosted:
		return "command"
	case chat.DecisionPressed:
		return "decision"
	case chat.CommandError:
		return "command_error"
	}
	return "unknown"
}

func contentHash(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
