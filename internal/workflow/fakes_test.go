package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/chat"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
	"github.com/gustavoludtke/vagasbot/internal/events"
	"github.com/gustavoludtke/vagasbot/internal/extract"
	"github.com/gustavoludtke/vagasbot/internal/llm"
	"github.com/gustavoludtke/vagasbot/internal/ocr"
	"github.com/gustavoludtke/vagasbot/internal/pipeline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRecognizer struct {
	text  string
	err   error
	panic bool
}

func (f *fakeRecognizer) Recognize(context.Context, []byte) (ocr.Result, error) {
	if f.panic {
		panic("recognizer exploded")
	}
	return ocr.Result{Text: f.text, Method: "fake"}, f.err
}

type fakeCompleter struct{ out string }

func (f fakeCompleter) Complete(context.Context, llm.CompletionRequest) (string, error) {
	return f.out, nil
}

func regexPipeline(r ocr.Recognizer) *pipeline.Pipeline {
	return pipeline.New(quietLogger(),
		pipeline.NewOCRStage(r, time.Second, quietLogger()),
		pipeline.NewParseStage(extract.NewRulesExtractor(quietLogger()), time.Second, quietLogger()))
}

func aiPipeline(r ocr.Recognizer, out string) *pipeline.Pipeline {
	return pipeline.New(quietLogger(),
		pipeline.NewOCRStage(r, time.Second, quietLogger()),
		pipeline.NewParseStage(extract.NewLLMExtractor(fakeCompleter{out: out}, quietLogger()), time.Second, quietLogger()))
}

// fakeStore behaves like the content store: ids from 42, and a second
// decision on the same id is refused with 409.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	submitted []entity.ExtractedJob
	pending   []entity.PendingJob
	decided   map[int64]bool
	submitErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 42, decided: map[int64]bool{}}
}

func (s *fakeStore) Submit(_ context.Context, job entity.ExtractedJob) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return 0, s.submitErr
	}
	id := s.nextID
	s.nextID++
	s.submitted = append(s.submitted, job)
	return id, nil
}

func (s *fakeStore) ListPending(context.Context) ([]entity.PendingJob, error) {
	return s.pending, s.listErr
}

func (s *fakeStore) Decide(_ context.Context, id int64, approved bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.decided[id]; done {
		return "", &common.StoreError{Op: "decide", StatusCode: http.StatusConflict, Body: `{"error":"vaga já validada"}`}
	}
	s.decided[id] = approved
	return fmt.Sprintf("Vaga %d atualizada", id), nil
}

type fakeJournal struct {
	mu        sync.Mutex
	subs      map[uuid.UUID]*entity.Submission
	decisions []*entity.Decision
	decidedID []int64
	failStart bool
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{subs: map[uuid.UUID]*entity.Submission{}}
}

func (j *fakeJournal) Start(_ context.Context, sub *entity.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failStart {
		return common.ErrDatabase
	}
	sub.ID = uuid.New()
	sub.State = constants.StateReceived
	cp := *sub
	j.subs[sub.ID] = &cp
	return nil
}

func (j *fakeJournal) with(id uuid.UUID, fn func(*entity.Submission)) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	s, ok := j.subs[id]
	if !ok {
		return common.ErrNotFound
	}
	fn(s)
	return nil
}

func (j *fakeJournal) MarkExtracting(_ context.Context, id uuid.UUID) error {
	return j.with(id, func(s *entity.Submission) { s.State = constants.StateExtracting })
}

func (j *fakeJournal) MarkExtracted(_ context.Context, id uuid.UUID, text string, raw json.RawMessage) error {
	return j.with(id, func(s *entity.Submission) { s.OCRText, s.ExtractedJSON = text, raw })
}

func (j *fakeJournal) MarkSubmitted(_ context.Context, id uuid.UUID, vagaID int64) error {
	return j.with(id, func(s *entity.Submission) { s.State, s.VagaID = constants.StateSubmitted, &vagaID })
}

func (j *fakeJournal) MarkFailed(_ context.Context, id uuid.UUID, state constants.SubmissionState, code, msg string) error {
	return j.with(id, func(s *entity.Submission) { s.State, s.ErrorCode, s.ErrorMessage = state, code, msg })
}

func (j *fakeJournal) MarkDecided(_ context.Context, vagaID int64, _ bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.decidedID = append(j.decidedID, vagaID)
	return nil
}

func (j *fakeJournal) FindByContentHash(_ context.Context, hash string) (*entity.Submission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, s := range j.subs {
		if s.ContentHash == hash && s.VagaID != nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (j *fakeJournal) RecordDecision(_ context.Context, d *entity.Decision) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.decisions = append(j.decisions, d)
	return nil
}

func (j *fakeJournal) only() *entity.Submission {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, s := range j.subs {
		return s
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// scriptedSession hands out the queued events, then blocks until ctx ends.
// log records the order of replies and Done calls.
type scriptedSession struct {
	mu      sync.Mutex
	queue   []chat.Event
	replies []chat.Message
	log     []string
	onDrain func()
}

func (s *scriptedSession) Name() string { return "test" }

func (s *scriptedSession) Next(ctx context.Context) (chat.Event, error) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		return ev, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedSession) Done(ev chat.Event) {
	s.mu.Lock()
	s.log = append(s.log, "done:"+ev.EventHeader().ID)
	drained := len(s.queue) == 0
	s.mu.Unlock()
	if drained && s.onDrain != nil {
		s.onDrain()
	}
}

func (s *scriptedSession) Reply(_ context.Context, _ chat.Origin, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, m)
	s.log = append(s.log, "reply")
	return nil
}

func (s *scriptedSession) Close() error { return nil }
