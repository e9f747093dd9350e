package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/chat"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
	"github.com/gustavoludtke/vagasbot/internal/events"
	"github.com/gustavoludtke/vagasbot/internal/present"
)

const flyer = "Cargo: Analista\nLocal: Remoto\nR$ 3000,00"

func image(id string) chat.ImagePosted {
	return chat.ImagePosted{Header: chat.Header{ID: id, Sender: "@ana"}, Image: []byte("img-" + id)}
}

func TestImageSubmitted(t *testing.T) {
	store, journal, pub := newFakeStore(), newFakeJournal(), &recordingPublisher{}
	e := New(regexPipeline(&fakeRecognizer{text: flyer}), store, Options{Journal: journal, Publisher: pub}, quietLogger())

	msgs := e.Handle(context.Background(), image("1"))
	if len(msgs) != 1 {
		t.Fatalf("got %d replies", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "ID 42") || !strings.Contains(msgs[0].Text, "Cargo: Analista") {
		t.Errorf("reply = %q", msgs[0].Text)
	}
	if len(store.submitted) != 1 {
		t.Fatalf("submitted %d jobs", len(store.submitted))
	}
	job := store.submitted[0]
	if job.OriginalText != flyer || job.Company != entity.NotInformed || job.Requirements == nil {
		t.Errorf("submitted job = %+v", job)
	}

	sub := journal.only()
	if sub.State != constants.StateSubmitted || sub.VagaID == nil || *sub.VagaID != 42 || sub.OCRText != flyer {
		t.Errorf("journal row = %+v", sub)
	}
	if sub.ContentHash != contentHash([]byte("img-1")) || sub.Sender != "@ana" || sub.EventID != "1" {
		t.Errorf("journal identity = %+v", sub)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.KindSubmitted || pub.events[0].VagaID != 42 {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestImageWithoutText(t *testing.T) {
	store, journal := newFakeStore(), newFakeJournal()
	e := New(regexPipeline(&fakeRecognizer{text: "  \n"}), store, Options{Journal: journal}, quietLogger())

	msgs := e.Handle(context.Background(), image("1"))
	if len(msgs) != 1 || msgs[0].Text != present.NoTextText {
		t.Fatalf("replies = %#v", msgs)
	}
	if len(store.submitted) != 0 {
		t.Error("no record should be submitted")
	}
	if sub := journal.only(); sub.State != constants.StateExtractionFailed || sub.ErrorCode != common.CodeNoTextFound {
		t.Errorf("journal row = %+v", sub)
	}
}

func TestMalformedExtraction(t *testing.T) {
	text := "VAGA!!\n Auxiliar de cozinha "

	t.Run("submits diagnostic record", func(t *testing.T) {
		store := newFakeStore()
		e := New(aiPipeline(&fakeRecognizer{text: text}, "desculpe, não entendi"), store, Options{SubmitOnMalformed: true}, quietLogger())
		msgs := e.Handle(context.Background(), image("1"))
		if len(store.submitted) != 1 {
			t.Fatalf("submitted %d", len(store.submitted))
		}
		job := store.submitted[0]
		if !job.IsDiagnostic() || job.OriginalText != text {
			t.Errorf("job = %+v", job)
		}
		for _, f := range constants.JobFields {
			if got := job.Text(f); got != entity.ExtractionError {
				t.Errorf("%s = %q", f, got)
			}
		}
		if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "como está (ID 42)") {
			t.Errorf("reply = %#v", msgs)
		}
	})

	t.Run("reports without submitting", func(t *testing.T) {
		store := newFakeStore()
		e := New(aiPipeline(&fakeRecognizer{text: text}, "desculpe"), store, Options{}, quietLogger())
		msgs := e.Handle(context.Background(), image("1"))
		if len(store.submitted) != 0 || len(msgs) != 1 || msgs[0].Text != present.MalformedText {
			t.Errorf("submitted=%d replies=%#v", len(store.submitted), msgs)
		}
	})
}

func TestImageCollaboratorFailures(t *testing.T) {
	t.Run("ocr timeout", func(t *testing.T) {
		e := New(regexPipeline(&fakeRecognizer{err: context.DeadlineExceeded}), newFakeStore(), Options{}, quietLogger())
		if msgs := e.Handle(context.Background(), image("1")); msgs[0].Text != present.TimeoutText {
			t.Errorf("reply = %q", msgs[0].Text)
		}
	})
	t.Run("ocr error", func(t *testing.T) {
		journal := newFakeJournal()
		e := New(regexPipeline(&fakeRecognizer{err: errors.New("vision: status 500")}), newFakeStore(), Options{Journal: journal}, quietLogger())
		if msgs := e.Handle(context.Background(), image("1")); msgs[0].Text != present.ExtractText {
			t.Errorf("reply = %q", msgs[0].Text)
		}
		if sub := journal.only(); sub.ErrorCode != common.CodeExtractionFailed {
			t.Errorf("code = %q", sub.ErrorCode)
		}
	})
	t.Run("store refuses", func(t *testing.T) {
		store, journal := newFakeStore(), newFakeJournal()
		store.submitErr = &common.StoreError{Op: "submit", StatusCode: 422, Body: "campo inválido"}
		e := New(regexPipeline(&fakeRecognizer{text: flyer}), store, Options{Journal: journal}, quietLogger())
		msgs := e.Handle(context.Background(), image("1"))
		if !strings.Contains(msgs[0].Text, "HTTP 422: campo inválido") {
			t.Errorf("reply = %q", msgs[0].Text)
		}
		if sub := journal.only(); sub.State != constants.StateSubmitFailed || sub.ErrorCode != common.CodeSubmitFailed {
			t.Errorf("journal row = %+v", sub)
		}
	})
	t.Run("store timeout", func(t *testing.T) {
		store := newFakeStore()
		store.submitErr = &common.StoreError{Op: "submit", Err: fmt.Errorf("post: %w", context.DeadlineExceeded)}
		e := New(regexPipeline(&fakeRecognizer{text: flyer}), store, Options{}, quietLogger())
		if msgs := e.Handle(context.Background(), image("1")); msgs[0].Text != present.TimeoutText {
			t.Errorf("reply = %q", msgs[0].Text)
		}
	})
}

func TestDuplicateImageNotice(t *testing.T) {
	store, journal := newFakeStore(), newFakeJournal()
	e := New(regexPipeline(&fakeRecognizer{text: flyer}), store, Options{Journal: journal}, quietLogger())

	first := e.Handle(context.Background(), image("same"))
	if strings.Contains(first[0].Text, "já tinha sido enviada") {
		t.Fatalf("first submission flagged as duplicate: %q", first[0].Text)
	}
	second := e.Handle(context.Background(), image("same"))
	if !strings.Contains(second[0].Text, "ID 43") || !strings.Contains(second[0].Text, "(vaga 42)") {
		t.Errorf("second reply = %q", second[0].Text)
	}
	if len(store.submitted) != 2 {
		t.Errorf("duplicate must still be submitted, got %d", len(store.submitted))
	}
}

func TestJournalFailureDoesNotChangeOutcome(t *testing.T) {
	journal := newFakeJournal()
	journal.failStart = true
	e := New(regexPipeline(&fakeRecognizer{text: flyer}), newFakeStore(), Options{Journal: journal}, quietLogger())
	if msgs := e.Handle(context.Background(), image("1")); !strings.Contains(msgs[0].Text, "ID 42") {
		t.Errorf("reply = %q", msgs[0].Text)
	}
}

func TestListPending(t *testing.T) {
	store := newFakeStore()
	e := New(regexPipeline(&fakeRecognizer{}), store, Options{}, quietLogger())
	list := chat.CommandPosted{Command: chat.CommandList}

	if msgs := e.Handle(context.Background(), list); len(msgs) != 1 || msgs[0].Text != present.NoPendingText {
		t.Fatalf("empty listing = %#v", msgs)
	}

	store.pending = []entity.PendingJob{
		{ID: 1, Data: entity.ExtractedJob{Title: "Caixa"}},
		{ID: 2, Data: entity.ExtractedJob{Title: "Padeiro"}},
	}
	msgs := e.Handle(context.Background(), list)
	if len(msgs) != 2 || len(msgs[1].Actions) != 2 || msgs[1].Actions[0].Data != "approve_2" {
		t.Fatalf("listing = %#v", msgs)
	}

	store.listErr = &common.StoreError{Op: "list", StatusCode: 503}
	if msgs := e.Handle(context.Background(), list); !strings.Contains(msgs[0].Text, "HTTP 503") {
		t.Errorf("list failure = %q", msgs[0].Text)
	}
}

func TestDecideTwiceIsNoop(t *testing.T) {
	store, journal, pub := newFakeStore(), newFakeJournal(), &recordingPublisher{}
	e := New(regexPipeline(&fakeRecognizer{}), store, Options{Journal: journal, Publisher: pub}, quietLogger())
	approve := chat.DecisionPressed{Header: chat.Header{Sender: "mod"}, Decision: chat.Approve, JobID: 42, Callback: true}

	first := e.Handle(context.Background(), approve)
	if len(first) != 1 || !strings.HasPrefix(first[0].Text, "✅ Vaga 42 aprovada.") || !first[0].Edit {
		t.Fatalf("first = %#v", first)
	}
	reject := approve
	reject.Decision = chat.Reject
	second := e.Handle(context.Background(), reject)
	if len(second) != 1 || !strings.Contains(second[0].Text, "já foi decidida") {
		t.Fatalf("second = %#v", second)
	}
	if !store.decided[42] {
		t.Error("the first decision must stand")
	}

	if len(journal.decisions) != 2 ||
		journal.decisions[0].Outcome != constants.OutcomeApplied ||
		journal.decisions[1].Outcome != constants.OutcomeAlreadyDecided {
		t.Errorf("journal decisions = %+v", journal.decisions)
	}
	if len(journal.decidedID) != 1 {
		t.Errorf("MarkDecided calls = %v", journal.decidedID)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.KindDecided || !*pub.events[0].Approved {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestCommandErrorAndHelp(t *testing.T) {
	e := New(regexPipeline(&fakeRecognizer{}), newFakeStore(), Options{}, quietLogger())
	msgs := e.Handle(context.Background(), chat.CommandError{Text: "!aprovar abc", Usage: chat.UsageDecision})
	if len(msgs) != 1 || msgs[0].Text != "Comando inválido. "+chat.UsageDecision {
		t.Errorf("command error = %#v", msgs)
	}
	if msgs := e.Handle(context.Background(), chat.CommandPosted{Command: chat.CommandHelp}); !strings.Contains(msgs[0].Text, "!validar") {
		t.Errorf("help = %q", msgs[0].Text)
	}
}

func TestRunRepliesBeforeDoneAndSurvivesPanics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess := &scriptedSession{
		queue: []chat.Event{
			image("boom"),
			chat.CommandPosted{Header: chat.Header{ID: "list"}, Command: chat.CommandList},
		},
		onDrain: cancel,
	}
	e := New(regexPipeline(&fakeRecognizer{panic: true}), newFakeStore(), Options{}, quietLogger())

	if err := e.Run(ctx, sess); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"reply", "done:boom", "reply", "done:list"}
	if strings.Join(sess.log, ",") != strings.Join(want, ",") {
		t.Errorf("log = %v, want %v", sess.log, want)
	}
	if sess.replies[0].Text != present.GenericText || sess.replies[1].Text != present.NoPendingText {
		t.Errorf("replies = %#v", sess.replies)
	}
}

type closingSession struct{ scriptedSession }

func (*closingSession) Next(context.Context) (chat.Event, error) { return nil, chat.ErrClosed }

func TestRunReturnsTransportError(t *testing.T) {
	e := New(regexPipeline(&fakeRecognizer{}), newFakeStore(), Options{}, quietLogger())
	if err := e.Run(context.Background(), &closingSession{}); !errors.Is(err, chat.ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}
