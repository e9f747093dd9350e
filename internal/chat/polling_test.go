package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// scriptedSampler returns the scripted units in order and then keeps
// returning the last one, like a conversation where nothing new arrives.
type scriptedSampler struct {
	mu    sync.Mutex
	units []Unit
	errs  []error
	calls int
	sent  []string
}

func (s *scriptedSampler) Tail(context.Context) (Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Unit{}, s.errs[i]
	}
	if i >= len(s.units) {
		i = len(s.units) - 1
	}
	return s.units[i], nil
}

func (s *scriptedSampler) Send(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *scriptedSampler) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stopAfter makes the session sleep hook record durations and cancel ctx
// after n sleeps.
func stopAfter(s *PollingSession, n int, cancel context.CancelFunc) *[]time.Duration {
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		if len(slept) >= n {
			cancel()
		}
		return nil
	}
	return &slept
}

func TestPollingSkipsBacklogAndBacksOff(t *testing.T) {
	sampler := &scriptedSampler{units: []Unit{{Ref: "old", Kind: UnitText, Text: "!validar"}}}
	s := NewPollingSession(sampler, PollingConfig{MinBackoff: time.Second, MaxBackoff: 4 * time.Second}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slept := stopAfter(s, 5, cancel)

	ev, err := s.Next(ctx)
	if !errors.Is(err, context.Canceled) || ev != nil {
		t.Fatalf("Next = %v, %v; want cancellation without events", ev, err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestPollingDeliversOnceAfterDone(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff}
	sampler := &scriptedSampler{units: []Unit{{Ref: "u1", Kind: UnitImage, Image: img, Sender: "ana"}}}
	s := NewPollingSession(sampler, PollingConfig{Name: "wa", Chat: "Vagas", ProcessBacklog: true}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopAfter(s, 1, cancel)

	ev, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	ip, ok := ev.(ImagePosted)
	if !ok || string(ip.Image) != string(img) || ip.Sender != "ana" || ip.Origin.Chat != "Vagas" {
		t.Fatalf("event = %#v", ev)
	}

	// not marked done yet: the same unit comes back
	again, err := s.Next(ctx)
	if err != nil || again.EventHeader().ID != "u1" {
		t.Fatalf("redelivery = %v, %v", again, err)
	}

	s.Done(again)
	if ev, err := s.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("after Done got %v, %v; want no event", ev, err)
	}
}

func TestPollingConsumesChatterAndResetsBackoff(t *testing.T) {
	sampler := &scriptedSampler{units: []Unit{
		{Ref: "a", Kind: UnitText, Text: "start"},
		{Ref: "a", Kind: UnitText, Text: "start"},
		{Ref: "b", Kind: UnitText, Text: "obrigado!"},
		{Ref: "c", Kind: UnitText, Text: "!aprovar 9"},
		{Ref: "c", Kind: UnitText, Text: "!aprovar 9"},
	}}
	s := NewPollingSession(sampler, PollingConfig{MinBackoff: time.Second, MaxBackoff: 8 * time.Second}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slept := stopAfter(s, 10, cancel)

	ev, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	dp, ok := ev.(DecisionPressed)
	if !ok || dp.JobID != 9 || dp.Decision != Approve {
		t.Fatalf("event = %#v", ev)
	}
	if len(*slept) != 1 || (*slept)[0] != time.Second {
		t.Fatalf("slept %v before the command", *slept)
	}
	if s.backoff != time.Second {
		t.Errorf("backoff not reset: %v", s.backoff)
	}
}

func TestPollingRetriesSampleErrors(t *testing.T) {
	sampler := &scriptedSampler{
		units: []Unit{{}, {}, {Ref: "x", Kind: UnitText, Text: "!validar"}},
		errs:  []error{nil, errors.New("devtools gone")},
	}
	s := NewPollingSession(sampler, PollingConfig{ProcessBacklog: true}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopAfter(s, 10, cancel)

	ev, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if cp, ok := ev.(CommandPosted); !ok || cp.Command != CommandList {
		t.Fatalf("event = %#v", ev)
	}
}

func TestPollingIgnoreOwn(t *testing.T) {
	sampler := &scriptedSampler{units: []Unit{
		{Ref: "me", Kind: UnitText, Text: "!validar", FromSelf: true},
		{Ref: "you", Kind: UnitText, Text: "!validar"},
	}}
	s := NewPollingSession(sampler, PollingConfig{ProcessBacklog: true, IgnoreOwn: true}, quietLogger())
	ev, err := s.Next(context.Background())
	if err != nil || ev.EventHeader().ID != "you" {
		t.Fatalf("Next = %#v, %v", ev, err)
	}
}

func TestPollingReplyUsesPlainText(t *testing.T) {
	sampler := &scriptedSampler{}
	s := NewPollingSession(sampler, PollingConfig{}, quietLogger())
	if err := s.Reply(context.Background(), Origin{}, Message{Text: "Vaga 5", Actions: DecisionActions(5)}); err != nil {
		t.Fatal(err)
	}
	if len(sampler.sent) != 1 || sampler.sent[0] != "Vaga 5\n\n➡️ Responda: !aprovar 5 | !reprovar 5" {
		t.Errorf("sent = %q", sampler.sent)
	}
}
