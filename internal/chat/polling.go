package chat

import (
	"context"
	"log/slog"
	"time"
)

type UnitKind int

const (
	UnitText UnitKind = iota + 1
	UnitImage
)

// Unit is the newest message visible in a sampled conversation. Ref is a
// stable per-message reference; an empty Ref means the view had nothing.
type Unit struct {
	Ref      string
	Kind     UnitKind
	Text     string
	Image    []byte
	Sender   string
	FromSelf bool
}

// Sampler reads and writes a chat surface that has no push API.
type Sampler interface {
	Tail(ctx context.Context) (Unit, error)
	Send(ctx context.Context, text string) error
	Close() error
}

type PollingConfig struct {
	Name       string
	Chat       string
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// ProcessBacklog handles the unit already visible at startup instead of
	// treating it as seen.
	ProcessBacklog bool
	// IgnoreOwn skips units written by the logged-in account.
	IgnoreOwn bool
}

// PollingSession turns periodic Tail samples into events. A unit becomes an
// event at most once: the cursor moves when the workflow calls Done, or
// immediately for units that are not events.
type PollingSession struct {
	cfg     PollingConfig
	sampler Sampler
	logger  *slog.Logger

	lastSeen string
	primed   bool
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPollingSession(sampler Sampler, cfg PollingConfig, logger *slog.Logger) *PollingSession {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	if cfg.Name == "" {
		cfg.Name = "polling"
	}
	return &PollingSession{
		cfg:     cfg,
		sampler: sampler,
		logger:  logger.With("session", cfg.Name),
		backoff: cfg.MinBackoff,
		sleep:   sleepCtx,
	}
}

func (s *PollingSession) Name() string { return s.cfg.Name }

func (s *PollingSession) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, err := s.sampler.Tail(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("chat.polling.sample_failed", "error", err, "backoff", s.backoff)
			if err := s.wait(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if !s.primed {
			s.primed = true
			if !s.cfg.ProcessBacklog {
				s.lastSeen = u.Ref
				continue
			}
		}
		if u.Ref == "" || u.Ref == s.lastSeen {
			if err := s.wait(ctx); err != nil {
				return nil, err
			}
			continue
		}

		s.backoff = s.cfg.MinBackoff
		ev, ok := s.classify(u)
		if !ok {
			s.lastSeen = u.Ref
			continue
		}
		s.logger.Debug("chat.polling.event", "ref", u.Ref, "kind", u.Kind)
		return ev, nil
	}
}

func (s *PollingSession) classify(u Unit) (Event, bool) {
	if s.cfg.IgnoreOwn && u.FromSelf {
		return nil, false
	}
	h := Header{
		ID:     u.Ref,
		Origin: Origin{Chat: s.cfg.Chat, Ref: u.Ref},
		Sender: u.Sender,
	}
	switch u.Kind {
	case UnitImage:
		return ImagePosted{Header: h, Image: u.Image}, true
	case UnitText:
		return ParseCommand(u.Text, h)
	}
	return nil, false
}

// Done advances the cursor past ev.
func (s *PollingSession) Done(ev Event) {
	if ev == nil {
		return
	}
	s.lastSeen = ev.EventHeader().ID
}

func (s *PollingSession) Reply(ctx context.Context, _ Origin, msg Message) error {
	return s.sampler.Send(ctx, PlainText(msg))
}

func (s *PollingSession) Close() error {
	return s.sampler.Close()
}

func (s *PollingSession) wait(ctx context.Context) error {
	d := s.backoff
	s.backoff *= 2
	if s.backoff > s.cfg.MaxBackoff {
		s.backoff = s.cfg.MaxBackoff
	}
	return s.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
