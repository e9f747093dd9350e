// Package async runs one engine loop per chat session and stops them together.
package async

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gustavoludtke/vagasbot/internal/chat"
)

// Runner consumes a session until ctx is done or the session fails.
type Runner interface {
	Run(ctx context.Context, s chat.Session) error
}

// Supervisor owns the session goroutines. Sessions are independent: one
// failing does not stop the others.
type Supervisor struct {
	runner Runner
	logger *slog.Logger

	mu       sync.Mutex
	sessions []chat.Session
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
	started  bool
	errs     chan SessionError
}

// SessionError reports a session whose loop ended with an error.
type SessionError struct {
	Session string
	Err     error
}

func NewSupervisor(runner Runner, logger *slog.Logger, sessions ...chat.Session) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		runner:   runner,
		logger:   logger,
		sessions: sessions,
		errs:     make(chan SessionError, len(sessions)),
	}
}

// Start launches one goroutine per session. Calling it twice is a no-op.
func (s *Supervisor) Start(ctx context.Context) {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		ctx, s.cancel = context.WithCancel(ctx)
		s.started = true
		for _, sess := range s.sessions {
			s.wg.Add(1)
			go func(sess chat.Session) {
				defer s.wg.Done()
				s.logger.Info("supervisor.session.started", "session", sess.Name())
				if err := s.runner.Run(ctx, sess); err != nil {
					s.logger.Error("supervisor.session.failed", "session", sess.Name(), "error", err)
					s.errs <- SessionError{Session: sess.Name(), Err: err}
					return
				}
				s.logger.Info("supervisor.session.stopped", "session", sess.Name())
			}(sess)
		}
	})
}

// Errors delivers one value per session that ended with an error.
func (s *Supervisor) Errors() <-chan SessionError {
	return s.errs
}

// Shutdown cancels the loops, waits for them until ctx is done, then closes
// every session.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	started := s.started
	s.mu.Unlock()

	if started {
		done := make(chan struct{})
		go func() { defer close(done); s.wg.Wait() }()
		select {
		case <-ctx.Done():
			s.logger.Warn("supervisor.shutdown.interrupted")
		case <-done:
			s.logger.Info("supervisor.shutdown.drained")
		}
	}

	for _, sess := range s.sessions {
		if err := sess.Close(); err != nil {
			s.logger.Warn("supervisor.session.close_failed", "session", sess.Name(), "error", err)
		}
	}
}
