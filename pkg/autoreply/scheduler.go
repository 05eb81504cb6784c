// Package autoreply schedules outbound decoy replies. Each session owns at
// most one armed reply at a time; a reply fires after a human-plausible
// random delay and is suppressed if the conversation changed underneath it.
package autoreply

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// injectTimeout bounds the handoff to the injection collaborator so a slow
// webhook cannot pile up fired timers.
const injectTimeout = 5 * time.Second

// Handle is an owned, cancellable scheduled reply.
type Handle struct {
	Session string
	FireAt  time.Time

	timer     *time.Timer
	cancelled bool // guarded by the scheduler's mutex
}

// Scheduler arms one-shot reply timers with uniform jitter.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*Handle
	closed  bool

	injector Injector
	active   func(sessionID string) bool
	minDelay time.Duration
	maxDelay time.Duration
	logger   *zap.Logger
}

// New creates a scheduler. active is consulted at fire time: a reply whose
// session is no longer active is suppressed, not delivered. A nil active
// func disables the check (tests).
func New(injector Injector, active func(string) bool, minDelay, maxDelay time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Scheduler{
		pending:  make(map[string]*Handle),
		injector: injector,
		active:   active,
		minDelay: minDelay,
		maxDelay: maxDelay,
		logger:   logger,
	}
}

// Schedule arms a reply for the session. If a reply is already pending for
// the same session it is cancelled first: the latest intent wins, never
// both. Returns nil after Close.
func (s *Scheduler) Schedule(sessionID, text string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	if prev, ok := s.pending[sessionID]; ok {
		prev.cancelled = true
		prev.timer.Stop()
	}

	delay := s.jitter()
	h := &Handle{
		Session: sessionID,
		FireAt:  time.Now().Add(delay),
	}
	h.timer = time.AfterFunc(delay, func() {
		s.fire(h, text)
	})
	s.pending[sessionID] = h

	s.logger.Info("decoy reply queued",
		zap.String("session", sessionID),
		zap.Duration("delay", delay))
	return h
}

// Cancel drops the session's pending reply, if any. Safe to call for
// sessions with nothing armed.
func (s *Scheduler) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.pending[sessionID]; ok {
		h.cancelled = true
		h.timer.Stop()
		delete(s.pending, sessionID)
	}
}

// Pending reports whether the session has an armed reply.
func (s *Scheduler) Pending(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[sessionID]
	return ok
}

// Close cancels every pending reply and rejects new ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, h := range s.pending {
		h.cancelled = true
		h.timer.Stop()
		delete(s.pending, id)
	}
}

// jitter draws a delay uniformly from [minDelay, maxDelay].
func (s *Scheduler) jitter() time.Duration {
	if s.maxDelay == s.minDelay {
		return s.minDelay
	}
	return s.minDelay + rand.N(s.maxDelay-s.minDelay+1)
}

// fire runs on the timer goroutine. Cancellation is re-checked under the
// lock because Stop can lose the race with an already-running timer, and
// staleness is checked here rather than at schedule time: the session may
// have rotated while the timer was armed.
func (s *Scheduler) fire(h *Handle, text string) {
	s.mu.Lock()
	if h.cancelled {
		s.mu.Unlock()
		return
	}
	if cur, ok := s.pending[h.Session]; ok && cur == h {
		delete(s.pending, h.Session)
	}
	s.mu.Unlock()

	if s.active != nil && !s.active(h.Session) {
		s.logger.Info("decoy reply suppressed, session rotated",
			zap.String("session", h.Session))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), injectTimeout)
	defer cancel()

	cmd := Command{Action: ActionInjectReply, Text: text, SessionID: h.Session}
	if err := s.injector.Inject(ctx, cmd); err != nil {
		s.logger.Warn("reply injection failed",
			zap.String("session", h.Session), zap.Error(err))
		return
	}

	s.logger.Info("decoy reply delivered", zap.String("session", h.Session))
}
