package cart

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"
)

// Sessions keeps one ledger per storefront session. The ledger is opened
// lazily from the session's scope and stays in memory as the authoritative
// copy until it is evicted. Every mutation is persisted, so an evicted
// session rehydrates from its scope on the next request.
type Sessions struct {
	mu      sync.Mutex
	scopes  func(sessionID string) kvstore.Store
	opts    []Option
	ledgers map[string]*list.Element
	// lru holds *session values, most recently used at the front.
	lru *list.List

	idleTTL    time.Duration
	maxLedgers int
	now        func() time.Time
}

type session struct {
	id       string
	ledger   *Ledger
	lastUsed time.Time
}

// NewSessions builds a registry. scopes maps a session id to its private store.
func NewSessions(scopes func(sessionID string) kvstore.Store, opts ...Option) *Sessions {
	return &Sessions{
		scopes:  scopes,
		opts:    opts,
		ledgers: make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// WithLimits bounds the registry. Sweep drops ledgers idle for longer than
// idleTTL, and opening a ledger beyond maxLedgers evicts the least recently
// used one. Zero disables either limit.
func (s *Sessions) WithLimits(idleTTL time.Duration, maxLedgers int) *Sessions {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleTTL = idleTTL
	s.maxLedgers = maxLedgers
	return s
}

// Ledger returns the session's ledger, hydrating it on first use.
func (s *Sessions) Ledger(ctx context.Context, sessionID string) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.ledgers[sessionID]; ok {
		e.Value.(*session).lastUsed = s.now()
		s.lru.MoveToFront(e)
		return e.Value.(*session).ledger
	}

	l := Open(ctx, s.scopes(sessionID), s.opts...)
	l.Subscribe(func(c Change) {
		slog.Debug("cart changed", "session_id", sessionID, "kind", c.Kind, "line_id", c.LineID, "lines", len(c.Items))
	})
	s.ledgers[sessionID] = s.lru.PushFront(&session{id: sessionID, ledger: l, lastUsed: s.now()})

	if s.maxLedgers > 0 {
		s.trimLocked(ctx)
	}
	return l
}

// Len reports how many ledgers are held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Sweep flushes and drops ledgers idle for longer than the idle TTL and
// returns how many were dropped. Ledgers whose flush fails stay in memory.
func (s *Sessions) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)

	dropped := 0
	for e := s.lru.Back(); e != nil; {
		prev := e.Prev()
		if e.Value.(*session).lastUsed.After(cutoff) {
			break
		}
		if s.evictLocked(ctx, e) {
			dropped++
		}
		e = prev
	}
	return dropped
}

// trimLocked evicts from the cold end until the cap holds. The most recently
// used ledger is never evicted.
func (s *Sessions) trimLocked(ctx context.Context) {
	front := s.lru.Front()
	for e := s.lru.Back(); e != nil && e != front && s.lru.Len() > s.maxLedgers; {
		prev := e.Prev()
		s.evictLocked(ctx, e)
		e = prev
	}
}

func (s *Sessions) evictLocked(ctx context.Context, e *list.Element) bool {
	sess := e.Value.(*session)
	if err := sess.ledger.Close(ctx); err != nil {
		slog.WarnContext(ctx, "failed to flush cart before eviction", "session_id", sess.id, "error", err)
		return false
	}
	s.lru.Remove(e)
	delete(s.ledgers, sess.id)
	return true
}

// Close flushes every open ledger.
func (s *Sessions) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for e := s.lru.Front(); e != nil; e = e.Next() {
		sess := e.Value.(*session)
		if err := sess.ledger.Close(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to flush cart on shutdown", "session_id", sess.id, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
