package payments

import (
	"sync"
	"time"

	"github.com/solsight/paygate/internal/domain"
)

// entry pairs a session with its mutation guard. All status transitions on a
// session serialize on this mutex; it is never held across a ledger call.
type entry struct {
	mu   sync.Mutex
	sess *domain.PaymentSession
}

// SessionStore is the in-process registry of live payment sessions. It is the
// source of truth for lifecycle decisions; the durable audit store converges
// behind it.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		entries: make(map[string]*entry),
	}
}

func (s *SessionStore) Insert(sess *domain.PaymentSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.SessionID] = &entry{sess: sess}
}

// Get returns a snapshot of the session. The copy keeps readers of public
// fields safe while a transition is in progress on the live record.
func (s *SessionStore) Get(sessionID string) (domain.PaymentSession, error) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.PaymentSession{}, domain.ErrSessionNotFound
	}

	e.mu.Lock()
	snapshot := *e.sess
	e.mu.Unlock()
	return snapshot, nil
}

// MarkPaid transitions pending -> paid. Calling it on a session that is
// already paid or settled succeeds without touching the record, so concurrent
// detectors cannot double-credit.
func (s *SessionStore) MarkPaid(sessionID, proofRef string) error {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.sess.Status {
	case domain.SessionStatusPaid, domain.SessionStatusSettled:
		return nil
	}
	if !e.sess.Status.CanTransition(domain.SessionStatusPaid) {
		return domain.ErrSessionExpired
	}

	e.sess.Status = domain.SessionStatusPaid
	e.sess.InboundProofRef = proofRef
	return nil
}

// MarkSettled transitions paid -> settled and drops the custodial secret from
// memory; the sweep is done and the key must not linger.
func (s *SessionStore) MarkSettled(sessionID, proofRef string) error {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.sess.Status.CanTransition(domain.SessionStatusSettled) {
		return domain.ErrInvalidTransition
	}

	e.sess.Status = domain.SessionStatusSettled
	e.sess.OutboundProofRef = proofRef
	for i := range e.sess.CustodialSecret {
		e.sess.CustodialSecret[i] = 0
	}
	e.sess.CustodialSecret = nil
	return nil
}

// SweepExpired removes every session that is still pending past its expiry
// and returns the removed records. The per-session guard is taken before the
// status check, so a MarkPaid that wins the race is observed and the session
// survives.
func (s *SessionStore) SweepExpired(now time.Time) []domain.PaymentSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []domain.PaymentSession
	for id, e := range s.entries {
		e.mu.Lock()
		if e.sess.Status.CanTransition(domain.SessionStatusExpired) && e.sess.ExpiredAt(now) {
			e.sess.Status = domain.SessionStatusExpired
			removed = append(removed, *e.sess)
			delete(s.entries, id)
		}
		e.mu.Unlock()
	}
	return removed
}

// Len reports the number of live sessions, for health/ops visibility.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
