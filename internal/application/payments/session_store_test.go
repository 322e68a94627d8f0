package payments

import (
	"sync"
	"testing"
	"time"

	"github.com/solsight/paygate/internal/domain"
)

func storedSession(id string, status domain.SessionStatus, expiresAt time.Time) *domain.PaymentSession {
	return &domain.PaymentSession{
		SessionID:       id,
		SubjectID:       "subject-1",
		Kind:            domain.SessionKindIndividual,
		ExpectedAmount:  500_000_000,
		CustodialAddr:   "addr-" + id,
		CustodialSecret: []byte{1, 2, 3, 4},
		Status:          status,
		CreatedAt:       time.Now(),
		ExpiresAt:       expiresAt,
	}
}

func TestSessionStore_GetUnknown(t *testing.T) {
	store := NewSessionStore()
	if _, err := store.Get("missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStore_MarkPaidIdempotent(t *testing.T) {
	store := NewSessionStore()
	store.Insert(storedSession("s1", domain.SessionStatusPending, time.Now().Add(time.Hour)))

	if err := store.MarkPaid("s1", "sig-1"); err != nil {
		t.Fatalf("first MarkPaid failed: %v", err)
	}
	if err := store.MarkPaid("s1", "sig-2"); err != nil {
		t.Fatalf("repeated MarkPaid must succeed: %v", err)
	}

	sess, _ := store.Get("s1")
	if sess.InboundProofRef != "sig-1" {
		t.Errorf("repeated MarkPaid must not overwrite the proof, got %s", sess.InboundProofRef)
	}
	if sess.Status != domain.SessionStatusPaid {
		t.Errorf("expected paid, got %s", sess.Status)
	}
}

func TestSessionStore_MarkSettledRequiresPaid(t *testing.T) {
	store := NewSessionStore()
	store.Insert(storedSession("s1", domain.SessionStatusPending, time.Now().Add(time.Hour)))

	if err := store.MarkSettled("s1", "sig-out"); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition on pending session, got %v", err)
	}

	store.MarkPaid("s1", "sig-in")
	if err := store.MarkSettled("s1", "sig-out"); err != nil {
		t.Fatalf("MarkSettled on paid session failed: %v", err)
	}

	// settled is terminal
	if err := store.MarkSettled("s1", "sig-out-2"); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition on settled session, got %v", err)
	}
}

func TestSessionStore_SecretDroppedOnSettle(t *testing.T) {
	store := NewSessionStore()
	store.Insert(storedSession("s1", domain.SessionStatusPending, time.Now().Add(time.Hour)))
	store.MarkPaid("s1", "sig-in")
	store.MarkSettled("s1", "sig-out")

	sess, _ := store.Get("s1")
	if sess.CustodialSecret != nil {
		t.Error("custodial secret must be dropped once the session settles")
	}
}

func TestSessionStore_SweepExpired(t *testing.T) {
	store := NewSessionStore()
	now := time.Now()
	store.Insert(storedSession("live", domain.SessionStatusPending, now.Add(time.Hour)))
	store.Insert(storedSession("stale", domain.SessionStatusPending, now.Add(-time.Minute)))

	paid := storedSession("paid-stale", domain.SessionStatusPending, now.Add(-time.Minute))
	store.Insert(paid)
	store.MarkPaid("paid-stale", "sig")

	removed := store.SweepExpired(now)
	if len(removed) != 1 || removed[0].SessionID != "stale" {
		t.Fatalf("expected only the stale pending session removed, got %v", removed)
	}

	if _, err := store.Get("stale"); err != domain.ErrSessionNotFound {
		t.Error("swept session must be gone from the registry")
	}
	if _, err := store.Get("paid-stale"); err != nil {
		t.Error("paid session must survive the sweep even past its expiry")
	}
	if _, err := store.Get("live"); err != nil {
		t.Error("unexpired session must survive the sweep")
	}
}

func TestSessionStore_SweepNeverRacesMarkPaid(t *testing.T) {
	store := NewSessionStore()
	now := time.Now()

	for i := 0; i < 50; i++ {
		store.Insert(storedSession("race", domain.SessionStatusPending, now.Add(-time.Second)))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.MarkPaid("race", "sig")
		}()
		go func() {
			defer wg.Done()
			store.SweepExpired(time.Now())
		}()
		wg.Wait()

		sess, err := store.Get("race")
		if err == nil && sess.Status == domain.SessionStatusPaid {
			continue // MarkPaid won, session survived: correct
		}
		if err == domain.ErrSessionNotFound {
			continue // sweep won before the payment landed: also correct
		}
		t.Fatalf("inconsistent race outcome: err=%v status=%v", err, sess.Status)
	}
}
