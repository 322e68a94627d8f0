package domain

import (
	"testing"
	"time"
)

func TestSessionKindValid(t *testing.T) {
	if !SessionKindIndividual.Valid() || !SessionKindGroup.Valid() {
		t.Error("known kinds must be valid")
	}
	if SessionKind("lifetime").Valid() {
		t.Error("unknown kind must be invalid")
	}
}

func TestStatusCanTransition(t *testing.T) {
	cases := []struct {
		from SessionStatus
		to   SessionStatus
		want bool
	}{
		{SessionStatusPending, SessionStatusPaid, true},
		{SessionStatusPending, SessionStatusExpired, true},
		{SessionStatusPending, SessionStatusSettled, false},
		{SessionStatusPaid, SessionStatusSettled, true},
		{SessionStatusPaid, SessionStatusExpired, false},
		{SessionStatusPaid, SessionStatusPending, false},
		{SessionStatusSettled, SessionStatusPaid, false},
		{SessionStatusSettled, SessionStatusExpired, false},
		{SessionStatusExpired, SessionStatusPaid, false},
		{SessionStatusExpired, SessionStatusSettled, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestExpiredAt(t *testing.T) {
	now := time.Now()
	session := PaymentSession{ExpiresAt: now}

	if session.ExpiredAt(now) {
		t.Error("session must not be expired exactly at its deadline")
	}
	if !session.ExpiredAt(now.Add(time.Nanosecond)) {
		t.Error("session must be expired past its deadline")
	}
}
