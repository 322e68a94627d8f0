package domain

import (
	"time"
)

type SessionKind string

const (
	SessionKindIndividual SessionKind = "individual"
	SessionKindGroup      SessionKind = "group"
)

func (k SessionKind) Valid() bool {
	return k == SessionKindIndividual || k == SessionKindGroup
}

type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusPaid    SessionStatus = "paid"
	SessionStatusSettled SessionStatus = "settled"
	SessionStatusExpired SessionStatus = "expired"
)

// rank orders the forward-only lifecycle: pending < paid < settled, with
// expired as a terminal branch off pending.
func (s SessionStatus) rank() int {
	switch s {
	case SessionStatusPending:
		return 0
	case SessionStatusPaid:
		return 1
	case SessionStatusSettled:
		return 2
	}
	return -1
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. settled and expired are terminal.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s == SessionStatusExpired || s == SessionStatusSettled {
		return false
	}
	if next == SessionStatusExpired {
		return s == SessionStatusPending
	}
	return next.rank() == s.rank()+1
}

// PaymentSession is the sole persistent entity of the engine. The custodial
// secret authorizes spending from the one-time deposit address; it must never
// appear on a log event and is dropped from the in-process registry once the
// session settles.
type PaymentSession struct {
	SessionID        string        `json:"session_id" db:"session_id"`
	SubjectID        string        `json:"subject_id" db:"subject_id"`
	Kind             SessionKind   `json:"kind" db:"kind"`
	ExpectedAmount   uint64        `json:"expected_amount" db:"expected_amount"` // lamports
	CustodialAddr    string        `json:"custodial_address" db:"custodial_address"`
	CustodialSecret  []byte        `json:"-" db:"custodial_secret"`
	Status           SessionStatus `json:"status" db:"status"`
	InboundProofRef  string        `json:"inbound_proof_ref,omitempty" db:"inbound_proof_ref"`
	OutboundProofRef string        `json:"outbound_proof_ref,omitempty" db:"outbound_proof_ref"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	ExpiresAt        time.Time     `json:"expires_at" db:"expires_at"`
}

func (s *PaymentSession) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionView strips the secret material for caller-facing responses.
type SessionView struct {
	SessionID      string        `json:"session_id"`
	SubjectID      string        `json:"subject_id"`
	Kind           SessionKind   `json:"kind"`
	ExpectedAmount uint64        `json:"amount_lamports"`
	AmountSOL      string        `json:"amount_sol"`
	CustodialAddr  string        `json:"address"`
	Status         SessionStatus `json:"status"`
	ExpiresAt      time.Time     `json:"expires_at"`
}

type PaymentState string

const (
	PaymentStatePaid         PaymentState = "paid"
	PaymentStateInsufficient PaymentState = "insufficient"
	PaymentStateExpired      PaymentState = "expired"
	PaymentStateNotFound     PaymentState = "not_found"
)

// CheckResult is the detector's answer. "not yet paid" is an expected outcome
// and travels as a status value, not an error.
type CheckResult struct {
	State             PaymentState `json:"status"`
	PartialLamports   uint64       `json:"partial_lamports,omitempty"`
	ShortfallLamports uint64       `json:"shortfall_lamports,omitempty"`
	ProofRef          string       `json:"proof_ref,omitempty"`
}

// SettleResult carries the sweep confirmation signature.
type SettleResult struct {
	ProofRef string `json:"proof_ref"`
}
