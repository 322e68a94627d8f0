package domain

import "errors"

var (
	// ErrSessionNotFound: the session id is unknown to the registry.
	ErrSessionNotFound = errors.New("payment session not found")

	// ErrSessionExpired: the validity window elapsed while still unpaid.
	ErrSessionExpired = errors.New("payment session expired")

	// ErrInvalidTransition: a status move that the lifecycle forbids. This is
	// a programming or race defect, not a user-facing condition.
	ErrInvalidTransition = errors.New("invalid session status transition")

	// ErrNotPayable: settle was invoked on a session that is not in paid state.
	ErrNotPayable = errors.New("session is not in a payable state")

	// ErrInvalidKind: the requested session kind has no price table entry.
	ErrInvalidKind = errors.New("unknown session kind")

	// ErrConfiguration: treasury or ledger endpoint missing at create time.
	ErrConfiguration = errors.New("payment engine configuration incomplete")

	// Fatal settlement conditions. None of these are retried; they are
	// surfaced to an operator because treasury funds may be stranded on the
	// custodial address.
	ErrNothingToTransfer    = errors.New("custodial address holds no balance")
	ErrInsufficientForFee   = errors.New("custodial balance does not cover fee and margin")
	ErrNothingLeftAfterFees = errors.New("nothing left to sweep after fee and margin")

	// ErrInconsistentRead: the balance covers the price but no inbound
	// transaction reference could be retrieved. The session is left pending
	// rather than marked paid on an unverifiable read.
	ErrInconsistentRead = errors.New("balance observed without a matching inbound transaction")
)
