package payments

import (
	"context"

	"github.com/solsight/paygate/internal/domain"
)

// IPaymentService is the caller-facing engine API. All operations are
// idempotent at the status level and safe to invoke repeatedly.
type IPaymentService interface {
	// CreateSession mints a fresh custodial address, freezes the price for
	// the subject's kind and registers the session.
	CreateSession(ctx context.Context, subjectID string, kind domain.SessionKind) (domain.SessionView, error)

	// CheckPayment classifies the session's custodial balance as paid,
	// insufficient, expired or not found. Already-decided sessions answer
	// from the registry without a ledger read.
	CheckPayment(ctx context.Context, sessionID string) (domain.CheckResult, error)

	// Settle sweeps a paid session's custodial balance, minus network fee
	// and safety margin, to the treasury address exactly once.
	Settle(ctx context.Context, sessionID string) (domain.SettleResult, error)

	// Recover rebuilds the in-process registry from the durable store after
	// a restart so paid sessions can still be swept.
	Recover(ctx context.Context) error
}
