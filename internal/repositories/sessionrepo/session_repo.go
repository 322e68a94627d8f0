package sessionrepo

import (
	"context"

	"github.com/solsight/paygate/internal/domain"
)

// ISessionRepository is the durable audit copy of payment sessions. Rows are
// inserted at creation and updated on every status transition; they are never
// hard deleted.
type ISessionRepository interface {
	Persist(ctx context.Context, session *domain.PaymentSession) error
	UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus, proofRef string) error
	LoadRecoverable(ctx context.Context) ([]domain.PaymentSession, error)
}
