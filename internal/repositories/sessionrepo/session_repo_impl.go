package sessionrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/solsight/paygate/internal/domain"
	"github.com/solsight/paygate/internal/infrastructure/database"
)

type sessionRepositoryImpl struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ISessionRepository {
	return &sessionRepositoryImpl{
		db:     db.Db,
		logger: logger,
	}
}

func (r *sessionRepositoryImpl) Persist(ctx context.Context, session *domain.PaymentSession) error {
	const query = `
		INSERT INTO payment_sessions (
			session_id, subject_id, kind, expected_amount, custodial_address,
			custodial_secret, status, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		session.SessionID,
		session.SubjectID,
		string(session.Kind),
		int64(session.ExpectedAmount),
		session.CustodialAddr,
		solana.PrivateKey(session.CustodialSecret).String(),
		string(session.Status),
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", session.SessionID).Msg("Failed to persist payment session")
		return fmt.Errorf("failed to persist payment session: %w", err)
	}

	return nil
}

func (r *sessionRepositoryImpl) UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus, proofRef string) error {
	var query string
	switch status {
	case domain.SessionStatusPaid:
		query = `UPDATE payment_sessions
			SET status = $2, inbound_proof_ref = $3, updated_at = $4
			WHERE session_id = $1`
	case domain.SessionStatusSettled:
		query = `UPDATE payment_sessions
			SET status = $2, outbound_proof_ref = $3, updated_at = $4
			WHERE session_id = $1`
	default:
		query = `UPDATE payment_sessions
			SET status = $2, updated_at = $4
			WHERE session_id = $1`
	}

	_, err := r.db.ExecContext(ctx, query, sessionID, string(status), proofRef, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", sessionID).Str("status", string(status)).Msg("Failed to update session status")
		return fmt.Errorf("failed to update session status: %w", err)
	}

	return nil
}

// LoadRecoverable returns the sessions the registry must hold after a
// restart: everything pending (may still be paid) and everything paid but not
// yet settled (its secret is still required to sweep).
func (r *sessionRepositoryImpl) LoadRecoverable(ctx context.Context) ([]domain.PaymentSession, error) {
	const query = `
		SELECT session_id, subject_id, kind, expected_amount, custodial_address,
			custodial_secret, status,
			COALESCE(inbound_proof_ref, ''), COALESCE(outbound_proof_ref, ''),
			created_at, expires_at
		FROM payment_sessions
		WHERE status IN ('pending', 'paid')
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to load recoverable sessions")
		return nil, fmt.Errorf("failed to load recoverable sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.PaymentSession
	for rows.Next() {
		var (
			session domain.PaymentSession
			kind    string
			status  string
			amount  int64
			secret  string
		)
		if err := rows.Scan(
			&session.SessionID,
			&session.SubjectID,
			&kind,
			&amount,
			&session.CustodialAddr,
			&secret,
			&status,
			&session.InboundProofRef,
			&session.OutboundProofRef,
			&session.CreatedAt,
			&session.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}

		key, err := solana.PrivateKeyFromBase58(secret)
		if err != nil {
			r.logger.Error().Str("session_id", session.SessionID).Msg("Stored custodial secret is unreadable, skipping session")
			continue
		}

		session.Kind = domain.SessionKind(kind)
		session.Status = domain.SessionStatus(status)
		session.ExpectedAmount = uint64(amount)
		session.CustodialSecret = key
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}

	return sessions, nil
}
