package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solsight/paygate/internal/domain"
	"github.com/solsight/paygate/internal/domain/interfaces"
	"github.com/solsight/paygate/internal/repositories/sessionrepo"
	"github.com/solsight/paygate/pkg/config"
	"github.com/solsight/paygate/pkg/retry"
)

type paymentService struct {
	store       *SessionStore
	repo        sessionrepo.ISessionRepository
	ledger      interfaces.LedgerClient
	broadcaster interfaces.StatusBroadcaster
	cfg         *config.Config
	logger      zerolog.Logger

	// settling tracks sessions with a sweep in flight so a concurrent caller
	// cannot submit a second transaction for the same custodial address.
	settlingMu sync.Mutex
	settling   map[string]bool
}

func NewPaymentService(
	store *SessionStore,
	repo sessionrepo.ISessionRepository,
	ledger interfaces.LedgerClient,
	broadcaster interfaces.StatusBroadcaster,
	cfg *config.Config,
	logger zerolog.Logger,
) IPaymentService {
	return &paymentService{
		store:       store,
		repo:        repo,
		ledger:      ledger,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logger,
		settling:    make(map[string]bool),
	}
}

func (s *paymentService) CreateSession(ctx context.Context, subjectID string, kind domain.SessionKind) (domain.SessionView, error) {
	if !kind.Valid() {
		return domain.SessionView{}, fmt.Errorf("session kind %q: %w", kind, domain.ErrInvalidKind)
	}
	if s.cfg.Ledger.TreasuryAddress == "" {
		return domain.SessionView{}, fmt.Errorf("treasury address unset: %w", domain.ErrConfiguration)
	}
	if _, err := s.cfg.Ledger.RPCURL(); err != nil {
		return domain.SessionView{}, fmt.Errorf("%v: %w", err, domain.ErrConfiguration)
	}

	price, err := s.cfg.Pricing.PriceLamports(string(kind))
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("failed to resolve price: %w", err)
	}

	// Fresh keypair per session; funds are never mixed across sessions.
	custodialKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("failed to mint custodial keypair: %w", err)
	}

	now := time.Now()
	session := &domain.PaymentSession{
		SessionID:       uuid.New().String(),
		SubjectID:       subjectID,
		Kind:            kind,
		ExpectedAmount:  price,
		CustodialAddr:   custodialKey.PublicKey().String(),
		CustodialSecret: custodialKey,
		Status:          domain.SessionStatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.Session.ValidityWindow),
	}

	if err := s.repo.Persist(ctx, session); err != nil {
		return domain.SessionView{}, fmt.Errorf("failed to persist session: %w", err)
	}
	s.store.Insert(session)

	s.logger.Info().
		Str("session_id", session.SessionID).
		Str("subject_id", subjectID).
		Str("kind", string(kind)).
		Uint64("expected_lamports", price).
		Str("custodial_address", session.CustodialAddr).
		Time("expires_at", session.ExpiresAt).
		Msg("Payment session created")

	return s.view(session), nil
}

func (s *paymentService) CheckPayment(ctx context.Context, sessionID string) (domain.CheckResult, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return domain.CheckResult{State: domain.PaymentStateNotFound}, nil
	}

	// A decided session answers from the registry; no ledger read, and the
	// proof reference is stable across calls.
	if session.Status == domain.SessionStatusPaid || session.Status == domain.SessionStatusSettled {
		return domain.CheckResult{
			State:    domain.PaymentStatePaid,
			ProofRef: session.InboundProofRef,
		}, nil
	}

	if session.ExpiredAt(time.Now()) {
		// Deletion is the sweep timer's job; reporting only keeps this path
		// race free.
		return domain.CheckResult{State: domain.PaymentStateExpired}, nil
	}

	balance, err := s.ledger.GetBalance(ctx, session.CustodialAddr)
	if err != nil {
		return domain.CheckResult{}, fmt.Errorf("failed to read custodial balance: %w", err)
	}

	if balance < session.ExpectedAmount {
		return domain.CheckResult{
			State:             domain.PaymentStateInsufficient,
			PartialLamports:   balance,
			ShortfallLamports: session.ExpectedAmount - balance,
		}, nil
	}

	proofRef, err := s.ledger.GetRecentIncomingRef(ctx, session.CustodialAddr)
	if err != nil {
		// Balance covers the price but the deposit cannot be evidenced. Do
		// not mark paid on an unverifiable read.
		s.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Str("custodial_address", session.CustodialAddr).
			Uint64("balance", balance).
			Msg("Balance observed without a retrievable inbound transaction")
		return domain.CheckResult{}, fmt.Errorf("%v: %w", err, domain.ErrInconsistentRead)
	}

	if err := s.store.MarkPaid(sessionID, proofRef); err != nil {
		return domain.CheckResult{}, fmt.Errorf("failed to mark session paid: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, sessionID, domain.SessionStatusPaid, proofRef); err != nil {
		// The registry already decided; the audit copy converges on the next
		// transition. Log and carry on.
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to record paid status durably")
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("subject_id", session.SubjectID).
		Str("proof_ref", proofRef).
		Uint64("balance", balance).
		Msg("Payment detected")
	s.broadcast(sessionID)

	return domain.CheckResult{
		State:    domain.PaymentStatePaid,
		ProofRef: proofRef,
	}, nil
}

func (s *paymentService) Settle(ctx context.Context, sessionID string) (domain.SettleResult, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return domain.SettleResult{}, err
	}

	// A settled session returns its recorded proof; no second transaction.
	if session.Status == domain.SessionStatusSettled {
		return domain.SettleResult{ProofRef: session.OutboundProofRef}, nil
	}
	if session.Status != domain.SessionStatusPaid {
		return domain.SettleResult{}, fmt.Errorf("session %s is %s: %w", sessionID, session.Status, domain.ErrNotPayable)
	}

	if !s.beginSettle(sessionID) {
		return domain.SettleResult{}, fmt.Errorf("settlement already in progress for session %s", sessionID)
	}
	defer s.endSettle(sessionID)

	// Re-read under the in-flight guard in case a concurrent settle finished
	// between the first snapshot and the guard acquisition.
	session, err = s.store.Get(sessionID)
	if err != nil {
		return domain.SettleResult{}, err
	}
	if session.Status == domain.SessionStatusSettled {
		return domain.SettleResult{ProofRef: session.OutboundProofRef}, nil
	}

	treasury := s.cfg.Ledger.TreasuryAddress
	margin := s.cfg.Ledger.FeeMarginLamports
	custodialKey := solana.PrivateKey(session.CustodialSecret)

	var proofRef string
	op := func(ctx context.Context) error {
		// The balance is re-read on every attempt: if an earlier submit
		// landed despite an ambiguous error, the drained address fails the
		// margin check instead of double-spending.
		balance, err := s.ledger.GetBalance(ctx, session.CustodialAddr)
		if err != nil {
			return retry.Retryable(fmt.Errorf("failed to read custodial balance: %w", err))
		}
		if balance == 0 {
			return domain.ErrNothingToTransfer
		}

		fee, err := s.ledger.EstimateFee(ctx, session.CustodialAddr, treasury, balance)
		if err != nil {
			return retry.Retryable(fmt.Errorf("failed to estimate fee: %w", err))
		}
		if balance < fee+margin {
			return fmt.Errorf("balance %d, fee %d, margin %d: %w", balance, fee, margin, domain.ErrInsufficientForFee)
		}

		amountToSend := balance - fee - margin
		if amountToSend == 0 {
			return domain.ErrNothingLeftAfterFees
		}

		signature, err := s.ledger.Transfer(ctx, custodialKey, treasury, amountToSend)
		if err != nil {
			return retry.Retryable(fmt.Errorf("failed to submit sweep: %w", err))
		}
		if err := s.ledger.Confirm(ctx, signature); err != nil {
			return retry.Retryable(fmt.Errorf("sweep not confirmed: %w", err))
		}

		proofRef = signature
		return nil
	}

	policy := retry.Policy{
		MaxAttempts: s.cfg.Retry.MaxAttempts,
		BackoffBase: s.cfg.Retry.BackoffBase,
		BackoffMax:  s.cfg.Retry.BackoffMax,
	}
	if err := retry.Do(ctx, s.logger, policy, "settle_sweep", op); err != nil {
		// The session stays paid and a later settle attempt is safe, but
		// treasury funds sit stranded on the custodial address until then.
		s.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Str("custodial_address", session.CustodialAddr).
			Msg("Settlement failed, operator attention required")
		return domain.SettleResult{}, err
	}

	if err := s.store.MarkSettled(sessionID, proofRef); err != nil {
		return domain.SettleResult{}, fmt.Errorf("sweep confirmed but status update failed: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, sessionID, domain.SessionStatusSettled, proofRef); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to record settled status durably")
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("subject_id", session.SubjectID).
		Str("proof_ref", proofRef).
		Msg("Session settled to treasury")
	s.broadcast(sessionID)

	return domain.SettleResult{ProofRef: proofRef}, nil
}

func (s *paymentService) Recover(ctx context.Context) error {
	sessions, err := s.repo.LoadRecoverable(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover sessions: %w", err)
	}

	for i := range sessions {
		session := sessions[i]
		s.store.Insert(&session)
	}

	s.logger.Info().
		Int("session_count", len(sessions)).
		Msg("Registry rebuilt from durable store")
	return nil
}

func (s *paymentService) beginSettle(sessionID string) bool {
	s.settlingMu.Lock()
	defer s.settlingMu.Unlock()
	if s.settling[sessionID] {
		return false
	}
	s.settling[sessionID] = true
	return true
}

func (s *paymentService) endSettle(sessionID string) {
	s.settlingMu.Lock()
	defer s.settlingMu.Unlock()
	delete(s.settling, sessionID)
}

func (s *paymentService) broadcast(sessionID string) {
	if s.broadcaster == nil {
		return
	}
	if session, err := s.store.Get(sessionID); err == nil {
		s.broadcaster.BroadcastSession(s.view(&session))
	}
}

func (s *paymentService) view(session *domain.PaymentSession) domain.SessionView {
	return domain.SessionView{
		SessionID:      session.SessionID,
		SubjectID:      session.SubjectID,
		Kind:           session.Kind,
		ExpectedAmount: session.ExpectedAmount,
		AmountSOL:      config.LamportsToSOL(session.ExpectedAmount),
		CustodialAddr:  session.CustodialAddr,
		Status:         session.Status,
		ExpiresAt:      session.ExpiresAt,
	}
}
