package payments

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/solsight/paygate/internal/domain"
	"github.com/solsight/paygate/internal/domain/interfaces"
	"github.com/solsight/paygate/internal/repositories/sessionrepo"
	"github.com/solsight/paygate/pkg/config"
)

// Sweeper prunes unpaid, time-expired sessions from the registry on a fixed
// interval. Sessions that are paid or settled are never touched; their secret
// material may still be needed for the treasury sweep.
type Sweeper struct {
	store       *SessionStore
	repo        sessionrepo.ISessionRepository
	broadcaster interfaces.StatusBroadcaster
	interval    time.Duration
	logger      zerolog.Logger
}

func NewSweeper(
	store *SessionStore,
	repo sessionrepo.ISessionRepository,
	broadcaster interfaces.StatusBroadcaster,
	cfg config.SessionConfig,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		store:       store,
		repo:        repo,
		broadcaster: broadcaster,
		interval:    cfg.SweepInterval,
		logger:      logger,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().
		Dur("interval", w.interval).
		Msg("Expiry sweeper started")

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			w.logger.Info().Msg("Expiry sweeper stopped")
			return
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	removed := w.store.SweepExpired(time.Now())
	if len(removed) == 0 {
		return
	}

	for i := range removed {
		session := removed[i]
		if err := w.repo.UpdateStatus(ctx, session.SessionID, domain.SessionStatusExpired, ""); err != nil {
			w.logger.Error().
				Err(err).
				Str("session_id", session.SessionID).
				Msg("Failed to record expired status durably")
		}
		if w.broadcaster != nil {
			w.broadcaster.BroadcastSession(domain.SessionView{
				SessionID:      session.SessionID,
				SubjectID:      session.SubjectID,
				Kind:           session.Kind,
				ExpectedAmount: session.ExpectedAmount,
				AmountSOL:      config.LamportsToSOL(session.ExpectedAmount),
				CustodialAddr:  session.CustodialAddr,
				Status:         domain.SessionStatusExpired,
				ExpiresAt:      session.ExpiresAt,
			})
		}
	}

	w.logger.Info().
		Int("removed_count", len(removed)).
		Msg("Expired sessions pruned")
}
