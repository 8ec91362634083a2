package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
	"github.com/vncsmyrnk/slotpoll/internal/metrics"
)

// ClaimGuard hands out the exclusive right to act on an outcome key. All
// mutual exclusion lives in the store transaction behind ports.ClaimStore;
// the guard keeps no state of its own, so any number of guards in any number
// of processes can race on the same poll.
type ClaimGuard struct {
	store   ports.ClaimStore
	clock   ports.Clock
	log     zerolog.Logger
	metrics *metrics.Collector
}

func NewClaimGuard(store ports.ClaimStore, clock ports.Clock, log zerolog.Logger, m *metrics.Collector) *ClaimGuard {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ClaimGuard{
		store:   store,
		clock:   clock,
		log:     log.With().Str("component", "claim_guard").Logger(),
		metrics: m,
	}
}

// Claim reports whether the caller won the claim. Losing is not an error: it
// means another evaluator owns the dispatch. A non-nil error means the store
// could not be reached and nothing was written on our behalf.
func (g *ClaimGuard) Claim(ctx context.Context, pollID uuid.UUID, kind domain.OutcomeKind, claim domain.Claim) (bool, error) {
	won, err := g.store.AttemptClaim(ctx, pollID, claim, g.clock.Now().UTC())
	if err != nil {
		g.metrics.Claim(string(kind), metrics.ResultFailed)
		return false, fmt.Errorf("claim %s on poll %s: %w", claim.Key, pollID, err)
	}
	if !won {
		g.metrics.Claim(string(kind), metrics.ResultLost)
		g.log.Debug().
			Str("poll_id", pollID.String()).
			Str("outcome_key", claim.Key).
			Err(domain.ErrRaceLost).
			Msg("claim lost")
		return false, nil
	}

	g.metrics.Claim(string(kind), metrics.ResultWon)
	g.log.Info().
		Str("poll_id", pollID.String()).
		Str("outcome_key", claim.Key).
		Msg("claim won")
	return true, nil
}
