package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/consensus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

// ClaimStore writes outcome ledger entries. AttemptClaim must read the ledger,
// check the claim and append the key in one atomic transaction. It returns
// false, nil when another evaluator already holds the key.
type ClaimStore interface {
	AttemptClaim(ctx context.Context, pollID uuid.UUID, claim domain.Claim, at time.Time) (bool, error)
}

// Dispatcher delivers notifications for won claims. A returned error is
// terminal for that claim.
type Dispatcher interface {
	Dispatch(ctx context.Context, n domain.Notification) error
}

type Clock interface {
	Now() time.Time
}

type TickReport struct {
	PollID      uuid.UUID         `json:"poll_id"`
	Outcome     consensus.Outcome `json:"outcome"`
	Tally       map[string]int    `json:"tally"`
	Ledger      []string          `json:"ledger"`
	Claimed     []string          `json:"claimed,omitempty"`
	Lost        []string          `json:"lost,omitempty"`
	Failed      []string          `json:"dispatch_failed,omitempty"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
}

// Evaluator runs one full aggregate, resolve, claim and dispatch pass.
type Evaluator interface {
	Tick(ctx context.Context, pollID uuid.UUID) (*TickReport, error)
}

type SweepService interface {
	SweepUndecided(ctx context.Context) error
}
