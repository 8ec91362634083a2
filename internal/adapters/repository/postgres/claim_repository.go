package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

const (
	defaultClaimRetries = 5
	claimRetryBase      = 10 * time.Millisecond
)

type claimRepository struct {
	db         *sql.DB
	maxRetries uint64
}

func NewClaimRepository(db *sql.DB) ports.ClaimStore {
	return &claimRepository{
		db:         db,
		maxRetries: defaultClaimRetries,
	}
}

// AttemptClaim runs the check-and-append in a serializable transaction that
// also locks the poll row. Serialization failures are retried with backoff;
// a retry re-reads the ledger, so a concurrent winner turns into a loss.
func (r *claimRepository) AttemptClaim(ctx context.Context, pollID uuid.UUID, claim domain.Claim, at time.Time) (bool, error) {
	backoff, err := retry.NewExponential(claimRetryBase)
	if err != nil {
		return false, fmt.Errorf("failed to build claim backoff: %w", err)
	}
	backoff = retry.WithMaxRetries(r.maxRetries, backoff)

	var won bool
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		won, err = r.attemptOnce(ctx, pollID, claim, at)
		if isSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			return false, err
		}
		return false, unavailable("claim "+claim.Key, err)
	}
	return won, nil
}

func (r *claimRepository) attemptOnce(ctx context.Context, pollID uuid.UUID, claim domain.Claim, at time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM polls WHERE id = $1 FOR UPDATE`, pollID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrPollNotFound
		}
		return false, err
	}

	var taken bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM poll_outcome_ledger
			WHERE poll_id = $1
			  AND (outcome_key = $2 OR ($3::text <> '' AND left(outcome_key, length($3::text)) = $3::text))
		)
	`, pollID, claim.Key, claim.ExclusivePrefix).Scan(&taken)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO poll_outcome_ledger (poll_id, outcome_key, claimed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (poll_id, outcome_key) DO NOTHING
	`, pollID, claim.Key, at.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n == 1, nil
}
