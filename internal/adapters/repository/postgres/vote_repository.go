package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) UpsertVote(ctx context.Context, pollID uuid.UUID, vote domain.Vote) error {
	return upsertVote(ctx, r.db, pollID, vote)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertVote keeps the existing row, and so its storage position, when the
// voter key is already present.
func upsertVote(ctx context.Context, db execer, pollID uuid.UUID, vote domain.Vote) error {
	query := `
		INSERT INTO votes (poll_id, voter_key, slot_starts, identity_email, identity_name, identity_token, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (poll_id, voter_key) DO UPDATE
		SET slot_starts = EXCLUDED.slot_starts,
		    identity_email = EXCLUDED.identity_email,
		    identity_name = EXCLUDED.identity_name,
		    identity_token = EXCLUDED.identity_token,
		    updated_at = EXCLUDED.updated_at
	`
	starts := make(pq.Int64Array, 0, len(vote.SlotStarts))
	for _, s := range vote.SlotStarts {
		starts = append(starts, s.UTC().Unix())
	}

	_, err := db.ExecContext(ctx, query,
		pollID, vote.VoterKey, starts,
		vote.Identity.Email, vote.Identity.Name, vote.Identity.Token, vote.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrPollNotFound
		}
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}
