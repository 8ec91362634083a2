package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type VoteRepository interface {
	// UpsertVote replaces the vote stored under vote.VoterKey in place, or
	// appends it. Last write wins; no transaction is used.
	UpsertVote(ctx context.Context, pollID uuid.UUID, vote domain.Vote) error
}

type VoteInput struct {
	PollID       uuid.UUID
	InviteeToken string
	DisplayName  string
	SlotStarts   []time.Time
}

type VoteService interface {
	Vote(ctx context.Context, input VoteInput) error
}
