package services

import (
	"context"
	"strings"
	"time"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type voteService struct {
	pollRepo ports.PollRepository
	voteRepo ports.VoteRepository
	clock    ports.Clock
}

func NewVoteService(pollRepo ports.PollRepository, voteRepo ports.VoteRepository, clock ports.Clock) ports.VoteService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &voteService{
		pollRepo: pollRepo,
		voteRepo: voteRepo,
		clock:    clock,
	}
}

// Vote upserts the invitee's selection under their token. The invitee's
// organizer-assigned email becomes the vote identity, so the same person
// voting from two tokens still dedupes to one voter.
func (s *voteService) Vote(ctx context.Context, input ports.VoteInput) error {
	poll, err := s.pollRepo.GetByID(ctx, input.PollID)
	if err != nil {
		return err
	}

	invitee, ok := poll.InviteeByToken(input.InviteeToken)
	if !ok {
		return domain.ErrUnknownInvitee
	}

	starts := make([]time.Time, 0, len(input.SlotStarts))
	seen := make(map[int64]bool, len(input.SlotStarts))
	for _, start := range input.SlotStarts {
		idx := poll.SlotIndex(start)
		if idx < 0 {
			return domain.NewValidationError("slot_starts", "unknown slot "+start.UTC().Format(time.RFC3339))
		}
		canonical := poll.Slots[idx].Start
		if seen[canonical.Unix()] {
			continue
		}
		seen[canonical.Unix()] = true
		starts = append(starts, canonical)
	}

	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		name = invitee.Name
	}

	vote := domain.Vote{
		VoterKey:   invitee.Token,
		SlotStarts: starts,
		Identity: domain.Identity{
			Email: invitee.Email,
			Name:  name,
			Token: invitee.Token,
		},
		UpdatedAt: s.clock.Now().UTC(),
	}

	return s.voteRepo.UpsertVote(ctx, poll.ID, vote)
}
