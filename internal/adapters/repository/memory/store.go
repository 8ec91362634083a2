// Package memory is an in-process poll store. It hands out copies only, so
// callers observe it the way they would a remote document store, and it
// makes every claim atomic under a single mutex.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type Store struct {
	mu    sync.Mutex
	polls map[uuid.UUID]*domain.Poll
}

func NewStore() *Store {
	return &Store{polls: make(map[uuid.UUID]*domain.Poll)}
}

func (s *Store) Save(_ context.Context, poll *domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clonePoll(poll)
	if cp.Ledger == nil {
		cp.Ledger = domain.OutcomeLedger{}
	}
	s.polls[poll.ID] = cp
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return clonePoll(poll), nil
}

func (s *Store) ListUnsettled(_ context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, poll := range s.polls {
		if !poll.Settled() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids, nil
}

func (s *Store) UpdateSettings(_ context.Context, id uuid.UUID, settings ports.PollSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	if settings.Mode != nil {
		poll.Mode = *settings.Mode
	}
	if settings.ClearDeadline {
		poll.Deadline = nil
	} else if settings.Deadline != nil {
		d := *settings.Deadline
		poll.Deadline = &d
	}
	return nil
}

func (s *Store) UpsertVote(_ context.Context, pollID uuid.UUID, vote domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	vote = cloneVote(vote)
	for i := range poll.Votes {
		if poll.Votes[i].VoterKey == vote.VoterKey {
			poll.Votes[i] = vote
			return nil
		}
	}
	poll.Votes = append(poll.Votes, vote)
	return nil
}

// AppendRawVote stores a vote without the upsert-by-key rule, the way a
// legacy record with duplicate identities would look.
func (s *Store) AppendRawVote(pollID uuid.UUID, vote domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	poll.Votes = append(poll.Votes, cloneVote(vote))
	return nil
}

func (s *Store) AttemptClaim(_ context.Context, pollID uuid.UUID, claim domain.Claim, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return false, domain.ErrPollNotFound
	}
	if claim.Conflicts(poll.Ledger) {
		return false, nil
	}
	poll.Ledger[claim.Key] = at
	return true, nil
}

func clonePoll(p *domain.Poll) *domain.Poll {
	cp := *p
	cp.Slots = append([]domain.Slot(nil), p.Slots...)
	cp.Invitees = append([]domain.Invitee(nil), p.Invitees...)
	if p.Deadline != nil {
		d := *p.Deadline
		cp.Deadline = &d
	}
	cp.Votes = make([]domain.Vote, len(p.Votes))
	for i, v := range p.Votes {
		cp.Votes[i] = cloneVote(v)
	}
	cp.Ledger = make(domain.OutcomeLedger, len(p.Ledger))
	for k, v := range p.Ledger {
		cp.Ledger[k] = v
	}
	return &cp
}

func cloneVote(v domain.Vote) domain.Vote {
	v.SlotStarts = append([]time.Time(nil), v.SlotStarts...)
	return v
}
