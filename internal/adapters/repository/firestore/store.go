// Package firestore keeps each poll in a single document so that one
// Firestore transaction covers a claim's read, check and append.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

const DefaultCollection = "polls"

type Store struct {
	client     *firestore.Client
	collection string
}

func NewStore(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection}
}

var (
	_ ports.PollRepository = (*Store)(nil)
	_ ports.VoteRepository = (*Store)(nil)
	_ ports.ClaimStore     = (*Store)(nil)
)

func (s *Store) doc(id uuid.UUID) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id.String())
}

func (s *Store) Save(ctx context.Context, poll *domain.Poll) error {
	if _, err := s.doc(poll.ID).Set(ctx, toPollDoc(poll)); err != nil {
		return wrap("save poll", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	snap, err := s.doc(id).Get(ctx)
	if err != nil {
		return nil, wrap("get poll", err)
	}
	var doc pollDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode poll %s: %w", id, err)
	}
	return doc.toDomain(id), nil
}

func (s *Store) ListUnsettled(ctx context.Context) ([]uuid.UUID, error) {
	snaps, err := s.client.Collection(s.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap("list polls", err)
	}

	var ids []uuid.UUID
	for _, snap := range snaps {
		id, err := uuid.Parse(snap.Ref.ID)
		if err != nil {
			continue
		}
		var doc pollDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode poll %s: %w", id, err)
		}
		if !doc.toDomain(id).Settled() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) UpdateSettings(ctx context.Context, id uuid.UUID, settings ports.PollSettings) error {
	var updates []firestore.Update
	if settings.Mode != nil {
		updates = append(updates, firestore.Update{Path: "mode", Value: string(*settings.Mode)})
	}
	switch {
	case settings.ClearDeadline:
		updates = append(updates, firestore.Update{Path: "deadline", Value: nil})
	case settings.Deadline != nil:
		updates = append(updates, firestore.Update{Path: "deadline", Value: settings.Deadline.UTC()})
	}
	if len(updates) == 0 {
		_, err := s.doc(id).Get(ctx)
		return wrap("get poll", err)
	}
	if _, err := s.doc(id).Update(ctx, updates); err != nil {
		return wrap("update poll settings", err)
	}
	return nil
}

// UpsertVote replaces the vote under the same voter key in place, or appends it.
func (s *Store) UpsertVote(ctx context.Context, pollID uuid.UUID, vote domain.Vote) error {
	ref := s.doc(pollID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc pollDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		replaced := false
		for i := range doc.Votes {
			if doc.Votes[i].VoterKey == vote.VoterKey {
				doc.Votes[i] = toVoteDoc(vote)
				replaced = true
				break
			}
		}
		if !replaced {
			doc.Votes = append(doc.Votes, toVoteDoc(vote))
		}
		return tx.Update(ref, []firestore.Update{{Path: "votes", Value: doc.Votes}})
	})
	if err != nil {
		return wrap("save vote", err)
	}
	return nil
}

// AttemptClaim checks the ledger and adds the key in one transaction.
// Firestore retries the function on contention, and a retry observes the
// concurrent winner's entry.
func (s *Store) AttemptClaim(ctx context.Context, pollID uuid.UUID, claim domain.Claim, at time.Time) (bool, error) {
	ref := s.doc(pollID)
	var won bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		won = false
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc pollDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		if claim.Conflicts(domain.OutcomeLedger(doc.OutcomeLedger)) {
			return nil
		}
		won = true
		return tx.Update(ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{"outcomeLedger", claim.Key}, Value: at.UTC()},
		})
	})
	if err != nil {
		return false, wrap("claim "+claim.Key, err)
	}
	return won, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return domain.ErrPollNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
