package firestore

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

var t0 = time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC)

func samplePoll() *domain.Poll {
	deadline := t0.Add(24 * time.Hour)
	return &domain.Poll{
		ID:        uuid.New(),
		Title:     "Retro",
		Organizer: domain.Organizer{Name: "Ana", Email: "ana@example.com", Timezone: "Europe/Lisbon"},
		Slots: []domain.Slot{
			{Start: t0, Duration: time.Hour},
			{Start: t0.Add(time.Hour), Duration: 45 * time.Minute},
		},
		Mode:     domain.ModeSingleBest,
		Deadline: &deadline,
		Invitees: []domain.Invitee{{Email: "b@example.com", Name: "B", Token: "tok-b"}},
		Votes: []domain.Vote{{
			VoterKey:   "tok-b",
			SlotStarts: []time.Time{t0.Add(time.Hour)},
			Identity:   domain.Identity{Email: "b@example.com", Name: "B", Token: "tok-b"},
			UpdatedAt:  t0,
		}},
		Ledger:    domain.OutcomeLedger{domain.KeyReminderSent: t0},
		CreatedAt: t0.Add(-time.Hour),
	}
}

func TestDocumentConversion(t *testing.T) {
	poll := samplePoll()

	got := toPollDoc(poll).toDomain(poll.ID)

	assert.Equal(t, poll, got)
}

func TestDocumentConversionWithoutDeadline(t *testing.T) {
	poll := samplePoll()
	poll.Deadline = nil
	poll.Votes = nil
	poll.Ledger = domain.OutcomeLedger{}

	got := toPollDoc(poll).toDomain(poll.ID)

	assert.Nil(t, got.Deadline)
	assert.Empty(t, got.Votes)
	assert.NotNil(t, got.Ledger)
}

// The remaining tests need a Firestore emulator.
func emulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, "slotpoll-test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewStore(client, "polls-"+uuid.NewString())
}

func TestStoreAgainstEmulator(t *testing.T) {
	store := emulatorStore(t)
	ctx := context.Background()

	poll := samplePoll()
	poll.Votes = nil
	poll.Ledger = nil
	require.NoError(t, store.Save(ctx, poll))

	t.Run("upsert keeps position", func(t *testing.T) {
		a := domain.Vote{VoterKey: "tok-a", Identity: domain.Identity{Token: "tok-a"}, UpdatedAt: t0}
		b := domain.Vote{VoterKey: "tok-b", Identity: domain.Identity{Token: "tok-b"}, UpdatedAt: t0}
		require.NoError(t, store.UpsertVote(ctx, poll.ID, a))
		require.NoError(t, store.UpsertVote(ctx, poll.ID, b))
		a.SlotStarts = []time.Time{t0}
		require.NoError(t, store.UpsertVote(ctx, poll.ID, a))

		got, err := store.GetByID(ctx, poll.ID)
		require.NoError(t, err)
		require.Len(t, got.Votes, 2)
		assert.Equal(t, "tok-a", got.Votes[0].VoterKey)
		assert.Equal(t, []time.Time{t0}, got.Votes[0].SlotStarts)
	})

	t.Run("concurrent claims have one winner", func(t *testing.T) {
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				won, err := store.AttemptClaim(ctx, poll.ID, domain.Claim{Key: domain.KeyMissedDeadline}, t0)
				assert.NoError(t, err)
				if won {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("finalized poll is not listed", func(t *testing.T) {
		won, err := store.AttemptClaim(ctx, poll.ID, domain.Claim{Key: domain.FinalizedKey(t0), ExclusivePrefix: domain.KeyPrefixFinalized}, t0)
		require.NoError(t, err)
		assert.True(t, won)

		ids, err := store.ListUnsettled(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, poll.ID)
	})

	t.Run("unknown poll", func(t *testing.T) {
		_, err := store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrPollNotFound)
	})
}
