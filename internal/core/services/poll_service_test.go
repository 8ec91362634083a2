package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

func validInput() ports.CreatePollInput {
	return ports.CreatePollInput{
		Title:     "Offsite",
		Organizer: domain.Organizer{Name: "Olga", Email: "Olga@Example.com"},
		Slots:     []domain.Slot{slot(0), slot(1)},
		Invitees:  []domain.Invitee{{Email: "A@x.io", Name: "Ann"}, {Email: "b@x.io", Token: "given"}},
	}
}

func TestPollService_Create(t *testing.T) {
	store := memory.NewStore()
	svc := NewPollService(store, fixedClock{now: t0})

	poll, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.ModeSingleBest, poll.Mode)
	assert.Equal(t, t0, poll.CreatedAt)
	assert.Equal(t, "a@x.io", poll.Invitees[0].Email)
	assert.NotEmpty(t, poll.Invitees[0].Token)
	assert.Equal(t, "given", poll.Invitees[1].Token)

	stored, err := svc.GetPoll(context.Background(), poll.ID.String())
	require.NoError(t, err)
	assert.Equal(t, poll.Title, stored.Title)
	assert.Empty(t, stored.Ledger)
}

func TestPollService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ports.CreatePollInput)
	}{
		{"missing title", func(in *ports.CreatePollInput) { in.Title = " " }},
		{"missing organizer", func(in *ports.CreatePollInput) { in.Organizer.Email = "" }},
		{"unknown mode", func(in *ports.CreatePollInput) { in.Mode = "ranked" }},
		{"no slots", func(in *ports.CreatePollInput) { in.Slots = nil }},
		{"duplicate slot", func(in *ports.CreatePollInput) { in.Slots = []domain.Slot{slot(0), slot(0)} }},
		{"zero duration", func(in *ports.CreatePollInput) { in.Slots = []domain.Slot{{Start: t0}} }},
		{"no invitees", func(in *ports.CreatePollInput) { in.Invitees = nil }},
		{"duplicate invitee", func(in *ports.CreatePollInput) {
			in.Invitees = []domain.Invitee{{Email: "a@x.io"}, {Email: " A@X.io"}}
		}},
		{"invitee without email", func(in *ports.CreatePollInput) { in.Invitees = []domain.Invitee{{Name: "Ann"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := NewPollService(memory.NewStore(), nil).Create(context.Background(), in)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
}

func TestPollService_UpdateSettings(t *testing.T) {
	ctx := context.Background()
	svc := NewPollService(memory.NewStore(), fixedClock{now: t0})
	poll, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	mode := domain.ModeMultiSlotUnanimous
	deadline := t0.Add(48 * time.Hour)

	_, err = svc.UpdateSettings(ctx, poll.ID.String(), "mallory@x.io", ports.PollSettings{Mode: &mode})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.UpdateSettings(ctx, poll.ID.String(), "olga@example.com", ports.PollSettings{Mode: &mode, Deadline: &deadline})
	require.NoError(t, err)
	assert.Equal(t, mode, updated.Mode)
	assert.True(t, updated.Deadline.Equal(deadline))

	bad := domain.Mode("nope")
	_, err = svc.UpdateSettings(ctx, poll.ID.String(), "olga@example.com", ports.PollSettings{Mode: &bad})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.GetPoll(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidPollID)
	_, err = svc.GetPoll(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestPollService_ModeLockedOnceDecided(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewPollService(store, fixedClock{now: t0})
	poll, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	won, err := store.AttemptClaim(ctx, poll.ID, domain.Claim{
		Key:             domain.FinalizedKey(poll.Slots[0].Start),
		ExclusivePrefix: domain.KeyPrefixFinalized,
	}, t0)
	require.NoError(t, err)
	require.True(t, won)

	multi := domain.ModeMultiSlotUnanimous
	_, err = svc.UpdateSettings(ctx, poll.ID.String(), "olga@example.com", ports.PollSettings{Mode: &multi})
	assert.ErrorIs(t, err, domain.ErrPollDecided)

	// same mode and deadline edits are still allowed
	single := domain.ModeSingleBest
	deadline := t0.Add(24 * time.Hour)
	updated, err := svc.UpdateSettings(ctx, poll.ID.String(), "olga@example.com", ports.PollSettings{Mode: &single, Deadline: &deadline})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSingleBest, updated.Mode)
	assert.True(t, updated.Deadline.Equal(deadline))

	ids, err := store.ListUnsettled(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, poll.ID)
}
