package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

var t0 = time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func slot(hours int) domain.Slot {
	return domain.Slot{Start: t0.Add(time.Duration(hours) * time.Hour), Duration: 45 * time.Minute}
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// recordingDispatcher counts dispatches per outcome key.
type recordingDispatcher struct {
	mu    sync.Mutex
	byKey map[string]int
	sent  []domain.Notification
}

func newRecorder() *recordingDispatcher {
	return &recordingDispatcher{byKey: make(map[string]int)}
}

func (r *recordingDispatcher) Dispatch(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[n.Key]++
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingDispatcher) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKey[key]
}

func (r *recordingDispatcher) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// unavailableStore fails every read and claim.
type unavailableStore struct {
	*memory.Store
	failReads  bool
	failClaims bool
}

func (u *unavailableStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	if u.failReads {
		return nil, domain.ErrStoreUnavailable
	}
	return u.Store.GetByID(ctx, id)
}

func (u *unavailableStore) AttemptClaim(ctx context.Context, id uuid.UUID, c domain.Claim, at time.Time) (bool, error) {
	if u.failClaims {
		return false, domain.ErrStoreUnavailable
	}
	return u.Store.AttemptClaim(ctx, id, c, at)
}

// flakyClaims fails the failAt-th AttemptClaim (1-based) and passes every other.
type flakyClaims struct {
	*memory.Store
	mu     sync.Mutex
	calls  int
	failAt int
}

func (f *flakyClaims) AttemptClaim(ctx context.Context, id uuid.UUID, c domain.Claim, at time.Time) (bool, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls == f.failAt
	f.mu.Unlock()
	if fail {
		return false, domain.ErrStoreUnavailable
	}
	return f.Store.AttemptClaim(ctx, id, c, at)
}

type fixture struct {
	store *memory.Store
	poll  *domain.Poll
}

func newFixture(t *testing.T, mode domain.Mode, slots []domain.Slot, invitees ...string) *fixture {
	t.Helper()
	poll := &domain.Poll{
		ID:        uuid.New(),
		Title:     "Quarterly planning",
		Organizer: domain.Organizer{Name: "Olga", Email: "olga@example.com", Timezone: "Europe/Berlin"},
		Slots:     slots,
		Mode:      mode,
	}
	for _, email := range invitees {
		poll.Invitees = append(poll.Invitees, domain.Invitee{Email: email, Name: email, Token: "tok-" + email})
	}
	store := memory.NewStore()
	require.NoError(t, store.Save(context.Background(), poll))
	return &fixture{store: store, poll: poll}
}

func (f *fixture) vote(t *testing.T, email string, slots ...domain.Slot) {
	t.Helper()
	v := domain.Vote{
		VoterKey: "tok-" + email,
		Identity: domain.Identity{Email: email, Token: "tok-" + email},
	}
	for _, s := range slots {
		v.SlotStarts = append(v.SlotStarts, s.Start)
	}
	require.NoError(t, f.store.UpsertVote(context.Background(), f.poll.ID, v))
}

func (f *fixture) ledger(t *testing.T) domain.OutcomeLedger {
	t.Helper()
	snap, err := f.store.GetByID(context.Background(), f.poll.ID)
	require.NoError(t, err)
	return snap.Ledger
}

func newTestDriver(polls ports.PollRepository, claims ports.ClaimStore, d ports.Dispatcher, now time.Time) *Driver {
	clock := fixedClock{now: now}
	guard := NewClaimGuard(claims, clock, zerolog.Nop(), nil)
	return NewDriver(polls, guard, d, clock, DriverConfig{Interval: 5 * time.Millisecond, ReminderWindow: 24 * time.Hour}, zerolog.Nop(), nil)
}

// staticPolls serves one fixed snapshot, as a driver holding an old read would see it.
type staticPolls struct {
	*memory.Store
	snapshot *domain.Poll
}

func (s *staticPolls) GetByID(context.Context, uuid.UUID) (*domain.Poll, error) {
	return s.snapshot, nil
}
