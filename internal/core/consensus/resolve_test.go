package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

func tallyOf(counts ...int) Tally {
	t := make(Tally, len(counts))
	for i, c := range counts {
		t[i] = SlotCount{Slot: slotAt(i), Count: c}
	}
	return t
}

func TestResolve_SingleBest(t *testing.T) {
	tests := []struct {
		name    string
		tally   Tally
		voters  int
		invited int
		state   State
		winner  int
	}{
		{"unanimous slot wins", tallyOf(2, 3), 3, 3, StateFinalized, 1},
		{"plurality is not enough", tallyOf(2, 1), 3, 3, StateNoCommonTime, -1},
		{"tie goes to earliest candidate", tallyOf(1, 2, 2), 2, 2, StateFinalized, 1},
		{"no quorum", tallyOf(2, 2), 2, 3, StateAwaitingQuorum, -1},
		{"no invitees never decides", tallyOf(), 0, 0, StateAwaitingQuorum, -1},
		{"no slots", tallyOf(), 1, 1, StateNoCommonTime, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resolve(Input{
				Tally:    tt.tally,
				Voters:   tt.voters,
				Invitees: tt.invited,
				Mode:     domain.ModeSingleBest,
				Now:      base,
			})

			assert.Equal(t, tt.state, out.State)
			if tt.winner >= 0 {
				require.Len(t, out.Winners, 1)
				assert.Equal(t, slotAt(tt.winner), out.Winners[0])
			} else {
				assert.Empty(t, out.Winners)
			}
		})
	}
}

func TestResolve_MultiSlotUnanimous(t *testing.T) {
	s1, s2 := slotAt(0), slotAt(1)
	poll := &domain.Poll{
		Mode:     domain.ModeMultiSlotUnanimous,
		Slots:    []domain.Slot{s1, s2},
		Invitees: []domain.Invitee{{Email: "x@x.io"}, {Email: "y@x.io"}},
		Votes: []domain.Vote{
			vote("x", "x@x.io", "", s1, s2),
			vote("y", "y@x.io", "", s1),
		},
	}

	out, deduped := Evaluate(poll, base, 0)

	assert.Len(t, deduped, 2)
	assert.Equal(t, StateFinalizedSet, out.State)
	assert.Equal(t, []domain.Slot{s1}, out.Winners)
}

func TestResolve_MultiSlotWithoutCommonTime(t *testing.T) {
	out := Resolve(Input{
		Tally:    tallyOf(1, 1),
		Voters:   2,
		Invitees: 2,
		Mode:     domain.ModeMultiSlotUnanimous,
		Now:      base,
	})

	assert.Equal(t, StateNoCommonTime, out.State)
	assert.Empty(t, out.Winners)
}

func TestResolve_Deadline(t *testing.T) {
	deadline := base
	tests := []struct {
		name     string
		now      time.Time
		voters   int
		window   time.Duration
		missed   bool
		reminder bool
		state    State
	}{
		{"passed with missing voter", base.Add(time.Minute), 2, 0, true, false, StateAwaitingQuorum},
		{"exactly at deadline is not missed", base, 2, 24 * time.Hour, false, true, StateAwaitingQuorum},
		{"inside reminder window", base.Add(-time.Hour), 2, 24 * time.Hour, false, true, StateAwaitingQuorum},
		{"before reminder window", base.Add(-48 * time.Hour), 2, 24 * time.Hour, false, false, StateAwaitingQuorum},
		{"reminders disabled", base.Add(-time.Hour), 2, 0, false, false, StateAwaitingQuorum},
		{"everyone voted after deadline", base.Add(time.Hour), 3, 24 * time.Hour, false, false, StateFinalized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resolve(Input{
				Tally:          tallyOf(tt.voters),
				Voters:         tt.voters,
				Invitees:       3,
				Mode:           domain.ModeSingleBest,
				Deadline:       &deadline,
				Now:            tt.now,
				ReminderWindow: tt.window,
			})

			assert.Equal(t, tt.missed, out.MissedDeadline)
			assert.Equal(t, tt.reminder, out.ReminderDue)
			assert.Equal(t, tt.state, out.State)
		})
	}
}
