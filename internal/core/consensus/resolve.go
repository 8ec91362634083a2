package consensus

import (
	"time"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type State string

const (
	StateAwaitingQuorum State = "awaiting_quorum"
	StateFinalized      State = "finalized"
	StateFinalizedSet   State = "finalized_set"
	StateNoCommonTime   State = "no_common_time"
)

// Outcome is the decision derived from one snapshot. MissedDeadline and
// ReminderDue are flags that can accompany any state.
type Outcome struct {
	State          State         `json:"state"`
	Winners        []domain.Slot `json:"winners,omitempty"`
	MissedDeadline bool          `json:"missed_deadline"`
	ReminderDue    bool          `json:"reminder_due"`
	Voters         int           `json:"voters"`
	Invitees       int           `json:"invitees"`
}

type Input struct {
	Tally    Tally
	Voters   int
	Invitees int
	Mode     domain.Mode
	Deadline *time.Time
	Now      time.Time
	// ReminderWindow is how long before the deadline a reminder becomes due.
	// Zero disables reminders.
	ReminderWindow time.Duration
}

func Resolve(in Input) Outcome {
	out := Outcome{
		State:    StateAwaitingQuorum,
		Voters:   in.Voters,
		Invitees: in.Invitees,
	}

	short := in.Voters < in.Invitees
	if in.Deadline != nil && short {
		deadline := *in.Deadline
		out.MissedDeadline = in.Now.After(deadline)
		out.ReminderDue = in.ReminderWindow > 0 &&
			!in.Now.After(deadline) &&
			!in.Now.Before(deadline.Add(-in.ReminderWindow))
	}

	if in.Invitees == 0 || in.Voters != in.Invitees {
		return out
	}

	switch in.Mode {
	case domain.ModeMultiSlotUnanimous:
		for _, sc := range in.Tally {
			if sc.Count == in.Voters {
				out.Winners = append(out.Winners, sc.Slot)
			}
		}
		if len(out.Winners) == 0 {
			out.State = StateNoCommonTime
			return out
		}
		out.State = StateFinalizedSet
	default:
		best := -1
		for i, sc := range in.Tally {
			// strict comparison keeps the earliest candidate on ties
			if best < 0 || sc.Count > in.Tally[best].Count {
				best = i
			}
		}
		if best < 0 || in.Tally[best].Count != in.Voters {
			out.State = StateNoCommonTime
			return out
		}
		out.State = StateFinalized
		out.Winners = []domain.Slot{in.Tally[best].Slot}
	}
	return out
}

// Evaluate runs the aggregator and resolver over a poll snapshot.
func Evaluate(poll *domain.Poll, now time.Time, reminderWindow time.Duration) (Outcome, map[string]domain.Vote) {
	deduped := Dedupe(poll.Votes)
	tally := TallyVotes(deduped, poll.Slots)
	return Resolve(Input{
		Tally:          tally,
		Voters:         len(deduped),
		Invitees:       len(poll.Invitees),
		Mode:           poll.Mode,
		Deadline:       poll.Deadline,
		Now:            now,
		ReminderWindow: reminderWindow,
	}), deduped
}
