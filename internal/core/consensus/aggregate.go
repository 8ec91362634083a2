package consensus

import (
	"time"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

// Dedupe collapses votes to one per voter identity. Votes are visited in
// storage order and a later vote for the same identity replaces the earlier
// one. Storage order is the only recency signal used; vote timestamps are not
// compared.
func Dedupe(votes []domain.Vote) map[string]domain.Vote {
	deduped := make(map[string]domain.Vote, len(votes))
	for _, v := range votes {
		deduped[v.IdentityKey()] = v
	}
	return deduped
}

// SlotCount is the number of deduped voters that selected Slot.
type SlotCount struct {
	Slot  domain.Slot
	Count int
}

// Tally holds one entry per candidate slot, in candidate order.
type Tally []SlotCount

// Count returns the support for the slot starting at start, or 0 for an unknown slot.
func (t Tally) Count(start time.Time) int {
	for _, sc := range t {
		if sc.Slot.Start.Equal(start) {
			return sc.Count
		}
	}
	return 0
}

// Counts is the tally keyed by slot start in RFC3339 UTC form.
func (t Tally) Counts() map[string]int {
	out := make(map[string]int, len(t))
	for _, sc := range t {
		out[sc.Slot.Start.UTC().Format(time.RFC3339)] = sc.Count
	}
	return out
}

func TallyVotes(deduped map[string]domain.Vote, slots []domain.Slot) Tally {
	tally := make(Tally, len(slots))
	for i, slot := range slots {
		tally[i].Slot = slot
		for _, v := range deduped {
			if v.Selects(slot.Start) {
				tally[i].Count++
			}
		}
	}
	return tally
}
