package domain

import (
	"sort"
	"strings"
	"time"
)

// OutcomeKind tags what a dispatched notification is about.
type OutcomeKind string

const (
	KindSingleFinal    OutcomeKind = "single_final"
	KindMultiFinal     OutcomeKind = "multi_final"
	KindNoCommonTime   OutcomeKind = "no_common_time"
	KindMissedDeadline OutcomeKind = "missed_deadline"
	KindReminder       OutcomeKind = "reminder"
)

const (
	KeyPrefixFinalized         = "finalized:"
	KeyPrefixMultiFinalized    = "multiFinalized:"
	KeyPrefixMultiFinalizedSet = "multiFinalizedSet:"
	KeyNoAvailability          = "noAvailabilityNotified"
	KeyMissedDeadline          = "missedDeadlineNotified"
	KeyReminderSent            = "reminderSentAt"
)

// multiSetSeparator joins slot starts inside a set key. RFC3339 never
// contains it.
const multiSetSeparator = ","

func FinalizedKey(start time.Time) string {
	return KeyPrefixFinalized + start.UTC().Format(time.RFC3339)
}

func MultiFinalizedKey(start time.Time) string {
	return KeyPrefixMultiFinalized + start.UTC().Format(time.RFC3339)
}

// MultiFinalizedSetKey records a whole MultiSlot decision in one key, with
// the starts in ascending order.
func MultiFinalizedSetKey(starts []time.Time) string {
	sorted := make([]time.Time, len(starts))
	copy(sorted, starts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	parts := make([]string, 0, len(sorted))
	for _, s := range sorted {
		parts = append(parts, s.UTC().Format(time.RFC3339))
	}
	return KeyPrefixMultiFinalizedSet + strings.Join(parts, multiSetSeparator)
}

// OutcomeLedger maps claimed outcome keys to the time they were claimed.
// Entries are only ever added.
type OutcomeLedger map[string]time.Time

func (l OutcomeLedger) Has(key string) bool {
	_, ok := l[key]
	return ok
}

func (l OutcomeLedger) HasPrefix(prefix string) bool {
	for k := range l {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// MultiFinalizedSet returns the slot starts of the recorded MultiSlot
// decision, if there is one.
func (l OutcomeLedger) MultiFinalizedSet() ([]time.Time, bool) {
	for k := range l {
		raw, ok := strings.CutPrefix(k, KeyPrefixMultiFinalizedSet)
		if !ok {
			continue
		}
		var starts []time.Time
		for _, part := range strings.Split(raw, multiSetSeparator) {
			start, err := time.Parse(time.RFC3339, part)
			if err != nil {
				continue
			}
			starts = append(starts, start.UTC())
		}
		return starts, true
	}
	return nil, false
}

// Claim is a request for the exclusive right to act on one outcome key.
// When ExclusivePrefix is set, the claim also loses if any key with that
// prefix is already on the ledger.
type Claim struct {
	Key             string
	ExclusivePrefix string
}

// Conflicts reports whether the ledger already blocks the claim.
func (c Claim) Conflicts(l OutcomeLedger) bool {
	if l.Has(c.Key) {
		return true
	}
	return c.ExclusivePrefix != "" && l.HasPrefix(c.ExclusivePrefix)
}

// Notification is what the dispatcher receives for a won claim.
type Notification struct {
	Kind       OutcomeKind `json:"outcome_kind"`
	Key        string      `json:"outcome_key"`
	Recipients []Recipient `json:"recipients"`
	Slots      []Slot      `json:"slots"`
	Poll       PollMeta    `json:"poll"`
}

type Recipient struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type PollMeta struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Mode      Mode       `json:"mode"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Organizer Organizer  `json:"organizer"`
}

// Settled reports whether the ledger holds a decision and, for a recorded
// MultiSlot set, a per-slot key for every start of the set.
func (l OutcomeLedger) Settled() bool {
	if starts, ok := l.MultiFinalizedSet(); ok {
		for _, start := range starts {
			if !l.Has(MultiFinalizedKey(start)) {
				return false
			}
		}
		return true
	}
	return l.HasPrefix(KeyPrefixFinalized) || l.HasPrefix(KeyPrefixMultiFinalized)
}
