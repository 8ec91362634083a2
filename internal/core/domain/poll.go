package domain

import (
	"time"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeSingleBest         Mode = "single_best"
	ModeMultiSlotUnanimous Mode = "multi_slot_unanimous"
)

func (m Mode) Valid() bool {
	return m == ModeSingleBest || m == ModeMultiSlotUnanimous
}

type Poll struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	Organizer Organizer     `json:"organizer"`
	Slots     []Slot        `json:"slots"`
	Mode      Mode          `json:"mode"`
	Deadline  *time.Time    `json:"deadline,omitempty"`
	Invitees  []Invitee     `json:"invitees"`
	Votes     []Vote        `json:"votes"`
	Ledger    OutcomeLedger `json:"outcome_ledger"`
	CreatedAt time.Time     `json:"created_at"`
}

type Organizer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

// Slot is a candidate meeting time. Start identifies the slot within its poll.
type Slot struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

type Invitee struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Token    string `json:"-"`
}

// SlotIndex returns the position of the slot starting at start, or -1.
func (p *Poll) SlotIndex(start time.Time) int {
	for i, s := range p.Slots {
		if s.Start.Equal(start) {
			return i
		}
	}
	return -1
}

// InviteeByToken looks an invitee up by the token handed out with their invitation.
func (p *Poll) InviteeByToken(token string) (Invitee, bool) {
	if token == "" {
		return Invitee{}, false
	}
	for _, inv := range p.Invitees {
		if inv.Token == token {
			return inv, true
		}
	}
	return Invitee{}, false
}

// Decided reports whether any decision is on the ledger. The check ignores
// the current mode so that a later mode change cannot reopen the poll.
func (p *Poll) Decided() bool {
	return p.Ledger.HasPrefix(KeyPrefixFinalized) ||
		p.Ledger.HasPrefix(KeyPrefixMultiFinalizedSet) ||
		p.Ledger.HasPrefix(KeyPrefixMultiFinalized)
}

// PendingDecisionSlots returns the slots of the recorded MultiSlot decision
// whose per-slot key has not been claimed yet.
func (p *Poll) PendingDecisionSlots() []Slot {
	starts, ok := p.Ledger.MultiFinalizedSet()
	if !ok {
		return nil
	}
	var pending []Slot
	for _, start := range starts {
		idx := p.SlotIndex(start)
		if idx < 0 || p.Ledger.Has(MultiFinalizedKey(start)) {
			continue
		}
		pending = append(pending, p.Slots[idx])
	}
	return pending
}

// Settled reports whether the poll is decided and every slot of its
// decision has been claimed.
func (p *Poll) Settled() bool {
	return p.Ledger.Settled()
}
