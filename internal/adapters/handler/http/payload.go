package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type slotPayload struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (s slotPayload) toDomain() domain.Slot {
	return domain.Slot{Start: s.Start, Duration: time.Duration(s.DurationMinutes) * time.Minute}
}

func toSlotPayloads(slots []domain.Slot) []slotPayload {
	out := make([]slotPayload, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotPayload{Start: s.Start.UTC(), DurationMinutes: int(s.Duration / time.Minute)})
	}
	return out
}

type inviteePayload struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type voteView struct {
	Name       string      `json:"name,omitempty"`
	SlotStarts []time.Time `json:"slot_starts"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// pollResponse never carries invitee tokens.
type pollResponse struct {
	ID            uuid.UUID            `json:"id"`
	Title         string               `json:"title"`
	Organizer     domain.Organizer     `json:"organizer"`
	Slots         []slotPayload        `json:"slots"`
	Mode          domain.Mode          `json:"mode"`
	Deadline      *time.Time           `json:"deadline,omitempty"`
	Invitees      []inviteePayload     `json:"invitees"`
	Votes         []voteView           `json:"votes"`
	OutcomeLedger map[string]time.Time `json:"outcome_ledger"`
	CreatedAt     time.Time            `json:"created_at"`
}

func toPollResponse(p *domain.Poll) pollResponse {
	resp := pollResponse{
		ID:            p.ID,
		Title:         p.Title,
		Organizer:     p.Organizer,
		Slots:         toSlotPayloads(p.Slots),
		Mode:          p.Mode,
		Deadline:      p.Deadline,
		Invitees:      make([]inviteePayload, 0, len(p.Invitees)),
		Votes:         make([]voteView, 0, len(p.Votes)),
		OutcomeLedger: map[string]time.Time(p.Ledger),
		CreatedAt:     p.CreatedAt,
	}
	if resp.OutcomeLedger == nil {
		resp.OutcomeLedger = map[string]time.Time{}
	}
	for _, inv := range p.Invitees {
		resp.Invitees = append(resp.Invitees, inviteePayload{Email: inv.Email, Name: inv.Name, Timezone: inv.Timezone})
	}
	for _, v := range p.Votes {
		resp.Votes = append(resp.Votes, voteView{Name: v.Identity.Name, SlotStarts: v.SlotStarts, UpdatedAt: v.UpdatedAt})
	}
	return resp
}
