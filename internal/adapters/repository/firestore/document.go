package firestore

import (
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

// pollDoc is the stored shape of a poll. Votes live in an array so the
// document keeps their storage order.
type pollDoc struct {
	Title         string               `firestore:"title"`
	Organizer     organizerDoc         `firestore:"organizer"`
	Slots         []slotDoc            `firestore:"slots"`
	Mode          string               `firestore:"mode"`
	Deadline      *time.Time           `firestore:"deadline"`
	Invitees      []inviteeDoc         `firestore:"invitees"`
	Votes         []voteDoc            `firestore:"votes"`
	OutcomeLedger map[string]time.Time `firestore:"outcomeLedger"`
	CreatedAt     time.Time            `firestore:"createdAt"`
}

type organizerDoc struct {
	Name     string `firestore:"name"`
	Email    string `firestore:"email"`
	Timezone string `firestore:"timezone"`
}

type slotDoc struct {
	Start           time.Time `firestore:"start"`
	DurationSeconds int64     `firestore:"durationSeconds"`
}

type inviteeDoc struct {
	Email    string `firestore:"email"`
	Name     string `firestore:"name"`
	Timezone string `firestore:"timezone"`
	Token    string `firestore:"token"`
}

type voteDoc struct {
	VoterKey   string      `firestore:"voterKey"`
	SlotStarts []time.Time `firestore:"slotStarts"`
	Email      string      `firestore:"email"`
	Name       string      `firestore:"name"`
	Token      string      `firestore:"token"`
	UpdatedAt  time.Time   `firestore:"updatedAt"`
}

func toPollDoc(poll *domain.Poll) pollDoc {
	doc := pollDoc{
		Title: poll.Title,
		Organizer: organizerDoc{
			Name:     poll.Organizer.Name,
			Email:    poll.Organizer.Email,
			Timezone: poll.Organizer.Timezone,
		},
		Mode:          string(poll.Mode),
		Deadline:      poll.Deadline,
		OutcomeLedger: map[string]time.Time{},
		CreatedAt:     poll.CreatedAt,
	}
	for _, s := range poll.Slots {
		doc.Slots = append(doc.Slots, slotDoc{Start: s.Start.UTC(), DurationSeconds: int64(s.Duration / time.Second)})
	}
	for _, inv := range poll.Invitees {
		doc.Invitees = append(doc.Invitees, inviteeDoc(inv))
	}
	for _, v := range poll.Votes {
		doc.Votes = append(doc.Votes, toVoteDoc(v))
	}
	for k, at := range poll.Ledger {
		doc.OutcomeLedger[k] = at
	}
	return doc
}

func toVoteDoc(v domain.Vote) voteDoc {
	starts := make([]time.Time, 0, len(v.SlotStarts))
	for _, s := range v.SlotStarts {
		starts = append(starts, s.UTC())
	}
	return voteDoc{
		VoterKey:   v.VoterKey,
		SlotStarts: starts,
		Email:      v.Identity.Email,
		Name:       v.Identity.Name,
		Token:      v.Identity.Token,
		UpdatedAt:  v.UpdatedAt,
	}
}

func (d pollDoc) toDomain(id uuid.UUID) *domain.Poll {
	poll := &domain.Poll{
		ID:    id,
		Title: d.Title,
		Organizer: domain.Organizer{
			Name:     d.Organizer.Name,
			Email:    d.Organizer.Email,
			Timezone: d.Organizer.Timezone,
		},
		Mode:      domain.Mode(d.Mode),
		Ledger:    domain.OutcomeLedger{},
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.Deadline != nil {
		deadline := d.Deadline.UTC()
		poll.Deadline = &deadline
	}
	for _, s := range d.Slots {
		poll.Slots = append(poll.Slots, domain.Slot{Start: s.Start.UTC(), Duration: time.Duration(s.DurationSeconds) * time.Second})
	}
	for _, inv := range d.Invitees {
		poll.Invitees = append(poll.Invitees, domain.Invitee(inv))
	}
	for _, v := range d.Votes {
		vote := domain.Vote{
			VoterKey:  v.VoterKey,
			Identity:  domain.Identity{Email: v.Email, Name: v.Name, Token: v.Token},
			UpdatedAt: v.UpdatedAt.UTC(),
		}
		for _, s := range v.SlotStarts {
			vote.SlotStarts = append(vote.SlotStarts, s.UTC())
		}
		poll.Votes = append(poll.Votes, vote)
	}
	for k, at := range d.OutcomeLedger {
		poll.Ledger[k] = at.UTC()
	}
	return poll
}
