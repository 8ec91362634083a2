package services

import (
	"time"

	"github.com/vncsmyrnk/slotpoll/internal/core/consensus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type plannedClaim struct {
	claim        domain.Claim
	notification domain.Notification
	// gate claims carry no notification. Losing one drops the claims
	// planned after it with afterGate set.
	gate      bool
	afterGate bool
}

// planClaims lists every outcome component of the current snapshot that
// still needs a claim. New decision components are planned only while the
// poll is undecided, so later vote changes can never produce a second
// decision. A recorded MultiSlot set is completed slot by slot from the
// ledger, whatever the current votes say.
func planClaims(poll *domain.Poll, outcome consensus.Outcome, deduped map[string]domain.Vote) []plannedClaim {
	var planned []plannedClaim
	add := func(kind domain.OutcomeKind, claim domain.Claim, recipients []domain.Recipient, slots []domain.Slot) {
		if claim.Conflicts(poll.Ledger) {
			return
		}
		planned = append(planned, plannedClaim{
			claim: claim,
			notification: domain.Notification{
				Kind:       kind,
				Key:        claim.Key,
				Recipients: recipients,
				Slots:      slots,
				Poll:       pollMeta(poll),
			},
		})
	}

	for _, w := range poll.PendingDecisionSlots() {
		add(domain.KindMultiFinal, domain.Claim{Key: domain.MultiFinalizedKey(w.Start)}, everyone(poll), []domain.Slot{w})
	}

	if !poll.Decided() {
		switch outcome.State {
		case consensus.StateFinalized:
			w := outcome.Winners[0]
			add(domain.KindSingleFinal,
				domain.Claim{Key: domain.FinalizedKey(w.Start), ExclusivePrefix: domain.KeyPrefixFinalized},
				everyone(poll), []domain.Slot{w})
		case consensus.StateFinalizedSet:
			starts := make([]time.Time, 0, len(outcome.Winners))
			for _, w := range outcome.Winners {
				starts = append(starts, w.Start)
			}
			planned = append(planned, plannedClaim{
				claim: domain.Claim{
					Key:             domain.MultiFinalizedSetKey(starts),
					ExclusivePrefix: domain.KeyPrefixMultiFinalizedSet,
				},
				notification: domain.Notification{Kind: domain.KindMultiFinal},
				gate:         true,
			})
			for _, w := range outcome.Winners {
				n := len(planned)
				add(domain.KindMultiFinal,
					domain.Claim{Key: domain.MultiFinalizedKey(w.Start)},
					everyone(poll), []domain.Slot{w})
				if len(planned) > n {
					planned[n].afterGate = true
				}
			}
		case consensus.StateNoCommonTime:
			add(domain.KindNoCommonTime, domain.Claim{Key: domain.KeyNoAvailability}, organizerOnly(poll), poll.Slots)
		}
	}

	if outcome.MissedDeadline {
		add(domain.KindMissedDeadline, domain.Claim{Key: domain.KeyMissedDeadline}, organizerOnly(poll), nil)
	}

	if outcome.ReminderDue {
		if pending := pendingInvitees(poll, deduped); len(pending) > 0 {
			add(domain.KindReminder, domain.Claim{Key: domain.KeyReminderSent}, pending, poll.Slots)
		}
	}

	return planned
}

func pollMeta(poll *domain.Poll) domain.PollMeta {
	return domain.PollMeta{
		ID:        poll.ID.String(),
		Title:     poll.Title,
		Mode:      poll.Mode,
		Deadline:  poll.Deadline,
		Organizer: poll.Organizer,
	}
}

func organizerOnly(poll *domain.Poll) []domain.Recipient {
	return []domain.Recipient{{
		Email:    poll.Organizer.Email,
		Name:     poll.Organizer.Name,
		Timezone: poll.Organizer.Timezone,
	}}
}

func everyone(poll *domain.Poll) []domain.Recipient {
	recipients := organizerOnly(poll)
	for _, inv := range poll.Invitees {
		recipients = append(recipients, domain.Recipient{Email: inv.Email, Name: inv.Name, Timezone: inv.Timezone})
	}
	return recipients
}

func pendingInvitees(poll *domain.Poll, deduped map[string]domain.Vote) []domain.Recipient {
	var pending []domain.Recipient
	for _, inv := range poll.Invitees {
		key := domain.Identity{Email: inv.Email, Name: inv.Name, Token: inv.Token}.Key()
		if _, voted := deduped[key]; voted {
			continue
		}
		pending = append(pending, domain.Recipient{Email: inv.Email, Name: inv.Name, Timezone: inv.Timezone})
	}
	return pending
}
