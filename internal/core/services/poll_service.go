package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type pollService struct {
	repo  ports.PollRepository
	clock ports.Clock
}

func NewPollService(repo ports.PollRepository, clock ports.Clock) ports.PollService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &pollService{
		repo:  repo,
		clock: clock,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	if domain.NormalizeEmail(input.Organizer.Email) == "" {
		return nil, domain.NewValidationError("organizer", "organizer email is required")
	}
	if input.Mode == "" {
		input.Mode = domain.ModeSingleBest
	}
	if !input.Mode.Valid() {
		return nil, domain.NewValidationError("mode", "unknown mode "+string(input.Mode))
	}

	slots, err := validateSlots(input.Slots)
	if err != nil {
		return nil, err
	}
	invitees, err := validateInvitees(input.Invitees)
	if err != nil {
		return nil, err
	}

	poll := &domain.Poll{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(input.Title),
		Organizer: input.Organizer,
		Slots:     slots,
		Mode:      input.Mode,
		Deadline:  utcPtr(input.Deadline),
		Invitees:  invitees,
		Ledger:    domain.OutcomeLedger{},
		CreatedAt: s.clock.Now().UTC(),
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	return s.repo.GetByID(ctx, pollID)
}

func (s *pollService) UpdateSettings(ctx context.Context, id string, organizerEmail string, settings ports.PollSettings) (*domain.Poll, error) {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.NormalizeEmail(poll.Organizer.Email) != domain.NormalizeEmail(organizerEmail) {
		return nil, domain.ErrForbidden
	}
	if settings.Mode != nil && !settings.Mode.Valid() {
		return nil, domain.NewValidationError("mode", "unknown mode "+string(*settings.Mode))
	}
	if settings.Mode != nil && *settings.Mode != poll.Mode && poll.Decided() {
		return nil, domain.ErrPollDecided
	}
	if settings.ClearDeadline && settings.Deadline != nil {
		return nil, domain.NewValidationError("deadline", "cannot both set and clear the deadline")
	}
	settings.Deadline = utcPtr(settings.Deadline)

	if err := s.repo.UpdateSettings(ctx, poll.ID, settings); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, poll.ID)
}

func validateSlots(in []domain.Slot) ([]domain.Slot, error) {
	if len(in) == 0 {
		return nil, domain.NewValidationError("slots", "at least one slot is required")
	}
	slots := make([]domain.Slot, 0, len(in))
	seen := make(map[int64]bool, len(in))
	for _, slot := range in {
		if slot.Start.IsZero() {
			return nil, domain.NewValidationError("slots", "slot start is required")
		}
		if slot.Duration <= 0 {
			return nil, domain.NewValidationError("slots", "slot duration must be positive")
		}
		start := slot.Start.UTC().Truncate(time.Second)
		if seen[start.Unix()] {
			return nil, domain.NewValidationError("slots", "duplicate slot start "+start.Format(time.RFC3339))
		}
		seen[start.Unix()] = true
		slots = append(slots, domain.Slot{Start: start, Duration: slot.Duration})
	}
	return slots, nil
}

func validateInvitees(in []domain.Invitee) ([]domain.Invitee, error) {
	if len(in) == 0 {
		return nil, domain.NewValidationError("invitees", "at least one invitee is required")
	}
	invitees := make([]domain.Invitee, 0, len(in))
	emails := make(map[string]bool, len(in))
	tokens := make(map[string]bool, len(in))
	for _, inv := range in {
		email := domain.NormalizeEmail(inv.Email)
		if email == "" {
			return nil, domain.NewValidationError("invitees", "invitee email is required")
		}
		if emails[email] {
			return nil, domain.NewValidationError("invitees", "duplicate invitee "+email)
		}
		emails[email] = true

		if inv.Token == "" {
			inv.Token = uuid.NewString()
		}
		if tokens[inv.Token] {
			return nil, domain.NewValidationError("invitees", "duplicate invitee token")
		}
		tokens[inv.Token] = true

		inv.Email = email
		invitees = append(invitees, inv)
	}
	return invitees, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
