package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	// GetByID returns a full snapshot: slots, invitees, votes in storage order and the ledger.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	ListUnsettled(ctx context.Context) ([]uuid.UUID, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings PollSettings) error
}

type CreatePollInput struct {
	Title     string
	Organizer domain.Organizer
	Slots     []domain.Slot
	Mode      domain.Mode
	Deadline  *time.Time
	Invitees  []domain.Invitee
}

// PollSettings carries organizer-scoped changes; nil fields are left untouched.
type PollSettings struct {
	Mode          *domain.Mode
	Deadline      *time.Time
	ClearDeadline bool
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	UpdateSettings(ctx context.Context, id string, organizerEmail string, settings PollSettings) (*domain.Poll, error)
}
