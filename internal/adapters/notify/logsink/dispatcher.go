// Package logsink is a development dispatcher that writes each notification
// to the structured log instead of delivering it.
package logsink

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type Dispatcher struct {
	log zerolog.Logger
}

var _ ports.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{log: log.With().Str("component", "logsink").Logger()}
}

func (d *Dispatcher) Dispatch(_ context.Context, n domain.Notification) error {
	emails := make([]string, 0, len(n.Recipients))
	for _, r := range n.Recipients {
		emails = append(emails, r.Email)
	}
	starts := make([]string, 0, len(n.Slots))
	for _, s := range n.Slots {
		starts = append(starts, s.Start.UTC().Format(time.RFC3339))
	}

	d.log.Info().
		Str("poll_id", n.Poll.ID).
		Str("poll_title", n.Poll.Title).
		Str("outcome_kind", string(n.Kind)).
		Str("outcome_key", n.Key).
		Strs("recipients", emails).
		Strs("slots", starts).
		Msg("notification")
	return nil
}
