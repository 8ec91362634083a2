// Package webhook delivers outcome notifications as a JSON POST to one
// configured endpoint. Any 2xx response counts as sent.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

const DefaultTimeout = 10 * time.Second

type Dispatcher struct {
	url    string
	client *http.Client
}

var _ ports.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(url string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type request struct {
	OutcomeKind  domain.OutcomeKind `json:"outcome_kind"`
	OutcomeKey   string             `json:"outcome_key"`
	Recipients   []domain.Recipient `json:"recipients"`
	Slots        []slot             `json:"slots"`
	PollMetadata domain.PollMeta    `json:"poll_metadata"`
}

type slot struct {
	Start           time.Time `json:"start"`
	DurationMinutes int64     `json:"duration_minutes"`
}

func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notification) error {
	body := request{
		OutcomeKind:  n.Kind,
		OutcomeKey:   n.Key,
		Recipients:   n.Recipients,
		Slots:        make([]slot, 0, len(n.Slots)),
		PollMetadata: n.Poll,
	}
	for _, s := range n.Slots {
		body.Slots = append(body.Slots, slot{Start: s.Start.UTC(), DurationMinutes: int64(s.Duration / time.Minute)})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrDispatchFailed, n.Key, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", n.Poll.ID+"/"+n.Key)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: webhook responded %d", domain.ErrDispatchFailed, resp.StatusCode)
	}
	return nil
}
