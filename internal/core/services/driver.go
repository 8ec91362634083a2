package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vncsmyrnk/slotpoll/internal/core/consensus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
	"github.com/vncsmyrnk/slotpoll/internal/metrics"
)

const DefaultTickInterval = 10 * time.Second

type DriverConfig struct {
	Interval       time.Duration
	ReminderWindow time.Duration
}

// Driver is one evaluator of a poll. Any number of drivers may run against
// the same poll at once; they share nothing but the store.
type Driver struct {
	polls      ports.PollRepository
	guard      *ClaimGuard
	dispatcher ports.Dispatcher
	clock      ports.Clock
	cfg        DriverConfig
	log        zerolog.Logger
	metrics    *metrics.Collector
}

func NewDriver(
	polls ports.PollRepository,
	guard *ClaimGuard,
	dispatcher ports.Dispatcher,
	clock ports.Clock,
	cfg DriverConfig,
	log zerolog.Logger,
	m *metrics.Collector,
) *Driver {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	return &Driver{
		polls:      polls,
		guard:      guard,
		dispatcher: dispatcher,
		clock:      clock,
		cfg:        cfg,
		log:        log.With().Str("component", "driver").Logger(),
		metrics:    m,
	}
}

// Tick pulls a fresh snapshot, resolves it and claims and dispatches every
// outcome component not yet on the ledger. A store failure aborts the tick;
// whatever was already claimed stays claimed, and slots of a recorded
// MultiSlot set that were left unclaimed are picked up by the next tick.
func (d *Driver) Tick(ctx context.Context, pollID uuid.UUID) (*ports.TickReport, error) {
	poll, err := d.polls.GetByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			d.metrics.Tick(metrics.ResultNoPoll)
			return nil, err
		}
		d.metrics.Tick(metrics.ResultStoreKO)
		return nil, fmt.Errorf("fetch snapshot of poll %s: %w", pollID, err)
	}

	now := d.clock.Now()
	outcome, deduped := consensus.Evaluate(poll, now, d.cfg.ReminderWindow)
	report := &ports.TickReport{
		PollID:      poll.ID,
		Outcome:     outcome,
		Tally:       consensus.TallyVotes(deduped, poll.Slots).Counts(),
		Ledger:      ledgerKeys(poll.Ledger),
		EvaluatedAt: now,
	}

	gateLost := false
	for _, pc := range planClaims(poll, outcome, deduped) {
		if pc.afterGate && gateLost {
			continue
		}
		won, err := d.guard.Claim(ctx, poll.ID, pc.notification.Kind, pc.claim)
		if err != nil {
			if errors.Is(err, domain.ErrPollNotFound) {
				d.metrics.Tick(metrics.ResultNoPoll)
			} else {
				d.metrics.Tick(metrics.ResultStoreKO)
			}
			return report, err
		}
		if !won {
			report.Lost = append(report.Lost, pc.claim.Key)
			gateLost = gateLost || pc.gate
			continue
		}
		report.Claimed = append(report.Claimed, pc.claim.Key)
		report.Ledger = append(report.Ledger, pc.claim.Key)
		if pc.gate {
			continue
		}

		if err := d.dispatch(ctx, pc.notification); err != nil {
			report.Failed = append(report.Failed, pc.claim.Key)
		}
	}

	d.metrics.Tick(metrics.ResultOK)
	return report, nil
}

// dispatch runs detached from ctx: once a claim is won, cancelling the tick
// must not drop the notification halfway.
func (d *Driver) dispatch(ctx context.Context, n domain.Notification) error {
	err := d.dispatcher.Dispatch(context.WithoutCancel(ctx), n)
	if err != nil {
		d.metrics.Dispatch(string(n.Kind), metrics.ResultFailed)
		d.log.Error().
			Err(err).
			Str("poll_id", n.Poll.ID).
			Str("outcome_key", n.Key).
			Str("outcome_kind", string(n.Kind)).
			Msg("dispatch failed, claim stays consumed")
		return err
	}
	d.metrics.Dispatch(string(n.Kind), metrics.ResultOK)
	d.log.Info().
		Str("poll_id", n.Poll.ID).
		Str("outcome_key", n.Key).
		Int("recipients", len(n.Recipients)).
		Msg("notification dispatched")
	return nil
}

// Run ticks on the configured interval until ctx is done. Failed ticks are
// logged and left to the next interval; only a missing poll stops the loop.
func (d *Driver) Run(ctx context.Context, pollID uuid.UUID) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := d.Tick(ctx, pollID); err != nil {
			if errors.Is(err, domain.ErrPollNotFound) {
				return err
			}
			d.log.Warn().Err(err).Str("poll_id", pollID.String()).Msg("tick aborted")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func ledgerKeys(l domain.OutcomeLedger) []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
