package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

const DefaultSweepConcurrency = 8

type sweepService struct {
	polls       ports.PollRepository
	evaluator   ports.Evaluator
	concurrency int
	log         zerolog.Logger
}

// NewSweepService returns a one-shot evaluator over every undecided poll. It
// is one more redundant driver, not a coordinator: other drivers may be
// ticking the same polls at the same time.
func NewSweepService(polls ports.PollRepository, evaluator ports.Evaluator, concurrency int, log zerolog.Logger) ports.SweepService {
	if concurrency <= 0 {
		concurrency = DefaultSweepConcurrency
	}
	return &sweepService{
		polls:       polls,
		evaluator:   evaluator,
		concurrency: concurrency,
		log:         log.With().Str("component", "sweep").Logger(),
	}
}

func (s *sweepService) SweepUndecided(ctx context.Context) error {
	ids, err := s.polls.ListUnsettled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unsettled polls: %w", err)
	}

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	pool := workerpool.New(s.concurrency)
	for _, id := range ids {
		pollID := id
		pool.Submit(func() {
			report, err := s.evaluator.Tick(ctx, pollID)
			if err != nil {
				if errors.Is(err, domain.ErrPollNotFound) {
					return
				}
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("failed to evaluate poll %s: %w", pollID, err))
				mu.Unlock()
				return
			}
			s.logReport(pollID, report)
		})
	}
	pool.StopWait()

	s.log.Info().Int("polls", len(ids)).Msg("sweep finished")
	return errs.ErrorOrNil()
}

func (s *sweepService) logReport(pollID uuid.UUID, report *ports.TickReport) {
	if len(report.Claimed) == 0 {
		return
	}
	s.log.Info().
		Str("poll_id", pollID.String()).
		Strs("claimed", report.Claimed).
		Strs("dispatch_failed", report.Failed).
		Msg("sweep claimed outcomes")
}
