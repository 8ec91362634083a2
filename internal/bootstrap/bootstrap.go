// Package bootstrap turns a Config into the adapters every binary shares.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/vncsmyrnk/slotpoll/internal/adapters/notify/logsink"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/notify/webhook"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/firestore"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/slotpoll/internal/config"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
	"github.com/vncsmyrnk/slotpoll/internal/core/services"
	"github.com/vncsmyrnk/slotpoll/internal/metrics"
)

type Stores struct {
	Polls  ports.PollRepository
	Votes  ports.VoteRepository
	Claims ports.ClaimStore
	close  func() error
}

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func OpenStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		store := memory.NewStore()
		return &Stores{Polls: store, Votes: store, Claims: store}, nil

	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.Postgres.ConnString())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to reach postgres: %w", err)
		}
		return &Stores{
			Polls:  postgres.NewPollRepository(db),
			Votes:  postgres.NewVoteRepository(db),
			Claims: postgres.NewClaimRepository(db),
			close:  db.Close,
		}, nil

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, []byte(cfg.GoogleCredentials))
		if err != nil {
			return nil, err
		}
		store := firestore.NewStore(client, firestore.DefaultCollection)
		return &Stores{Polls: store, Votes: store, Claims: store, close: client.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewDispatcher posts to the webhook when one is configured and logs
// notifications otherwise.
func NewDispatcher(cfg config.Config, log zerolog.Logger) ports.Dispatcher {
	if cfg.NotifyWebhookURL == "" {
		return logsink.NewDispatcher(log)
	}
	return webhook.NewDispatcher(cfg.NotifyWebhookURL, cfg.NotifyTimeout)
}

func NewDriver(cfg config.Config, stores *Stores, log zerolog.Logger, m *metrics.Collector) *services.Driver {
	clock := services.SystemClock{}
	guard := services.NewClaimGuard(stores.Claims, clock, log, m)
	return services.NewDriver(
		stores.Polls,
		guard,
		NewDispatcher(cfg, log),
		clock,
		services.DriverConfig{Interval: cfg.TickInterval, ReminderWindow: cfg.ReminderWindow},
		log,
		m,
	)
}
