package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, title, organizer_name, organizer_email, organizer_timezone, mode, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, queryPoll,
		poll.ID, poll.Title, poll.Organizer.Name, poll.Organizer.Email, poll.Organizer.Timezone,
		string(poll.Mode), poll.Deadline, poll.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	slotStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO poll_slots (poll_id, position, start_at, duration_seconds)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare slot statement: %w", err)
	}
	defer slotStmt.Close()

	for i, slot := range poll.Slots {
		_, err = slotStmt.ExecContext(ctx, poll.ID, i, slot.Start.UTC(), int64(slot.Duration/time.Second))
		if err != nil {
			return fmt.Errorf("failed to insert slot: %w", err)
		}
	}

	inviteeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO poll_invitees (poll_id, position, email, name, timezone, token)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare invitee statement: %w", err)
	}
	defer inviteeStmt.Close()

	for i, inv := range poll.Invitees {
		_, err = inviteeStmt.ExecContext(ctx, poll.ID, i, inv.Email, inv.Name, inv.Timezone, inv.Token)
		if err != nil {
			return fmt.Errorf("failed to insert invitee: %w", err)
		}
	}

	for _, vote := range poll.Votes {
		if err := upsertVote(ctx, tx, poll.ID, vote); err != nil {
			return err
		}
	}

	for key, at := range poll.Ledger {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO poll_outcome_ledger (poll_id, outcome_key, claimed_at) VALUES ($1, $2, $3)`,
			poll.ID, key, at)
		if err != nil {
			return fmt.Errorf("failed to insert ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit poll", err)
	}

	return nil
}

// GetByID reads the whole poll inside one read-only repeatable-read
// transaction so the snapshot is consistent across tables.
func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, unavailable("begin snapshot", err)
	}
	defer tx.Rollback()

	queryPoll := `
		SELECT id, title, organizer_name, organizer_email, organizer_timezone, mode, deadline, created_at
		FROM polls
		WHERE id = $1
	`
	var (
		poll     domain.Poll
		mode     string
		deadline sql.NullTime
	)
	err = tx.QueryRowContext(ctx, queryPoll, id).Scan(
		&poll.ID, &poll.Title, &poll.Organizer.Name, &poll.Organizer.Email, &poll.Organizer.Timezone,
		&mode, &deadline, &poll.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, unavailable("get poll", err)
	}
	poll.Mode = domain.Mode(mode)
	if deadline.Valid {
		d := deadline.Time.UTC()
		poll.Deadline = &d
	}

	if poll.Slots, err = fetchSlots(ctx, tx, id); err != nil {
		return nil, err
	}
	if poll.Invitees, err = fetchInvitees(ctx, tx, id); err != nil {
		return nil, err
	}
	if poll.Votes, err = fetchVotes(ctx, tx, id); err != nil {
		return nil, err
	}
	if poll.Ledger, err = fetchLedger(ctx, tx, id); err != nil {
		return nil, err
	}

	return &poll, nil
}

// ListUnsettled loads only the decision keys of each poll and leaves the
// settled check to the ledger so a partially claimed MultiSlot set stays listed.
func (r *pollRepository) ListUnsettled(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT p.id, l.outcome_key, l.claimed_at
		FROM polls p
		LEFT JOIN poll_outcome_ledger l
		  ON l.poll_id = p.id
		 AND (l.outcome_key LIKE 'finalized:%' OR l.outcome_key LIKE 'multiFinalized%')
		ORDER BY p.created_at, p.id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("list unsettled polls", err)
	}
	defer rows.Close()

	var (
		order   []uuid.UUID
		ledgers = map[uuid.UUID]domain.OutcomeLedger{}
	)
	for rows.Next() {
		var (
			id  uuid.UUID
			key sql.NullString
			at  sql.NullTime
		)
		if err := rows.Scan(&id, &key, &at); err != nil {
			return nil, fmt.Errorf("failed to scan poll id: %w", err)
		}
		ledger, seen := ledgers[id]
		if !seen {
			ledger = domain.OutcomeLedger{}
			ledgers[id] = ledger
			order = append(order, id)
		}
		if key.Valid {
			ledger[key.String] = at.Time.UTC()
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate polls", err)
	}

	var ids []uuid.UUID
	for _, id := range order {
		if !ledgers[id].Settled() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *pollRepository) UpdateSettings(ctx context.Context, id uuid.UUID, settings ports.PollSettings) error {
	query := `
		UPDATE polls
		SET mode = COALESCE($2::text, mode),
		    deadline = CASE
		        WHEN $3 THEN NULL
		        WHEN $4::timestamptz IS NOT NULL THEN $4::timestamptz
		        ELSE deadline
		    END
		WHERE id = $1
	`
	var mode *string
	if settings.Mode != nil {
		m := string(*settings.Mode)
		mode = &m
	}
	res, err := r.db.ExecContext(ctx, query, id, mode, settings.ClearDeadline, settings.Deadline)
	if err != nil {
		return unavailable("update poll settings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update poll settings", err)
	}
	if n == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

func fetchSlots(ctx context.Context, tx *sql.Tx, pollID uuid.UUID) ([]domain.Slot, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT start_at, duration_seconds
		FROM poll_slots
		WHERE poll_id = $1
		ORDER BY position
	`, pollID)
	if err != nil {
		return nil, unavailable("get poll slots", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var (
			start   time.Time
			seconds int64
		)
		if err := rows.Scan(&start, &seconds); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, domain.Slot{Start: start.UTC(), Duration: time.Duration(seconds) * time.Second})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate slots", err)
	}
	return slots, nil
}

func fetchInvitees(ctx context.Context, tx *sql.Tx, pollID uuid.UUID) ([]domain.Invitee, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT email, name, timezone, token
		FROM poll_invitees
		WHERE poll_id = $1
		ORDER BY position
	`, pollID)
	if err != nil {
		return nil, unavailable("get poll invitees", err)
	}
	defer rows.Close()

	var invitees []domain.Invitee
	for rows.Next() {
		var inv domain.Invitee
		if err := rows.Scan(&inv.Email, &inv.Name, &inv.Timezone, &inv.Token); err != nil {
			return nil, fmt.Errorf("failed to scan invitee: %w", err)
		}
		invitees = append(invitees, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate invitees", err)
	}
	return invitees, nil
}

func fetchVotes(ctx context.Context, tx *sql.Tx, pollID uuid.UUID) ([]domain.Vote, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT voter_key, slot_starts, identity_email, identity_name, identity_token, updated_at
		FROM votes
		WHERE poll_id = $1
		ORDER BY id
	`, pollID)
	if err != nil {
		return nil, unavailable("get votes", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var (
			vote   domain.Vote
			starts pq.Int64Array
		)
		if err := rows.Scan(&vote.VoterKey, &starts, &vote.Identity.Email, &vote.Identity.Name, &vote.Identity.Token, &vote.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		for _, s := range starts {
			vote.SlotStarts = append(vote.SlotStarts, time.Unix(s, 0).UTC())
		}
		vote.UpdatedAt = vote.UpdatedAt.UTC()
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate votes", err)
	}
	return votes, nil
}

func fetchLedger(ctx context.Context, tx *sql.Tx, pollID uuid.UUID) (domain.OutcomeLedger, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT outcome_key, claimed_at
		FROM poll_outcome_ledger
		WHERE poll_id = $1
	`, pollID)
	if err != nil {
		return nil, unavailable("get outcome ledger", err)
	}
	defer rows.Close()

	ledger := domain.OutcomeLedger{}
	for rows.Next() {
		var (
			key string
			at  time.Time
		)
		if err := rows.Scan(&key, &at); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		ledger[key] = at.UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate ledger", err)
	}
	return ledger, nil
}
