package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/yoke233/metting/internal/domain"
)

const eventColumns = `seq, run_id, ts_ms, type, actor, payload_json`

// Append stores the event under the next per-run sequence number, which
// becomes its public id.
func (s *Store) Append(ctx context.Context, event domain.Event) (domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return domain.Event{}, err
	}
	if event.RunID == "" {
		return domain.Event{}, errors.New("append event: run id is required")
	}

	env, err := domain.EncodeEvent(event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("append event: %w", err)
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Event{}, fmt.Errorf("begin append: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE run_id = ?`, string(env.RunID),
	).Scan(&seq); err != nil {
		return domain.Event{}, fmt.Errorf("next event id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (run_id, seq, ts_ms, type, actor, payload_json) VALUES (?, ?, ?, ?, ?, ?)`,
		string(env.RunID), seq, env.TSMs, string(env.Type), env.Actor, string(env.Payload),
	); err != nil {
		return domain.Event{}, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Event{}, fmt.Errorf("commit event: %w", err)
	}
	committed = true

	stored := event.Stamped()
	stored.ID = seq
	stored.Type = env.Type

	return stored, nil
}

func (s *Store) Replay(ctx context.Context, runID domain.RunID) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE run_id = ? ORDER BY seq ASC`, string(runID))
	if err != nil {
		return nil, fmt.Errorf("replay events: %w", err)
	}

	return scanEvents(rows)
}

func (s *Store) Tail(ctx context.Context, runID domain.RunID, n int) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []domain.Event{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE run_id = ? ORDER BY seq DESC LIMIT ?`, string(runID), n)
	if err != nil {
		return nil, fmt.Errorf("tail events: %w", err)
	}

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(events)

	return events, nil
}

// After returns events with an id greater than cursor. A non-positive limit
// returns everything after the cursor.
func (s *Store) After(ctx context.Context, runID domain.RunID, cursor int64, limit int) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE run_id = ? AND seq > ? ORDER BY seq ASC LIMIT ?`,
		string(runID), cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("events after cursor: %w", err)
	}

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			env     domain.Envelope
			runID   string
			kind    string
			payload string
		)
		if err := rows.Scan(&env.ID, &runID, &env.TSMs, &kind, &env.Actor, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		env.RunID = domain.RunID(runID)
		env.Type = domain.EventType(kind)
		env.Payload = []byte(payload)

		event, err := domain.DecodeEvent(env)
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", env.ID, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
