package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yoke233/metting/internal/domain"
)

const runColumns = `id, meeting_id, status, config_json, started_at, ended_at`

func (s *Store) CreateRun(ctx context.Context, run domain.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.ID == "" || run.MeetingID == "" {
		return errors.New("create run: run and meeting ids are required")
	}
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}
	if !run.Status.Valid() {
		return fmt.Errorf("create run: invalid status %q", run.Status)
	}

	config, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("encode run config: %w", err)
	}

	var ended any
	if !run.EndedAt.IsZero() {
		ended = formatTime(run.EndedAt)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		string(run.ID), string(run.MeetingID), string(run.Status), string(config), formatTime(run.StartedAt), ended,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

func (s *Store) GetRun(ctx context.Context, id domain.RunID) (domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return domain.Run{}, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, string(id))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, domain.ErrRunNotFound
	}
	if err != nil {
		return domain.Run{}, err
	}

	return run, nil
}

// ListRuns returns the newest runs first, optionally for one meeting.
func (s *Store) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if filter.MeetingID != "" {
		query += ` WHERE meeting_id = ?`
		args = append(args, string(filter.MeetingID))
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// SetRunStatus moves a run to status. Terminal statuses record the end time.
func (s *Store) SetRunStatus(ctx context.Context, id domain.RunID, status domain.RunStatus, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM runs WHERE id = ?`, string(id)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("read run status: %w", err)
	}

	from := domain.RunStatus(current)
	if !from.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, status)
	}

	var ended any
	if status.Terminal() {
		ended = formatTime(at)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ? WHERE id = ?`, string(status), ended, string(id),
	); err != nil {
		return fmt.Errorf("update run status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run status: %w", err)
	}
	committed = true

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.Run, error) {
	var (
		id, meetingID, status, config, started string
		ended                                  sql.NullString
	)
	if err := row.Scan(&id, &meetingID, &status, &config, &started, &ended); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Run{}, err
		}
		return domain.Run{}, fmt.Errorf("scan run: %w", err)
	}

	run := domain.Run{
		ID:        domain.RunID(id),
		MeetingID: domain.MeetingID(meetingID),
		Status:    domain.RunStatus(status),
		StartedAt: parseTime(started),
	}
	if ended.Valid {
		run.EndedAt = parseTime(ended.String)
	}
	if err := json.Unmarshal([]byte(config), &run.Config); err != nil {
		return domain.Run{}, fmt.Errorf("decode run config: %w", err)
	}

	return run, nil
}
