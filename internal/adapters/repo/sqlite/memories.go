package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yoke233/metting/internal/domain"
)

// SaveMemory appends a full snapshot for the role. Older snapshots stay in
// the table as history.
func (s *Store) SaveMemory(ctx context.Context, runID domain.RunID, memory domain.RoleMemory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if memory.Role == "" {
		return errors.New("save memory: role is required")
	}

	content, err := json.Marshal(memory.Memory.Normalized())
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (run_id, role_name, content_json, updated_ts_ms) VALUES (?, ?, ?, ?)`,
		string(runID), memory.Role, string(content), memory.UpdatedMs,
	); err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}

	return nil
}

func (s *Store) LatestMemory(ctx context.Context, runID domain.RunID, role string) (domain.Memory, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Memory{}, false, err
	}

	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_json FROM memories WHERE run_id = ? AND role_name = ? ORDER BY id DESC LIMIT 1`,
		string(runID), role,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Memory{}.Normalized(), false, nil
	}
	if err != nil {
		return domain.Memory{}, false, fmt.Errorf("read memory: %w", err)
	}

	memory, err := decodeMemory(content)
	if err != nil {
		return domain.Memory{}, false, err
	}

	return memory, true, nil
}

// ListMemories returns the latest snapshot of every role, ordered by role.
func (s *Store) ListMemories(ctx context.Context, runID domain.RunID) ([]domain.RoleMemory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT m.role_name, m.content_json, m.updated_ts_ms
		 FROM memories m
		 JOIN (SELECT role_name, MAX(id) AS id FROM memories WHERE run_id = ? GROUP BY role_name) latest
		   ON latest.id = m.id
		 ORDER BY m.role_name ASC`,
		string(runID))
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	memories := []domain.RoleMemory{}
	for rows.Next() {
		var (
			entry   domain.RoleMemory
			content string
		)
		if err := rows.Scan(&entry.Role, &content, &entry.UpdatedMs); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if entry.Memory, err = decodeMemory(content); err != nil {
			return nil, err
		}
		memories = append(memories, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memories: %w", err)
	}

	return memories, nil
}

func decodeMemory(content string) (domain.Memory, error) {
	var memory domain.Memory
	if err := json.Unmarshal([]byte(content), &memory); err != nil {
		return domain.Memory{}, fmt.Errorf("decode memory: %w", err)
	}

	return memory.Normalized(), nil
}
