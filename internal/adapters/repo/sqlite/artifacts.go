package sqlite

import (
	"context"
	"fmt"

	"github.com/yoke233/metting/internal/domain"
)

func (s *Store) SaveArtifact(ctx context.Context, artifact domain.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, type, version, content_json, created_ts_ms) VALUES (?, ?, ?, ?, ?)`,
		string(artifact.RunID), string(artifact.Type), artifact.Version, string(artifact.Content), artifact.CreatedMs,
	); err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}

	return nil
}

// ListArtifacts returns every version of every artifact in write order.
func (s *Store) ListArtifacts(ctx context.Context, runID domain.RunID) ([]domain.Artifact, error) {
	return s.queryArtifacts(ctx,
		`SELECT run_id, type, version, content_json, created_ts_ms FROM artifacts WHERE run_id = ? ORDER BY id ASC`,
		string(runID))
}

// ListSummaries returns the per-round summaries (SUMMARY v2) in write order.
func (s *Store) ListSummaries(ctx context.Context, runID domain.RunID) ([]domain.Artifact, error) {
	return s.queryArtifacts(ctx,
		`SELECT run_id, type, version, content_json, created_ts_ms FROM artifacts
		 WHERE run_id = ? AND type = ? AND version = ? ORDER BY id ASC`,
		string(runID), string(domain.ArtifactSummary), domain.VersionV2)
}

func (s *Store) queryArtifacts(ctx context.Context, query string, args ...any) ([]domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []domain.Artifact{}
	for rows.Next() {
		var (
			artifact    domain.Artifact
			runID, kind string
			content     string
		)
		if err := rows.Scan(&runID, &kind, &artifact.Version, &content, &artifact.CreatedMs); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifact.RunID = domain.RunID(runID)
		artifact.Type = domain.ArtifactType(kind)
		artifact.Content = []byte(content)
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}

	return artifacts, nil
}
