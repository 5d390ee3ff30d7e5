package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const specColumns = `id, user_id, title, description, target_duration, scenes_json,
    status, error_message, media_asset_id, created_at, updated_at, rendered_at`

// CreateSpec inserts a new scene specification in draft status. A missing id
// is assigned.
func (s *Store) CreateSpec(ctx context.Context, spec *SceneSpec) error {
	if spec == nil {
		return errors.New("spec is nil")
	}
	if err := ValidateScenes(spec.Scenes); err != nil {
		return err
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if spec.Status == "" {
		spec.Status = SpecStatusDraft
	}
	now := time.Now().UTC()
	spec.CreatedAt = now

	scenesJSON, err := json.Marshal(spec.Scenes)
	if err != nil {
		return fmt.Errorf("marshal scenes: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO scene_specs (
            id, user_id, title, description, target_duration, scenes_json,
            status, error_message, media_asset_id, created_at, updated_at, rendered_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		spec.ID,
		spec.UserID,
		strings.TrimSpace(spec.Title),
		spec.Description,
		spec.TargetDuration,
		string(scenesJSON),
		spec.Status,
		spec.ErrorMessage,
		spec.MediaAssetID,
		formatTime(now),
		formatTime(now),
		nullableTime(spec.RenderedAt),
	)
	if err != nil {
		return fmt.Errorf("insert spec: %w", err)
	}
	return nil
}

// GetSpec fetches a specification by id. Returns (nil, nil) when absent.
func (s *Store) GetSpec(ctx context.Context, id string) (*SceneSpec, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+specColumns+` FROM scene_specs WHERE id = ?`, id)
	spec, err := scanSpec(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get spec: %w", err)
	}
	return spec, nil
}

// ListSpecs returns specifications ordered by creation time, optionally
// filtered to the given statuses.
func (s *Store) ListSpecs(ctx context.Context, statuses ...SpecStatus) ([]*SceneSpec, error) {
	query := `SELECT ` + specColumns + ` FROM scene_specs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list specs: %w", err)
	}
	defer rows.Close()

	var specs []*SceneSpec
	for rows.Next() {
		spec, err := scanSpec(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spec: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

// ApproveSpec advances a draft specification to approved.
func (s *Store) ApproveSpec(ctx context.Context, id string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE scene_specs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		SpecStatusApproved,
		formatTime(time.Now()),
		id,
		SpecStatusDraft,
	)
	if err != nil {
		return fmt.Errorf("approve spec: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve spec rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("spec %s is not in draft status", id)
	}
	return nil
}

// HealthSummary aggregates spec counts per lifecycle state.
func (s *Store) HealthSummary(ctx context.Context) (HealthSummary, error) {
	var summary HealthSummary
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM scene_specs GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("health summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return summary, fmt.Errorf("scan summary: %w", err)
		}
		summary.Total += count
		switch SpecStatus(status) {
		case SpecStatusDraft:
			summary.Draft = count
		case SpecStatusApproved:
			summary.Approved = count
		case SpecStatusRendering:
			summary.Rendering = count
		case SpecStatusRendered:
			summary.Rendered = count
		case SpecStatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpec(row rowScanner) (*SceneSpec, error) {
	var (
		spec       SceneSpec
		scenesJSON string
		status     string
		createdAt  string
		updatedAt  string
		renderedAt sql.NullString
	)
	if err := row.Scan(
		&spec.ID,
		&spec.UserID,
		&spec.Title,
		&spec.Description,
		&spec.TargetDuration,
		&scenesJSON,
		&status,
		&spec.ErrorMessage,
		&spec.MediaAssetID,
		&createdAt,
		&updatedAt,
		&renderedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scenesJSON), &spec.Scenes); err != nil {
		return nil, fmt.Errorf("unmarshal scenes: %w", err)
	}
	spec.Status = SpecStatus(status)
	spec.CreatedAt = parseTime(createdAt)
	spec.RenderedAt = scanNullableTime(renderedAt)
	return &spec, nil
}
