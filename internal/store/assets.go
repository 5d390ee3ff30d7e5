package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const assetColumns = `id, user_id, provider, asset_type, prompt, status,
    result_url, error_message, metadata_json, created_at, updated_at, completed_at`

// GetAsset fetches a media asset by id. Returns (nil, nil) when absent.
func (s *Store) GetAsset(ctx context.Context, id string) (*MediaAsset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM media_assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// ListAssets returns media assets ordered by creation time, optionally
// filtered to the given statuses.
func (s *Store) ListAssets(ctx context.Context, statuses ...AssetStatus) ([]*MediaAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_assets`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (`
		for i, status := range statuses {
			if i > 0 {
				query += `, `
			}
			query += `?`
			args = append(args, status)
		}
		query += `)`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*MediaAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func scanAsset(row rowScanner) (*MediaAsset, error) {
	var (
		asset        MediaAsset
		status       string
		metadataJSON string
		createdAt    string
		updatedAt    string
		completedAt  sql.NullString
	)
	if err := row.Scan(
		&asset.ID,
		&asset.UserID,
		&asset.Provider,
		&asset.Type,
		&asset.Prompt,
		&status,
		&asset.ResultURL,
		&asset.ErrorMessage,
		&metadataJSON,
		&createdAt,
		&updatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &asset.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	asset.Status = AssetStatus(status)
	asset.CreatedAt = parseTime(createdAt)
	asset.CompletedAt = scanNullableTime(completedAt)
	return &asset, nil
}
