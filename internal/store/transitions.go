package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BeginRender creates the media asset record (processing) and advances the
// specification to rendering with its asset reference, in one transaction.
// The spec must exist and must not already be rendering or terminal.
func (s *Store) BeginRender(ctx context.Context, specID string, asset *MediaAsset) error {
	if asset == nil {
		return errors.New("asset is nil")
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.Status == "" {
		asset.Status = AssetStatusProcessing
	}
	if asset.Provider == "" {
		asset.Provider = ProviderContentEngine
	}
	if asset.Type == "" {
		asset.Type = AssetTypeVideo
	}
	now := time.Now().UTC()
	asset.CreatedAt = now

	metadataJSON, err := json.Marshal(asset.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	return retryOnBusy(ensureContext(ctx), func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin render tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var status string
		err = tx.QueryRowContext(ctx, `SELECT status FROM scene_specs WHERE id = ?`, specID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("spec %s not found", specID)
		}
		if err != nil {
			return fmt.Errorf("read spec status: %w", err)
		}
		current := SpecStatus(status)
		if current == SpecStatusRendering || current.Terminal() {
			return fmt.Errorf("spec %s cannot start rendering from status %s", specID, current)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO media_assets (
                id, user_id, provider, asset_type, prompt, status,
                result_url, error_message, metadata_json, created_at, updated_at, completed_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			asset.ID,
			asset.UserID,
			asset.Provider,
			asset.Type,
			asset.Prompt,
			asset.Status,
			asset.ResultURL,
			asset.ErrorMessage,
			string(metadataJSON),
			formatTime(now),
			formatTime(now),
			nullableTime(asset.CompletedAt),
		); err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE scene_specs SET status = ?, media_asset_id = ?, error_message = '', updated_at = ? WHERE id = ?`,
			SpecStatusRendering,
			asset.ID,
			formatTime(now),
			specID,
		); err != nil {
			return fmt.Errorf("mark spec rendering: %w", err)
		}

		return tx.Commit()
	})
}

// FinishRender applies the terminal transition to the spec/asset pair in one
// transaction. It reports whether a write occurred: when the asset has already
// reached a terminal status the call is a no-op, which makes the poller's
// terminal write idempotent.
func (s *Store) FinishRender(ctx context.Context, specID, assetID string, outcome RenderOutcome) (bool, error) {
	applied := false
	err := retryOnBusy(ensureContext(ctx), func() error {
		applied = false
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("finish render tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var status string
		err = tx.QueryRowContext(ctx, `SELECT status FROM media_assets WHERE id = ?`, assetID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("asset %s not found", assetID)
		}
		if err != nil {
			return fmt.Errorf("read asset status: %w", err)
		}
		if AssetStatus(status).Terminal() {
			return tx.Commit()
		}

		now := time.Now().UTC()
		if outcome.Succeeded {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE media_assets SET status = ?, result_url = ?, error_message = '', updated_at = ?, completed_at = ? WHERE id = ?`,
				AssetStatusReady,
				outcome.ResultURL,
				formatTime(now),
				formatTime(now),
				assetID,
			); err != nil {
				return fmt.Errorf("mark asset ready: %w", err)
			}
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE scene_specs SET status = ?, error_message = '', updated_at = ?, rendered_at = ? WHERE id = ?`,
				SpecStatusRendered,
				formatTime(now),
				formatTime(now),
				specID,
			); err != nil {
				return fmt.Errorf("mark spec rendered: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE media_assets SET status = ?, error_message = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
				AssetStatusFailed,
				outcome.ErrorMessage,
				formatTime(now),
				formatTime(now),
				assetID,
			); err != nil {
				return fmt.Errorf("mark asset failed: %w", err)
			}
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE scene_specs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
				SpecStatusFailed,
				outcome.ErrorMessage,
				formatTime(now),
				specID,
			); err != nil {
				return fmt.Errorf("mark spec failed: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// ResetInFlight fails every rendering spec and processing asset with the
// given message. The daemon runs this at startup: pollers live in-process, so
// records left mid-render by a previous run can never complete.
func (s *Store) ResetInFlight(ctx context.Context, message string) (int, error) {
	if message == "" {
		message = DaemonStopMessage
	}
	now := formatTime(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`UPDATE scene_specs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		SpecStatusFailed,
		message,
		now,
		SpecStatusRendering,
	)
	if err != nil {
		return 0, fmt.Errorf("reset in-flight specs: %w", err)
	}
	specCount, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset in-flight rows: %w", err)
	}

	if _, err := s.execWithRetry(
		ctx,
		`UPDATE media_assets SET status = ?, error_message = ?, updated_at = ?, completed_at = ? WHERE status = ?`,
		AssetStatusFailed,
		message,
		now,
		now,
		AssetStatusProcessing,
	); err != nil {
		return 0, fmt.Errorf("reset in-flight assets: %w", err)
	}

	return int(specCount), nil
}
