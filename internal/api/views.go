// Package api defines the JSON representations shared by the daemon's HTTP
// handlers and the CLI output paths.
package api

import (
	"time"

	"reelsmith/internal/store"
)

// SceneView is the wire form of one scene descriptor.
type SceneView struct {
	Order         int               `json:"order"`
	VoiceoverText string            `json:"voiceover_text"`
	VisualIntent  string            `json:"visual_intent"`
	DurationHint  float64           `json:"duration_hint,omitempty"`
	StyleHints    map[string]string `json:"style_hints,omitempty"`
}

// SpecView is the wire form of a scene specification.
type SpecView struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	TargetDuration int         `json:"target_duration_seconds"`
	Status         string      `json:"status"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	MediaAssetID   string      `json:"media_asset_id,omitempty"`
	Scenes         []SceneView `json:"scenes"`
	CreatedAt      time.Time   `json:"created_at"`
	RenderedAt     *time.Time  `json:"rendered_at,omitempty"`
}

// AssetView is the wire form of a media asset.
type AssetView struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Provider     string              `json:"provider"`
	Type         string              `json:"type"`
	Prompt       string              `json:"prompt,omitempty"`
	Status       string              `json:"status"`
	ResultURL    string              `json:"result_url,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Metadata     store.AssetMetadata `json:"metadata"`
	CreatedAt    time.Time           `json:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// StatusView summarizes daemon health for the status endpoint and CLI.
type StatusView struct {
	Running       bool   `json:"running"`
	DatabasePath  string `json:"database_path,omitempty"`
	ActiveRenders int    `json:"active_renders"`
	Total         int    `json:"total_specs"`
	Draft         int    `json:"draft"`
	Approved      int    `json:"approved"`
	Rendering     int    `json:"rendering"`
	Rendered      int    `json:"rendered"`
	Failed        int    `json:"failed"`
}

// RenderAcceptedView is the wire form of an accepted render request.
type RenderAcceptedView struct {
	SpecID   string   `json:"spec_id"`
	AssetID  string   `json:"asset_id"`
	JobID    string   `json:"job_id"`
	Warnings []string `json:"warnings,omitempty"`
}

// SpecToView converts a stored specification.
func SpecToView(spec *store.SceneSpec) SpecView {
	scenes := make([]SceneView, len(spec.Scenes))
	for i, scene := range spec.Scenes {
		scenes[i] = SceneView{
			Order:         scene.Order,
			VoiceoverText: scene.VoiceoverText,
			VisualIntent:  scene.VisualIntent,
			DurationHint:  scene.DurationHint,
			StyleHints:    scene.StyleHints,
		}
	}
	return SpecView{
		ID:             spec.ID,
		UserID:         spec.UserID,
		Title:          spec.Title,
		Description:    spec.Description,
		TargetDuration: spec.TargetDuration,
		Status:         string(spec.Status),
		ErrorMessage:   spec.ErrorMessage,
		MediaAssetID:   spec.MediaAssetID,
		Scenes:         scenes,
		CreatedAt:      spec.CreatedAt,
		RenderedAt:     spec.RenderedAt,
	}
}

// ViewScenes converts wire scenes back to descriptors.
func ViewScenes(scenes []SceneView) []store.SceneDescriptor {
	descriptors := make([]store.SceneDescriptor, len(scenes))
	for i, scene := range scenes {
		descriptors[i] = store.SceneDescriptor{
			Order:         scene.Order,
			VoiceoverText: scene.VoiceoverText,
			VisualIntent:  scene.VisualIntent,
			DurationHint:  scene.DurationHint,
			StyleHints:    scene.StyleHints,
		}
	}
	return descriptors
}

// AssetToView converts a stored media asset.
func AssetToView(asset *store.MediaAsset) AssetView {
	return AssetView{
		ID:           asset.ID,
		UserID:       asset.UserID,
		Provider:     asset.Provider,
		Type:         asset.Type,
		Prompt:       asset.Prompt,
		Status:       string(asset.Status),
		ResultURL:    asset.ResultURL,
		ErrorMessage: asset.ErrorMessage,
		Metadata:     asset.Metadata,
		CreatedAt:    asset.CreatedAt,
		CompletedAt:  asset.CompletedAt,
	}
}

// SummaryToView folds a store health summary into a status view.
func SummaryToView(summary store.HealthSummary, activeRenders int, databasePath string) StatusView {
	return StatusView{
		Running:       true,
		DatabasePath:  databasePath,
		ActiveRenders: activeRenders,
		Total:         summary.Total,
		Draft:         summary.Draft,
		Approved:      summary.Approved,
		Rendering:     summary.Rendering,
		Rendered:      summary.Rendered,
		Failed:        summary.Failed,
	}
}
