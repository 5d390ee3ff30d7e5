package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SpecStatus represents the lifecycle of a scene specification.
// Statuses only ever advance: draft -> approved -> rendering -> rendered|failed.
type SpecStatus string

const (
	SpecStatusDraft     SpecStatus = "draft"
	SpecStatusApproved  SpecStatus = "approved"
	SpecStatusRendering SpecStatus = "rendering"
	SpecStatusRendered  SpecStatus = "rendered"
	SpecStatusFailed    SpecStatus = "failed"
)

var allSpecStatuses = []SpecStatus{
	SpecStatusDraft,
	SpecStatusApproved,
	SpecStatusRendering,
	SpecStatusRendered,
	SpecStatusFailed,
}

// Terminal reports whether no further automatic transition occurs.
func (s SpecStatus) Terminal() bool {
	return s == SpecStatusRendered || s == SpecStatusFailed
}

// ParseSpecStatus converts a string into a known SpecStatus.
func ParseSpecStatus(value string) (SpecStatus, bool) {
	normalized := SpecStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allSpecStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// AllSpecStatuses returns the ordered list of known spec statuses.
func AllSpecStatuses() []SpecStatus {
	cp := make([]SpecStatus, len(allSpecStatuses))
	copy(cp, allSpecStatuses)
	return cp
}

// AssetStatus represents the lifecycle of a media asset.
type AssetStatus string

const (
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusReady      AssetStatus = "ready"
	AssetStatusFailed     AssetStatus = "failed"
)

// Terminal reports whether no further automatic transition occurs.
func (s AssetStatus) Terminal() bool {
	return s == AssetStatusReady || s == AssetStatusFailed
}

// AssetTypeVideo is the only asset type the long-form pipeline produces.
const AssetTypeVideo = "video"

// ProviderContentEngine tags assets produced by the internal render pipeline.
const ProviderContentEngine = "content-engine"

// DaemonStopMessage is the error message written to in-flight records when the
// daemon shuts down before their render completes.
const DaemonStopMessage = "render interrupted by daemon shutdown"

// SceneDescriptor is one ordered entry of a scene specification. Descriptors
// are embedded in their owning spec and have no independent identity.
type SceneDescriptor struct {
	Order         int               `json:"order"`
	VoiceoverText string            `json:"voiceover_text"`
	VisualIntent  string            `json:"visual_intent"`
	DurationHint  float64           `json:"duration_hint,omitempty"`
	StyleHints    map[string]string `json:"style_hints,omitempty"`
}

// ValidateScenes checks the structural invariants of a descriptor list:
// non-empty, 1-based contiguous ordering, and non-empty text fields.
func ValidateScenes(scenes []SceneDescriptor) error {
	if len(scenes) == 0 {
		return errors.New("specification must contain at least one scene")
	}
	for i, scene := range scenes {
		if scene.Order != i+1 {
			return fmt.Errorf("scene %d: order must be %d, got %d", i+1, i+1, scene.Order)
		}
		if strings.TrimSpace(scene.VoiceoverText) == "" {
			return fmt.Errorf("scene %d: voiceover text must not be empty", scene.Order)
		}
		if strings.TrimSpace(scene.VisualIntent) == "" {
			return fmt.Errorf("scene %d: visual intent must not be empty", scene.Order)
		}
		if scene.DurationHint < 0 {
			return fmt.Errorf("scene %d: duration hint must not be negative", scene.Order)
		}
	}
	return nil
}

// SceneSpec is a structured description of a video to produce, broken into
// ordered scenes.
type SceneSpec struct {
	ID             string
	UserID         string
	Title          string
	Description    string
	TargetDuration int // seconds
	Scenes         []SceneDescriptor
	Status         SpecStatus
	ErrorMessage   string
	MediaAssetID   string
	CreatedAt      time.Time
	RenderedAt     *time.Time
}

// AssetMetadata captures render output details alongside the produced asset.
type AssetMetadata struct {
	FPS        int    `json:"fps"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FrameCount int    `json:"frame_count"`
	SceneCount int    `json:"scene_count"`
	SpecID     string `json:"spec_id"`
}

// MediaAsset is a persisted record representing one produced (or in-progress)
// media artifact and its status.
type MediaAsset struct {
	ID           string
	UserID       string
	Provider     string
	Type         string
	Prompt       string
	Status       AssetStatus
	ResultURL    string
	ErrorMessage string
	Metadata     AssetMetadata
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// RenderOutcome describes the terminal result applied to a spec/asset pair.
type RenderOutcome struct {
	Succeeded    bool
	ResultURL    string
	ErrorMessage string
}

// HealthSummary describes aggregated spec counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	Draft     int
	Approved  int
	Rendering int
	Rendered  int
	Failed    int
}
