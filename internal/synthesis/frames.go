package synthesis

import (
	"math"

	"reelsmith/internal/assets"
)

// ScenePlan fixes one scene's frame boundaries on the output timeline.
// EndFrame is exclusive.
type ScenePlan struct {
	Order      int
	StartFrame int
	EndFrame   int
}

// DurationFrames returns the scene's length in frames.
func (p ScenePlan) DurationFrames() int {
	return p.EndFrame - p.StartFrame
}

// PlanFrames computes frame-accurate scene boundaries by accumulating each
// scene's duration hint, falling back to an even split of the total duration
// for scenes without one. The final scene always ends exactly at the total
// frame count so the timeline has no gap or overrun.
func PlanFrames(scenes []assets.PreparedScene, totalDurationSeconds, fps int) ([]ScenePlan, int) {
	totalFrames := totalDurationSeconds * fps
	if len(scenes) == 0 {
		return nil, totalFrames
	}

	evenShare := float64(totalDurationSeconds) / float64(len(scenes))
	plans := make([]ScenePlan, len(scenes))
	cursor := 0.0
	for i, scene := range scenes {
		seconds := scene.DurationHint
		if seconds <= 0 {
			seconds = evenShare
		}
		start := int(math.Round(cursor * float64(fps)))
		cursor += seconds
		end := int(math.Round(cursor * float64(fps)))
		if i == len(scenes)-1 {
			end = totalFrames
		}
		if start > totalFrames {
			start = totalFrames
		}
		if end <= start {
			end = start + 1
		}
		plans[i] = ScenePlan{Order: scene.Order, StartFrame: start, EndFrame: end}
	}
	return plans, totalFrames
}
