package synthesis

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const systemPrompt = `You are an expert motion-graphics engineer writing Remotion compositions in TypeScript.

Rules:
- Import only from "remotion" and "react".
- Produce exactly one component and export it with a single default export.
- The root element must be an AbsoluteFill.
- Time everything in frames using Sequence, useCurrentFrame, and interpolate. Never use seconds, timers, or wall-clock APIs.
- Use the exact frame boundaries given for each scene. Do not shift, merge, or reorder scenes.
- Embed the provided media URLs directly. When a scene has no video URL, render a styled background instead. When a scene has no audio URL, omit audio for that scene.
- No eval, no Function constructor, no require, no dynamic imports, no filesystem, process, or network access.
- Respond with code only. No explanation, no markdown fences.`

var titleCaser = cases.Title(language.English)

// componentName derives a PascalCase identifier from the spec title.
func componentName(title string) string {
	var b strings.Builder
	for _, word := range strings.Fields(titleCaser.String(title)) {
		for _, r := range word {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "Composition" + name
	}
	return name
}

// buildUserPrompt lays out the full render request: output geometry, the exact
// per-scene frame boundaries, and the prepared media for each scene.
func buildUserPrompt(req Request, plans []ScenePlan, totalFrames int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a Remotion composition named %s.\n\n", componentName(req.Title))
	fmt.Fprintf(&b, "Video: %q", req.Title)
	if desc := strings.TrimSpace(req.Description); desc != "" {
		fmt.Fprintf(&b, " — %s", desc)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Output: %dx%d at %d fps, %d frames total (%d seconds).\n\n",
		req.Width, req.Height, req.FPS, totalFrames, req.TargetDuration)

	b.WriteString("Scenes (frame boundaries are exact):\n")
	for i, scene := range req.Scenes {
		plan := plans[i]
		fmt.Fprintf(&b, "\nScene %d: frames %d-%d (%d frames)\n",
			scene.Order, plan.StartFrame, plan.EndFrame, plan.DurationFrames())
		fmt.Fprintf(&b, "  Voiceover: %s\n", scene.VoiceoverText)
		fmt.Fprintf(&b, "  Visual intent: %s\n", scene.VisualIntent)
		if scene.AudioURL != "" {
			fmt.Fprintf(&b, "  Audio URL: %s\n", scene.AudioURL)
		} else {
			b.WriteString("  Audio URL: none (omit audio for this scene)\n")
		}
		if len(scene.VideoURLs) > 0 {
			fmt.Fprintf(&b, "  Video URLs: %s\n", strings.Join(scene.VideoURLs, ", "))
		} else {
			b.WriteString("  Video URLs: none (use a styled background)\n")
		}
	}
	return b.String()
}
