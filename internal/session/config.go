// ABOUTME: Generation config merging, clamping, and prompt normalization
// ABOUTME: Partial updates always produce a full config on the wire
package session

import (
	"github.com/MuseLink-Live/muselink-go/internal/protocol"
)

// DefaultWeight is the prompt weight used when the caller gives none.
const DefaultWeight = 1.0

// Prompt builds a weighted prompt with the default weight.
func Prompt(text string) protocol.WeightedPrompt {
	return protocol.WeightedPrompt{Text: text, Weight: DefaultWeight}
}

// ConfigUpdate is a partial generation config. Nil fields keep their
// current value; set fields are merged into the session's retained config
// before the full config is sent.
type ConfigUpdate struct {
	BPM                 *int
	Density             *float64
	Brightness          *float64
	Scale               *string
	MuteDrums           *bool
	MuteBass            *bool
	OnlyBassAndDrums    *bool
	MusicGenerationMode *string
}

// mergeConfig applies an update to a retained config, clamping out-of-range
// values rather than rejecting them. Density and brightness clamp to [0,1],
// BPM to a non-negative integer.
func mergeConfig(cfg *protocol.MusicGenerationConfig, update ConfigUpdate) {
	if update.BPM != nil {
		bpm := *update.BPM
		if bpm < 0 {
			bpm = 0
		}
		cfg.BPM = bpm
	}
	if update.Density != nil {
		cfg.Density = clamp01(*update.Density)
	}
	if update.Brightness != nil {
		cfg.Brightness = clamp01(*update.Brightness)
	}
	if update.Scale != nil {
		cfg.Scale = *update.Scale
	}
	if update.MuteDrums != nil {
		cfg.MuteDrums = *update.MuteDrums
	}
	if update.MuteBass != nil {
		cfg.MuteBass = *update.MuteBass
	}
	if update.OnlyBassAndDrums != nil {
		cfg.OnlyBassAndDrums = *update.OnlyBassAndDrums
	}
	if update.MusicGenerationMode != nil {
		cfg.MusicGenerationMode = *update.MusicGenerationMode
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizePrompts copies the prompt list, dropping empty texts. Zero
// weights pass through untouched: an explicit zero mutes a prompt, so only
// the Prompt helper bakes the default weight.
func normalizePrompts(prompts []protocol.WeightedPrompt) []protocol.WeightedPrompt {
	out := make([]protocol.WeightedPrompt, 0, len(prompts))
	for _, p := range prompts {
		if p.Text == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
