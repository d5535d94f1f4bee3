package control

import "fmt"

// fallbackPrompt is the literal emitted when prompt construction cannot
// proceed: the ambient_calm preset rendered with the safe default controls.
const fallbackPrompt = "Ambient cinematic, calm, 120 BPM, key Cmaj, " +
	"instrumentation: pads, soft piano, light shaker, " +
	"texture: wide, airy, minimal movement, " +
	"mix: sidechained lightly to speech"

// BuildPrompt renders controls into a generation prompt using the preset
// table. An unknown style id falls back to the first table entry; a fully
// invalid Controls value (empty mood) falls back to the fixed literal. Like
// [Decide], BuildPrompt never fails.
func BuildPrompt(c Controls) string {
	if !c.Mood.IsValid() {
		return fallbackPrompt
	}

	preset, ok := PresetByID(c.StyleID)
	if !ok {
		preset = presets[0]
	}

	return fmt.Sprintf("%s, %s, %d BPM, key %s, instrumentation: %s, texture: %s, mix: %s",
		preset.Style, c.Mood, c.TempoBPM, c.Key,
		preset.Instruments, preset.Texture, preset.MixHint)
}
