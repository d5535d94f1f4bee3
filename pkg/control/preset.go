// Package control maps extracted speech features to discrete musical
// controls and renders them into a generation prompt via a static preset
// table.
package control

// Mood is the discrete emotional register decided from speech features.
type Mood string

const (
	MoodCalm   Mood = "calm"
	MoodBright Mood = "bright"
	MoodTense  Mood = "tense"
	MoodDark   Mood = "dark"
	MoodBusy   Mood = "busy"
)

// IsValid reports whether m is a recognised mood.
func (m Mood) IsValid() bool {
	switch m {
	case MoodCalm, MoodBright, MoodTense, MoodDark, MoodBusy:
		return true
	}
	return false
}

// Key is the musical key for generation.
type Key string

const (
	KeyCMajor Key = "Cmaj"
	KeyAMinor Key = "Amin"
)

// Preset bundles the style descriptors used to build a generation prompt for
// a given mood.
type Preset struct {
	ID          string `yaml:"id"`
	Mood        Mood   `yaml:"mood"`
	Style       string `yaml:"style"`
	Instruments string `yaml:"instruments"`
	Texture     string `yaml:"texture"`
	MixHint     string `yaml:"mix_hint"`
}

// DefaultStyleID is the preset used whenever no table entry matches.
const DefaultStyleID = "ambient_calm"

// presets is the process-wide preset table. It is initialised here, never
// mutated, and safe for concurrent reads from any number of requests.
// Lookup order matters: the first entry matching a mood wins.
var presets = []Preset{
	{
		ID:          "ambient_calm",
		Mood:        MoodCalm,
		Style:       "Ambient cinematic",
		Instruments: "pads, soft piano, light shaker",
		Texture:     "wide, airy, minimal movement",
		MixHint:     "sidechained lightly to speech",
	},
	{
		ID:          "lofi_bright",
		Mood:        MoodBright,
		Style:       "Lo-fi hip hop",
		Instruments: "soft drums, Rhodes, gentle bass",
		Texture:     "warm, cozy",
		MixHint:     "mono-friendly center",
	},
	{
		ID:          "orchestral_tense",
		Mood:        MoodTense,
		Style:       "Hybrid orchestral",
		Instruments: "low strings, pulses, light percussion",
		Texture:     "driving, evolving",
		MixHint:     "less midrange to avoid masking voice",
	},
	{
		ID:          "dark_ambient",
		Mood:        MoodDark,
		Style:       "Dark ambient",
		Instruments: "deep pads, subtle drones, minimal percussion",
		Texture:     "atmospheric, mysterious",
		MixHint:     "low-end focused, sparse",
	},
	{
		ID:          "upbeat_busy",
		Mood:        MoodBusy,
		Style:       "Upbeat electronic",
		Instruments: "synth arps, electronic drums, bass",
		Texture:     "energetic, layered",
		MixHint:     "bright, punchy",
	},
}

// Presets returns a copy of the preset table. The copy protects the shared
// table from accidental mutation by callers.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// PresetByID returns the preset with the given id, or (zero, false) if no
// entry matches.
func PresetByID(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// presetForMood returns the id of the first preset whose mood matches, or
// [DefaultStyleID] when none does.
func presetForMood(m Mood) string {
	for _, p := range presets {
		if p.Mood == m {
			return p.ID
		}
	}
	return DefaultStyleID
}
