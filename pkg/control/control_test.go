package control_test

import (
	"math"
	"strings"
	"testing"

	"github.com/sonicmuse/sonicmuse/pkg/analysis"
	"github.com/sonicmuse/sonicmuse/pkg/control"
)

// features builds a FeatureSet with the given scalar summaries; the curves
// themselves are irrelevant to the decision.
func features(energyMean, f0Mean, f0Std, rateWPM float64, pauses int, duration float64) *analysis.FeatureSet {
	ts := make([]float64, pauses)
	return &analysis.FeatureSet{
		Energy:          analysis.Curve{Mean: energyMean},
		Pitch:           analysis.PitchCurve{Curve: analysis.Curve{Mean: f0Mean, Std: f0Std}},
		SpeechRateWPM:   rateWPM,
		PauseTimestamps: ts,
		Duration:        duration,
	}
}

func TestDecide_MoodRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		features *analysis.FeatureSet
		want     control.Mood
	}{
		{
			name:     "high energy and pitch variance is tense",
			features: features(0.2, 180, 60, 120, 0, 30),
			want:     control.MoodTense,
		},
		{
			name:     "high energy, pitch variance and fast speech is busy",
			features: features(0.2, 180, 60, 170, 0, 30),
			want:     control.MoodBusy,
		},
		{
			name:     "fast speech alone is bright",
			features: features(0.05, 180, 20, 170, 0, 30),
			want:     control.MoodBright,
		},
		{
			name:     "pauses with low energy and low pitch is dark",
			features: features(0.02, 120, 10, 100, 5, 30),
			want:     control.MoodDark,
		},
		{
			name:     "pauses with low energy and higher pitch is calm",
			features: features(0.02, 200, 10, 100, 5, 30),
			want:     control.MoodCalm,
		},
		{
			name:     "unremarkable delivery is calm",
			features: features(0.05, 180, 20, 120, 0, 30),
			want:     control.MoodCalm,
		},
		{
			// The energetic rule sits above the fast-speech rule.
			name:     "energy rule wins over fast speech",
			features: features(0.2, 180, 60, 155, 0, 30),
			want:     control.MoodBusy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := control.Decide(tt.features)
			if got.Mood != tt.want {
				t.Errorf("Decide().Mood = %q, want %q", got.Mood, tt.want)
			}
			if !got.Mood.IsValid() {
				t.Errorf("Decide() produced invalid mood %q", got.Mood)
			}
		})
	}
}

func TestDecide_TempoFollowsSpeechRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rateWPM float64
		want    int
	}{
		{0, 80},
		{100, 140},
		{1000, 160}, // clamped high
		{-500, 60},  // clamped low
	}
	for _, tt := range tests {
		got := control.Decide(features(0.05, 180, 20, tt.rateWPM, 0, 30))
		if got.TempoBPM != tt.want {
			t.Errorf("Decide(rate=%v).TempoBPM = %d, want %d", tt.rateWPM, got.TempoBPM, tt.want)
		}
	}
}

func TestDecide_KeyFollowsMood(t *testing.T) {
	t.Parallel()

	if got := control.Decide(features(0.05, 180, 20, 170, 0, 30)); got.Key != control.KeyCMajor {
		t.Errorf("bright mood Key = %q, want %q", got.Key, control.KeyCMajor)
	}
	if got := control.Decide(features(0.2, 180, 60, 120, 0, 30)); got.Key != control.KeyAMinor {
		t.Errorf("tense mood Key = %q, want %q", got.Key, control.KeyAMinor)
	}
}

func TestDecide_SafeDefault(t *testing.T) {
	t.Parallel()

	if got := control.Decide(nil); got != control.SafeDefault {
		t.Errorf("Decide(nil) = %+v, want SafeDefault", got)
	}

	nan := features(math.NaN(), 180, 20, 120, 0, 30)
	if got := control.Decide(nan); got != control.SafeDefault {
		t.Errorf("Decide(NaN energy) = %+v, want SafeDefault", got)
	}

	inf := features(0.05, 180, 20, math.Inf(1), 0, 30)
	if got := control.Decide(inf); got != control.SafeDefault {
		t.Errorf("Decide(Inf rate) = %+v, want SafeDefault", got)
	}
}

func TestDecide_Deterministic(t *testing.T) {
	t.Parallel()

	f := features(0.2, 180, 60, 120, 2, 30)
	first := control.Decide(f)
	for range 10 {
		if got := control.Decide(f); got != first {
			t.Fatalf("Decide() = %+v, want stable %+v", got, first)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	c := control.Controls{
		Mood:     control.MoodTense,
		TempoBPM: 140,
		Key:      control.KeyAMinor,
		StyleID:  "orchestral_tense",
	}
	prompt := control.BuildPrompt(c)

	for _, want := range []string{"Hybrid orchestral", "tense", "140 BPM", "key Amin", "low strings"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("BuildPrompt() = %q, missing %q", prompt, want)
		}
	}
}

func TestBuildPrompt_UnknownStyleFallsBack(t *testing.T) {
	t.Parallel()

	c := control.Controls{
		Mood:     control.MoodCalm,
		TempoBPM: 120,
		Key:      control.KeyCMajor,
		StyleID:  "does_not_exist",
	}
	prompt := control.BuildPrompt(c)
	if !strings.Contains(prompt, "Ambient cinematic") {
		t.Errorf("BuildPrompt() = %q, want first-preset fallback", prompt)
	}
}

func TestBuildPrompt_InvalidMoodUsesLiteral(t *testing.T) {
	t.Parallel()

	got := control.BuildPrompt(control.Controls{})
	if !strings.Contains(got, "Ambient cinematic, calm, 120 BPM, key Cmaj") {
		t.Errorf("BuildPrompt(zero) = %q, want fixed fallback prompt", got)
	}
}

func TestPresets_EveryMoodCovered(t *testing.T) {
	t.Parallel()

	byMood := map[control.Mood]bool{}
	for _, p := range control.Presets() {
		byMood[p.Mood] = true
	}
	for _, m := range []control.Mood{
		control.MoodCalm, control.MoodBright, control.MoodTense, control.MoodDark, control.MoodBusy,
	} {
		if !byMood[m] {
			t.Errorf("preset table has no entry for mood %q", m)
		}
	}
}

func TestPresets_ReturnsCopy(t *testing.T) {
	t.Parallel()

	first := control.Presets()
	first[0].ID = "mutated"
	if control.Presets()[0].ID == "mutated" {
		t.Error("Presets() exposes the shared table to mutation")
	}
}

func TestPresetByID(t *testing.T) {
	t.Parallel()

	p, ok := control.PresetByID("lofi_bright")
	if !ok {
		t.Fatal("PresetByID(lofi_bright) not found")
	}
	if p.Mood != control.MoodBright {
		t.Errorf("preset mood = %q, want %q", p.Mood, control.MoodBright)
	}

	if _, ok := control.PresetByID("nope"); ok {
		t.Error("PresetByID(nope) reported found")
	}
}
