package control

import (
	"math"

	"github.com/sonicmuse/sonicmuse/pkg/analysis"
)

// Controls are the discrete musical parameters handed to the generator.
type Controls struct {
	Mood     Mood   `json:"mood"`
	TempoBPM int    `json:"tempo_bpm"`
	Key      Key    `json:"key"`
	StyleID  string `json:"style_id"`
}

const (
	minTempoBPM = 60
	maxTempoBPM = 160
)

// SafeDefault is returned by [Decide] whenever the input cannot be evaluated.
// Decide never fails — a music bed is always produced, even from garbage
// features.
var SafeDefault = Controls{
	Mood:     MoodCalm,
	TempoBPM: 120,
	Key:      KeyCMajor,
	StyleID:  DefaultStyleID,
}

// moodRule is one entry of the ordered decision table. Rules are evaluated
// top to bottom and the first matching predicate wins, so the table encodes
// the exact tie-break order.
type moodRule struct {
	name  string
	match func(m metrics) bool
	mood  func(m metrics) Mood
}

// metrics are the scalar feature summaries the rule table reads.
type metrics struct {
	energyMean float64
	f0Mean     float64
	f0Std      float64
	rateWPM    float64
	pauseCount int
	duration   float64
}

var moodRules = []moodRule{
	{
		// Loud, pitch-varied delivery: agitated speech.
		name:  "high energy + pitch variance",
		match: func(m metrics) bool { return m.energyMean > 0.1 && m.f0Std > 50 },
		mood: func(m metrics) Mood {
			if m.rateWPM > 150 {
				return MoodBusy
			}
			return MoodTense
		},
	},
	{
		name:  "fast speech",
		match: func(m metrics) bool { return m.rateWPM > 160 },
		mood:  func(metrics) Mood { return MoodBright },
	},
	{
		// Frequent pauses at low level: subdued delivery.
		name: "many pauses + low energy",
		match: func(m metrics) bool {
			return float64(m.pauseCount) > m.duration/10 && m.energyMean < 0.05
		},
		mood: func(m metrics) Mood {
			if m.f0Mean < 150 {
				return MoodDark
			}
			return MoodCalm
		},
	},
	{
		name:  "default",
		match: func(metrics) bool { return true },
		mood:  func(metrics) Mood { return MoodCalm },
	},
}

// Decide maps a feature set to musical controls. It is pure and total:
// identical input always yields identical output, and invalid input
// (nil features, NaN metrics) yields [SafeDefault] instead of an error.
func Decide(features *analysis.FeatureSet) Controls {
	if features == nil {
		return SafeDefault
	}

	m := metrics{
		energyMean: features.Energy.Mean,
		f0Mean:     features.Pitch.Mean,
		f0Std:      features.Pitch.Std,
		rateWPM:    features.SpeechRateWPM,
		pauseCount: len(features.PauseTimestamps),
		duration:   features.Duration,
	}
	if hasNaN(m.energyMean, m.f0Mean, m.f0Std, m.rateWPM, m.duration) {
		return SafeDefault
	}

	mood := MoodCalm
	for _, rule := range moodRules {
		if rule.match(m) {
			mood = rule.mood(m)
			break
		}
	}

	tempo := int(math.Round(m.rateWPM*0.6 + 80))
	if tempo < minTempoBPM {
		tempo = minTempoBPM
	} else if tempo > maxTempoBPM {
		tempo = maxTempoBPM
	}

	key := KeyAMinor
	if mood == MoodBright || mood == MoodBusy {
		key = KeyCMajor
	}

	return Controls{
		Mood:     mood,
		TempoBPM: tempo,
		Key:      key,
		StyleID:  presetForMood(mood),
	}
}

func hasNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
