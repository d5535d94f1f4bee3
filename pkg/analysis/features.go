// Package analysis extracts the speech features that drive music control
// decisions: a short-time RMS energy curve, a fundamental-frequency curve
// with voicing confidence, the speech rate, and inter-segment pauses.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sonicmuse/sonicmuse/pkg/audio"
	"github.com/sonicmuse/sonicmuse/pkg/types"
)

// ErrAnalysis is returned (wrapped) when feature extraction fails. Callers
// are expected to handle it — the extractor itself never degrades silently.
var ErrAnalysis = errors.New("analysis: feature extraction failed")

const (
	// AnalysisRate is the sample rate all input audio is converted to before
	// analysis. Matches the rate the ASR collaborator consumes.
	AnalysisRate = 16000

	// energyFrameLen and energyHop define the short-time RMS windowing.
	energyFrameLen = 2048
	energyHop      = 512

	// pitchStepSeconds is the spacing of pitch estimates.
	pitchStepSeconds = 0.010

	// pauseGapSeconds is the minimum inter-segment gap recorded as a pause.
	pauseGapSeconds = 0.5
)

// Curve is a sampled time series with aggregate statistics.
type Curve struct {
	Time   []float64 `json:"time"`
	Values []float64 `json:"values"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// PitchCurve is a Curve with a per-sample voicing confidence. Mean and Std
// are computed over voiced samples only (value > 0) and are 0 when no voiced
// samples exist.
type PitchCurve struct {
	Curve
	Confidence []float64 `json:"confidence"`
}

// FeatureSet holds everything the control decider needs. It is created fresh
// per call and owned exclusively by the caller.
type FeatureSet struct {
	Energy          Curve      `json:"energy_curve"`
	Pitch           PitchCurve `json:"f0_curve"`
	SpeechRateWPM   float64    `json:"speech_rate_wpm"`
	PauseTimestamps []float64  `json:"pause_timestamps"`
	Duration        float64    `json:"duration"`
	TotalWords      int        `json:"total_words"`
}

// Extract computes a FeatureSet from a decoded buffer and its transcription
// segments. The buffer is downmixed to mono and resampled to [AnalysisRate]
// internally; segments must be ordered by start time.
func Extract(b *audio.Buffer, segments []types.Segment) (*FeatureSet, error) {
	if b == nil || len(b.Samples) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, audio.ErrEmptyBuffer)
	}

	mono := audio.ToAnalysisFormat(b, AnalysisRate)
	duration := mono.Seconds()

	energy := rmsCurve(mono.Samples, AnalysisRate)
	pitch := pitchCurve(mono.Samples, AnalysisRate)

	totalWords := 0
	for _, seg := range segments {
		totalWords += len(strings.Fields(seg.Text))
	}

	rate := 0.0
	if duration > 0 {
		rate = float64(totalWords) / duration * 60
	}

	pauses := []float64{}
	for i := 0; i+1 < len(segments); i++ {
		if segments[i+1].Start-segments[i].End > pauseGapSeconds {
			pauses = append(pauses, segments[i].End)
		}
	}

	return &FeatureSet{
		Energy:          energy,
		Pitch:           pitch,
		SpeechRateWPM:   rate,
		PauseTimestamps: pauses,
		Duration:        duration,
		TotalWords:      totalWords,
	}, nil
}

// rmsCurve computes short-time RMS energy over fixed frames. Frames that run
// past the end of the signal use the remaining samples.
func rmsCurve(samples []float64, sampleRate int) Curve {
	var values, times []float64
	for start := 0; start < len(samples); start += energyHop {
		end := start + energyFrameLen
		if end > len(samples) {
			end = len(samples)
		}
		sum := 0.0
		for _, s := range samples[start:end] {
			sum += s * s
		}
		values = append(values, math.Sqrt(sum/float64(end-start)))
		times = append(times, float64(start)/float64(sampleRate))
	}
	mean, std := meanStd(values)
	return Curve{Time: times, Values: values, Mean: mean, Std: std}
}

// meanStd returns the mean and population standard deviation of values, or
// (0, 0) for an empty slice. The empty guard keeps NaN out of the feature
// set when a curve (or its voiced subset) has no samples.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(values)))
}
