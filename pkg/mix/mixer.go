// Package mix implements the ducking engine: it lays a generated music bed
// under dialogue, attenuating the music wherever speech is detected, and
// stitches multi-section results together with linear crossfades.
//
// Every numeric sub-stage degrades to a documented fallback instead of
// failing — the engine always produces a complete mix. Only decode errors on
// the input buffers propagate.
package mix

import (
	"log/slog"
	"math"

	"github.com/sonicmuse/sonicmuse/pkg/audio"
)

const (
	// maskFrameLen and maskHop define the RMS windowing for speech detection.
	// Same framing as the analysis energy curve.
	maskFrameLen = 2048
	maskHop      = 512

	// maskThresholdRatio scales the mean frame energy into the speech
	// threshold: frames above 0.3*mean count as speech.
	maskThresholdRatio = 0.3

	// headroomDB is the peak target dialogue is normalized to before mask
	// extraction, keeping the speech threshold stable across input levels.
	headroomDB = -1.0

	// limitDB is the output peak ceiling.
	limitDB = -1.0

	// smoothingWindowSeconds is the gain-curve smoothing span. Expressed in
	// time, not samples, so the click suppression behaves identically at any
	// sample rate.
	smoothingWindowSeconds = 0.010
)

// Params configures one mix invocation.
type Params struct {
	// BackgroundDB is the music bed level in dB relative to full scale.
	BackgroundDB float64 `yaml:"bg_db" json:"bg_db"`

	// Ducking is the attenuation applied during speech, in [0, 1].
	// 0 leaves the bed untouched; 1 silences it fully under speech.
	Ducking float64 `yaml:"ducking_amount" json:"ducking"`

	// CrossfadeMS is the section crossfade duration in milliseconds.
	CrossfadeMS int `yaml:"crossfade_ms" json:"crossfade_ms"`
}

// DefaultParams are the values used when a request does not override them.
func DefaultParams() Params {
	return Params{BackgroundDB: -18, Ducking: 0.3, CrossfadeMS: 500}
}

// Mix decodes dialogue and background WAV bytes, mixes them with sidechain
// ducking, and returns the result encoded as stereo WAV. Decode failures are
// the only errors this returns; every internal stage degrades instead.
func Mix(dialogueWAV, backgroundWAV []byte, p Params) ([]byte, error) {
	dialogue, err := audio.DecodeWAV(dialogueWAV)
	if err != nil {
		return nil, err
	}
	background, err := audio.DecodeWAV(backgroundWAV)
	if err != nil {
		return nil, err
	}
	mixed := MixBuffers(dialogue, background, p)
	return audio.EncodeWAV(mixed.Stereo())
}

// MixBuffers mixes a decoded dialogue buffer with a decoded music bed. The
// output preserves the dialogue's channel count and is truncated to the
// shorter of the two inputs. MixBuffers never fails.
func MixBuffers(dialogue, background *audio.Buffer, p Params) *audio.Buffer {
	// 1. Normalize dialogue so the mask threshold sees a known level.
	dialogue = normalizePeak(dialogue, headroomDB)

	// 2. Align the bed's format to the dialogue.
	background = audio.Resample(background, dialogue.SampleRate)
	if dialogue.Channels == 1 {
		background = background.Mono()
	} else {
		background = background.Stereo()
	}

	// 3–5. Speech mask → gain curve → smoothing.
	mask := speechMask(dialogue)
	gain := gainCurve(mask, p.Ducking)
	gain = smoothGain(gain, dialogue.SampleRate)

	// 6. Bed level.
	level := math.Pow(10, p.BackgroundDB/20)

	// 7–8. Duck the bed and sum, truncated to the shorter input.
	frames := dialogue.NumFrames()
	if bf := background.NumFrames(); bf < frames {
		frames = bf
	}
	ch := dialogue.Channels
	out := make([]float64, frames*ch)
	for i := range frames {
		g := gain[i] * level
		for c := range ch {
			out[i*ch+c] = dialogue.Samples[i*ch+c] + background.Samples[i*ch+c]*g
		}
	}

	mixed := &audio.Buffer{Samples: out, SampleRate: dialogue.SampleRate, Channels: ch}

	// 9. Peak limit.
	return limitPeak(mixed, limitDB)
}

// normalizePeak scales b so its peak sits at targetDB. Silent or empty
// buffers are returned unchanged — there is nothing to normalize against.
func normalizePeak(b *audio.Buffer, targetDB float64) *audio.Buffer {
	peak := b.Peak()
	if peak <= 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return b
	}
	gain := math.Pow(10, targetDB/20) / peak
	out := b.Clone()
	for i := range out.Samples {
		out.Samples[i] *= gain
	}
	return out
}

// speechMask returns a per-frame (sample-resolution) speech indicator for the
// normalized dialogue: 1 where short-time RMS exceeds 0.3*mean, 0 elsewhere.
// Each RMS frame's verdict is repeated across its hop. If no frames can be
// computed, the fallback is an all-speech mask — over-ducking is inaudible,
// music stomping on dialogue is not.
func speechMask(dialogue *audio.Buffer) []float64 {
	mono := dialogue.Mono()
	n := mono.NumFrames()
	mask := make([]float64, n)

	var energies []float64
	for start := 0; start < n; start += maskHop {
		end := start + maskFrameLen
		if end > n {
			end = n
		}
		sum := 0.0
		for _, s := range mono.Samples[start:end] {
			sum += s * s
		}
		energies = append(energies, math.Sqrt(sum/float64(end-start)))
	}

	if len(energies) == 0 {
		slog.Warn("speech mask unavailable, ducking everywhere")
		for i := range mask {
			mask[i] = 1
		}
		return mask
	}

	mean := 0.0
	for _, e := range energies {
		mean += e
	}
	mean /= float64(len(energies))
	threshold := mean * maskThresholdRatio

	for f, e := range energies {
		if e <= threshold {
			continue
		}
		start := f * maskHop
		end := start + maskHop
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			mask[i] = 1
		}
	}
	return mask
}

// gainCurve converts the speech mask into a per-sample multiplier:
// 1 where the bed plays freely, 1-ducking under detected speech.
func gainCurve(mask []float64, ducking float64) []float64 {
	if ducking < 0 {
		ducking = 0
	} else if ducking > 1 {
		ducking = 1
	}
	gain := make([]float64, len(mask))
	for i, m := range mask {
		gain[i] = 1 - m*ducking
	}
	return gain
}

// smoothGain applies Savitzky–Golay smoothing over a 10 ms window to remove
// clicks at mask transitions. If the curve is too short for the window the
// unsmoothed curve is used as-is.
func smoothGain(gain []float64, sampleRate int) []float64 {
	window := int(smoothingWindowSeconds * float64(sampleRate))
	if window%2 == 0 {
		window++
	}
	smoothed, err := savgol(gain, window, 3)
	if err != nil {
		slog.Debug("gain smoothing skipped", "err", err)
		return gain
	}
	// Smoothing can overshoot slightly at transitions; keep the multiplier
	// a true attenuation.
	for i, g := range smoothed {
		if g > 1 {
			smoothed[i] = 1
		} else if g < 0 {
			smoothed[i] = 0
		}
	}
	return smoothed
}

// limitPeak applies a single global gain so no sample exceeds limitDB. This
// is peak normalization of the overshoot, not dynamic compression: the whole
// buffer is scaled uniformly. A non-finite peak leaves the mix unlimited.
func limitPeak(b *audio.Buffer, limitDB float64) *audio.Buffer {
	peak := b.Peak()
	if math.IsNaN(peak) || math.IsInf(peak, 0) {
		slog.Warn("peak limiter skipped: non-finite peak")
		return b
	}
	limit := math.Pow(10, limitDB/20)
	if peak <= limit {
		return b
	}
	gain := limit / peak
	for i := range b.Samples {
		b.Samples[i] *= gain
	}
	return b
}
