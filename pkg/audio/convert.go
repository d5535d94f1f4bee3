package audio

import "log/slog"

// Resample converts b to dstRate using linear interpolation, preserving the
// channel count. If the rates already match (or either rate is invalid) the
// input is returned unchanged. Linear interpolation is adequate here: the
// background music bed sits well below the dialogue and any imaging artefacts
// are masked by the duck.
func Resample(b *Buffer, dstRate int) *Buffer {
	if b.SampleRate <= 0 || dstRate <= 0 || b.SampleRate == dstRate {
		return b
	}
	srcFrames := b.NumFrames()
	if srcFrames < 2 {
		return b
	}
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(b.SampleRate))
	if dstFrames == 0 {
		return &Buffer{SampleRate: dstRate, Channels: b.Channels}
	}

	slog.Debug("resampling buffer",
		"from_hz", b.SampleRate,
		"to_hz", dstRate,
		"channels", b.Channels,
	)

	ch := b.Channels
	out := make([]float64, dstFrames*ch)
	ratio := float64(b.SampleRate) / float64(dstRate)

	for i := range dstFrames {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		for c := range ch {
			s0 := b.Samples[srcIdx*ch+c]
			s1 := s0
			if srcIdx+1 < srcFrames {
				s1 = b.Samples[(srcIdx+1)*ch+c]
			}
			out[i*ch+c] = s0*(1-frac) + s1*frac
		}
	}
	return &Buffer{Samples: out, SampleRate: dstRate, Channels: ch}
}

// ToAnalysisFormat converts b to the mono format expected by the feature
// extractor. Conversion order: downmix first, then resample — avoids
// resampling two channels when only one is needed.
func ToAnalysisFormat(b *Buffer, analysisRate int) *Buffer {
	return Resample(b.Mono(), analysisRate)
}
