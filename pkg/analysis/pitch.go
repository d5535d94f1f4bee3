package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// pitchWindow is the analysis window per pitch estimate, in samples at
	// [AnalysisRate]. 1024 samples (64 ms) comfortably covers two periods of
	// the lowest frequency of interest.
	pitchWindow = 1024

	// Voiced speech fundamentals fall between these bounds; anything outside
	// is treated as unvoiced.
	minPitchHz = 50.0
	maxPitchHz = 500.0

	// voicingThreshold is the minimum normalized autocorrelation peak for a
	// frame to count as voiced.
	voicingThreshold = 0.5

	// silenceFloor is the RMS below which a frame is unvoiced regardless of
	// its autocorrelation shape.
	silenceFloor = 1e-4
)

// pitchCurve estimates f0 every [pitchStepSeconds] using FFT-based
// normalized autocorrelation. Unvoiced frames get a value of 0; the
// confidence slot always holds the autocorrelation peak so downstream
// consumers can apply their own threshold.
func pitchCurve(samples []float64, sampleRate int) PitchCurve {
	step := int(pitchStepSeconds * float64(sampleRate))
	if step <= 0 {
		step = 160
	}

	// FFT length: next power of two above 2*window to avoid circular
	// autocorrelation wrap-around.
	fftLen := 1
	for fftLen < 2*pitchWindow {
		fftLen *= 2
	}
	fft := fourier.NewFFT(fftLen)

	minLag := int(float64(sampleRate) / maxPitchHz)
	maxLag := int(float64(sampleRate) / minPitchHz)
	if maxLag >= pitchWindow {
		maxLag = pitchWindow - 1
	}

	var times, values, confidence []float64
	padded := make([]float64, fftLen)

	for start := 0; start+pitchWindow <= len(samples); start += step {
		frame := samples[start : start+pitchWindow]

		f0, conf := estimateFrame(fft, frame, padded, sampleRate, minLag, maxLag)

		times = append(times, float64(start)/float64(sampleRate))
		values = append(values, f0)
		confidence = append(confidence, conf)
	}

	voiced := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			voiced = append(voiced, v)
		}
	}
	mean, std := meanStd(voiced)

	return PitchCurve{
		Curve:      Curve{Time: times, Values: values, Mean: mean, Std: std},
		Confidence: confidence,
	}
}

// estimateFrame returns (f0, confidence) for one analysis frame. f0 is 0 for
// unvoiced frames. padded is scratch space of FFT length, reused across calls.
func estimateFrame(fft *fourier.FFT, frame, padded []float64, sampleRate, minLag, maxLag int) (float64, float64) {
	// Remove DC and measure energy.
	mean := 0.0
	for _, s := range frame {
		mean += s
	}
	mean /= float64(len(frame))

	energy := 0.0
	for i, s := range frame {
		padded[i] = s - mean
		energy += padded[i] * padded[i]
	}
	for i := len(frame); i < len(padded); i++ {
		padded[i] = 0
	}
	if math.Sqrt(energy/float64(len(frame))) < silenceFloor {
		return 0, 0
	}

	// Autocorrelation = IFFT(|FFT(x)|^2), Wiener–Khinchin.
	spec := fft.Coefficients(nil, padded)
	for i, c := range spec {
		re := real(c)
		im := imag(c)
		spec[i] = complex(re*re+im*im, 0)
	}
	ac := fft.Sequence(nil, spec)

	r0 := ac[0]
	if r0 <= 0 {
		return 0, 0
	}

	bestLag := 0
	bestVal := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		if ac[lag] > bestVal {
			bestVal = ac[lag]
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0, 0
	}

	conf := bestVal / r0
	if conf < voicingThreshold {
		return 0, conf
	}

	// Parabolic interpolation around the peak for sub-sample lag precision.
	lag := float64(bestLag)
	if bestLag > minLag && bestLag < maxLag {
		a, b, c := ac[bestLag-1], ac[bestLag], ac[bestLag+1]
		denom := a - 2*b + c
		if denom != 0 {
			lag += 0.5 * (a - c) / denom
		}
	}

	return float64(sampleRate) / lag, conf
}
