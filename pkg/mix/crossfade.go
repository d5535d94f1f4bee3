package mix

import (
	"errors"

	"github.com/sonicmuse/sonicmuse/pkg/audio"
)

// ErrEmptyInput is returned when Crossfade receives no sections.
var ErrEmptyInput = errors.New("mix: no audio sections provided")

// Crossfade stitches encoded WAV sections into one continuous buffer,
// overlapping adjacent sections with a linear fade of crossfadeMS. A single
// section is returned byte-identical; zero sections is an error.
func Crossfade(sections [][]byte, crossfadeMS int) ([]byte, error) {
	if len(sections) == 0 {
		return nil, ErrEmptyInput
	}
	if len(sections) == 1 {
		return sections[0], nil
	}

	result, err := audio.DecodeWAV(sections[0])
	if err != nil {
		return nil, err
	}

	for _, raw := range sections[1:] {
		next, err := audio.DecodeWAV(raw)
		if err != nil {
			return nil, err
		}
		result = crossfadeBuffers(result, next, crossfadeMS)
	}

	return audio.EncodeWAV(result)
}

// crossfadeBuffers appends next onto the tail of cur with a linear overlap.
// next is aligned to cur's sample rate and channel count first. The overlap
// is shortened when either buffer is shorter than the requested fade.
func crossfadeBuffers(cur, next *audio.Buffer, crossfadeMS int) *audio.Buffer {
	next = audio.Resample(next, cur.SampleRate)
	if cur.Channels == 1 {
		next = next.Mono()
	} else {
		next = next.Stereo()
	}

	ch := cur.Channels
	curFrames := cur.NumFrames()
	nextFrames := next.NumFrames()

	overlap := cur.SampleRate * crossfadeMS / 1000
	if overlap > curFrames {
		overlap = curFrames
	}
	if overlap > nextFrames {
		overlap = nextFrames
	}
	if overlap < 0 {
		overlap = 0
	}

	outFrames := curFrames + nextFrames - overlap
	out := make([]float64, outFrames*ch)
	copy(out, cur.Samples[:(curFrames-overlap)*ch])

	// Overlap region: cur fades out linearly while next fades in.
	for i := range overlap {
		fadeOut := 1 - float64(i+1)/float64(overlap+1)
		fadeIn := 1 - fadeOut
		base := (curFrames - overlap + i) * ch
		for c := range ch {
			out[base+c] = cur.Samples[base+c]*fadeOut + next.Samples[i*ch+c]*fadeIn
		}
	}

	copy(out[curFrames*ch:], next.Samples[overlap*ch:])

	return &audio.Buffer{Samples: out, SampleRate: cur.SampleRate, Channels: ch}
}
