// Package compose orchestrates the full pipeline: transcription, feature
// extraction, control decision, prompt construction, music generation, and
// the final ducked mix.
package compose

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sonicmuse/sonicmuse/internal/observe"
	"github.com/sonicmuse/sonicmuse/pkg/analysis"
	"github.com/sonicmuse/sonicmuse/pkg/audio"
	"github.com/sonicmuse/sonicmuse/pkg/control"
	"github.com/sonicmuse/sonicmuse/pkg/mix"
	"github.com/sonicmuse/sonicmuse/pkg/provider/asr"
	"github.com/sonicmuse/sonicmuse/pkg/provider/musicgen"
	"github.com/sonicmuse/sonicmuse/pkg/provider/segmenter"
	"github.com/sonicmuse/sonicmuse/pkg/types"
)

// maxConcurrentGenerations bounds parallel music generation calls so a
// multi-section script does not overload the backend.
const maxConcurrentGenerations = 2

// minSectionSeconds is the shortest music bed requested per section.
const minSectionSeconds = 1

// Config holds pipeline defaults applied to every request.
type Config struct {
	// DurationSeconds is the generated bed length for single-shot
	// generation requests.
	DurationSeconds int

	// Seed makes generation reproducible across runs.
	Seed int64

	// MixParams are the default ducking and crossfade parameters.
	MixParams mix.Params
}

// Pipeline wires the collaborators together. Construct with [New]; the zero
// value is not usable.
type Pipeline struct {
	asr     asr.Provider
	gen     musicgen.Provider
	seg     segmenter.Provider
	metrics *observe.Metrics
	cfg     Config
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSegmenter registers a script segmentation collaborator. Without one,
// every recording is scored as a single section.
func WithSegmenter(s segmenter.Provider) Option {
	return func(p *Pipeline) { p.seg = s }
}

// WithMetrics sets the metrics instance used for per-stage instrumentation.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline around the given transcription and generation
// backends.
func New(asrP asr.Provider, genP musicgen.Provider, cfg Config, opts ...Option) *Pipeline {
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = 30
	}
	p := &Pipeline{
		asr: asrP,
		gen: genP,
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analysis is the result of transcribing and analysing one recording.
type Analysis struct {
	Transcript types.Transcript     `json:"transcript"`
	Features   *analysis.FeatureSet `json:"features"`
	Controls   control.Controls     `json:"controls"`
	Prompt     string               `json:"prompt"`
}

// SectionScore is the decided music for one section of the script.
type SectionScore struct {
	Section  types.Section    `json:"section"`
	Controls control.Controls `json:"controls"`
	Prompt   string           `json:"prompt"`
}

// Composition is the full output of [Pipeline.Compose].
type Composition struct {
	Analysis *Analysis      `json:"analysis"`
	Sections []SectionScore `json:"sections"`

	// Mixed is the final WAV with the generated bed ducked under the
	// dialogue.
	Mixed []byte `json:"-"`
}

// Analyze transcribes wavData and derives controls and a generation prompt
// from the speech features.
func (p *Pipeline) Analyze(ctx context.Context, wavData []byte) (*Analysis, error) {
	buf, err := audio.DecodeWAV(wavData)
	if err != nil {
		return nil, err
	}
	return p.analyzeBuffer(ctx, wavData, buf)
}

// analyzeBuffer runs transcription and feature extraction on an already
// decoded buffer. wavData is the original encoded form handed to the ASR
// backend.
func (p *Pipeline) analyzeBuffer(ctx context.Context, wavData []byte, buf *audio.Buffer) (_ *Analysis, err error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.analyze")
	defer func() { observe.EndSpan(span, err) }()

	start := time.Now()
	transcript, err := p.asr.Transcribe(ctx, wavData)
	if p.metrics != nil {
		p.metrics.ASRDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		p.recordError(ctx, "asr", "transcribe")
		return nil, fmt.Errorf("compose: transcribe: %w", err)
	}

	start = time.Now()
	features, err := analysis.Extract(buf, transcript.Segments)
	if p.metrics != nil {
		p.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("compose: extract features: %w", err)
	}

	controls := control.Decide(features)
	return &Analysis{
		Transcript: transcript,
		Features:   features,
		Controls:   controls,
		Prompt:     control.BuildPrompt(controls),
	}, nil
}

// Generate requests a music bed for the given analysis. durationSeconds
// falls back to the configured default when zero or negative.
func (p *Pipeline) Generate(ctx context.Context, a *Analysis, durationSeconds int) ([]byte, error) {
	if durationSeconds <= 0 {
		durationSeconds = p.cfg.DurationSeconds
	}
	return p.generate(ctx, a.Prompt, a.Controls, durationSeconds, p.cfg.Seed)
}

// GeneratePrompt requests a music bed for an explicit prompt and parameters,
// bypassing analysis. Zero durationSeconds and seed fall back to the
// configured defaults.
func (p *Pipeline) GeneratePrompt(ctx context.Context, prompt string, c control.Controls, durationSeconds int, seed int64) ([]byte, error) {
	if durationSeconds <= 0 {
		durationSeconds = p.cfg.DurationSeconds
	}
	if seed == 0 {
		seed = p.cfg.Seed
	}
	return p.generate(ctx, prompt, c, durationSeconds, seed)
}

func (p *Pipeline) generate(ctx context.Context, prompt string, c control.Controls, durationSeconds int, seed int64) (_ []byte, err error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.generate")
	defer func() { observe.EndSpan(span, err) }()

	start := time.Now()
	wav, err := p.gen.Generate(ctx, musicgen.Request{
		Prompt:          prompt,
		DurationSeconds: durationSeconds,
		Seed:            seed,
		TempoBPM:        c.TempoBPM,
		Key:             string(c.Key),
	})
	if p.metrics != nil {
		p.metrics.GenerateDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		p.recordError(ctx, "musicgen", "generate")
		return nil, fmt.Errorf("compose: generate: %w", err)
	}
	return wav, nil
}

// recordError increments the provider error counter when metrics are wired.
func (p *Pipeline) recordError(ctx context.Context, provider, op string) {
	if p.metrics != nil {
		p.metrics.RecordProviderError(ctx, provider, op)
	}
}

// Compose runs the whole pipeline on one recording: analyse, segment, score
// and generate a bed per section, crossfade the beds, and duck the result
// under the dialogue.
func (p *Pipeline) Compose(ctx context.Context, wavData []byte) (_ *Composition, err error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.compose")
	defer func() { observe.EndSpan(span, err) }()

	composeStart := time.Now()

	buf, err := audio.DecodeWAV(wavData)
	if err != nil {
		return nil, err
	}

	a, err := p.analyzeBuffer(ctx, wavData, buf)
	if err != nil {
		return nil, err
	}

	sections := p.splitSections(ctx, a)
	scores := p.scoreSections(ctx, buf, a, sections)

	clips := make([][]byte, len(scores))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentGenerations)
	for i, sc := range scores {
		g.Go(func() error {
			clip, err := p.generate(gctx, sc.Prompt, sc.Controls, sectionDuration(sc.Section), p.cfg.Seed)
			if err != nil {
				return err
			}
			clips[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	background, err := mix.Crossfade(clips, p.cfg.MixParams.CrossfadeMS)
	if err != nil {
		return nil, fmt.Errorf("compose: crossfade: %w", err)
	}

	mixStart := time.Now()
	mixed, err := mix.Mix(wavData, background, p.cfg.MixParams)
	if p.metrics != nil {
		p.metrics.MixDuration.Record(ctx, time.Since(mixStart).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("compose: mix: %w", err)
	}

	if p.metrics != nil {
		p.metrics.ComposeDuration.Record(ctx, time.Since(composeStart).Seconds())
	}
	return &Composition{
		Analysis: a,
		Sections: scores,
		Mixed:    mixed,
	}, nil
}

// splitSections asks the segmenter for sections, falling back to a single
// section spanning the whole recording when no segmenter is configured, it
// fails, or it returns nothing.
func (p *Pipeline) splitSections(ctx context.Context, a *Analysis) []types.Section {
	whole := []types.Section{{
		Start: 0,
		End:   a.Features.Duration,
		Text:  a.Transcript.Text,
	}}

	if p.seg == nil {
		return whole
	}
	sections, err := p.seg.Split(ctx, a.Transcript.Text, a.Transcript.Segments)
	if err != nil {
		p.recordError(ctx, "segmenter", "split")
		observe.Logger(ctx).Warn("segmentation failed, scoring as one section", "error", err)
		return whole
	}
	if len(sections) == 0 {
		return whole
	}
	return sections
}

// scoreSections decides controls and a prompt per section by re-analysing
// the slice of audio the section covers. Sections whose slice is empty fall
// back to the safe default controls.
func (p *Pipeline) scoreSections(ctx context.Context, buf *audio.Buffer, a *Analysis, sections []types.Section) []SectionScore {
	scores := make([]SectionScore, len(sections))
	for i, sec := range sections {
		features, err := analysis.Extract(
			sliceBuffer(buf, sec.Start, sec.End),
			overlappingSegments(a.Transcript.Segments, sec),
		)
		var c control.Controls
		if err != nil {
			c = control.Decide(nil)
		} else {
			c = control.Decide(features)
		}
		scores[i] = SectionScore{
			Section:  sec,
			Controls: c,
			Prompt:   control.BuildPrompt(c),
		}
		if p.metrics != nil {
			p.metrics.RecordSection(ctx, string(c.Mood))
		}
	}
	return scores
}

// sectionDuration returns the whole-second bed length for a section.
func sectionDuration(s types.Section) int {
	d := int(math.Ceil(s.End - s.Start))
	if d < minSectionSeconds {
		return minSectionSeconds
	}
	return d
}

// sliceBuffer extracts the frames between startSec and endSec. Out-of-range
// bounds are clamped; an inverted range yields an empty buffer.
func sliceBuffer(b *audio.Buffer, startSec, endSec float64) *audio.Buffer {
	total := b.NumFrames()
	start := int(startSec * float64(b.SampleRate))
	end := int(endSec * float64(b.SampleRate))
	start = min(max(start, 0), total)
	end = min(max(end, start), total)

	return &audio.Buffer{
		Samples:    b.Samples[start*b.Channels : end*b.Channels],
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
}

// overlappingSegments returns the transcript segments that overlap the
// section's time range.
func overlappingSegments(segments []types.Segment, sec types.Section) []types.Segment {
	var out []types.Segment
	for _, s := range segments {
		if s.End > sec.Start && s.Start < sec.End {
			out = append(out, s)
		}
	}
	return out
}
