// Package types holds the small data types shared across pipeline stages and
// provider interfaces: transcription results and their timestamped segments.
package types

// Segment is a timestamped span of transcribed speech, produced by the ASR
// collaborator. Start and End are in seconds from the start of the recording,
// with Start <= End. Segments arrive ordered by Start.
type Segment struct {
	Start float64 `json:"t0"`
	End   float64 `json:"t1"`
	Text  string  `json:"text"`
}

// Transcript is the complete output of a transcription call: the full text
// plus its ordered segments.
type Transcript struct {
	Text     string    `json:"transcript"`
	Segments []Segment `json:"segments"`
}

// Section is one span of a longer script, produced by the segmenter
// collaborator when a recording is split into musically distinct parts.
// Each section is analysed and scored independently, then the per-section
// mixes are crossfaded back together.
type Section struct {
	Start float64 `json:"t0"`
	End   float64 `json:"t1"`
	Text  string  `json:"text"`
}
