package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrDecode is returned (wrapped) when an input byte stream cannot be decoded
// as WAV audio. Decode failures on primary inputs are fatal to the request —
// they are never degraded into silence.
var ErrDecode = errors.New("audio: decode failed")

// DecodeWAV decodes 16-bit PCM WAV bytes into a Buffer with samples scaled
// to [-1, 1].
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if pcm == nil || pcm.Format == nil || len(pcm.Data) == 0 {
		return nil, fmt.Errorf("%w: no PCM data", ErrDecode)
	}
	ch := pcm.Format.NumChannels
	if ch != 1 && ch != 2 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrDecode, ch)
	}

	// Scale integer PCM to [-1, 1] based on the source bit depth.
	scale := float64(int64(1) << (dec.BitDepth - 1))
	samples := make([]float64, len(pcm.Data))
	for i, s := range pcm.Data {
		samples[i] = float64(s) / scale
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: pcm.Format.SampleRate,
		Channels:   ch,
	}, nil
}

// EncodeWAV encodes b as 16-bit PCM WAV bytes. Samples outside [-1, 1] are
// clamped rather than wrapped.
func EncodeWAV(b *Buffer) ([]byte, error) {
	if b == nil || len(b.Samples) == 0 {
		return nil, ErrEmptyBuffer
	}
	if b.Channels != 1 && b.Channels != 2 {
		return nil, fmt.Errorf("audio: unsupported channel count %d", b.Channels)
	}

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	var ws writeSeekBuffer
	enc := wav.NewEncoder(&ws, b.SampleRate, 16, b.Channels, 1)
	err := enc.Write(&gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		SourceBitDepth: 16,
		Data:           data,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalise wav: %w", err)
	}
	return ws.buf, nil
}

// writeSeekBuffer is an in-memory io.WriteSeeker. The WAV encoder needs to
// seek back to patch chunk sizes into the header after writing the data.
type writeSeekBuffer struct {
	buf []byte
	pos int
}

func (w *writeSeekBuffer) Write(p []byte) (int, error) {
	if need := w.pos + len(p); need > len(w.buf) {
		grown := make([]byte, need)
		copy(grown, w.buf)
		w.buf = grown
	}
	copy(w.buf[w.pos:], p)
	w.pos += len(p)
	return len(p), nil
}

func (w *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, fmt.Errorf("audio: invalid seek whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("audio: negative seek position")
	}
	w.pos = int(abs)
	return abs, nil
}
