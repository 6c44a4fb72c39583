// Package export turns an immutable generation result into portable audio
// bytes. Everything here is a stateless transformation of an
// already-finished buffer; nothing touches the live generation state.
package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"

	"github.com/soundloom/soundloom/internal/gen"
)

const wavBitDepth = 16

// ErrFormatMismatch is returned when a decoded WAV is not mono 16-bit PCM.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// EncodeWAV encodes a result as mono 16-bit PCM WAV bytes.
func EncodeWAV(res *gen.Result) ([]byte, error) {
	if res == nil || len(res.Samples) == 0 {
		return nil, errors.New("empty result")
	}
	if res.SampleRate < 1 {
		return nil, fmt.Errorf("invalid sample rate: %d", res.SampleRate)
	}

	var buf bytes.Buffer

	// wav.NewEncoder requires an io.WriteSeeker; bytes.Buffer is not one.
	// Use a seekable wrapper.
	sw := &seekBuffer{buf: &buf}

	enc := wav.NewEncoder(sw, res.SampleRate, wavBitDepth, 1, 1) // 1 = PCM

	pcmBuf := &goaudio.Float32Buffer{
		Data:           res.Samples,
		Format:         &goaudio.Format{SampleRate: res.SampleRate, NumChannels: 1},
		SourceBitDepth: wavBitDepth,
	}

	if err := enc.Write(pcmBuf); err != nil {
		return nil, fmt.Errorf("writing PCM: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeWAV decodes mono 16-bit PCM WAV bytes into float32 samples and the
// file's sample rate.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) == 0 {
		return nil, 0, errors.New("empty WAV input")
	}

	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid WAV file")
	}

	if dec.NumChans != 1 {
		return nil, 0, fmt.Errorf("%w: channels %d, want 1", ErrFormatMismatch, dec.NumChans)
	}
	if dec.BitDepth != wavBitDepth {
		return nil, 0, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, dec.BitDepth, wavBitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM data: %w", err)
	}

	return buf.Data, int(dec.SampleRate), nil
}

// seekBuffer wraps a bytes.Buffer to satisfy io.WriteSeeker.
type seekBuffer struct {
	buf *bytes.Buffer
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	// If writing at the end, just append.
	if s.pos == s.buf.Len() {
		n, err := s.buf.Write(p)
		s.pos += n

		return n, err
	}

	// Writing in the middle: overwrite existing bytes.
	data := s.buf.Bytes()
	n := copy(data[s.pos:], p)
	if n < len(p) {
		// Extend the buffer for the remainder.
		data = append(data, p[n:]...)
		s.buf.Reset()
		s.buf.Write(data)
		n = len(p)
	}
	s.pos += n

	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int

	switch whence {
	case 0: // io.SeekStart
		next = int(offset)
	case 1: // io.SeekCurrent
		next = s.pos + int(offset)
	case 2: // io.SeekEnd
		next = s.buf.Len() + int(offset)
	default:
		return 0, errors.New("invalid whence")
	}

	if next < 0 {
		return 0, errors.New("negative seek position")
	}

	s.pos = next

	return int64(next), nil
}
