package export

import (
	"bytes"
	"errors"
	"fmt"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"

	"github.com/soundloom/soundloom/internal/gen"
)

// EncodeMP3 encodes a result as MP3 bytes.
func EncodeMP3(res *gen.Result) ([]byte, error) {
	if res == nil || len(res.Samples) == 0 {
		return nil, errors.New("empty result")
	}
	if res.SampleRate < 1 {
		return nil, fmt.Errorf("invalid sample rate: %d", res.SampleRate)
	}

	// WORKAROUND: shine-mp3 Write() has a bug for mono (always increments
	// by samples_per_pass * 2). Encode as stereo with duplicated samples.
	stereo := make([]int16, len(res.Samples)*2)
	for i, s := range res.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		v := int16(s * 32767)
		stereo[i*2] = v
		stereo[i*2+1] = v
	}

	enc := mp3encoder.NewEncoder(res.SampleRate, 2)

	var buf bytes.Buffer
	if err := enc.Write(&buf, stereo); err != nil {
		return nil, fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	return buf.Bytes(), nil
}
