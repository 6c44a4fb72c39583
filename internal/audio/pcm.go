package audio

import "encoding/binary"

// BytesToFloat32 converts S16LE (signed 16-bit little-endian) bytes into
// float32 samples in [-1, 1), appending into dst to avoid allocating on
// the audio path. It returns the extended slice.
func BytesToFloat32(dst []float32, data []byte) []float32 {
	numSamples := len(data) / 2

	for i := 0; i < numSamples; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		dst = append(dst, float32(s)/32768)
	}

	return dst
}

// Float32ToBytes converts float32 samples into S16LE bytes, writing into
// data. Samples outside [-1, 1] are clamped. It writes at most
// len(data)/2 samples and returns how many were written.
func Float32ToBytes(data []byte, samples []float32) int {
	n := len(data) / 2
	if n > len(samples) {
		n = len(samples)
	}

	for i := 0; i < n; i++ {
		s := samples[i]
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(s*32767)))
	}

	return n
}
