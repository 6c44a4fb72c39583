package infer

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"github.com/soundloom/soundloom/internal/gen"
)

// SynthConfig configures the offline procedural engine.
type SynthConfig struct {
	SampleRate int
	Seconds    int
	// Steps is how many progress checkpoints the synthesis is chunked
	// into; cancellation latency is bounded by one step.
	Steps int
	// StepDelay adds an artificial pause per step so interactive front-ends
	// can exercise progress and cancellation. Zero in tests.
	StepDelay time.Duration
}

// WithDefaults fills zero fields with defaults.
func (c SynthConfig) WithDefaults() SynthConfig {
	if c.SampleRate == 0 {
		c.SampleRate = 32000
	}
	if c.Seconds == 0 {
		c.Seconds = 5
	}
	if c.Steps == 0 {
		c.Steps = 100
	}

	return c
}

// Synth is a deterministic offline engine: it synthesizes a prompt-seeded
// chord texture instead of running a neural model. It exists so the binary
// works without a network or model files, and it doubles as the test
// engine for the worker lifecycle.
type Synth struct {
	conf SynthConfig
}

// NewSynth creates a procedural engine.
func NewSynth(conf SynthConfig) *Synth {
	return &Synth{conf: conf.WithDefaults()}
}

// Name implements Engine.
func (s *Synth) Name() string { return "synth" }

// Generate implements Engine. The output depends only on the prompt and
// the conditioning snapshot.
func (s *Synth) Generate(ctx context.Context, req gen.Request, progress ProgressFunc) (*gen.Result, error) {
	total := s.conf.SampleRate * s.conf.Seconds
	samples := make([]float32, total)

	seed := promptSeed(req.Prompt)

	// Three detuned partials derived from the seed, in a musically useful
	// range (roughly 80..400 Hz fundamental).
	base := 80 + float64(seed%320)
	f := [3]float64{base, base * 1.5, base * 2.01}
	gain := [3]float64{0.28, 0.18, 0.10}

	chunk := (total + s.conf.Steps - 1) / s.conf.Steps

	for step := 0; step < s.conf.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := progress(float64(step) / float64(s.conf.Steps)); err != nil {
			return nil, err
		}

		start := step * chunk
		end := start + chunk
		if end > total {
			end = total
		}

		for i := start; i < end; i++ {
			t := float64(i) / float64(s.conf.SampleRate)
			env := math.Exp(-0.35 * t)

			var v float64
			for p := 0; p < 3; p++ {
				v += gain[p] * math.Sin(2*math.Pi*f[p]*t)
			}

			samples[i] = float32(v * env)
		}

		if s.conf.StepDelay > 0 {
			select {
			case <-time.After(s.conf.StepDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if req.Conditioning != nil {
		mixConditioning(samples, req.Conditioning.Samples)
	}

	if err := progress(1); err != nil {
		return nil, err
	}

	return &gen.Result{Samples: samples, SampleRate: s.conf.SampleRate}, nil
}

// mixConditioning folds the recorded snapshot into the output as a quiet
// tiled layer, so conditioned generations audibly differ from dry ones.
func mixConditioning(out, cond []float32) {
	if len(cond) == 0 {
		return
	}

	const wet = 0.3

	for i := range out {
		out[i] = out[i]*(1-wet) + cond[i%len(cond)]*wet
	}
}

func promptSeed(prompt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(prompt))

	return h.Sum64()
}
