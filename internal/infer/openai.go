package infer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/soundloom/soundloom/internal/export"
	"github.com/soundloom/soundloom/internal/gen"
)

// OpenAI is a remote engine backed by the OpenAI speech API. The API gives
// no incremental progress, so progress is reported at coarse checkpoints;
// cancellation is still observed between them.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI creates a remote engine.
func NewOpenAI(apiKey string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("API key required: set OPENAI_API_KEY")
	}

	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name implements Engine.
func (o *OpenAI) Name() string { return "openai" }

// Generate implements Engine. Conditioning audio is ignored: the speech
// endpoint only consumes text.
func (o *OpenAI) Generate(ctx context.Context, req gen.Request, progress ProgressFunc) (*gen.Result, error) {
	if err := progress(0); err != nil {
		return nil, err
	}

	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Voice:          openai.AudioSpeechNewParamsVoiceAlloy,
		Input:          req.Prompt,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("speech API request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := progress(0.3); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech API response: %w", err)
	}

	if err := progress(0.8); err != nil {
		return nil, err
	}

	samples, rate, err := export.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decoding speech API audio: %w", err)
	}

	if err := progress(1); err != nil {
		return nil, err
	}

	return &gen.Result{Samples: samples, SampleRate: rate}, nil
}
