package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/malgo"

	"github.com/soundloom/soundloom/internal/audio"
	"github.com/soundloom/soundloom/internal/config"
	"github.com/soundloom/soundloom/internal/export"
	"github.com/soundloom/soundloom/internal/gen"
	"github.com/soundloom/soundloom/internal/infer"
	"github.com/soundloom/soundloom/internal/logger"
	"github.com/soundloom/soundloom/internal/server"
	"github.com/soundloom/soundloom/internal/tui"
)

// CLI defines the soundloom command structure.
type CLI struct {
	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Launch terminal UI with live audio"`

	// Subcommands
	Generate GenerateCmd `cmd:"" help:"Generate audio for a prompt and write it to a file"`
	Serve    ServeCmd    `cmd:"" help:"Serve the generation lifecycle over HTTP"`
	Devices  DevicesCmd  `cmd:"" help:"List available audio capture devices"`
}

// TUICmd runs the interactive UI on top of a duplex audio device.
type TUICmd struct{}

// Run executes the TUI command.
func (c *TUICmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ring := audio.NewRing(cfg.RingCapacity())
	handle := gen.NewHandle(ring, slog.Default())

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	worker := infer.NewWorker(handle, engine, slog.Default())
	bridge := audio.NewBridge(handle, ring)

	dev := audio.NewDevice(&audio.DeviceConfig{
		Format:           malgo.FormatS16,
		CaptureChannels:  1,
		PlaybackChannels: 1,
		SampleRate:       cfg.SampleRate,
	})

	if err := dev.Open(ctx, bridge.ProcessBlock); err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	// always dealloc when we're done
	defer func() {
		dev.Dealloc(ctx)
		slog.Debug("Audio device deallocated")
	}()

	if err := dev.Start(ctx); err != nil {
		return fmt.Errorf("failed to start audio device: %w", err)
	}

	go worker.Run(ctx)

	p := tea.NewProgram(tui.New(handle, worker, tui.PlaybackKnob{Bridge: bridge}, tui.RingLevels{Ring: ring}))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	if err := dev.Stop(ctx); err != nil {
		slog.Error("Failed to stop audio device", "error", err)
	}

	if n := ring.DroppedBlocks(); n > 0 {
		slog.Warn("Recording dropped blocks under contention", "blocks", n)
	}

	fmt.Println("\nfinished. bye!")

	return nil
}

// GenerateCmd generates audio headlessly, without an audio device.
type GenerateCmd struct {
	Prompt string `arg:"" help:"Text prompt to generate audio for"`
	Output string `flag:"" short:"o" default:"out.wav" help:"Output file (.wav or .mp3)"`
}

// Run executes the generate command.
func (c *GenerateCmd) Run() error {
	var encode func(*gen.Result) ([]byte, error)

	switch ext := strings.ToLower(filepath.Ext(c.Output)); ext {
	case ".wav":
		encode = export.EncodeWAV
	case ".mp3":
		encode = export.EncodeMP3
	default:
		return fmt.Errorf("unsupported output extension %q: use .wav or .mp3", ext)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	slog.Info("Generating", "engine", engine.Name(), "prompt", c.Prompt)
	start := time.Now()

	// No shared state to coordinate here: call the engine directly.
	result, err := engine.Generate(context.Background(),
		gen.Request{ID: 1, Prompt: c.Prompt},
		func(p float64) error {
			fmt.Printf("\rgenerating %3.0f%%", p*100)

			return nil
		})
	fmt.Println()

	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	data, err := encode(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	//nolint:gosec // Generated audio files need to be readable
	if err := os.WriteFile(c.Output, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	slog.Info("Generation written",
		"path", c.Output,
		"seconds", result.Duration().Seconds(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// ServeCmd exposes the generation lifecycle over HTTP.
type ServeCmd struct{}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.SetupLogger(cfg)

	ring := audio.NewRing(cfg.RingCapacity())
	handle := gen.NewHandle(ring, log)

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	worker := infer.NewWorker(handle, engine, log)
	go worker.Run(ctx)

	srv := server.New(cfg, log, handle, worker)

	return server.Run(srv)
}

// DevicesCmd lists available audio capture devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (c *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	dev := audio.NewDevice(nil)
	devices, err := dev.EnumerateCaptureDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, d := range devices {
		slog.Info("Audio Device",
			"name", d.Name,
			"isDefault", d.IsDefault,
			"formatCount", d.FormatCount,
			"formats", d.Formats,
		)
	}

	return nil
}

// buildEngine constructs the configured inference engine.
func buildEngine(cfg *config.Config) (infer.Engine, error) {
	switch cfg.Engine {
	case config.EngineOpenAI:
		return infer.NewOpenAI(cfg.OpenAIAPIKey)
	case config.EngineSynth:
		return infer.NewSynth(infer.SynthConfig{
			SampleRate: cfg.SampleRate,
			Seconds:    cfg.SynthSeconds,
			StepDelay:  20 * time.Millisecond,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

func main() {
	// Set up text-based logger for CLI output
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
