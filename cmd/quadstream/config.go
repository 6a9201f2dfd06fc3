package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-batch/engine/renderer"
	"gopkg.in/yaml.v3"
)

// Config is the demo configuration. Values come from the defaults, then an optional YAML file,
// then command-line flags.
type Config struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Quads      int     `yaml:"quads"`
	Background int     `yaml:"background_quads"`
	BatchSize  int     `yaml:"batch_size"`
	Slots      int     `yaml:"slots"`
	Workers    int     `yaml:"workers"`
	ChunkSize  int     `yaml:"chunk_size"`
	MSAA       uint32  `yaml:"msaa"`
	VSync      bool    `yaml:"vsync"`
	Software   bool    `yaml:"software"`
	FrameLimit float64 `yaml:"frame_limit"`
	Profile    bool    `yaml:"profile"`
	LogLevel   string  `yaml:"log_level"`
	Seed       uint64  `yaml:"seed"`
}

// DefaultConfig returns the configuration used when no file or flag overrides a value.
func DefaultConfig() Config {
	return Config{
		Width:      1280,
		Height:     720,
		Quads:      20000,
		Background: 400,
		BatchSize:  4000,
		Slots:      2,
		Workers:    4,
		ChunkSize:  2048,
		MSAA:       4,
		Profile:    true,
		LogLevel:   "info",
		Seed:       1,
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file keep their default.
//
// Parameters:
//   - r: the YAML document
//
// Returns:
//   - Config: the merged configuration
//   - error: a decoding error
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// ParseArgs builds the configuration from command-line arguments. A -config file is loaded first,
// then every flag given explicitly overrides it.
//
// Parameters:
//   - args: the arguments without the program name
//
// Returns:
//   - Config: the final configuration
//   - error: a flag, file or validation error
func ParseArgs(args []string) (Config, error) {
	fs := flag.NewFlagSet("quadstream", flag.ContinueOnError)
	var path string
	flags := DefaultConfig()
	fs.StringVar(&path, "config", "", "path to a YAML config file")
	fs.IntVar(&flags.Width, "width", flags.Width, "window width")
	fs.IntVar(&flags.Height, "height", flags.Height, "window height")
	fs.IntVar(&flags.Quads, "quads", flags.Quads, "number of animated quads")
	fs.IntVar(&flags.Background, "background", flags.Background, "number of static background quads")
	fs.IntVar(&flags.BatchSize, "batch-size", flags.BatchSize, "vertices per batch buffer")
	fs.IntVar(&flags.Slots, "slots", flags.Slots, "batch slots rotated per frame")
	fs.IntVar(&flags.Workers, "workers", flags.Workers, "vertex generation workers")
	fs.IntVar(&flags.ChunkSize, "chunk", flags.ChunkSize, "quads per worker task")
	fs.Func("msaa", "MSAA sample count (1, 4, 8 or 16)", func(s string) error {
		var n uint32
		if _, err := fmt.Sscan(s, &n); err != nil {
			return err
		}
		flags.MSAA = n
		return nil
	})
	fs.BoolVar(&flags.VSync, "vsync", flags.VSync, "wait for vertical blank")
	fs.BoolVar(&flags.Software, "software", flags.Software, "force the software fallback adapter")
	fs.Float64Var(&flags.FrameLimit, "fps", flags.FrameLimit, "render frame cap, 0 for uncapped")
	fs.BoolVar(&flags.Profile, "profile", flags.Profile, "log frame statistics every second")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "debug, info, warn or error")
	fs.Uint64Var(&flags.Seed, "seed", flags.Seed, "random seed for the quad field")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer f.Close()
		if cfg, err = LoadConfig(f); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = flags.Width
		case "height":
			cfg.Height = flags.Height
		case "quads":
			cfg.Quads = flags.Quads
		case "background":
			cfg.Background = flags.Background
		case "batch-size":
			cfg.BatchSize = flags.BatchSize
		case "slots":
			cfg.Slots = flags.Slots
		case "workers":
			cfg.Workers = flags.Workers
		case "chunk":
			cfg.ChunkSize = flags.ChunkSize
		case "msaa":
			cfg.MSAA = flags.MSAA
		case "vsync":
			cfg.VSync = flags.VSync
		case "software":
			cfg.Software = flags.Software
		case "fps":
			cfg.FrameLimit = flags.FrameLimit
		case "profile":
			cfg.Profile = flags.Profile
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "seed":
			cfg.Seed = flags.Seed
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid value.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("window size %dx%d must be positive", c.Width, c.Height)
	case c.Quads < 0 || c.Background < 0:
		return errors.New("quad counts must not be negative")
	case c.BatchSize < 4:
		return fmt.Errorf("batch size %d must hold at least one quad", c.BatchSize)
	case c.Slots <= 0:
		return fmt.Errorf("slot count %d must be positive", c.Slots)
	case c.Workers <= 0 || c.ChunkSize <= 0:
		return errors.New("workers and chunk size must be positive")
	}
	if _, err := c.SampleCount(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// SampleCount converts the MSAA setting to the renderer's sample count.
func (c Config) SampleCount() (renderer.MSAASampleCount, error) {
	switch renderer.MSAASampleCount(c.MSAA) {
	case renderer.MSAAOff, renderer.MSAA4x, renderer.MSAA8x, renderer.MSAA16x:
		return renderer.MSAASampleCount(c.MSAA), nil
	}
	return 0, fmt.Errorf("unsupported MSAA sample count %d", c.MSAA)
}

// Level parses the configured log level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// PresentMode returns the present mode selected by VSync.
func (c Config) PresentMode() renderer.PresentMode {
	if c.VSync {
		return renderer.PresentModeVSync
	}
	return renderer.PresentModeUncapped
}
