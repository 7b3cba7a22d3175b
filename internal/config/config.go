// Package config loads the YAML configuration for the cpfsk tool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeongseonghan/cpfsk/internal/bitseq"
	"github.com/jeongseonghan/cpfsk/internal/fec"
	"github.com/jeongseonghan/cpfsk/internal/modem"
)

// Config is the on-disk configuration. Every field has a default, so an
// empty or missing file is valid.
type Config struct {
	Modulation modem.Params `yaml:"modulation"`

	Sequence struct {
		Length int    `yaml:"length"`
		Seed   uint64 `yaml:"seed"` // 0 picks a time based seed
	} `yaml:"sequence"`

	Sampling struct {
		SampleCount int     `yaml:"sample_count"`
		PhaseMode   string  `yaml:"phase_mode"`
		AudioRate   float64 `yaml:"audio_rate"`
	} `yaml:"sampling"`

	Output struct {
		Formulas        string `yaml:"formulas"`
		Plot            string `yaml:"plot"`
		WAV             string `yaml:"wav"`
		TimestampFormat string `yaml:"timestamp_format"`
	} `yaml:"output"`

	Framing struct {
		ReedSolomon  bool `yaml:"reed_solomon"`
		DataShards   int  `yaml:"data_shards"`
		ParityShards int  `yaml:"parity_shards"`
	} `yaml:"framing"`

	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`

	MQTT struct {
		Broker   string `yaml:"broker"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"client_id"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"mqtt"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{Modulation: modem.DefaultParams()}
	c.Sequence.Length = bitseq.DefaultLength
	c.Sampling.SampleCount = 1000
	c.Sampling.PhaseMode = modem.PhaseFromLastSample.String()
	c.Sampling.AudioRate = 44100
	c.Output.Formulas = "results.txt"
	c.Output.Plot = "cpfsksignal.png"
	c.Output.WAV = "cpfsk.wav"
	c.Output.TimestampFormat = "%Y-%m-%d %H:%M:%S"
	c.Framing.ReedSolomon = true
	c.Framing.DataShards = 8
	c.Framing.ParityShards = 4
	c.Server.Listen = "127.0.0.1:8080"
	c.MQTT.Topic = "cpfsk/runs"
	return c
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Validate checks the values the rest of the program relies on.
func (c *Config) Validate() error {
	if err := c.Modulation.Validate(); err != nil {
		return err
	}
	if !bitseq.ValidLength(c.Sequence.Length) {
		return fmt.Errorf("sequence length %d must be one of %v", c.Sequence.Length, bitseq.AllowedLengths)
	}
	if c.Sampling.SampleCount < 2 {
		return fmt.Errorf("sample_count %d must be at least 2", c.Sampling.SampleCount)
	}
	if _, err := modem.ParsePhaseMode(c.Sampling.PhaseMode); err != nil {
		return err
	}
	if c.Sampling.AudioRate <= 0 {
		return fmt.Errorf("audio_rate %v must be positive", c.Sampling.AudioRate)
	}
	if c.Framing.ReedSolomon && (c.Framing.DataShards < 1 || c.Framing.ParityShards < 1) {
		return fmt.Errorf("reed-solomon shards must be positive, got %d+%d",
			c.Framing.DataShards, c.Framing.ParityShards)
	}
	return nil
}

// PhaseMode returns the parsed sampling phase mode.
func (c *Config) PhaseMode() modem.PhaseMode {
	m, _ := modem.ParsePhaseMode(c.Sampling.PhaseMode)
	return m
}

// Coder returns the Reed-Solomon coder for framed text, or nil when
// framing runs without parity.
func (c *Config) Coder() (*fec.Coder, error) {
	if !c.Framing.ReedSolomon {
		return nil, nil
	}
	return fec.NewCoder(c.Framing.DataShards, c.Framing.ParityShards)
}

// Seed returns the configured random seed, or a time based one when unset.
func (c *Config) Seed() uint64 {
	if c.Sequence.Seed != 0 {
		return c.Sequence.Seed
	}
	return uint64(time.Now().UnixNano())
}
