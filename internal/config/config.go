package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Weights holds the per-feature scoring weights. They are not normalized;
// the final score is only meaningful as a relative ranking.
type Weights struct {
	Energy         float64 `toml:"energy"`
	TempoVariation float64 `toml:"tempo_variation"`
	Pauses         float64 `toml:"pauses"`
	Punctuation    float64 `toml:"punctuation"`
	SpeechPace     float64 `toml:"speech_pace"`
	Structure      float64 `toml:"structure"`
	Hook           float64 `toml:"hook"`
	Relevance      float64 `toml:"relevance"`
}

// Clips groups the moment merging and selection knobs.
type Clips struct {
	MinDurationSeconds      float64 `toml:"min_duration_seconds"`
	MaxDurationSeconds      float64 `toml:"max_duration_seconds"`
	MaxCount                int     `toml:"max_count"`
	MaxPauseGapSeconds      float64 `toml:"max_pause_gap_seconds"`
	SimilarityThreshold     float64 `toml:"similarity_threshold"`
	DedupTimeWindowSeconds  float64 `toml:"dedup_time_window_seconds"`
	MaxSourceDurationSecond float64 `toml:"max_source_duration_seconds"`
}

// Billing groups the cost reservation settings.
type Billing struct {
	CostPerClip     int64  `toml:"cost_per_clip"`
	StartingBalance int64  `toml:"starting_balance"`
	LedgerPath      string `toml:"ledger_path"`
}

// Render groups the worker pool and transcode settings.
type Render struct {
	MaxWorkers  int    `toml:"max_workers"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
}

// Transcription configures the speech-to-text collaborator.
type Transcription struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Relevance configures the optional LLM relevance collaborator.
type Relevance struct {
	Enabled   bool   `toml:"enabled"`
	Mandatory bool   `toml:"mandatory"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full engine configuration, fixed at pipeline start.
type Config struct {
	Clips         Clips         `toml:"clips"`
	Weights       Weights       `toml:"weights"`
	Billing       Billing       `toml:"billing"`
	Render        Render        `toml:"render"`
	Transcription Transcription `toml:"transcription"`
	Relevance     Relevance     `toml:"relevance"`
	Logging       Logging       `toml:"logging"`
}

// Default returns the built-in configuration. The numeric defaults mirror
// the production tuning the engine ships with.
func Default() Config {
	return Config{
		Clips: Clips{
			MinDurationSeconds:      15,
			MaxDurationSeconds:      45,
			MaxCount:                6,
			MaxPauseGapSeconds:      2.5,
			SimilarityThreshold:     0.5,
			DedupTimeWindowSeconds:  120,
			MaxSourceDurationSecond: 7200,
		},
		Weights: Weights{
			Energy:         3.0,
			TempoVariation: 2.5,
			Pauses:         2.0,
			Punctuation:    1.5,
			SpeechPace:     2.0,
			Structure:      2.5,
			Hook:           3.0,
			Relevance:      5.0,
		},
		Billing: Billing{
			CostPerClip:     1,
			StartingBalance: 6,
			LedgerPath:      "ledger.db",
		},
		Render: Render{
			MaxWorkers:  3,
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Relevance: Relevance{
			Enabled: true,
			Model:   "gpt-4o-mini",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config file over the defaults and then applies
// environment overrides for secrets. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to env overrides
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ASSEMBLYAI_API_KEY"); v != "" {
		c.Transcription.APIKey = v
	}
	if v := os.Getenv("ASSEMBLYAI_BASE_URL"); v != "" {
		c.Transcription.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Relevance.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.Relevance.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.Relevance.Model = v
	}
	if v := os.Getenv("CLIPCUT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CLIPCUT_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Render.MaxWorkers = n
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Clips.MinDurationSeconds <= 0 {
		return errors.New("clips.min_duration_seconds must be > 0")
	}
	if c.Clips.MaxDurationSeconds < c.Clips.MinDurationSeconds {
		return errors.New("clips.max_duration_seconds must be >= min_duration_seconds")
	}
	if c.Clips.MaxCount <= 0 {
		return errors.New("clips.max_count must be > 0")
	}
	if c.Clips.MaxPauseGapSeconds <= 0 {
		return errors.New("clips.max_pause_gap_seconds must be > 0")
	}
	if c.Clips.SimilarityThreshold <= 0 || c.Clips.SimilarityThreshold > 1 {
		return errors.New("clips.similarity_threshold must be in (0,1]")
	}
	if c.Billing.CostPerClip < 0 {
		return errors.New("billing.cost_per_clip must be >= 0")
	}
	if c.Render.MaxWorkers <= 0 {
		return errors.New("render.max_workers must be > 0")
	}
	if c.Relevance.Mandatory && !c.Relevance.Enabled {
		return errors.New("relevance.mandatory requires relevance.enabled")
	}
	return nil
}
