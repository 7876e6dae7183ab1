// Package config loads murmur's YAML configuration
// (~/.config/murmur/config.yaml by default).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/murmur/internal/inference"
	"github.com/samcharles93/murmur/internal/speech"
)

// EnvConfig names a config file that replaces the default path.
const EnvConfig = "MURMUR_CONFIG"

type Config struct {
	Model           string        `yaml:"model"`
	Backend         string        `yaml:"backend"`
	ServerURL       string        `yaml:"server_url"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	TokenizerJSON   string        `yaml:"tokenizer_json"`
	TokenizerConfig string        `yaml:"tokenizer_config"`

	Sentinels speech.Sentinels `yaml:"sentinels"`
	Sampling  Sampling         `yaml:"sampling"`
	MaxTokens int              `yaml:"max_tokens"`

	Toy Toy `yaml:"toy"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ListenAddress string `yaml:"listen_address"`
	Store         Store  `yaml:"store"`
	Sink          Sink   `yaml:"sink"`
}

type Sampling struct {
	Temperature           float64 `yaml:"temperature"`
	TopP                  float64 `yaml:"top_p"`
	RepetitionPenalty     float64 `yaml:"repetition_penalty"`
	RepetitionContextSize int     `yaml:"repetition_context_size"`
	// Seed -1 samples with a fresh seed on every generation.
	Seed                  int64   `yaml:"seed"`
}

// Toy sizes the offline model used by the toy backend.
type Toy struct {
	Vocab  int   `yaml:"vocab"`
	Hidden int   `yaml:"hidden"`
	Seed   int64 `yaml:"seed"`
}

type Store struct {
	// Kind is "memory" or "badger".
	Kind string `yaml:"kind"`
	Dir  string `yaml:"dir"`
}

type Sink struct {
	// Kind is "jsonl", "ws" or "none".
	Kind string `yaml:"kind"`
	// Target is a file path for jsonl ("-" for stdout) or a ws:// url.
	Target string `yaml:"target"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	def := speech.DefaultConfig()
	return Config{
		Model:     "canopylabs/orpheus-3b-0.1-ft",
		Backend:   inference.BackendLlamaCpp,
		ServerURL: "http://127.0.0.1:8080",
		Sentinels: def.Sentinels,
		Sampling: Sampling{
			Temperature:           def.Sampling.Temperature,
			TopP:                  def.Sampling.TopP,
			RepetitionPenalty:     def.Sampling.RepetitionPenalty,
			RepetitionContextSize: def.Sampling.RepetitionContext,
			Seed:                  def.Sampling.Seed,
		},
		MaxTokens:     def.MaxTokens,
		Toy:           Toy{Vocab: 128266, Hidden: 8},
		LogLevel:      "info",
		LogFormat:     "auto",
		ListenAddress: "127.0.0.1:8090",
		Store:         Store{Kind: "memory"},
		Sink:          Sink{Kind: "jsonl", Target: "-"},
	}
}

// Path returns the config file location: $MURMUR_CONFIG when set, otherwise
// murmur/config.yaml under the user config directory.
func Path() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "murmur", "config.yaml")
}

// Load reads path over Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges the backends would otherwise reject late.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case inference.BackendLlamaCpp:
		if c.ServerURL == "" {
			errs = append(errs, errors.New("server_url is required for the llamacpp backend"))
		}
	case inference.BackendToy:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", inference.ErrUnknownBackend, c.Backend))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.Sampling.Temperature < 0 {
		errs = append(errs, fmt.Errorf("sampling.temperature must be >= 0, got %g", c.Sampling.Temperature))
	}
	if c.Sampling.TopP < 0 || c.Sampling.TopP > 1 {
		errs = append(errs, fmt.Errorf("sampling.top_p must be in [0,1], got %g", c.Sampling.TopP))
	}
	if c.Sampling.RepetitionPenalty < 0 {
		errs = append(errs, fmt.Errorf("sampling.repetition_penalty must be >= 0, got %g", c.Sampling.RepetitionPenalty))
	}
	if c.Sampling.RepetitionContextSize < 0 {
		errs = append(errs, fmt.Errorf("sampling.repetition_context_size must be >= 0, got %d", c.Sampling.RepetitionContextSize))
	}
	if err := c.Sentinels.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// InferenceOptions maps the model settings onto inference.Open.
func (c Config) InferenceOptions() inference.Options {
	return inference.Options{
		Backend:         c.Backend,
		Model:           c.Model,
		ServerURL:       c.ServerURL,
		TokenizerJSON:   c.TokenizerJSON,
		TokenizerConfig: c.TokenizerConfig,
		HTTPTimeout:     c.HTTPTimeout,
		ToyVocab:        c.Toy.Vocab,
		ToyHidden:       c.Toy.Hidden,
		ToySeed:         c.Toy.Seed,
	}
}

// SpeechConfig maps the generation settings onto speech.New.
func (c Config) SpeechConfig() speech.Config {
	return speech.Config{
		Sentinels: c.Sentinels,
		Sampling: inference.Sampling{
			Temperature:       c.Sampling.Temperature,
			TopP:              c.Sampling.TopP,
			RepetitionPenalty: c.Sampling.RepetitionPenalty,
			RepetitionContext: c.Sampling.RepetitionContextSize,
			Seed:              c.Sampling.Seed,
		},
		MaxTokens: c.MaxTokens,
	}
}
