// Package speech turns text prompts into streams of speech-codec tokens. It
// frames the prompt with turn markers, drives a streamed decode and relays
// every generated token to an AudioWriter until the model ends its turn.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samcharles93/murmur/internal/inference"
	"github.com/samcharles93/murmur/internal/logger"
)

// DefaultMaxTokens is the generation budget used when none is configured.
const DefaultMaxTokens = 1200

// AudioWriter accepts generated tokens one at a time, in emission order.
type AudioWriter interface {
	AddToken(id int) error
}

// AudioWriterFunc adapts a function to AudioWriter.
type AudioWriterFunc func(id int) error

func (f AudioWriterFunc) AddToken(id int) error { return f(id) }

// Config is fixed for the lifetime of a Generator.
type Config struct {
	Sentinels Sentinels
	Sampling  inference.Sampling
	MaxTokens int
}

// DefaultConfig returns Orpheus sentinels with the sampling settings the
// model was tuned for.
func DefaultConfig() Config {
	return Config{
		Sentinels: DefaultSentinels(),
		Sampling: inference.Sampling{
			Temperature:       0.6,
			TopP:              0.8,
			RepetitionPenalty: 1.3,
			RepetitionContext: 64,
			Seed:              inference.RandomSeed,
		},
		MaxTokens: DefaultMaxTokens,
	}
}

// Result describes one finished generation. Elapsed is exactly End.Sub(Start).
type Result struct {
	Text   string
	Tokens []int
	// PromptTokens is the length of the framed prompt.
	PromptTokens int
	Elapsed      time.Duration
	Start        time.Time
	End          time.Time
	// StoppedOnEndOfAI is set when the stream ended on the end-of-speech
	// marker rather than by running out of budget.
	StoppedOnEndOfAI bool
}

// Generator owns one model and its sampling configuration. It is not safe
// for concurrent Generate calls.
type Generator struct {
	model     inference.Model
	sentinels Sentinels
	sampling  inference.Sampling
	maxTokens int
	log       logger.Logger
}

// New returns a Generator over model. A nil logger falls back to the default.
func New(model inference.Model, cfg Config, log logger.Logger) (*Generator, error) {
	if model == nil {
		return nil, errors.New("speech: model is nil")
	}
	if err := cfg.Sentinels.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if log == nil {
		log = logger.Default()
	}
	return &Generator{
		model:     model,
		sentinels: cfg.Sentinels,
		sampling:  cfg.Sampling,
		maxTokens: cfg.MaxTokens,
		log:       log.With("component", "speech"),
	}, nil
}

// Sentinels returns the marker ids used to frame prompts and detect the end
// of speech.
func (g *Generator) Sentinels() Sentinels { return g.sentinels }

// MaxTokens returns the budget applied when a call does not override it.
func (g *Generator) MaxTokens() int { return g.maxTokens }

// Option adjusts a single Generate call.
type Option func(*generateOptions)

type generateOptions struct {
	maxTokens int
}

// WithMaxTokens overrides the generation budget. Non-positive values keep
// the configured default.
func WithMaxTokens(n int) Option {
	return func(o *generateOptions) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// Generate streams speech tokens for prompt into w. Generation stops when the
// model emits the end-of-speech marker, which is still recorded and written,
// or when the stream is exhausted. A stream or writer error aborts the call
// and no Result is returned.
func (g *Generator) Generate(ctx context.Context, prompt string, w AudioWriter, opts ...Option) (*Result, error) {
	if w == nil {
		return nil, errors.New("speech: audio writer is nil")
	}
	o := generateOptions{maxTokens: g.maxTokens}
	for _, opt := range opts {
		opt(&o)
	}

	ids, err := g.BuildPrompt(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	tokens := make([]int, 0, min(o.maxTokens, 4096))
	stopped := false

	start := time.Now()
	stream := g.model.Stream(ctx, inference.StreamRequest{
		Tokens:    ids,
		MaxTokens: o.maxTokens,
		Sampling:  g.sampling,
	})
	for resp, err := range stream {
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		text.WriteString(resp.Text)
		if !resp.HasToken {
			g.log.Warn("response carried no token id, skipping", "text", resp.Text)
			continue
		}
		tokens = append(tokens, resp.Token)
		if err := w.AddToken(resp.Token); err != nil {
			return nil, fmt.Errorf("audio writer: %w", err)
		}
		if resp.Token == g.sentinels.EndOfAI {
			g.log.Info("end of speech detected, stopping generation", "token", resp.Token, "tokens", len(tokens))
			stopped = true
			break
		}
	}
	end := time.Now()

	res := &Result{
		Text:             text.String(),
		Tokens:           tokens,
		PromptTokens:     len(ids),
		Elapsed:          end.Sub(start),
		Start:            start,
		End:              end,
		StoppedOnEndOfAI: stopped,
	}
	g.log.Info("generation complete",
		"tokens", len(res.Tokens),
		"chars", utf8.RuneCountInString(res.Text),
		"elapsed", res.Elapsed,
		"stopped_on_end_of_ai", stopped,
	)
	return res, nil
}
