package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/murmur/internal/config"
	"github.com/samcharles93/murmur/internal/logger"
)

type configKey struct{}

// setup loads the config file, applies the global flags over it and installs
// the logger every subcommand reads from ctx.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return ctx, err
	}
	applyLoggingFlags(cmd, &cfg)

	log, err := logger.Setup(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return ctx, err
	}
	log.Debug("config loaded", "path", path)

	ctx = logger.WithContext(ctx, log)
	return context.WithValue(ctx, configKey{}, cfg), nil
}

// configFromContext returns the config installed by setup, or the defaults.
func configFromContext(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(configKey{}).(config.Config); ok {
		return cfg
	}
	return config.Default()
}

func applyLoggingFlags(c *cli.Command, cfg *config.Config) {
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.Bool("debug") {
		cfg.LogLevel = "debug"
	}
}

// applyModelFlags overrides config values with model flags that were set
// explicitly on the command line.
func applyModelFlags(c *cli.Command, cfg *config.Config) {
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("model") {
		cfg.Model = c.String("model")
	}
	if c.IsSet("server-url") {
		cfg.ServerURL = c.String("server-url")
	}
	if c.IsSet("http-timeout") {
		cfg.HTTPTimeout = c.Duration("http-timeout")
	}
	if c.IsSet("tokenizer-json") {
		cfg.TokenizerJSON = c.String("tokenizer-json")
	}
	if c.IsSet("tokenizer-config") {
		cfg.TokenizerConfig = c.String("tokenizer-config")
	}
}

func applySamplingFlags(c *cli.Command, cfg *config.Config) {
	if c.IsSet("temp") {
		cfg.Sampling.Temperature = c.Float64("temp")
	}
	if c.IsSet("top-p") {
		cfg.Sampling.TopP = c.Float64("top-p")
	}
	if c.IsSet("repeat-penalty") {
		cfg.Sampling.RepetitionPenalty = c.Float64("repeat-penalty")
	}
	if c.IsSet("repeat-last-n") {
		cfg.Sampling.RepetitionContextSize = c.Int("repeat-last-n")
	}
	if c.IsSet("seed") {
		cfg.Sampling.Seed = c.Int64("seed")
	}
	if c.IsSet("max-tokens") {
		cfg.MaxTokens = c.Int("max-tokens")
	}
}

func applyStoreFlags(c *cli.Command, cfg *config.Config) {
	if c.IsSet("store") {
		cfg.Store.Kind = c.String("store")
	}
	if c.IsSet("store-dir") {
		cfg.Store.Dir = c.String("store-dir")
		if !c.IsSet("store") {
			cfg.Store.Kind = "badger"
		}
	}
}

// persistStore switches the in-memory store to badger for one-shot commands,
// whose records would otherwise vanish with the process. --store wins.
func persistStore(c *cli.Command, cfg *config.Config) {
	if c.IsSet("store") {
		return
	}
	if cfg.Store.Kind == "" || cfg.Store.Kind == "memory" {
		cfg.Store.Kind = "badger"
	}
}

func applySinkFlags(c *cli.Command, cfg *config.Config) {
	if c.IsSet("sink") {
		cfg.Sink.Kind = c.String("sink")
	}
	if c.IsSet("out") {
		cfg.Sink.Target = c.String("out")
	}
}

func applyServeFlags(c *cli.Command, cfg *config.Config) {
	if c.IsSet("addr") {
		cfg.ListenAddress = c.String("addr")
	}
}

// resolveConfig applies every flag group to the loaded config and validates
// the result.
func resolveConfig(ctx context.Context, c *cli.Command) (config.Config, error) {
	cfg := configFromContext(ctx)
	applyModelFlags(c, &cfg)
	applySamplingFlags(c, &cfg)
	applyStoreFlags(c, &cfg)
	applySinkFlags(c, &cfg)
	applyServeFlags(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Join(errors.New("invalid configuration"), err)
	}
	return cfg, nil
}
