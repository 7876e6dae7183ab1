package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samcharles93/murmur/internal/config"
	"github.com/samcharles93/murmur/internal/inference"
	"github.com/samcharles93/murmur/internal/logger"
	"github.com/samcharles93/murmur/internal/speech"
	"github.com/samcharles93/murmur/internal/store"
)

// openGenerator opens the configured backend and wraps it in a Generator.
// The caller closes the returned model.
func openGenerator(ctx context.Context, cfg config.Config) (*speech.Generator, inference.Model, error) {
	log := logger.FromContext(ctx)
	opts := cfg.InferenceOptions()
	opts.Logger = log

	m, err := inference.Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	gen, err := speech.New(m, cfg.SpeechConfig(), log)
	if err != nil {
		_ = m.Close()
		return nil, nil, err
	}
	log.Debug("model ready", "backend", cfg.Backend, "model", cfg.Model, "max_tokens", gen.MaxTokens())
	return gen, m, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	dir := cfg.Store.Dir
	if cfg.Store.Kind == "badger" && dir == "" {
		d, err := defaultStoreDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return store.Open(cfg.Store.Kind, dir, logger.FromContext(ctx))
}

func defaultStoreDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve store dir: %w", err)
	}
	return filepath.Join(dir, "murmur", "generations"), nil
}
