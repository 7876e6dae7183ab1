package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/samcharles93/murmur/internal/llamacpp"
	"github.com/samcharles93/murmur/internal/logger"
	"github.com/samcharles93/murmur/internal/tokenizer"
	"github.com/samcharles93/murmur/internal/toy"
)

const (
	BackendLlamaCpp = "llamacpp"
	BackendToy      = "toy"
)

// Options select and configure a backend.
type Options struct {
	Backend string
	// Model is the model identifier forwarded to the server.
	Model     string
	ServerURL string
	// TokenizerJSON optionally points at a tokenizer.json used in place of the
	// server's /tokenize endpoint.
	TokenizerJSON   string
	TokenizerConfig string
	// HTTPTimeout bounds each request to the server. Zero means no limit.
	HTTPTimeout time.Duration
	// SkipHealthCheck disables the readiness probe performed by Open.
	SkipHealthCheck bool

	ToyVocab  int
	ToyHidden int
	ToySeed   int64

	Logger logger.Logger
}

// Open loads the model named by opts. For the llamacpp backend the server
// must answer /health before Open returns.
func Open(ctx context.Context, opts Options) (Model, error) {
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}

	switch opts.Backend {
	case BackendLlamaCpp, "":
		if opts.ServerURL == "" {
			return nil, fmt.Errorf("llamacpp backend requires a server url")
		}
		m := &Remote{
			Client:  llamacpp.NewClient(opts.ServerURL, opts.HTTPTimeout),
			ModelID: opts.Model,
		}
		if opts.TokenizerJSON != "" {
			tok, err := tokenizer.LoadHFTokenizer(opts.TokenizerJSON, opts.TokenizerConfig)
			if err != nil {
				return nil, fmt.Errorf("load tokenizer: %w", err)
			}
			m.Tokenizer = tok
			log.Debug("local tokenizer loaded", "path", opts.TokenizerJSON, "vocab", tok.VocabSize())
		}
		if !opts.SkipHealthCheck {
			if err := m.Client.Health(ctx); err != nil {
				return nil, fmt.Errorf("model server not ready: %w", err)
			}
		}
		log.Info("model opened", "backend", BackendLlamaCpp, "model", opts.Model, "server", opts.ServerURL)
		return m, nil

	case BackendToy:
		vocab, hidden := opts.ToyVocab, opts.ToyHidden
		if vocab <= 0 {
			vocab = 256
		}
		if hidden <= 0 {
			hidden = 8
		}
		log.Info("model opened", "backend", BackendToy, "vocab", vocab, "hidden", hidden, "seed", opts.ToySeed)
		return &Local{
			Model:     toy.New(vocab, hidden, opts.ToySeed),
			Tokenizer: tokenizer.ByteTokenizer{},
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
