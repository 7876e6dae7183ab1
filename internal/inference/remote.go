package inference

import (
	"context"
	"fmt"
	"iter"

	"github.com/samcharles93/murmur/internal/llamacpp"
	"github.com/samcharles93/murmur/internal/tokenizer"
)

// Remote streams from a llama.cpp server. Prompts are sent as token arrays
// so the server never adds its own BOS.
type Remote struct {
	Client *llamacpp.Client
	// ModelID is passed through as the request's model field.
	ModelID string
	// Tokenizer, when set, encodes locally instead of calling /tokenize.
	Tokenizer tokenizer.Tokenizer
}

func (r *Remote) Encode(ctx context.Context, text string) ([]int, error) {
	if r.Tokenizer != nil {
		return safeEncode(r.Tokenizer, text)
	}
	return r.Client.Tokenize(ctx, text)
}

func (r *Remote) Close() error {
	r.Client.HTTP.CloseIdleConnections()
	return nil
}

// Stream maps completion chunks to responses, one per returned token. A chunk
// carrying text but no token ids becomes a single tokenless response; the
// empty closing chunk yields nothing.
func (r *Remote) Stream(ctx context.Context, req StreamRequest) iter.Seq2[Response, error] {
	creq := llamacpp.CompletionRequest{
		Model:         r.ModelID,
		Prompt:        req.Tokens,
		NPredict:      req.MaxTokens,
		Temperature:   req.Sampling.Temperature,
		TopP:          req.Sampling.TopP,
		RepeatPenalty: req.Sampling.RepetitionPenalty,
		RepeatLastN:   req.Sampling.RepetitionContext,
		Seed:          req.Sampling.Seed,
		CachePrompt:   true,
	}
	if creq.RepeatPenalty <= 0 {
		creq.RepeatPenalty = 1
	}
	return func(yield func(Response, error) bool) {
		if len(req.Tokens) == 0 {
			yield(Response{}, fmt.Errorf("prompt is empty"))
			return
		}
		if req.MaxTokens <= 0 {
			return
		}
		for chunk, err := range r.Client.Complete(ctx, creq) {
			if err != nil {
				yield(Response{}, fmt.Errorf("completion stream: %w", err))
				return
			}
			if len(chunk.Tokens) == 0 {
				if chunk.Content == "" {
					continue
				}
				if !yield(Response{Text: chunk.Content}, nil) {
					return
				}
				continue
			}
			for i, id := range chunk.Tokens {
				text := ""
				if i == 0 {
					text = chunk.Content
				}
				if !yield(Response{Text: text, Token: id, HasToken: true}, nil) {
					return
				}
			}
		}
	}
}
