package inference

import (
	"context"
	"errors"
	"iter"
)

// ErrUnknownBackend is returned by Open for a backend name it does not know.
var ErrUnknownBackend = errors.New("unknown inference backend")

// Response is one step of a streamed decode.
type Response struct {
	// Text is the incremental text produced by this step. It may be empty.
	Text string
	// Token is the id chosen this step; only meaningful when HasToken is set.
	Token    int
	HasToken bool
}

// Sampling describes the sampling strategy and the logit post-processing
// applied before each draw. Backends translate it to whatever they execute.
type Sampling struct {
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	RepetitionContext int
	// Seed fixes the sampling stream. RandomSeed asks for a fresh one on
	// every request.
	Seed              int64
}

// RandomSeed is the Seed value meaning "pick one per request". llama.cpp
// uses the same convention.
const RandomSeed int64 = -1

// StreamRequest is the input to a streamed decode.
type StreamRequest struct {
	// Tokens is the flat prompt sequence, fed to the model as is.
	Tokens    []int
	MaxTokens int
	Sampling  Sampling
}

// Encoder turns text into token ids without adding any special tokens.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]int, error)
}

// Streamer runs a token-by-token decode. The returned sequence is lazy,
// finite and single use; breaking out of the range stops generation. A
// non-nil error is always the last element yielded.
type Streamer interface {
	Stream(ctx context.Context, req StreamRequest) iter.Seq2[Response, error]
}

// Model is a loaded model and tokenizer pair.
type Model interface {
	Encoder
	Streamer
	Close() error
}
