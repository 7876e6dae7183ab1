package inference

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/samcharles93/murmur/internal/logits"
	"github.com/samcharles93/murmur/internal/tokenizer"
)

// LogitsModel is an in-process model advanced one token at a time.
type LogitsModel interface {
	ForwardToken(id int) ([]float32, error)
	Reset()
}

// Local streams from an in-process LogitsModel, sampling on the host.
// It is not safe for concurrent use: the model carries decode state.
type Local struct {
	Model     LogitsModel
	Tokenizer tokenizer.Tokenizer
}

func (l *Local) Encode(_ context.Context, text string) ([]int, error) {
	return safeEncode(l.Tokenizer, text)
}

func (l *Local) Close() error {
	if closer, ok := l.Model.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (l *Local) Stream(ctx context.Context, req StreamRequest) iter.Seq2[Response, error] {
	return func(yield func(Response, error) bool) {
		if len(req.Tokens) == 0 {
			yield(Response{}, errors.New("prompt is empty"))
			return
		}
		if err := ctx.Err(); err != nil {
			yield(Response{}, err)
			return
		}
		if err := safeReset(l.Model); err != nil {
			yield(Response{}, err)
			return
		}

		sampler := logits.NewSampler(logits.SamplerConfig{
			Seed:        req.Sampling.Seed,
			Temperature: float32(req.Sampling.Temperature),
			TopP:        float32(req.Sampling.TopP),
		})
		processors := logits.MakeProcessors(logits.ProcessorConfig{
			RepetitionPenalty: float32(req.Sampling.RepetitionPenalty),
			RepetitionContext: req.Sampling.RepetitionContext,
		})

		var vec []float32
		var err error
		for _, id := range req.Tokens {
			vec, err = safeForward(l.Model, id)
			if err != nil {
				yield(Response{}, fmt.Errorf("forward error during prefill: %w", err))
				return
			}
		}

		history := slices.Clone(req.Tokens)
		for i := 0; i < req.MaxTokens; i++ {
			logits.Apply(processors, history, vec)
			next, err := safeSample(sampler, vec)
			if err != nil {
				yield(Response{}, err)
				return
			}
			history = append(history, next)

			text, _ := l.Tokenizer.Decode([]int{next})
			if !yield(Response{Text: text, Token: next, HasToken: true}, nil) {
				return
			}
			if i+1 == req.MaxTokens {
				return
			}
			vec, err = safeForward(l.Model, next)
			if err != nil {
				yield(Response{}, fmt.Errorf("forward error during generation step %d: %w", i, err))
				return
			}
		}
	}
}

func safeForward(m LogitsModel, id int) (out []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in ForwardToken: %v", rec)
		}
	}()
	return m.ForwardToken(id)
}

func safeSample(s *logits.Sampler, vec []float32) (id int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Sample: %v", rec)
		}
	}()
	return s.Sample(vec), nil
}

func safeReset(m LogitsModel) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Reset: %v", rec)
		}
	}()
	m.Reset()
	return nil
}

func safeEncode(tok tokenizer.Tokenizer, text string) (ids []int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Encode: %v", rec)
		}
	}()
	return tok.EncodeRaw(text)
}
