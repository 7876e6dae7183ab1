package speech

import (
	"context"
	"reflect"
	"testing"

	"github.com/samcharles93/murmur/internal/inference"
	"github.com/samcharles93/murmur/internal/sink"
)

func TestGenerateIsDeterministicAtZeroTemperature(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	model, err := inference.Open(ctx, inference.Options{
		Backend:   inference.BackendToy,
		ToyVocab:  512,
		ToyHidden: 8,
		ToySeed:   3,
		Logger:    newRecordingLogger(),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = model.Close() }()

	cfg := Config{
		Sentinels: Sentinels{StartOfHuman: 300, EndOfText: 301, EndOfHuman: 302, EndOfAI: 303},
		Sampling:  inference.Sampling{Temperature: 0, RepetitionPenalty: 1.3, RepetitionContext: 64},
		MaxTokens: 32,
	}
	g, err := New(model, cfg, newRecordingLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	collected := &sink.Collector{}
	first, err := g.Generate(ctx, "hello there", collected)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if !reflect.DeepEqual(collected.Tokens(), first.Tokens) {
		t.Fatalf("writer saw %v, result has %v", collected.Tokens(), first.Tokens)
	}
	second, err := g.Generate(ctx, "hello there", &recordingWriter{})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(first.Tokens) == 0 {
		t.Fatal("expected tokens")
	}
	if !reflect.DeepEqual(first.Tokens, second.Tokens) || first.Text != second.Text {
		t.Fatalf("runs differ:\n%v\n%v", first.Tokens, second.Tokens)
	}
}
