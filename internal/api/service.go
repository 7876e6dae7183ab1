package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samcharles93/murmur/internal/logger"
	"github.com/samcharles93/murmur/internal/sink"
	"github.com/samcharles93/murmur/internal/speech"
	"github.com/samcharles93/murmur/internal/store"
)

// Generator is the part of speech.Generator the service drives.
type Generator interface {
	BuildPrompt(ctx context.Context, text string) ([]int, error)
	Generate(ctx context.Context, prompt string, w speech.AudioWriter, opts ...speech.Option) (*speech.Result, error)
}

// SpeechService serialises access to a single generator and records every
// finished generation in the store.
type SpeechService struct {
	gen   Generator
	model string
	store store.Store
	log   logger.Logger
	mu    sync.Mutex
	clock func() time.Time
}

func NewSpeechService(gen Generator, model string, st store.Store, log logger.Logger) *SpeechService {
	if st == nil {
		st = store.NewMemory()
	}
	if log == nil {
		log = logger.Default()
	}
	return &SpeechService{
		gen:   gen,
		model: model,
		store: st,
		log:   log.With("component", "api"),
		clock: time.Now,
	}
}

// StreamWriter receives the lifecycle of one streamed generation.
type StreamWriter interface {
	speech.AudioWriter
	Begin(id string, createdAt time.Time) error
	Complete(gen Generation) error
	Failed(id string, err error) error
}

// Create runs one generation. When stream is set, each token is forwarded to
// it as it is produced.
func (s *SpeechService) Create(ctx context.Context, req *SpeechRequest, stream StreamWriter) (*store.Record, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, newInvalidRequest("input is required")
	}
	var opts []speech.Option
	if req.MaxTokens != nil {
		if *req.MaxTokens <= 0 {
			return nil, newInvalidRequest("max_tokens must be positive")
		}
		opts = append(opts, speech.WithMaxTokens(*req.MaxTokens))
	}

	id := newGenerationID()
	var w speech.AudioWriter = sink.Discard{}
	if stream != nil {
		if err := stream.Begin(id, s.clock()); err != nil {
			return nil, err
		}
		w = stream
	}

	s.mu.Lock()
	res, err := s.gen.Generate(ctx, req.Input, w, opts...)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("generation failed", "id", id, "error", err)
		if stream != nil {
			_ = stream.Failed(id, err)
		}
		return nil, err
	}

	rec := store.NewRecord(id, s.model, req.Input, res)
	if err := s.store.Put(ctx, rec); err != nil {
		s.log.Warn("failed to persist generation", "id", id, "error", err)
	}
	if stream != nil {
		if err := stream.Complete(toGeneration(rec)); err != nil {
			return &rec, err
		}
	}
	return &rec, nil
}

// Prompt returns the framed token ids for text without generating. Empty
// text is allowed and frames to the bare markers.
func (s *SpeechService) Prompt(ctx context.Context, text string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.BuildPrompt(ctx, text)
}

func (s *SpeechService) Store() store.Store { return s.store }
