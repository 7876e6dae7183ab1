// Package store keeps finished generations so they can be fetched again
// after the request that produced them has gone.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samcharles93/murmur/internal/speech"
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("generation not found")

// Record is a persisted generation.
type Record struct {
	ID               string    `json:"id" msgpack:"id"`
	Model            string    `json:"model,omitempty" msgpack:"model,omitempty"`
	Prompt           string    `json:"prompt" msgpack:"prompt"`
	PromptTokens     int       `json:"prompt_tokens" msgpack:"prompt_tokens"`
	Text             string    `json:"text" msgpack:"text"`
	Tokens           []int     `json:"tokens" msgpack:"tokens"`
	StartedAt        time.Time `json:"started_at" msgpack:"started_at"`
	CompletedAt      time.Time `json:"completed_at" msgpack:"completed_at"`
	ElapsedMS        int64     `json:"elapsed_ms" msgpack:"elapsed_ms"`
	StoppedOnEndOfAI bool      `json:"stopped_on_end_of_ai" msgpack:"stopped_on_end_of_ai"`
}

// NewRecord captures a speech.Result under id.
func NewRecord(id, model, prompt string, res *speech.Result) Record {
	tokens := res.Tokens
	if tokens == nil {
		tokens = []int{}
	}
	return Record{
		ID:               id,
		Model:            model,
		Prompt:           prompt,
		PromptTokens:     res.PromptTokens,
		Text:             res.Text,
		Tokens:           slices.Clone(tokens),
		StartedAt:        res.Start.UTC(),
		CompletedAt:      res.End.UTC(),
		ElapsedMS:        res.Elapsed.Milliseconds(),
		StoppedOnEndOfAI: res.StoppedOnEndOfAI,
	}
}

// Store persists records. Implementations are safe for concurrent use.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List returns records ordered by start time, newest first.
	List(ctx context.Context) ([]Record, error)
	// Delete reports ErrNotFound when id is unknown.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]Record
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]Record)}
}

func (m *Memory) Put(_ context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("store: record id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Tokens = slices.Clone(rec.Tokens)
	m.data[rec.ID] = rec
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Tokens = slices.Clone(rec.Tokens)
	return rec, nil
}

func (m *Memory) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.data))
	for _, rec := range m.data {
		rec.Tokens = slices.Clone(rec.Tokens)
		out = append(out, rec)
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *Memory) Close() error { return nil }

func sortNewestFirst(recs []Record) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
