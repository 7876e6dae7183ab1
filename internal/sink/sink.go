// Package sink provides audio writers: destinations for generated speech
// tokens, such as a JSON lines stream or a websocket to a codec decoder.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrUnknownKind is returned by Open for a sink kind it does not know.
var ErrUnknownKind = errors.New("unknown sink kind")

// ErrClosed is returned when writing to a closed sink.
var ErrClosed = errors.New("sink closed")

// Writer accepts tokens in emission order and releases its resources on Close.
type Writer interface {
	AddToken(id int) error
	Close() error
}

// Frame is one message on the wire: {"seq":n,"token":id} per token and a
// bare {"done":true} once the stream completes. A stream that ends without
// the done frame was aborted.
type Frame struct {
	Seq   *int `json:"seq,omitempty" msgpack:"seq,omitempty"`
	Token *int `json:"token,omitempty" msgpack:"token,omitempty"`
	Done  bool `json:"done,omitempty" msgpack:"done,omitempty"`
}

func tokenFrame(seq, id int) Frame { return Frame{Seq: &seq, Token: &id} }

var doneFrame = Frame{Done: true}

// Aborter is implemented by writers that can end a stream without the done
// frame.
type Aborter interface {
	Abort() error
}

// Abort ends w without marking the stream complete, falling back to Close
// for writers that have no such notion.
func Abort(w Writer) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}
	return w.Close()
}

// Open builds the writer named by kind: "jsonl" writes to the file at target
// ("-" or empty for stdout), "ws" dials the websocket url in target and
// "none" discards tokens.
func Open(ctx context.Context, kind, target string) (Writer, error) {
	switch kind {
	case "jsonl":
		if target == "" || target == "-" {
			return JSONLines(os.Stdout), nil
		}
		f, err := os.Create(target)
		if err != nil {
			return nil, fmt.Errorf("open token file: %w", err)
		}
		return &JSONL{w: f, closer: f}, nil
	case "ws", "websocket":
		return DialWebSocket(ctx, target, nil)
	case "none", "":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Discard drops every token.
type Discard struct{}

func (Discard) AddToken(int) error { return nil }
func (Discard) Close() error       { return nil }

// Collector keeps tokens in memory. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	tokens []int
}

func (c *Collector) AddToken(id int) error {
	c.mu.Lock()
	c.tokens = append(c.tokens, id)
	c.mu.Unlock()
	return nil
}

func (c *Collector) Close() error { return nil }

// Tokens returns a copy of everything written so far.
func (c *Collector) Tokens() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.tokens...)
}

// Multi fans each token out to every writer in order. The first error stops
// the fan-out and is returned.
func Multi(ws ...Writer) Writer {
	return multi(ws)
}

type multi []Writer

func (m multi) AddToken(id int) error {
	for _, w := range m {
		if err := w.AddToken(id); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var errs []error
	for _, w := range m {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Abort() error {
	var errs []error
	for _, w := range m {
		if err := Abort(w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
