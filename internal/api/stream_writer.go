package api

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// SSEStreamWriter emits a generation as server-sent events:
// generation.created, one generation.token per token, then
// generation.completed or generation.failed.
type SSEStreamWriter struct {
	w       io.Writer
	flusher func()
	id      string
	seq     int
	tokens  int
	begun   bool
}

type streamEvent struct {
	Type           string       `json:"type"`
	ID             string       `json:"id"`
	SequenceNumber int          `json:"sequence_number"`
	CreatedAt      int64        `json:"created_at,omitempty"`
	Seq            *int         `json:"seq,omitempty"`
	Token          *int         `json:"token,omitempty"`
	Generation     *Generation  `json:"generation,omitempty"`
	Error          *ErrorDetail `json:"error,omitempty"`
}

func NewSSEStreamWriter(c *echo.Context) (*SSEStreamWriter, error) {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}
	return &SSEStreamWriter{
		w:       res,
		flusher: flusher.Flush,
		seq:     1,
	}, nil
}

func (s *SSEStreamWriter) Begin(id string, createdAt time.Time) error {
	s.id = id
	s.begun = true
	return s.emit(streamEvent{Type: "generation.created", CreatedAt: createdAt.Unix()})
}

func (s *SSEStreamWriter) Started() bool {
	return s.begun
}

func (s *SSEStreamWriter) AddToken(id int) error {
	n := s.tokens
	s.tokens++
	return s.emit(streamEvent{Type: "generation.token", Seq: &n, Token: &id})
}

func (s *SSEStreamWriter) Complete(gen Generation) error {
	return s.emit(streamEvent{Type: "generation.completed", Generation: &gen})
}

func (s *SSEStreamWriter) Failed(_ string, err error) error {
	return s.emit(streamEvent{
		Type:  "generation.failed",
		Error: &ErrorDetail{Message: err.Error(), Type: "server_error"},
	})
}

func (s *SSEStreamWriter) emit(ev streamEvent) error {
	ev.ID = s.id
	ev.SequenceNumber = s.seq
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher()
	}
	s.seq++
	return nil
}
