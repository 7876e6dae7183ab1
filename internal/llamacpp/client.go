// Package llamacpp is a small client for the llama.cpp HTTP server: token
// counting via /tokenize and streamed decoding via /completion.
package llamacpp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrServer wraps non-2xx responses from the server.
var ErrServer = errors.New("llama.cpp server error")

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for the server at baseURL. A zero timeout leaves
// the HTTP client unbounded, which streamed completions need.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Health checks GET /health, which reports 200 once the model is loaded.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Tokenize encodes text on the server without special tokens.
func (c *Client) Tokenize(ctx context.Context, text string) ([]int, error) {
	resp, err := c.post(ctx, "/tokenize", TokenizeRequest{Content: text, AddSpecial: false})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out TokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tokenize response: %w", err)
	}
	if out.Tokens == nil {
		out.Tokens = []int{}
	}
	return out.Tokens, nil
}

// Complete streams a completion. Stream and ReturnTokens are forced on. The
// response body is closed when iteration ends, including on early break.
func (c *Client) Complete(ctx context.Context, creq CompletionRequest) iter.Seq2[Chunk, error] {
	creq.Stream = true
	creq.ReturnTokens = true
	return func(yield func(Chunk, error) bool) {
		resp, err := c.post(ctx, "/completion", creq)
		if err != nil {
			yield(Chunk{}, err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		r := bufio.NewReader(resp.Body)
		for {
			line, readErr := r.ReadString('\n')
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				yield(Chunk{}, fmt.Errorf("read completion stream: %w", readErr))
				return
			}
			chunk, kind, err := parseEvent(line)
			switch {
			case err != nil:
				yield(Chunk{}, err)
				return
			case kind == eventDone:
				return
			case kind == eventData:
				if !yield(chunk, nil) || chunk.Stop {
					return
				}
			}
			if readErr != nil {
				return
			}
		}
	}
}

type eventKind int

const (
	eventSkip eventKind = iota
	eventData
	eventDone
)

// parseEvent decodes one SSE line. Comments, blank lines and unknown fields
// are skipped; an "error:" line becomes an ErrServer error.
func parseEvent(line string) (Chunk, eventKind, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "error:") {
		payload := strings.TrimSpace(strings.TrimPrefix(line, "error:"))
		return Chunk{}, eventSkip, fmt.Errorf("%w: %s", ErrServer, payload)
	}
	if !strings.HasPrefix(line, "data:") {
		return Chunk{}, eventSkip, nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == "[DONE]" {
		return Chunk{}, eventDone, nil
	}
	var chunk Chunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return Chunk{}, eventSkip, fmt.Errorf("decode completion chunk: %w", err)
	}
	return chunk, eventData, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, body.Error.Message)
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, msg)
}
