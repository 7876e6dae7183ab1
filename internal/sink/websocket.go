package sink

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// WebSocket streams tokens to a codec decoder service. Every token is sent
// as one binary msgpack Frame; Close sends the done frame and a normal close
// message, Abort only an error close message.
type WebSocket struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	seq    int
	closed bool
}

// DialWebSocket connects to url. header may be nil.
func DialWebSocket(ctx context.Context, url string, header http.Header) (*WebSocket, error) {
	if url == "" {
		return nil, fmt.Errorf("websocket sink requires a url")
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &WebSocket{conn: conn}, nil
}

func (s *WebSocket) AddToken(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.send(tokenFrame(s.seq, id)); err != nil {
		return err
	}
	s.seq++
	return nil
}

func (s *WebSocket) Close() error { return s.finish(true) }

func (s *WebSocket) Abort() error { return s.finish(false) }

func (s *WebSocket) finish(done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "generation failed")
	if done {
		err = s.send(doneFrame)
		msg = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	}
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *WebSocket) send(f Frame) error {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}
