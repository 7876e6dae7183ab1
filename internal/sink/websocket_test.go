package sink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// decoderServer records every frame a client sends until it closes.
func decoderServer(t *testing.T) (string, <-chan []Frame) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	out := make(chan []Frame, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		var frames []Frame
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				out <- frames
				return
			}
			if typ != websocket.BinaryMessage {
				continue
			}
			var f Frame
			if err := msgpack.Unmarshal(data, &f); err != nil {
				out <- frames
				return
			}
			frames = append(frames, f)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), out
}

func TestWebSocketSendsMsgpackFrames(t *testing.T) {
	t.Parallel()

	url, frames := decoderServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, err := Open(ctx, "ws", url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	for _, id := range []int{128266, 128300} {
		if err := w.AddToken(id); err != nil {
			t.Fatalf("add token: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case got := <-frames:
		want := []Frame{tokenFrame(0, 128266), tokenFrame(1, 128300), {Done: true}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("frames: got %+v, want %+v", got, want)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for frames")
	}

	if err := w.AddToken(1); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWebSocketAbortSkipsDoneFrame(t *testing.T) {
	t.Parallel()

	url, frames := decoderServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, err := DialWebSocket(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := w.AddToken(0); err != nil {
		t.Fatalf("add token: %v", err)
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}

	select {
	case got := <-frames:
		if want := []Frame{tokenFrame(0, 0)}; !reflect.DeepEqual(got, want) {
			t.Fatalf("frames: got %+v, want %+v", got, want)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for frames")
	}
}

func TestDialWebSocketRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := DialWebSocket(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}
