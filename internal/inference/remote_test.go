package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/samcharles93/murmur/internal/llamacpp"
	"github.com/samcharles93/murmur/internal/tokenizer"
)

func newRemote(t *testing.T, handler http.HandlerFunc) *Remote {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Remote{Client: llamacpp.NewClient(srv.URL, 0), ModelID: "orpheus"}
}

func TestRemoteStreamMapsChunks(t *testing.T) {
	t.Parallel()

	sentCh := make(chan llamacpp.CompletionRequest, 1)
	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		var sent llamacpp.CompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&sent); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sentCh <- sent
		fmt.Fprint(w, "data: {\"content\":\"<a>\",\"tokens\":[5]}\n\n")
		fmt.Fprint(w, "data: {\"content\":\"<b><c>\",\"tokens\":[6,7]}\n\n")
		fmt.Fprint(w, "data: {\"content\":\"?\",\"tokens\":[]}\n\n")
		fmt.Fprint(w, "data: {\"content\":\"\",\"tokens\":[],\"stop\":true}\n\n")
	})

	req := StreamRequest{
		Tokens:    []int{1, 10, 11, 2, 3},
		MaxTokens: 1200,
		Sampling:  Sampling{Temperature: 0.6, TopP: 0.8, RepetitionPenalty: 1.3, RepetitionContext: 64, Seed: 9},
	}
	got, err := collect(t, r, req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	want := []Response{
		{Text: "<a>", Token: 5, HasToken: true},
		{Text: "<b><c>", Token: 6, HasToken: true},
		{Text: "", Token: 7, HasToken: true},
		{Text: "?"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("responses:\n got %+v\nwant %+v", got, want)
	}

	sent := <-sentCh
	if sent.Model != "orpheus" || !reflect.DeepEqual(sent.Prompt, req.Tokens) || sent.NPredict != 1200 {
		t.Fatalf("request: %+v", sent)
	}
	if sent.Temperature != 0.6 || sent.TopP != 0.8 || sent.RepeatPenalty != 1.3 || sent.RepeatLastN != 64 || sent.Seed != 9 {
		t.Fatalf("sampling not forwarded: %+v", sent)
	}
	if !sent.CachePrompt || !sent.Stream || !sent.ReturnTokens {
		t.Fatalf("flags: %+v", sent)
	}
}

func TestRemoteStreamSendsRandomSeed(t *testing.T) {
	t.Parallel()

	seeds := make(chan int64, 1)
	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		var sent llamacpp.CompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&sent); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		seeds <- sent.Seed
		fmt.Fprint(w, "data: {\"content\":\"\",\"tokens\":[],\"stop\":true}\n\n")
	})

	req := StreamRequest{
		Tokens:    []int{1, 2, 3},
		MaxTokens: 4,
		Sampling:  Sampling{Temperature: 0.6, TopP: 0.8, Seed: RandomSeed},
	}
	if _, err := collect(t, r, req); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got := <-seeds; got != -1 {
		t.Fatalf("seed = %d, want -1", got)
	}
}

func TestRemoteStreamStopsOnBreak(t *testing.T) {
	t.Parallel()

	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		for i := range 10 {
			fmt.Fprintf(w, "data: {\"content\":\"x\",\"tokens\":[%d]}\n\n", 100+i)
		}
	})

	var ids []int
	for resp, err := range r.Stream(context.Background(), StreamRequest{Tokens: []int{1}, MaxTokens: 10}) {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		ids = append(ids, resp.Token)
		if len(ids) == 2 {
			break
		}
	}
	if !reflect.DeepEqual(ids, []int{100, 101}) {
		t.Fatalf("ids: got %v", ids)
	}
}

func TestRemoteStreamError(t *testing.T) {
	t.Parallel()

	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"out of memory"}}`))
	})
	_, err := collect(t, r, StreamRequest{Tokens: []int{1}, MaxTokens: 4})
	if !errors.Is(err, llamacpp.ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
}

func TestRemoteStreamZeroBudgetSkipsServer(t *testing.T) {
	t.Parallel()

	var called atomic.Bool
	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		called.Store(true)
	})
	got, err := collect(t, r, StreamRequest{Tokens: []int{1}, MaxTokens: 0})
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	if called.Load() {
		t.Fatal("server should not be called with a zero budget")
	}
}

func TestRemoteEncode(t *testing.T) {
	t.Parallel()

	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"tokens":[10,11]}`))
	})
	got, err := r.Encode(context.Background(), "hello")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !reflect.DeepEqual(got, []int{10, 11}) {
		t.Fatalf("server encode: got %v", got)
	}

	r.Tokenizer = tokenizer.ByteTokenizer{}
	got, err = r.Encode(context.Background(), "hi")
	if err != nil {
		t.Fatalf("local encode: %v", err)
	}
	if !reflect.DeepEqual(got, []int{'h', 'i'}) {
		t.Fatalf("local encode: got %v", got)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	cases := []struct {
		name    string
		opts    Options
		wantErr error
		check   func(t *testing.T, m Model)
	}{
		{
			name: "llamacpp",
			opts: Options{Backend: BackendLlamaCpp, ServerURL: srv.URL, Model: "orpheus"},
			check: func(t *testing.T, m Model) {
				if _, ok := m.(*Remote); !ok {
					t.Fatalf("expected *Remote, got %T", m)
				}
			},
		},
		{
			name: "toy",
			opts: Options{Backend: BackendToy, ToyVocab: 32, ToyHidden: 4},
			check: func(t *testing.T, m Model) {
				if _, ok := m.(*Local); !ok {
					t.Fatalf("expected *Local, got %T", m)
				}
			},
		},
		{name: "unknown", opts: Options{Backend: "onnx"}, wantErr: ErrUnknownBackend},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := Open(context.Background(), tc.opts)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer func() { _ = m.Close() }()
			tc.check(t, m)
		})
	}
}

func TestOpenUnhealthyServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	if _, err := Open(context.Background(), Options{Backend: BackendLlamaCpp, ServerURL: srv.URL}); !errors.Is(err, llamacpp.ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
}
