package sink

import (
	"bufio"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// JSONL writes one {"seq":n,"token":id} object per line and a closing
// {"done":true} line, which Abort leaves out. Each line is flushed as soon as it is written so a
// downstream decoder can start early.
type JSONL struct {
	mu     sync.Mutex
	w      io.Writer
	bw     *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	seq    int
	closed bool
}

// JSONLines returns a JSONL writer over w. Closing it does not close w.
func JSONLines(w io.Writer) *JSONL {
	return &JSONL{w: w}
}

func (j *JSONL) init() {
	if j.enc == nil {
		j.bw = bufio.NewWriter(j.w)
		j.enc = json.NewEncoder(j.bw)
	}
}

func (j *JSONL) AddToken(id int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	j.init()
	if err := j.enc.Encode(tokenFrame(j.seq, id)); err != nil {
		return err
	}
	j.seq++
	return j.bw.Flush()
}

func (j *JSONL) Close() error { return j.finish(true) }

func (j *JSONL) Abort() error { return j.finish(false) }

func (j *JSONL) finish(done bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	j.init()
	var err error
	if done {
		err = j.enc.Encode(doneFrame)
	}
	if ferr := j.bw.Flush(); err == nil {
		err = ferr
	}
	if j.closer != nil {
		if cerr := j.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
