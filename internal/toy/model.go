// Package toy provides a tiny deterministic language model. It has no
// training behind it; it exists so the generation pipeline can run end to end
// without a model server, and so tests get reproducible logits.
package toy

import (
	"fmt"
	"math/rand"
)

// LM keeps a decaying hidden state: every token adds its embedding to half of
// the previous state, and the state is projected back to vocab logits.
type LM struct {
	Vocab  int
	Hidden int

	Emb  []float32 // [Vocab x Hidden] row-major
	W    []float32 // [Hidden x Vocab] row-major
	Bias []float32 // [Vocab]

	h []float32
}

// New constructs a model with weights drawn from seed. Biases start at zero.
func New(vocab, hidden int, seed int64) *LM {
	m := &LM{
		Vocab:  vocab,
		Hidden: hidden,
		Emb:    make([]float32, vocab*hidden),
		W:      make([]float32, hidden*vocab),
		Bias:   make([]float32, vocab),
		h:      make([]float32, hidden),
	}
	fillRand(m.Emb, seed+11)
	fillRand(m.W, seed+23)
	return m
}

func fillRand(dst []float32, seed int64) {
	r := rand.New(rand.NewSource(seed))
	for i := range dst {
		dst[i] = r.Float32()*2 - 1
	}
}

// ForwardToken advances the state with tok and returns fresh logits.
func (m *LM) ForwardToken(tok int) ([]float32, error) {
	if tok < 0 || tok >= m.Vocab {
		return nil, fmt.Errorf("toy: token %d outside vocab of %d", tok, m.Vocab)
	}
	row := m.Emb[tok*m.Hidden : (tok+1)*m.Hidden]
	for i := range m.h {
		m.h[i] = 0.5*m.h[i] + row[i]
	}
	logits := make([]float32, m.Vocab)
	copy(logits, m.Bias)
	for i, hv := range m.h {
		if hv == 0 {
			continue
		}
		wr := m.W[i*m.Vocab : (i+1)*m.Vocab]
		for j, w := range wr {
			logits[j] += hv * w
		}
	}
	return logits, nil
}

// Reset clears the hidden state.
func (m *LM) Reset() {
	for i := range m.h {
		m.h[i] = 0
	}
}
