package toy

import (
	"math"
	"testing"
)

// TestForwardMatchesNaive compares ForwardToken against a hand-computed
// reference for a single token from a clean state.
func TestForwardMatchesNaive(t *testing.T) {
	t.Parallel()
	vocab, hidden := 8, 6
	m := New(vocab, hidden, 5)
	m.Bias[2] = 0.25
	tok := 3

	logits, err := m.ForwardToken(tok)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	for j := 0; j < vocab; j++ {
		var sum float32
		for i := 0; i < hidden; i++ {
			sum += m.Emb[tok*hidden+i] * m.W[i*vocab+j]
		}
		ref := sum + m.Bias[j]
		if math.Abs(float64(logits[j]-ref)) > 1e-4 {
			t.Fatalf("logit mismatch at %d: got %f, want %f", j, logits[j], ref)
		}
	}
}

func TestResetRestoresState(t *testing.T) {
	t.Parallel()
	m := New(16, 4, 1)
	first, _ := m.ForwardToken(2)
	if _, err := m.ForwardToken(5); err != nil {
		t.Fatalf("forward: %v", err)
	}
	m.Reset()
	again, _ := m.ForwardToken(2)
	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("logit %d differs after reset: %f vs %f", i, first[i], again[i])
		}
	}
}

func TestSameSeedSameWeights(t *testing.T) {
	t.Parallel()
	a := New(10, 3, 7)
	b := New(10, 3, 7)
	for i := range a.W {
		if a.W[i] != b.W[i] {
			t.Fatalf("weights differ at %d", i)
		}
	}
}

func TestForwardRejectsOutOfVocab(t *testing.T) {
	t.Parallel()
	m := New(4, 2, 1)
	if _, err := m.ForwardToken(4); err == nil {
		t.Fatalf("expected error for out of vocab token")
	}
}
