package logits

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"time"
)

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	// Seed initialises the random source. Negative seeds draw from the clock.
	Seed        int64
	Temperature float32
	// TopK limits sampling to the k most likely tokens. Zero disables it.
	TopK int
	TopP float32
	MinP float32
}

type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool
	topIdx []int
	topVal []float32
	prob   []float64
}

// NewSampler returns a new sampler with the provided configuration.
// A temperature of zero or less selects greedy decoding.
func NewSampler(cfg SamplerConfig) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	if cfg.TopK < 0 {
		cfg.TopK = 0
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	seed := cfg.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		rng:    rand.New(rand.NewSource(seed)),
		cfg:    cfg,
		greedy: greedy,
	}
}

// Greedy reports whether the sampler always returns the argmax.
func (s *Sampler) Greedy() bool {
	return s.greedy || (s.cfg.TopK == 1 && s.cfg.TopP >= 1)
}

// Sample draws a single index from the provided logits vector. Logit
// processors (repetition penalty and friends) must already have been applied.
//
//  1. With a non-positive temperature, or TopK==1 and TopP>=1, argmax is returned.
//  2. Otherwise the logits are scaled by the inverse temperature and ordered,
//     either the top k of them or the whole vocabulary when TopK is disabled.
//  3. A softmax over the shortlist is computed relative to its maximum.
//  4. MinP drops candidates below MinP times the best probability.
//  5. If TopP<1, the shortlist is truncated when the cumulative probability
//     reaches TopP.
//  6. A random value in [0,1) selects an index from what remains.
func (s *Sampler) Sample(logits []float32) int {
	if s.Greedy() {
		return argmax(logits)
	}

	invTemp := float32(1.0) / s.cfg.Temperature

	var topIdx []int
	var topVal []float32
	if s.cfg.TopK > 0 && s.cfg.TopK < len(logits) {
		topIdx, topVal = s.topK(logits, s.cfg.TopK, invTemp)
	} else {
		topIdx, topVal = s.sorted(logits, invTemp)
	}
	if len(topVal) == 0 {
		return 0
	}

	maxv := topVal[0]
	if cap(s.prob) < len(topVal) {
		s.prob = make([]float64, len(topVal))
	}
	prob := s.prob[:len(topVal)]
	var sum float64
	for i := range topVal {
		e := math.Exp(float64(topVal[i] - maxv))
		prob[i] = e
		sum += e
	}
	if sum == 0 || math.IsNaN(sum) {
		return topIdx[0]
	}
	invSum := 1.0 / sum
	for i := range prob {
		prob[i] *= invSum
	}

	if s.cfg.MinP > 0 {
		threshold := prob[0] * float64(s.cfg.MinP)
		n := 0
		var kept float64
		for i := range prob {
			if prob[i] >= threshold {
				prob[n] = prob[i]
				topIdx[n] = topIdx[i]
				kept += prob[i]
				n++
			}
		}
		if n < len(prob) {
			prob = prob[:n]
			if kept > 0 {
				scale := 1.0 / kept
				for i := range prob {
					prob[i] *= scale
				}
			}
		}
	}

	cut := len(prob)
	if s.cfg.TopP < 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if float32(c) >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
	}

	// Renormalise over the nucleus so the draw stays inside it.
	var mass float64
	for i := 0; i < cut; i++ {
		mass += prob[i]
	}
	r := s.rng.Float64() * mass
	var c float64
	for i := 0; i < cut; i++ {
		c += prob[i]
		if r <= c {
			return topIdx[i]
		}
	}

	return topIdx[cut-1]
}

// argmax returns the index of the maximum value in the slice. If the slice is empty it panics.
func argmax(x []float32) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

// topK returns the indices and values of the k largest elements in logits, scaled by invTemp.
// The returned slices are ordered from largest to smallest by value.
// This is an O(V*K) algorithm suitable for small K.
func (s *Sampler) topK(logits []float32, k int, invTemp float32) ([]int, []float32) {
	if cap(s.topIdx) < k+1 {
		s.topIdx = make([]int, 0, k+1)
		s.topVal = make([]float32, 0, k+1)
	}
	topIdx := s.topIdx[:0]
	topVal := s.topVal[:0]

	for i, l := range logits {
		v := l * invTemp

		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}

		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)

		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v

		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}
	s.topIdx = topIdx
	s.topVal = topVal
	return topIdx, topVal
}

// sorted orders the whole vocabulary by scaled logit, largest first.
func (s *Sampler) sorted(logits []float32, invTemp float32) ([]int, []float32) {
	n := len(logits)
	if cap(s.topIdx) < n {
		s.topIdx = make([]int, n)
		s.topVal = make([]float32, n)
	}
	idx := s.topIdx[:n]
	val := s.topVal[:n]
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(logits[b], logits[a])
	})
	for i, id := range idx {
		val[i] = logits[id] * invTemp
	}
	return idx, val
}
