package logits

// Processor rewrites a logits vector in place before sampling. history holds
// every token seen so far in the sequence, prompt included.
type Processor interface {
	Process(history []int, logits []float32)
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc func(history []int, logits []float32)

func (f ProcessorFunc) Process(history []int, logits []float32) { f(history, logits) }

// ProcessorConfig selects the processors built by MakeProcessors.
type ProcessorConfig struct {
	RepetitionPenalty float32
	// RepetitionContext is the number of trailing tokens the penalty looks at.
	RepetitionContext int
}

// MakeProcessors returns the processor chain described by cfg. A penalty of
// 1.0 or less disables the repetition penalty.
func MakeProcessors(cfg ProcessorConfig) []Processor {
	var out []Processor
	if cfg.RepetitionPenalty > 1.0 {
		out = append(out, NewRepetitionPenalty(cfg.RepetitionPenalty, cfg.RepetitionContext))
	}
	return out
}

// Apply runs each processor in order.
func Apply(ps []Processor, history []int, logits []float32) {
	for _, p := range ps {
		p.Process(history, logits)
	}
}

// RepetitionPenalty discourages tokens that appeared in the trailing context
// window: positive logits are divided by the penalty, negative ones multiplied.
// Each distinct token is penalised once regardless of how often it repeats.
type RepetitionPenalty struct {
	penalty   float32
	context   int
	seenMark  []uint32
	seenEpoch uint32
	seenList  []int
}

// NewRepetitionPenalty builds a penalty over the last contextSize tokens.
// contextSize defaults to 64 when not positive.
func NewRepetitionPenalty(penalty float32, contextSize int) *RepetitionPenalty {
	if contextSize <= 0 {
		contextSize = 64
	}
	return &RepetitionPenalty{penalty: penalty, context: contextSize}
}

func (r *RepetitionPenalty) Process(history []int, logits []float32) {
	if r.penalty <= 1.0 || len(history) == 0 {
		return
	}
	start := max(len(history)-r.context, 0)
	window := history[start:]

	if len(r.seenMark) < len(logits) {
		r.seenMark = make([]uint32, len(logits))
	}
	r.seenEpoch++
	if r.seenEpoch == 0 {
		for i := range r.seenMark {
			r.seenMark[i] = 0
		}
		r.seenEpoch = 1
	}
	r.seenList = r.seenList[:0]

	for _, id := range window {
		if id >= 0 && id < len(logits) && r.seenMark[id] != r.seenEpoch {
			r.seenMark[id] = r.seenEpoch
			r.seenList = append(r.seenList, id)
		}
	}

	for _, id := range r.seenList {
		if logits[id] > 0 {
			logits[id] /= r.penalty
		} else {
			logits[id] *= r.penalty
		}
	}
}
