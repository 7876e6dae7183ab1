package logits

import (
	"reflect"
	"testing"
)

func TestRepetitionPenalty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		penalty float32
		context int
		history []int
		logits  []float32
		want    []float32
	}{
		{
			name:    "positive-divided-negative-multiplied",
			penalty: 2,
			context: 8,
			history: []int{0, 1},
			logits:  []float32{4, -4, 4},
			want:    []float32{2, -8, 4},
		},
		{
			name:    "repeated-token-penalised-once",
			penalty: 2,
			context: 8,
			history: []int{2, 2, 2},
			logits:  []float32{1, 1, 8},
			want:    []float32{1, 1, 4},
		},
		{
			name:    "window-limits-history",
			penalty: 2,
			context: 1,
			history: []int{0, 1},
			logits:  []float32{4, 4},
			want:    []float32{4, 2},
		},
		{
			name:    "out-of-range-ids-ignored",
			penalty: 2,
			context: 4,
			history: []int{-1, 99},
			logits:  []float32{4, 4},
			want:    []float32{4, 4},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := NewRepetitionPenalty(tc.penalty, tc.context)
			got := append([]float32(nil), tc.logits...)
			p.Process(tc.history, got)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMakeProcessorsDisabledPenalty(t *testing.T) {
	t.Parallel()
	if ps := MakeProcessors(ProcessorConfig{RepetitionPenalty: 1.0, RepetitionContext: 20}); len(ps) != 0 {
		t.Fatalf("expected no processors, got %d", len(ps))
	}
	ps := MakeProcessors(ProcessorConfig{RepetitionPenalty: 1.3, RepetitionContext: 20})
	if len(ps) != 1 {
		t.Fatalf("expected one processor, got %d", len(ps))
	}
}

func TestApplyRunsInOrder(t *testing.T) {
	t.Parallel()
	var order []string
	ps := []Processor{
		ProcessorFunc(func([]int, []float32) { order = append(order, "a") }),
		ProcessorFunc(func([]int, []float32) { order = append(order, "b") }),
	}
	Apply(ps, nil, nil)
	if !reflect.DeepEqual(order, []string{"a", "b"}) {
		t.Fatalf("unexpected order %v", order)
	}
}
