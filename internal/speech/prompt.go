package speech

import (
	"context"
	"fmt"
)

// Frame wraps encoded prompt ids in the human-turn markers:
// [StartOfHuman] ++ ids ++ [EndOfText, EndOfHuman].
func Frame(s Sentinels, ids []int) []int {
	out := make([]int, 0, len(ids)+3)
	out = append(out, s.StartOfHuman)
	out = append(out, ids...)
	return append(out, s.EndOfText, s.EndOfHuman)
}

// BuildPrompt encodes text without implicit special tokens and frames it.
// An empty text yields just the three markers.
func (g *Generator) BuildPrompt(ctx context.Context, text string) ([]int, error) {
	ids, err := g.model.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	return Frame(g.sentinels, ids), nil
}
