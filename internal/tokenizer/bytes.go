package tokenizer

import (
	"fmt"
	"strings"
)

// ByteTokenizer maps each byte of the input to its own id (0-255). Ids above
// 255 have no text form and decode to a <|tok_N|> placeholder. It backs the
// offline toy model, which has no tokenizer.json of its own.
type ByteTokenizer struct{}

func (ByteTokenizer) Encode(text string) ([]int, error) {
	return ByteTokenizer{}.EncodeRaw(text)
}

func (ByteTokenizer) EncodeRaw(text string) ([]int, error) {
	ids := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int(text[i])
	}
	return ids, nil
}

func (ByteTokenizer) Decode(ids []int) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		switch {
		case id < 0:
			return "", fmt.Errorf("token id out of range: %d", id)
		case id < 256:
			b.WriteByte(byte(id))
		default:
			fmt.Fprintf(&b, "<|tok_%d|>", id)
		}
	}
	return b.String(), nil
}
