package tokenizer

// Tokenizer defines the minimal interface used by the inference backends.
type Tokenizer interface {
	// Encode applies the tokenizer's configured BOS/EOS framing.
	Encode(text string) ([]int, error)
	// EncodeRaw encodes text without adding any special tokens.
	EncodeRaw(text string) ([]int, error)
	Decode(ids []int) (string, error)
}
