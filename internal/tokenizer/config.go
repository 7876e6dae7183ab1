package tokenizer

// TokenizerConfig is a read-only summary of a loaded tokenizer.
type TokenizerConfig struct {
	AddBOS     bool
	AddEOS     bool
	BOSTokenID int
	EOSTokenID int
	UNKTokenID int
	Tokens     []string
}

// TokenString returns the string for a token id when available.
func (t TokenizerConfig) TokenString(id int) string {
	if id < 0 || id >= len(t.Tokens) {
		return ""
	}
	return t.Tokens[id]
}
