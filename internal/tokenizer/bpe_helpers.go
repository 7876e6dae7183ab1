package tokenizer

import (
	"cmp"
	"slices"
	"strings"
)

// Pair represents a pair of BPE tokens.
type Pair struct {
	A string
	B string
}

type textPart struct {
	text      string
	isSpecial bool
}

// mergeWord applies merges to word in rank order until no adjacent pair has
// a rank.
func mergeWord(word []string, ranks map[Pair]int) []string {
	for len(word) > 1 {
		best, bestRank := -1, 0
		for i := 0; i+1 < len(word); i++ {
			r, ok := ranks[Pair{A: word[i], B: word[i+1]}]
			if ok && (best < 0 || r < bestRank) {
				best, bestRank = i, r
			}
		}
		if best < 0 {
			break
		}
		pair := Pair{A: word[best], B: word[best+1]}
		out := make([]string, 0, len(word)-1)
		for i := 0; i < len(word); i++ {
			if i+1 < len(word) && word[i] == pair.A && word[i+1] == pair.B {
				out = append(out, pair.A+pair.B)
				i++
				continue
			}
			out = append(out, word[i])
		}
		word = out
	}
	return word
}

// collectSpecials returns the tokens matched literally in input text,
// longest first so that overlapping markers resolve to the longest one.
func collectSpecials(tokens []string, extra []string) []string {
	seen := make(map[string]bool, len(extra))
	out := make([]string, 0, 32+len(extra))
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range extra {
		add(t)
	}
	for _, t := range tokens {
		if isSpecialToken(t) {
			add(t)
		}
	}
	slices.SortStableFunc(out, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
	return out
}

// isSpecialToken matches control markers such as <|begin_of_text|> and the
// <custom_token_N> entries that carry speech codes.
func isSpecialToken(s string) bool {
	if len(s) >= 4 && strings.HasPrefix(s, "<|") && strings.HasSuffix(s, "|>") {
		return true
	}
	n, ok := strings.CutPrefix(s, "<custom_token_")
	if !ok {
		return false
	}
	n, ok = strings.CutSuffix(n, ">")
	if !ok || n == "" {
		return false
	}
	for _, c := range n {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func splitSpecials(text string, specials []string) []textPart {
	if len(specials) == 0 || !strings.Contains(text, "<") {
		return []textPart{{text: text}}
	}
	var parts []textPart
	start := 0
	for i := 0; i < len(text); {
		if text[i] != '<' {
			i++
			continue
		}
		match := ""
		for _, sp := range specials {
			if strings.HasPrefix(text[i:], sp) {
				match = sp
				break
			}
		}
		if match == "" {
			i++
			continue
		}
		if i > start {
			parts = append(parts, textPart{text: text[start:i]})
		}
		parts = append(parts, textPart{text: match, isSpecial: true})
		i += len(match)
		start = i
	}
	if start < len(text) {
		parts = append(parts, textPart{text: text[start:]})
	}
	return parts
}

// byteTable is the reversible byte to rune mapping used by byte-level BPE.
// Printable Latin-1 bytes map to themselves; the rest are shifted past 255.
func byteTable() ([256]rune, map[rune]byte) {
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	var enc [256]rune
	dec := make(map[rune]byte, 256)
	n := 0
	for b := range 256 {
		r := rune(b)
		if !printable(b) {
			r = rune(256 + n)
			n++
		}
		enc[b] = r
		dec[r] = byte(b)
	}
	return enc, dec
}
