package tokenizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// HFTokenizer is a byte-level BPE tokenizer loaded from a Hugging Face
// tokenizer.json. It is safe for concurrent use.
type HFTokenizer struct {
	encoder     map[string]int
	decoder     []string
	added       map[int]bool
	bpeRanks    map[Pair]int
	byteEncoder [256]rune
	byteDecoder map[rune]byte

	mu    sync.RWMutex
	cache map[string][]string

	pattern      *regexp.Regexp
	addBOS       bool
	addEOS       bool
	bosID        int
	eosID        int
	unkID        int
	ignoreMerges bool
	special      []string
}

type hfPreTokenizer struct {
	Type          string `json:"type"`
	Pretokenizers []struct {
		Type    string `json:"type"`
		Pattern struct {
			Regex string `json:"Regex"`
		} `json:"pattern"`
	} `json:"pretokenizers"`
}

type hfTokenizerJSON struct {
	Model struct {
		Type         string         `json:"type"`
		Vocab        map[string]int `json:"vocab"`
		Merges       []any          `json:"merges"`
		IgnoreMerges bool           `json:"ignore_merges"`
		UnkToken     string         `json:"unk_token"`
	} `json:"model"`
	PreTokenizer  hfPreTokenizer `json:"pre_tokenizer"`
	PostProcessor struct {
		Type       string `json:"type"`
		Processors []struct {
			Type          string `json:"type"`
			SpecialTokens map[string]struct {
				IDs []int `json:"ids"`
			} `json:"special_tokens"`
		} `json:"processors"`
	} `json:"post_processor"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

type hfTokenizerConfig struct {
	AddBOS bool   `json:"add_bos_token"`
	AddEOS bool   `json:"add_eos_token"`
	BOS    string `json:"bos_token"`
	EOS    string `json:"eos_token"`
}

// LoadHFTokenizer reads tokenizer.json and an optional tokenizer_config.json.
func LoadHFTokenizer(tokJSON, tokConfig string) (*HFTokenizer, error) {
	data, err := os.ReadFile(tokJSON)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer.json: %w", err)
	}
	var cfg []byte
	if tokConfig != "" {
		cfg, err = os.ReadFile(tokConfig)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer_config.json: %w", err)
		}
	}
	return LoadHFTokenizerBytes(data, cfg)
}

func LoadHFTokenizerBytes(tokJSON []byte, tokConfig []byte) (*HFTokenizer, error) {
	var tj hfTokenizerJSON
	if err := json.Unmarshal(tokJSON, &tj); err != nil {
		return nil, fmt.Errorf("parse tokenizer.json: %w", err)
	}
	if strings.ToUpper(tj.Model.Type) != "BPE" {
		return nil, fmt.Errorf("unsupported tokenizer model: %s", tj.Model.Type)
	}

	encoder, decoder, added, specials := buildVocab(tj)

	var cfg hfTokenizerConfig
	if len(tokConfig) > 0 {
		if err := json.Unmarshal(tokConfig, &cfg); err != nil {
			return nil, fmt.Errorf("parse tokenizer_config.json: %w", err)
		}
	}
	addBOS, bosID, eosID := resolveFraming(tj, cfg, encoder)

	unkID := -1
	if id, ok := encoder[tj.Model.UnkToken]; ok && tj.Model.UnkToken != "" {
		unkID = id
	}

	byteEncoder, byteDecoder := byteTable()
	return &HFTokenizer{
		encoder:      encoder,
		decoder:      decoder,
		added:        added,
		bpeRanks:     parseMerges(tj.Model.Merges),
		cache:        make(map[string][]string),
		byteEncoder:  byteEncoder,
		byteDecoder:  byteDecoder,
		pattern:      buildHFPattern(tj.PreTokenizer),
		addBOS:       addBOS,
		addEOS:       cfg.AddEOS,
		bosID:        bosID,
		eosID:        eosID,
		unkID:        unkID,
		ignoreMerges: tj.Model.IgnoreMerges,
		special:      collectSpecials(decoder, specials),
	}, nil
}

// buildVocab merges the model vocabulary with added tokens. Added tokens
// win on id clashes; ids with no entry decode to "".
func buildVocab(tj hfTokenizerJSON) (map[string]int, []string, map[int]bool, []string) {
	encoder := make(map[string]int, len(tj.Model.Vocab)+len(tj.AddedTokens))
	size := 0
	for tok, id := range tj.Model.Vocab {
		encoder[tok] = id
		size = max(size, id+1)
	}
	added := make(map[int]bool, len(tj.AddedTokens))
	var specials []string
	for _, at := range tj.AddedTokens {
		encoder[at.Content] = at.ID
		added[at.ID] = true
		if at.Special {
			specials = append(specials, at.Content)
		}
		size = max(size, at.ID+1)
	}

	decoder := make([]string, size)
	for tok, id := range tj.Model.Vocab {
		if !added[id] {
			decoder[id] = tok
		}
	}
	for _, at := range tj.AddedTokens {
		decoder[at.ID] = at.Content
	}
	return encoder, decoder, added, specials
}

// parseMerges ranks merge rules by file order. Rules come either as
// "a b" strings or as two-element arrays; duplicates keep their first rank.
func parseMerges(merges []any) map[Pair]int {
	ranks := make(map[Pair]int, len(merges))
	for _, raw := range merges {
		var p Pair
		switch v := raw.(type) {
		case string:
			line := strings.TrimSpace(v)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			a, b, ok := strings.Cut(line, " ")
			if !ok || strings.Contains(b, " ") {
				continue
			}
			p = Pair{A: a, B: b}
		case []any:
			if len(v) != 2 {
				continue
			}
			a, aok := v[0].(string)
			b, bok := v[1].(string)
			if !aok || !bok {
				continue
			}
			p = Pair{A: a, B: b}
		default:
			continue
		}
		if _, ok := ranks[p]; !ok {
			ranks[p] = len(ranks)
		}
	}
	return ranks
}

// resolveFraming works out BOS/EOS handling. A TemplateProcessing post
// processor overrides tokenizer_config.json for BOS, which is how Llama 3
// checkpoints declare <|begin_of_text|>.
func resolveFraming(tj hfTokenizerJSON, cfg hfTokenizerConfig, encoder map[string]int) (addBOS bool, bosID, eosID int) {
	addBOS, bosID, eosID = cfg.AddBOS, -1, -1
	if id, ok := encoder[cfg.BOS]; ok && cfg.BOS != "" {
		bosID = id
	}
	if id, ok := encoder[cfg.EOS]; ok && cfg.EOS != "" {
		eosID = id
	}
	for _, proc := range tj.PostProcessor.Processors {
		if proc.Type != "TemplateProcessing" {
			continue
		}
		for _, spec := range proc.SpecialTokens {
			if len(spec.IDs) > 0 {
				return true, spec.IDs[0], eosID
			}
		}
	}
	return addBOS, bosID, eosID
}

// Encode encodes text and applies the configured BOS/EOS framing.
func (t *HFTokenizer) Encode(text string) ([]int, error) {
	body, err := t.EncodeRaw(text)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(body)+2)
	if t.addBOS && t.bosID >= 0 {
		ids = append(ids, t.bosID)
	}
	ids = append(ids, body...)
	if t.addEOS && t.eosID >= 0 {
		ids = append(ids, t.eosID)
	}
	return ids, nil
}

// EncodeRaw encodes text without BOS/EOS. Special tokens written literally in
// the text still map to their ids.
func (t *HFTokenizer) EncodeRaw(text string) ([]int, error) {
	var ids []int
	for _, part := range splitSpecials(text, t.special) {
		if part.isSpecial {
			id, ok := t.encoder[part.text]
			if !ok {
				return nil, fmt.Errorf("unknown special token: %q", part.text)
			}
			ids = append(ids, id)
			continue
		}
		for _, token := range t.pattern.FindAllString(part.text, -1) {
			for _, bpeTok := range t.bpe(t.byteEncode(token)) {
				id, ok := t.encoder[bpeTok]
				if !ok {
					if t.unkID >= 0 {
						ids = append(ids, t.unkID)
						continue
					}
					return nil, fmt.Errorf("unknown token: %q", bpeTok)
				}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (t *HFTokenizer) Decode(ids []int) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(t.decoder) {
			return "", fmt.Errorf("token id out of range: %d", id)
		}
		token := t.decoder[id]
		if t.added[id] || isSpecialToken(token) {
			b = append(b, token...)
			continue
		}
		for _, r := range token {
			if by, ok := t.byteDecoder[r]; ok {
				b = append(b, by)
			} else {
				b = append(b, string(r)...)
			}
		}
	}
	return string(b), nil
}

// TokenID looks up the id of a vocabulary entry such as "<custom_token_4>".
func (t *HFTokenizer) TokenID(token string) (int, bool) {
	id, ok := t.encoder[token]
	return id, ok
}

func (t *HFTokenizer) BOSID() int   { return t.bosID }
func (t *HFTokenizer) EOSID() int   { return t.eosID }
func (t *HFTokenizer) AddBOS() bool { return t.addBOS }
func (t *HFTokenizer) AddEOS() bool { return t.addEOS }
func (t *HFTokenizer) VocabSize() int {
	return len(t.decoder)
}
func (t *HFTokenizer) TokenString(id int) string {
	if id < 0 || id >= len(t.decoder) {
		return ""
	}
	return t.decoder[id]
}

// Config summarises the loaded tokenizer.
func (t *HFTokenizer) Config() TokenizerConfig {
	return TokenizerConfig{
		AddBOS:     t.addBOS,
		AddEOS:     t.addEOS,
		BOSTokenID: t.bosID,
		EOSTokenID: t.eosID,
		UNKTokenID: t.unkID,
		Tokens:     t.decoder,
	}
}

func (t *HFTokenizer) byteEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		b.WriteRune(t.byteEncoder[s[i]])
	}
	return b.String()
}

func (t *HFTokenizer) bpe(token string) []string {
	t.mu.RLock()
	v, ok := t.cache[token]
	t.mu.RUnlock()
	if ok {
		return v
	}

	var word []string
	if _, known := t.encoder[token]; known && t.ignoreMerges {
		word = []string{token}
	} else {
		word = make([]string, 0, len(token))
		for _, r := range token {
			word = append(word, string(r))
		}
		word = mergeWord(word, t.bpeRanks)
	}

	t.mu.Lock()
	t.cache[token] = word
	t.mu.Unlock()
	return word
}

func buildHFPattern(pre hfPreTokenizer) *regexp.Regexp {
	// Default to GPT2-ish regex.
	pat := `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`
	if pre.Type == "Sequence" {
		for _, p := range pre.Pretokenizers {
			if p.Type == "Split" && p.Pattern.Regex != "" {
				pat = p.Pattern.Regex
				break
			}
		}
	}
	// Llama3-style regexes use lookahead, which Go's RE2 lacks. Swap in the llama.cpp variant.
	if strings.Contains(pat, "(?!\\S)") || strings.Contains(pat, "(?i:") {
		pat = `(?:'[sS]|'[tT]|'[rR][eE]|'[vV][eE]|'[mM]|'[lL][lL]|'[dD])|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+`
	}
	return regexp.MustCompile(pat)
}
