package llamacpp

// TokenizeRequest is the body of POST /tokenize.
type TokenizeRequest struct {
	Content    string `json:"content"`
	AddSpecial bool   `json:"add_special"`
}

type TokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

// CompletionRequest is the body of POST /completion. Prompt is sent as a
// token array so the server does not re-tokenize or add BOS.
type CompletionRequest struct {
	Model         string  `json:"model,omitempty"`
	Prompt        []int   `json:"prompt"`
	NPredict      int     `json:"n_predict"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	TopK          int     `json:"top_k"`
	MinP          float64 `json:"min_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	RepeatLastN   int     `json:"repeat_last_n"`
	Seed          int64   `json:"seed"`
	Stream        bool    `json:"stream"`
	ReturnTokens  bool    `json:"return_tokens"`
	CachePrompt   bool    `json:"cache_prompt"`
}

// Chunk is one server-sent event of a streamed completion.
type Chunk struct {
	Content  string `json:"content"`
	Tokens   []int  `json:"tokens"`
	Stop     bool   `json:"stop"`
	StopType string `json:"stop_type,omitempty"`
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
