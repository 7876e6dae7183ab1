package api

import "github.com/samcharles93/murmur/internal/store"

// SpeechRequest is the body of POST /v1/speech/tokens and /v1/speech/prompt.
type SpeechRequest struct {
	Input     string `json:"input"`
	MaxTokens *int   `json:"max_tokens,omitempty"`
	Stream    *bool  `json:"stream,omitempty"`
}

// Generation is a stored generation as returned by the API.
type Generation struct {
	Object string `json:"object"`
	store.Record
}

type GenerationList struct {
	Object string       `json:"object"`
	Data   []Generation `json:"data"`
}

type DeleteGenerationResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// PromptResponse shows the framed token ids a prompt would be sent as.
type PromptResponse struct {
	Object string `json:"object"`
	Tokens []int  `json:"tokens"`
	Count  int    `json:"count"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

const (
	objectGeneration = "speech.generation"
	objectPrompt     = "speech.prompt"
)

func toGeneration(rec store.Record) Generation {
	return Generation{Object: objectGeneration, Record: rec}
}
