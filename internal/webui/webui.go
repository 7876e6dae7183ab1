// Package webui embeds the single-page console served at / by murmur serve.
// The page posts text to /v1/speech/tokens with stream enabled and renders
// the speech tokens as they arrive.
package webui

import _ "embed"

//go:embed static/index.html
var index []byte

// Index returns the console page.
func Index() []byte { return index }
