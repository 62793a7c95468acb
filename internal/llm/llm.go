// Package llm wraps chat-completion providers behind a single Generator
// interface so synthesis does not care which backend produced the text.
package llm

import "context"

// Generator produces a completion for a fully rendered prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
