package ai

import "context"

// LLMProvider sends a prompt to a language model and returns the raw
// text response. Used only by the extractor; not exported to the rest
// of the system.
type LLMProvider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
