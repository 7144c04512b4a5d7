package ai

import "context"

// Generator issues a single prompt-completion request to a text-generation
// backend and returns the raw generated text. Implementations retry transient
// backend faults internally; an error means the backend is unusable for this
// request and the caller decides what to do with the vacancy.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
