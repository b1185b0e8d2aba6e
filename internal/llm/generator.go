// Package llm is the deliberative path's generation collaborator: a
// provider-agnostic structured-generation interface, concrete Anthropic
// and Gemini clients, and a recovery pipeline for malformed output.
package llm

import "context"

// Request is one structured-generation call. ResponseFormat is a hint
// describing the structure the caller expects back (e.g. a JSON schema
// sketch); providers embed it in the prompt however suits them.
type Request struct {
	System         string
	Prompt         string
	ResponseFormat string
	MaxTokens      int
}

// Result is the collaborator's answer. Success false carries an
// ErrorDetail; callers treat that as a degradable condition, never a
// crash.
type Result struct {
	Success     bool
	Response    string
	ErrorDetail string
}

// Generator produces text from a structured request. The caller owns
// timeout and retry policy through ctx; implementations must honor
// cancellation.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
