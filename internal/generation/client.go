// Package generation abstracts the language models that power the
// specialist evaluations. Two engines are provided: an OpenAI-compatible
// HTTP client and a GitHub Copilot SDK engine, plus a mock for tests.
package generation

import "context"

// Request is a single completion request. System and User are kept
// separate so engines can map them onto their native message shapes.
type Request struct {
	System      string
	User        string
	Model       string // override the client default, may be blank
	Temperature float64
	MaxTokens   int

	// ForceJSON asks the engine to constrain output to a JSON object.
	// Engines that can't enforce this still receive a prompt instruction,
	// so callers must validate the payload either way.
	ForceJSON bool
}

// Usage is the token accounting reported by the engine for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completion result.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Client produces completions. Implementations must honor ctx
// cancellation and deadlines.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Model returns the default model ID used when Request.Model is blank.
	Model() string
}
