package llm

import "context"

// CompletionRequest is one chat completion: a system and a user message, and
// optionally the JSON schema the answer must follow.
type CompletionRequest struct {
	System string
	User   string
	Schema map[string]any
}

// Completer is the structured-extraction collaborator. It returns the model's
// raw text; callers own parsing.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
