package port

import "context"

// ChatRequest is a single system+user exchange with a chat-completion model.
type ChatRequest struct {
	SystemMessage string
	UserMessage   string
	Model         string // empty = provider default
	MaxTokens     int
	Temperature   float64
}

// ChatResponse holds the assistant content of a completion.
type ChatResponse struct {
	Content   string
	ModelUsed string
}

// ChatCompleter abstracts an external chat-completion service.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
