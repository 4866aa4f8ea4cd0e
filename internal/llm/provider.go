package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// StreamProvider is a Provider that can stream completions token by token.
type StreamProvider interface {
	Provider
	// CompleteStream sends a completion request and returns a stream of
	// response chunks. The caller must Close the stream.
	CompleteStream(ctx context.Context, req CompletionRequest) (Stream, error)
}

// Stream yields completion chunks. Recv returns io.EOF when the model is
// done.
type Stream interface {
	Recv() (StreamChunk, error)
	Close() error
}

// StreamChunk is one increment of a streamed completion.
type StreamChunk struct {
	Content      string
	FinishReason string
}
