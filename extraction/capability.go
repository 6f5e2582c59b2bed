// Package extraction runs a schema of contract fields through context
// resolution, an agent call and response parsing, collecting one Record per
// field.
package extraction

import "context"

// AgentResponse is the text payload returned by an agent.
type AgentResponse struct {
	Content string `json:"content"`
}

// Agent answers an extraction instruction.
type Agent interface {
	Run(ctx context.Context, prompt string) (*AgentResponse, error)
}

// Retriever returns document text relevant to a query. An empty string means
// nothing matched.
type Retriever interface {
	GetContext(ctx context.Context, query string, numResults int) (string, error)
}

// AgentFunc adapts a function to Agent.
type AgentFunc func(ctx context.Context, prompt string) (*AgentResponse, error)

// Run calls f.
func (f AgentFunc) Run(ctx context.Context, prompt string) (*AgentResponse, error) {
	return f(ctx, prompt)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, numResults int) (string, error)

// GetContext calls f.
func (f RetrieverFunc) GetContext(ctx context.Context, query string, numResults int) (string, error) {
	return f(ctx, query, numResults)
}
