package goextract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brunobiangulo/goextract/extraction"
	"github.com/brunobiangulo/goextract/llm"
)

// contractAnalystPrompt is the system message sent with every extraction
// instruction.
const contractAnalystPrompt = `You are a contract analyst. You read commercial contracts and report exactly what they say.
Answer only from the contract text you are given. Quote values as written, including amounts, dates and party names.
Cite clause or section numbers when the text shows them.
When the text does not contain the requested information, answer "Not specified".
Follow the requested output format exactly and add nothing else.`

// chatAgent adapts an llm.Provider to extraction.Agent.
type chatAgent struct {
	provider    llm.Provider
	model       string
	temperature float64
}

func newChatAgent(p llm.Provider, model string, temperature float64) *chatAgent {
	return &chatAgent{provider: p, model: model, temperature: temperature}
}

// Run sends the instruction as the user turn after the analyst system
// message.
func (a *chatAgent) Run(ctx context.Context, instruction string) (*extraction.AgentResponse, error) {
	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: "system", Content: contractAnalystPrompt},
			{Role: "user", Content: instruction},
		},
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLLMRequestFailed, err)
	}
	slog.Debug("agent: response",
		"model", resp.Model, "finish_reason", resp.FinishReason,
		"prompt_tokens", resp.PromptTokens, "completion_tokens", resp.CompletionTokens)
	return &extraction.AgentResponse{Content: resp.Content}, nil
}
