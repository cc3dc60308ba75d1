package ports

import "context"

// Message is a single conversational turn sent to the model
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one call to a chat model
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// UsageData represents raw usage data from LLM provider APIs
type UsageData struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
}

// LLMResponse represents an LLM response with usage data
type LLMResponse struct {
	Content string
	Usage   *UsageData
}

// LLMClient interface for LLM providers
type LLMClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (*LLMResponse, error)
}
