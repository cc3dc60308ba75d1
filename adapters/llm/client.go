package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"datapipe/internal/errors"
	"datapipe/ports"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	providerName     = "anthropic"
)

// Config holds LLM adapter configuration
type Config struct {
	APIKey            string        // Anthropic API key
	BaseURL           string        // Optional override (default: https://api.anthropic.com)
	Timeout           time.Duration // Request timeout
	RequestsPerMinute int           // Client-side rate limit; zero disables it
}

// NewClient creates an LLM client based on config
func NewClient(config Config) (ports.LLMClient, error) {
	if config.APIKey == "" {
		return nil, errors.ConfigInvalid("missing Anthropic API key")
	}

	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := &AnthropicClient{
		APIKey:     config.APIKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if config.RequestsPerMinute > 0 {
		client.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}
	return client, nil
}

// AnthropicClient implements LLMClient for the Anthropic Messages API
type AnthropicClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

type messagesRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []ports.Message `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one Messages API request and returns the first text block
func (c *AnthropicClient) Complete(ctx context.Context, req *ports.CompletionRequest) (*ports.LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, errors.InvalidInput("missing model")
	}
	if len(req.Messages) == 0 {
		return nil, errors.InvalidInput("missing messages")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body := messagesRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  req.Messages,
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		body.Temperature = &temperature
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	start := time.Now()
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.ExternalServiceError(providerName, err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		msg := string(respRaw)
		if json.Unmarshal(respRaw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Type + ": " + apiErr.Error.Message
		}
		return nil, errors.ExternalServiceError(providerName, fmt.Errorf("http %d: %s", resp.StatusCode, msg))
	}

	var decoded messagesResponse
	if err := json.Unmarshal(respRaw, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	text := ""
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, errors.ExternalServiceError(providerName, fmt.Errorf("response has no text content"))
	}

	model := decoded.Model
	if model == "" {
		model = req.Model
	}

	log.Printf("[AnthropicClient] %s responded in %.2fs (%d in / %d out tokens)",
		model, time.Since(start).Seconds(), decoded.Usage.InputTokens, decoded.Usage.OutputTokens)

	return &ports.LLMResponse{
		Content: text,
		Usage: &ports.UsageData{
			PromptTokens:     decoded.Usage.InputTokens,
			CompletionTokens: decoded.Usage.OutputTokens,
			TotalTokens:      decoded.Usage.InputTokens + decoded.Usage.OutputTokens,
			Model:            model,
			Provider:         providerName,
		},
	}, nil
}

// MockLLMClient is a mock LLM client for testing
type MockLLMClient struct {
	Response string // Set this for testing
	Error    error  // Set this to simulate errors

	mu       sync.Mutex
	Requests []*ports.CompletionRequest
}

func (m *MockLLMClient) Complete(ctx context.Context, req *ports.CompletionRequest) (*ports.LLMResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.Error != nil {
		return nil, m.Error
	}
	content := m.Response
	if content == "" {
		// Default mock response
		content = "## Summary\n\nThe data looks consistent.\n\n```sql\nSELECT 1;\n```"
	}
	return &ports.LLMResponse{
		Content: content,
		Usage: &ports.UsageData{
			PromptTokens:     len(strings.Fields(req.System)) + countWords(req.Messages),
			CompletionTokens: len(strings.Fields(content)),
			TotalTokens:      len(strings.Fields(req.System)) + countWords(req.Messages) + len(strings.Fields(content)),
			Model:            req.Model,
			Provider:         "mock",
		},
	}, nil
}

// Calls returns how many requests the mock has received
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func countWords(messages []ports.Message) int {
	n := 0
	for _, msg := range messages {
		n += len(strings.Fields(msg.Content))
	}
	return n
}
