package usage

import "datapipe/ports"

// LLMResponse represents an LLM response with usage data
type LLMResponse = ports.LLMResponse

// UsageData represents raw usage data from LLM provider APIs
type UsageData = ports.UsageData
