package factory

import (
	"fmt"

	"leadqualify-be/pkg/llm"
	"leadqualify-be/pkg/llm/ollama"
	"leadqualify-be/pkg/llm/openaicompat"
)

func NewProvider(providerType, modelName, baseURL, apiKey string) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewProvider(baseURL, modelName), nil
	case "openai-compat":
		if baseURL == "" {
			return nil, fmt.Errorf("openai-compat provider requires a base URL")
		}
		return openaicompat.NewProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
