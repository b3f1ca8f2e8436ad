package generator

import (
	"context"

	"github.com/verasca/lociq/internal/ollama"
)

// OllamaBackend generates answers with a model served by a local Ollama
// instance, using Ollama's structured-output format parameter.
type OllamaBackend struct {
	client *ollama.Client
	model  string
}

// NewOllamaBackend creates an OllamaBackend using the given client and model name.
func NewOllamaBackend(client *ollama.Client, model string) *OllamaBackend {
	return &OllamaBackend{client: client, model: model}
}

func (b *OllamaBackend) Generate(ctx context.Context, system, query string, schema *Schema) (string, error) {
	messages := []ollama.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: query},
	}

	var format any
	if schema != nil {
		format = schema
	}
	return b.client.Chat(ctx, b.model, messages, format)
}
