package generator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verasca/lociq/internal/cloud"
)

// CloudBackend generates answers through an OpenRouter-compatible cloud API
// using the json_schema response format.
type CloudBackend struct {
	client *cloud.Client
	model  string
}

// NewCloudBackend creates a CloudBackend using the given client and model identifier.
func NewCloudBackend(client *cloud.Client, model string) *CloudBackend {
	return &CloudBackend{client: client, model: model}
}

func (b *CloudBackend) Generate(ctx context.Context, system, query string, schema *Schema) (string, error) {
	var raw json.RawMessage
	if schema != nil {
		data, err := json.Marshal(schema)
		if err != nil {
			return "", fmt.Errorf("marshaling schema: %w", err)
		}
		raw = data
	}
	return b.client.Complete(ctx, b.model, system, query, raw)
}
